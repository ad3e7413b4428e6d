package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/aretw0/clarify"
	"github.com/aretw0/clarify/internal/logging"
	"github.com/aretw0/clarify/pkg/domain"
)

// Service is the part of clarify.Service the Runner drives.
type Service interface {
	Start(ctx context.Context, sessionID, rawInput string) (*domain.Result, error)
	Resume(ctx context.Context, sessionID, reply string, opts ...clarify.ResumeOption) (*domain.Result, error)
	Get(ctx context.Context, sessionID string) (*domain.State, error)
}

// errExit is returned by readInput when the user leaves the loop.
var errExit = errors.New("runner: exit requested")

// Runner handles the interactive loop of a clarification session.
// It uses an IOHandler strategy to abstract the interaction mode (Text vs JSON).
type Runner struct {
	service Service

	// Handler is the strategy for IO. Defaults to a TextHandler on stdio.
	Handler IOHandler

	// Logger is used for internal debug logging.
	Logger *slog.Logger

	SessionID    string
	InitialInput string
	Renderer     ContentRenderer
}

// NewRunner creates a Runner around a service.
func NewRunner(svc Service, opts ...Option) *Runner {
	r := &Runner{
		service: svc,
		Logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the loop until the session completes or the user leaves.
// Leaving is not an error: the session stays suspended and the last result
// is returned. The result is nil if the user leaves before a session exists.
func (r *Runner) Run(ctx context.Context) (*domain.Result, error) {
	handler := r.resolveHandler()

	signals := NewSignalManager(ctx)
	defer signals.Stop()

	res, err := r.open(ctx, handler, signals)
	if err != nil {
		if errors.Is(err, errExit) {
			return nil, nil
		}
		return nil, err
	}

	for {
		if res.Completed() {
			if err := handler.Final(ctx, res.Final); err != nil {
				return res, fmt.Errorf("output error: %w", err)
			}
			r.Logger.Debug("session completed", "session_id", res.SessionID)
			return res, nil
		}
		if res.Prompt == nil {
			return res, fmt.Errorf("session %s has no pending prompt", res.SessionID)
		}

		if err := handler.Prompt(ctx, res.Prompt); err != nil {
			return res, fmt.Errorf("output error: %w", err)
		}

		reply, err := r.readInput(handler, signals)
		if err != nil {
			if errors.Is(err, errExit) {
				_ = handler.SystemOutput(context.WithoutCancel(ctx),
					fmt.Sprintf("Session %s saved. Resume it with --session %s", res.SessionID, res.SessionID))
				return res, nil
			}
			return res, err
		}

		next, err := r.service.Resume(ctx, res.SessionID, reply, clarify.WithRevision(res.Prompt.Revision))
		if err != nil {
			if domain.IsRetryable(err) {
				r.Logger.Warn("resume failed", "session_id", res.SessionID, "err", err)
				_ = handler.SystemOutput(ctx, fmt.Sprintf("The request failed (%v). Your reply was not recorded, please try again.", err))
				continue
			}
			return res, err
		}
		res = next
	}
}

// open resumes the configured session or starts a new one.
func (r *Runner) open(ctx context.Context, handler IOHandler, signals *SignalManager) (*domain.Result, error) {
	if r.SessionID != "" {
		st, err := r.service.Get(ctx, r.SessionID)
		switch {
		case err == nil:
			if res := st.Result(); res != nil {
				r.Logger.Debug("resuming session", "session_id", r.SessionID, "phase", st.Phase)
				return res, nil
			}
			return nil, fmt.Errorf("%w: phase %s", domain.ErrNotSuspended, st.Phase)
		case !errors.Is(err, domain.ErrSessionNotFound):
			return nil, fmt.Errorf("failed to load session %s: %w", r.SessionID, err)
		}
	}

	raw := strings.TrimSpace(r.InitialInput)
	for {
		if raw == "" {
			if err := handler.SystemOutput(ctx, "What would you like to know?"); err != nil {
				return nil, err
			}
			var err error
			if raw, err = r.readInput(handler, signals); err != nil {
				return nil, err
			}
		}

		res, err := r.service.Start(ctx, r.SessionID, raw)
		if err == nil {
			return res, nil
		}
		if !domain.IsRetryable(err) {
			return nil, err
		}
		r.Logger.Warn("start failed", "session_id", r.SessionID, "err", err)
		_ = handler.SystemOutput(ctx, fmt.Sprintf("The request failed (%v), please try again.", err))
		raw = ""
	}
}

// readInput reads a reply, mapping interrupts, EOF and exit words to errExit.
func (r *Runner) readInput(handler IOHandler, signals *SignalManager) (string, error) {
	val, err := handler.Input(signals.Context())
	if err != nil {
		signals.CheckRace()
		if signals.Context().Err() != nil {
			r.Logger.Debug("input cancelled", "err", signals.Context().Err())
			return "", errExit
		}
		if errors.Is(err, io.EOF) {
			return "", errExit
		}
		return "", fmt.Errorf("input error: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(val)) {
	case "exit", "quit":
		return "", errExit
	}
	return val, nil
}

// resolveHandler ensures a valid IOHandler is set.
func (r *Runner) resolveHandler() IOHandler {
	if r.Handler != nil {
		return r.Handler
	}
	r.Handler = NewTextHandler(os.Stdin, os.Stdout, WithTextHandlerRenderer(r.Renderer))
	return r.Handler
}
