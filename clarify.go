package clarify

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/clarify/internal/logging"
	"github.com/aretw0/clarify/pkg/domain"
	"github.com/aretw0/clarify/pkg/ports"
	"github.com/aretw0/clarify/pkg/session"
	"github.com/google/uuid"
)

// ChangeListener observes every persisted transition of a session.
// before is nil for a freshly started session.
type ChangeListener func(ctx context.Context, before, after *domain.State)

// Service is the high-level entry point of the library.
// It couples a Workflow with a session store and serializes access per session.
type Service struct {
	workflow  ports.Workflow
	sessions  *session.Manager
	archiver  ports.Archiver
	listeners []ChangeListener
	logger    *slog.Logger
	newID     func() string

	managerOpts []session.Option
	noArchive   bool
}

// Option defines a functional option for configuring the Service.
type Option func(*Service)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithLocker serializes sessions across processes.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(s *Service) {
		s.managerOpts = append(s.managerOpts, session.WithLocker(locker))
	}
}

// WithLockTTL bounds how long a distributed lock outlives a crashed holder.
func WithLockTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.managerOpts = append(s.managerOpts, session.WithLockTTL(ttl))
	}
}

// WithIDGenerator replaces the UUID generator used for anonymous starts.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithChangeListener registers a listener notified after each successful write.
func WithChangeListener(l ChangeListener) Option {
	return func(s *Service) {
		if l != nil {
			s.listeners = append(s.listeners, l)
		}
	}
}

// WithArchiver overrides the archiver detected on the store.
// A nil archiver disables archiving.
func WithArchiver(a ports.Archiver) Option {
	return func(s *Service) {
		s.archiver = a
		s.noArchive = a == nil
	}
}

// New builds a Service. If the store also implements ports.Archiver,
// completed sessions are archived.
func New(workflow ports.Workflow, store ports.SessionStore, opts ...Option) *Service {
	s := &Service{
		workflow: workflow,
		logger:   logging.NewNop(),
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.archiver == nil && !s.noArchive {
		if a, ok := store.(ports.Archiver); ok {
			s.archiver = a
		}
	}

	s.managerOpts = append(s.managerOpts, session.WithLogger(s.logger))
	s.sessions = session.NewManager(store, s.managerOpts...)
	return s
}

// Sessions exposes the underlying session manager.
func (s *Service) Sessions() *session.Manager {
	return s.sessions
}

// Start begins a session and runs it until its first suspension.
// An empty sessionID gets a generated one. Retrying a start for a suspended
// session with the same input returns its pending prompt.
func (s *Service) Start(ctx context.Context, sessionID, rawInput string) (*domain.Result, error) {
	if strings.TrimSpace(rawInput) == "" {
		return nil, domain.ErrEmptyInput
	}
	if sessionID == "" {
		sessionID = s.newID()
	}

	var replay *domain.State
	next, err := s.sessions.Mutate(ctx, sessionID, func(ctx context.Context, current *domain.State) (*domain.State, error) {
		if current != nil {
			if current.Suspended() && current.RawInput == rawInput {
				replay = current
				return nil, nil
			}
			return nil, fmt.Errorf("%w: %s", domain.ErrSessionExists, sessionID)
		}
		return s.workflow.Advance(ctx, domain.NewState(sessionID, rawInput), nil)
	})
	if err != nil {
		return nil, err
	}
	if replay != nil {
		s.logger.Debug("Replaying pending prompt", "session_id", sessionID, "revision", replay.Revision)
		return replay.Result(), nil
	}

	s.afterWrite(ctx, nil, next)
	return next.Result(), nil
}

// ResumeOption configures a single Resume call.
type ResumeOption func(*resumeOptions)

type resumeOptions struct {
	revision *int
}

// WithRevision makes the resume conditional on the prompt's revision.
// A retry carrying an already consumed revision and the same reply replays
// the current result instead of failing.
func WithRevision(rev int) ResumeOption {
	return func(o *resumeOptions) {
		o.revision = &rev
	}
}

// Resume feeds the user's reply to a suspended session.
//
// A reply equal to the one consumed by the last resume is taken as a retry
// and replays the current result, unless the caller passes the current
// revision to answer the new prompt with the same text again.
func (s *Service) Resume(ctx context.Context, sessionID, reply string, opts ...ResumeOption) (*domain.Result, error) {
	if strings.TrimSpace(reply) == "" {
		return nil, domain.ErrEmptyInput
	}
	var o resumeOptions
	for _, opt := range opts {
		opt(&o)
	}

	var before, replay *domain.State
	next, err := s.sessions.Mutate(ctx, sessionID, func(ctx context.Context, current *domain.State) (*domain.State, error) {
		if current == nil {
			return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
		}
		if isRetry(current, o.revision, reply) {
			replay = current
			return nil, nil
		}
		switch {
		case current.Done():
			return nil, domain.ErrSessionCompleted
		case !current.Suspended():
			return nil, fmt.Errorf("%w: phase %s", domain.ErrNotSuspended, current.Phase)
		}
		if o.revision != nil && *o.revision != current.Revision {
			return nil, fmt.Errorf("%w: got %d, current %d", domain.ErrRevisionConflict, *o.revision, current.Revision)
		}

		before = current.Snapshot()
		next, err := s.workflow.Advance(ctx, current, &reply)
		if err != nil {
			return nil, err
		}
		next.LastResume = &domain.ResumeRecord{Revision: current.Revision, Reply: reply}
		return next, nil
	})
	if err != nil {
		return nil, err
	}
	if replay != nil {
		s.logger.Debug("Replaying resume result", "session_id", sessionID, "revision", replay.Revision)
		return replay.Result(), nil
	}

	s.afterWrite(ctx, before, next)
	return next.Result(), nil
}

// isRetry reports whether a resume repeats the one that produced current.
// With a revision, only the consumed revision counts as a retry. Without one,
// repeating the last consumed reply does.
func isRetry(current *domain.State, revision *int, reply string) bool {
	lr := current.LastResume
	if lr == nil || lr.Reply != reply {
		return false
	}
	if revision == nil {
		return true
	}
	return *revision != current.Revision && *revision == lr.Revision
}

// Get returns the persisted state of a session.
func (s *Service) Get(ctx context.Context, sessionID string) (*domain.State, error) {
	return s.sessions.Load(ctx, sessionID)
}

// Summary is a short listing entry for a session.
type Summary struct {
	SessionID      string       `json:"session_id"`
	Phase          domain.Phase `json:"phase"`
	RawInput       string       `json:"raw_input"`
	IterationCount int          `json:"iteration_count"`
	Revision       int          `json:"revision"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// List returns the ids of all stored sessions.
func (s *Service) List(ctx context.Context) ([]string, error) {
	return s.sessions.List(ctx)
}

// Summaries loads every session and returns them most recently updated first.
// Sessions that vanish while listing are skipped.
func (s *Service) Summaries(ctx context.Context) ([]Summary, error) {
	ids, err := s.sessions.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(ids))
	for _, id := range ids {
		st, err := s.sessions.Store().Load(ctx, id)
		if err != nil {
			s.logger.Debug("Skipping session in listing", "session_id", id, "err", err)
			continue
		}
		out = append(out, Summary{
			SessionID:      id,
			Phase:          st.Phase,
			RawInput:       st.RawInput,
			IterationCount: st.IterationCount,
			Revision:       st.Revision,
			UpdatedAt:      st.UpdatedAt,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// Abandon deletes a session.
func (s *Service) Abandon(ctx context.Context, sessionID string) error {
	return s.sessions.WithLock(ctx, sessionID, func(ctx context.Context) error {
		store := s.sessions.Store()
		if _, err := store.Load(ctx, sessionID); err != nil {
			return err
		}
		if err := store.Delete(ctx, sessionID); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
		s.logger.Info("Session abandoned", "session_id", sessionID)
		return nil
	})
}

func (s *Service) afterWrite(ctx context.Context, before, after *domain.State) {
	if after.Done() && s.archiver != nil {
		if err := s.archiver.Archive(ctx, after); err != nil {
			s.logger.Warn("Failed to archive completed session",
				"session_id", after.SessionID,
				"err", err,
			)
		}
	}
	for _, l := range s.listeners {
		l(ctx, before, after)
	}
}
