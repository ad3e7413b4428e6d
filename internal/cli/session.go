package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/clarify"
	"github.com/aretw0/clarify/internal/presentation/tui"
	"github.com/aretw0/clarify/pkg/domain"
	"github.com/aretw0/clarify/pkg/runner"
)

// ChatOptions configures an interactive chat.
type ChatOptions struct {
	SessionID string
	Input     string

	// JSON switches to JSON Lines on stdin/stdout.
	JSON bool
	// Interactive enables the banner and markdown rendering.
	Interactive bool

	In  io.Reader
	Out io.Writer
}

// RunChat drives a session on the terminal until it completes or the user leaves.
func RunChat(ctx context.Context, app *App, opts ChatOptions) error {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	var handler runner.IOHandler
	switch {
	case opts.JSON:
		handler = runner.NewJSONHandler(opts.In, opts.Out)
	case opts.Interactive:
		tui.PrintBanner(opts.Out, clarify.Version)
		handler = runner.NewTextHandler(opts.In, opts.Out,
			runner.WithTextHandlerRenderer(tui.NewRenderer()),
			runner.WithInteractive(true),
		)
	default:
		handler = runner.NewTextHandler(opts.In, opts.Out)
	}

	r := runner.NewRunner(app.Service,
		runner.WithLogger(app.Logger),
		runner.WithInputHandler(handler),
		runner.WithSessionID(opts.SessionID),
		runner.WithInitialInput(opts.Input),
	)

	res, err := r.Run(ctx)
	if err != nil {
		return handleExecutionError(err)
	}
	if res != nil && res.Completed() && !opts.JSON {
		printSystemMessage(opts.Out, "Session %s completed.", res.SessionID)
	}
	return nil
}

// PrintResponse writes a result as the JSON document the HTTP API returns.
func PrintResponse(w io.Writer, res *domain.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(runner.NewResponse(res))
}

// StartOnce starts a session and prints its first response.
func StartOnce(ctx context.Context, app *App, sessionID, input string, w io.Writer) error {
	res, err := app.Service.Start(ctx, sessionID, input)
	if err != nil {
		return fmt.Errorf("start failed: %w", err)
	}
	return PrintResponse(w, res)
}

// ResumeOnce feeds one reply and prints the response. A negative revision
// skips the revision check.
func ResumeOnce(ctx context.Context, app *App, sessionID, reply string, revision int, w io.Writer) error {
	var opts []clarify.ResumeOption
	if revision >= 0 {
		opts = append(opts, clarify.WithRevision(revision))
	}
	res, err := app.Service.Resume(ctx, sessionID, reply, opts...)
	if err != nil {
		return fmt.Errorf("resume failed: %w", err)
	}
	return PrintResponse(w, res)
}
