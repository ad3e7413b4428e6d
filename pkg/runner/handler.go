package runner

import (
	"context"

	"github.com/aretw0/clarify/pkg/domain"
)

// IOHandler defines the strategy for interacting with the user.
// This allows switching between Text (CLI/TUI) and JSON (Structured) modes.
type IOHandler interface {
	// Prompt presents a suspended session's confirmation request.
	Prompt(ctx context.Context, prompt *domain.SuspendedPrompt) error

	// Final presents the output of a completed session.
	Final(ctx context.Context, final *domain.FinalOutput) error

	// Input reads a response from the user.
	Input(ctx context.Context) (string, error)

	// SystemOutput presents a meta-message to the user (e.g. errors, status updates).
	// This is distinct from content rendering.
	SystemOutput(ctx context.Context, msg string) error
}

// ContentRenderer is a function that transforms the content before outputting it.
// This allows for TUI rendering (markdown to ANSI) without coupling the core package.
type ContentRenderer func(string) (string, error)
