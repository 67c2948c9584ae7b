package runner

import (
	"context"

	"github.com/aretw0/archguide/pkg/domain"
)

// IOHandler defines the strategy for interacting with the user.
// This allows switching between Text (CLI/TUI) and JSON (Structured) modes.
type IOHandler interface {
	// Input reads the next turn request. io.EOF ends the conversation.
	Input(ctx context.Context) (domain.TurnRequest, error)

	// Output presents the outcome of a turn.
	Output(ctx context.Context, result domain.TurnResult) error

	// SystemOutput presents a meta-message to the user (e.g. a rejected input).
	// This is distinct from content rendering.
	SystemOutput(ctx context.Context, msg string) error
}

// ContentRenderer is a function that transforms the content before outputting it.
// This allows for TUI rendering (markdown to ANSI) without coupling the core package.
type ContentRenderer func(string) (string, error)
