package runner

import (
	"log/slog"

	"github.com/aretw0/archguide/pkg/ports"
)

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithEngine configures the turn engine the conversation runs against.
func WithEngine(engine ports.TurnEngine) Option {
	return func(r *Runner) {
		r.engine = engine
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.Logger = logger
	}
}

// WithInputHandler configures a custom IOHandler.
func WithInputHandler(handler IOHandler) Option {
	return func(r *Runner) {
		r.Handler = handler
	}
}

// WithSessionID resumes (or names) the conversation.
// Without it a fresh session id is generated.
func WithSessionID(id string) Option {
	return func(r *Runner) {
		r.SessionID = id
	}
}

// WithMaxInputSize caps a single user message, in bytes.
func WithMaxInputSize(n int) Option {
	return func(r *Runner) {
		r.MaxInputSize = n
	}
}

// WithDocContext attaches a document to every turn. When docOnly is set the
// document is the only grounding the stages may use.
func WithDocContext(doc string, docOnly bool) Option {
	return func(r *Runner) {
		r.DocContext = doc
		r.DocOnly = docOnly
	}
}

// WithAddContext attaches free-form extra context to every turn.
func WithAddContext(extra string) Option {
	return func(r *Runner) {
		r.AddContext = extra
	}
}
