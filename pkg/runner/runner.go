package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/archguide/internal/logging"
	"github.com/aretw0/archguide/pkg/domain"
	"github.com/aretw0/archguide/pkg/ports"
	"github.com/aretw0/archguide/pkg/session"
)

// Runner drives a conversation: it reads a request from the IOHandler,
// runs one engine turn and writes the result, until the input ends.
type Runner struct {
	// Handler is the strategy for IO. Defaults to a TextHandler on Stdin/Stdout.
	Handler IOHandler

	// Logger is used for internal debug logging.
	// If nil, a no-op logger is used.
	Logger *slog.Logger

	SessionID    string
	MaxInputSize int

	// Conversation-wide request defaults.
	DocOnly    bool
	DocContext string
	AddContext string

	engine ports.TurnEngine
}

// NewRunner creates a new Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{}
	for _, opt := range opts {
		opt(r)
	}
	if r.Handler == nil {
		r.Handler = NewTextHandler(os.Stdin, os.Stdout)
	}
	if r.Logger == nil {
		r.Logger = logging.NewNop()
	}
	if r.SessionID == "" {
		r.SessionID = session.NewID()
	}
	return r
}

// Run executes the conversation loop until the input ends or ctx is done.
// Ctrl+C while a turn is running cancels that turn only; at the prompt it
// ends the conversation.
func (r *Runner) Run(ctx context.Context) error {
	if r.engine == nil {
		return errors.New("runner: no engine configured")
	}

	signals := NewSignalManager(ctx)
	defer signals.Stop()

	r.Logger.Debug("conversation started", "session_id", r.SessionID)
	for {
		req, err := r.Handler.Input(signals.Context())
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			signals.CheckRace()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if signals.Interrupted() {
				return nil
			}
			return fmt.Errorf("input error: %w", err)
		}

		if err := r.turn(signals, req); err != nil {
			return err
		}
	}
}

func (r *Runner) turn(signals *SignalManager, req domain.TurnRequest) error {
	ctx := signals.Context()

	clean, err := SanitizeInputLimit(req.Text, r.MaxInputSize)
	if err != nil {
		r.Logger.Warn("input rejected", "session_id", r.SessionID, "err", err, "size", len(req.Text))
		return r.Handler.SystemOutput(ctx, fmt.Sprintf("Input rejected: %v", err))
	}
	req.Text = clean
	r.applyDefaults(&req)

	result, err := r.engine.Turn(ctx, req)
	switch {
	case err == nil:
		return r.Handler.Output(ctx, result)
	case errors.Is(err, domain.ErrEmptyInput):
		return nil
	case signals.Interrupted():
		signals.Reset()
		return r.Handler.SystemOutput(signals.Context(), "Turn interrupted.")
	case signals.parent.Err() != nil:
		return signals.parent.Err()
	default:
		r.Logger.Error("turn failed", "session_id", r.SessionID, "err", err)
		return r.Handler.SystemOutput(ctx, fmt.Sprintf("Turn failed: %v", err))
	}
}

func (r *Runner) applyDefaults(req *domain.TurnRequest) {
	req.SessionID = r.SessionID
	if !req.DocOnly {
		req.DocOnly = r.DocOnly
	}
	if req.DocContext == "" {
		req.DocContext = r.DocContext
	}
	if req.AddContext == "" {
		req.AddContext = r.AddContext
	}
}
