package ports

import (
	"context"

	"github.com/aretw0/archguide/pkg/domain"
)

// TurnEngine is the driving port used by transports (HTTP, MCP, CLI).
type TurnEngine interface {
	// Turn runs one full request/response cycle for a session.
	Turn(ctx context.Context, req domain.TurnRequest) (domain.TurnResult, error)
}

// Stepper runs a single turn over an already loaded state. It has no
// persistence concerns; the session manager wraps it.
type Stepper interface {
	Step(ctx context.Context, prev domain.TurnState, req domain.TurnRequest) (domain.TurnState, error)
}

// TurnObserver is notified after a turn was saved, with the state before
// and after it. Observers must not block; transports use it to push updates.
type TurnObserver interface {
	ObserveTurn(ctx context.Context, prev, next domain.TurnState, result domain.TurnResult)
}
