package ports

import (
	"context"

	"github.com/aretw0/archguide/pkg/domain"
)

// SessionStore persists the turn record (and the SessionMemory it carries)
// between turns. It is read once at turn start and written once at turn end.
type SessionStore interface {
	// Save persists the state for a given session ID.
	Save(ctx context.Context, sessionID string, state domain.TurnState) error

	// Load retrieves the state for a given session ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (domain.TurnState, error)

	// Delete removes the state for a given session ID.
	Delete(ctx context.Context, sessionID string) error

	// List returns all active session IDs.
	List(ctx context.Context) ([]string, error)
}
