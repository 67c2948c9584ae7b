package ports

import (
	"context"

	"github.com/aretw0/archguide/pkg/domain"
)

// Oracle is the generation model.
// Implementations own timeouts and retries; the core only sees the final error.
type Oracle interface {
	// Generate returns free text for a multi-part prompt.
	Generate(ctx context.Context, msgs []domain.Message) (string, error)

	// GenerateStructured asks for a reply conforming to a JSON schema and
	// returns the decoded object.
	GenerateStructured(ctx context.Context, msgs []domain.Message, schema map[string]any) (map[string]any, error)
}

// Retriever looks up grounding passages for a query.
// An empty result is valid. Callers treat errors as "no grounding available".
type Retriever interface {
	Retrieve(ctx context.Context, query string, limit int) ([]domain.Passage, error)
}
