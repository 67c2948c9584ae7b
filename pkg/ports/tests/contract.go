package tests

import (
	"context"
	"testing"

	"github.com/aretw0/archguide/pkg/ports"
)

// RetrieverContractTest is a reusable test suite that verifies if an adapter complies with ports.Retriever.
// hitQuery must match at least one passage; missQuery must match none.
func RetrieverContractTest(t *testing.T, r ports.Retriever, hitQuery, missQuery string) {
	t.Helper()
	ctx := context.Background()

	t.Run("Retrieve_Hit", func(t *testing.T) {
		passages, err := r.Retrieve(ctx, hitQuery, 6)
		if err != nil {
			t.Fatalf("unexpected error retrieving %q: %v", hitQuery, err)
		}
		if len(passages) == 0 {
			t.Fatalf("expected passages for %q, got none", hitQuery)
		}
		for _, p := range passages {
			if p.Text == "" {
				t.Errorf("passage with empty text: %+v", p)
			}
		}
	})

	t.Run("Retrieve_Miss", func(t *testing.T) {
		passages, err := r.Retrieve(ctx, missQuery, 6)
		if err != nil {
			t.Fatalf("a miss must not be an error: %v", err)
		}
		if len(passages) != 0 {
			t.Errorf("expected no passages for %q, got %d", missQuery, len(passages))
		}
	})

	t.Run("Retrieve_Limit", func(t *testing.T) {
		passages, err := r.Retrieve(ctx, hitQuery, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(passages) > 1 {
			t.Errorf("limit 1 exceeded: got %d passages", len(passages))
		}
	})
}
