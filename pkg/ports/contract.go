package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/archguide/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore implementation
// adheres to the defined interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		state := domain.NewTurnState(sessionID)
		state.Language = domain.LangSpanish
		state.Memory.LastArtifact = "Scenario: checkout under peak load"
		state.Memory = state.Memory.Append("STYLE_CHOSEN", "Microservices")
		state.Memory.Tactics = []domain.TacticItem{
			{Name: "Cache-aside", Categories: []string{"performance"}, SuccessProbability: 0.8, Rank: 1},
		}

		err := store.Save(ctx, sessionID, state)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, sessionID, loaded.SessionID)
		assert.Equal(t, domain.LangSpanish, loaded.Language)
		assert.Equal(t, state.Memory.LastArtifact, loaded.Memory.LastArtifact)
		assert.Contains(t, loaded.Memory.MemoryText, "[STYLE_CHOSEN]")
		require.Len(t, loaded.Memory.Tactics, 1)
		assert.Equal(t, "Cache-aside", loaded.Memory.Tactics[0].Name)
		assert.InDelta(t, 0.8, loaded.Memory.Tactics[0].SuccessProbability, 1e-9)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, sessionID, domain.NewTurnState(sessionID))
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, domain.NewTurnState(id1))
		_ = store.Save(ctx, id2, domain.NewTurnState(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
