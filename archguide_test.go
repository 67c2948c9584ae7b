package archguide_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/aretw0/archguide"
	"github.com/aretw0/archguide/internal/stages"
	"github.com/aretw0/archguide/internal/testutils"
	"github.com/aretw0/archguide/pkg/adapters/file"
	"github.com/aretw0/archguide/pkg/domain"
	"github.com/aretw0/archguide/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.TurnEngine = (*archguide.Engine)(nil)

const asrReply = "ASR complete: When orders spike, checkout keeps p95 latency under 200ms."

const tacticsReply = "1. Cache-Aside\n2. Circuit Breaker\n3. Autoscaling\n\n```json\n" + `[
  {"name": "Cache-Aside", "rationale": "cuts reads", "categories": ["performance"], "success_probability": 0.8, "rank": 1},
  {"name": "Circuit Breaker", "rationale": "isolates faults", "categories": ["availability"], "success_probability": 0.7, "rank": 2},
  {"name": "Autoscaling", "rationale": "absorbs bursts", "categories": ["scalability"], "success_probability": 0.6, "rank": 3}
]` + "\n```"

type observed struct {
	prev, next domain.TurnState
	result     domain.TurnResult
}

type observer struct {
	mu    sync.Mutex
	calls []observed
}

func (o *observer) ObserveTurn(_ context.Context, prev, next domain.TurnState, result domain.TurnResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, observed{prev, next, result})
}

func TestEngine_TurnsShareSessionMemory(t *testing.T) {
	oracle := testutils.NewScriptedOracle().
		OnText(stages.ASRTask, testutils.Reply{Text: asrReply}).
		OnText(stages.TacticsTask, testutils.Reply{Text: tacticsReply})
	store := file.New(t.TempDir())
	obs := &observer{}

	eng, err := archguide.New(oracle, archguide.WithStore(store), archguide.WithObserver(obs))
	require.NoError(t, err)
	ctx := context.Background()

	first, err := eng.Turn(ctx, domain.TurnRequest{Text: "checkout latency", ForcedIntent: domain.IntentASR})
	require.NoError(t, err)
	require.NotEmpty(t, first.SessionID, "a session id is assigned")
	assert.True(t, strings.HasPrefix(first.Message, "ASR complete"))

	second, err := eng.Turn(ctx, domain.TurnRequest{
		SessionID:    first.SessionID,
		Text:         "which tactics fit?",
		ForcedIntent: domain.IntentTactics,
	})
	require.NoError(t, err)
	require.Len(t, second.Tactics, 3)
	assert.Equal(t, []string{"Cache-Aside", "Circuit Breaker", "Autoscaling"}, domain.TacticNames(second.Tactics))

	saved, err := store.Load(ctx, first.SessionID)
	require.NoError(t, err)
	assert.Contains(t, saved.Memory.LastArtifact, "p95 latency under 200ms")
	assert.Len(t, saved.Memory.Tactics, 3)

	require.Len(t, obs.calls, 2)
	assert.Empty(t, obs.calls[0].prev.Memory.LastArtifact, "the first turn starts from empty memory")
	assert.Equal(t, saved.Memory.LastArtifact, obs.calls[1].prev.Memory.LastArtifact)
	assert.Equal(t, second, obs.calls[1].result)
}

func TestEngine_EmptyInputSavesNothing(t *testing.T) {
	eng, err := archguide.New(testutils.NewScriptedOracle())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = eng.Turn(ctx, domain.TurnRequest{SessionID: "s1", Text: " \n "})
	assert.ErrorIs(t, err, domain.ErrEmptyInput)

	_, err = eng.Sessions().Load(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestEngine_OracleDownStillReplies(t *testing.T) {
	eng, err := archguide.New(testutils.FailingOracle{})
	require.NoError(t, err)

	res, err := eng.Turn(context.Background(), domain.TurnRequest{Text: "what is ADD?"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Message)
	assert.NotEmpty(t, res.Visited)
}
