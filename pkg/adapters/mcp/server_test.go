package mcp

import (
	"context"
	"testing"

	"github.com/aretw0/archguide/internal/recovery"
	"github.com/aretw0/archguide/internal/testutils"
	"github.com/aretw0/archguide/pkg/adapters/memory"
	"github.com/aretw0/archguide/pkg/domain"
	"github.com/aretw0/archguide/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tacticsText = "1. Cache-Aside\n2. Circuit Breaker\n3. Autoscaling\n\n```json\n" + `[
  {"name": "Cache-Aside", "rationale": "cuts reads", "categories": ["performance"], "success_probability": 0.8, "rank": 1},
  {"name": "Circuit Breaker", "rationale": "isolates faults", "categories": ["availability"], "success_probability": 0.7, "rank": 2},
  {"name": "Autoscaling", "rationale": "absorbs bursts", "categories": ["scalability"], "success_probability": 0.6, "rank": 3}
]` + "\n```"

type fakeEngine struct {
	last domain.TurnRequest
}

func (f *fakeEngine) Turn(ctx context.Context, req domain.TurnRequest) (domain.TurnResult, error) {
	f.last = req
	return domain.TurnResult{SessionID: req.SessionID, Message: "ok: " + req.Text}, nil
}

func buildRequest(toolName string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      toolName,
			Arguments: args,
		},
	}
}

func newServer(eng *fakeEngine, opts ...Option) *Server {
	return NewServer(eng, session.NewManager(memory.NewStore()), "0.1.0\n", opts...)
}

func TestHandleTurn(t *testing.T) {
	eng := &fakeEngine{}
	s := newServer(eng)
	args := map[string]any{
		"session_id":    "s1",
		"text":          "draft\x07 an ASR",
		"forced_intent": "asr",
		"doc_only":      true,
		"doc_context":   "3k rps",
	}

	res, err := s.handleTurn(context.Background(), buildRequest("chat_turn", args), args)
	require.NoError(t, err)
	assert.Equal(t, "ok: draft an ASR", res.Message)
	assert.Equal(t, domain.TurnRequest{
		SessionID:    "s1",
		Text:         "draft an ASR",
		ForcedIntent: domain.IntentASR,
		DocOnly:      true,
		DocContext:   "3k rps",
	}, eng.last)
}

func TestHandleTurn_Rejects(t *testing.T) {
	s := newServer(&fakeEngine{}, WithMaxInputSize(4))
	tests := []map[string]any{
		{"text": "far too long"},
		{"text": "hi", "forced_intent": "poem"},
	}
	for _, args := range tests {
		_, err := s.handleTurn(context.Background(), buildRequest("chat_turn", args), args)
		assert.Error(t, err, "%v", args)
	}
}

func TestHandleSanitize(t *testing.T) {
	s := newServer(&fakeEngine{})
	args := map[string]any{"diagram": "```mermaid\nA --> B\n```"}

	res, err := s.handleSanitize(context.Background(), buildRequest("sanitize_diagram", args), args)
	require.NoError(t, err)
	assert.Equal(t, "graph LR\nA --> B", res.Diagram)
	assert.True(t, res.Valid)
}

func TestHandleRecover(t *testing.T) {
	s := newServer(&fakeEngine{})

	args := map[string]any{"text": tacticsText}
	res, err := s.handleRecover(context.Background(), buildRequest("recover_tactics", args), args)
	require.NoError(t, err)
	assert.Equal(t, "direct", res.Strategy)
	assert.Equal(t, []string{"Cache-Aside", "Circuit Breaker", "Autoscaling"}, domain.TacticNames(res.Tactics))

	args = map[string]any{"text": tacticsText, "k": float64(5)}
	_, err = s.handleRecover(context.Background(), buildRequest("recover_tactics", args), args)
	assert.ErrorIs(t, err, domain.ErrParseFailure, "three items never satisfy k=5")
}

func TestHandleRecover_RepairUsesOracle(t *testing.T) {
	oracle := testutils.NewScriptedOracle().OnText(recovery.RepairTask, testutils.Reply{Text: `[{"name": "Retry", "rationale": "transient faults", "categories": ["availability"], "successProbability": 0.7, "rank": 1}]`})
	s := newServer(&fakeEngine{}, WithOracle(oracle), WithTacticsCount(1))

	args := map[string]any{"text": "You should retry failed calls."}
	res, err := s.handleRecover(context.Background(), buildRequest("recover_tactics", args), args)
	require.NoError(t, err)
	assert.Equal(t, "repair", res.Strategy)
	require.Len(t, res.Tactics, 1)
	assert.Equal(t, "Retry", res.Tactics[0].Name)
}

func TestHandleValidate(t *testing.T) {
	s := newServer(&fakeEngine{})
	valid := `[{"name": "Retry", "rationale": "r", "categories": [], "successProbability": 0.5, "rank": 1}]`

	tests := []struct {
		name  string
		args  map[string]any
		valid bool
	}{
		{"valid k=1", map[string]any{"json": valid, "k": float64(1)}, true},
		{"wrong cardinality", map[string]any{"json": valid}, false},
		{"not json", map[string]any{"json": "[{"}, false},
		{"probability out of range", map[string]any{"json": `[{"name": "Retry", "rationale": "r", "categories": [], "successProbability": 1.5, "rank": 1}]`, "k": float64(1)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.handleValidate(context.Background(), buildRequest("validate_tactics", tt.args), tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.valid, res.Valid)
			if !tt.valid {
				assert.NotEmpty(t, res.Error)
			}
		})
	}
}

func TestJSONResource(t *testing.T) {
	contents, err := jsonResource("archguide://sessions", []string{"s1"})
	require.NoError(t, err)
	require.Len(t, contents, 1)
	text, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, `["s1"]`, text.Text)
	assert.Equal(t, "application/json", text.MIMEType)
}
