package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/aretw0/archguide/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONHandler_Output(t *testing.T) {
	buf := &bytes.Buffer{}
	handler := NewJSONHandler(strings.NewReader(""), buf)

	result := domain.TurnResult{
		SessionID:   "s1",
		Message:     "Hello",
		Suggestions: []string{"a", "b"},
		Language:    domain.LangEnglish,
		Intent:      domain.IntentGreeting,
		Visited:     []domain.Stage{domain.StageInvestigator},
	}
	require.NoError(t, handler.Output(context.Background(), result))
	require.NoError(t, handler.SystemOutput(context.Background(), "bye"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var decoded domain.TurnResult
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &decoded))
	assert.Equal(t, result, decoded)
	assert.JSONEq(t, `{"system":"bye"}`, lines[1])
}

func TestJSONHandler_Input(t *testing.T) {
	input := strings.Join([]string{
		`{"session_id":"x","text":"draft it","forced_intent":"asr","doc_only":true}`,
		`"quoted text"`,
		``,
		`plain text`,
		`{not json`,
	}, "\n")
	handler := NewJSONHandler(strings.NewReader(input), &bytes.Buffer{})
	ctx := context.Background()

	want := []domain.TurnRequest{
		{SessionID: "x", Text: "draft it", ForcedIntent: domain.IntentASR, DocOnly: true},
		{Text: "quoted text"},
		{Text: "plain text"},
		{Text: "{not json"},
	}
	for _, w := range want {
		got, err := handler.Input(ctx)
		require.NoError(t, err)
		assert.Equal(t, w, got)
	}

	_, err := handler.Input(ctx)
	assert.ErrorIs(t, err, io.EOF)
}
