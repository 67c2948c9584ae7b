package runner

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/aretw0/archguide/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextHandler_Output(t *testing.T) {
	out := &bytes.Buffer{}
	handler := NewTextHandler(strings.NewReader(""), out, WithTextHandlerRenderer(func(s string) (string, error) {
		return "Rendered: " + s, nil
	}))

	err := handler.Output(context.Background(), domain.TurnResult{
		Message:     "Here is the component view.",
		Diagram:     "graph LR\napi --> cache",
		Suggestions: []string{"Refine the ASR"},
	})
	require.NoError(t, err)

	got := out.String()
	assert.True(t, strings.HasPrefix(got, "Rendered: Here is the component view."))
	assert.Contains(t, got, "```mermaid\ngraph LR\napi --> cache\n```")
	assert.Contains(t, got, "1. Refine the ASR")
}

func TestTextHandler_Input(t *testing.T) {
	tests := []struct {
		name  string
		lines string
		want  domain.TurnRequest
	}{
		{"plain", "my user input\n", domain.TurnRequest{Text: "my user input"}},
		{"blank lines skipped", "\n   \nhello\n", domain.TurnRequest{Text: "hello"}},
		{"forced asr", "/asr latency under load\n", domain.TurnRequest{Text: "latency under load", ForcedIntent: domain.IntentASR}},
		{"forced without text", "/diagram\n", domain.TurnRequest{Text: "diagram", ForcedIntent: domain.IntentDiagram}},
		{"unknown command", "/help\n", domain.TurnRequest{Text: "/help"}},
		{"number without suggestions", "3\n", domain.TurnRequest{Text: "3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &bytes.Buffer{}
			handler := NewTextHandler(strings.NewReader(tt.lines), out)

			got, err := handler.Input(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, strings.HasPrefix(out.String(), "> "))
		})
	}
}

func TestTextHandler_Input_Quit(t *testing.T) {
	for _, line := range []string{"/quit\n", "/EXIT\n", ""} {
		handler := NewTextHandler(strings.NewReader(line), &bytes.Buffer{})
		_, err := handler.Input(context.Background())
		assert.ErrorIs(t, err, io.EOF, "line %q", line)
	}
}

func TestTextHandler_Input_Cancelled(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	handler := NewTextHandler(pr, &bytes.Buffer{})
	_, err := handler.Input(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTextHandler_SystemOutput(t *testing.T) {
	out := &bytes.Buffer{}
	handler := NewTextHandler(strings.NewReader(""), out)
	require.NoError(t, handler.SystemOutput(context.Background(), "Turn interrupted."))
	assert.Equal(t, "\n[System] Turn interrupted.\n", out.String())
}
