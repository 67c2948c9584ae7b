package tui

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "0.1.0\n")

	out := buf.String()
	assert.Contains(t, out, "v0.1.0")
	assert.NotContains(t, out, "\x1b[", "a buffer gets no color")
}

func TestNewRenderer_Plain(t *testing.T) {
	render, err := NewRenderer(60, false)
	require.NoError(t, err)

	out, err := render("## Tactics\n\n1. **Cache-Aside**\n2. Circuit Breaker\n")
	require.NoError(t, err)
	assert.Contains(t, out, "Tactics")
	assert.Contains(t, out, "Cache-Aside")
}

func TestTerminalWidth_NotATerminal(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, DefaultWidth, TerminalWidth(int(f.Fd())))
}
