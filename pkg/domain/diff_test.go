package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestDiffMemory(t *testing.T) {
	base := SessionMemory{}.Append("ASR", "p95 under 200ms")
	base.LastArtifact = "p95 under 200ms"
	base.QualityAttribute = "performance"
	base.Phase = "ASR"

	withStyle := base.Append("STYLE", "Microservices")
	withStyle.LastStyle = "Microservices"
	withStyle.Phase = "STYLE"

	tactics := []TacticItem{{Name: "Cache-Aside", Rationale: "cut reads", SuccessProbability: 0.8, Rank: 1}}
	withTactics := base.Clone()
	withTactics.Tactics = tactics

	tests := []struct {
		name string
		old  SessionMemory
		new  SessionMemory
		want *MemoryDiff
	}{
		{
			name: "initial",
			old:  SessionMemory{},
			new:  base,
			want: &MemoryDiff{
				SessionID:        "s1",
				LastArtifact:     strPtr("p95 under 200ms"),
				QualityAttribute: strPtr("performance"),
				Phase:            strPtr("ASR"),
				Appended:         "[ASR]\np95 under 200ms",
			},
		},
		{
			name: "no changes",
			old:  base,
			new:  base.Clone(),
			want: nil,
		},
		{
			name: "style appended",
			old:  base,
			new:  withStyle,
			want: &MemoryDiff{
				SessionID: "s1",
				LastStyle: strPtr("Microservices"),
				Phase:     strPtr("STYLE"),
				Appended:  "[STYLE]\nMicroservices",
			},
		},
		{
			name: "tactics replaced",
			old:  base,
			new:  withTactics,
			want: &MemoryDiff{SessionID: "s1", Tactics: tactics},
		},
		{
			name: "log rewritten",
			old:  base,
			new:  SessionMemory{MemoryText: "[ASR]\nsomething else", LastArtifact: base.LastArtifact, QualityAttribute: "performance", Phase: "ASR"},
			want: &MemoryDiff{SessionID: "s1", Appended: "[ASR]\nsomething else"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DiffMemory("s1", tt.old, tt.new))
		})
	}
}

func TestMemoryDiffJSONSerialization(t *testing.T) {
	diff := DiffMemory("s1", SessionMemory{}, SessionMemory{Phase: "TACTICS"})
	require.NotNil(t, diff)

	data, err := json.Marshal(diff)
	require.NoError(t, err)
	assert.JSONEq(t, `{"session_id":"s1","phase":"TACTICS"}`, string(data))
}
