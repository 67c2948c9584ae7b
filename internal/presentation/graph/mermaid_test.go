package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/archguide/internal/diagram"
	"github.com/aretw0/archguide/internal/presentation/graph"
	"github.com/aretw0/archguide/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name        string
		overlay     *graph.Overlay
		contains    []string
		notContains []string
	}{
		{
			name:    "Topology",
			overlay: nil,
			contains: []string{
				"user((\"user\"))",
				"supervisor{{\"supervisor\"}}",
				"tactics[\"tactics\"]",
				"aggregate[[\"aggregate\"]]",
				"supervisor --> investigator",
				"aggregate --> user",
			},
			notContains: []string{"classDef", "-.->"},
		},
		{
			name: "Visited Overlay",
			overlay: &graph.Overlay{
				Visited: []domain.Stage{domain.StageInvestigator, domain.StageASR, domain.StageInvestigator},
				Intent:  domain.IntentASR,
			},
			contains: []string{
				"supervisor{{\"supervisor: asr\"}}",
				"supervisor -->|1| investigator",
				"supervisor -->|2| asr",
				"asr --> supervisor",
				"supervisor -.-> tactics",
				"class investigator visited;",
				"class asr visited;",
			},
			notContains: []string{"class tactics visited;"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := graph.GenerateMermaid(tt.overlay)
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.notContains {
				assert.NotContains(t, out, s)
			}
			if tt.overlay != nil {
				assert.Equal(t, 1, strings.Count(out, "class investigator visited;"), "revisits are styled once")
			}
			assert.NoError(t, diagram.Validate(diagram.Parse(out)), "the flow chart passes the diagram contract")
		})
	}
}
