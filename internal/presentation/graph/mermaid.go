// Package graph renders the stage flow of a turn as a Mermaid flowchart.
package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/archguide/pkg/domain"
)

// Overlay contains the turn data to visualize on the graph.
type Overlay struct {
	// Visited holds the stages executed, in order.
	Visited []domain.Stage
	Intent  domain.Intent
}

// GenerateMermaid produces a Mermaid flowchart of the supervisor and its
// stages. It applies semantic styling:
// - User: ((Circle))
// - Supervisor: {{Hexagon}}
// - Aggregator: [[Subroutine]]
// - Worker stages: [Rectangle]
// With an overlay, dispatches are numbered in visit order and the stages
// that did not run are drawn dotted.
// The output follows the same declaration-first layout the diagram
// sanitizer produces, so it validates against it.
func GenerateMermaid(overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	sb.WriteString("    user((\"user\"))\n")
	title := "supervisor"
	if overlay != nil && overlay.Intent != "" {
		title = fmt.Sprintf("supervisor: %s", overlay.Intent)
	}
	sb.WriteString(fmt.Sprintf("    supervisor{{\"%s\"}}\n", title))
	for _, s := range domain.WorkerStages {
		sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", s, s))
	}
	sb.WriteString(fmt.Sprintf("    %s[[\"%s\"]]\n", domain.StageAggregate, domain.StageAggregate))

	order := make(map[domain.Stage]int)
	if overlay != nil {
		for i, s := range overlay.Visited {
			if _, ok := order[s]; !ok {
				order[s] = i + 1
			}
		}
	}

	sb.WriteString("    user --> supervisor\n")
	for _, s := range domain.WorkerStages {
		n, ok := order[s]
		switch {
		case overlay == nil:
			sb.WriteString(fmt.Sprintf("    supervisor --> %s\n", s))
		case ok:
			sb.WriteString(fmt.Sprintf("    supervisor -->|%d| %s\n", n, s))
			sb.WriteString(fmt.Sprintf("    %s --> supervisor\n", s))
		default:
			sb.WriteString(fmt.Sprintf("    supervisor -.-> %s\n", s))
		}
	}
	sb.WriteString(fmt.Sprintf("    supervisor --> %s\n", domain.StageAggregate))
	sb.WriteString(fmt.Sprintf("    %s --> user\n", domain.StageAggregate))

	if overlay != nil && len(order) > 0 {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		for _, s := range overlay.Visited {
			if order[s] > 0 {
				sb.WriteString(fmt.Sprintf("    class %s visited;\n", s))
				order[s] = 0
			}
		}
	}

	return sb.String()
}
