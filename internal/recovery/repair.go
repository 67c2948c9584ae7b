package recovery

import (
	"context"
	"fmt"

	"github.com/aretw0/archguide/internal/prompt"
	"github.com/aretw0/archguide/pkg/ports"
)

// RepairTask is the task name of the repair request.
const RepairTask = "tactics.repair"

// previewLimit bounds how much of the original text is sent back.
const previewLimit = 1500

// Repair asks the oracle to re-emit only a JSON array of exactly K objects
// and parses the reply with the direct parser.
type Repair struct {
	oracle ports.Oracle
	k      int
}

// NewRepair creates the repair strategy.
func NewRepair(oracle ports.Oracle, k int) Repair {
	return Repair{oracle: oracle, k: k}
}

func (Repair) Name() string { return "repair" }

func (r Repair) Extract(ctx context.Context, in Input) ([]map[string]any, error) {
	style := in.Style
	if style == "" {
		style = "(none)"
	}
	system := fmt.Sprintf(
		"The following text should contain a JSON array of EXACTLY %d architecture tactics "+
			"but the JSON could not be parsed.\n\n"+
			"Re-emit ONLY a valid JSON array (no prose, no code fence) with exactly %d objects. "+
			"Each object must have at minimum: name, rationale, categories (array), "+
			"success_probability (float 0-1), rank (int 1-%d).", r.k, r.k, r.k)
	user := fmt.Sprintf("--- ORIGINAL TEXT ---\n%s\n---\n\nASR: %s\nQuality attribute: %s\nStyle: %s",
		prompt.Clip(in.Raw, previewLimit), in.Artifact, in.QualityAttribute, style)

	reply, err := r.oracle.Generate(ctx, prompt.Task(RepairTask, system, user))
	if err != nil {
		return nil, fmt.Errorf("repair regeneration: %w", err)
	}
	return ParseArray(reply)
}
