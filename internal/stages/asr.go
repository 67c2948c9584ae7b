package stages

import (
	"context"
	"fmt"

	"github.com/aretw0/archguide/pkg/domain"
)

// ASRTask names the ASR drafting request.
const ASRTask = "asr"

// ASR drafts one quality attribute scenario and records it as the session's
// current driver.
func (e *Executors) ASR(ctx context.Context, state domain.TurnState) (domain.TurnState, error) {
	uq := state.UserQuestion
	qa := GuessQualityAttribute(uq)

	var docs []domain.Passage
	if state.ForceRAG && !state.DocOnly {
		docs = e.gather(ctx, []string{
			qa + " quality attribute scenario measure stimulus environment artifact response response measure",
		}, maxSources)
	}

	system := fmt.Sprintf(asrPrompt,
		directive(state.Language),
		guessWorkload(uq),
		qa,
		orNone(projectContext(state, 2000), "None"),
		orNone(snippets(docs, maxSources, 800), "None"),
	)
	reply, next, err := e.generate(ctx, domain.StageASR, ASRTask, state, system, orNone(state.LocalQuestion, uq))
	if err != nil {
		return next, err
	}

	content := StripTacticsSections(PlainText(reply))
	sources := SourcesBlock(docs)
	next = next.
		WithTrace(domain.RoleAssistant, "asr_recommender", content).
		WithTrace(domain.RoleAssistant, "asr_sources", sources).
		WithResult(domain.StageASR, domain.StageResult{Text: content, Sources: docs})

	next.Memory = next.Memory.Append("LAST_ASR", content)
	next.Memory.LastArtifact = content
	next.Memory.QualityAttribute = qa
	next.Memory.Phase = PhaseASR
	next.Intent = domain.IntentASR
	next.ForceRAG = false
	return next, nil
}

const asrPrompt = `%s
You are an expert software architect following Attribute-Driven Design 3.0 (ADD 3.0).

Your job is to create ONE concrete Quality Attribute Scenario (Architecture Significant Requirement, ASR)
that will be used as an architectural driver.

The scenario MUST:
- Follow the classic QAS structure: Source, Stimulus, Environment, Artifact, Response, Response Measure.
- Be measurable, with a clear Response Measure (p95 < X ms under Y load, error rate, availability).
- Be realistic for production systems in the given domain.

Relevant domain or workload (stay coherent with this):
%s

Quality attribute focus inferred from the user message:
%s

PROJECT CONTEXT (if any):
%s

OPTIONAL BOOK CONTEXT:
%s

OUTPUT FORMAT (no bullets, no Markdown headings, no extra commentary):

ASR complete: <one sentence stating Source, Stimulus, Environment, Artifact, Response and Response Measure>

Scenario:
Source: <who initiates the stimulus>
Stimulus: <event that triggers the behavior>
Environment: <operating conditions>
Artifact: <part of the system stimulated>
Response: <what the system must do>
Response Measure: <how success is measured with numeric thresholds>

Do NOT talk about tactics, styles or next steps here.`
