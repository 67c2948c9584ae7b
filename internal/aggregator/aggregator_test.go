package aggregator_test

import (
	"context"
	"testing"

	"github.com/aretw0/archguide/internal/aggregator"
	"github.com/aretw0/archguide/internal/testutils"
	"github.com/aretw0/archguide/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func turn(text string, intent domain.Intent) domain.TurnState {
	st := domain.Boot(domain.NewTurnState("s1"), text)
	st.Intent = intent
	return st
}

func TestAggregate_Diagram(t *testing.T) {
	st := turn("draw it", domain.IntentArchitecture).
		WithResult(domain.StageDiagram, domain.StageResult{Diagram: "graph LR\nA --> B"}).
		MarkVisited(domain.StageDiagram)

	out := aggregator.New(nil).Aggregate(context.Background(), st)
	assert.Contains(t, out.EndMessage, "Here is the diagram")
	assert.NotContains(t, out.EndMessage, "graph LR")
	assert.Len(t, out.Suggestions, 3)
	assert.Equal(t, domain.IntentDiagram, out.Intent)

	code, ok := aggregator.Diagram(out)
	require.True(t, ok)
	assert.Equal(t, "graph LR\nA --> B", code)
}

func TestAggregate_DegradedDiagramIsIgnored(t *testing.T) {
	st := turn("draw it", domain.IntentDiagram).
		WithResult(domain.StageDiagram, domain.StageResult{Text: "could not draw", Diagram: "graph LR", Degraded: true})

	_, ok := aggregator.Diagram(st)
	assert.False(t, ok)

	out := aggregator.New(nil).Aggregate(context.Background(), st)
	assert.Equal(t, "could not draw", out.EndMessage)
}

func TestAggregate_StyleKeepsStageSuggestions(t *testing.T) {
	st := turn("style?", domain.IntentStyle).
		WithResult(domain.StageStyle, domain.StageResult{Text: "Pick Layered."})
	st.Suggestions = []string{"Explain tactics with Layered."}

	out := aggregator.New(nil).Aggregate(context.Background(), st)
	assert.Equal(t, "Pick Layered.", out.EndMessage)
	assert.Equal(t, []string{"Explain tactics with Layered."}, out.Suggestions)
}

func TestAggregate_TacticsWithReferences(t *testing.T) {
	st := turn("tactics", domain.IntentTactics).
		WithResult(domain.StageTactics, domain.StageResult{
			Text:    "1. Cache-Aside",
			Sources: []domain.Passage{{SourceTitle: "SAP", SourcePath: "sap.pdf", Page: testutils.IntPtr(9)}},
		})

	out := aggregator.New(nil).Aggregate(context.Background(), st)
	assert.Equal(t, "1. Cache-Aside\n\nReferences:\nSAP (p.9) — sap.pdf", out.EndMessage)
	assert.Len(t, out.Suggestions, 2)
}

func TestAggregate_ASRStripsTactics(t *testing.T) {
	st := turn("asr", domain.IntentASR).
		WithResult(domain.StageASR, domain.StageResult{Text: "ASR complete: fast.\n\nDesign tactics:\n- cache"})
	st.Language = domain.LangSpanish

	out := aggregator.New(nil).Aggregate(context.Background(), st)
	assert.Equal(t, "ASR complete: fast.\n\nReferencias:\nNone", out.EndMessage)
	assert.Contains(t, out.Suggestions[0], "Propón estilos")
}

func TestAggregate_Greeting(t *testing.T) {
	out := aggregator.New(nil).Aggregate(context.Background(), turn("hola", domain.IntentGreeting))
	assert.Contains(t, out.EndMessage, "Hi!")
	assert.Len(t, out.Suggestions, 2)
}

func TestAggregate_Synthesis(t *testing.T) {
	reply := "## Answer\nAnswer: ADD drives design from quality attributes.\n```mermaid\ngraph LR\n```\n**Key** point\nReferences:\nSAP (p.9)\nNext:\n- Define an ASR\n- Pick a style\n"
	oracle := testutils.NewScriptedOracle().OnText(aggregator.Task, testutils.Reply{Text: reply})

	st := turn("what is ADD?", domain.IntentArchitecture).
		WithResult(domain.StageInvestigator, domain.StageResult{
			Text:    "Definition: ADD",
			Sources: []domain.Passage{{SourceTitle: "SAP", SourcePath: "sap.pdf", Page: testutils.IntPtr(9)}},
		}).
		MarkVisited(domain.StageInvestigator)

	out := aggregator.New(oracle).Aggregate(context.Background(), st)
	assert.NotContains(t, out.EndMessage, "##")
	assert.NotContains(t, out.EndMessage, "**")
	assert.NotContains(t, out.EndMessage, "graph LR")
	assert.Contains(t, out.EndMessage, "Key point")
	assert.Equal(t, []string{"Define an ASR", "Pick a style"}, out.Suggestions)

	require.Len(t, oracle.Prompts, 1)
	assert.Contains(t, oracle.Prompts[0][0].Content, "SAP (p.9) — sap.pdf")
	assert.Contains(t, oracle.Prompts[0][1].Content, "researcher:\nDefinition: ADD")
}

func TestAggregate_SynthesisFailureConcatenates(t *testing.T) {
	st := turn("what is ADD?", domain.IntentArchitecture).
		WithResult(domain.StageInvestigator, domain.StageResult{Text: "Definition: ADD"}).
		WithResult(domain.StageEvaluator, domain.StageResult{Text: "Verdict: Good"})

	out := aggregator.New(testutils.FailingOracle{}).Aggregate(context.Background(), st)
	assert.Equal(t, "Definition: ADD\n\nVerdict: Good", out.EndMessage)
	assert.Empty(t, out.Suggestions)
}

func TestAggregate_NeverEmpty(t *testing.T) {
	out := aggregator.New(testutils.FailingOracle{}).Aggregate(context.Background(), turn("?", domain.IntentGeneral))
	assert.Equal(t, aggregator.Fallback(domain.LangEnglish), out.EndMessage)
}

func TestNextSuggestions(t *testing.T) {
	text := "Answer: x\nNext: Define an ASR\n• Review it\n\n- Draw it\nReferences:\nbook"
	assert.Equal(t, []string{"Define an ASR", "Review it", "Draw it"}, aggregator.NextSuggestions(text))
	assert.Empty(t, aggregator.NextSuggestions("no sections here"))
}
