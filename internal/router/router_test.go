package router_test

import (
	"context"
	"testing"

	"github.com/aretw0/archguide/internal/router"
	"github.com/aretw0/archguide/internal/testutils"
	"github.com/aretw0/archguide/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dispatchTo(next, lq string) *testutils.ScriptedOracle {
	return testutils.NewScriptedOracle().OnStructured(router.SchemaTitle, testutils.Reply{
		Object: map[string]any{"nextNode": next, "localQuestion": lq},
	})
}

func turn(text string) domain.TurnState {
	st := domain.Boot(domain.NewTurnState("s1"), text)
	st.Intent = domain.IntentArchitecture
	return st
}

func TestDecide_LoopGuard(t *testing.T) {
	s := router.New(dispatchTo("unifier", "wrap up"))

	d := s.Decide(context.Background(), turn("hello there"))
	assert.Equal(t, domain.StageAggregate, d.Candidate)
	assert.Equal(t, domain.StageInvestigator, d.Stage)
	assert.Equal(t, router.ReasonLoopGuard, d.Reason)
}

func TestDecide_AggregateAfterWork(t *testing.T) {
	s := router.New(dispatchTo("unifier", "wrap up"))

	st := turn("hello there").MarkVisited(domain.StageInvestigator)
	d := s.Decide(context.Background(), st)
	assert.Equal(t, domain.StageAggregate, d.Stage)
	assert.Equal(t, router.ReasonDispatch, d.Reason)
}

func TestDecide_ForcedIntentSkipsDispatch(t *testing.T) {
	tests := []struct {
		forced domain.Intent
		want   domain.Stage
		lq     string
	}{
		{domain.IntentASR, domain.StageASR, "Create a concrete QAS (ASR) for: checkout latency"},
		{domain.IntentStyle, domain.StageStyle, "checkout latency"},
		{domain.IntentDiagram, domain.StageDiagram, "checkout latency"},
	}
	for _, tt := range tests {
		t.Run(string(tt.forced), func(t *testing.T) {
			oracle := dispatchTo("creator", "ignored")
			s := router.New(oracle)

			st := turn("checkout latency")
			st.ForcedIntent = tt.forced
			d := s.Decide(context.Background(), st)

			assert.Equal(t, tt.want, d.Stage)
			assert.Equal(t, tt.forced, d.Intent)
			assert.Equal(t, tt.lq, d.LocalQuestion)
			assert.Equal(t, router.ReasonForced, d.Reason)
			assert.Empty(t, oracle.StructuredCalls)
		})
	}
}

func TestDecide_ForcedTacticsQuestionFollowsLanguage(t *testing.T) {
	s := router.New(nil)

	st := turn("tácticas por favor")
	st.Language = domain.LangSpanish
	st.ForcedIntent = domain.IntentTactics
	d := s.Decide(context.Background(), st)

	assert.Equal(t, domain.StageTactics, d.Stage)
	assert.Contains(t, d.LocalQuestion, "Propón tácticas")
}

func TestDecide_ForcedDiagramAlreadyDone(t *testing.T) {
	s := router.New(nil)

	st := turn("draw it")
	st.ForcedIntent = domain.IntentDiagram
	st = st.MarkVisited(domain.StageDiagram)
	d := s.Decide(context.Background(), st)
	assert.Equal(t, domain.StageAggregate, d.Stage)
	assert.Equal(t, router.ReasonVisited, d.Reason)

	st = st.WithResult(domain.StageDiagram, domain.StageResult{Diagram: "graph LR\nA --> B"})
	d = s.Decide(context.Background(), st)
	assert.Equal(t, domain.StageAggregate, d.Stage)
	assert.Equal(t, router.ReasonDiagramReady, d.Reason)
}

func TestDecide_EvalTrigger(t *testing.T) {
	oracle := dispatchTo("creator", "ignored")
	s := router.New(oracle)

	d := s.Decide(context.Background(), turn("Please evaluate this ASR: p95 under 200ms"))
	assert.Equal(t, domain.StageEvaluator, d.Stage)
	assert.Equal(t, router.ReasonEval, d.Reason)
	assert.Empty(t, oracle.StructuredCalls)

	d = s.Decide(context.Background(), turn("revisa este asr").MarkVisited(domain.StageEvaluator))
	assert.Equal(t, domain.StageAggregate, d.Stage)
}

func TestDecide_DispatchFallback(t *testing.T) {
	tests := []struct {
		name   string
		oracle *testutils.ScriptedOracle
	}{
		{"oracle error", testutils.NewScriptedOracle()},
		{"unknown stage", dispatchTo("banana", "x")},
		{"missing stage", testutils.NewScriptedOracle().OnStructured(router.SchemaTitle,
			testutils.Reply{Object: map[string]any{"localQuestion": "x"}})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := router.New(tt.oracle)
			d := s.Decide(context.Background(), turn("hello there"))
			assert.Equal(t, domain.StageInvestigator, d.Stage)
			assert.Equal(t, "hello there", d.LocalQuestion)
			assert.Equal(t, router.ReasonDispatchFail, d.Reason)
		})
	}

	t.Run("failing oracle", func(t *testing.T) {
		s := router.New(testutils.FailingOracle{})
		d := s.Decide(context.Background(), turn("hello there"))
		assert.Equal(t, domain.StageInvestigator, d.Stage)
	})
}

func TestDecide_DispatchLegacyNames(t *testing.T) {
	s := router.New(dispatchTo("diagram_agent", "draw the flow"))

	d := s.Decide(context.Background(), turn("hello there"))
	assert.Equal(t, domain.StageDiagram, d.Stage)
	assert.Equal(t, "draw the flow", d.LocalQuestion)
}

func TestDecide_Overlay(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   domain.Stage
		intent domain.Intent
		lq     string
	}{
		{"style beats asr", "pick an architecture style for this ASR", domain.StageStyle, domain.IntentStyle,
			"pick an architecture style for this ASR"},
		{"asr term", "give me a quality attribute scenario", domain.StageASR, domain.IntentASR,
			"Create a concrete QAS (ASR) for: give me a quality attribute scenario"},
		{"asr beats diagram", "diagram for this asr", domain.StageASR, domain.IntentASR,
			"Create a concrete QAS (ASR) for: diagram for this asr"},
		{"diagram term", "draw a component diagram", domain.StageDiagram, domain.IntentDiagram,
			"draw a component diagram"},
		{"view follow-up", "show the functional view", domain.StageDiagram, domain.IntentDiagram,
			"show the functional view"},
		{"tactics term", "which tactics help here?", domain.StageTactics, domain.IntentTactics,
			"Propose architecture tactics to satisfy the previous ASR. Explain why each tactic helps and how it ties to the ASR response/measure."},
		{"first follow-up wins", "tactics for the component, explain them", domain.StageTactics, domain.IntentTactics,
			"Propose architecture tactics to satisfy the previous ASR. Explain why each tactic helps and how it ties to the ASR response/measure."},
		{"compare keeps dispatch question", "compare latency and availability", domain.StageInvestigator,
			domain.IntentArchitecture, "from dispatch"},
		{"no overlay", "hello there", domain.StageCreator, domain.IntentArchitecture, "from dispatch"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := router.New(dispatchTo("creator", "from dispatch"))
			d := s.Decide(context.Background(), turn(tt.text))
			assert.Equal(t, tt.want, d.Stage)
			assert.Equal(t, tt.intent, d.Intent)
			assert.Equal(t, tt.lq, d.LocalQuestion)
		})
	}
}

func TestDecide_StyleIntent(t *testing.T) {
	s := router.New(dispatchTo("investigator", "x"))

	st := turn("which one fits best?")
	st.Intent = domain.IntentStyle
	d := s.Decide(context.Background(), st)
	assert.Equal(t, domain.StageStyle, d.Stage)
	assert.Equal(t, "which one fits best?", d.LocalQuestion)
}

func TestDecide_VisitationGuard(t *testing.T) {
	s := router.New(dispatchTo("investigator", "again"))

	st := turn("hello there").MarkVisited(domain.StageInvestigator)
	d := s.Decide(context.Background(), st)
	assert.Equal(t, domain.StageInvestigator, d.Candidate)
	assert.Equal(t, domain.StageAggregate, d.Stage)
	assert.Equal(t, router.ReasonVisited, d.Reason)
}

func TestDecide_ASRGroundingDetour(t *testing.T) {
	base := turn("create an ASR for checkout latency")
	base.ForceRAG = true

	s := router.New(dispatchTo("investigator", "x"))

	d := s.Decide(context.Background(), base)
	assert.Equal(t, domain.StageInvestigator, d.Stage)
	assert.Equal(t, domain.StageASR, d.Candidate)
	assert.Equal(t, router.ReasonASRDetour, d.Reason)

	d = s.Decide(context.Background(), base.MarkVisited(domain.StageInvestigator))
	assert.Equal(t, domain.StageASR, d.Stage)

	docOnly := base.Clone()
	docOnly.DocOnly = true
	d = s.Decide(context.Background(), docOnly)
	assert.Equal(t, domain.StageASR, d.Stage)
}

func TestRoute_RecordsDecision(t *testing.T) {
	s := router.New(dispatchTo("creator", "draw the payment flow"))

	prev := turn("hello there")
	next, d := s.Route(context.Background(), prev)

	assert.Equal(t, domain.StageCreator, next.NextStage)
	assert.Equal(t, "draw the payment flow", next.LocalQuestion)
	assert.Equal(t, d.Intent, next.Intent)
	assert.Empty(t, prev.NextStage, "input state must not be mutated")
}

func TestDecide_EmitsRouteEvent(t *testing.T) {
	var events []*domain.RouteEvent
	hooks := domain.LifecycleHooks{
		OnRoute: func(_ context.Context, e *domain.RouteEvent) { events = append(events, e) },
	}
	s := router.New(dispatchTo("unifier", "x"), router.WithLifecycleHooks(hooks))

	st := turn("hello there")
	st.SessionID = "abc"
	s.Decide(context.Background(), st)

	require.Len(t, events, 1)
	assert.Equal(t, domain.EventRoute, events[0].Type)
	assert.Equal(t, "abc", events[0].SessionID)
	assert.Equal(t, domain.StageAggregate, events[0].Candidate)
	assert.Equal(t, domain.StageInvestigator, events[0].Resolved)
	assert.Equal(t, router.ReasonLoopGuard, events[0].Reason)
}

// Every dispatch outcome over every visited subset must resolve to an
// unvisited worker or to the aggregator after at least one worker ran.
func TestDecide_GuardsHoldForAllVisitedSets(t *testing.T) {
	candidates := append([]string{"unifier", "diagram_agent"}, stageNames()...)
	workers := domain.WorkerStages

	for _, next := range candidates {
		s := router.New(dispatchTo(next, "q"))
		for mask := 0; mask < 1<<len(workers); mask++ {
			for _, rag := range []bool{false, true} {
				st := turn("hello there")
				st.ForceRAG = rag
				for i, w := range workers {
					if mask&(1<<i) != 0 {
						st = st.MarkVisited(w)
					}
				}

				d := s.Decide(context.Background(), st)
				if d.Stage == domain.StageAggregate {
					assert.NotEmpty(t, st.Visited, "aggregate with nothing visited (candidate %s)", next)
				} else {
					assert.False(t, st.HasVisited(d.Stage), "stage %s re-selected (candidate %s, mask %b)", d.Stage, next, mask)
				}
			}
		}
	}
}

func stageNames() []string {
	out := make([]string, len(domain.WorkerStages))
	for i, w := range domain.WorkerStages {
		out[i] = string(w)
	}
	return out
}

func TestFollowup(t *testing.T) {
	assert.Equal(t, router.FollowupExplainTactics, router.Followup("Tactics: explain them please"))
	assert.Equal(t, router.FollowupMakeASR, router.Followup("ejemplo de asr"))
	assert.Equal(t, router.FollowupDeploymentView, router.Followup("deployment view"))
	assert.Equal(t, router.FollowupChecklist, router.Followup("lista de verificación"))
	assert.Empty(t, router.Followup("hello"))
}
