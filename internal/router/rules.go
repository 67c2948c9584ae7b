package router

import (
	"slices"

	"github.com/aretw0/archguide/internal/classifier"
	"github.com/aretw0/archguide/internal/rules"
	"github.com/aretw0/archguide/pkg/domain"
)

// EvalPhrases mark a request to evaluate an existing ASR.
var EvalPhrases = []string{
	"evaluate this asr", "check this asr", "review this asr",
	"evalúa este asr", "evalua este asr", "revisa este asr",
	"es bueno este asr", "mejorar este asr", "mejorar asr",
	"critique this asr", "assess this asr",
}

// Follow-up kinds recognised in the user text.
const (
	FollowupExplainTactics = "explain_tactics"
	FollowupMakeASR        = "make_asr"
	FollowupComponentView  = "component_view"
	FollowupDeploymentView = "deployment_view"
	FollowupFunctionalView = "functional_view"
	FollowupCompare        = "compare"
	FollowupChecklist      = "checklist"
)

// Followups is checked first-match-wins; only one follow-up kind is
// attributed to a text.
var Followups = rules.Table[string]{
	{Name: FollowupExplainTactics, Result: FollowupExplainTactics,
		Patterns: rules.MustCompile(`\b(tactics?|tácticas?).*(explain|describe|detalla|explica)|explica.*tácticas`)},
	{Name: FollowupMakeASR, Result: FollowupMakeASR,
		Patterns: rules.MustCompile(`\b(asr|architecture significant requirement).*(make|create|example|ejemplo)|ejemplo.*asr`)},
	{Name: FollowupComponentView, Result: FollowupComponentView,
		Patterns: rules.MustCompile(`\b(component|diagrama de componentes|component diagram)`)},
	{Name: FollowupDeploymentView, Result: FollowupDeploymentView,
		Patterns: rules.MustCompile(`\b(deployment|despliegue|deployment view)`)},
	{Name: FollowupFunctionalView, Result: FollowupFunctionalView,
		Patterns: rules.MustCompile(`\b(functional view|vista funcional)`)},
	{Name: FollowupCompare, Result: FollowupCompare,
		Patterns: rules.MustCompile(`\b(compare|comparar).*?(latency|scalability|availability)`)},
	{Name: FollowupChecklist, Result: FollowupChecklist,
		Patterns: rules.MustCompile(`\b(checklist|lista de verificación|lista de verificacion)`)},
}

// Followup returns the follow-up kind of the text, or "".
func Followup(text string) string {
	r, ok := Followups.First(text)
	if !ok {
		return ""
	}
	return r.Result
}

var (
	asrTerms = []string{"asr", "quality attribute scenario", "qas"}

	diagramTerms = []string{
		"diagrama", "diagrama de componentes", "diagrama de arquitectura",
		"diagram", "component diagram", "architecture diagram",
		"mermaid", "plantuml", "c4", "bpmn", "uml", "despliegue", "deployment",
	}

	tacticsTerms = []string{
		"táctica", "tácticas", "tactic", "tactics",
		"estrategia", "estrategias", "strategy", "strategies",
		"cómo cumplir", "como cumplir", "how to satisfy",
		"how to meet", "how to achieve",
	}

	viewFollowups = []string{FollowupComponentView, FollowupDeploymentView, FollowupFunctionalView}
)

// overlayRule fires on any of its phrases or on one of its follow-up kinds.
type overlayRule struct {
	Name      string
	Phrases   []string
	Followups []string
	Stage     domain.Stage
	Intent    domain.Intent

	// KeepQuestion leaves the dispatch model's local question in place.
	KeepQuestion bool
}

func (r overlayRule) matches(text, followup string) bool {
	if rules.ContainsAny(text, r.Phrases...) {
		return true
	}
	return followup != "" && slices.Contains(r.Followups, followup)
}

// Overlay is applied on top of the dispatch model's candidate.
// The first matching rule wins.
var Overlay = []overlayRule{
	{Name: "style", Phrases: classifier.StylePhrases,
		Stage: domain.StageStyle, Intent: domain.IntentStyle},
	{Name: "asr", Phrases: asrTerms, Followups: []string{FollowupMakeASR},
		Stage: domain.StageASR, Intent: domain.IntentASR},
	{Name: "diagram", Phrases: diagramTerms, Followups: viewFollowups,
		Stage: domain.StageDiagram, Intent: domain.IntentDiagram},
	{Name: "tactics", Phrases: tacticsTerms, Followups: []string{FollowupExplainTactics},
		Stage: domain.StageTactics, Intent: domain.IntentTactics},
	{Name: "compare-checklist", Followups: []string{FollowupCompare, FollowupChecklist},
		Stage: domain.StageInvestigator, Intent: domain.IntentArchitecture, KeepQuestion: true},
}

func matchOverlay(text string) (overlayRule, bool) {
	fu := Followup(text)
	for _, r := range Overlay {
		if r.matches(text, fu) {
			return r, true
		}
	}
	return overlayRule{}, false
}
