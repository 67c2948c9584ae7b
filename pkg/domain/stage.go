package domain

// Stage identifies a unit of work the router can dispatch to.
type Stage string

const (
	StageInvestigator Stage = "investigator"
	StageCreator      Stage = "creator"
	StageEvaluator    Stage = "evaluator"
	StageDiagram      Stage = "diagram"
	StageASR          Stage = "asr"
	StageStyle        Stage = "style"
	StageTactics      Stage = "tactics"

	// StageAggregate is the terminal stage that assembles the final reply.
	StageAggregate Stage = "aggregate"
)

// WorkerStages lists every dispatchable stage except the aggregator, in a stable order.
var WorkerStages = []Stage{
	StageInvestigator,
	StageCreator,
	StageEvaluator,
	StageDiagram,
	StageASR,
	StageStyle,
	StageTactics,
}

// ParseStage maps a dispatch-model answer onto the closed stage set.
// The legacy names "diagram_agent" and "unifier" are accepted.
func ParseStage(s string) (Stage, bool) {
	switch s {
	case "diagram_agent":
		return StageDiagram, true
	case "unifier":
		return StageAggregate, true
	}
	st := Stage(s)
	if st == StageAggregate {
		return st, true
	}
	for _, w := range WorkerStages {
		if w == st {
			return st, true
		}
	}
	return "", false
}

// EndsTurn reports whether the stage hands control straight to the aggregator.
// ASR, style and tactics are single-shot: they never chain to another stage.
func (s Stage) EndsTurn() bool {
	return s == StageASR || s == StageStyle || s == StageTactics
}

// Intent is the coarse classification of a user turn.
type Intent string

const (
	IntentGreeting     Intent = "greeting"
	IntentSmalltalk    Intent = "smalltalk"
	IntentArchitecture Intent = "architecture"
	IntentDiagram      Intent = "diagram"
	IntentASR          Intent = "asr"
	IntentTactics      Intent = "tactics"
	IntentStyle        Intent = "style"
	IntentOther        Intent = "other"

	// IntentGeneral is what every value outside the closed set collapses to.
	IntentGeneral Intent = "general"
)

var knownIntents = map[Intent]bool{
	IntentGreeting:     true,
	IntentSmalltalk:    true,
	IntentArchitecture: true,
	IntentDiagram:      true,
	IntentASR:          true,
	IntentTactics:      true,
	IntentStyle:        true,
}

// Normalize collapses anything outside the closed intent set to IntentGeneral.
// Note that "other" is a valid classifier answer but not a routed intent.
func (i Intent) Normalize() Intent {
	if knownIntents[i] {
		return i
	}
	return IntentGeneral
}

// ForcedStage returns the stage an upstream-pinned intent routes to.
func (i Intent) ForcedStage() (Stage, bool) {
	switch i {
	case IntentASR:
		return StageASR, true
	case IntentStyle:
		return StageStyle, true
	case IntentTactics:
		return StageTactics, true
	case IntentDiagram:
		return StageDiagram, true
	}
	return "", false
}

// Language is the reply language of a turn.
type Language string

const (
	LangEnglish Language = "en"
	LangSpanish Language = "es"
)

// Pick returns en or es depending on the language.
func (l Language) Pick(en, es string) string {
	if l == LangSpanish {
		return es
	}
	return en
}
