package stages

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/aretw0/archguide/internal/prompt"
	"github.com/aretw0/archguide/internal/rules"
	"github.com/aretw0/archguide/internal/router"
	"github.com/aretw0/archguide/pkg/domain"
)

// Task names and schema title of the evaluation requests.
const (
	EvaluatorTask        = "evaluator"
	EvaluationTitle      = "EvaluatorResponse"
	evalSnippetCount     = 4
	evalSnippetChars     = 300
	evalDocContextLength = 1500
)

// EvaluationSchema is the structured contract of a general evaluation.
var EvaluationSchema = prompt.Object(EvaluationTitle, map[string]any{
	"positiveAspects": prompt.String("what works in the proposal"),
	"negativeAspects": prompt.String("what is weak or missing"),
	"suggestions":     prompt.String("concrete improvements"),
}, "positiveAspects", "negativeAspects", "suggestions")

var evalTarget = regexp.MustCompile(`(?is)(evaluate|evalúa|evaluar|check|review)\s+(this|este)\s+asr\s*:?\s*(.+)$`)

type evaluation struct {
	Positive    string `mapstructure:"positiveAspects"`
	Negative    string `mapstructure:"negativeAspects"`
	Suggestions string `mapstructure:"suggestions"`
}

// Evaluator critiques the current ASR when asked to evaluate one, and gives a
// structured general assessment otherwise.
func (e *Executors) Evaluator(ctx context.Context, state domain.TurnState) (domain.TurnState, error) {
	if rules.ContainsAny(state.UserQuestion, router.EvalPhrases...) {
		return e.evaluateASR(ctx, state)
	}

	system := evaluatorPrompt
	if pc := projectContext(state, evalDocContextLength); pc != "" {
		label := "PROJECT CONTEXT"
		if state.DocOnly {
			label = "DOC-ONLY: use exclusively this PROJECT DOCUMENT"
		}
		system = label + ":\n" + pc + "\n\n" + system
	}
	obj, next, err := e.structured(ctx, domain.StageEvaluator, EvaluatorTask, state, system,
		orNone(state.LocalQuestion, state.UserQuestion), EvaluationSchema)
	if err != nil {
		return next, err
	}
	var ev evaluation
	if err := prompt.Decode(obj, &ev); err != nil {
		return next, &domain.StageError{Stage: domain.StageEvaluator, Cause: err}
	}

	lang := state.Language
	text := strings.TrimSpace(
		prompt.Section(lang.Pick("Positive aspects", "Aspectos positivos"), ev.Positive) +
			prompt.Section(lang.Pick("Negative aspects", "Aspectos negativos"), ev.Negative) +
			prompt.Section(lang.Pick("Suggestions", "Sugerencias"), ev.Suggestions))
	if text == "" {
		return next, &domain.StageError{Stage: domain.StageEvaluator, Cause: fmt.Errorf("%w: empty evaluation", domain.ErrGeneration)}
	}
	next = next.
		WithTrace(domain.RoleAssistant, "evaluator", text).
		WithResult(domain.StageEvaluator, domain.StageResult{Text: text})
	return next, nil
}

func (e *Executors) evaluateASR(ctx context.Context, state domain.TurnState) (domain.TurnState, error) {
	lang := state.Language
	asr := pickASR(state)
	if asr == "" {
		text := lang.Pick(
			"I couldn't find an ASR to evaluate. Paste the ASR text or ask me to create one first.",
			"No encuentro un ASR para evaluar. Pega el texto del ASR o pide que genere uno primero.",
		)
		next := state.
			WithTrace(domain.RoleAssistant, "evaluator", text).
			WithResult(domain.StageEvaluator, domain.StageResult{Text: text})
		return next, nil
	}

	var docs []domain.Passage
	var book string
	if state.DocOnly && strings.TrimSpace(state.DocContext) != "" {
		book = "[DOC] " + prompt.Clip(strings.TrimSpace(state.DocContext), evalDocContextLength)
	} else {
		q := "quality attribute scenario parts stimulus source environment artifact response response measure"
		if hint := concernHint(state.UserQuestion); hint != "" {
			q = hint + " " + q
		}
		docs = e.gather(ctx, []string{q}, evalSnippetCount)
		book = snippets(docs, evalSnippetCount, evalSnippetChars)
	}

	system := fmt.Sprintf(evalASRPrompt, directive(lang), orNone(book, "None"), asr)
	if state.DocOnly {
		system = "DOC-ONLY mode: ON. Reason exclusively from the PROJECT DOCUMENT.\n\n" + system
	}
	reply, next, err := e.generate(ctx, domain.StageEvaluator, EvaluatorTask, state, system, state.UserQuestion)
	if err != nil {
		return next, err
	}
	text := strings.TrimSpace(reply)
	next = next.
		WithTrace(domain.RoleAssistant, "evaluator", text).
		WithResult(domain.StageEvaluator, domain.StageResult{Text: text, Sources: docs})
	return next, nil
}

// pickASR prefers the session's current driver, then an ASR pasted after the
// evaluation request.
func pickASR(state domain.TurnState) string {
	if state.Memory.LastArtifact != "" {
		return state.Memory.LastArtifact
	}
	if m := evalTarget.FindStringSubmatch(state.UserQuestion); m != nil {
		return strings.TrimSpace(m[3])
	}
	return ""
}

func concernHint(text string) string {
	low := strings.ToLower(text)
	switch {
	case strings.Contains(low, "latenc"):
		return "latency"
	case strings.Contains(low, "scalab"):
		return "scalability"
	}
	return ""
}

const evaluatorPrompt = `You are an expert in software-architecture evaluation.
Assess the proposal on three axes:
- theoretical correctness against good practice (patterns, tactics, views, styles);
- viability (cost, complexity, operability, risks, team skill);
- alignment with the user needs and architecture significant requirements.
Keep answers short and decisive.`

const evalASRPrompt = `%s
You are evaluating a Quality Attribute Scenario (Architecture Significant Requirement).

BOOK_SNIPPETS (ground your critique in these ideas; keep it short):
%s

ASR_TO_EVALUATE:
%s

Write a compact evaluation with EXACTLY these sections (plain text, no Markdown):

Verdict:
  One line: Good / Weak / Invalid, with a short reason.

Gaps:
  3-6 bullets pointing missing or vague parts against the canonical QAS fields.

Quality:
  3-5 bullets about measurability, precision of the Response Measure and realism.

Risks & Tactics:
  3-5 bullets on plausible risks and which tactics mitigate them.

Rewrite (improved ASR):
  A tightened ASR using the same QAS structure.

References:
  2-5 short items only if grounded by BOOK_SNIPPETS; otherwise "None".`
