package stages

import (
	"context"
	"regexp"
	"strings"

	"github.com/aretw0/archguide/internal/prompt"
	"github.com/aretw0/archguide/pkg/domain"
)

// Task name and schema title of the research request.
const (
	InvestigatorTask  = "investigator"
	ResearchTitle     = "InvestigatorResponse"
	researchPassages  = 8
	researchPreview   = 2
	researchPreviewCh = 400
)

// ResearchSchema is the structured contract of the investigator.
var ResearchSchema = prompt.Object(ResearchTitle, map[string]any{
	"definition": prompt.String("definition of the concept"),
	"useCases":   prompt.String("when to apply it"),
	"examples":   prompt.String("concrete examples"),
}, "definition", "useCases", "examples")

var (
	mentionsADD  = regexp.MustCompile(`(?i)\badd\b`)
	mentionsPerf = regexp.MustCompile(`(?i)scalab|latenc|throughput|performance|tactic`)

	addSynonyms = []string{
		"Attribute-Driven Design", "ADD 3.0", "architecture design method ADD",
		"Bass Clements Kazman ADD", "quality attribute scenarios ADD",
	}
	perfSynonyms = []string{
		"performance and scalability tactics", "latency tactics",
		"scalability tactics", "architectural tactics performance",
	}
)

type research struct {
	Definition string `mapstructure:"definition"`
	UseCases   string `mapstructure:"useCases"`
	Examples   string `mapstructure:"examples"`
}

// Investigator researches the question against the knowledge base (or the
// project document in doc-only mode) and answers with a definition, use cases
// and examples followed by a SOURCES block.
func (e *Executors) Investigator(ctx context.Context, state domain.TurnState) (domain.TurnState, error) {
	q := strings.TrimSpace(orNone(state.LocalQuestion, state.UserQuestion))

	var docs []domain.Passage
	var grounding string
	if state.DocOnly && strings.TrimSpace(state.DocContext) != "" {
		grounding = "[DOC] " + prompt.Clip(strings.TrimSpace(state.DocContext), 2000)
	} else {
		docs = e.gather(ctx, ResearchQueries(q), researchPassages)
		grounding = snippets(docs, researchPreview, researchPreviewCh)
	}

	system := directive(state.Language) + "\n" + investigatorPrompt +
		prompt.Section("GROUNDING", grounding) +
		prompt.Section("Conversation memory", state.Memory.MemoryText)
	obj, next, err := e.structured(ctx, domain.StageInvestigator, InvestigatorTask, state, system, q, ResearchSchema)
	if err != nil {
		return next, err
	}
	var r research
	if err := prompt.Decode(obj, &r); err != nil {
		return next, &domain.StageError{Stage: domain.StageInvestigator, Cause: err}
	}

	lang := state.Language
	text := prompt.Section(lang.Pick("Definition", "Definición"), r.Definition) +
		prompt.Section(lang.Pick("Use cases", "Casos de uso"), r.UseCases) +
		prompt.Section(lang.Pick("Examples", "Ejemplos"), r.Examples)
	if len(docs) > 0 {
		text += SourcesBlock(docs)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		text = lang.Pick("No findings for this question.", "Sin hallazgos para esta pregunta.")
	}

	next = next.
		WithTrace(domain.RoleAssistant, "researcher", text).
		WithResult(domain.StageInvestigator, domain.StageResult{Text: text, Sources: docs})
	return next, nil
}

// ResearchQueries expands a question with method and quality-attribute
// synonyms.
func ResearchQueries(q string) []string {
	var syn []string
	if mentionsADD.MatchString(q) {
		syn = append(syn, addSynonyms...)
	}
	if mentionsPerf.MatchString(q) {
		syn = append(syn, perfSynonyms...)
	}
	out := []string{q}
	for _, s := range syn {
		out = append(out, q+" - "+s)
	}
	return out
}

const investigatorPrompt = `You are a researcher focused on software architecture and Attribute-Driven Design (ADD 3.0).
Answer the question with a definition, typical use cases and concrete examples.
Rely on the GROUNDING when present; do not invent sources.

`
