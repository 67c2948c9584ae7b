// Package aggregator assembles the final reply of a turn from the results
// the stages left in the turn state.
package aggregator

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/aretw0/archguide/internal/logging"
	"github.com/aretw0/archguide/internal/prompt"
	"github.com/aretw0/archguide/internal/stages"
	"github.com/aretw0/archguide/pkg/domain"
	"github.com/aretw0/archguide/pkg/ports"
)

// Task names the synthesis request.
const Task = "unifier"

// maxSuggestions caps the follow-ups parsed from a synthesis.
const maxSuggestions = 6

// Aggregator builds EndMessage and Suggestions.
type Aggregator struct {
	oracle ports.Oracle
	logger *slog.Logger
}

// Option configures the Aggregator.
type Option func(*Aggregator)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) {
		a.logger = logger
	}
}

// New creates an aggregator. The oracle is only used for the default
// synthesis branch; a nil oracle makes that branch concatenate stage output.
func New(oracle ports.Oracle, opts ...Option) *Aggregator {
	a := &Aggregator{
		oracle: oracle,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate returns a copy of the state with a non-empty EndMessage.
// Branches, first match wins: a diagram was produced; the turn intent is
// style, tactics or asr and that stage left a result; greeting or smalltalk;
// otherwise a synthesis of the research and evaluation output.
func (a *Aggregator) Aggregate(ctx context.Context, state domain.TurnState) domain.TurnState {
	next := state.Clone()
	lang := state.Language

	var text string
	var suggestions []string

	if code, ok := Diagram(state); ok {
		text = lang.Pick(
			"Here is the diagram generated from your quality scenario (ASR), the selected architecture style and the prioritized tactics.",
			"Aquí tienes el diagrama generado a partir del ASR, el estilo y las tácticas seleccionadas.",
		)
		suggestions = []string{
			lang.Pick("Generate a new ASR for another quality scenario.", "Formular un nuevo ASR para otro escenario de calidad."),
			lang.Pick("Generate a component diagram from this system.", "Generar un diagrama de componentes a partir de este sistema."),
			lang.Pick("Generate a deployment diagram for this same system.", "Generar un diagrama de despliegue para este mismo sistema."),
		}
		next.Intent = domain.IntentDiagram
		a.logger.Debug("aggregating diagram", "session_id", state.SessionID, "lines", strings.Count(code, "\n")+1)
	} else if r, ok := state.Result(domain.StageStyle); ok && state.Intent == domain.IntentStyle {
		text = orDefault(r.Text, "No style content.")
		suggestions = state.Suggestions
		if len(suggestions) == 0 {
			suggestions = []string{
				lang.Pick("Explain concrete tactics for this ASR using the recommended style.", "Diseña tácticas concretas para este ASR usando el estilo recomendado."),
				lang.Pick("Compare these two styles in more depth for this ASR.", "Compárame más a fondo estos dos estilos para este ASR."),
			}
		}
	} else if r, ok := state.Result(domain.StageTactics); ok && state.Intent == domain.IntentTactics {
		text = withReferences(lang, orDefault(r.Text, "No tactics content."), r.Sources)
		suggestions = []string{
			lang.Pick("Generate a component diagram applying these tactics.", "Genera un diagrama de componentes aplicando estas tácticas."),
			lang.Pick("Generate a deployment diagram aligned with these tactics.", "Genera un diagrama de despliegue alineado con estas tácticas."),
		}
	} else if r, ok := state.Result(domain.StageASR); ok && state.Intent == domain.IntentASR {
		asr := stages.StripTacticsSections(orDefault(r.Text, "No ASR content found for this turn."))
		text = withReferences(lang, asr, r.Sources)
		suggestions = []string{
			lang.Pick("Propose architecture styles for this ASR.", "Propón estilos arquitectónicos para este ASR."),
			lang.Pick("Refine this ASR with more specific metrics and scenarios.", "Refina este ASR con métricas y escenarios más específicos."),
		}
	} else if state.Intent == domain.IntentGreeting || state.Intent == domain.IntentSmalltalk {
		text = lang.Pick(
			"Hi! What software-architecture topic would you like to explore?\n\nIf you want, we can start the ADD 3.0 cycle by defining an ASR (for example latency, availability or security).",
			"¡Hola! ¿Sobre qué tema de arquitectura quieres profundizar?\n\nSi quieres, podemos empezar el ciclo ADD 3.0 formulando un ASR (por ejemplo de latencia, disponibilidad o seguridad).",
		)
		suggestions = []string{
			lang.Pick("Define an ASR (quality attribute requirement) for my system.", "Formular un ASR (requerimiento de calidad) para mi sistema."),
			lang.Pick("Review an ASR I already have.", "Revisar un ASR que ya tengo."),
		}
	} else {
		text, suggestions, next = a.synthesize(ctx, next)
	}

	if strings.TrimSpace(text) == "" {
		text = Fallback(lang)
	}
	next.EndMessage = text
	next.Suggestions = suggestions
	return next.WithTrace(domain.RoleAssistant, "unifier", text)
}

// Diagram returns the diagram produced this turn, preferring the diagram
// stage over the creator.
func Diagram(state domain.TurnState) (string, bool) {
	for _, s := range []domain.Stage{domain.StageDiagram, domain.StageCreator} {
		if r, ok := state.Result(s); ok && !r.Degraded && strings.TrimSpace(r.Diagram) != "" {
			return r.Diagram, true
		}
	}
	return "", false
}

// Fallback is the last-resort reply when nothing else produced text.
func Fallback(lang domain.Language) string {
	return lang.Pick(
		"Sorry, I could not produce an answer this time. Please rephrase or try again.",
		"Lo siento, no pude producir una respuesta esta vez. Reformula la pregunta o inténtalo de nuevo.",
	)
}

func (a *Aggregator) synthesize(ctx context.Context, state domain.TurnState) (string, []string, domain.TurnState) {
	lang := state.Language

	var buckets []string
	var refs string
	if r, ok := state.Result(domain.StageInvestigator); ok {
		buckets = append(buckets, "researcher:\n"+r.Text)
		if len(r.Sources) > 0 {
			refs = stages.References(r.Sources)
		}
	}
	if r, ok := state.Result(domain.StageEvaluator); ok {
		buckets = append(buckets, "evaluator:\n"+r.Text)
	}
	if r, ok := state.Result(domain.StageCreator); ok && state.Intent == domain.IntentDiagram {
		buckets = append(buckets, "creator:\n"+r.Text)
	}
	for _, s := range []domain.Stage{domain.StageASR, domain.StageStyle, domain.StageTactics} {
		if r, ok := state.Result(s); ok {
			buckets = append(buckets, string(s)+":\n"+r.Text)
		}
	}

	if a.oracle != nil {
		system := fmt.Sprintf(synthesisPrompt,
			lang.Pick("Answer in English.", "Responde en español."),
			state.Memory.MemoryText,
			refs,
		)
		user := "User question:\n" + state.UserQuestion + "\n\n" + strings.Join(buckets, "\n\n")
		state = state.WithTrace(domain.RoleSystem, Task+"_system", system)
		reply, err := a.oracle.Generate(ctx, prompt.Task(Task, system, user))
		if err != nil {
			a.logger.Warn("synthesis failed, concatenating stage output", "session_id", state.SessionID, "error", err)
		} else if text := StripMarkdown(reply); text != "" {
			return text, NextSuggestions(text), state
		}
	}

	var parts []string
	for _, s := range domain.WorkerStages {
		if r, ok := state.Result(s); ok && strings.TrimSpace(r.Text) != "" {
			parts = append(parts, strings.TrimSpace(r.Text))
		}
	}
	return strings.Join(parts, "\n\n"), nil, state
}

func withReferences(lang domain.Language, body string, sources []domain.Passage) string {
	return body + "\n\n" + lang.Pick("References", "Referencias") + ":\n" + stages.References(sources)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

var (
	fencedBlock = regexp.MustCompile(`(?s)` + "```.*?```")
	headingLine = regexp.MustCompile(`(?m)^[ \t]*#.*$`)
	diagramHead = regexp.MustCompile(`(?i)^\s*(graph\s+(LR|TB)|flowchart|sequenceDiagram|classDiagram)\b`)
	edgeLine    = regexp.MustCompile(`^\s*[A-Za-z0-9_-]+\s*--?[>-]`)
	sectionHead = regexp.MustCompile(`(?i)^(Answer|References|Next):`)
)

// StripMarkdown removes fences, headings, bold markers and stray diagram
// lines from a synthesized reply.
func StripMarkdown(text string) string {
	text = fencedBlock.ReplaceAllString(text, "")
	text = headingLine.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "**", "")
	var out []string
	for _, l := range strings.Split(text, "\n") {
		if diagramHead.MatchString(l) || edgeLine.MatchString(l) {
			continue
		}
		out = append(out, l)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// NextSuggestions reads the lines of a "Next:" section as follow-ups.
func NextSuggestions(text string) []string {
	var current string
	var next []string
	for _, l := range strings.Split(text, "\n") {
		if m := sectionHead.FindStringSubmatch(l); m != nil {
			current = strings.ToLower(m[1])
			l = l[len(m[0]):]
		}
		if current != "next" {
			continue
		}
		if s := strings.Trim(l, " -•\t"); s != "" {
			next = append(next, s)
		}
		if len(next) == maxSuggestions {
			break
		}
	}
	return next
}

const synthesisPrompt = `%s
You are writing the FINAL chat reply.

- Give a complete, direct solution tailored to the question and context.
- Use 6-12 concise lines (bullets or short sentences). No code fences, no mermaid.
- If useful, end with a short 'References:' block listing 3-6 items from RAG_SOURCES.
- Finish with a 'Next:' block of 2-4 short follow-up requests, one per line.

Constraints:
- Use the user's language.
- Do not invent sources outside RAG_SOURCES.
- Keep it clean: no '#', no '**', no code blocks.

Conversation memory (for continuity): %s

RAG_SOURCES:
%s`
