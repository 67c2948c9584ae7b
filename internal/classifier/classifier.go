// Package classifier assigns a reply language and a coarse intent to a turn.
package classifier

import (
	"context"
	"log/slog"
	"strings"
	"unicode"

	"github.com/aretw0/archguide/internal/logging"
	"github.com/aretw0/archguide/internal/prompt"
	"github.com/aretw0/archguide/internal/rules"
	"github.com/aretw0/archguide/pkg/domain"
	"github.com/aretw0/archguide/pkg/ports"
)

// SchemaTitle names the structured request sent to the oracle.
const SchemaTitle = "Classification"

// oracleIntents is the closed enum the oracle may answer with.
var oracleIntents = []string{
	string(domain.IntentGreeting),
	string(domain.IntentSmalltalk),
	string(domain.IntentArchitecture),
	string(domain.IntentDiagram),
	string(domain.IntentASR),
	string(domain.IntentTactics),
	string(domain.IntentStyle),
	string(domain.IntentOther),
}

// Schema is the structured output contract of the classification call.
var Schema = prompt.Object(SchemaTitle, map[string]any{
	"language": prompt.String("reply language", "en", "es"),
	"intent":   prompt.String("coarse intent of the last user message", oracleIntents...),
	"use_rag":  prompt.Bool("true if this is a software-architecture question worth grounding"),
}, "intent", "use_rag")

// StylePhrases trigger the style intent.
var StylePhrases = []string{
	"style", "styles",
	"architecture style", "architectural style",
	"estilo", "estilos", "estilo arquitectónico", "estilos arquitectónicos",
}

// TacticsPhrases trigger the tactics intent.
var TacticsPhrases = []string{
	"tactic", "táctica", "tactica", "tácticas", "tactics", "tactcias",
	"strategy", "estrategia",
	"cómo cumplir", "como cumplir", "how to meet", "how to satisfy", "how to achieve",
}

// DiagramPhrases trigger the diagram intent.
var DiagramPhrases = []string{
	"component diagram", "diagram", "diagrama", "diagrama de componentes",
	"uml", "plantuml", "c4", "bpmn",
	"this asr", "este asr", "el asr", "ese asr", "anterior asr",
}

// Overrides is the deterministic precedence applied after the oracle answer.
// Each matching rule replaces the intent unless the intent is in its Keep set:
// tactics never replaces style, diagram never replaces asr or style.
var Overrides = rules.Table[domain.Intent]{
	{Name: "style-triggers", Phrases: StylePhrases, Result: domain.IntentStyle},
	{Name: "tactics-triggers", Phrases: TacticsPhrases, Result: domain.IntentTactics,
		Keep: []domain.Intent{domain.IntentStyle}},
	{Name: "diagram-triggers", Phrases: DiagramPhrases, Result: domain.IntentDiagram,
		Keep: []domain.Intent{domain.IntentASR, domain.IntentStyle}},
}

// Result is the classifier output for one turn.
type Result struct {
	Language domain.Language
	Intent   domain.Intent
	ForceRAG bool
	Fired    []string
}

// Classifier combines a language heuristic, an oracle call and the override table.
type Classifier struct {
	oracle ports.Oracle
	logger *slog.Logger
}

// Option configures the Classifier.
type Option func(*Classifier)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Classifier) {
		c.logger = logger
	}
}

// New creates a classifier backed by the oracle.
func New(oracle ports.Oracle, opts ...Option) *Classifier {
	c := &Classifier{
		oracle: oracle,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type oracleReply struct {
	Language string `mapstructure:"language"`
	Intent   string `mapstructure:"intent"`
	UseRAG   bool   `mapstructure:"use_rag"`
}

// Classify never fails: an oracle failure yields the architecture intent.
func (c *Classifier) Classify(ctx context.Context, text string) Result {
	res := Result{
		Language: DetectLanguage(text),
		Intent:   domain.IntentArchitecture,
	}

	if c.oracle != nil {
		msgs := prompt.Task("classifier", classifyPrompt, "User message:\n"+text)
		obj, err := c.oracle.GenerateStructured(ctx, msgs, Schema)
		var reply oracleReply
		switch {
		case err != nil:
			c.logger.Warn("classification call failed, defaulting to architecture", "error", err)
		case prompt.Decode(obj, &reply) != nil:
			c.logger.Warn("classification reply unparseable, defaulting to architecture")
		case !isOracleIntent(reply.Intent):
			c.logger.Warn("classification intent outside enum, defaulting to architecture", "intent", reply.Intent)
		default:
			res.Intent = domain.Intent(reply.Intent)
			res.ForceRAG = reply.UseRAG
		}
	}

	res.Intent, res.Fired = ApplyOverrides(text, res.Intent)
	return res
}

// Apply classifies the turn text and records the result on a copy of the state.
// An upstream forced intent is left untouched.
func (c *Classifier) Apply(ctx context.Context, state domain.TurnState) domain.TurnState {
	res := c.Classify(ctx, state.UserQuestion)
	next := state.Clone()
	next.Language = res.Language
	next.Intent = res.Intent
	next.ForceRAG = res.ForceRAG
	c.logger.Debug("turn classified",
		"session_id", state.SessionID,
		"language", res.Language,
		"intent", res.Intent,
		"force_rag", res.ForceRAG,
		"overrides", res.Fired,
	)
	return next
}

// ApplyOverrides runs the override table and collapses anything outside the
// closed intent set to general.
func ApplyOverrides(text string, intent domain.Intent) (domain.Intent, []string) {
	out, fired := Overrides.Override(text, intent)
	return out.Normalize(), fired
}

func isOracleIntent(s string) bool {
	for _, i := range oracleIntents {
		if s == i {
			return true
		}
	}
	return false
}

var (
	spanishMarkers = []string{
		"qué", "que", "cómo", "como", "por qué", "porque", "cuál", "cual",
		"hola", "táctica", "tactica", "tácticas", "tacticas", "vista", "despliegue",
	}
	englishMarkers = []string{
		"what", "how", "why", "which", "hello",
		"tactic", "tactics", "view", "deployment", "component", "components",
	}
)

// DetectLanguage counts which Spanish and English marker words occur in the
// text. Spanish wins only with a strictly higher count; ties (0–0 included)
// resolve to English.
func DetectLanguage(text string) domain.Language {
	tokens := tokenize(text)
	joined := " " + strings.Join(tokens, " ") + " "
	es := countMarkers(tokens, joined, spanishMarkers)
	en := countMarkers(tokens, joined, englishMarkers)
	if es > en {
		return domain.LangSpanish
	}
	return domain.LangEnglish
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func countMarkers(tokens []string, joined string, markers []string) int {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	n := 0
	for _, m := range markers {
		if strings.Contains(m, " ") {
			if strings.Contains(joined, " "+m+" ") {
				n++
			}
			continue
		}
		if set[m] {
			n++
		}
	}
	return n
}

const classifyPrompt = `
Classify the user's last message. Return JSON with:
- language: "en" or "es"
- intent: one of ["greeting","smalltalk","architecture","diagram","asr","tactics","style","other"]
- use_rag: true if this is a software-architecture question (ADD, tactics, latency, scalability,
  quality attributes, views, styles, diagrams, ASR), else false.
`
