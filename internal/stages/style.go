package stages

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/archguide/internal/prompt"
	"github.com/aretw0/archguide/pkg/domain"
)

// StyleTask names the style comparison request.
const StyleTask = "style"

type styleReply struct {
	Style1 struct {
		Name   string `mapstructure:"name"`
		Impact string `mapstructure:"impact"`
	} `mapstructure:"style_1"`
	Style2 struct {
		Name   string `mapstructure:"name"`
		Impact string `mapstructure:"impact"`
	} `mapstructure:"style_2"`
	BestStyle string `mapstructure:"best_style"`
	Rationale string `mapstructure:"rationale"`
}

// Style proposes two candidate architecture styles for the current driver and
// recommends one. When the reply carries no JSON object, the first line of the
// reply is taken as the chosen style.
func (e *Executors) Style(ctx context.Context, state domain.TurnState) (domain.TurnState, error) {
	lang := state.Language
	asr := orNone(state.Memory.LastArtifact, state.UserQuestion)

	system := fmt.Sprintf(stylePrompt,
		directive(lang),
		state.Memory.QualityAttribute,
		orNone(projectContext(state, 2000), "(none)"),
		asr,
	)
	reply, next, err := e.generate(ctx, domain.StageStyle, StyleTask, state, system, orNone(state.LocalQuestion, state.UserQuestion))
	if err != nil {
		return next, err
	}

	var choice domain.StyleChoice
	var text string

	obj, perr := prompt.ExtractObject(reply)
	var parsed styleReply
	if perr == nil {
		perr = prompt.Decode(obj, &parsed)
	}
	if perr != nil {
		e.logger.Debug("style reply is not an object, keeping first line", "error", perr)
		choice.Chosen = firstLine(reply)
		text = strings.TrimSpace(reply)
	} else {
		choice = styleChoice(parsed)
		text = renderStyle(lang, choice)
		next.Suggestions = []string{
			lang.Pick(
				"Explain concrete tactics for the ASR using the recommended style ("+choice.Chosen+").",
				"Explícame tácticas concretas para el ASR usando el estilo recomendado ("+choice.Chosen+").",
			),
			lang.Pick(
				"Compare these two styles in more depth for this ASR.",
				"Compárame más a fondo estos dos estilos para este ASR.",
			),
		}
		next.Memory = next.Memory.
			Append("STYLE_OPTIONS", "1) "+choice.Options[0].Name+"\n2) "+choice.Options[1].Name).
			Append("STYLE_CHOSEN", choice.Chosen)
	}

	next = next.
		WithTrace(domain.RoleAssistant, "style_recommender", text).
		WithResult(domain.StageStyle, domain.StageResult{Text: text, Style: &choice})
	next.Memory.LastStyle = choice.Chosen
	next.Memory.Phase = PhaseStyle
	next.Intent = domain.IntentStyle
	return next, nil
}

func styleChoice(r styleReply) domain.StyleChoice {
	opts := []domain.StyleOption{
		{Name: orNone(strings.TrimSpace(r.Style1.Name), "Style 1"), Impact: strings.TrimSpace(r.Style1.Impact)},
		{Name: orNone(strings.TrimSpace(r.Style2.Name), "Style 2"), Impact: strings.TrimSpace(r.Style2.Impact)},
	}
	chosen := opts[0].Name
	if strings.TrimSpace(r.BestStyle) == "style_2" {
		chosen = opts[1].Name
	}
	return domain.StyleChoice{Options: opts, Chosen: chosen, Rationale: strings.TrimSpace(r.Rationale)}
}

func renderStyle(lang domain.Language, c domain.StyleChoice) string {
	var b strings.Builder
	b.WriteString(lang.Pick(
		"I have identified two candidate architecture styles for your ASR:",
		"He identificado dos estilos arquitectónicos candidatos para tu ASR:",
	))
	b.WriteString("\n\n")
	for i, o := range c.Options {
		fmt.Fprintf(&b, "%d) %s\n   - Impact: %s\n\n", i+1, o.Name, o.Impact)
	}
	fmt.Fprintf(&b, "%s: **%s** %s:\n%s",
		lang.Pick("Recommendation", "Recomendación"),
		c.Chosen,
		lang.Pick("because", "porque"),
		c.Rationale,
	)
	return strings.TrimSpace(b.String())
}

func firstLine(s string) string {
	for _, l := range strings.Split(s, "\n") {
		if t := strings.TrimSpace(l); t != "" {
			return t
		}
	}
	return ""
}

const stylePrompt = `%s
You are a software architect applying ADD 3.0.

Given the following Quality Attribute Scenario (ASR) and its business context,
propose exactly TWO different architecture styles as reasonable candidates,
and then recommend which of the two is BETTER to satisfy this ASR,
explaining the recommendation in terms of its impact on the quality attribute.

Quality attribute focus:
%s

Business / context:
%s

ASR:
%s

You MUST respond with a VALID JSON object ONLY, in the following form:

{
  "style_1": {"name": "Short name of style 1", "impact": "How this style impacts the ASR"},
  "style_2": {"name": "Short name of style 2", "impact": "How this style impacts the ASR"},
  "best_style": "style_1 or style_2",
  "rationale": "Why the chosen style is better for this ASR"
}

Do NOT add comments or any text outside of this JSON object.`
