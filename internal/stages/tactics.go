package stages

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/aretw0/archguide/internal/prompt"
	"github.com/aretw0/archguide/internal/recovery"
	"github.com/aretw0/archguide/pkg/domain"
)

// TacticsTask names the tactics selection request.
const TacticsTask = "tactics"

var (
	inlineASR     = regexp.MustCompile(`(?is)(?:^|\n)\s*ASR\s*:?\s*(.+)$`)
	firstJSON     = regexp.MustCompile("(?is)```json\\s*.*?```")
	danglingJSONH = regexp.MustCompile(`(?im)\n?\(?2\)?\s*JSON\s*:?\s*$`)
)

// Tactics selects K tactics for the current driver. The markdown part of the
// reply is shown to the user; the structured array comes from the recovery
// pipeline. A recovery failure leaves an empty array and the
// NoStructuredResult note instead of failing the stage.
func (e *Executors) Tactics(ctx context.Context, state domain.TurnState) (domain.TurnState, error) {
	asr := state.Memory.LastArtifact
	if asr == "" {
		if m := inlineASR.FindStringSubmatch(state.UserQuestion); m != nil {
			asr = strings.TrimSpace(m[1])
		} else {
			asr = strings.TrimSpace(state.UserQuestion)
		}
	}
	qa := state.Memory.QualityAttribute
	if qa == "" {
		qa = GuessQualityAttribute(asr)
	}
	style := state.Memory.LastStyle

	var docs []domain.Passage
	var grounding string
	if state.DocOnly && strings.TrimSpace(state.DocContext) != "" {
		grounding = "[DOC] " + prompt.Clip(strings.TrimSpace(state.DocContext), 2000)
	} else {
		docs = e.gather(ctx, []string{
			qa + " architectural tactics",
			qa + " tactics performance scalability latency availability security modifiability",
			"Bass Clements Kazman performance and scalability tactics",
			"quality attribute tactics list",
		}, maxSources)
		grounding = snippets(docs, 5, 600)
	}

	k := e.recovery.K()
	system := fmt.Sprintf(tacticsPrompt,
		directive(state.Language),
		orNone(projectContext(state, 2000), "None"),
		orNone(asr, "(none provided)"),
		qa,
		orNone(style, "(none)"),
		orNone(grounding, "(none)"),
		k, k, k, k,
	)
	reply, next, err := e.generate(ctx, domain.StageTactics, TacticsTask, state, system, orNone(state.LocalQuestion, state.UserQuestion))
	if err != nil {
		return next, err
	}

	res := domain.StageResult{Sources: docs, Tactics: []domain.TacticItem{}}
	out, rerr := e.recovery.Recover(ctx, recovery.Input{
		SessionID:        state.SessionID,
		Raw:              reply,
		Artifact:         asr,
		QualityAttribute: qa,
		Style:            style,
	})
	switch {
	case rerr == nil:
		res.Tactics = out.Items
	case errors.Is(rerr, domain.ErrParseFailure):
		e.logger.Warn("tactics recovery failed", "session_id", state.SessionID, "error", rerr)
		res.Note = NoStructuredResult
	default:
		return next, &domain.StageError{Stage: domain.StageTactics, Cause: rerr}
	}

	md := TacticsMarkdown(reply)
	if md == "" && len(res.Tactics) > 0 {
		var lines []string
		for _, it := range res.Tactics {
			lines = append(lines, "- "+it.Name+": "+it.Rationale)
		}
		md = strings.Join(lines, "\n")
	}
	if md == "" {
		md = state.Language.Pick("No tactics content.", "Sin contenido de tácticas.")
	}
	res.Text = md

	next = next.
		WithTrace(domain.RoleAssistant, "tactics_advisor", md).
		WithTrace(domain.RoleAssistant, "tactics_sources", SourcesBlock(docs)).
		WithResult(domain.StageTactics, res)

	if len(res.Tactics) > 0 {
		next.Memory.Tactics = domain.CloneTactics(res.Tactics)
		next.Memory = next.Memory.Append("TACTICS", "- "+strings.Join(domain.TacticNames(res.Tactics), "\n- "))
	}
	if next.Memory.LastArtifact == "" {
		next.Memory.LastArtifact = asr
	}
	next.Memory.QualityAttribute = qa
	next.Memory.Phase = PhaseTactics
	next.Intent = domain.IntentTactics
	return next, nil
}

// TacticsMarkdown drops the first ```json fence and the heading left
// dangling above it.
func TacticsMarkdown(reply string) string {
	md := firstJSONFence(reply)
	md = danglingJSONH.ReplaceAllString(md, "")
	return strings.TrimSpace(md)
}

func firstJSONFence(s string) string {
	loc := firstJSON.FindStringIndex(s)
	if loc == nil {
		return s
	}
	return strings.TrimRight(s[:loc[0]], " \t\n") + "\n" + strings.TrimLeft(s[loc[1]:], " \t\n")
}

const tacticsPrompt = `%s
You are an expert software architect applying Attribute-Driven Design 3.0 (ADD 3.0).

We ALREADY HAVE an ASR / Quality Attribute Scenario. Continue the ADD 3.0 process by selecting
architectural tactics.

PROJECT CONTEXT (if any)
%s

ASR (driver to satisfy):
%s

Primary quality attribute (guessed):
%s

Selected architecture style (if any):
%s

GROUNDING (use ONLY this context; in DOC-ONLY mode this is the exclusive source):
%s

You MUST output THREE sections, in EXACT order:

(0) The ASR and its style, in 3-5 concise lines linked to Source, Stimulus, Artifact,
Environment and Response Measure.

(1) TACTICS (TOP-%d with highest success probability). For EACH tactic: Name, Rationale,
Consequences / Trade-offs, When to use, Why it ranks in the top, Success probability in [0,1].

(2) JSON:
ONE code fence starting with ` + "```json" + ` that contains ONLY a JSON array with EXACTLY %d objects with
fields name, purpose, rationale, categories, risks, tradeoffs, traces_to_asr, expected_effect,
success_probability (0..1 float, dot decimal separator) and rank.

STRICT RULES:
- Every tactic MUST explicitly tie back to the ASR driver.
- DO NOT invent product names or vendor SKUs. Stay pattern-level.
- Output EXACTLY %d tactics with a unique rank (1..%d) consistent with the markdown ranking.`
