package stages

import (
	"context"
	"regexp"
	"strings"

	"github.com/aretw0/archguide/internal/diagram"
	"github.com/aretw0/archguide/pkg/domain"
)

// Task names of the diagram requests.
const (
	DiagramTask = "diagram"
	CreatorTask = "creator"
)

// maxDiagramTactics keeps the diagram prompt small.
const maxDiagramTactics = 8

var mermaidFence = regexp.MustCompile("(?is)```mermaid\\s*(.*?)```")

// Diagram turns the session's driver, style and tactics into a sanitized
// diagram description.
func (e *Executors) Diagram(ctx context.Context, state domain.TurnState) (domain.TurnState, error) {
	mem := state.Memory

	tactics := domain.TacticNames(mem.Tactics)
	if len(tactics) > maxDiagramTactics {
		tactics = tactics[:maxDiagramTactics]
	}
	tacticsBlock := "- (no explicit tactics selected yet)"
	if len(tactics) > 0 {
		tacticsBlock = "- " + strings.Join(tactics, "\n- ")
	}

	var sections []string
	if s := strings.TrimSpace(state.AddContext); s != "" {
		sections = append(sections, "Business / project context:\n"+s)
	}
	if s := strings.TrimSpace(state.DocContext); s != "" {
		sections = append(sections, "Project documents context:\n"+s)
	}
	if s := strings.TrimSpace(mem.MemoryText); s != "" {
		sections = append(sections, "Conversation memory (ASR/style/tactics decisions):\n"+s)
	}
	sections = append(sections,
		"Quality Attribute Scenario (ASR):\n"+orNone(mem.LastArtifact, "(not explicitly defined; infer it from the context and user request)"),
		"Chosen architecture style:\n"+orNone(mem.LastStyle, "(not explicitly chosen; infer a reasonable style for the ASR)."),
		"Selected tactics:\n"+tacticsBlock,
		"User diagram request:\n"+orNone(strings.TrimSpace(state.LocalQuestion),
			orNone(strings.TrimSpace(state.UserQuestion), "Generate a deployment/component diagram aligned with the ASR and tactics.")),
	)

	reply, next, err := e.generate(ctx, domain.StageDiagram, DiagramTask, state, diagramPrompt, strings.Join(sections, "\n\n---\n\n"))
	if err != nil {
		return next, err
	}

	code := diagram.Sanitize(diagramBody(reply))
	next = next.
		WithTrace(domain.RoleAssistant, "diagram", code).
		WithResult(domain.StageDiagram, domain.StageResult{Text: code, Diagram: code})
	next.Memory.Phase = PhaseDiagram
	next.Intent = domain.IntentDiagram
	return next, nil
}

// Creator draws a generic diagram straight from the question. Only a fenced
// mermaid block in the reply counts as a diagram.
func (e *Executors) Creator(ctx context.Context, state domain.TurnState) (domain.TurnState, error) {
	q := orNone(strings.TrimSpace(state.LocalQuestion), state.UserQuestion)
	user := "User request:\n" + q + "\n\nIf an ASR is provided, ensure components and connectors explicitly support the Response and Response Measure."

	reply, next, err := e.generate(ctx, domain.StageCreator, CreatorTask, state, creatorPrompt, user)
	if err != nil {
		return next, err
	}

	res := domain.StageResult{Text: strings.TrimSpace(reply)}
	if m := mermaidFence.FindStringSubmatch(reply); m != nil && strings.TrimSpace(m[1]) != "" {
		res.Diagram = diagram.Sanitize(m[1])
	}
	next = next.
		WithTrace(domain.RoleAssistant, "creator", res.Text).
		WithResult(domain.StageCreator, res)
	return next, nil
}

// diagramBody prefers a ```mermaid fence, then any fence, then the whole reply.
func diagramBody(reply string) string {
	if m := mermaidFence.FindStringSubmatch(reply); m != nil {
		return m[1]
	}
	return diagram.Unwrap(reply)
}

const creatorPrompt = "You are an expert in Mermaid and IT architecture. Generate a Mermaid diagram for the given prompt."

const diagramPrompt = `You are an expert software architect and Mermaid diagram author.

The message you receive is a multi-section prompt with business context, the Quality Attribute
Scenario (ASR), the chosen architecture style, the selected tactics and the user diagram request.

TRANSFORM the ASR + style + tactics into a concrete architecture diagram, NOT a drawing of the
user sentence itself. The tactics and style shown MUST come from the prompt.

HARD OUTPUT RULES:
1. The FIRST line of output MUST be: graph LR
2. Node ids MUST match ^[a-zA-Z_][a-zA-Z0-9_]*$ and be short (api, cache, cb_proxy).
3. EVERY node MUST be declared on its own line BEFORE being used in an edge:
     db["Database"]
     api --> db
4. Edges use plain Mermaid syntax: A --> B or A --- B.
5. ASCII only. No prose, no code fences.`
