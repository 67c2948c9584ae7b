// Package router implements the supervisor: the per-turn state machine that
// picks the next stage from a fixed precedence of signals and guarantees
// that no stage runs twice in a turn.
package router

import (
	"context"
	"log/slog"
	"strings"

	"github.com/aretw0/archguide/internal/logging"
	"github.com/aretw0/archguide/internal/prompt"
	"github.com/aretw0/archguide/internal/rules"
	"github.com/aretw0/archguide/pkg/domain"
	"github.com/aretw0/archguide/pkg/ports"
)

// SchemaTitle names the dispatch request sent to the oracle.
const SchemaTitle = "SupervisorDecision"

// Route reasons, reported on decisions and route events.
const (
	ReasonDiagramReady = "diagram-ready"
	ReasonForced       = "forced"
	ReasonEval         = "eval-trigger"
	ReasonDispatch     = "dispatch"
	ReasonDispatchFail = "dispatch-fallback"
	ReasonLoopGuard    = "loop-guard"
	ReasonVisited      = "visited"
	ReasonASRDetour    = "asr-detour"
)

// Schema is the dispatch model's output contract.
var Schema = prompt.Object(SchemaTitle, map[string]any{
	"localQuestion": prompt.String("What is the question for the worker stage?"),
	"nextNode": prompt.String("The next stage to act.",
		"investigator", "creator", "evaluator", "unifier", "asr", "diagram_agent", "tactics", "style"),
}, "localQuestion", "nextNode")

// Decision is the resolved routing outcome of one supervisor invocation.
type Decision struct {
	Stage         domain.Stage
	Candidate     domain.Stage
	LocalQuestion string
	Intent        domain.Intent
	Reason        string
}

// Supervisor decides the next stage.
type Supervisor struct {
	oracle ports.Oracle
	logger *slog.Logger
	hooks  domain.LifecycleHooks
}

// Option configures the Supervisor.
type Option func(*Supervisor)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Supervisor) {
		s.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Supervisor) {
		s.hooks = hooks
	}
}

// New creates a supervisor. A nil oracle makes every dispatch fall back to
// the investigator.
func New(oracle ports.Oracle, opts ...Option) *Supervisor {
	s := &Supervisor{
		oracle: oracle,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Route decides and records the decision on a copy of the state.
func (s *Supervisor) Route(ctx context.Context, state domain.TurnState) (domain.TurnState, Decision) {
	d := s.Decide(ctx, state)
	next := state.Clone()
	next.NextStage = d.Stage
	next.LocalQuestion = d.LocalQuestion
	next.Intent = d.Intent
	return next, d
}

// Decide evaluates the transition rule once. Precedence:
// forced intent, eval trigger, dispatch model plus heuristic overlay;
// then the loop guard, the visitation guard and the ASR grounding detour.
func (s *Supervisor) Decide(ctx context.Context, state domain.TurnState) Decision {
	d := s.candidate(ctx, state)
	d.Candidate = d.Stage

	if d.Stage == domain.StageAggregate && len(state.Visited) == 0 {
		d.Stage = domain.StageInvestigator
		d.Intent = domain.IntentArchitecture
		d.Reason = ReasonLoopGuard
	}
	if d.Stage != domain.StageAggregate && state.HasVisited(d.Stage) {
		d.Stage = domain.StageAggregate
		d.Reason = ReasonVisited
	}
	if d.Stage == domain.StageASR && state.ForceRAG && !state.DocOnly && !state.HasVisited(domain.StageInvestigator) {
		d.Stage = domain.StageInvestigator
		d.Reason = ReasonASRDetour
	}

	s.logger.Debug("route decided",
		"session_id", state.SessionID,
		"candidate", d.Candidate,
		"stage", d.Stage,
		"reason", d.Reason,
		"visited", state.Visited,
	)
	if s.hooks.OnRoute != nil {
		s.hooks.OnRoute(ctx, &domain.RouteEvent{
			EventBase: domain.NewEventBase(domain.EventRoute, state.SessionID),
			Candidate: d.Candidate,
			Resolved:  d.Stage,
			Reason:    d.Reason,
		})
	}
	return d
}

func (s *Supervisor) candidate(ctx context.Context, state domain.TurnState) Decision {
	uq := state.UserQuestion
	lang := state.Language

	if r, ok := state.Result(domain.StageDiagram); ok && r.Diagram != "" && !r.Degraded {
		return Decision{Stage: domain.StageAggregate, Intent: domain.IntentDiagram, LocalQuestion: state.LocalQuestion, Reason: ReasonDiagramReady}
	}

	if stage, ok := state.ForcedIntent.ForcedStage(); ok {
		return Decision{
			Stage:         stage,
			Intent:        state.ForcedIntent,
			LocalQuestion: localQuestion(stage, uq, lang),
			Reason:        ReasonForced,
		}
	}

	if rules.ContainsAny(uq, EvalPhrases...) {
		return Decision{Stage: domain.StageEvaluator, Intent: domain.IntentArchitecture, LocalQuestion: uq, Reason: ReasonEval}
	}

	d := s.dispatch(ctx, state)

	if state.Intent == domain.IntentStyle {
		return Decision{Stage: domain.StageStyle, Intent: domain.IntentStyle, LocalQuestion: localQuestion(domain.StageStyle, uq, lang), Reason: "overlay:style-intent"}
	}
	if r, ok := matchOverlay(uq); ok {
		d.Stage = r.Stage
		d.Intent = r.Intent
		d.Reason = "overlay:" + r.Name
		if !r.KeepQuestion {
			d.LocalQuestion = localQuestion(r.Stage, uq, lang)
		}
	}
	return d
}

type dispatchReply struct {
	LocalQuestion string `mapstructure:"localQuestion"`
	NextNode      string `mapstructure:"nextNode"`
}

// dispatch asks the generic dispatch model; any failure yields (investigator, raw text).
func (s *Supervisor) dispatch(ctx context.Context, state domain.TurnState) Decision {
	fallback := Decision{
		Stage:         domain.StageInvestigator,
		Intent:        intentOr(state.Intent),
		LocalQuestion: state.UserQuestion,
		Reason:        ReasonDispatchFail,
	}
	if s.oracle == nil {
		return fallback
	}
	obj, err := s.oracle.GenerateStructured(ctx, prompt.Task("supervisor", supervisorPrompt(state), state.UserQuestion), Schema)
	if err != nil {
		s.logger.Warn("dispatch model failed, falling back to investigator", "error", err)
		return fallback
	}
	var reply dispatchReply
	if err := prompt.Decode(obj, &reply); err != nil {
		return fallback
	}
	stage, ok := domain.ParseStage(reply.NextNode)
	if !ok {
		s.logger.Warn("dispatch model chose unknown stage", "next_node", reply.NextNode)
		return fallback
	}
	lq := strings.TrimSpace(reply.LocalQuestion)
	if lq == "" {
		lq = state.UserQuestion
	}
	return Decision{Stage: stage, Intent: intentOr(state.Intent), LocalQuestion: lq, Reason: ReasonDispatch}
}

func intentOr(i domain.Intent) domain.Intent {
	if i == "" {
		return domain.IntentGeneral
	}
	return i
}

// localQuestion synthesizes the stage sub-instruction used by forced and
// overlay routes.
func localQuestion(stage domain.Stage, uq string, lang domain.Language) string {
	switch stage {
	case domain.StageASR:
		return lang.Pick("Create a concrete QAS (ASR) for: ", "Crea un QAS (ASR) concreto para: ") + uq
	case domain.StageStyle:
		if strings.TrimSpace(uq) != "" {
			return uq
		}
		return lang.Pick(
			"Select the most appropriate architecture style for the current ASR.",
			"Selecciona el estilo arquitectónico más adecuado para el ASR actual.",
		)
	case domain.StageTactics:
		return lang.Pick(
			"Propose architecture tactics to satisfy the previous ASR. Explain why each tactic helps and how it ties to the ASR response/measure.",
			"Propón tácticas de arquitectura para satisfacer el ASR anterior. Explica por qué ayuda cada táctica y cómo se relaciona con la respuesta/medida del ASR.",
		)
	}
	return uq
}

func supervisorPrompt(state domain.TurnState) string {
	visited := "none"
	if len(state.Visited) > 0 {
		names := make([]string, len(state.Visited))
		for i, v := range state.Visited {
			names[i] = string(v)
		}
		visited = strings.Join(names, ", ")
	}
	doc := "OFF"
	if state.DocOnly {
		doc = "ON"
	}
	return `You are a supervisor orchestrating: investigator, creator (diagrams), evaluator, and ASR advisor.
Choose the next worker and craft a specific sub-question.

Rules:
- DOC-ONLY mode is ` + doc + `.
- If DOC-ONLY is ON: answers MUST rely only on the PROJECT DOCUMENT context provided.
- If DOC-ONLY is OFF and user asks about ADD/architecture, prefer investigator.
- If user asks for a diagram, route to creator.
- If user asks for an ASR or a QAS, route to asr.
- Do not go directly to unifier unless at least one worker has produced output.

Visited so far: ` + visited + `.
Outputs: ['investigator','creator','evaluator','asr','unifier'].`
}
