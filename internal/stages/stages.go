// Package stages holds the stage executors the supervisor dispatches to.
//
// Every executor takes a TurnState and returns a new one carrying its
// StageResult. Executors return a *domain.StageError when the oracle fails;
// the runtime then records Fallback for the stage instead. SessionMemory is
// only touched on success.
package stages

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/archguide/internal/logging"
	"github.com/aretw0/archguide/internal/prompt"
	"github.com/aretw0/archguide/internal/recovery"
	"github.com/aretw0/archguide/pkg/domain"
	"github.com/aretw0/archguide/pkg/ports"
	"github.com/aretw0/archguide/pkg/registry"
)

// Memory phases recorded by the stages.
const (
	PhaseASR     = "ASR"
	PhaseStyle   = "STYLE"
	PhaseTactics = "TACTICS"
	PhaseDiagram = "DIAGRAM"
)

// NoStructuredResult is the note left on a tactics result when recovery fails.
const NoStructuredResult = "no structured result"

// Executors bundles the collaborators shared by every stage.
type Executors struct {
	oracle    ports.Oracle
	retriever ports.Retriever
	recovery  *recovery.Pipeline
	logger    *slog.Logger
}

// Option configures the Executors.
type Option func(*Executors)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executors) {
		e.logger = logger
	}
}

// WithRetriever sets the knowledge retriever. Without one every stage runs
// ungrounded.
func WithRetriever(r ports.Retriever) Option {
	return func(e *Executors) {
		e.retriever = r
	}
}

// WithRecovery sets the tactics recovery pipeline.
func WithRecovery(p *recovery.Pipeline) Option {
	return func(e *Executors) {
		e.recovery = p
	}
}

// New creates the executors. A recovery pipeline for recovery.DefaultK items
// is built when none is given.
func New(oracle ports.Oracle, opts ...Option) (*Executors, error) {
	e := &Executors{
		oracle: oracle,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.recovery == nil {
		p, err := recovery.New(recovery.DefaultK, oracle, recovery.WithLogger(e.logger))
		if err != nil {
			return nil, err
		}
		e.recovery = p
	}
	return e, nil
}

// Register installs every executor into the registry.
func (e *Executors) Register(r *registry.Registry) {
	r.Register(domain.StageInvestigator, e.Investigator)
	r.Register(domain.StageCreator, e.Creator)
	r.Register(domain.StageEvaluator, e.Evaluator)
	r.Register(domain.StageDiagram, e.Diagram)
	r.Register(domain.StageASR, e.ASR)
	r.Register(domain.StageStyle, e.Style)
	r.Register(domain.StageTactics, e.Tactics)
}

// generate calls the oracle and traces the exchange. An empty reply counts as
// a generation failure.
func (e *Executors) generate(ctx context.Context, stage domain.Stage, task string, state domain.TurnState, system, user string) (string, domain.TurnState, error) {
	msgs := prompt.Task(task, system, user)
	state = state.WithTrace(domain.RoleSystem, task+"_system", system)
	reply, err := e.oracle.Generate(ctx, msgs)
	if err == nil && strings.TrimSpace(reply) == "" {
		err = fmt.Errorf("%w: empty reply", domain.ErrGeneration)
	}
	if err != nil {
		return "", state, &domain.StageError{Stage: stage, Cause: err}
	}
	return reply, state, nil
}

// structured calls the oracle with a schema.
func (e *Executors) structured(ctx context.Context, stage domain.Stage, task string, state domain.TurnState, system, user string, schema map[string]any) (map[string]any, domain.TurnState, error) {
	msgs := prompt.Task(task, system, user)
	state = state.WithTrace(domain.RoleSystem, task+"_system", system)
	obj, err := e.oracle.GenerateStructured(ctx, msgs, schema)
	if err != nil {
		return nil, state, &domain.StageError{Stage: stage, Cause: err}
	}
	return obj, state, nil
}

// Fallback is the degraded result recorded when a stage fails.
func Fallback(stage domain.Stage, lang domain.Language) domain.StageResult {
	var text string
	switch stage {
	case domain.StageASR:
		text = lang.Pick(
			"I could not draft the quality attribute scenario right now. Please try again in a moment.",
			"No pude redactar el escenario de calidad en este momento. Inténtalo de nuevo en un momento.",
		)
	case domain.StageStyle:
		text = lang.Pick(
			"I could not compare architecture styles right now. Please try again.",
			"No pude comparar estilos arquitectónicos en este momento. Inténtalo de nuevo.",
		)
	case domain.StageTactics:
		text = lang.Pick(
			"I could not select tactics right now. Please try again.",
			"No pude seleccionar tácticas en este momento. Inténtalo de nuevo.",
		)
	case domain.StageDiagram, domain.StageCreator:
		text = lang.Pick(
			"I could not generate the diagram right now. Please try again.",
			"No pude generar el diagrama en este momento. Inténtalo de nuevo.",
		)
	case domain.StageEvaluator:
		text = lang.Pick(
			"I could not complete the evaluation right now. Please try again.",
			"No pude completar la evaluación en este momento. Inténtalo de nuevo.",
		)
	default:
		text = lang.Pick(
			"I could not research that topic right now. Please try again.",
			"No pude investigar ese tema en este momento. Inténtalo de nuevo.",
		)
	}
	res := domain.StageResult{Text: text, Degraded: true}
	if stage == domain.StageTactics {
		res.Tactics = []domain.TacticItem{}
		res.Note = NoStructuredResult
	}
	return res
}
