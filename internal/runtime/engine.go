// Package runtime runs one turn: Boot, classify, the supervisor loop over the
// stage executors, then the aggregator.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/archguide/internal/aggregator"
	"github.com/aretw0/archguide/internal/classifier"
	"github.com/aretw0/archguide/internal/logging"
	"github.com/aretw0/archguide/internal/recovery"
	"github.com/aretw0/archguide/internal/router"
	"github.com/aretw0/archguide/internal/stages"
	"github.com/aretw0/archguide/pkg/domain"
	"github.com/aretw0/archguide/pkg/ports"
	"github.com/aretw0/archguide/pkg/registry"
)

// Engine is the turn state machine.
type Engine struct {
	classifier *classifier.Classifier
	supervisor *router.Supervisor
	registry   *registry.Registry
	aggregator *aggregator.Aggregator

	retriever ports.Retriever
	k         int
	maxSteps  int

	logger *slog.Logger
	hooks  domain.LifecycleHooks
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithRetriever sets the knowledge retriever used for grounding.
func WithRetriever(r ports.Retriever) EngineOption {
	return func(e *Engine) {
		e.retriever = r
	}
}

// WithTacticsCount sets K, the exact size of the tactic array.
func WithTacticsCount(k int) EngineOption {
	return func(e *Engine) {
		e.k = k
	}
}

// WithRegistry replaces the stage registry. Stages missing from it fail at
// execution time and are recorded as degraded.
func WithRegistry(r *registry.Registry) EngineOption {
	return func(e *Engine) {
		e.registry = r
	}
}

// NewEngine wires every component around one oracle.
func NewEngine(oracle ports.Oracle, opts ...EngineOption) (*Engine, error) {
	e := &Engine{
		k:      recovery.DefaultK,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.registry == nil {
		pipeline, err := recovery.New(e.k, oracle,
			recovery.WithLogger(e.logger),
			recovery.WithLifecycleHooks(e.hooks),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to build recovery pipeline: %w", err)
		}
		execs, err := stages.New(oracle,
			stages.WithLogger(e.logger),
			stages.WithRetriever(e.retriever),
			stages.WithRecovery(pipeline),
		)
		if err != nil {
			return nil, err
		}
		e.registry = registry.NewRegistry()
		execs.Register(e.registry)
	}

	e.classifier = classifier.New(oracle, classifier.WithLogger(e.logger))
	e.supervisor = router.New(oracle,
		router.WithLogger(e.logger),
		router.WithLifecycleHooks(e.hooks),
	)
	e.aggregator = aggregator.New(oracle, aggregator.WithLogger(e.logger))
	e.maxSteps = len(domain.WorkerStages) + 2
	return e, nil
}

// Step runs one full turn over prev and returns the new state.
// The only error is ErrEmptyInput; collaborator failures degrade the turn
// but always leave a non-empty EndMessage.
func (e *Engine) Step(ctx context.Context, prev domain.TurnState, req domain.TurnRequest) (domain.TurnState, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return prev, domain.ErrEmptyInput
	}
	start := time.Now()

	state := domain.Boot(prev, text)
	if req.SessionID != "" {
		state.SessionID = req.SessionID
	}
	state.ForcedIntent = req.ForcedIntent
	state.DocOnly = req.DocOnly
	state.DocContext = req.DocContext
	state.AddContext = req.AddContext

	state = e.classifier.Apply(ctx, state)

	for step := 0; ; step++ {
		if step >= e.maxSteps {
			e.logger.Warn("step ceiling reached, aggregating", "session_id", state.SessionID, "visited", state.Visited)
			break
		}
		var d router.Decision
		state, d = e.supervisor.Route(ctx, state)
		if d.Stage == domain.StageAggregate {
			break
		}
		state = e.run(ctx, d.Stage, state)
		if d.Stage.EndsTurn() {
			break
		}
	}

	state = e.aggregator.Aggregate(ctx, state)
	state.NextStage = domain.StageAggregate
	if strings.TrimSpace(state.EndMessage) == "" {
		state.EndMessage = aggregator.Fallback(state.Language)
	}

	e.logger.Info("turn completed",
		"session_id", state.SessionID,
		"intent", state.Intent,
		"visited", state.Visited,
		"duration", time.Since(start),
	)
	if e.hooks.OnTurnEnd != nil {
		e.hooks.OnTurnEnd(ctx, &domain.TurnEvent{
			EventBase: domain.NewEventBase(domain.EventTurnEnd, state.SessionID),
			Intent:    state.Intent,
			Visited:   append([]domain.Stage(nil), state.Visited...),
			Duration:  time.Since(start),
		})
	}
	return state, nil
}

// run executes one stage. A failing stage is replaced by its fallback
// result; either way the stage is marked visited.
func (e *Engine) run(ctx context.Context, stage domain.Stage, state domain.TurnState) domain.TurnState {
	e.emitStageEnter(ctx, state.SessionID, stage)
	start := time.Now()

	next, err := e.registry.Execute(ctx, stage, state)
	degraded := err != nil
	if degraded {
		var se *domain.StageError
		if errors.As(err, &se) {
			e.logger.Warn("stage failed, using fallback", "session_id", state.SessionID, "stage", se.Stage, "err", se.Cause)
		} else {
			e.logger.Error("stage failed, using fallback", "session_id", state.SessionID, "stage", stage, "err", err)
		}
		next = state.WithResult(stage, stages.Fallback(stage, state.Language))
	}
	next = next.MarkVisited(stage)

	e.emitStageLeave(ctx, state.SessionID, stage, degraded, time.Since(start), err)
	return next
}

func (e *Engine) emitStageEnter(ctx context.Context, sessionID string, stage domain.Stage) {
	if e.hooks.OnStageEnter == nil {
		return
	}
	e.hooks.OnStageEnter(ctx, &domain.StageEvent{
		EventBase: domain.NewEventBase(domain.EventStageEnter, sessionID),
		Stage:     stage,
	})
}

func (e *Engine) emitStageLeave(ctx context.Context, sessionID string, stage domain.Stage, degraded bool, d time.Duration, err error) {
	if e.hooks.OnStageLeave == nil {
		return
	}
	e.hooks.OnStageLeave(ctx, &domain.StageEvent{
		EventBase: domain.NewEventBase(domain.EventStageLeave, sessionID),
		Stage:     stage,
		Degraded:  degraded,
		Duration:  d,
		Err:       err,
	})
}

// Result projects a finished turn onto its user-facing outcome.
func Result(state domain.TurnState) domain.TurnResult {
	res := domain.TurnResult{
		SessionID:   state.SessionID,
		Message:     state.EndMessage,
		Suggestions: append([]string{}, state.Suggestions...),
		Language:    state.Language,
		Intent:      state.Intent,
		Visited:     append([]domain.Stage{}, state.Visited...),
	}
	if code, ok := aggregator.Diagram(state); ok {
		res.Diagram = code
	}
	if r, ok := state.Result(domain.StageTactics); ok && len(r.Tactics) > 0 {
		res.Tactics = domain.CloneTactics(r.Tactics)
	}
	return res
}
