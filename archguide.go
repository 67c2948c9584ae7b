package archguide

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/archguide/internal/logging"
	"github.com/aretw0/archguide/internal/runtime"
	"github.com/aretw0/archguide/pkg/adapters/memory"
	"github.com/aretw0/archguide/pkg/domain"
	"github.com/aretw0/archguide/pkg/ports"
	"github.com/aretw0/archguide/pkg/session"
)

// Engine is the high-level entry point for the archguide library.
// It runs turns against the routing core and keeps session memory between
// them: load, run, save, all under the session lock.
type Engine struct {
	core      *runtime.Engine
	sessions  *session.Manager
	observers []ports.TurnObserver
	logger    *slog.Logger

	store       ports.SessionStore
	locker      ports.DistributedLocker
	lockTTL     time.Duration
	retriever   ports.Retriever
	hooks       domain.LifecycleHooks
	tacticCount int
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithStore sets where session memory is kept (default: in memory).
func WithStore(store ports.SessionStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithLocker serializes turns of one session across replicas.
func WithLocker(locker ports.DistributedLocker, ttl time.Duration) Option {
	return func(e *Engine) {
		e.locker = locker
		e.lockTTL = ttl
	}
}

// WithRetriever sets the knowledge base used for grounding.
func WithRetriever(r ports.Retriever) Option {
	return func(e *Engine) {
		e.retriever = r
	}
}

// WithTacticsCount sets how many tactics the tactics stage returns.
func WithTacticsCount(k int) Option {
	return func(e *Engine) {
		e.tacticCount = k
	}
}

// WithObserver is notified after every saved turn.
func WithObserver(o ports.TurnObserver) Option {
	return func(e *Engine) {
		e.observers = append(e.observers, o)
	}
}

// New initializes an Engine over the given generation oracle.
func New(oracle ports.Oracle, opts ...Option) (*Engine, error) {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}
	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if eng.store == nil {
		eng.store = memory.NewStore()
	}

	coreOpts := []runtime.EngineOption{
		runtime.WithLogger(eng.logger),
		runtime.WithLifecycleHooks(eng.hooks),
		runtime.WithRetriever(eng.retriever),
	}
	if eng.tacticCount > 0 {
		coreOpts = append(coreOpts, runtime.WithTacticsCount(eng.tacticCount))
	}
	core, err := runtime.NewEngine(oracle, coreOpts...)
	if err != nil {
		return nil, err
	}
	eng.core = core

	sessOpts := []session.Option{session.WithLogger(eng.logger)}
	if eng.locker != nil {
		sessOpts = append(sessOpts, session.WithLocker(eng.locker), session.WithLockTTL(eng.lockTTL))
	}
	eng.sessions = session.NewManager(eng.store, sessOpts...)
	return eng, nil
}

// Turn runs one request/response cycle. A request without a session id
// starts a new session; the id is returned in the result.
// Only ErrEmptyInput and persistence failures are returned as errors:
// oracle and retrieval failures degrade the reply instead.
func (e *Engine) Turn(ctx context.Context, req domain.TurnRequest) (domain.TurnResult, error) {
	if req.SessionID == "" {
		req.SessionID = session.NewID()
	}

	var prev domain.TurnState
	next, err := e.sessions.Turn(ctx, req.SessionID, func(ctx context.Context, state domain.TurnState) (domain.TurnState, error) {
		prev = state
		return e.core.Step(ctx, state, req)
	})
	if err != nil {
		return domain.TurnResult{}, err
	}

	result := runtime.Result(next)
	for _, o := range e.observers {
		o.ObserveTurn(ctx, prev, next, result)
	}
	return result, nil
}

// Sessions exposes the session manager (inspect, list, delete).
func (e *Engine) Sessions() *session.Manager {
	return e.sessions
}
