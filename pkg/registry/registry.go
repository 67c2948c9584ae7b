// Package registry maps stage names to their executors.
package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/archguide/pkg/domain"
)

// StageFunc defines the signature for a stage executor.
// It receives the current turn state and returns the next one.
type StageFunc func(ctx context.Context, state domain.TurnState) (domain.TurnState, error)

// Registry manages the available stages.
type Registry struct {
	mu     sync.RWMutex
	stages map[domain.Stage]StageFunc
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		stages: make(map[domain.Stage]StageFunc),
	}
}

// Register adds a stage executor to the registry.
// If the stage is already registered, it is overwritten.
func (r *Registry) Register(stage domain.Stage, fn StageFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages[stage] = fn
}

// Has reports whether the stage has an executor.
func (r *Registry) Has(stage domain.Stage) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.stages[stage]
	return ok
}

// Execute looks up a stage by name and runs it.
// Returns an error if the stage is not registered.
func (r *Registry) Execute(ctx context.Context, stage domain.Stage, state domain.TurnState) (domain.TurnState, error) {
	r.mu.RLock()
	fn, ok := r.stages[stage]
	r.mu.RUnlock()

	if !ok {
		return state, fmt.Errorf("stage not registered: %s", stage)
	}

	return fn(ctx, state)
}
