// Package recovery turns unreliable free-text oracle output into a validated
// array of exactly K tactic items.
//
// The cascade is an ordered list of named strategies. Each strategy returns
// raw candidates; a strategy is accepted only if its candidates normalize to
// exactly K items. The first accepted strategy wins. When none is accepted the
// pipeline fails with domain.ErrParseFailure and callers fall back to their
// "no structured result" message.
package recovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/archguide/internal/logging"
	"github.com/aretw0/archguide/pkg/domain"
	"github.com/aretw0/archguide/pkg/ports"
)

// DefaultK is the number of tactics the tactics stage asks for.
const DefaultK = 3

// Input carries the raw text and the task context used by the repair strategy.
type Input struct {
	SessionID        string
	Raw              string
	Artifact         string
	QualityAttribute string
	Style            string
}

// Strategy is one step of the cascade.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, in Input) ([]map[string]any, error)
}

// Attempt records what a strategy produced.
type Attempt struct {
	Strategy   string
	Candidates int
	Err        error
}

// Outcome is a successful recovery.
type Outcome struct {
	Items    []domain.TacticItem
	Strategy string
	Attempts []Attempt
}

// Pipeline runs the strategies in order and normalizes their output.
type Pipeline struct {
	k          int
	strategies []Strategy
	validator  *Validator
	logger     *slog.Logger
	hooks      domain.LifecycleHooks
}

// Option configures the Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithStrategies replaces the default cascade.
func WithStrategies(s ...Strategy) Option {
	return func(p *Pipeline) {
		p.strategies = s
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(p *Pipeline) {
		p.hooks = hooks
	}
}

// New builds the default cascade (direct → repair → reconstruct) for k items.
// The repair strategy is skipped when oracle is nil.
func New(k int, oracle ports.Oracle, opts ...Option) (*Pipeline, error) {
	if k <= 0 {
		return nil, fmt.Errorf("recovery: k must be positive, got %d", k)
	}
	v, err := NewValidator(k)
	if err != nil {
		return nil, err
	}
	p := &Pipeline{
		k:         k,
		validator: v,
		logger:    logging.NewNop(),
	}
	p.strategies = []Strategy{Direct{}}
	if oracle != nil {
		p.strategies = append(p.strategies, NewRepair(oracle, k))
	}
	p.strategies = append(p.strategies, Reconstruct{})

	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// K returns the configured cardinality.
func (p *Pipeline) K() int { return p.k }

// Recover runs the cascade. It returns exactly K items or an error wrapping
// domain.ErrParseFailure.
func (p *Pipeline) Recover(ctx context.Context, in Input) (Outcome, error) {
	var attempts []Attempt
	for _, s := range p.strategies {
		cands, err := s.Extract(ctx, in)
		att := Attempt{Strategy: s.Name(), Candidates: len(cands), Err: err}
		if err == nil && len(cands) == 0 {
			att.Err = errNoCandidates
		}
		if att.Err == nil {
			var items []domain.TacticItem
			items, att.Err = Normalize(cands, p.k)
			if att.Err == nil {
				att.Err = p.validator.Validate(items)
			}
			if att.Err == nil {
				attempts = append(attempts, att)
				p.logger.Debug("structured output recovered", "strategy", s.Name(), "items", len(items))
				p.emit(ctx, in.SessionID, s.Name(), len(items), nil)
				return Outcome{Items: items, Strategy: s.Name(), Attempts: attempts}, nil
			}
		}
		p.logger.Debug("recovery strategy rejected", "strategy", s.Name(), "candidates", len(cands), "error", att.Err)
		attempts = append(attempts, att)
	}

	err := fmt.Errorf("%w: %d strategies exhausted", domain.ErrParseFailure, len(p.strategies))
	p.logger.Warn("structured output recovery failed", "attempts", len(attempts))
	p.emit(ctx, in.SessionID, "none", 0, err)
	return Outcome{Attempts: attempts}, err
}

func (p *Pipeline) emit(ctx context.Context, sessionID, strategy string, n int, err error) {
	if p.hooks.OnRecovery == nil {
		return
	}
	p.hooks.OnRecovery(ctx, &domain.RecoveryEvent{
		EventBase: domain.NewEventBase(domain.EventRecovery, sessionID),
		Strategy:  strategy,
		Items:     n,
		Err:       err,
	})
}

var errNoCandidates = errors.New("no candidates")
