// Package testutils provides scripted collaborators for engine tests.
package testutils

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aretw0/archguide/pkg/domain"
)

// Reply is one scripted oracle answer.
type Reply struct {
	Text   string
	Object map[string]any
	Err    error
}

// ScriptedOracle replays canned answers.
//
// Structured replies are keyed by the schema "title"; text replies are keyed
// by the Name of the first prompt message (the task name stages put there).
// Each key is a queue; the last reply of a queue repeats once exhausted.
// Unknown structured titles fail; unknown text tasks return DefaultText.
type ScriptedOracle struct {
	mu sync.Mutex

	Structured  map[string][]Reply
	Text        map[string][]Reply
	DefaultText string

	StructuredCalls []string
	TextCalls       []string
	Prompts         [][]domain.Message
}

// NewScriptedOracle returns an oracle with empty scripts.
func NewScriptedOracle() *ScriptedOracle {
	return &ScriptedOracle{
		Structured: make(map[string][]Reply),
		Text:       make(map[string][]Reply),
	}
}

// OnStructured appends replies for a schema title.
func (o *ScriptedOracle) OnStructured(title string, replies ...Reply) *ScriptedOracle {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Structured[title] = append(o.Structured[title], replies...)
	return o
}

// OnText appends replies for a task name.
func (o *ScriptedOracle) OnText(task string, replies ...Reply) *ScriptedOracle {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Text[task] = append(o.Text[task], replies...)
	return o
}

func (o *ScriptedOracle) Generate(ctx context.Context, msgs []domain.Message) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	task := ""
	if len(msgs) > 0 {
		task = msgs[0].Name
	}
	o.TextCalls = append(o.TextCalls, task)
	o.Prompts = append(o.Prompts, msgs)
	r, ok := pop(o.Text, task)
	if !ok {
		return o.DefaultText, nil
	}
	return r.Text, r.Err
}

func (o *ScriptedOracle) GenerateStructured(ctx context.Context, msgs []domain.Message, schema map[string]any) (map[string]any, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	title, _ := schema["title"].(string)
	o.StructuredCalls = append(o.StructuredCalls, title)
	o.Prompts = append(o.Prompts, msgs)
	r, ok := pop(o.Structured, title)
	if !ok {
		return nil, fmt.Errorf("%w: no scripted reply for %q", domain.ErrGeneration, title)
	}
	return r.Object, r.Err
}

// Called reports how many text calls were made for a task.
func (o *ScriptedOracle) Called(task string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, c := range o.TextCalls {
		if c == task {
			n++
		}
	}
	return n
}

func pop(m map[string][]Reply, key string) (Reply, bool) {
	q := m[key]
	if len(q) == 0 {
		return Reply{}, false
	}
	r := q[0]
	if len(q) > 1 {
		m[key] = q[1:]
	}
	return r, true
}

// ErrOracleDown is what FailingOracle returns.
var ErrOracleDown = errors.New("oracle unavailable")

// FailingOracle fails every call.
type FailingOracle struct{}

func (FailingOracle) Generate(context.Context, []domain.Message) (string, error) {
	return "", fmt.Errorf("%w: %w", domain.ErrGeneration, ErrOracleDown)
}

func (FailingOracle) GenerateStructured(context.Context, []domain.Message, map[string]any) (map[string]any, error) {
	return nil, fmt.Errorf("%w: %w", domain.ErrGeneration, ErrOracleDown)
}

// StaticRetriever returns the same passages (or error) for every query.
type StaticRetriever struct {
	Passages []domain.Passage
	Err      error

	mu      sync.Mutex
	Queries []string
}

func (r *StaticRetriever) Retrieve(ctx context.Context, query string, limit int) ([]domain.Passage, error) {
	r.mu.Lock()
	r.Queries = append(r.Queries, query)
	r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	out := r.Passages
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return append([]domain.Passage(nil), out...), nil
}

// IntPtr is a convenience for passage pages.
func IntPtr(v int) *int { return &v }
