package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/archguide/pkg/domain"
	"github.com/aretw0/archguide/pkg/ports"
)

// Mask replaces every PII match in a saved record.
const Mask = "***"

// DefaultPIIPatterns match e-mail addresses and phone numbers.
var DefaultPIIPatterns = []string{
	`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`,
	`\+?\d[\d\s().\-]{7,}\d`,
}

type piiMiddleware struct {
	next     ports.SessionStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks text matching the patterns
// in the free-text fields of a record before it is saved. An empty list uses
// DefaultPIIPatterns. Loads are passed through: masked text stays masked.
func NewPIIMiddleware(patternStrings []string) Middleware {
	if len(patternStrings) == 0 {
		patternStrings = DefaultPIIPatterns
	}
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}
}

func (m *piiMiddleware) Save(ctx context.Context, sessionID string, state domain.TurnState) error {
	// Clone so the engine's in-memory state keeps the original text.
	masked := state.Clone()

	masked.UserQuestion = m.mask(masked.UserQuestion)
	masked.LocalQuestion = m.mask(masked.LocalQuestion)
	masked.EndMessage = m.mask(masked.EndMessage)
	masked.DocContext = m.mask(masked.DocContext)
	masked.AddContext = m.mask(masked.AddContext)
	for i := range masked.Trace {
		masked.Trace[i].Content = m.mask(masked.Trace[i].Content)
	}
	for stage, res := range masked.Results {
		res.Text = m.mask(res.Text)
		masked.Results[stage] = res
	}
	masked.Memory.MemoryText = m.mask(masked.Memory.MemoryText)
	masked.Memory.LastArtifact = m.mask(masked.Memory.LastArtifact)

	return m.next.Save(ctx, sessionID, masked)
}

func (m *piiMiddleware) Load(ctx context.Context, sessionID string) (domain.TurnState, error) {
	return m.next.Load(ctx, sessionID)
}

func (m *piiMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *piiMiddleware) mask(s string) string {
	if s == "" {
		return s
	}
	for _, p := range m.patterns {
		s = p.ReplaceAllString(s, Mask)
	}
	return s
}
