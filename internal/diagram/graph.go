package diagram

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/archguide/pkg/domain"
)

// Validation errors reported by Validate.
var (
	ErrMissingHeader     = errors.New("diagram: first non-blank line is not a header")
	ErrInlineDeclaration = errors.New("diagram: edge carries an inline node declaration")
	ErrDuplicateDecl     = errors.New("diagram: node declared more than once")
	ErrLateDeclaration   = errors.New("diagram: node declared after its first edge")
	ErrNonASCII          = errors.New("diagram: non-ASCII character")
)

// Parse classifies each statement of a diagram description. Statements
// joined with ";" are split and trailing comments reported on their own.
// Edge chains and "&" groups are reported as one edge per source and target
// pair, sharing the same raw statement.
func Parse(text string) domain.DiagramGraph {
	var g domain.DiagramGraph
	for _, l := range statements(strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")) {
		trimmed := strings.TrimSpace(l)
		switch {
		case headerRe.MatchString(l):
			g.Lines = append(g.Lines, domain.DiagramLine{Kind: domain.LineHeader, Raw: l})
			continue
		case trimmed == "" || strings.HasPrefix(trimmed, "%%") || subgraph.MatchString(l):
			g.Lines = append(g.Lines, domain.DiagramLine{Kind: domain.LineOther, Raw: l})
			continue
		}
		if ep, ok := parseDecl(trimmed); ok {
			g.Lines = append(g.Lines, domain.DiagramLine{Kind: domain.LineDeclaration, Raw: l, ID: ep.id, Shape: ep.shape})
			continue
		}
		if srcs, segs, ok := parseChain(trimmed); ok {
			from := srcs
			for _, s := range segs {
				for _, a := range from {
					for _, b := range s.dsts {
						line := domain.DiagramLine{
							Kind:      domain.LineEdge,
							Raw:       l,
							Source:    a.id,
							Operator:  s.op,
							EdgeLabel: s.label,
							Target:    b.id,
						}
						if a.shape != "" || b.shape != "" || b.isText {
							line.Shape = a.shape + b.shape
							if b.isText {
								line.Shape += `"` + b.quoted + `"`
							}
						}
						g.Lines = append(g.Lines, line)
					}
				}
				from = s.dsts
			}
			continue
		}
		g.Lines = append(g.Lines, domain.DiagramLine{Kind: domain.LineOther, Raw: l})
	}
	return g
}

// Validate checks the output contract: header first, ASCII only, no inline
// declarations inside edges, and at most one declaration per id, placed
// before any edge that uses it.
func Validate(g domain.DiagramGraph) error {
	first := true
	declared := make(map[string]bool)
	used := make(map[string]bool)
	for i, l := range g.Lines {
		for _, r := range l.Raw {
			if r > 127 {
				return fmt.Errorf("%w at line %d", ErrNonASCII, i+1)
			}
		}
		if first {
			if strings.TrimSpace(l.Raw) == "" {
				continue
			}
			if l.Kind != domain.LineHeader {
				return ErrMissingHeader
			}
			first = false
			continue
		}
		switch l.Kind {
		case domain.LineDeclaration:
			if declared[l.ID] {
				return fmt.Errorf("%w: %s", ErrDuplicateDecl, l.ID)
			}
			if used[l.ID] {
				return fmt.Errorf("%w: %s", ErrLateDeclaration, l.ID)
			}
			declared[l.ID] = true
		case domain.LineEdge:
			if l.Shape != "" {
				return fmt.Errorf("%w at line %d", ErrInlineDeclaration, i+1)
			}
			used[l.Source] = true
			used[l.Target] = true
		}
	}
	if first {
		return ErrMissingHeader
	}
	return nil
}
