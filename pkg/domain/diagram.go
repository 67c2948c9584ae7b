package domain

import "strings"

// LineKind classifies one line of a diagram description.
type LineKind int

const (
	LineOther LineKind = iota
	LineHeader
	LineDeclaration
	LineEdge
)

// DiagramLine is one statement of a diagram description.
type DiagramLine struct {
	Kind LineKind
	Raw  string

	// Declaration fields.
	ID string

	// Shape is the bracketed label including delimiters, e.g. ["Cache"].
	// On edges it holds any inline declaration found (none after sanitizing).
	Shape string

	// Edge fields.
	Source    string
	Operator  string
	EdgeLabel string
	Target    string
}

// DiagramGraph is an ordered sequence of diagram lines.
type DiagramGraph struct {
	Lines []DiagramLine
}

// Header returns the first header line, if any.
func (g DiagramGraph) Header() (DiagramLine, bool) {
	for _, l := range g.Lines {
		if l.Kind == LineHeader {
			return l, true
		}
	}
	return DiagramLine{}, false
}

// Declarations returns the declared ids in order of appearance.
func (g DiagramGraph) Declarations() []string {
	var ids []string
	for _, l := range g.Lines {
		if l.Kind == LineDeclaration {
			ids = append(ids, l.ID)
		}
	}
	return ids
}

// Edges returns the edge lines in order of appearance.
func (g DiagramGraph) Edges() []DiagramLine {
	var edges []DiagramLine
	for _, l := range g.Lines {
		if l.Kind == LineEdge {
			edges = append(edges, l)
		}
	}
	return edges
}

// String renders the graph back to text. Edges split from one statement are
// written once.
func (g DiagramGraph) String() string {
	raws := make([]string, 0, len(g.Lines))
	for i, l := range g.Lines {
		if i > 0 && l.Kind == LineEdge && g.Lines[i-1].Kind == LineEdge && g.Lines[i-1].Raw == l.Raw {
			continue
		}
		raws = append(raws, l.Raw)
	}
	return strings.Join(raws, "\n")
}
