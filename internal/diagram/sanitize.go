// Package diagram normalizes generated diagram text into a line-oriented
// graph description: a header, then one declaration or edge per line.
package diagram

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultHeader is inserted when the text carries no recognized header.
const DefaultHeader = "graph LR"

var (
	headerRe  = regexp.MustCompile(`(?i)^\s*(graph|flowchart)(?:\s+(TB|TD|BT|RL|LR))?\s*;?\s*$`)
	fenceRe   = regexp.MustCompile("(?s)```[a-zA-Z0-9_-]*[ \t]*\n?(.*?)```")
	subgraph  = regexp.MustCompile(`^\s*subgraph\s+([A-Za-z_]\w*)?`)
	idRe      = regexp.MustCompile(`^\s*([A-Za-z_]\w*)`)
	shapeRe   = regexp.MustCompile(`^\s*(` + shapeAlternatives() + `)`)
	opRe      = regexp.MustCompile(`^\s*(<?(?:-\.+-|={2,3}|-{1,5})(?:>|o\b|x\b)?)`)
	labelRe   = regexp.MustCompile(`^\s*\|([^|]*)\|`)
	quotedRe  = regexp.MustCompile(`^\s*"([^"]*)"`)
	tailRe    = regexp.MustCompile(`^\s*;?\s*$`)
	classRe   = regexp.MustCompile(`^:::([A-Za-z_][\w-]*)`)
	ampRe     = regexp.MustCompile(`^\s*&\s*`)
	textLabel = []struct {
		re  *regexp.Regexp
		out string
	}{
		{regexp.MustCompile(`([\w\])}])\s*--\s+([^\s|>\-][^|]*?)\s+-->`), "${1} -->|${2}|"},
		{regexp.MustCompile(`([\w\])}])\s*--\s+([^\s|>\-][^|]*?)\s+---`), "${1} ---|${2}|"},
		{regexp.MustCompile(`([\w\])}])\s*==\s+([^\s|>=][^|]*?)\s+==>`), "${1} ==>|${2}|"},
		{regexp.MustCompile(`([\w\])}])\s*-\.\s+([^\s|>.][^|]*?)\s+\.->`), "${1} -.->|${2}|"},
	}
	slugRe = regexp.MustCompile(`[^a-z0-9]+`)
)

var punctuation = strings.NewReplacer(
	"≤", "<=",
	"≥", ">=",
	"→", "->",
	"⇒", "->",
	"⟶", "->",
	"↔", "<->",
	"←", "<-",
	"—", "-",
	"–", "-",
	"−", "-",
	"\u00a0", " ",
	"\u200b", "",
	"“", `"`,
	"”", `"`,
	"„", `"`,
	"«", `"`,
	"»", `"`,
	"‘", "'",
	"’", "'",
	"…", "...",
	"•", "-",
	"·", "-",
	"×", "x",
)

// shapes lists node shape delimiters, longest first, with the body allowed
// when the label is not quoted.
var shapes = []struct{ open, close, body string }{
	{`[[`, `]]`, `[^\]]*`},
	{`[(`, `)]`, `[^)]*`},
	{`((`, `))`, `[^)]*`},
	{`([`, `])`, `[^\]]*`},
	{`{{`, `}}`, `[^}]*`},
	{`[`, `]`, `[^\]]*`},
	{`(`, `)`, `[^)]*`},
	{`{`, `}`, `[^}]*`},
	{`>`, `]`, `[^\]]*`},
}

// shapeAlternatives tries a quoted label first so that `B("has (paren)")`
// keeps its closing delimiter.
func shapeAlternatives() string {
	alts := make([]string, 0, 2*len(shapes))
	for _, sh := range shapes {
		open, closing := regexp.QuoteMeta(sh.open), regexp.QuoteMeta(sh.close)
		alts = append(alts,
			open+`\s*"[^"]*"\s*`+closing,
			open+sh.body+closing,
		)
	}
	return strings.Join(alts, "|")
}

var opCanon = map[string]string{
	"->":  "-->",
	"<->": "<-->",
}

// ToASCII maps known punctuation to ASCII, folds diacritics and drops
// whatever non-ASCII remains.
func ToASCII(s string) string {
	s = punctuation.Replace(s)
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err == nil {
		s = folded
	}
	return strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, s)
}

// Unwrap returns the body of the first fenced block, or the text itself.
func Unwrap(text string) string {
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return text
}

type itemKind int

const (
	itemBlank itemKind = iota
	itemOther
	itemDecl
	itemEdges
)

type endpoint struct {
	id     string
	shape  string
	class  string
	quoted string
	isText bool
}

type segment struct {
	op    string
	label string
	dsts  []endpoint
}

type item struct {
	kind   itemKind
	indent string
	raw    string
	decl   endpoint
	srcs   []endpoint
	segs   []segment
}

// endpoints lists every node an item mentions, in order.
func (it item) endpoints() []endpoint {
	if it.kind == itemDecl {
		return []endpoint{it.decl}
	}
	eps := append([]endpoint(nil), it.srcs...)
	for _, s := range it.segs {
		eps = append(eps, s.dsts...)
	}
	return eps
}

// Sanitize rewrites raw diagram text so that a recognized header comes first,
// the text is ASCII, and no edge carries an inline node declaration.
// Declarations are hoisted in front of the first edge that needs them and
// duplicates are dropped. Sanitize(Sanitize(x)) == Sanitize(x).
func Sanitize(raw string) string {
	text := strings.ReplaceAll(raw, "\r\n", "\n")
	text = Unwrap(text)
	text = strings.ReplaceAll(text, `\n`, " ")
	text = ToASCII(text)

	lines := statements(strings.Split(text, "\n"))
	header := DefaultHeader
	for i, l := range lines {
		if m := headerRe.FindStringSubmatch(l); m != nil {
			header = strings.ToLower(m[1])
			if m[2] != "" {
				header += " " + strings.ToUpper(m[2])
			}
			lines = append(structural(lines[:i]), lines[i+1:]...)
			break
		}
	}

	items, taken := parseLines(lines)
	assignSyntheticIDs(items, taken)
	return render(header, items)
}

// statements puts one statement per line: ";" outside quotes, labels and
// shapes starts a new line, and a trailing "%%" comment moves to its own line.
func statements(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		trimmed := strings.TrimSpace(l)
		if trimmed == "" || strings.HasPrefix(trimmed, "%%") {
			out = append(out, l)
			continue
		}
		indent := l[:len(l)-len(strings.TrimLeft(l, " \t"))]
		stmts, comment := splitStatements(trimmed)
		for _, st := range stmts {
			out = append(out, indent+st)
		}
		if comment != "" {
			out = append(out, indent+comment)
		}
	}
	return out
}

func splitStatements(s string) ([]string, string) {
	var stmts []string
	var inQuote, inLabel bool
	depth, start := 0, 0
	flush := func(end int) {
		if st := strings.TrimSpace(s[start:end]); st != "" {
			stmts = append(stmts, st)
		}
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			inQuote = !inQuote
		case inQuote:
		case c == '|' && depth == 0:
			inLabel = !inLabel
		case inLabel:
		case c == '[' || c == '(' || c == '{':
			depth++
		case c == ']' || c == ')' || c == '}':
			if depth > 0 {
				depth--
			}
		case depth > 0:
		case c == ';':
			flush(i)
			start = i + 1
		case c == '%' && strings.HasPrefix(s[i:], "%%"):
			flush(i)
			return stmts, strings.TrimSpace(s[i:])
		}
	}
	flush(len(s))
	return stmts, ""
}

// structural keeps the comments, declarations and edges found before a late
// header and drops the prose around them.
func structural(lines []string) []string {
	var out []string
	for _, l := range lines {
		trimmed := strings.TrimSpace(l)
		if strings.HasPrefix(trimmed, "%%") || isStatement(trimmed) {
			out = append(out, l)
		}
	}
	return out
}

func isStatement(s string) bool {
	if _, ok := parseDecl(s); ok {
		return true
	}
	_, _, ok := parseChain(normalizeTextLabels(s))
	return ok
}

// parseDecl accepts a lone node with a shape, e.g. `db[(Orders)]:::store`.
func parseDecl(s string) (endpoint, bool) {
	ep, rest, ok := parseNode(s)
	if !ok || ep.shape == "" || !tailRe.MatchString(rest) {
		return endpoint{}, false
	}
	return ep, true
}

func parseLines(lines []string) ([]item, map[string]bool) {
	taken := make(map[string]bool)
	items := make([]item, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimRight(l, " \t")
		indent := l[:len(l)-len(strings.TrimLeft(l, " \t"))]
		trimmed := strings.TrimSpace(l)

		switch {
		case trimmed == "":
			items = append(items, item{kind: itemBlank})
			continue
		case headerRe.MatchString(l):
			// stray second header
			continue
		case strings.HasPrefix(trimmed, "```"):
			continue
		case strings.HasPrefix(trimmed, "%%"):
			items = append(items, item{kind: itemOther, raw: l})
			continue
		}
		if m := subgraph.FindStringSubmatch(l); m != nil {
			if m[1] != "" {
				taken[m[1]] = true
			}
			items = append(items, item{kind: itemOther, raw: l})
			continue
		}

		if ep, ok := parseDecl(trimmed); ok {
			taken[ep.id] = true
			items = append(items, item{kind: itemDecl, indent: indent, decl: ep})
			continue
		}
		if srcs, segs, ok := parseChain(normalizeTextLabels(trimmed)); ok {
			it := item{kind: itemEdges, indent: indent, srcs: srcs, segs: segs}
			for _, ep := range it.endpoints() {
				if !ep.isText {
					taken[ep.id] = true
				}
			}
			items = append(items, it)
			continue
		}
		items = append(items, item{kind: itemOther, raw: l})
	}
	return items, taken
}

func normalizeTextLabels(s string) string {
	for _, tl := range textLabel {
		s = tl.re.ReplaceAllString(s, tl.out)
	}
	return s
}

func parseNode(s string) (endpoint, string, bool) {
	m := idRe.FindStringSubmatchIndex(s)
	if m == nil {
		return endpoint{}, s, false
	}
	ep := endpoint{id: s[m[2]:m[3]]}
	rest := s[m[1]:]
	if sm := shapeRe.FindStringSubmatchIndex(rest); sm != nil {
		ep.shape = rest[sm[2]:sm[3]]
		rest = rest[sm[1]:]
	}
	if cm := classRe.FindStringSubmatchIndex(rest); cm != nil {
		ep.class = rest[cm[2]:cm[3]]
		rest = rest[cm[1]:]
	}
	return ep, rest, true
}

// parseGroup parses "node (& node)*". Quoted text is accepted as a node when
// allowText is set.
func parseGroup(s string, allowText bool) ([]endpoint, string, bool) {
	var group []endpoint
	rest := s
	for {
		var ep endpoint
		if qm := quotedRe.FindStringSubmatchIndex(rest); allowText && qm != nil {
			ep = endpoint{quoted: rest[qm[2]:qm[3]], isText: true}
			rest = rest[qm[1]:]
		} else {
			var ok bool
			if ep, rest, ok = parseNode(rest); !ok {
				return nil, s, false
			}
		}
		group = append(group, ep)
		am := ampRe.FindStringIndex(rest)
		if am == nil {
			return group, rest, true
		}
		rest = rest[am[1]:]
	}
}

// parseChain parses "group (op |label|? group)+" and rejects anything else.
func parseChain(s string) ([]endpoint, []segment, bool) {
	srcs, rest, ok := parseGroup(s, false)
	if !ok {
		return nil, nil, false
	}
	var segs []segment
	for !tailRe.MatchString(rest) {
		om := opRe.FindStringSubmatchIndex(rest)
		if om == nil {
			return nil, nil, false
		}
		op := rest[om[2]:om[3]]
		if op == "-" || op == "<-" {
			return nil, nil, false
		}
		if c, ok := opCanon[op]; ok {
			op = c
		}
		rest = rest[om[1]:]

		seg := segment{op: op}
		if lm := labelRe.FindStringSubmatchIndex(rest); lm != nil {
			seg.label = strings.TrimSpace(rest[lm[2]:lm[3]])
			rest = rest[lm[1]:]
		}
		dsts, r, ok := parseGroup(rest, true)
		if !ok {
			return nil, nil, false
		}
		seg.dsts = dsts
		rest = r
		segs = append(segs, seg)
	}
	if len(segs) == 0 {
		return nil, nil, false
	}
	return srcs, segs, true
}

func assignSyntheticIDs(items []item, taken map[string]bool) {
	counters := make(map[string]int)
	for i := range items {
		for j := range items[i].segs {
			seg := &items[i].segs[j]
			for k := range seg.dsts {
				dst := &seg.dsts[k]
				if !dst.isText {
					continue
				}
				base := slug(seg.label)
				if base == "" {
					base = slug(dst.quoted)
				}
				if base == "" {
					base = "note"
				}
				for {
					counters[base]++
					id := base + "_" + strconv.Itoa(counters[base])
					if !taken[id] {
						taken[id] = true
						dst.id = id
						dst.shape = `["` + dst.quoted + `"]`
						break
					}
				}
			}
		}
	}
}

func slug(s string) string {
	s = strings.Trim(slugRe.ReplaceAllString(strings.ToLower(s), "_"), "_")
	if s != "" && s[0] >= '0' && s[0] <= '9' {
		s = "n_" + s
	}
	return s
}

func render(header string, items []item) string {
	// first shape and first class win for every id, wherever they appear
	shapes := make(map[string]string)
	classes := make(map[string]string)
	for _, it := range items {
		for _, ep := range it.endpoints() {
			if _, ok := shapes[ep.id]; !ok && ep.shape != "" {
				shapes[ep.id] = ep.shape
			}
			if _, ok := classes[ep.id]; !ok && ep.class != "" {
				classes[ep.id] = ep.class
			}
		}
	}

	out := []string{header}
	declared := make(map[string]bool)
	classed := make(map[string]bool)
	declare := func(indent, id string) {
		if declared[id] {
			return
		}
		if shape, ok := shapes[id]; ok {
			declared[id] = true
			line := indent + id + shape
			if cls, ok := classes[id]; ok {
				line += ":::" + cls
				classed[id] = true
			}
			out = append(out, line)
		}
	}
	// classes of nodes without a shape become class statements
	assignClasses := func(it item) {
		for _, ep := range it.endpoints() {
			cls, ok := classes[ep.id]
			if !ok || classed[ep.id] {
				continue
			}
			classed[ep.id] = true
			out = append(out, it.indent+"class "+ep.id+" "+cls)
		}
	}

	for _, it := range items {
		switch it.kind {
		case itemBlank:
			if out[len(out)-1] != "" {
				out = append(out, "")
			}
		case itemOther:
			out = append(out, it.raw)
		case itemDecl:
			declare(it.indent, it.decl.id)
			assignClasses(it)
		case itemEdges:
			from := it.srcs
			for _, s := range it.segs {
				for _, a := range from {
					for _, b := range s.dsts {
						declare(it.indent, a.id)
						declare(it.indent, b.id)
						line := it.indent + a.id + " " + s.op
						if s.label != "" {
							line += "|" + s.label + "|"
						}
						out = append(out, line+" "+b.id)
					}
				}
				from = s.dsts
			}
			assignClasses(it)
		}
	}
	for len(out) > 1 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	if len(out) > 1 && out[1] == "" {
		out = append(out[:1], out[2:]...)
	}
	return strings.Join(out, "\n")
}
