package stages

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/aretw0/archguide/internal/prompt"
	"github.com/aretw0/archguide/internal/rules"
	"github.com/aretw0/archguide/pkg/domain"
)

// maxSources caps the SOURCES block.
const maxSources = 6

func directive(lang domain.Language) string {
	return lang.Pick("Answer in English.", "Responde en español.")
}

// projectContext is the document in doc-only mode, otherwise the free-form
// project context.
func projectContext(state domain.TurnState, max int) string {
	ctx := state.AddContext
	if state.DocOnly && strings.TrimSpace(state.DocContext) != "" {
		ctx = state.DocContext
	}
	return prompt.Clip(strings.TrimSpace(ctx), max)
}

func orNone(s, none string) string {
	if strings.TrimSpace(s) == "" {
		return none
	}
	return s
}

// qualityAttributes guesses the quality attribute a text is about.
var qualityAttributes = rules.Table[string]{
	{Name: "latency", Phrases: []string{"latenc", "response time"}, Result: "latency"},
	{Name: "scalability", Phrases: []string{"scalab", "throughput"}, Result: "scalability"},
	{Name: "availability", Phrases: []string{"availab", "uptime"}, Result: "availability"},
	{Name: "security", Phrases: []string{"secur"}, Result: "security"},
	{Name: "modifiability", Phrases: []string{"modifiab", "change"}, Result: "modifiability"},
	{Name: "reliability", Phrases: []string{"reliab", "fault"}, Result: "reliability"},
}

// GuessQualityAttribute returns the first quality attribute the text hints
// at, or "performance".
func GuessQualityAttribute(text string) string {
	if r, ok := qualityAttributes.First(text); ok {
		return r.Result
	}
	return "performance"
}

// workloads guesses a typical domain when the user gives none.
var workloads = rules.Table[string]{
	{Name: "commerce", Phrases: []string{"e-comm", "commerce", "shop", "checkout"}, Result: "e-commerce flash sale"},
	{Name: "api", Phrases: []string{"api"}, Result: "public REST API with burst traffic"},
	{Name: "streaming", Phrases: []string{"stream", "kafka"}, Result: "event streaming pipeline"},
}

func guessWorkload(text string) string {
	if r, ok := workloads.First(text); ok {
		return r.Result
	}
	return "e-commerce flash sale"
}

type passageKey struct {
	path string
	page int
}

func keyOf(p domain.Passage) passageKey {
	k := passageKey{path: p.SourcePath, page: -1}
	if p.Page != nil {
		k.page = *p.Page
	}
	return k
}

// gather runs the queries in order and keeps up to max passages, unique by
// (source path, page). Retrieval errors are logged and treated as no grounding.
func (e *Executors) gather(ctx context.Context, queries []string, max int) []domain.Passage {
	if e.retriever == nil {
		return nil
	}
	seen := make(map[passageKey]bool)
	var out []domain.Passage
	for _, q := range queries {
		docs, err := e.retriever.Retrieve(ctx, q, max)
		if err != nil {
			e.logger.Warn("retrieval failed, continuing ungrounded", "query", q, "error", err)
			continue
		}
		for _, d := range docs {
			k := keyOf(d)
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, d)
			if len(out) >= max {
				return out
			}
		}
	}
	return out
}

var whitespace = regexp.MustCompile(`\s+`)

// snippets renders passage texts as numbered, clipped, de-duplicated lines.
func snippets(docs []domain.Passage, maxItems, maxChars int) string {
	seen := make(map[string]bool)
	var lines []string
	for _, d := range docs {
		t := strings.TrimSpace(whitespace.ReplaceAllString(d.Text, " "))
		t = prompt.Clip(t, maxChars)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		lines = append(lines, fmt.Sprintf("[%d] %s", len(lines)+1, t))
		if len(lines) >= maxItems {
			break
		}
	}
	return strings.Join(lines, "\n\n")
}

// SourcesBlock renders the cited passages, one line each.
func SourcesBlock(docs []domain.Passage) string {
	seen := make(map[string]bool)
	var lines []string
	for _, d := range docs {
		title := orNone(d.SourceTitle, "doc")
		page := ""
		if d.Page != nil {
			page = fmt.Sprintf(" (p.%d)", *d.Page)
		}
		line := prompt.Clip(fmt.Sprintf("- %s%s — %s", title, page, d.SourcePath), 180)
		if seen[line] {
			continue
		}
		seen[line] = true
		lines = append(lines, line)
		if len(lines) >= maxSources {
			break
		}
	}
	if len(lines) == 0 {
		return "SOURCES:\n- (no local sources)"
	}
	return "SOURCES:\n" + strings.Join(lines, "\n")
}

// References lists the sources without the SOURCES heading, or "None".
func References(docs []domain.Passage) string {
	if len(docs) == 0 {
		return "None"
	}
	block := strings.TrimPrefix(SourcesBlock(docs), "SOURCES:\n")
	var refs []string
	for _, l := range strings.Split(block, "\n") {
		refs = append(refs, strings.TrimPrefix(l, "- "))
	}
	return strings.Join(refs, "\n")
}

var (
	codeFence     = regexp.MustCompile("(?s)```.*?```")
	headingPrefix = regexp.MustCompile(`(?m)^[ \t]*#+[ \t]*`)
	blankRuns     = regexp.MustCompile(`\n{3,}`)

	tacticsHeadings = []*regexp.Regexp{
		regexp.MustCompile(`(?is)\n+\s*design tactics(?: to consider)?\s*:?.*$`),
		regexp.MustCompile(`(?is)\n+\s*tácticas(?: de diseño)?\s*:?.*$`),
		regexp.MustCompile(`(?is)\n+\s*arquitectural tactics\s*:?.*$`),
		regexp.MustCompile(`(?is)\n+\s*decisiones (?:arquitectónicas|de diseño)\s*:?.*$`),
	}
)

// PlainText removes code fences, bold markers and heading marks.
func PlainText(s string) string {
	s = codeFence.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "**", "")
	s = headingPrefix.ReplaceAllString(s, "")
	s = blankRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// StripTacticsSections cuts any tactics section that leaked into a driver
// document, from its heading to the end.
func StripTacticsSections(s string) string {
	for _, re := range tacticsHeadings {
		s = re.ReplaceAllString(s, "\n")
	}
	return strings.TrimSpace(s)
}
