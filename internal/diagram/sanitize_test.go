package diagram_test

import (
	"strings"
	"testing"

	"github.com/aretw0/archguide/internal/diagram"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lines(s string) []string {
	out := strings.Split(s, "\n")
	for i := range out {
		out[i] = strings.TrimSpace(out[i])
	}
	return out
}

func indexOf(ls []string, want string) int {
	for i, l := range ls {
		if l == want {
			return i
		}
	}
	return -1
}

func TestSanitize_ScenarioD_InlineDestination(t *testing.T) {
	out := diagram.Sanitize("graph LR\napi --|MISS| cb[\"Circuit Breaker\"]")
	ls := lines(out)

	decl := indexOf(ls, `cb["Circuit Breaker"]`)
	edge := indexOf(ls, "api --|MISS| cb")
	require.NotEqual(t, -1, decl, out)
	require.NotEqual(t, -1, edge, out)
	assert.Less(t, decl, edge)
	assert.Equal(t, "graph LR\ncb[\"Circuit Breaker\"]\napi --|MISS| cb", out)
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "inserts default header",
			in:   "A --> B",
			want: "graph LR\nA --> B",
		},
		{
			name: "drops text before header and unwraps fence",
			in:   "Here is your diagram:\n```mermaid\nflowchart td\n  A[Client] --> B\n```\nThanks!",
			want: "flowchart TD\n  A[Client]\n  A --> B",
		},
		{
			name: "quoted destination gets synthesized id",
			in:   "graph LR\nedge_cache ---|implements| \"Cache-aside with TTL\"\nedge_cache ---|implements| \"Warm-up job\"",
			want: "graph LR\nimplements_1[\"Cache-aside with TTL\"]\nedge_cache ---|implements| implements_1\nimplements_2[\"Warm-up job\"]\nedge_cache ---|implements| implements_2",
		},
		{
			name: "quoted destination without label slugs the text",
			in:   "graph LR\nA --> \"Read Replica\"",
			want: "graph LR\nread_replica_1[\"Read Replica\"]\nA --> read_replica_1",
		},
		{
			name: "synthesized id skips taken ids",
			in:   "graph LR\nmiss_1[Existing]\napi --|MISS| \"Fallback\"",
			want: "graph LR\nmiss_1[Existing]\nmiss_2[\"Fallback\"]\napi --|MISS| miss_2",
		},
		{
			name: "duplicate declarations dropped",
			in:   "graph TD\nA[One]\nA[Two]\nA --> B[Bee]\nC --> B[Bee again]",
			want: "graph TD\nA[One]\nB[Bee]\nA --> B\nC --> B",
		},
		{
			name: "late declaration hoisted before first edge",
			in:   "graph LR\nA --> B\nB((Queue))",
			want: "graph LR\nB((Queue))\nA --> B",
		},
		{
			name: "unicode punctuation and diacritics",
			in:   "graph LR\nA[“Caché”] → B[p95 ≤ 200ms — ok]",
			want: "graph LR\nA[\"Cache\"]\nB[p95 <= 200ms - ok]\nA --> B",
		},
		{
			name: "chains split into single edges",
			in:   "graph LR\nA --> B --> C[Sink]",
			want: "graph LR\nA --> B\nC[Sink]\nB --> C",
		},
		{
			name: "text labels become pipe labels",
			in:   "graph LR\nA -- calls --> B",
			want: "graph LR\nA -->|calls| B",
		},
		{
			name: "literal newline escapes become spaces",
			in:   "graph LR\nA[\"one\\ntwo\"] --> B",
			want: "graph LR\nA[\"one two\"]\nA --> B",
		},
		{
			name: "keeps comments subgraphs and styles, collapses blanks",
			in:   "graph LR\n\n%% edge tier\nsubgraph edge [Edge]\n  gw[Gateway]\n\n\n  gw --> svc\nend\nstyle gw fill:#f9f",
			want: "graph LR\n%% edge tier\nsubgraph edge [Edge]\n  gw[Gateway]\n\n  gw --> svc\nend\nstyle gw fill:#f9f",
		},
		{
			name: "class suffix moves to the declaration",
			in:   "graph LR\nA --> B[\"x\"]:::hot",
			want: "graph LR\nB[\"x\"]:::hot\nA --> B",
		},
		{
			name: "class suffix without shape becomes a class statement",
			in:   "graph LR\nA:::hot --> B",
			want: "graph LR\nA --> B\nclass A hot",
		},
		{
			name: "fan-out expands to one edge per target",
			in:   "graph LR\nA --> B[\"x\"] & C",
			want: "graph LR\nB[\"x\"]\nA --> B\nA --> C",
		},
		{
			name: "fan-in expands to one edge per source",
			in:   "graph LR\nA & B --> C[Sink]",
			want: "graph LR\nC[Sink]\nA --> C\nB --> C",
		},
		{
			name: "trailing comment moves to its own line",
			in:   "graph LR\nA --> B[\"x\"] %% note",
			want: "graph LR\nB[\"x\"]\nA --> B\n%% note",
		},
		{
			name: "semicolons split statements",
			in:   "graph LR\nA-->B[\"x\"];C-->D",
			want: "graph LR\nB[\"x\"]\nA --> B\nC --> D",
		},
		{
			name: "quoted label may hold parens",
			in:   "graph LR\nA --> B(\"has (paren)\")",
			want: "graph LR\nB(\"has (paren)\")\nA --> B",
		},
		{
			name: "late header moves to the front and keeps earlier edges",
			in:   "A --> B\ngraph TD\nC --> D",
			want: "graph TD\nA --> B\nC --> D",
		},
		{
			name: "prose before a late header is dropped",
			in:   "Sure, here it is\nA[Api] --> B\ngraph TD\nB --> C",
			want: "graph TD\nA[Api]\nA --> B\nB --> C",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, diagram.Sanitize(tt.in))
		})
	}
}

var corpus = []string{
	"",
	"   ",
	"graph",
	"no diagram at all, just prose",
	"api --|MISS| cb[\"Circuit Breaker\"]",
	"graph LR\napi --|MISS| cb[\"Circuit Breaker\"]\nworker --|MISS| cb[\"Circuit Breaker\"]",
	"```mermaid\ngraph TB\nclient((User)) -->|HTTPS| gw{Gateway} --> svc[(Orders DB)]\n```",
	"flowchart LR\nA -.-> B\nB ==> C\nC --o D\nD --x E\nE <-> F\nF -> G",
	"graph LR\nedge ---|implements| \"Rate limiting\"\nedge ---|implements| \"Rate limiting\"",
	"graph LR\nA --> \"¡Señal!\"\nB[Ünïcödé → test]",
	"intro\ngraph RL\nx1 --> y1\ngraph LR\nz1 --> x1",
	"graph LR\nA --> B & C\nclassDef hot fill:#f00\nclass A hot",
	"graph LR\nA -- label text --> B[\"Dest\"]\nB --- C",
	"graph LR\n```\nA-->B\n",
	"graph TD;\n  a[one];\n  a-->b;\n  b-->|yes|c{ok?};",
	`graph LR\n\nA["x\ny"] --> B`,
	"graph LR\nA --> B[\"x\"]:::hot",
	"graph LR\nA --> B[\"x\"] & C",
	"graph LR\nA --> B[\"x\"] %% note",
	"graph LR\nA-->B[\"x\"];C-->D",
	"graph LR\nA --> B(\"has (paren)\")",
	"graph LR\nA & B[Both] --> C[(Store)]:::db --> \"Audit log\"",
	"graph LR\nx[\"a [b]\"] -->|go; now| y{{\"c {d}\"}} %% trailing; comment",
	"A --> B\ngraph TD\nC --> D",
}

func TestSanitize_Idempotent(t *testing.T) {
	for _, in := range corpus {
		once := diagram.Sanitize(in)
		twice := diagram.Sanitize(once)
		assert.Equal(t, once, twice, "input: %q", in)
	}
}

func TestSanitize_OutputContract(t *testing.T) {
	for _, in := range corpus {
		out := diagram.Sanitize(in)

		first := ""
		for _, l := range strings.Split(out, "\n") {
			if strings.TrimSpace(l) != "" {
				first = strings.TrimSpace(l)
				break
			}
		}
		assert.True(t, strings.HasPrefix(first, "graph") || strings.HasPrefix(first, "flowchart"), "input: %q output: %q", in, out)
		assert.NoError(t, diagram.Validate(diagram.Parse(out)), "input: %q output: %q", in, out)
	}
}

func TestSanitize_NoInlineDefinitionOnEdges(t *testing.T) {
	for _, in := range corpus {
		out := diagram.Sanitize(in)
		for _, e := range diagram.Parse(out).Edges() {
			assert.Empty(t, e.Shape, "input: %q edge: %q", in, e.Raw)
		}
	}
}

func TestToASCII(t *testing.T) {
	assert.Equal(t, `"Cafe" -> a<=b ... x`, diagram.ToASCII("“Café” → a≤b … x"))
	assert.Equal(t, "nino", diagram.ToASCII("niño"))
	assert.Equal(t, "ok", diagram.ToASCII("ok🚀"))
}
