package diagram_test

import (
	"testing"

	"github.com/aretw0/archguide/internal/diagram"
	"github.com/aretw0/archguide/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	g := diagram.Parse("graph LR\ncb[\"Circuit Breaker\"]\napi --|MISS| cb\n%% note")

	hdr, ok := g.Header()
	require.True(t, ok)
	assert.Equal(t, "graph LR", hdr.Raw)
	assert.Equal(t, []string{"cb"}, g.Declarations())

	edges := g.Edges()
	require.Len(t, edges, 1)
	assert.Equal(t, "api", edges[0].Source)
	assert.Equal(t, "--", edges[0].Operator)
	assert.Equal(t, "MISS", edges[0].EdgeLabel)
	assert.Equal(t, "cb", edges[0].Target)
	assert.Empty(t, edges[0].Shape)
	assert.Equal(t, domain.LineOther, g.Lines[3].Kind)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		text string
		want error
	}{
		{"valid", "graph LR\nA[One]\nA --> B", nil},
		{"leading blank ok", "\n\ngraph LR\nA --> B", nil},
		{"missing header", "A --> B", diagram.ErrMissingHeader},
		{"empty", "", diagram.ErrMissingHeader},
		{"inline declaration", "graph LR\napi --|MISS| cb[\"Circuit Breaker\"]", diagram.ErrInlineDeclaration},
		{"quoted destination", "graph LR\nA --> \"text\"", diagram.ErrInlineDeclaration},
		{"duplicate", "graph LR\nA[One]\nA[Two]", diagram.ErrDuplicateDecl},
		{"late", "graph LR\nA --> B\nB[Bee]", diagram.ErrLateDeclaration},
		{"non ascii", "graph LR\nA[Caché]", diagram.ErrNonASCII},
		{"inline declaration before class", "graph LR\nA --> B[\"x\"]:::hot", diagram.ErrInlineDeclaration},
		{"inline declaration in group", "graph LR\nA --> C & B[\"x\"]", diagram.ErrInlineDeclaration},
		{"inline declaration after semicolon", "graph LR\nC --> D;A --> B[\"x\"]", diagram.ErrInlineDeclaration},
		{"inline declaration before comment", "graph LR\nA --> B[\"x\"] %% note", diagram.ErrInlineDeclaration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := diagram.Validate(diagram.Parse(tt.text))
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParse_GroupsAndStatements(t *testing.T) {
	g := diagram.Parse("graph LR\nA & B --> C;C --> D %% tail")

	edges := g.Edges()
	require.Len(t, edges, 3)
	assert.Equal(t, []string{"A", "B", "C"}, []string{edges[0].Source, edges[1].Source, edges[2].Source})
	assert.Equal(t, []string{"C", "C", "D"}, []string{edges[0].Target, edges[1].Target, edges[2].Target})
	assert.Equal(t, "graph LR\nA & B --> C\nC --> D\n%% tail", g.String())
}
