package genai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/archguide/pkg/domain"
	"github.com/aretw0/archguide/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

var _ ports.Oracle = (*Oracle)(nil)

type fakeModels struct {
	replies []string
	errs    []error

	calls   int
	model   string
	configs []*genai.GenerateContentConfig
	content [][]*genai.Content
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	i := f.calls
	f.calls++
	f.model = model
	f.configs = append(f.configs, config)
	f.content = append(f.content, contents)
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	text := ""
	if i < len(f.replies) {
		text = f.replies[i]
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{{Text: text}}},
		}},
	}, nil
}

func TestGenerate_MapsRoles(t *testing.T) {
	f := &fakeModels{replies: []string{"  ADD is a method.  "}}
	o := newOracle(f, WithModel("gemini-test"), WithTemperature(0.1))

	text, err := o.Generate(context.Background(), []domain.Message{
		domain.System("be brief"),
		domain.User("what is ADD?"),
		{Role: domain.RoleAssistant, Content: "earlier answer"},
	})
	require.NoError(t, err)
	assert.Equal(t, "ADD is a method.", text)

	assert.Equal(t, "gemini-test", f.model)
	cfg := f.configs[0]
	require.NotNil(t, cfg.SystemInstruction)
	assert.Equal(t, "be brief", cfg.SystemInstruction.Parts[0].Text)
	require.NotNil(t, cfg.Temperature)
	assert.InDelta(t, 0.1, *cfg.Temperature, 1e-6)

	require.Len(t, f.content[0], 2)
	assert.Equal(t, genai.RoleUser, f.content[0][0].Role)
	assert.Equal(t, genai.RoleModel, f.content[0][1].Role)
}

func TestGenerateStructured(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  map[string]any
		err   bool
	}{
		{"plain json", `{"intent": "asr", "use_rag": true}`, map[string]any{"intent": "asr", "use_rag": true}, false},
		{"fenced json", "Sure:\n```json\n{\"intent\": \"style\"}\n```", map[string]any{"intent": "style"}, false},
		{"no object", "I cannot answer", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeModels{replies: []string{tt.reply}}
			o := newOracle(f)
			schema := map[string]any{"title": "Classification", "type": "object"}

			obj, err := o.GenerateStructured(context.Background(), []domain.Message{domain.User("hi")}, schema)
			if tt.err {
				assert.ErrorIs(t, err, domain.ErrGeneration)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, obj)
			assert.Equal(t, "application/json", f.configs[0].ResponseMIMEType)
			assert.Equal(t, schema, f.configs[0].ResponseJsonSchema)
		})
	}
}

func TestGenerate_Retries(t *testing.T) {
	f := &fakeModels{
		errs:    []error{errors.New("503"), nil},
		replies: []string{"", "recovered"},
	}
	o := newOracle(f, WithRetries(2, time.Millisecond))

	text, err := o.Generate(context.Background(), []domain.Message{domain.User("hi")})
	require.NoError(t, err)
	assert.Equal(t, "recovered", text)
	assert.Equal(t, 2, f.calls)
}

func TestGenerate_FailureIsGenerationError(t *testing.T) {
	f := &fakeModels{errs: []error{errors.New("quota"), errors.New("quota")}}
	o := newOracle(f, WithRetries(1, time.Millisecond))

	_, err := o.Generate(context.Background(), []domain.Message{domain.User("hi")})
	assert.ErrorIs(t, err, domain.ErrGeneration)
	assert.Equal(t, 2, f.calls)
}

func TestGenerate_EmptyReplyFails(t *testing.T) {
	o := newOracle(&fakeModels{replies: []string{"   "}})
	_, err := o.Generate(context.Background(), []domain.Message{domain.User("hi")})
	assert.ErrorIs(t, err, domain.ErrGeneration)
}

func TestNew_RequiresKey(t *testing.T) {
	_, err := New(context.Background(), "")
	assert.Error(t, err)
}
