// Package genai implements the generation oracle on the Gemini API.
package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/archguide/internal/logging"
	"github.com/aretw0/archguide/internal/prompt"
	"github.com/aretw0/archguide/pkg/domain"
	"google.golang.org/genai"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

// generator is the slice of the genai client the oracle needs.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Oracle implements ports.Oracle.
type Oracle struct {
	models      generator
	model       string
	temperature *float32
	timeout     time.Duration
	retries     int
	backoff     time.Duration
	logger      *slog.Logger
}

// Option configures the Oracle.
type Option func(*Oracle)

// WithModel selects the model name.
func WithModel(model string) Option {
	return func(o *Oracle) {
		if model != "" {
			o.model = model
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) Option {
	return func(o *Oracle) {
		o.temperature = genai.Ptr(t)
	}
}

// WithTimeout bounds every single call.
func WithTimeout(d time.Duration) Option {
	return func(o *Oracle) {
		o.timeout = d
	}
}

// WithRetries retries failed calls n times, backing off linearly.
func WithRetries(n int, backoff time.Duration) Option {
	return func(o *Oracle) {
		o.retries = n
		o.backoff = backoff
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Oracle) {
		o.logger = logger
	}
}

// New connects to the Gemini API.
func New(ctx context.Context, apiKey string, opts ...Option) (*Oracle, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("genai: api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return newOracle(client.Models, opts...), nil
}

func newOracle(models generator, opts ...Option) *Oracle {
	o := &Oracle{
		models:  models,
		model:   DefaultModel,
		timeout: 60 * time.Second,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Generate returns free text.
func (o *Oracle) Generate(ctx context.Context, msgs []domain.Message) (string, error) {
	contents, cfg := o.request(msgs)
	text, err := o.call(ctx, contents, cfg)
	if err != nil {
		return "", err
	}
	return text, nil
}

// GenerateStructured asks for JSON conforming to schema and decodes it.
func (o *Oracle) GenerateStructured(ctx context.Context, msgs []domain.Message, schema map[string]any) (map[string]any, error) {
	contents, cfg := o.request(msgs)
	cfg.ResponseMIMEType = "application/json"
	cfg.ResponseJsonSchema = schema

	text, err := o.call(ctx, contents, cfg)
	if err != nil {
		return nil, err
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err == nil {
		return obj, nil
	}
	obj, err = prompt.ExtractObject(text)
	if err != nil {
		return nil, fmt.Errorf("%w: structured reply is not a JSON object: %w", domain.ErrGeneration, err)
	}
	return obj, nil
}

// request maps the prompt onto Gemini contents. System messages become the
// system instruction; assistant messages are sent as model turns.
func (o *Oracle) request(msgs []domain.Message) ([]*genai.Content, *genai.GenerateContentConfig) {
	cfg := &genai.GenerateContentConfig{Temperature: o.temperature}
	var system []string
	var contents []*genai.Content
	for _, m := range msgs {
		switch m.Role {
		case domain.RoleSystem:
			system = append(system, m.Content)
		case domain.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	if len(system) > 0 {
		cfg.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}
	if len(contents) == 0 {
		contents = append(contents, genai.NewContentFromText("Go ahead.", genai.RoleUser))
	}
	return contents, cfg
}

func (o *Oracle) call(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= o.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %w", domain.ErrGeneration, ctx.Err())
			case <-time.After(time.Duration(attempt) * o.backoff):
			}
		}
		text, err := o.once(ctx, contents, cfg)
		if err == nil {
			return text, nil
		}
		lastErr = err
		o.logger.Warn("generation attempt failed", "model", o.model, "attempt", attempt+1, "err", err)
	}
	return "", fmt.Errorf("%w: %w", domain.ErrGeneration, lastErr)
}

func (o *Oracle) once(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	resp, err := o.models.GenerateContent(ctx, o.model, contents, cfg)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("empty response from %s", o.model)
	}
	return text, nil
}
