// Package genai implements ports.Generator on the Gemini API.
package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/clarify/internal/logging"
	"github.com/aretw0/clarify/pkg/domain"
	"github.com/aretw0/clarify/pkg/ports"
	"google.golang.org/genai"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "gemini-2.5-flash"

// ErrMissingAPIKey is returned by New without an API key.
var ErrMissingAPIKey = errors.New("genai: API key is required")

// ErrEmptyResponse is returned when the model answers without text.
var ErrEmptyResponse = errors.New("genai: empty response")

// Config selects the model and credentials.
type Config struct {
	APIKey  string
	Model   string
	Timeout time.Duration

	// BaseURL overrides the API endpoint.
	BaseURL string
}

// Generator calls Gemini through the google.golang.org/genai client.
type Generator struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures the Generator.
type Option func(*Generator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// New creates a Gemini generator.
func New(ctx context.Context, cfg Config, opts ...Option) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	g := &Generator{
		client:  client,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Model returns the configured model name.
func (g *Generator) Model() string {
	return g.model
}

// GenerateStructured asks for a JSON object conforming to schema.
func (g *Generator) GenerateStructured(ctx context.Context, prompt string, schema *domain.Schema, opts ...ports.GenerateOption) (map[string]any, error) {
	cfg := g.config(opts)
	cfg.ResponseMIMEType = "application/json"
	cfg.ResponseSchema = ToSchema(schema)

	text, err := g.generate(ctx, prompt, cfg)
	if err != nil {
		return nil, err
	}

	var record map[string]any
	if err := json.Unmarshal([]byte(stripFence(text)), &record); err != nil {
		return nil, fmt.Errorf("genai: response is not a JSON object: %w", err)
	}
	return record, nil
}

// GenerateText returns free-form text.
func (g *Generator) GenerateText(ctx context.Context, prompt string, opts ...ports.GenerateOption) (string, error) {
	return g.generate(ctx, prompt, g.config(opts))
}

func (g *Generator) config(opts []ports.GenerateOption) *genai.GenerateContentConfig {
	o := ports.ApplyGenerateOptions(opts...)
	cfg := &genai.GenerateContentConfig{}
	if o.Temperature != nil {
		cfg.Temperature = genai.Ptr(*o.Temperature)
	}
	if o.SystemInstruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(o.SystemInstruction, genai.RoleUser)
	}
	return cfg
}

func (g *Generator) generate(ctx context.Context, prompt string, cfg *genai.GenerateContentConfig) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("genai: generate failed: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	g.logger.Debug("genai call finished",
		"model", g.model,
		"duration", time.Since(start),
		"structured", cfg.ResponseSchema != nil,
		"chars", len(text),
	)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// ToSchema converts a domain schema to the GenAI representation.
func ToSchema(s *domain.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        schemaType(s.Type),
		Description: s.Description,
		Enum:        s.Enum,
		Required:    s.Required,
		Items:       ToSchema(s.Items),
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, p := range s.Properties {
			out.Properties[name] = ToSchema(p)
		}
	}
	return out
}

func schemaType(t domain.SchemaType) genai.Type {
	switch t {
	case domain.SchemaObject:
		return genai.TypeObject
	case domain.SchemaArray:
		return genai.TypeArray
	case domain.SchemaNumber:
		return genai.TypeNumber
	case domain.SchemaBoolean:
		return genai.TypeBoolean
	}
	return genai.TypeString
}

// stripFence removes a markdown code fence some models wrap JSON in.
func stripFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimPrefix(text, "json")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
