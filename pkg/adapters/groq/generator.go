// Package groq implements ports.Generator on Groq's OpenAI-compatible chat
// completions API. Any endpoint speaking the same protocol works through
// Config.BaseURL.
package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/clarify/internal/logging"
	"github.com/aretw0/clarify/pkg/domain"
	"github.com/aretw0/clarify/pkg/ports"
)

const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "llama-3.3-70b-versatile"
)

// ErrMissingAPIKey is returned by New without an API key.
var ErrMissingAPIKey = errors.New("groq: API key is required")

// ErrEmptyResponse is returned when the model answers without text.
var ErrEmptyResponse = errors.New("groq: empty response")

// Config selects the model, endpoint and credentials.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Generator calls a chat completions endpoint over plain HTTP.
type Generator struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// Option configures the Generator.
type Option func(*Generator)

// WithHTTPClient replaces the HTTP client. Config.Timeout is ignored then.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Generator) {
		if c != nil {
			g.client = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// New creates a generator. Model and BaseURL fall back to the Groq defaults.
func New(cfg Config, opts ...Option) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	g := &Generator{
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
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

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []message       `json:"messages"`
	Temperature    *float32        `json:"temperature,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// GenerateStructured asks for a JSON object. JSON mode does not take a
// schema, so the schema is sent as part of the system message.
func (g *Generator) GenerateStructured(ctx context.Context, prompt string, schema *domain.Schema, opts ...ports.GenerateOption) (map[string]any, error) {
	o := ports.ApplyGenerateOptions(opts...)

	system := o.SystemInstruction
	if schema != nil {
		raw, err := json.Marshal(schema)
		if err != nil {
			return nil, fmt.Errorf("groq: encode schema: %w", err)
		}
		if system != "" {
			system += "\n\n"
		}
		system += "Respond with a single JSON object matching this JSON schema:\n" + string(raw)
	}

	text, err := g.complete(ctx, chatRequest{
		Messages:       messages(system, prompt),
		Temperature:    o.Temperature,
		ResponseFormat: &responseFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, err
	}

	var record map[string]any
	if err := json.Unmarshal([]byte(stripFence(text)), &record); err != nil {
		return nil, fmt.Errorf("groq: response is not a JSON object: %w", err)
	}
	return record, nil
}

// GenerateText returns free-form text.
func (g *Generator) GenerateText(ctx context.Context, prompt string, opts ...ports.GenerateOption) (string, error) {
	o := ports.ApplyGenerateOptions(opts...)
	return g.complete(ctx, chatRequest{
		Messages:    messages(o.SystemInstruction, prompt),
		Temperature: o.Temperature,
	})
}

func messages(system, prompt string) []message {
	var out []message
	if system != "" {
		out = append(out, message{Role: "system", Content: system})
	}
	return append(out, message{Role: "user", Content: prompt})
}

func (g *Generator) complete(ctx context.Context, body chatRequest) (string, error) {
	body.Model = g.model
	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("groq: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("groq: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("groq: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("groq: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("groq: decode response: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("groq: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	text := strings.TrimSpace(out.Choices[0].Message.Content)
	g.logger.Debug("groq call finished",
		"model", g.model,
		"duration", time.Since(start),
		"structured", body.ResponseFormat != nil,
		"chars", len(text),
	)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

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
