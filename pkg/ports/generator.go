package ports

import (
	"context"

	"github.com/aretw0/clarify/pkg/domain"
)

// GenerateOptions tune a single generation call.
type GenerateOptions struct {
	// Temperature overrides the model default when set.
	Temperature *float32
	// SystemInstruction is prepended by adapters that support it.
	SystemInstruction string
}

// GenerateOption mutates GenerateOptions.
type GenerateOption func(*GenerateOptions)

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) GenerateOption {
	return func(o *GenerateOptions) {
		o.Temperature = &t
	}
}

// WithSystemInstruction sets a system instruction.
func WithSystemInstruction(s string) GenerateOption {
	return func(o *GenerateOptions) {
		o.SystemInstruction = s
	}
}

// ApplyGenerateOptions folds opts into a GenerateOptions value.
func ApplyGenerateOptions(opts ...GenerateOption) GenerateOptions {
	var o GenerateOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Generator is the language generation collaborator.
type Generator interface {
	// GenerateStructured returns a record conforming to schema.
	GenerateStructured(ctx context.Context, prompt string, schema *domain.Schema, opts ...GenerateOption) (map[string]any, error)

	// GenerateText returns free text.
	GenerateText(ctx context.Context, prompt string, opts ...GenerateOption) (string, error)
}

// Searcher is the optional external lookup collaborator.
type Searcher interface {
	// Search returns text snippets relevant to query, most relevant first.
	Search(ctx context.Context, query string) ([]string, error)
}

// Classifier decides how a user reply relates to the presented interpretation.
type Classifier interface {
	Classify(ctx context.Context, reply string) (domain.Outcome, error)
}

// PromptLibrary resolves prompt templates by name.
type PromptLibrary interface {
	Prompt(name string) (domain.PromptTemplate, error)
}
