package clarify

import (
	"log/slog"

	"github.com/aretw0/clarify/internal/runtime"
	"github.com/aretw0/clarify/pkg/ports"
)

// EngineOption configures the workflow engine built by NewEngine.
type EngineOption = runtime.EngineOption

// Engine options re-exported from the runtime.
var (
	WithSearcher            = runtime.WithSearcher
	WithClassifier          = runtime.WithClassifier
	WithPrompts             = runtime.WithPrompts
	WithLifecycleHooks      = runtime.WithLifecycleHooks
	WithTemperatures        = runtime.WithTemperatures
	WithClassifyTemperature = runtime.WithClassifyTemperature
	WithSearchSnippets      = runtime.WithSearchSnippets
	WithSearchTimeout       = runtime.WithSearchTimeout
)

// WithEngineLogger sets the logger used by the steps.
func WithEngineLogger(logger *slog.Logger) EngineOption {
	return runtime.WithLogger(logger)
}

// WithKeywordClassifier classifies replies by phrase matching instead of
// asking the model. Useful offline.
func WithKeywordClassifier() EngineOption {
	return runtime.WithClassifier(runtime.NewKeywordClassifier())
}

// NewEngine builds the clarification workflow around a generator.
func NewEngine(gen ports.Generator, opts ...EngineOption) ports.Workflow {
	return runtime.NewEngine(gen, opts...)
}

// NewWithGenerator is shorthand for New(NewEngine(gen, engineOpts...), store, opts...).
func NewWithGenerator(gen ports.Generator, store ports.SessionStore, engineOpts []EngineOption, opts ...Option) *Service {
	return New(NewEngine(gen, engineOpts...), store, opts...)
}
