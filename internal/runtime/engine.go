package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/clarify/internal/logging"
	"github.com/aretw0/clarify/pkg/domain"
	"github.com/aretw0/clarify/pkg/ports"
)

// Default generation settings per step.
const (
	DefaultInterpretTemperature float32 = 0.3
	DefaultClassifyTemperature  float32 = 0.0
	DefaultFinalizeTemperature  float32 = 0.7

	DefaultSearchSnippets = 2
	DefaultSearchTimeout  = 10 * time.Second
)

// Engine is the clarification state machine.
// It is stateless: every call works on a snapshot of the state it receives.
type Engine struct {
	generator  ports.Generator
	searcher   ports.Searcher
	classifier ports.Classifier
	prompts    ports.PromptLibrary

	interpolator Interpolator
	hooks        domain.LifecycleHooks
	logger       *slog.Logger

	interpretTemp float32
	classifyTemp  float32
	finalizeTemp  float32
	snippets      int
	searchTimeout time.Duration
	now           func() time.Time
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithSearcher enables the optional lookup during finalization.
func WithSearcher(s ports.Searcher) EngineOption {
	return func(e *Engine) {
		e.searcher = s
	}
}

// WithClassifier replaces the generator-backed classifier.
func WithClassifier(c ports.Classifier) EngineOption {
	return func(e *Engine) {
		e.classifier = c
	}
}

// WithPrompts layers a prompt library over the built-in prompts.
func WithPrompts(lib ports.PromptLibrary) EngineOption {
	return func(e *Engine) {
		e.prompts = NewPromptLibrary(lib)
	}
}

// WithInterpolator sets a custom prompt renderer.
func WithInterpolator(i Interpolator) EngineOption {
	return func(e *Engine) {
		if i != nil {
			e.interpolator = i
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithTemperatures overrides the interpretation and finalization temperatures.
func WithTemperatures(interpret, finalize float32) EngineOption {
	return func(e *Engine) {
		e.interpretTemp = interpret
		e.finalizeTemp = finalize
	}
}

// WithClassifyTemperature sets the temperature of the generator-backed classifier.
func WithClassifyTemperature(t float32) EngineOption {
	return func(e *Engine) {
		e.classifyTemp = t
	}
}

// WithSearchSnippets caps how many lookup snippets reach the final prompt.
func WithSearchSnippets(n int) EngineOption {
	return func(e *Engine) {
		if n >= 0 {
			e.snippets = n
		}
	}
}

// WithSearchTimeout bounds the optional lookup.
func WithSearchTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.searchTimeout = d
		}
	}
}

// NewEngine creates an engine around a language generator.
func NewEngine(gen ports.Generator, opts ...EngineOption) *Engine {
	e := &Engine{
		generator:     gen,
		prompts:       NewPromptLibrary(nil),
		interpolator:  DefaultInterpolator,
		logger:        logging.NewNop(),
		interpretTemp: DefaultInterpretTemperature,
		classifyTemp:  DefaultClassifyTemperature,
		finalizeTemp:  DefaultFinalizeTemperature,
		snippets:      DefaultSearchSnippets,
		searchTimeout: DefaultSearchTimeout,
		now:           func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.classifier == nil {
		e.classifier = NewLLMClassifier(gen,
			WithClassifierPrompts(e.prompts),
			WithClassifierInterpolator(e.interpolator),
			WithClassifierTemperature(e.classifyTemp),
		)
	}
	return e
}

// Advance runs steps from state.Phase until the session suspends for input
// or completes. A suspended state requires reply; it is consumed by the
// presentation step before classification runs.
//
// The input state is never mutated. On error the caller keeps its last
// snapshot, so a retry starts from the same point.
func (e *Engine) Advance(ctx context.Context, state *domain.State, reply *string) (*domain.State, error) {
	if state == nil {
		return nil, errors.New("advance: nil state")
	}
	next := state.Snapshot()

	switch next.Phase {
	case domain.PhaseDone:
		return nil, domain.ErrSessionCompleted
	case domain.PhasePresenting:
		if reply == nil {
			return nil, domain.ErrEmptyInput
		}
		if err := e.resume(ctx, next, *reply); err != nil {
			return nil, err
		}
	default:
		if !next.Phase.Valid() {
			return nil, fmt.Errorf("advance: unknown phase %q", next.Phase)
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var err error
		switch next.Phase {
		case domain.PhaseInterpreting:
			err = e.runStep(ctx, next, e.interpret)
		case domain.PhasePresenting:
			err = e.runStep(ctx, next, e.present)
			if err == nil {
				e.emitSuspend(ctx, next)
				return next, nil
			}
		case domain.PhaseClassifying:
			err = e.runStep(ctx, next, e.classify)
		case domain.PhaseFinalizing:
			err = e.runStep(ctx, next, e.finalize)
			if err == nil {
				e.emitComplete(ctx, next)
				return next, nil
			}
		default:
			err = fmt.Errorf("advance: no step for phase %q", next.Phase)
		}
		if err != nil {
			return nil, err
		}
	}
}

type stepFunc func(ctx context.Context, s *domain.State) error

// runStep wraps a step with hooks and logging. Steps mutate s and set the next phase.
func (e *Engine) runStep(ctx context.Context, s *domain.State, step stepFunc) error {
	phase := s.Phase
	start := time.Now()

	if e.hooks.OnStepEnter != nil {
		e.hooks.OnStepEnter(ctx, e.stepEvent(domain.EventStepEnter, s, phase))
	}
	e.logger.Debug("step enter", "session_id", s.SessionID, "phase", phase, "iteration", s.IterationCount)

	err := step(ctx, s)

	if e.hooks.OnStepLeave != nil {
		ev := e.stepEvent(domain.EventStepLeave, s, phase)
		ev.Duration = time.Since(start)
		ev.Err = err
		e.hooks.OnStepLeave(ctx, ev)
	}

	if err != nil {
		e.logger.Warn("step failed", "session_id", s.SessionID, "phase", phase, "err", err)
		var se *domain.StepError
		if errors.As(err, &se) {
			return err
		}
		return &domain.StepError{Phase: phase, Kind: domain.KindUpstream, Err: err}
	}
	e.logger.Debug("step leave", "session_id", s.SessionID, "phase", phase, "next", s.Phase)
	return nil
}

func (e *Engine) stepEvent(t domain.EventType, s *domain.State, phase domain.Phase) *domain.StepEvent {
	return &domain.StepEvent{
		EventBase: domain.EventBase{Timestamp: e.now(), Type: t, SessionID: s.SessionID},
		Phase:     phase,
		Iteration: s.IterationCount,
	}
}

func (e *Engine) emitSuspend(ctx context.Context, s *domain.State) {
	e.logger.Info("session suspended", "session_id", s.SessionID, "iteration", s.IterationCount)
	if e.hooks.OnSuspend != nil {
		e.hooks.OnSuspend(ctx, e.stepEvent(domain.EventSuspend, s, s.Phase))
	}
}

func (e *Engine) emitComplete(ctx context.Context, s *domain.State) {
	e.logger.Info("session completed", "session_id", s.SessionID, "iteration", s.IterationCount)
	if e.hooks.OnComplete != nil {
		e.hooks.OnComplete(ctx, e.stepEvent(domain.EventComplete, s, s.Phase))
	}
}

func precondition(phase domain.Phase, err error) error {
	return &domain.StepError{Phase: phase, Kind: domain.KindPrecondition, Err: err}
}

func upstream(phase domain.Phase, err error) error {
	return &domain.StepError{Phase: phase, Kind: domain.KindUpstream, Err: err}
}

// resume records the reply to a suspended presentation.
func (e *Engine) resume(ctx context.Context, s *domain.State, reply string) error {
	if strings.TrimSpace(reply) == "" {
		return domain.ErrEmptyInput
	}
	if s.Interpretation == nil {
		return precondition(domain.PhasePresenting, domain.ErrMissingInterpretation)
	}
	s.Messages = append(s.Messages,
		domain.AssistantMessage(s.Prompt),
		domain.UserMessage(reply),
	)
	s.Prompt = ""
	s.Phase = domain.PhaseClassifying
	return nil
}

func (e *Engine) temperature(tpl domain.PromptTemplate, fallback float32) float32 {
	if tpl.Temperature != nil {
		return *tpl.Temperature
	}
	return fallback
}
