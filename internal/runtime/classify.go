package runtime

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/aretw0/clarify/pkg/domain"
	"github.com/aretw0/clarify/pkg/ports"
)

// classify routes the session after the user replied.
func (e *Engine) classify(ctx context.Context, s *domain.State) error {
	if s.Interpretation == nil {
		return precondition(domain.PhaseClassifying, domain.ErrMissingInterpretation)
	}

	msg, ok := s.LastUserMessage()
	if !ok || strings.TrimSpace(msg.Content) == "" {
		// Nothing to classify: ask again without consuming a correction.
		s.Confirmed = false
		s.Phase = domain.PhaseInterpreting
		return nil
	}

	outcome, err := e.classifier.Classify(ctx, msg.Content)
	if err != nil {
		return upstream(domain.PhaseClassifying, fmt.Errorf("classify reply: %w", err))
	}

	e.logger.Info("reply classified", "session_id", s.SessionID, "outcome", outcome, "iteration", s.IterationCount)
	if e.hooks.OnClassified != nil {
		e.hooks.OnClassified(ctx, &domain.ClassificationEvent{
			EventBase: domain.EventBase{Timestamp: e.now(), Type: domain.EventClassified, SessionID: s.SessionID},
			Outcome:   outcome,
		})
	}

	ApplyOutcome(s, outcome, msg.Content)
	return nil
}

// ApplyOutcome folds a classification into the state and picks the next phase.
// Unknown outcomes are treated as corrections.
func ApplyOutcome(s *domain.State, outcome domain.Outcome, reply string) {
	switch outcome {
	case domain.OutcomeConfirmed:
		s.Confirmed = true
		s.Phase = domain.PhaseFinalizing
	case domain.OutcomeRejected:
		s.Confirmed = false
		s.Interpretation = nil
		s.Corrections = []string{}
		s.Phase = domain.PhaseInterpreting
	default:
		s.Confirmed = false
		s.Corrections = append(s.Corrections, reply)
		s.Phase = domain.PhaseInterpreting
	}
}

var labelPattern = regexp.MustCompile(`(?i)\b(CONFIRMED|CORRECTED|REJECTED)\b`)

// ParseLabel scans free text for classification labels. Exactly one distinct
// label wins; no label or several different labels fall back to Corrected.
func ParseLabel(text string) domain.Outcome {
	found := map[domain.Outcome]struct{}{}
	for _, m := range labelPattern.FindAllString(text, -1) {
		if o, ok := domain.ParseOutcome(m); ok {
			found[o] = struct{}{}
		}
	}
	if len(found) == 1 {
		for o := range found {
			return o
		}
	}
	return domain.OutcomeCorrected
}

// LLMClassifier asks the generator to label a reply.
type LLMClassifier struct {
	generator    ports.Generator
	prompts      ports.PromptLibrary
	interpolator Interpolator
	temperature  float32
}

// ClassifierOption configures an LLMClassifier.
type ClassifierOption func(*LLMClassifier)

// WithClassifierPrompts sets the prompt library.
func WithClassifierPrompts(lib ports.PromptLibrary) ClassifierOption {
	return func(c *LLMClassifier) {
		c.prompts = NewPromptLibrary(lib)
	}
}

// WithClassifierInterpolator sets the prompt renderer.
func WithClassifierInterpolator(i Interpolator) ClassifierOption {
	return func(c *LLMClassifier) {
		if i != nil {
			c.interpolator = i
		}
	}
}

// WithClassifierTemperature sets the temperature used when the classify
// prompt does not carry one.
func WithClassifierTemperature(t float32) ClassifierOption {
	return func(c *LLMClassifier) {
		c.temperature = t
	}
}

// NewLLMClassifier creates a generator-backed classifier.
func NewLLMClassifier(gen ports.Generator, opts ...ClassifierOption) *LLMClassifier {
	c := &LLMClassifier{
		generator:    gen,
		prompts:      NewPromptLibrary(nil),
		interpolator: DefaultInterpolator,
		temperature:  DefaultClassifyTemperature,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify runs a single deterministic generation; it never retries.
func (c *LLMClassifier) Classify(ctx context.Context, reply string) (domain.Outcome, error) {
	tpl, err := c.prompts.Prompt(domain.PromptClassify)
	if err != nil {
		return "", err
	}
	prompt, err := c.interpolator(ctx, tpl.Body, ClassifyData{Reply: reply})
	if err != nil {
		return "", fmt.Errorf("render classify prompt: %w", err)
	}

	t := c.temperature
	if tpl.Temperature != nil {
		t = *tpl.Temperature
	}
	text, err := c.generator.GenerateText(ctx, prompt, ports.WithTemperature(t))
	if err != nil {
		return "", err
	}
	return ParseLabel(text), nil
}

// KeywordClassifier labels replies with fixed phrase lists. It needs no model
// and is used in offline mode.
type KeywordClassifier struct {
	Confirm []string
	Reject  []string
}

// NewKeywordClassifier returns a classifier with the default phrase lists.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{
		Confirm: []string{
			"yes", "y", "yep", "yeah", "sure", "ok", "okay", "correct", "right",
			"that's right", "thats right", "looks good", "sounds good", "perfect",
			"exactly", "confirmed", "proceed", "go ahead", "lgtm",
		},
		Reject: []string{
			"start over", "forget it", "completely wrong", "all wrong", "restart",
			"scrap that", "never mind", "nevermind", "from scratch",
		},
	}
}

var nonWord = regexp.MustCompile(`[^a-z0-9' ]+`)

// Classify never fails. Replies matching a reject phrase are Rejected, replies
// that consist only of a confirm phrase are Confirmed, everything else is Corrected.
func (k *KeywordClassifier) Classify(_ context.Context, reply string) (domain.Outcome, error) {
	norm := strings.Join(strings.Fields(nonWord.ReplaceAllString(strings.ToLower(reply), " ")), " ")

	for _, p := range k.Reject {
		if containsPhrase(norm, p) {
			return domain.OutcomeRejected, nil
		}
	}
	for _, p := range k.Confirm {
		if norm == p {
			return domain.OutcomeConfirmed, nil
		}
	}
	return domain.OutcomeCorrected, nil
}

func containsPhrase(text, phrase string) bool {
	return text == phrase ||
		strings.HasPrefix(text, phrase+" ") ||
		strings.HasSuffix(text, " "+phrase) ||
		strings.Contains(text, " "+phrase+" ")
}
