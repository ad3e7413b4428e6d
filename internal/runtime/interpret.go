package runtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/clarify/pkg/domain"
	"github.com/aretw0/clarify/pkg/ports"
	"github.com/mitchellh/mapstructure"
)

// interpret asks the generator for a structured reading of the request.
func (e *Engine) interpret(ctx context.Context, s *domain.State) error {
	prompt, tpl, err := e.render(ctx, domain.PromptInterpret, InterpretData{
		RawInput:    s.RawInput,
		Corrections: s.Corrections,
	})
	if err != nil {
		return precondition(domain.PhaseInterpreting, err)
	}

	record, err := e.generator.GenerateStructured(ctx, prompt, domain.InterpretationSchema,
		ports.WithTemperature(e.temperature(tpl, e.interpretTemp)),
	)
	if err != nil {
		return upstream(domain.PhaseInterpreting, fmt.Errorf("generate interpretation: %w", err))
	}

	in, err := DecodeInterpretation(record)
	if err != nil {
		return upstream(domain.PhaseInterpreting, err)
	}

	s.Interpretation = &in
	s.IterationCount++
	s.Phase = domain.PhasePresenting
	return nil
}

// DecodeInterpretation converts a generated record into a validated Interpretation.
// Every schema field must be present.
func DecodeInterpretation(record map[string]any) (domain.Interpretation, error) {
	var in domain.Interpretation
	for _, key := range domain.InterpretationSchema.Required {
		if _, ok := record[key]; !ok {
			return in, fmt.Errorf("%w: missing field %q", domain.ErrInvalidInterpretation, key)
		}
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  &in,
		TagName: "mapstructure",
	})
	if err != nil {
		return in, err
	}
	if err := dec.Decode(record); err != nil {
		return in, fmt.Errorf("%w: %v", domain.ErrInvalidInterpretation, err)
	}

	in.Domain = strings.TrimSpace(in.Domain)
	in.Goal = strings.TrimSpace(in.Goal)
	in.Confidence = domain.Confidence(strings.ToLower(strings.TrimSpace(string(in.Confidence))))
	if in.Assumptions == nil && record["assumptions"] != nil {
		in.Assumptions = []string{}
	}

	if err := in.Validate(); err != nil {
		return in, err
	}
	return in, nil
}
