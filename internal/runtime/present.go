package runtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/clarify/pkg/domain"
)

// present renders the interpretation and leaves the state suspended.
func (e *Engine) present(_ context.Context, s *domain.State) error {
	if s.Interpretation == nil {
		return precondition(domain.PhasePresenting, domain.ErrMissingInterpretation)
	}
	s.Prompt = RenderInterpretation(*s.Interpretation)
	s.Phase = domain.PhasePresenting
	return nil
}

// RenderInterpretation produces the confirmation text shown to the user.
// The output depends only on the interpretation.
func RenderInterpretation(in domain.Interpretation) string {
	var b strings.Builder
	b.WriteString("Here's what I understood:\n")
	fmt.Fprintf(&b, "  - Domain: %s\n", in.Domain)
	fmt.Fprintf(&b, "  - Goal: %s\n", in.Goal)
	b.WriteString("  - Assumptions made:\n")
	if len(in.Assumptions) == 0 {
		b.WriteString("      • None\n")
	}
	for _, a := range in.Assumptions {
		fmt.Fprintf(&b, "      • %s\n", a)
	}
	fmt.Fprintf(&b, "  - Confidence: %s\n", strings.ToUpper(string(in.Confidence)))
	b.WriteString("\nIs this correct? Reply 'yes' to proceed, or tell me what to change.")
	return b.String()
}
