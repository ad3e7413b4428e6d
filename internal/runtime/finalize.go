package runtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/clarify/pkg/domain"
	"github.com/aretw0/clarify/pkg/ports"
)

// finalize produces the research summary for a confirmed interpretation.
func (e *Engine) finalize(ctx context.Context, s *domain.State) error {
	if s.Interpretation == nil {
		return precondition(domain.PhaseFinalizing, domain.ErrMissingInterpretation)
	}
	if !s.Confirmed {
		return precondition(domain.PhaseFinalizing, fmt.Errorf("interpretation not confirmed"))
	}
	in := s.Interpretation

	prompt, tpl, err := e.render(ctx, domain.PromptFinalize, FinalizeData{
		Domain:      in.Domain,
		Goal:        in.Goal,
		Assumptions: in.Assumptions,
	})
	if err != nil {
		return precondition(domain.PhaseFinalizing, err)
	}

	if snippets := e.lookup(ctx, s.SessionID, in.Goal); len(snippets) > 0 {
		prompt += "\n\n" + WebContextHeader + "\n" + strings.Join(snippets, "\n---\n")
	}

	text, err := e.generator.GenerateText(ctx, prompt, ports.WithTemperature(e.temperature(tpl, e.finalizeTemp)))
	if err != nil {
		return upstream(domain.PhaseFinalizing, fmt.Errorf("generate final output: %w", err))
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return upstream(domain.PhaseFinalizing, domain.ErrEmptyResult)
	}

	s.FinalOutput = append(s.FinalOutput, text)
	s.Messages = append(s.Messages, domain.AssistantMessage(text))
	s.Phase = domain.PhaseDone
	return nil
}

// lookup queries the optional searcher. Failures are logged and swallowed.
func (e *Engine) lookup(ctx context.Context, sessionID, query string) []string {
	if e.searcher == nil || e.snippets == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, e.searchTimeout)
	defer cancel()

	results, err := e.searcher.Search(ctx, query)
	if err != nil {
		e.logger.Warn("search failed, continuing without web context", "session_id", sessionID, "err", err)
		return nil
	}

	out := make([]string, 0, e.snippets)
	for _, r := range results {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
		if len(out) == e.snippets {
			break
		}
	}
	return out
}
