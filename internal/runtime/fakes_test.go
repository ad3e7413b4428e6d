package runtime_test

import (
	"context"
	"errors"
	"sync"

	"github.com/aretw0/clarify/pkg/domain"
	"github.com/aretw0/clarify/pkg/ports"
)

// fakeGenerator returns scripted records and texts, recording every prompt.
type fakeGenerator struct {
	mu sync.Mutex

	records []map[string]any
	texts   []string
	err     error

	structuredPrompts []string
	textPrompts       []string
	temperatures      []float32
}

func interpretation(domainName, goal string, assumptions ...string) map[string]any {
	as := make([]any, len(assumptions))
	for i, a := range assumptions {
		as[i] = a
	}
	return map[string]any{
		"domain":      domainName,
		"goal":        goal,
		"assumptions": as,
		"confidence":  "High",
	}
}

func (g *fakeGenerator) GenerateStructured(_ context.Context, prompt string, _ *domain.Schema, opts ...ports.GenerateOption) (map[string]any, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.structuredPrompts = append(g.structuredPrompts, prompt)
	g.recordTemp(opts)
	if g.err != nil {
		return nil, g.err
	}
	if len(g.records) == 0 {
		return nil, errors.New("no scripted record")
	}
	r := g.records[0]
	if len(g.records) > 1 {
		g.records = g.records[1:]
	}
	return r, nil
}

func (g *fakeGenerator) GenerateText(_ context.Context, prompt string, opts ...ports.GenerateOption) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.textPrompts = append(g.textPrompts, prompt)
	g.recordTemp(opts)
	if g.err != nil {
		return "", g.err
	}
	if len(g.texts) == 0 {
		return "", errors.New("no scripted text")
	}
	t := g.texts[0]
	g.texts = g.texts[1:]
	return t, nil
}

func (g *fakeGenerator) recordTemp(opts []ports.GenerateOption) {
	o := ports.ApplyGenerateOptions(opts...)
	if o.Temperature != nil {
		g.temperatures = append(g.temperatures, *o.Temperature)
	}
}

type fakeSearcher struct {
	results []string
	err     error
	queries []string
}

func (s *fakeSearcher) Search(_ context.Context, query string) ([]string, error) {
	s.queries = append(s.queries, query)
	return s.results, s.err
}

func ptr(s string) *string { return &s }
