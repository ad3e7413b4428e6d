package testutils

import (
	"context"
	"errors"
	"sync"

	"github.com/aretw0/clarify/pkg/domain"
	"github.com/aretw0/clarify/pkg/ports"
)

// ErrScriptExhausted is returned when a Generator runs out of scripted answers.
var ErrScriptExhausted = errors.New("testutils: script exhausted")

// Generator is a scripted ports.Generator. Records and Texts are consumed in
// order; the last record is repeated once the queue is down to one.
type Generator struct {
	mu sync.Mutex

	Records []map[string]any
	Texts   []string
	Err     error

	Calls int
}

// Interpretation builds a structured record the interpretation step accepts.
func Interpretation(domainName, goal string, assumptions ...string) map[string]any {
	as := make([]any, len(assumptions))
	for i, a := range assumptions {
		as[i] = a
	}
	return map[string]any{
		"domain":      domainName,
		"goal":        goal,
		"assumptions": as,
		"confidence":  "high",
	}
}

// NewGenerator returns a generator that always answers with the same
// interpretation and final text.
func NewGenerator(final string) *Generator {
	return &Generator{
		Records: []map[string]any{Interpretation("General", "Answer the request")},
		Texts:   []string{final},
	}
}

func (g *Generator) GenerateStructured(ctx context.Context, _ string, _ *domain.Schema, _ ...ports.GenerateOption) (map[string]any, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Calls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if g.Err != nil {
		return nil, g.Err
	}
	if len(g.Records) == 0 {
		return nil, ErrScriptExhausted
	}
	r := g.Records[0]
	if len(g.Records) > 1 {
		g.Records = g.Records[1:]
	}
	return r, nil
}

func (g *Generator) GenerateText(ctx context.Context, _ string, _ ...ports.GenerateOption) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Calls++
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if g.Err != nil {
		return "", g.Err
	}
	if len(g.Texts) == 0 {
		return "", ErrScriptExhausted
	}
	t := g.Texts[0]
	if len(g.Texts) > 1 {
		g.Texts = g.Texts[1:]
	}
	return t, nil
}

// Fail makes every following call return err.
func (g *Generator) Fail(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Err = err
}
