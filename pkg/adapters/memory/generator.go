package memory

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/aretw0/clarify/pkg/domain"
	"github.com/aretw0/clarify/pkg/ports"
)

var quoted = regexp.MustCompile(`"((?:[^"\\]|\\.)*)"`)

// Generator implements ports.Generator without a model, for offline use
// and demos. Structured calls fill the schema from the first quoted string
// of the prompt; text calls return a fixed summary of it.
type Generator struct{}

// NewGenerator returns an offline generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// GenerateStructured fills every schema property with a placeholder derived
// from the prompt. Corrections listed as "- " lines become assumptions.
func (g *Generator) GenerateStructured(ctx context.Context, prompt string, schema *domain.Schema, _ ...ports.GenerateOption) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	subject := subjectOf(prompt)
	record := make(map[string]any)
	if schema == nil {
		return record, nil
	}
	for name, prop := range schema.Properties {
		record[name] = placeholder(name, prop, subject)
	}
	if _, ok := record["assumptions"]; ok {
		record["assumptions"] = bullets(prompt)
	}
	return record, nil
}

// GenerateText returns a fixed summary naming the goal of the prompt.
func (g *Generator) GenerateText(ctx context.Context, prompt string, _ ...ports.GenerateOption) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	subject := subjectOf(prompt)
	for _, line := range strings.Split(prompt, "\n") {
		if _, goal, ok := strings.Cut(line, "Goal:"); ok && strings.TrimSpace(goal) != "" {
			subject = strings.TrimSpace(goal)
			break
		}
	}
	return "## Offline summary\n\nNo language model is configured, so this is a placeholder for: " + subject + ".", nil
}

func subjectOf(prompt string) string {
	if m := quoted.FindStringSubmatch(prompt); m != nil {
		if s, err := strconv.Unquote(`"` + m[1] + `"`); err == nil && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	for _, line := range strings.Split(prompt, "\n") {
		if l := strings.TrimSpace(line); l != "" {
			return l
		}
	}
	return "the request"
}

// bullets returns the "- " lines of the prompt, which the built-in
// interpret prompt uses for the user's corrections.
func bullets(prompt string) []any {
	out := []any{}
	for _, line := range strings.Split(prompt, "\n") {
		if l, ok := strings.CutPrefix(strings.TrimSpace(line), "- "); ok && !strings.Contains(l, ":") {
			out = append(out, "User said: "+l)
		}
	}
	return out
}

func placeholder(name string, s *domain.Schema, subject string) any {
	if s == nil {
		return nil
	}
	if len(s.Enum) > 0 {
		return s.Enum[0]
	}
	switch s.Type {
	case domain.SchemaArray:
		return []any{}
	case domain.SchemaNumber:
		return 0.0
	case domain.SchemaBoolean:
		return false
	case domain.SchemaObject:
		out := make(map[string]any, len(s.Properties))
		for k, p := range s.Properties {
			out[k] = placeholder(k, p, subject)
		}
		return out
	}
	switch name {
	case "goal":
		return "Learn about " + subject
	case "domain":
		return "General"
	}
	return subject
}
