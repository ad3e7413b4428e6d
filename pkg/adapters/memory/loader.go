package memory

import (
	"fmt"
	"sort"

	"github.com/aretw0/clarify/pkg/domain"
)

// PromptLibrary implements ports.PromptLibrary using an in-memory map.
type PromptLibrary struct {
	prompts map[string]domain.PromptTemplate
}

// NewPromptLibrary creates a library from raw template bodies keyed by name.
func NewPromptLibrary(data map[string]string) *PromptLibrary {
	prompts := make(map[string]domain.PromptTemplate, len(data))
	for k, v := range data {
		prompts[k] = domain.PromptTemplate{Name: k, Body: v}
	}
	return &PromptLibrary{prompts: prompts}
}

// NewFromTemplates creates a library from domain objects.
func NewFromTemplates(templates ...domain.PromptTemplate) (*PromptLibrary, error) {
	prompts := make(map[string]domain.PromptTemplate, len(templates))
	for _, tpl := range templates {
		if tpl.Name == "" {
			return nil, fmt.Errorf("prompt template missing name")
		}
		prompts[tpl.Name] = tpl
	}
	return &PromptLibrary{prompts: prompts}, nil
}

// Prompt retrieves a template by name.
func (l *PromptLibrary) Prompt(name string) (domain.PromptTemplate, error) {
	tpl, ok := l.prompts[name]
	if !ok {
		return domain.PromptTemplate{}, fmt.Errorf("prompt not found: %s", name)
	}
	return tpl, nil
}

// Names returns all available prompt names.
func (l *PromptLibrary) Names() []string {
	keys := make([]string, 0, len(l.prompts))
	for k := range l.prompts {
		keys = append(keys, k)
	}
	sort.Strings(keys) // Deterministic order
	return keys
}
