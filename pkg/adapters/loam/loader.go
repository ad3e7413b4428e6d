// Package loam serves prompt templates from a directory of markdown files.
//
// Each document's body is a text/template; its frontmatter may set a name
// and a temperature:
//
//	---
//	temperature: 0.2
//	---
//	Classify the reply {{quote .Reply}} ...
package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/clarify/pkg/domain"
	"github.com/aretw0/loam"
)

// PromptLibrary adapts a Loam repository to ports.PromptLibrary.
type PromptLibrary struct {
	Repo *loam.TypedRepository[PromptMetadata]
}

// New wraps an existing typed repository.
func New(repo *loam.TypedRepository[PromptMetadata]) *PromptLibrary {
	return &PromptLibrary{Repo: repo}
}

// Open initializes a read-only, strict Loam repository at dir.
func Open(dir string) (*PromptLibrary, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[PromptMetadata](repo)), nil
}

// Prompt loads the document named name (e.g. "interpret" for interpret.md).
func (l *PromptLibrary) Prompt(name string) (domain.PromptTemplate, error) {
	ctx := context.Background()

	doc, err := l.Repo.Get(ctx, name)
	if err != nil {
		return domain.PromptTemplate{}, fmt.Errorf("loam get failed for %s: %w", name, err)
	}

	temp, err := parseTemperature(doc.Data.Temperature)
	if err != nil {
		return domain.PromptTemplate{}, fmt.Errorf("prompt %s: %w", name, err)
	}

	return domain.PromptTemplate{
		Name:        name,
		Body:        strings.TrimSpace(doc.Content),
		Temperature: temp,
	}, nil
}

// Names lists the prompts in the repository.
func (l *PromptLibrary) Names() ([]string, error) {
	docs, err := l.Repo.List(context.Background())
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string, len(docs))
	names := make([]string, 0, len(docs))
	for _, doc := range docs {
		name := doc.Data.Name
		if name == "" {
			name = doc.ID
		}
		name = trimExtension(name)
		if prev, ok := seen[name]; ok {
			return nil, fmt.Errorf("collision detected: prompt '%s' is defined in both '%s' and '%s'", name, prev, doc.ID)
		}
		seen[name] = doc.ID
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}
