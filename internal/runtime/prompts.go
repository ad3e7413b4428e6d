package runtime

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/aretw0/clarify/pkg/domain"
	"github.com/aretw0/clarify/pkg/ports"
)

// Interpolator renders a prompt template against data.
type Interpolator func(ctx context.Context, tpl string, data any) (string, error)

var funcs = template.FuncMap{
	"join":  strings.Join,
	"upper": strings.ToUpper,
	"quote": func(s string) string { return fmt.Sprintf("%q", s) },
}

// DefaultInterpolator uses text/template and fails on missing keys.
func DefaultInterpolator(_ context.Context, tpl string, data any) (string, error) {
	t, err := template.New("prompt").Funcs(funcs).Option("missingkey=error").Parse(tpl)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}
	return buf.String(), nil
}

// InterpretData is the data passed to the interpret prompt.
type InterpretData struct {
	RawInput    string
	Corrections []string
}

// ClassifyData is the data passed to the classify prompt.
type ClassifyData struct {
	Reply string
}

// FinalizeData is the data passed to the finalize prompt.
type FinalizeData struct {
	Domain      string
	Goal        string
	Assumptions []string
}

const interpretPrompt = `You are a requirements analyst. Read the user's request and any corrections from earlier rounds, then:

1. Identify the subject area and topic.
2. Spot what is ambiguous or missing.
3. Fill each gap with the most reasonable assumption.
4. Return a structured interpretation.

User request: {{quote .RawInput}}
Corrections from the user: {{if .Corrections}}{{range .Corrections}}
- {{.}}{{end}}{{else}}None{{end}}

Fields:
- domain: the subject area (e.g. "Agricultural Drone Technology")
- goal: one sentence describing what the user wants
- assumptions: the assumptions you made to fill gaps
- confidence: "high", "medium" or "low"`

const classifyPrompt = `The user was shown an interpretation of their request and asked to confirm it.
They replied: {{quote .Reply}}

Classify the reply as exactly one of:
- CONFIRMED: they agree ("yes", "looks good", "that's right")
- CORRECTED: they add or change details ("no, I meant...", "actually...", "change X to Y")
- REJECTED: they want to start over ("forget it", "start over", "completely wrong")

Answer with the single word CONFIRMED, CORRECTED or REJECTED.`

const finalizePrompt = `You are a research assistant. Write a research summary for the confirmed requirements below.

Confirmed requirements:
- Domain: {{.Domain}}
- Goal: {{.Goal}}
- Assumptions: {{if .Assumptions}}{{join .Assumptions ", "}}{{else}}None{{end}}

Structure the summary as:
1. **Executive Overview**: what the topic is about.
2. **Key Facts & Insights**: the most important, current information.
3. **Sub-Topics Explored**: the relevant sub-areas of the domain.
4. **Practical Applications**: real-world uses and examples.
5. **Recommended Next Steps**: what to explore or do next.

Be thorough and actionable. Use markdown.`

// WebContextHeader introduces lookup snippets appended to the finalize prompt.
const WebContextHeader = "Additional real-time context from the web:"

var builtinPrompts = map[string]domain.PromptTemplate{
	domain.PromptInterpret: {Name: domain.PromptInterpret, Body: interpretPrompt},
	domain.PromptClassify:  {Name: domain.PromptClassify, Body: classifyPrompt},
	domain.PromptFinalize:  {Name: domain.PromptFinalize, Body: finalizePrompt},
}

// layeredLibrary resolves overrides first and falls back to the built-in prompts.
type layeredLibrary struct {
	overrides ports.PromptLibrary
}

// NewPromptLibrary returns a library of the built-in prompts, optionally
// overridden by lib.
func NewPromptLibrary(lib ports.PromptLibrary) ports.PromptLibrary {
	if l, ok := lib.(*layeredLibrary); ok {
		return l
	}
	return &layeredLibrary{overrides: lib}
}

func (l *layeredLibrary) Prompt(name string) (domain.PromptTemplate, error) {
	if l.overrides != nil {
		if tpl, err := l.overrides.Prompt(name); err == nil && strings.TrimSpace(tpl.Body) != "" {
			tpl.Name = name
			return tpl, nil
		}
	}
	tpl, ok := builtinPrompts[name]
	if !ok {
		return domain.PromptTemplate{}, fmt.Errorf("prompt not found: %s", name)
	}
	return tpl, nil
}

// BuiltinPrompts returns copies of the shipped templates.
func BuiltinPrompts() []domain.PromptTemplate {
	out := make([]domain.PromptTemplate, 0, len(builtinPrompts))
	for _, name := range []string{domain.PromptInterpret, domain.PromptClassify, domain.PromptFinalize} {
		out = append(out, builtinPrompts[name])
	}
	return out
}

func (e *Engine) render(ctx context.Context, name string, data any) (string, domain.PromptTemplate, error) {
	tpl, err := e.prompts.Prompt(name)
	if err != nil {
		return "", tpl, err
	}
	text, err := e.interpolator(ctx, tpl.Body, data)
	if err != nil {
		return "", tpl, fmt.Errorf("render %s prompt: %w", name, err)
	}
	return text, tpl, nil
}
