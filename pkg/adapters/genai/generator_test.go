package genai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/aretw0/clarify/pkg/domain"
	"github.com/aretw0/clarify/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeGemini struct {
	mu       sync.Mutex
	answer   string
	status   int
	requests []map[string]any
	paths    []string
}

func (f *fakeGemini) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var req map[string]any
	_ = json.Unmarshal(body, &req)

	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.paths = append(f.paths, r.URL.Path)
	status, answer := f.status, f.answer
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":{"code":500,"message":"boom","status":"INTERNAL"}}`))
		return
	}
	resp := map[string]any{
		"candidates": []any{
			map[string]any{
				"content": map[string]any{
					"role":  "model",
					"parts": []any{map[string]any{"text": answer}},
				},
			},
		},
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func newTestGenerator(t *testing.T, f *fakeGemini) *Generator {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	g, err := New(context.Background(), Config{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)
	return g
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestNew_DefaultModel(t *testing.T) {
	g, err := New(context.Background(), Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, g.Model())
}

func TestGenerateStructured(t *testing.T) {
	f := &fakeGemini{answer: `{"domain":"Energy","goal":"Learn","assumptions":["home"],"confidence":"high"}`}
	g := newTestGenerator(t, f)

	schema := &domain.Schema{
		Type: domain.SchemaObject,
		Properties: map[string]*domain.Schema{
			"domain":     {Type: domain.SchemaString},
			"confidence": {Type: domain.SchemaString, Enum: []string{"high", "medium", "low"}},
		},
		Required: []string{"domain", "confidence"},
	}
	rec, err := g.GenerateStructured(context.Background(), "solar panels", schema,
		ports.WithTemperature(0.1),
		ports.WithSystemInstruction("You interpret requests."),
	)
	require.NoError(t, err)
	assert.Equal(t, "Energy", rec["domain"])
	assert.Equal(t, []any{"home"}, rec["assumptions"])

	require.Len(t, f.requests, 1)
	assert.True(t, strings.HasSuffix(f.paths[0], DefaultModel+":generateContent"), f.paths[0])
	cfg, ok := f.requests[0]["generationConfig"].(map[string]any)
	require.True(t, ok, "generationConfig sent")
	assert.Equal(t, "application/json", cfg["responseMimeType"])
	assert.InDelta(t, 0.1, cfg["temperature"], 0.0001)
	assert.NotNil(t, cfg["responseSchema"])
	assert.NotNil(t, f.requests[0]["systemInstruction"])
}

func TestGenerateStructured_StripsFence(t *testing.T) {
	g := newTestGenerator(t, &fakeGemini{answer: "```json\n{\"goal\":\"x\"}\n```"})

	rec, err := g.GenerateStructured(context.Background(), "p", &domain.Schema{Type: domain.SchemaObject})
	require.NoError(t, err)
	assert.Equal(t, "x", rec["goal"])
}

func TestGenerateStructured_NotJSON(t *testing.T) {
	g := newTestGenerator(t, &fakeGemini{answer: "sorry, I cannot"})

	_, err := g.GenerateStructured(context.Background(), "p", &domain.Schema{Type: domain.SchemaObject})
	assert.ErrorContains(t, err, "not a JSON object")
}

func TestGenerateText(t *testing.T) {
	f := &fakeGemini{answer: "  Solar panels convert light.  "}
	g := newTestGenerator(t, f)

	text, err := g.GenerateText(context.Background(), "summarize")
	require.NoError(t, err)
	assert.Equal(t, "Solar panels convert light.", text)

	cfg, _ := f.requests[0]["generationConfig"].(map[string]any)
	assert.Nil(t, cfg["responseMimeType"])
}

func TestGenerateText_Empty(t *testing.T) {
	g := newTestGenerator(t, &fakeGemini{answer: "   "})

	_, err := g.GenerateText(context.Background(), "summarize")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestGenerate_UpstreamError(t *testing.T) {
	g := newTestGenerator(t, &fakeGemini{status: http.StatusInternalServerError})

	_, err := g.GenerateText(context.Background(), "summarize")
	assert.ErrorContains(t, err, "generate failed")
}

func TestToSchema(t *testing.T) {
	assert.Nil(t, ToSchema(nil))

	s := ToSchema(&domain.Schema{
		Type: domain.SchemaObject,
		Properties: map[string]*domain.Schema{
			"assumptions": {Type: domain.SchemaArray, Items: &domain.Schema{Type: domain.SchemaString}},
			"score":       {Type: domain.SchemaNumber},
			"ok":          {Type: domain.SchemaBoolean},
		},
		Required: []string{"assumptions"},
	})
	assert.Equal(t, genai.TypeObject, s.Type)
	assert.Equal(t, genai.TypeArray, s.Properties["assumptions"].Type)
	assert.Equal(t, genai.TypeString, s.Properties["assumptions"].Items.Type)
	assert.Equal(t, genai.TypeNumber, s.Properties["score"].Type)
	assert.Equal(t, genai.TypeBoolean, s.Properties["ok"].Type)
	assert.Equal(t, []string{"assumptions"}, s.Required)
}
