package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/clarify/internal/presentation/graph"
	"github.com/aretw0/clarify/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestGenerateMermaid(t *testing.T) {
	out := graph.GenerateMermaid(nil)

	for _, want := range []string{
		"graph TD",
		`interpreting(("interpreting"))`,
		`presenting[/"presenting"/]`,
		`classifying["classifying"]`,
		`done[["done"]]`,
		"interpreting --> presenting",
		`presenting -- "reply" --> classifying`,
		`classifying -- "confirmed" --> finalizing`,
		`classifying -. "corrected" .-> interpreting`,
		`classifying -. "rejected" .-> interpreting`,
		"finalizing --> done",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "classDef")
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	st := domain.NewState("s1", "solar")
	st.Phase = domain.PhasePresenting
	st.IterationCount = 2

	out := graph.GenerateMermaid(graph.OverlayFor(st))

	assert.Contains(t, out, `presenting[/"presenting <br/> round 2"/]`)
	assert.Contains(t, out, "class interpreting visited;")
	assert.Contains(t, out, "class presenting current;")
	assert.NotContains(t, out, "class presenting visited;")
	assert.Equal(t, 1, strings.Count(out, "current;"))
}

func TestOverlayFor(t *testing.T) {
	assert.Nil(t, graph.OverlayFor(nil))

	fresh := graph.OverlayFor(domain.NewState("s1", "x"))
	assert.Empty(t, fresh.Visited)
	assert.Equal(t, domain.PhaseInterpreting, fresh.Current)

	looped := domain.NewState("s1", "x")
	looped.IterationCount = 1
	o := graph.OverlayFor(looped)
	assert.Equal(t, []domain.Phase{domain.PhaseInterpreting, domain.PhasePresenting, domain.PhaseClassifying}, o.Visited)

	done := domain.NewState("s1", "x")
	done.Phase = domain.PhaseDone
	done.IterationCount = 1
	o = graph.OverlayFor(done)
	assert.Len(t, o.Visited, 4)
}
