package runtime_test

import (
	"context"
	"testing"

	"github.com/aretw0/clarify/internal/runtime"
	"github.com/aretw0/clarify/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLabel(t *testing.T) {
	tests := []struct {
		text string
		want domain.Outcome
	}{
		{"CONFIRMED", domain.OutcomeConfirmed},
		{"  rejected.\n", domain.OutcomeRejected},
		{"The answer is: CORRECTED", domain.OutcomeCorrected},
		{"CONFIRMED CONFIRMED", domain.OutcomeConfirmed},
		{"CONFIRMED or REJECTED", domain.OutcomeCorrected},
		{"I am not sure", domain.OutcomeCorrected},
		{"UNCONFIRMED", domain.OutcomeCorrected},
		{"", domain.OutcomeCorrected},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, runtime.ParseLabel(tt.text))
		})
	}
}

func TestLLMClassifier(t *testing.T) {
	gen := &fakeGenerator{texts: []string{"REJECTED"}}
	c := runtime.NewLLMClassifier(gen)

	out, err := c.Classify(context.Background(), "start over please")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeRejected, out)
	require.Len(t, gen.textPrompts, 1)
	assert.Contains(t, gen.textPrompts[0], `"start over please"`)
	assert.Equal(t, []float32{0}, gen.temperatures)
}

func TestKeywordClassifier(t *testing.T) {
	c := runtime.NewKeywordClassifier()
	tests := map[string]domain.Outcome{
		"yes":                         domain.OutcomeConfirmed,
		"Yes!":                        domain.OutcomeConfirmed,
		"Looks good.":                 domain.OutcomeConfirmed,
		"yes, but focus on cost":      domain.OutcomeCorrected,
		"actually I meant wind power": domain.OutcomeCorrected,
		"no, forget it":               domain.OutcomeRejected,
		"Start over":                  domain.OutcomeRejected,
		"that's completely wrong":     domain.OutcomeRejected,
		"restarting the grid":         domain.OutcomeCorrected,
	}
	for reply, want := range tests {
		got, err := c.Classify(context.Background(), reply)
		require.NoError(t, err)
		assert.Equal(t, want, got, reply)
	}
}

func TestEngine_KeywordClassifierOffline(t *testing.T) {
	gen := &fakeGenerator{
		records: []map[string]any{interpretation("d", "g")},
		texts:   []string{"summary"},
	}
	e := runtime.NewEngine(gen, runtime.WithClassifier(runtime.NewKeywordClassifier()))

	s := start(t, e, "x")
	done, err := e.Advance(context.Background(), s, ptr("yes"))
	require.NoError(t, err)
	assert.Equal(t, []string{"summary"}, done.FinalOutput)
	assert.Len(t, gen.textPrompts, 1, "only finalization calls the generator")
}
