package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewState(t *testing.T) {
	s := NewState("s1", "solar panels")

	assert.Equal(t, PhaseInterpreting, s.Phase)
	assert.Equal(t, "solar panels", s.RawInput)
	assert.Empty(t, s.Messages)
	assert.NotNil(t, s.Corrections)
	assert.Nil(t, s.Interpretation)
	assert.False(t, s.Confirmed)
	assert.Zero(t, s.IterationCount)
	assert.Nil(t, s.Result())
}

func TestSnapshot_IsDeep(t *testing.T) {
	s := NewState("s1", "in")
	s.Interpretation = &Interpretation{Domain: "d", Goal: "g", Assumptions: []string{"a"}, Confidence: ConfidenceLow}
	s.Corrections = append(s.Corrections, "c1")
	s.LastResume = &ResumeRecord{Revision: 1, Reply: "no"}

	cp := s.Snapshot()
	cp.Interpretation.Assumptions[0] = "changed"
	cp.Corrections[0] = "changed"
	cp.LastResume.Reply = "changed"

	assert.Equal(t, "a", s.Interpretation.Assumptions[0])
	assert.Equal(t, "c1", s.Corrections[0])
	assert.Equal(t, "no", s.LastResume.Reply)
}

func TestState_Result(t *testing.T) {
	s := NewState("s1", "in")
	s.Phase = PhasePresenting
	s.Prompt = "Is this correct?"
	s.Revision = 3

	res := s.Result()
	require.NotNil(t, res)
	require.NotNil(t, res.Prompt)
	assert.Equal(t, PromptConfirmation, res.Prompt.Kind)
	assert.Equal(t, 3, res.Prompt.Revision)
	assert.False(t, res.Completed())

	s.Phase = PhaseDone
	s.FinalOutput = []string{"summary"}
	res = s.Result()
	require.NotNil(t, res)
	assert.True(t, res.Completed())
	assert.Equal(t, "summary", res.Final.Result)
}

func TestInterpretation_Validate(t *testing.T) {
	valid := Interpretation{Domain: "d", Goal: "g", Assumptions: []string{}, Confidence: ConfidenceMedium}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Interpretation)
	}{
		{"empty domain", func(i *Interpretation) { i.Domain = " " }},
		{"empty goal", func(i *Interpretation) { i.Goal = "" }},
		{"missing assumptions", func(i *Interpretation) { i.Assumptions = nil }},
		{"bad confidence", func(i *Interpretation) { i.Confidence = "certain" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid.Clone()
			tt.mutate(&in)
			assert.ErrorIs(t, in.Validate(), ErrInvalidInterpretation)
		})
	}
}

func TestParseOutcome(t *testing.T) {
	o, ok := ParseOutcome(" CONFIRMED ")
	assert.True(t, ok)
	assert.Equal(t, OutcomeConfirmed, o)

	_, ok = ParseOutcome("maybe")
	assert.False(t, ok)

	assert.Equal(t, "REJECTED", OutcomeRejected.Label())
}

func TestStepError(t *testing.T) {
	err := fmt.Errorf("advance: %w", &StepError{Phase: PhaseFinalizing, Kind: KindUpstream, Err: errors.New("503")})
	assert.True(t, IsRetryable(err))

	err = &StepError{Phase: PhasePresenting, Kind: KindPrecondition, Err: ErrMissingInterpretation}
	assert.False(t, IsRetryable(err))
	assert.ErrorIs(t, err, ErrMissingInterpretation)
}

func TestIsConflict(t *testing.T) {
	assert.True(t, IsConflict(fmt.Errorf("x: %w", ErrRevisionConflict)))
	assert.True(t, IsConflict(ErrSessionCompleted))
	assert.False(t, IsConflict(ErrSessionNotFound))
}
