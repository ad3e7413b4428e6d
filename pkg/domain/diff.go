package domain

import (
	"reflect"
	"slices"
)

// StateDiff represents the changes between two states.
// It is serialized to JSON for partial updates on the client.
type StateDiff struct {
	// SessionID is always present to identify the target.
	SessionID string `json:"session_id"`

	Phase    *Phase  `json:"phase,omitempty"`
	Revision *int    `json:"revision,omitempty"`
	Prompt   *string `json:"prompt,omitempty"`

	// Interpretation carries the new interpretation. InterpretationCleared is
	// set instead when a rejection dropped it.
	Interpretation        *Interpretation `json:"interpretation,omitempty"`
	InterpretationCleared bool            `json:"interpretation_cleared,omitempty"`

	// Corrections is the full list whenever it changed, since a rejection
	// may reset it.
	Corrections []string `json:"corrections,omitempty"`

	Confirmed      *bool `json:"confirmed,omitempty"`
	IterationCount *int  `json:"iteration_count,omitempty"`

	// Messages and FinalOutput only carry newly appended entries.
	Messages    []Message `json:"messages,omitempty"`
	FinalOutput []string  `json:"final_output,omitempty"`
}

// Diff calculates the difference between oldState and newState.
// If oldState is nil, it returns a diff representing the entire newState (initial load).
func Diff(oldState, newState *State) *StateDiff {
	if newState == nil {
		return nil
	}

	diff := &StateDiff{SessionID: newState.SessionID}

	if oldState == nil {
		oldState = &State{}
	}

	if oldState.Phase != newState.Phase {
		diff.Phase = &newState.Phase
	}
	if oldState.Revision != newState.Revision {
		diff.Revision = &newState.Revision
	}
	if oldState.Prompt != newState.Prompt && newState.Prompt != "" {
		diff.Prompt = &newState.Prompt
	}
	if oldState.Confirmed != newState.Confirmed {
		diff.Confirmed = &newState.Confirmed
	}
	if oldState.IterationCount != newState.IterationCount {
		diff.IterationCount = &newState.IterationCount
	}

	switch {
	case newState.Interpretation == nil && oldState.Interpretation != nil:
		diff.InterpretationCleared = true
	case newState.Interpretation != nil && !reflect.DeepEqual(oldState.Interpretation, newState.Interpretation):
		in := newState.Interpretation.Clone()
		diff.Interpretation = &in
	}

	if !slices.Equal(oldState.Corrections, newState.Corrections) {
		diff.Corrections = slices.Clone(newState.Corrections)
		if diff.Corrections == nil {
			diff.Corrections = []string{}
		}
	}

	diff.Messages = appended(oldState.Messages, newState.Messages)
	diff.FinalOutput = appended(oldState.FinalOutput, newState.FinalOutput)

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

// appended assumes append-only behavior.
func appended[T any](old, new []T) []T {
	if len(new) <= len(old) {
		return nil
	}
	return slices.Clone(new[len(old):])
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *StateDiff) IsEmpty() bool {
	return d.Phase == nil &&
		d.Revision == nil &&
		d.Prompt == nil &&
		d.Interpretation == nil &&
		!d.InterpretationCleared &&
		d.Corrections == nil &&
		d.Confirmed == nil &&
		d.IterationCount == nil &&
		len(d.Messages) == 0 &&
		len(d.FinalOutput) == 0
}
