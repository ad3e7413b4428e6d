package domain

import (
	"slices"
	"time"
)

// Phase names the pending step of a session's state machine.
type Phase string

const (
	PhaseInterpreting Phase = "interpreting" // Interpretation step runs next
	PhasePresenting   Phase = "presenting"   // Suspended, waiting for the user's reply
	PhaseClassifying  Phase = "classifying"  // Reply recorded, classification runs next
	PhaseFinalizing   Phase = "finalizing"   // Confirmed, final output runs next
	PhaseDone         Phase = "done"         // Sink state
)

// Phases lists every phase in execution order.
var Phases = []Phase{PhaseInterpreting, PhasePresenting, PhaseClassifying, PhaseFinalizing, PhaseDone}

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	return slices.Contains(Phases, p)
}

// ResumeRecord remembers the last reply consumed by a resume.
type ResumeRecord struct {
	Revision int    `json:"revision"`
	Reply    string `json:"reply"`
}

// State is the workflow record threaded through every step of a session.
// Accumulator fields (Messages, Corrections, FinalOutput) only grow, except
// for Corrections which a rejection resets.
type State struct {
	SessionID string `json:"session_id"`

	// Phase is the pending step. A snapshot persisted while suspended has
	// PhasePresenting.
	Phase Phase `json:"phase"`

	// RawInput is the original request. Immutable once set.
	RawInput string `json:"raw_input"`

	Messages       []Message       `json:"messages"`
	Interpretation *Interpretation `json:"interpretation,omitempty"`
	Corrections    []string        `json:"corrections"`
	Confirmed      bool            `json:"confirmed"`
	IterationCount int             `json:"iteration_count"`
	FinalOutput    []string        `json:"final_output"`

	// Prompt is the rendering shown to the user while suspended.
	Prompt string `json:"prompt,omitempty"`

	// Revision increments on every persisted snapshot.
	Revision   int           `json:"revision"`
	LastResume *ResumeRecord `json:"last_resume,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Sealed holds ciphertext when the snapshot is an encrypted envelope.
	Sealed []byte `json:"sealed,omitempty"`
}

// NewState creates a clean state for a session, ready for interpretation.
func NewState(sessionID, rawInput string) *State {
	now := time.Now().UTC()
	return &State{
		SessionID:   sessionID,
		Phase:       PhaseInterpreting,
		RawInput:    rawInput,
		Messages:    []Message{},
		Corrections: []string{},
		FinalOutput: []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Snapshot returns a deep copy of the state.
func (s *State) Snapshot() *State {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Messages = slices.Clone(s.Messages)
	cp.Corrections = slices.Clone(s.Corrections)
	cp.FinalOutput = slices.Clone(s.FinalOutput)
	if s.Interpretation != nil {
		in := s.Interpretation.Clone()
		cp.Interpretation = &in
	}
	if s.LastResume != nil {
		lr := *s.LastResume
		cp.LastResume = &lr
	}
	cp.Sealed = slices.Clone(s.Sealed)
	return &cp
}

// Suspended reports whether the session waits for external input.
func (s *State) Suspended() bool {
	return s.Phase == PhasePresenting
}

// Done reports whether the session reached the sink state.
func (s *State) Done() bool {
	return s.Phase == PhaseDone
}

// LastUserMessage returns the most recent user-authored message.
func (s *State) LastUserMessage() (Message, bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleUser {
			return s.Messages[i], true
		}
	}
	return Message{}, false
}

// Result builds the caller-facing result for the current phase.
// Only suspended and completed states have one.
func (s *State) Result() *Result {
	switch {
	case s.Suspended():
		return &Result{
			SessionID: s.SessionID,
			Revision:  s.Revision,
			Prompt: &SuspendedPrompt{
				SessionID:  s.SessionID,
				PromptText: s.Prompt,
				Kind:       PromptConfirmation,
				Revision:   s.Revision,
			},
		}
	case s.Done() && len(s.FinalOutput) > 0:
		return &Result{
			SessionID: s.SessionID,
			Revision:  s.Revision,
			Final: &FinalOutput{
				SessionID: s.SessionID,
				Result:    s.FinalOutput[len(s.FinalOutput)-1],
			},
		}
	}
	return nil
}
