package domain

// PromptKind tags what a suspended prompt expects from the user.
type PromptKind string

// PromptConfirmation asks the user to confirm or correct an interpretation.
const PromptConfirmation PromptKind = "confirmation"

// SuspendedPrompt is returned when a session pauses for human input.
type SuspendedPrompt struct {
	SessionID  string     `json:"session_id"`
	PromptText string     `json:"prompt"`
	Kind       PromptKind `json:"kind"`
	Revision   int        `json:"revision"`
}

// FinalOutput is returned when a session completes.
type FinalOutput struct {
	SessionID string `json:"session_id"`
	Result    string `json:"result"`
}

// Result is the outcome of advancing a session: exactly one of Prompt or Final is set.
type Result struct {
	SessionID string           `json:"session_id"`
	Revision  int              `json:"revision"`
	Prompt    *SuspendedPrompt `json:"prompt,omitempty"`
	Final     *FinalOutput     `json:"final,omitempty"`
}

// Completed reports whether the result carries a final output.
func (r *Result) Completed() bool {
	return r != nil && r.Final != nil
}
