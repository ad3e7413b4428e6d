package domain

import "strings"

// Outcome is the classification of a user reply.
type Outcome string

const (
	OutcomeConfirmed Outcome = "confirmed"
	OutcomeCorrected Outcome = "corrected"
	OutcomeRejected  Outcome = "rejected"
)

// ParseOutcome maps a label such as "CONFIRMED" to an Outcome.
func ParseOutcome(label string) (Outcome, bool) {
	switch Outcome(strings.ToLower(strings.TrimSpace(label))) {
	case OutcomeConfirmed:
		return OutcomeConfirmed, true
	case OutcomeCorrected:
		return OutcomeCorrected, true
	case OutcomeRejected:
		return OutcomeRejected, true
	}
	return "", false
}

// Label returns the upper-case label used in classifier prompts.
func (o Outcome) Label() string {
	return strings.ToUpper(string(o))
}
