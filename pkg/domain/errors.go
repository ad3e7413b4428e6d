package domain

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionExists is returned when starting a session whose ID is already taken.
var ErrSessionExists = errors.New("session already exists")

// ErrNotSuspended is returned when resuming a session that is not waiting for input.
var ErrNotSuspended = errors.New("session is not suspended")

// ErrSessionCompleted is returned when resuming a session that already finished.
var ErrSessionCompleted = errors.New("session already completed")

// ErrRevisionConflict is returned when a resume carries a stale revision.
var ErrRevisionConflict = errors.New("revision conflict")

// ErrMissingInterpretation is a precondition failure of the steps that read the interpretation.
var ErrMissingInterpretation = errors.New("interpretation missing")

// ErrInvalidInterpretation is returned when generated output does not fit the interpretation schema.
var ErrInvalidInterpretation = errors.New("invalid interpretation")

// ErrEmptyInput is returned for blank requests and replies.
var ErrEmptyInput = errors.New("input is empty")

// ErrEmptyResult is returned when finalization generates no text.
var ErrEmptyResult = errors.New("empty result")

// IsConflict reports whether err is one of the session state conflicts.
func IsConflict(err error) bool {
	return errors.Is(err, ErrSessionExists) ||
		errors.Is(err, ErrNotSuspended) ||
		errors.Is(err, ErrSessionCompleted) ||
		errors.Is(err, ErrRevisionConflict)
}

// ErrorKind classifies step failures.
type ErrorKind string

const (
	// KindPrecondition marks a violated invariant. Fatal, not retryable.
	KindPrecondition ErrorKind = "precondition"
	// KindUpstream marks a failed collaborator call. Retryable by the caller.
	KindUpstream ErrorKind = "upstream"
)

// StepError wraps a failure raised while a step was running.
type StepError struct {
	Phase Phase
	Kind  ErrorKind
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s step failed (%s): %v", e.Phase, e.Kind, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Retryable reports whether retrying the same call may succeed.
func (e *StepError) Retryable() bool {
	return e.Kind == KindUpstream
}

// IsRetryable reports whether err wraps a retryable StepError.
func IsRetryable(err error) bool {
	var se *StepError
	return errors.As(err, &se) && se.Retryable()
}
