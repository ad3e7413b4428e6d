package ports

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/clarify/pkg/domain"
)

// SessionStore defines the interface for persisting workflow state.
// A session is saved at every suspension point and at completion; the pending
// step is recorded in State.Phase.
type SessionStore interface {
	// Save persists the state for a given session ID.
	Save(ctx context.Context, sessionID string, state *domain.State) error

	// Load retrieves the state for a given session ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*domain.State, error)

	// Delete removes the state for a given session ID. Deleting a missing
	// session is not an error.
	Delete(ctx context.Context, sessionID string) error

	// List returns the IDs of all stored sessions.
	List(ctx context.Context) ([]string, error)
}

// Archiver is implemented by stores that keep a history of completed sessions.
type Archiver interface {
	Archive(ctx context.Context, state *domain.State) error
}

// ConditionalStore is implemented by stores that can make a write depend on
// the revision currently stored, atomically.
type ConditionalStore interface {
	// SaveIfRevision persists state only if the stored snapshot has revision
	// expected, where 0 means the session must not exist yet. Otherwise it
	// returns domain.ErrRevisionConflict and writes nothing.
	SaveIfRevision(ctx context.Context, sessionID string, state *domain.State, expected int) error
}

// SaveIfRevision writes through store.SaveIfRevision when available. Other
// stores get a load-compare-save, which still catches a writer that finished
// while the caller was computing state.
func SaveIfRevision(ctx context.Context, store SessionStore, sessionID string, state *domain.State, expected int) error {
	if cs, ok := store.(ConditionalStore); ok {
		return cs.SaveIfRevision(ctx, sessionID, state, expected)
	}
	if err := CheckRevision(ctx, store, sessionID, expected); err != nil {
		return err
	}
	return store.Save(ctx, sessionID, state)
}

// CheckRevision compares the stored revision of a session with expected.
func CheckRevision(ctx context.Context, store SessionStore, sessionID string, expected int) error {
	stored := 0
	current, err := store.Load(ctx, sessionID)
	switch {
	case err == nil:
		stored = current.Revision
	case !errors.Is(err, domain.ErrSessionNotFound):
		return err
	}
	if stored != expected {
		return fmt.Errorf("%w: stored %d, expected %d", domain.ErrRevisionConflict, stored, expected)
	}
	return nil
}
