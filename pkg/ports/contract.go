package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/clarify/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore implementation
// adheres to the defined interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		state := domain.NewState(sessionID, "solar panels")
		state.Phase = domain.PhasePresenting
		state.Messages = append(state.Messages, domain.UserMessage("solar panels"))
		state.Interpretation = &domain.Interpretation{
			Domain:      "Renewable Energy",
			Goal:        "Understand solar panels",
			Assumptions: []string{"residential use"},
			Confidence:  domain.ConfidenceHigh,
		}
		state.Corrections = append(state.Corrections, "focus on cost")
		state.IterationCount = 2
		state.Prompt = "Here's what I understood:"
		state.Revision = 4
		state.LastResume = &domain.ResumeRecord{Revision: 3, Reply: "focus on cost"}

		err := store.Save(ctx, sessionID, state)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, state.SessionID, loaded.SessionID)
		assert.Equal(t, domain.PhasePresenting, loaded.Phase)
		assert.Equal(t, state.RawInput, loaded.RawInput)
		assert.Equal(t, state.Messages, loaded.Messages)
		require.NotNil(t, loaded.Interpretation)
		assert.Equal(t, *state.Interpretation, *loaded.Interpretation)
		assert.Equal(t, state.Corrections, loaded.Corrections)
		assert.Equal(t, 2, loaded.IterationCount)
		assert.Equal(t, 4, loaded.Revision)
		require.NotNil(t, loaded.LastResume)
		assert.Equal(t, "focus on cost", loaded.LastResume.Reply)
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		state := domain.NewState(sessionID, "solar panels")
		state.Phase = domain.PhaseDone
		state.FinalOutput = []string{"summary"}
		require.NoError(t, store.Save(ctx, sessionID, state))

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, domain.PhaseDone, loaded.Phase)
		assert.Equal(t, []string{"summary"}, loaded.FinalOutput)
		assert.Nil(t, loaded.Interpretation)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, sessionID, domain.NewState(sessionID, "start"))
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")

		assert.NoError(t, store.Delete(ctx, sessionID), "Deleting twice should not fail")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		require.NoError(t, store.Save(ctx, id1, domain.NewState(id1, "start")))
		require.NoError(t, store.Save(ctx, id2, domain.NewState(id2, "start")))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
	t.Run("Conditional Save", func(t *testing.T) {
		id := sessionID + "-cas"
		defer func() { _ = store.Delete(ctx, id) }()

		first := domain.NewState(id, "start")
		first.Revision = 1
		require.NoError(t, SaveIfRevision(ctx, store, id, first, 0))
		assert.ErrorIs(t, SaveIfRevision(ctx, store, id, first, 0), domain.ErrRevisionConflict,
			"creating an existing session must conflict")

		next := first.Snapshot()
		next.Revision = 2
		require.NoError(t, SaveIfRevision(ctx, store, id, next, 1))

		stale := first.Snapshot()
		stale.Revision = 2
		stale.Corrections = []string{"stale"}
		assert.ErrorIs(t, SaveIfRevision(ctx, store, id, stale, 1), domain.ErrRevisionConflict,
			"a write based on an old revision must conflict")

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 2, loaded.Revision)
		assert.Empty(t, loaded.Corrections)
	})
}
