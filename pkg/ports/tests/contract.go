package tests

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/voyage/pkg/domain"
	"github.com/aretw0/voyage/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStateStoreContract runs a suite of tests to verify that a StateStore implementation
// adheres to the defined interface contract.
func RunStateStoreContract(t *testing.T, store ports.StateStore) {
	t.Helper()

	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		state := domain.NewState(sessionID)
		state.Messages = append(state.Messages,
			domain.HumanMessage("book me a flight"),
			domain.AIMessage("", domain.ToolCall{
				ID:   "call-1",
				Name: "flights_finder",
				Args: map[string]any{"start": "NYC", "end": "ORD"},
			}),
			domain.ToolMessage("call-1", "flights_finder", "chicago flight"),
		)
		state.Phase = domain.PhaseModelStep
		state.Steps = 2

		err := store.Save(ctx, sessionID, state)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, state.Phase, loaded.Phase)
		assert.Equal(t, state.Steps, loaded.Steps)
		require.Len(t, loaded.Messages, 3, "conversation order must survive persistence")
		assert.Equal(t, domain.RoleHuman, loaded.Messages[0].Role)
		assert.Equal(t, "call-1", loaded.Messages[1].ToolCalls[0].ID)
		assert.Equal(t, "NYC", loaded.Messages[1].ToolCalls[0].Args["start"])
		assert.Equal(t, "call-1", loaded.Messages[2].ToolCallID)
		assert.Equal(t, "chicago flight", loaded.Messages[2].Content)
	})

	t.Run("Load Is Isolated", func(t *testing.T) {
		state := domain.NewState(sessionID)
		state.Messages = append(state.Messages, domain.HumanMessage("original"))
		require.NoError(t, store.Save(ctx, sessionID, state))

		// Mutating the caller's copy must not leak into the store.
		state.Messages[0].Content = "mutated"

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, "original", loaded.Messages[0].Content)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, sessionID, domain.NewState(sessionID))
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		require.NoError(t, store.Save(ctx, id1, domain.NewState(id1)))
		require.NoError(t, store.Save(ctx, id2, domain.NewState(id2)))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
