package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/voyage/pkg/adapters/memory"
	"github.com/aretw0/voyage/pkg/domain"
	"github.com/aretw0/voyage/pkg/ports"
	"github.com/aretw0/voyage/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.StateStore = (*memory.Store)(nil)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	tests.RunStateStoreContract(t, store)
}

func TestMemoryStore_ListSorted(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, store.Save(ctx, id, domain.NewState(id)))
	}

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestMemoryStore_CopiesOnSaveAndLoad(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	state := domain.NewState("iso")
	state.Messages = append(state.Messages, domain.HumanMessage("flight please"))
	require.NoError(t, store.Save(ctx, "iso", state))

	state.Messages[0].Content = "changed after save"
	loaded, err := store.Load(ctx, "iso")
	require.NoError(t, err)
	assert.Equal(t, "flight please", loaded.Messages[0].Content)

	loaded.Messages[0].Content = "changed after load"
	again, err := store.Load(ctx, "iso")
	require.NoError(t, err)
	assert.Equal(t, "flight please", again.Messages[0].Content)
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	store := memory.NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, store.Save(ctx, "x", domain.NewState("x")), context.Canceled)
	_, err := store.Load(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}
