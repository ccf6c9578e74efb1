package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/voyage/pkg/adapters/file"
	"github.com/aretw0/voyage/pkg/domain"
	"github.com/aretw0/voyage/pkg/ports"
	"github.com/aretw0/voyage/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Ensure Store implements StateStore
var _ ports.StateStore = (*file.Store)(nil)

func TestFileStore_Contract(t *testing.T) {
	store := file.New(t.TempDir())
	tests.RunStateStoreContract(t, store)
}

func TestFileStore_WritesJSONFile(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	state := domain.NewState("123")
	state.Messages = append(state.Messages, domain.HumanMessage("book me a flight"))
	require.NoError(t, store.Save(ctx, "123", state))

	data, err := os.ReadFile(filepath.Join(dir, "123.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"book me a flight"`)
	assert.Contains(t, string(data), `"phase": "model_step"`)

	// Overwrite keeps a single file and no temp leftovers.
	state.Phase = domain.PhaseEmailPending
	require.NoError(t, store.Save(ctx, "123", state))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileStore_ListIgnoresTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "a", domain.NewState("a")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tmp-a-1.json"), []byte("{}"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids)
}

func TestFileStore_ListMissingDir(t *testing.T) {
	store := file.New(filepath.Join(t.TempDir(), "missing"))
	ids, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestFileStore_RejectsBadIDs(t *testing.T) {
	store := file.New(t.TempDir())
	ctx := context.Background()

	assert.ErrorIs(t, store.Save(ctx, "", domain.NewState("")), file.ErrInvalidSessionID)
	assert.ErrorIs(t, store.Save(ctx, "../escape", domain.NewState("x")), file.ErrInvalidSessionID)
	assert.ErrorIs(t, store.Save(ctx, "tmp-1", domain.NewState("x")), file.ErrInvalidSessionID)
	_, err := store.Load(ctx, "a/b")
	assert.ErrorIs(t, err, file.ErrInvalidSessionID)
}

func TestFileStore_DefaultPath(t *testing.T) {
	store := file.New("")
	assert.Equal(t, filepath.Join(".voyage", "sessions"), store.BasePath)
}

func TestFileStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0o644))

	_, err := store.Load(context.Background(), "bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrSessionNotFound)
	assert.Contains(t, err.Error(), "corrupt session file")
}
