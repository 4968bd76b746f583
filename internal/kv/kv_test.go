package kv

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	IDs   []string `json:"ids"`
	Count int      `json:"count"`
}

func backends(t *testing.T) map[string]Store {
	t.Helper()

	file, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	sqlite, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	return map[string]Store{
		"file":   file,
		"sqlite": sqlite,
		"memory": NewMemoryStore(),
	}
}

func TestSlot_RoundTripAcrossBackends(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			slot := NewSlot[sample](store, "favorites")

			_, found, err := slot.Load(ctx)
			require.NoError(t, err)
			assert.False(t, found, "empty store should report not found")

			want := sample{IDs: []string{"a", "b"}, Count: 2}
			require.NoError(t, slot.Save(ctx, want))

			got, found, err := slot.Load(ctx)
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, want, got)

			want.IDs = []string{"c"}
			require.NoError(t, slot.Save(ctx, want))
			got, _, err = slot.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"c"}, got.IDs)

			require.NoError(t, slot.Clear(ctx))
			_, found, err = slot.Load(ctx)
			require.NoError(t, err)
			assert.False(t, found)

			// Clearing twice is fine.
			require.NoError(t, slot.Clear(ctx))
		})
	}
}

func TestSlot_CorruptDocumentIsAnError(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), "device", []byte("{not json")))

	_, found, err := NewSlot[sample](store, "device").Load(context.Background())
	require.Error(t, err)
	assert.False(t, found)
	assert.Contains(t, err.Error(), "decode device")
}

func TestSlot_NilStoreIsInert(t *testing.T) {
	slot := NewSlot[sample](nil, "anything")
	require.NoError(t, slot.Save(context.Background(), sample{Count: 1}))
	_, found, err := slot.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStore_RejectsInvalidNames(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, store.Put(context.Background(), "../escape", []byte("{}")))
			_, err := store.Get(context.Background(), "")
			assert.Error(t, err)
		})
	}
}

func TestFileStore_WritesPrivateFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Put(context.Background(), "credentials", []byte(`{"api_key":"k"}`)))

	info, err := os.Stat(filepath.Join(dir, "credentials.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files should not be left behind")
}

func TestOpen_SelectsBackend(t *testing.T) {
	dir := t.TempDir()

	fileStore, err := Open("", dir)
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, fileStore)

	sqliteStore, err := Open("SQLite", dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqliteStore.Close() })
	assert.IsType(t, &SQLiteStore{}, sqliteStore)
	assert.FileExists(t, filepath.Join(dir, "larder.db"))

	_, err = Open("redis", dir)
	assert.Error(t, err)
}
