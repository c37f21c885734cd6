package prefs

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "prefs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(ctx, KeyAPIKey)
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, store.Set(ctx, KeyAPIKey, "sk-or-one"))
			got, err := store.Get(ctx, KeyAPIKey)
			require.NoError(t, err)
			assert.Equal(t, "sk-or-one", got)

			require.NoError(t, store.Set(ctx, KeyAPIKey, "sk-or-two"))
			got, err = store.Get(ctx, KeyAPIKey)
			require.NoError(t, err)
			assert.Equal(t, "sk-or-two", got)

			require.NoError(t, store.Delete(ctx, KeyAPIKey))
			require.NoError(t, store.Delete(ctx, KeyAPIKey))
			_, err = store.Get(ctx, KeyAPIKey)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestGetString(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	v, err := GetString(ctx, store, KeySelectedModel)
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, store.Set(ctx, KeySelectedModel, "gpt4o"))
	v, err = GetString(ctx, store, KeySelectedModel)
	require.NoError(t, err)
	assert.Equal(t, "gpt4o", v)
}

func TestSQLiteStorePersistsAcrossOpens(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "prefs.db")

	first, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, KeyAPIKey, "sk-or-persisted"))
	require.NoError(t, first.Close())

	second, err := OpenSQLite(path)
	require.NoError(t, err)
	defer second.Close()

	got, err := second.Get(ctx, KeyAPIKey)
	require.NoError(t, err)
	assert.Equal(t, "sk-or-persisted", got)
}

func TestSaveAPIKey(t *testing.T) {
	ctx := context.Background()
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			cleared, err := APIKeyCleared(ctx, store)
			require.NoError(t, err)
			assert.False(t, cleared, "a fresh store was never cleared")

			require.NoError(t, SaveAPIKey(ctx, store, "sk-or-one"))
			key, err := GetString(ctx, store, KeyAPIKey)
			require.NoError(t, err)
			assert.Equal(t, "sk-or-one", key)

			require.NoError(t, SaveAPIKey(ctx, store, ""))
			_, err = store.Get(ctx, KeyAPIKey)
			assert.ErrorIs(t, err, ErrNotFound)
			cleared, err = APIKeyCleared(ctx, store)
			require.NoError(t, err)
			assert.True(t, cleared)

			require.NoError(t, SaveAPIKey(ctx, store, "sk-or-two"))
			cleared, err = APIKeyCleared(ctx, store)
			require.NoError(t, err)
			assert.False(t, cleared, "setting a key drops the marker")
		})
	}
}
