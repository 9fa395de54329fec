package boltdb

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LexForumLab/lexforum/client/internal/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("")
	assert.ErrorIs(t, err, ErrEmptyPath)
}

func TestSetGetRemove(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	_, err := store.Get(ctx, "draft:reminders:new")
	assert.ErrorIs(t, err, storage.ErrKeyNotFound)

	require.NoError(t, store.Set(ctx, "draft:reminders:new", []byte(`{"title":"Draft"}`)))
	value, err := store.Get(ctx, "draft:reminders:new")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"title":"Draft"}`), value)

	require.NoError(t, store.Set(ctx, "draft:reminders:new", []byte(`{"title":"Edited"}`)))
	value, err = store.Get(ctx, "draft:reminders:new")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"title":"Edited"}`), value)

	require.NoError(t, store.Remove(ctx, "draft:reminders:new"))
	_, err = store.Get(ctx, "draft:reminders:new")
	assert.ErrorIs(t, err, storage.ErrKeyNotFound)
}

func TestRemoveAbsentKeyIsNoOp(t *testing.T) {
	store := openTestStore(t)
	assert.NoError(t, store.Remove(context.Background(), "missing"))
}

func TestKeysListsEveryStoredKey(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	require.NoError(t, store.Set(ctx, "a", []byte("1")))
	require.NoError(t, store.Set(ctx, "b", []byte("2")))

	keys, err := store.Keys(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, keys)
}

func TestEmptyKeyRejected(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	_, err := store.Get(ctx, "")
	assert.True(t, errors.Is(err, storage.ErrEmptyKey))
	assert.ErrorIs(t, store.Set(ctx, "", nil), storage.ErrEmptyKey)
	assert.ErrorIs(t, store.Remove(ctx, ""), storage.ErrEmptyKey)
}

func TestValuesSurviveReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "client.db")

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "draft:comments:7", []byte("body")))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	value, err := reopened.Get(ctx, "draft:comments:7")
	require.NoError(t, err)
	assert.Equal(t, []byte("body"), value)
}
