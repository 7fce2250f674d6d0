package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/model"
	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "museum.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_PutGet(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	key := store.Namespaced(store.EntriesKey, "u1")

	in := []model.DiaryEntry{
		{ID: "e1", Timestamp: 100, Language: model.French, Type: model.EntryDiary, OriginalText: "Bonjour"},
	}
	require.NoError(t, s.Put(ctx, key, in))

	var out []model.DiaryEntry
	require.NoError(t, s.Get(ctx, key, &out))
	assert.Equal(t, in, out)
}

func TestStore_PutOverwritesSnapshot(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	key := store.Namespaced(store.VocabKey, "u1")

	require.NoError(t, s.Put(ctx, key, []model.Gem{{ID: "g1"}, {ID: "g2"}}))
	require.NoError(t, s.Put(ctx, key, []model.Gem{{ID: "g3"}}))

	var out []model.Gem
	require.NoError(t, s.Get(ctx, key, &out))
	require.Len(t, out, 1)
	assert.Equal(t, "g3", out[0].ID)
}

func TestStore_GetMissing(t *testing.T) {
	s := openTemp(t)

	var out []model.Gem
	err := s.Get(context.Background(), "missing", &out)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_NamespacesAreIsolated(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, store.Namespaced(store.ProfileKey, "a"), model.Profile{DisplayName: "A"}))
	require.NoError(t, s.Put(ctx, store.Namespaced(store.ProfileKey, "b"), model.Profile{DisplayName: "B"}))

	var p model.Profile
	require.NoError(t, s.Get(ctx, store.Namespaced(store.ProfileKey, "a"), &p))
	assert.Equal(t, "A", p.DisplayName)
}

func TestStore_Delete(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "k", "v"))
	require.NoError(t, s.Delete(ctx, "k"))
	require.NoError(t, s.Delete(ctx, "k"))

	var v string
	assert.ErrorIs(t, s.Get(ctx, "k", &v), store.ErrNotFound)
}

func TestStore_InMemory(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "k", 42))

	var v int
	require.NoError(t, s.Get(ctx, "k", &v))
	assert.Equal(t, 42, v)
}

func TestStore_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "museum.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "k", "persisted"))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	var v string
	require.NoError(t, s.Get(ctx, "k", &v))
	assert.Equal(t, "persisted", v)
}
