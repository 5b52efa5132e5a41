package repositories

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseTabStorage(t *testing.T, store TabStorage) {
	ctx := context.Background()

	t.Run("missing item", func(t *testing.T) {
		_, ok, err := store.GetItem(ctx, "tab-a", "token")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("set then get", func(t *testing.T) {
		require.NoError(t, store.SetItem(ctx, "tab-a", "token", "abc"))
		value, ok, err := store.GetItem(ctx, "tab-a", "token")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "abc", value)
	})

	t.Run("overwrite", func(t *testing.T) {
		require.NoError(t, store.SetItem(ctx, "tab-a", "token", "def"))
		value, _, err := store.GetItem(ctx, "tab-a", "token")
		require.NoError(t, err)
		assert.Equal(t, "def", value)
	})

	t.Run("scopes are isolated", func(t *testing.T) {
		_, ok, err := store.GetItem(ctx, "tab-b", "token")
		require.NoError(t, err)
		assert.False(t, ok, "tab-b must not see tab-a items")
	})

	t.Run("remove item", func(t *testing.T) {
		require.NoError(t, store.SetItem(ctx, "tab-a", "user", `{"username":"alice"}`))
		require.NoError(t, store.RemoveItem(ctx, "tab-a", "user"))
		_, ok, err := store.GetItem(ctx, "tab-a", "user")
		require.NoError(t, err)
		assert.False(t, ok)

		_, ok, err = store.GetItem(ctx, "tab-a", "token")
		require.NoError(t, err)
		assert.True(t, ok, "removing one key keeps the others")
	})

	t.Run("clear", func(t *testing.T) {
		require.NoError(t, store.SetItem(ctx, "tab-b", "token", "other"))
		require.NoError(t, store.Clear(ctx, "tab-a"))

		_, ok, err := store.GetItem(ctx, "tab-a", "token")
		require.NoError(t, err)
		assert.False(t, ok)

		value, ok, err := store.GetItem(ctx, "tab-b", "token")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "other", value)
	})

	t.Run("touch keeps items", func(t *testing.T) {
		require.NoError(t, store.Touch(ctx, "tab-b"))
		value, ok, err := store.GetItem(ctx, "tab-b", "token")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "other", value)
	})

	t.Run("touch unknown scope", func(t *testing.T) {
		require.NoError(t, store.Touch(ctx, "never-touched"))
		_, ok, err := store.GetItem(ctx, "never-touched", "token")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("clear unknown scope", func(t *testing.T) {
		assert.NoError(t, store.Clear(ctx, "never-used"))
	})

	t.Run("empty scope rejected", func(t *testing.T) {
		assert.ErrorIs(t, store.SetItem(ctx, "", "token", "x"), ErrEmptyScope)
		_, _, err := store.GetItem(ctx, "", "token")
		assert.ErrorIs(t, err, ErrEmptyScope)
	})
}

func TestMemoryTabStorage(t *testing.T) {
	exerciseTabStorage(t, NewMemoryTabStorage())
}

func TestFileTabStorage(t *testing.T) {
	exerciseTabStorage(t, NewFileTabStorage(t.TempDir()))
}

func TestRedisTabStorage(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	exerciseTabStorage(t, NewRedisTabStorage(client, time.Hour))
}

func TestRedisTabStorage_TTLRefreshedOnWrite(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := NewRedisTabStorage(client, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.SetItem(ctx, "tab-a", "token", "abc"))
	assert.Equal(t, time.Hour, mr.TTL("tab:tab-a"))

	mr.FastForward(30 * time.Minute)
	require.NoError(t, store.Touch(ctx, "tab-a"))
	assert.Equal(t, time.Hour, mr.TTL("tab:tab-a"), "touch restarts the TTL")

	mr.FastForward(2 * time.Hour)
	_, ok, err := store.GetItem(ctx, "tab-a", "token")
	require.NoError(t, err)
	assert.False(t, ok, "scope should expire after the TTL")
}

func TestMemoryTabStorage_PurgeIdle(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store := &memoryTabStorage{
		tabs: make(map[string]*memoryTab),
		now:  func() time.Time { return now },
	}
	ctx := context.Background()

	require.NoError(t, store.SetItem(ctx, "old", "token", "a"))
	now = now.Add(3 * time.Hour)
	require.NoError(t, store.SetItem(ctx, "fresh", "token", "b"))

	purged, err := store.PurgeIdle(ctx, 2*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, purged)

	_, ok, _ := store.GetItem(ctx, "old", "token")
	assert.False(t, ok)
	_, ok, _ = store.GetItem(ctx, "fresh", "token")
	assert.True(t, ok)
}

func TestFileTabStorage_PurgeIdle(t *testing.T) {
	dir := t.TempDir()
	store := NewFileTabStorage(dir)
	ctx := context.Background()

	require.NoError(t, store.SetItem(ctx, "old", "token", "a"))
	require.NoError(t, store.SetItem(ctx, "fresh", "token", "b"))

	past := time.Now().Add(-3 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "old.json"), past, past))

	purged, err := store.PurgeIdle(ctx, 2*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, purged)

	_, ok, _ := store.GetItem(ctx, "old", "token")
	assert.False(t, ok)
	_, ok, _ = store.GetItem(ctx, "fresh", "token")
	assert.True(t, ok)
}

func TestFileTabStorage_ScopeStaysInDir(t *testing.T) {
	dir := t.TempDir()
	store := NewFileTabStorage(dir)
	ctx := context.Background()

	require.NoError(t, store.SetItem(ctx, "../escape", "token", "x"))

	_, err := os.Stat(filepath.Join(filepath.Dir(dir), "escape.json"))
	assert.True(t, os.IsNotExist(err))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "~", entries[0].Name()[:1])

	_, err = os.Stat(filepath.Join(dir, "tty-42.json"))
	assert.True(t, os.IsNotExist(err))
	require.NoError(t, store.SetItem(ctx, "tty-42", "token", "y"))
	_, err = os.Stat(filepath.Join(dir, "tty-42.json"))
	assert.NoError(t, err, "plain scopes keep readable file names")
}

func TestFileTabStorage_DistinctScopesDoNotShareFiles(t *testing.T) {
	store := NewFileTabStorage(t.TempDir())
	ctx := context.Background()

	scopes := []string{"a.b", "a_b", "a/b", "a b"}
	for _, scope := range scopes {
		require.NoError(t, store.SetItem(ctx, scope, "token", "tok-"+scope))
	}
	for _, scope := range scopes {
		value, ok, err := store.GetItem(ctx, scope, "token")
		require.NoError(t, err)
		assert.True(t, ok, scope)
		assert.Equal(t, "tok-"+scope, value, scope)
	}
}

func TestMemoryTabStorage_TouchDefersPurge(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store := &memoryTabStorage{
		tabs: make(map[string]*memoryTab),
		now:  func() time.Time { return now },
	}
	ctx := context.Background()

	require.NoError(t, store.SetItem(ctx, "reader", "token", "a"))
	now = now.Add(3 * time.Hour)
	require.NoError(t, store.Touch(ctx, "reader"))

	purged, err := store.PurgeIdle(ctx, 2*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, purged)

	_, ok, _ := store.GetItem(ctx, "reader", "token")
	assert.True(t, ok)
}

func TestFileTabStorage_TouchDefersPurge(t *testing.T) {
	dir := t.TempDir()
	store := NewFileTabStorage(dir)
	ctx := context.Background()

	require.NoError(t, store.SetItem(ctx, "reader", "token", "a"))
	past := time.Now().Add(-3 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "reader.json"), past, past))
	require.NoError(t, store.Touch(ctx, "reader"))

	purged, err := store.PurgeIdle(ctx, 2*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, purged)
}

func TestFileTabStorage_CorruptFileIsEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tab.json"), []byte("{not json"), 0600))

	store := NewFileTabStorage(dir)
	_, ok, err := store.GetItem(context.Background(), "tab", "token")
	require.NoError(t, err)
	assert.False(t, ok)
}
