package services_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumematch/scanner-web/internal/models"
	"resumematch/scanner-web/internal/repositories"
	"resumematch/scanner-web/internal/services"
)

// brokenStorage fails every call.
type brokenStorage struct{}

var errStorageDown = errors.New("storage down")

func (brokenStorage) GetItem(context.Context, string, string) (string, bool, error) {
	return "", false, errStorageDown
}
func (brokenStorage) SetItem(context.Context, string, string, string) error { return errStorageDown }
func (brokenStorage) RemoveItem(context.Context, string, string) error      { return errStorageDown }
func (brokenStorage) Clear(context.Context, string) error                   { return errStorageDown }
func (brokenStorage) Touch(context.Context, string) error                   { return errStorageDown }
func (brokenStorage) PurgeIdle(context.Context, time.Duration) (int, error) {
	return 0, errStorageDown
}

func TestTransitionTable(t *testing.T) {
	assert.True(t, services.IsTransitionAllowed(services.StateRehydrating, services.StateUnauthenticated))
	assert.True(t, services.IsTransitionAllowed(services.StateRehydrating, services.StateAuthenticated))
	assert.True(t, services.IsTransitionAllowed(services.StateUnauthenticated, services.StateAuthenticated))
	assert.True(t, services.IsTransitionAllowed(services.StateAuthenticated, services.StateUnauthenticated))

	assert.False(t, services.IsTransitionAllowed(services.StateUnauthenticated, services.StateRehydrating))
	assert.False(t, services.IsTransitionAllowed(services.StateAuthenticated, services.StateRehydrating))
}

func TestRehydrate(t *testing.T) {
	ctx := context.Background()

	t.Run("empty storage", func(t *testing.T) {
		b := newFakeBackend(t)
		tab, _ := newTestTab(t, b)

		assert.Equal(t, services.StateRehydrating, tab.Auth.State())
		require.NoError(t, tab.Auth.Rehydrate(ctx))
		assert.Equal(t, services.StateUnauthenticated, tab.Auth.State())
	})

	t.Run("stored token and user", func(t *testing.T) {
		b := newFakeBackend(t)
		tab, _ := newTestTab(t, b)
		require.NoError(t, tab.Session.Set(ctx, "tok", &models.User{ID: "u-9", Username: "alice"}))

		require.NoError(t, tab.Auth.Rehydrate(ctx))
		snap := tab.Auth.Snapshot()
		assert.True(t, snap.IsAuthenticated())
		assert.Equal(t, "tok", snap.Token)
		require.NotNil(t, snap.User)
		assert.Equal(t, "alice", snap.User.Username)
	})

	t.Run("runs once", func(t *testing.T) {
		b := newFakeBackend(t)
		tab, _ := newTestTab(t, b)
		require.NoError(t, tab.Auth.Rehydrate(ctx))

		require.NoError(t, tab.Session.Set(ctx, "late", nil))
		require.NoError(t, tab.Auth.Rehydrate(ctx))
		assert.Equal(t, services.StateUnauthenticated, tab.Auth.State())
	})

	t.Run("storage failure keeps rehydrating", func(t *testing.T) {
		store := services.NewSessionStore(brokenStorage{}, "tab")
		auth := services.NewAuthContext(store, nil)

		err := auth.Rehydrate(ctx)
		assert.ErrorIs(t, err, errStorageDown)
		assert.Equal(t, services.StateRehydrating, auth.State())
	})
}

func TestLoginSuccess(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend(t)
	b.users["alice"] = "longenough1"
	tab, storage := newTestTab(t, b)
	require.NoError(t, tab.Auth.Rehydrate(ctx))

	var seen []services.AuthState
	unsubscribe := tab.Auth.Subscribe(func(s services.Snapshot) { seen = append(seen, s.State) })
	defer unsubscribe()

	require.NoError(t, tab.Auth.Login(ctx, "  alice ", "longenough1"))

	snap := tab.Auth.Snapshot()
	assert.Equal(t, services.StateAuthenticated, snap.State)
	assert.Equal(t, fakeToken, snap.Token)
	require.NotNil(t, snap.User)
	assert.Equal(t, models.User{ID: "u-1", Username: "alice"}, *snap.User)

	token, ok, err := storage.GetItem(ctx, "tab-1", "token")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, fakeToken, token)

	stored, err := tab.Session.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, stored.User)
	assert.Equal(t, "u-1", stored.User.ID)

	assert.NotEmpty(t, seen)
	assert.Equal(t, services.StateAuthenticated, seen[len(seen)-1])
	assert.Equal(t, []string{"Bearer " + fakeToken}, b.headersFor("/api/auth/me"))
}

func TestLoginTokenShapes(t *testing.T) {
	ctx := context.Background()
	bodies := []any{
		map[string]any{"access_token": "tok-a"},
		map[string]any{"token": "tok-b"},
		map[string]any{"data": map[string]any{"access_token": "tok-c"}},
	}
	want := []string{"tok-a", "tok-b", "tok-c"}

	for i, body := range bodies {
		b := newFakeBackend(t)
		b.users["alice"] = "longenough1"
		b.loginBody = body
		tab, _ := newTestTab(t, b)

		require.NoError(t, tab.Auth.Login(ctx, "alice", "longenough1"))
		assert.Equal(t, want[i], tab.Auth.Snapshot().Token)
	}
}

func TestLoginProfileFailureKeepsUsername(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend(t)
	b.users["alice"] = "longenough1"
	b.meStatus = http.StatusInternalServerError
	tab, _ := newTestTab(t, b)

	require.NoError(t, tab.Auth.Login(ctx, "alice", "longenough1"))

	snap := tab.Auth.Snapshot()
	assert.True(t, snap.IsAuthenticated())
	require.NotNil(t, snap.User)
	assert.Equal(t, models.User{Username: "alice"}, *snap.User)
}

func TestLoginFailureChangesNothing(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend(t)
	b.users["alice"] = "longenough1"
	tab, storage := newTestTab(t, b)
	require.NoError(t, tab.Auth.Rehydrate(ctx))

	before := tab.Auth.Snapshot()

	err := tab.Auth.Login(ctx, "alice", "wrong-password")
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrAuth)
	assert.Equal(t, "invalid credentials", services.Friendly(err, "Login failed"))

	assert.Equal(t, before, tab.Auth.Snapshot())
	_, ok, err := storage.GetItem(ctx, "tab-1", "token")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, b.callCount("/api/auth/me"))
}

func TestLoginWithoutToken(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend(t)
	b.users["alice"] = "longenough1"
	b.loginBody = map[string]any{"status": "success", "message": "ok"}
	tab, storage := newTestTab(t, b)
	require.NoError(t, tab.Auth.Rehydrate(ctx))

	err := tab.Auth.Login(ctx, "alice", "longenough1")
	assert.ErrorIs(t, err, services.ErrAuth)
	assert.Equal(t, "No token returned", services.Friendly(err, ""))
	assert.Equal(t, services.StateUnauthenticated, tab.Auth.State())

	_, ok, _ := storage.GetItem(ctx, "tab-1", "token")
	assert.False(t, ok)
}

func TestLoginValidation(t *testing.T) {
	b := newFakeBackend(t)
	tab, _ := newTestTab(t, b)

	assert.ErrorIs(t, tab.Auth.Login(context.Background(), "   ", "secret"), services.ErrValidation)
	assert.ErrorIs(t, tab.Auth.Login(context.Background(), "alice", ""), services.ErrValidation)
	assert.Zero(t, b.callCount("/api/auth/login"))
}

func TestLogoutFromEveryState(t *testing.T) {
	ctx := context.Background()

	t.Run("rehydrating", func(t *testing.T) {
		b := newFakeBackend(t)
		tab, _ := newTestTab(t, b)
		tab.Auth.Logout(ctx)
		assert.Equal(t, services.StateUnauthenticated, tab.Auth.State())
	})

	t.Run("unauthenticated", func(t *testing.T) {
		b := newFakeBackend(t)
		tab, _ := newTestTab(t, b)
		require.NoError(t, tab.Auth.Rehydrate(ctx))
		tab.Auth.Logout(ctx)
		assert.Equal(t, services.StateUnauthenticated, tab.Auth.State())
	})

	t.Run("authenticated", func(t *testing.T) {
		b := newFakeBackend(t)
		b.users["alice"] = "longenough1"
		tab, storage := newTestTab(t, b)
		require.NoError(t, tab.Auth.Login(ctx, "alice", "longenough1"))

		tab.Auth.Logout(ctx)

		snap := tab.Auth.Snapshot()
		assert.Equal(t, services.StateUnauthenticated, snap.State)
		assert.Empty(t, snap.Token)
		assert.Nil(t, snap.User)

		_, ok, err := storage.GetItem(ctx, "tab-1", "token")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("storage failure", func(t *testing.T) {
		auth := services.NewAuthContext(services.NewSessionStore(brokenStorage{}, "tab"), nil)
		auth.Logout(ctx)
		assert.Equal(t, services.StateUnauthenticated, auth.State())
	})
}

func TestLogoutDuringProfileFetch(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend(t)
	b.users["alice"] = "longenough1"
	b.delay = 150 * time.Millisecond
	tab, storage := newTestTab(t, b)
	require.NoError(t, tab.Auth.Rehydrate(ctx))

	signedIn := make(chan struct{}, 1)
	unsubscribe := tab.Auth.Subscribe(func(s services.Snapshot) {
		if s.IsAuthenticated() {
			select {
			case signedIn <- struct{}{}:
			default:
			}
		}
	})
	defer unsubscribe()

	done := make(chan error, 1)
	go func() { done <- tab.Auth.Login(ctx, "alice", "longenough1") }()

	select {
	case <-signedIn:
	case <-time.After(2 * time.Second):
		t.Fatal("login never reached the authenticated state")
	}
	tab.Auth.Logout(ctx)
	require.NoError(t, <-done)

	snap := tab.Auth.Snapshot()
	assert.Equal(t, services.StateUnauthenticated, snap.State)
	assert.Empty(t, snap.Token)
	assert.Nil(t, snap.User)

	for _, key := range []string{"token", "user"} {
		_, ok, err := storage.GetItem(ctx, "tab-1", key)
		require.NoError(t, err)
		assert.False(t, ok, key)
	}
}

func TestSyncAfterStorageLoss(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend(t)
	b.users["alice"] = "longenough1"
	tab, storage := newTestTab(t, b)
	require.NoError(t, tab.Auth.Login(ctx, "alice", "longenough1"))

	out, err := tab.Auth.Sync(ctx)
	require.NoError(t, err)
	assert.False(t, out, "matching session is kept")
	assert.Equal(t, services.StateAuthenticated, tab.Auth.State())

	require.NoError(t, storage.Clear(ctx, "tab-1"))

	out, err = tab.Auth.Sync(ctx)
	require.NoError(t, err)
	assert.True(t, out)
	assert.Equal(t, services.StateUnauthenticated, tab.Auth.State())

	out, err = tab.Auth.Sync(ctx)
	require.NoError(t, err)
	assert.False(t, out, "unauthenticated contexts are left alone")
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend(t)
	tab, _ := newTestTab(t, b)

	var mu sync.Mutex
	calls := 0
	unsubscribe := tab.Auth.Subscribe(func(services.Snapshot) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	require.NoError(t, tab.Auth.Rehydrate(ctx))
	unsubscribe()
	tab.Auth.Logout(ctx)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
}

func TestTabsAreIsolated(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend(t)
	b.users["alice"] = "longenough1"

	storage := repositories.NewMemoryTabStorage()
	cfg := services.PipelineConfig{BaseURL: b.URL()}
	parser := services.NewDocumentParserService(0)

	first, err := services.NewTab("tab-a", storage, cfg, parser)
	require.NoError(t, err)
	second, err := services.NewTab("tab-b", storage, cfg, parser)
	require.NoError(t, err)

	require.NoError(t, first.Auth.Login(ctx, "alice", "longenough1"))
	require.NoError(t, second.Auth.Rehydrate(ctx))

	assert.Equal(t, services.StateAuthenticated, first.Auth.State())
	assert.Equal(t, services.StateUnauthenticated, second.Auth.State())
}
