package sessions_test

import (
	"context"
	"sync"
	"testing"
	"time"

	apperrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/sessions"
	"github.com/jrsteele09/go-session-auth/users"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func setupManager(t *testing.T) (*sessions.Manager, *sessions.InMemoryStore, *testClock) {
	t.Helper()
	store := sessions.NewInMemoryStore()
	clock := newTestClock()
	return sessions.NewManager(store, time.Hour, sessions.WithClock(clock.Now)), store, clock
}

var alice = users.Projection{ID: "user-1", Email: "a@x.com"}

func TestManager_CreateResolve(t *testing.T) {
	ctx := context.Background()
	m, store, clock := setupManager(t)

	token, created, err := m.Create(ctx, alice)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.True(t, created.Authenticated)
	require.Equal(t, clock.Now().Add(time.Hour), created.ExpiresAt)

	t.Run("token is not stored", func(t *testing.T) {
		_, err := store.Get(ctx, token)
		require.ErrorIs(t, err, apperrors.ErrSessionExpiredOrAbsent)
		_, err = store.Get(ctx, sessions.SessionID(token))
		require.NoError(t, err)
	})

	t.Run("resolves to an authenticated session", func(t *testing.T) {
		s, err := m.Resolve(ctx, token)
		require.NoError(t, err)
		require.True(t, m.IsAuthenticated(s))
		require.Equal(t, alice, s.User)
	})

	t.Run("unknown and empty tokens are absent", func(t *testing.T) {
		_, err := m.Resolve(ctx, "nope")
		require.ErrorIs(t, err, apperrors.ErrSessionExpiredOrAbsent)
		_, err = m.Resolve(ctx, "")
		require.ErrorIs(t, err, apperrors.ErrSessionExpiredOrAbsent)
	})

	t.Run("tokens are unique", func(t *testing.T) {
		other, _, err := m.Create(ctx, alice)
		require.NoError(t, err)
		require.NotEqual(t, token, other)
	})
}

func TestManager_Expiry(t *testing.T) {
	ctx := context.Background()
	m, store, clock := setupManager(t)

	token, _, err := m.Create(ctx, alice)
	require.NoError(t, err)

	clock.Advance(59 * time.Minute)
	s, err := m.Resolve(ctx, token)
	require.NoError(t, err)
	require.True(t, m.IsAuthenticated(s))

	clock.Advance(time.Minute)
	require.False(t, m.IsAuthenticated(s))
	_, err = m.Resolve(ctx, token)
	require.ErrorIs(t, err, apperrors.ErrSessionExpiredOrAbsent)
	require.Equal(t, 0, store.Len(), "expired session is removed on lookup")
}

func TestManager_Destroy(t *testing.T) {
	ctx := context.Background()
	m, _, _ := setupManager(t)

	token, _, err := m.Create(ctx, alice)
	require.NoError(t, err)

	require.NoError(t, m.Destroy(ctx, token))
	_, err = m.Resolve(ctx, token)
	require.ErrorIs(t, err, apperrors.ErrSessionExpiredOrAbsent)

	require.NoError(t, m.Destroy(ctx, token), "destroy is idempotent")
	require.NoError(t, m.Destroy(ctx, ""))
}

func TestManager_Anonymous(t *testing.T) {
	ctx := context.Background()
	m, _, _ := setupManager(t)

	token, s, err := m.Start(ctx)
	require.NoError(t, err)
	require.False(t, m.IsAuthenticated(s))
	require.False(t, m.IsAuthenticated(nil))

	resolved, err := m.Resolve(ctx, token)
	require.NoError(t, err)
	require.False(t, m.IsAuthenticated(resolved))
}

func TestManager_Flash(t *testing.T) {
	ctx := context.Background()
	m, _, clock := setupManager(t)

	token, _, err := m.Start(ctx)
	require.NoError(t, err)

	require.NoError(t, m.SetFlash(ctx, token, "Registration successful!"))

	msg, err := m.ConsumeFlash(ctx, token)
	require.NoError(t, err)
	require.Equal(t, "Registration successful!", msg)

	msg, err = m.ConsumeFlash(ctx, token)
	require.NoError(t, err)
	require.Empty(t, msg, "flash is one-shot")

	clock.Advance(2 * time.Hour)
	require.ErrorIs(t, m.SetFlash(ctx, token, "late"), apperrors.ErrSessionExpiredOrAbsent)
}

func TestManager_SetForgeryNonce(t *testing.T) {
	ctx := context.Background()
	m, _, _ := setupManager(t)

	token, s, err := m.Start(ctx)
	require.NoError(t, err)
	require.NoError(t, m.SetForgeryNonce(ctx, s.ID, "nonce-1"))

	resolved, err := m.Resolve(ctx, token)
	require.NoError(t, err)
	require.Equal(t, "nonce-1", resolved.ForgeryNonce)

	require.ErrorIs(t, m.SetForgeryNonce(ctx, "missing", "n"), apperrors.ErrSessionExpiredOrAbsent)
}

func TestManager_Sweep(t *testing.T) {
	ctx := context.Background()
	m, store, clock := setupManager(t)

	_, _, err := m.Create(ctx, alice)
	require.NoError(t, err)
	clock.Advance(30 * time.Minute)
	live, _, err := m.Create(ctx, alice)
	require.NoError(t, err)

	clock.Advance(31 * time.Minute)
	removed, err := m.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, removed)
	require.Equal(t, 1, store.Len())

	_, err = m.Resolve(ctx, live)
	require.NoError(t, err)
}

func TestManager_RunStopsOnCancel(t *testing.T) {
	m, _, _ := setupManager(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		m.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestManager_ConcurrentUpdates(t *testing.T) {
	ctx := context.Background()
	m, _, _ := setupManager(t)

	token, s, err := m.Start(ctx)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			require.NoError(t, m.SetForgeryNonce(ctx, s.ID, "nonce"))
		}()
		go func() {
			defer wg.Done()
			require.NoError(t, m.SetFlash(ctx, token, "notice"))
		}()
	}
	wg.Wait()

	resolved, err := m.Resolve(ctx, token)
	require.NoError(t, err)
	require.Equal(t, "nonce", resolved.ForgeryNonce)
	require.Equal(t, "notice", resolved.Flash)
}
