package forgery_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jrsteele09/go-session-auth/forgery"
	"github.com/jrsteele09/go-session-auth/sessions"
	"github.com/stretchr/testify/require"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func setupGuard(t *testing.T) (*forgery.Guard, *sessions.Manager) {
	t.Helper()
	m := sessions.NewManager(sessions.NewInMemoryStore(), time.Hour)
	g, err := forgery.NewGuard(testKey, m)
	require.NoError(t, err)
	return g, m
}

func TestGuard_IssueVerify(t *testing.T) {
	ctx := context.Background()
	g, m := setupGuard(t)

	token, s, err := m.Start(ctx)
	require.NoError(t, err)

	csrf, err := g.Issue(ctx, s)
	require.NoError(t, err)
	require.Len(t, strings.Split(csrf, "."), 3)

	resolved, err := m.Resolve(ctx, token)
	require.NoError(t, err)
	require.True(t, g.Verify(resolved, csrf))

	t.Run("missing or garbage token", func(t *testing.T) {
		require.False(t, g.Verify(resolved, ""))
		require.False(t, g.Verify(resolved, "not-a-token"))
		require.False(t, g.Verify(nil, csrf))
	})

	t.Run("reissue invalidates the previous token", func(t *testing.T) {
		next, err := g.Issue(ctx, resolved)
		require.NoError(t, err)

		latest, err := m.Resolve(ctx, token)
		require.NoError(t, err)
		require.False(t, g.Verify(latest, csrf))
		require.True(t, g.Verify(latest, next))
	})
}

func TestGuard_BoundToSession(t *testing.T) {
	ctx := context.Background()
	g, m := setupGuard(t)

	_, first, err := m.Start(ctx)
	require.NoError(t, err)
	_, second, err := m.Start(ctx)
	require.NoError(t, err)

	csrf, err := g.Issue(ctx, first)
	require.NoError(t, err)
	_, err = g.Issue(ctx, second)
	require.NoError(t, err)

	require.True(t, g.Verify(first, csrf))
	require.False(t, g.Verify(second, csrf))
}

func TestGuard_WrongKey(t *testing.T) {
	ctx := context.Background()
	g, m := setupGuard(t)
	_, s, err := m.Start(ctx)
	require.NoError(t, err)

	csrf, err := g.Issue(ctx, s)
	require.NoError(t, err)

	other, err := forgery.NewGuard([]byte("ffffffffffffffffffffffffffffffff"), m)
	require.NoError(t, err)
	require.False(t, other.Verify(s, csrf))
}

func TestGuard_Expired(t *testing.T) {
	ctx := context.Background()
	g, m := setupGuard(t)
	_, s, err := m.Start(ctx)
	require.NoError(t, err)

	csrf, err := g.Issue(ctx, s)
	require.NoError(t, err)

	g.WithClock(func() time.Time { return time.Now().Add(2 * time.Hour) })
	require.False(t, g.Verify(s, csrf))
}

func TestNewGuard(t *testing.T) {
	m := sessions.NewManager(sessions.NewInMemoryStore(), time.Hour)

	_, err := forgery.NewGuard([]byte("short"), m)
	require.Error(t, err)

	g, err := forgery.NewGuard(nil, m)
	require.NoError(t, err)
	require.NotNil(t, g)
}

func TestGuard_IssueRequiresLiveSession(t *testing.T) {
	g, _ := setupGuard(t)
	_, err := g.Issue(context.Background(), &sessions.Session{ID: "gone"})
	require.Error(t, err)
}
