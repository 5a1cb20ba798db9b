package sessions

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	apperrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/users"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultTTL is the absolute lifetime of a session.
	DefaultTTL = 1 * time.Hour

	tokenBytes = 32
)

// Manager owns the session table. It is the only component that creates,
// resolves or destroys sessions, and defines what "authenticated" means.
type Manager struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

type Option func(*Manager)

// WithClock injects a custom clock (primarily for testing).
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

func NewManager(store Store, ttl time.Duration, opts ...Option) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m := &Manager{store: store, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Start creates an anonymous session. Anonymous sessions carry anti-forgery
// nonces and flash notices for visitors who have not logged in.
func (m *Manager) Start(ctx context.Context) (string, *Session, error) {
	return m.newSession(ctx, false, users.Projection{})
}

// Create creates an authenticated session for user and returns the token the
// client must present on subsequent requests.
func (m *Manager) Create(ctx context.Context, user users.Projection) (string, *Session, error) {
	return m.newSession(ctx, true, user)
}

func (m *Manager) newSession(ctx context.Context, authenticated bool, user users.Projection) (string, *Session, error) {
	token, err := generateToken()
	if err != nil {
		return "", nil, fmt.Errorf("[Manager newSession] %w", err)
	}

	now := m.now().UTC()
	session := Session{
		ID:            SessionID(token),
		Authenticated: authenticated,
		User:          user,
		CreatedAt:     now,
		ExpiresAt:     now.Add(m.ttl),
	}
	if err := m.store.Save(ctx, session); err != nil {
		return "", nil, fmt.Errorf("[Manager newSession] save: %w", err)
	}
	return token, &session, nil
}

// Resolve returns the live session for token. Unknown and expired tokens both
// yield errors.ErrSessionExpiredOrAbsent.
func (m *Manager) Resolve(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, apperrors.ErrSessionExpiredOrAbsent
	}

	id := SessionID(token)
	session, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if session.Expired(m.now()) {
		if err := m.store.Delete(ctx, id); err != nil {
			log.Warn().Err(err).Msg("failed to delete expired session")
		}
		return nil, apperrors.ErrSessionExpiredOrAbsent
	}
	return &session, nil
}

// Destroy removes the session for token. Destroying an absent session is not an error.
func (m *Manager) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return m.store.Delete(ctx, SessionID(token))
}

func (m *Manager) IsAuthenticated(session *Session) bool {
	return session != nil && session.Authenticated && !session.Expired(m.now())
}

// SetFlash stores a notice to be shown once on the next page render.
func (m *Manager) SetFlash(ctx context.Context, token, message string) error {
	return m.update(ctx, SessionID(token), func(s *Session) {
		s.Flash = message
	})
}

// ConsumeFlash returns and clears the pending notice.
func (m *Manager) ConsumeFlash(ctx context.Context, token string) (string, error) {
	var message string
	err := m.update(ctx, SessionID(token), func(s *Session) {
		message, s.Flash = s.Flash, ""
	})
	return message, err
}

// SetForgeryNonce records nonce as the latest anti-forgery value for the session.
func (m *Manager) SetForgeryNonce(ctx context.Context, sessionID, nonce string) error {
	return m.update(ctx, sessionID, func(s *Session) {
		s.ForgeryNonce = nonce
	})
}

func (m *Manager) update(ctx context.Context, id string, fn func(*Session)) error {
	now := m.now()
	return m.store.Update(ctx, id, func(s *Session) error {
		if s.Expired(now) {
			return apperrors.ErrSessionExpiredOrAbsent
		}
		fn(s)
		return nil
	})
}

// Sweep removes expired sessions from the store.
func (m *Manager) Sweep(ctx context.Context) (int, error) {
	return m.store.DeleteExpired(ctx, m.now())
}

// Run sweeps expired sessions every interval until ctx is cancelled.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := m.Sweep(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("session sweep failed")
				continue
			}
			if removed > 0 {
				log.Debug().Int("removed", removed).Msg("swept expired sessions")
			}
		}
	}
}

// SessionID derives the store key for a client token.
func SessionID(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func generateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
