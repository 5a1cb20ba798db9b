// Package forgery issues and verifies anti-forgery tokens bound to a session.
//
// A token is an HS256 JWT whose subject is the session id and whose jti is a
// random nonce. Only the nonce most recently issued for a session verifies.
package forgery

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-session-auth/sessions"
)

const (
	// FormField is the form field carrying the token on POST requests.
	FormField = "_csrf"
	// HeaderName is accepted in place of the form field.
	HeaderName = "X-CSRF-Token"

	nonceBytes = 16
	minKeyLen  = 32
)

// NonceRecorder stores the latest nonce for a session.
type NonceRecorder interface {
	SetForgeryNonce(ctx context.Context, sessionID, nonce string) error
}

type Guard struct {
	key      []byte
	sessions NonceRecorder
	now      func() time.Time
}

// NewGuard creates a Guard signing with key. An empty key is replaced by a
// random per-process key, which invalidates outstanding tokens on restart.
func NewGuard(key []byte, recorder NonceRecorder) (*Guard, error) {
	if len(key) == 0 {
		key = make([]byte, minKeyLen)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("[forgery NewGuard] generate key: %w", err)
		}
	}
	if len(key) < minKeyLen {
		return nil, fmt.Errorf("[forgery NewGuard] key must be at least %d bytes", minKeyLen)
	}
	return &Guard{key: key, sessions: recorder, now: time.Now}, nil
}

// WithClock allows injection of a custom clock (primarily for testing).
func (g *Guard) WithClock(now func() time.Time) *Guard {
	if now != nil {
		g.now = now
	}
	return g
}

// Issue generates a fresh token for session, replacing any previously issued one.
func (g *Guard) Issue(ctx context.Context, session *sessions.Session) (string, error) {
	if session == nil {
		return "", errors.New("[forgery Issue] session is required")
	}

	nonce, err := randomNonce()
	if err != nil {
		return "", fmt.Errorf("[forgery Issue] %w", err)
	}
	if err := g.sessions.SetForgeryNonce(ctx, session.ID, nonce); err != nil {
		return "", fmt.Errorf("[forgery Issue] record nonce: %w", err)
	}
	session.ForgeryNonce = nonce

	claims := jwt.RegisteredClaims{
		Subject:   session.ID,
		ID:        nonce,
		IssuedAt:  jwt.NewNumericDate(g.now()),
		ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.key)
	if err != nil {
		return "", fmt.Errorf("[forgery Issue] sign: %w", err)
	}
	return signed, nil
}

// Verify reports whether presented is the token last issued for session.
func (g *Guard) Verify(session *sessions.Session, presented string) bool {
	if session == nil || presented == "" || session.ForgeryNonce == "" {
		return false
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(presented, claims, func(*jwt.Token) (interface{}, error) {
		return g.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(g.now),
	)
	if err != nil {
		return false
	}

	if subtle.ConstantTimeCompare([]byte(claims.Subject), []byte(session.ID)) != 1 {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(claims.ID), []byte(session.ForgeryNonce)) == 1
}

func randomNonce() (string, error) {
	b := make([]byte, nonceBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
