package sessions

import (
	"time"

	"github.com/jrsteele09/go-session-auth/users"
)

// Session is the server-side record behind a session cookie. It is keyed by ID,
// the SHA-256 of the token handed to the client; the token itself is never stored.
type Session struct {
	ID            string           `json:"id"`
	Authenticated bool             `json:"authenticated"`
	User          users.Projection `json:"user"`
	CreatedAt     time.Time        `json:"created_at"`
	ExpiresAt     time.Time        `json:"expires_at"`

	ForgeryNonce string `json:"forgery_nonce,omitempty"` // last anti-forgery nonce issued
	Flash        string `json:"flash,omitempty"`         // one-shot notice for the next page render
}

func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
