package users

import (
	"strings"
	"time"
)

type User struct {
	ID    string `json:"id,omitempty"`
	Email string `json:"email,omitempty"` // Normalised (trimmed, lowercase), unique
	// bcrypt hash of the user's password - never serialize
	PasswordHash string    `json:"-"`
	DateJoined   time.Time `json:"date_joined,omitempty"`
}

// Projection is the minimal view of a user carried by an authenticated session.
type Projection struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (u *User) Projection() Projection {
	return Projection{ID: u.ID, Email: u.Email}
}

// NormalizeEmail trims surrounding whitespace and lowercases the address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
