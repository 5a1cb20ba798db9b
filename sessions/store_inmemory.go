package sessions

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/go-session-auth/internal/errors"
)

var _ Store = (*InMemoryStore)(nil)

// InMemoryStore is a process-local session store
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session // sessionID -> Session
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[string]Session),
	}
}

// Save creates or replaces a session
func (r *InMemoryStore) Save(_ context.Context, session Session) error {
	if session.ID == "" {
		return fmt.Errorf("session id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[session.ID] = session
	return nil
}

func (r *InMemoryStore) Get(_ context.Context, id string) (Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[id]
	if !ok {
		return Session{}, apperrors.ErrSessionExpiredOrAbsent
	}
	return session, nil
}

func (r *InMemoryStore) Update(_ context.Context, id string, fn func(*Session) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[id]
	if !ok {
		return apperrors.ErrSessionExpiredOrAbsent
	}
	if err := fn(&session); err != nil {
		return err
	}
	r.sessions[id] = session
	return nil
}

// Delete removes a session. Deleting an unknown id is not an error.
func (r *InMemoryStore) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, id)
	return nil
}

func (r *InMemoryStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, s := range r.sessions {
		if s.Expired(now) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored sessions, expired or not.
func (r *InMemoryStore) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
