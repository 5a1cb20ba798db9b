package fakeuserrepo

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/users"
)

var _ users.UserRepo = (*FakeUserRepo)(nil)

// FakeUserRepo is an in-memory users.UserRepo. The email index is checked and
// written under one lock so concurrent inserts of the same email cannot both
// succeed.
type FakeUserRepo struct {
	users    map[string]*users.User
	emailIds map[string]string // email to user id
	lock     sync.RWMutex

	// FailWith, when set, is returned by every call. Tests use it to simulate
	// an unreachable store.
	FailWith error
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		users:    make(map[string]*users.User),
		emailIds: make(map[string]string),
	}
}

func (ur *FakeUserRepo) FindByEmail(_ context.Context, email string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	if ur.FailWith != nil {
		return nil, ur.FailWith
	}

	id, ok := ur.emailIds[email]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	u := *ur.users[id]
	return &u, nil
}

func (ur *FakeUserRepo) Insert(ctx context.Context, email, passwordHash string) (*users.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ur.lock.Lock()
	defer ur.lock.Unlock()

	if ur.FailWith != nil {
		return nil, ur.FailWith
	}

	if _, ok := ur.emailIds[email]; ok {
		return nil, apperrors.ErrDuplicateEmail
	}

	user := &users.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: passwordHash,
		DateJoined:   time.Now().UTC(),
	}
	ur.users[user.ID] = user
	ur.emailIds[email] = user.ID

	u := *user
	return &u, nil
}

// Count returns the number of stored users.
func (ur *FakeUserRepo) Count() int {
	ur.lock.RLock()
	defer ur.lock.RUnlock()
	return len(ur.users)
}
