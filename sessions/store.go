package sessions

import (
	"context"
	"time"
)

// Store persists session records. Get returns errors.ErrSessionExpiredOrAbsent
// for unknown ids. Update applies fn atomically to an existing record; fn may
// return an error to abort without saving.
type Store interface {
	Save(ctx context.Context, session Session) error
	Get(ctx context.Context, id string) (Session, error)
	Update(ctx context.Context, id string, fn func(*Session) error) error
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
