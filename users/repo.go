package users

import "context"

// UserRepo is the credential store gateway. FindByEmail returns
// errors.ErrNotFound for unknown emails. Insert must reject an email that is
// already stored with errors.ErrDuplicateEmail, even when a preceding
// FindByEmail found nothing.
type UserRepo interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	Insert(ctx context.Context, email, passwordHash string) (*User, error)
}
