// Package pguserrepo implements users.UserRepo on PostgreSQL.
package pguserrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	apperrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/users"
)

const (
	usersTable = "users"

	// uniqueViolation is the SQLSTATE raised when a unique index rejects a row.
	uniqueViolation = "23505"
)

var _ users.UserRepo = (*UserRepo)(nil)

// pgExecutor is satisfied by *pgxpool.Pool and pgxmock pools.
type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type UserRepo struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
	now     func() time.Time
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return newUserRepo(pool)
}

func newUserRepo(exec pgExecutor) *UserRepo {
	return &UserRepo{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		now:     time.Now,
	}
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*users.User, error) {
	stmt, args, err := r.builder.
		Select("id", "email", "password_hash", "created_at").
		From(usersTable).
		Where(squirrel.Eq{"email": email}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user sql: %w", err)
	}

	var u users.User
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DateJoined); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("select user: %w: %w", apperrors.ErrStoreUnavailable, err)
	}
	return &u, nil
}

// Insert adds a user in a single statement. The unique index on email makes a
// concurrent duplicate fail with ErrDuplicateEmail instead of overwriting.
func (r *UserRepo) Insert(ctx context.Context, email, passwordHash string) (*users.User, error) {
	u := users.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: passwordHash,
		DateJoined:   r.now().UTC(),
	}

	stmt, args, err := r.builder.
		Insert(usersTable).
		Columns("id", "email", "password_hash", "created_at").
		Values(u.ID, u.Email, u.PasswordHash, u.DateJoined).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert user sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("insert user: %w: %w", apperrors.ErrStoreUnavailable, err)
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
