package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisKeyPrefix = "session"
	maxUpdateRetries      = 5
)

var _ Store = (*RedisStore)(nil)

// RedisStore keeps sessions as JSON values whose TTL matches the session's
// remaining lifetime, so expired records disappear on their own.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	now       func() time.Time
}

func NewRedisStore(client *redis.Client, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = defaultRedisKeyPrefix
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix, now: time.Now}
}

func (r *RedisStore) Save(ctx context.Context, session Session) error {
	if session.ID == "" {
		return fmt.Errorf("session id is required")
	}

	data, ttl, err := r.encode(session)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		return r.Delete(ctx, session.ID)
	}

	if err := r.client.Set(ctx, r.key(session.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w: %w", apperrors.ErrStoreUnavailable, err)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, id string) (Session, error) {
	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Session{}, apperrors.ErrSessionExpiredOrAbsent
		}
		return Session{}, fmt.Errorf("redis get session: %w: %w", apperrors.ErrStoreUnavailable, err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	return session, nil
}

// Update reads, modifies and writes the session inside WATCH/MULTI, retrying
// when another request changed the key in between.
func (r *RedisStore) Update(ctx context.Context, id string, fn func(*Session) error) error {
	key := r.key(id)

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return apperrors.ErrSessionExpiredOrAbsent
			}
			return fmt.Errorf("redis get session: %w: %w", apperrors.ErrStoreUnavailable, err)
		}

		var session Session
		if err := json.Unmarshal(data, &session); err != nil {
			return fmt.Errorf("decode session: %w", err)
		}
		if err := fn(&session); err != nil {
			return err
		}

		updated, ttl, err := r.encode(session)
		if err != nil {
			return err
		}
		if ttl <= 0 {
			return apperrors.ErrSessionExpiredOrAbsent
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, ttl)
			return nil
		})
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("redis update session: %w: too many concurrent updates", apperrors.ErrStoreUnavailable)
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("redis del session: %w: %w", apperrors.ErrStoreUnavailable, err)
	}
	return nil
}

// DeleteExpired is a no-op: Redis expires keys itself.
func (r *RedisStore) DeleteExpired(context.Context, time.Time) (int, error) {
	return 0, nil
}

func (r *RedisStore) encode(session Session) ([]byte, time.Duration, error) {
	data, err := json.Marshal(session)
	if err != nil {
		return nil, 0, fmt.Errorf("encode session: %w", err)
	}
	return data, session.ExpiresAt.Sub(r.now()), nil
}

func (r *RedisStore) key(id string) string {
	return fmt.Sprintf("%s:%s", r.keyPrefix, id)
}
