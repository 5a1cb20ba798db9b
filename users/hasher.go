package users

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

const (
	// DefaultHashCost is the bcrypt work factor used for new password hashes.
	DefaultHashCost = 12
	// MaxPasswordBytes is the longest password bcrypt will hash.
	MaxPasswordBytes = 72
)

// Hasher hashes and verifies passwords with bcrypt. Concurrent bcrypt work is
// bounded so a burst of logins cannot starve the rest of the process.
type Hasher struct {
	cost int
	sem  *semaphore.Weighted

	dummyOnce sync.Once
	dummyHash []byte
}

// NewHasher creates a Hasher with the given bcrypt cost. A cost outside
// bcrypt's range falls back to DefaultHashCost. maxConcurrent <= 0 means
// GOMAXPROCS.
func NewHasher(cost, maxConcurrent int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultHashCost
	}
	if maxConcurrent <= 0 {
		maxConcurrent = runtime.GOMAXPROCS(0)
	}
	return &Hasher{cost: cost, sem: semaphore.NewWeighted(int64(maxConcurrent))}
}

// Hash returns a salted bcrypt hash of the password.
func (h *Hasher) Hash(ctx context.Context, password string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("[Hasher Hash] waiting for hash slot: %w", err)
	}
	defer h.sem.Release(1)

	bytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("[Hasher Hash] %w", err)
	}
	return string(bytes), nil
}

// Verify reports whether password matches hash. Malformed hashes, cancelled
// contexts and mismatches all return false.
func (h *Hasher) Verify(ctx context.Context, password, hash string) bool {
	if len(password) > MaxPasswordBytes {
		return false
	}
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false
	}
	defer h.sem.Release(1)

	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Equalize performs one comparison against a fixed hash so that a lookup miss
// costs roughly the same as a password mismatch.
func (h *Hasher) Equalize(ctx context.Context, password string) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return
	}
	defer h.sem.Release(1)

	h.dummyOnce.Do(func() {
		h.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("equalize"), h.cost)
	})
	_ = bcrypt.CompareHashAndPassword(h.dummyHash, []byte(password))
}
