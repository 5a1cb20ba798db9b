package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

var _ Store = (*InMemoryStore)(nil)

type bucket struct {
	start time.Time
	count int
}

// InMemoryStore keeps one fixed-window counter per key. Windows past their end
// are reset on the next hit and reclaimed by Sweep.
type InMemoryStore struct {
	mu      sync.Mutex
	buckets map[string]bucket
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{buckets: make(map[string]bucket)}
}

func (s *InMemoryStore) Hit(_ context.Context, key string, window time.Duration, now time.Time) (int, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[key]
	if !ok || now.After(b.start.Add(window)) {
		b = bucket{start: now}
	}
	b.count++
	s.buckets[key] = b
	return b.count, b.start.Add(window), nil
}

// Sweep drops counters whose window ended before now.
func (s *InMemoryStore) Sweep(window time.Duration, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, b := range s.buckets {
		if now.After(b.start.Add(window)) {
			delete(s.buckets, key)
			removed++
		}
	}
	return removed
}

// Run sweeps stale counters every interval until ctx is cancelled.
func (s *InMemoryStore) Run(ctx context.Context, window, interval time.Duration, now func() time.Time) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.Sweep(window, now()); removed > 0 {
				log.Debug().Int("removed", removed).Msg("swept stale rate limit windows")
			}
		}
	}
}

// Len returns the number of tracked keys.
func (s *InMemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}
