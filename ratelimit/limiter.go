// Package ratelimit enforces a fixed request budget per client origin.
package ratelimit

import (
	"context"
	"time"
)

const (
	DefaultWindow      = 15 * time.Minute
	DefaultMaxRequests = 100
)

// Store counts hits for a key inside its current window. Hit records one
// request and returns the count including it and the time the window resets.
type Store interface {
	Hit(ctx context.Context, key string, window time.Duration, now time.Time) (count int, resetAt time.Time, err error)
}

// Rule configures the window and request budget.
type Rule struct {
	Window      time.Duration
	MaxRequests int
}

// Decision is the outcome of a single check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is the time until the window resets, never negative.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	if wait := d.ResetAt.Sub(now); wait > 0 {
		return wait
	}
	return 0
}

type Limiter struct {
	store Store
	rule  Rule
	now   func() time.Time
}

func NewLimiter(store Store, rule Rule) *Limiter {
	if rule.Window <= 0 {
		rule.Window = DefaultWindow
	}
	if rule.MaxRequests <= 0 {
		rule.MaxRequests = DefaultMaxRequests
	}
	return &Limiter{store: store, rule: rule, now: time.Now}
}

// WithClock allows injection of a custom clock (primarily for testing).
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	if now != nil {
		l.now = now
	}
	return l
}

func (l *Limiter) Rule() Rule {
	return l.rule
}

func (l *Limiter) Now() time.Time {
	return l.now()
}

// Allow records a request from origin and reports whether it fits the budget.
// The request that takes the count past MaxRequests is the first rejected.
func (l *Limiter) Allow(ctx context.Context, origin string) (Decision, error) {
	now := l.now()
	count, resetAt, err := l.store.Hit(ctx, origin, l.rule.Window, now)
	if err != nil {
		return Decision{Allowed: true, Limit: l.rule.MaxRequests, Remaining: l.rule.MaxRequests, ResetAt: now.Add(l.rule.Window)}, err
	}

	remaining := l.rule.MaxRequests - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   count <= l.rule.MaxRequests,
		Limit:     l.rule.MaxRequests,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}
