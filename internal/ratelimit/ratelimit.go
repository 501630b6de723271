// Package ratelimit implements a sliding-window request limiter.
//
// A Limiter owns no state itself; per-key timestamps live in a Store so the
// in-process MemoryStore can be swapped for the RedisStore when several
// instances share one limit.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

var ErrInvalidLimit = errors.New("limit and window must be positive")

// Result is the outcome of a single check.
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Store records hits for a key within a trailing window.
//
// Hit must prune timestamps at or before now-window, deny when the remaining
// count reaches limit, and otherwise record now. The read and the write for a
// key must be atomic with respect to concurrent callers.
type Store interface {
	Hit(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error)
}

type Limiter struct {
	store Store
	now   func() time.Time
}

type Option func(*Limiter)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

func New(store Store, opts ...Option) *Limiter {
	l := &Limiter{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check records a request for key and reports whether it fits within limit
// requests per window.
func (l *Limiter) Check(ctx context.Context, key string, limit int, window time.Duration) (Result, error) {
	if limit <= 0 || window <= 0 {
		return Result{}, ErrInvalidLimit
	}

	res, err := l.store.Hit(ctx, key, limit, window, l.now())
	if err != nil {
		return Result{}, err
	}
	if res.RetryAfter < 0 {
		res.RetryAfter = 0
	}
	return res, nil
}
