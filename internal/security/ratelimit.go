// Package security implements authorization and payload validation for
// user mutations, time-windowed rate limiting, and the security audit log.
package security

import (
	"context"
	"sync"
	"time"
)

// Limiter is a sliding-window rate limiter. Allow records the attempt and
// reports whether the key stays within its window budget, as one step:
// there is no separate commit a failure could skip.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

// SlidingWindowLimiter keeps per-key timestamp lists in process memory.
// Expired timestamps are pruned lazily on access; state lives for the
// process lifetime only.
type SlidingWindowLimiter struct {
	mu       sync.Mutex
	window   time.Duration
	max      int
	attempts map[string][]time.Time
}

// NewSlidingWindowLimiter allows up to max attempts per key within the
// trailing window.
func NewSlidingWindowLimiter(max int, window time.Duration) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		window:   window,
		max:      max,
		attempts: make(map[string][]time.Time),
	}
}

// Allow records an attempt for key and reports whether the key is still
// within budget.
func (l *SlidingWindowLimiter) Allow(_ context.Context, key string) bool {
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.attempts[key][:0]
	for _, at := range l.attempts[key] {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	kept = append(kept, now)
	l.attempts[key] = kept

	return len(kept) <= l.max
}

// Count returns the number of attempts currently inside the window.
func (l *SlidingWindowLimiter) Count(key string) int {
	cutoff := time.Now().Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for _, at := range l.attempts[key] {
		if at.After(cutoff) {
			n++
		}
	}
	return n
}
