package ratelimiter

import (
	"context"
	"sync"
	"time"
)

// Limiter counts attempts per key in fixed windows.
type Limiter interface {
	// Allow records one attempt for key. When the limit is exceeded it returns false and
	// how long until the current window resets.
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}

type window struct {
	count int
	start time.Time
}

// RateLimiter is an in-process fixed-window limiter. State is lost on restart and is not
// shared between instances.
type RateLimiter struct {
	limit    int
	interval time.Duration
	now      func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

var _ Limiter = (*RateLimiter)(nil)

// NewRateLimiter creates a limiter allowing limit attempts per key in each interval.
func NewRateLimiter(limit int, interval time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:    limit,
		interval: interval,
		now:      time.Now,
		windows:  make(map[string]*window),
	}
}

// Allow implements Limiter.
func (rl *RateLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.windows[key]
	// interval elapsed: start a new window
	if !ok || now.Sub(w.start) >= rl.interval {
		w = &window{start: now}
		rl.windows[key] = w
		rl.prune(now)
	}

	w.count++
	if w.count > rl.limit {
		return false, rl.interval - now.Sub(w.start), nil
	}
	return true, 0, nil
}

// prune drops windows that have expired. Runs only when a new window opens.
func (rl *RateLimiter) prune(now time.Time) {
	for k, w := range rl.windows {
		if now.Sub(w.start) >= rl.interval {
			delete(rl.windows, k)
		}
	}
}
