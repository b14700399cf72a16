package catalog

import (
	"context"
	"sync"
	"time"
)

// RateLimiter spaces outgoing requests evenly. A nil *RateLimiter never waits.
type RateLimiter struct {
	mu            sync.Mutex
	nextAllowedAt time.Time
	interval      time.Duration
}

// NewRateLimiter returns a limiter allowing requestsPerSecond requests.
// Zero or negative disables limiting.
func NewRateLimiter(requestsPerSecond float64) *RateLimiter {
	if requestsPerSecond <= 0 {
		return nil
	}
	return &RateLimiter{interval: time.Duration(float64(time.Second) / requestsPerSecond)}
}

// Wait blocks until the caller's turn or until ctx is done. A slot is
// only taken when Wait returns nil, so abandoned waits do not delay later
// callers.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if r == nil {
		return nil
	}

	for {
		r.mu.Lock()
		now := time.Now()
		if !r.nextAllowedAt.After(now) {
			r.nextAllowedAt = now.Add(r.interval)
			r.mu.Unlock()
			return nil
		}
		sleep := r.nextAllowedAt.Sub(now)
		r.mu.Unlock()

		timer := time.NewTimer(sleep)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}
