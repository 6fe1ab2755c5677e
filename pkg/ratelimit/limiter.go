package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter defines the interface for rate limiting
type Limiter interface {
	// Wait blocks until the rate limit allows another request
	Wait(ctx context.Context) error
}

// Interval enforces a fixed minimum gap between consecutive grants.
// It is safe for concurrent use, so one instance can be shared by every
// stage and worker that talks to the same upstream.
type Interval struct {
	limiter *rate.Limiter
}

// NewInterval creates a limiter that allows one request per interval.
// A non-positive interval disables limiting.
func NewInterval(interval time.Duration) *Interval {
	return &Interval{limiter: newLimiter(interval)}
}

// Wait blocks until the minimum interval has elapsed since the previous grant
func (l *Interval) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

func newLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	// Burst 1: never more than one request per interval, even after idling
	return rate.NewLimiter(rate.Every(interval), 1)
}
