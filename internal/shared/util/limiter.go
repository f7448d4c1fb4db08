package util

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter wraps rate.Limiter with request-per-minute construction.
type Limiter struct {
	inner *rate.Limiter
}

// NewLimiter creates a token bucket refilling r tokens per second.
func NewLimiter(r float64, b int) *Limiter {
	return &Limiter{inner: rate.NewLimiter(rate.Limit(r), b)}
}

// NewLimiterPerMinute creates a limiter allowing rpm requests per minute.
// A non-positive rpm disables limiting.
func NewLimiterPerMinute(rpm, burst int) *Limiter {
	limit, burst := perMinute(rpm, burst)
	return &Limiter{inner: rate.NewLimiter(limit, burst)}
}

// SetPerMinute retunes a live limiter with NewLimiterPerMinute semantics.
func (l *Limiter) SetPerMinute(rpm, burst int) {
	limit, burst := perMinute(rpm, burst)
	l.inner.SetLimit(limit)
	l.inner.SetBurst(burst)
}

func perMinute(rpm, burst int) (rate.Limit, int) {
	if rpm <= 0 {
		return rate.Inf, 0
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.Every(time.Minute / time.Duration(rpm)), burst
}

// Allow reports whether n events may happen now.
func (l *Limiter) Allow(n int) bool {
	return l.inner.AllowN(time.Now(), n)
}

// Wait blocks until n tokens are available.
func (l *Limiter) Wait(ctx context.Context, n int) error {
	return l.inner.WaitN(ctx, n)
}
