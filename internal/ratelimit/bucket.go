package ratelimit

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Bucket throttles outbound requests with a token bucket. Tokens refill
// continuously at Rate per second up to Burst. Acquire never rejects; it
// waits until a token is free.
type Bucket struct {
	limiter *rate.Limiter
}

// New creates a bucket that starts full. A non-positive perSecond disables
// throttling. burst is raised to 1 if smaller.
func New(perSecond float64, burst int) *Bucket {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	return &Bucket{limiter: rate.NewLimiter(limit, burst)}
}

// Acquire blocks until one token is available and consumes it. It returns
// the context error if ctx ends first, in which case no token is consumed.
func (b *Bucket) Acquire(ctx context.Context) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}

// Tokens reports the tokens currently available.
func (b *Bucket) Tokens() float64 {
	return b.limiter.Tokens()
}

func (b *Bucket) Rate() float64 {
	return float64(b.limiter.Limit())
}

func (b *Bucket) Burst() int {
	return b.limiter.Burst()
}
