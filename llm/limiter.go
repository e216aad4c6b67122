package llm

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// NewLimiter returns a limiter allowing n requests per interval with a burst
// of n, or nil when n is 0 or less.
func NewLimiter(n int, interval time.Duration) *rate.Limiter {
	if n <= 0 {
		return nil
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return rate.NewLimiter(rate.Every(interval/time.Duration(n)), n)
}

// WaitLimiter blocks until limiter grants a request. A nil limiter never
// blocks.
func WaitLimiter(ctx context.Context, limiter *rate.Limiter) error {
	if limiter == nil {
		return nil
	}
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	return nil
}
