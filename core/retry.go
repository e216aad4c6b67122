package core

import (
	"context"
	"time"
)

// RetryPolicy bounds how often Exec is attempted and how long to wait
// between attempts. The delay is fixed: no backoff growth and no jitter.
type RetryPolicy struct {
	MaxRetries int           // total attempts, minimum 1
	Wait       time.Duration // delay between attempts, minimum 0
}

// DefaultRetryPolicy is a single attempt with no delay.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 1}
}

// NewRetryPolicy returns a normalized policy.
func NewRetryPolicy(maxRetries int, wait time.Duration) RetryPolicy {
	return RetryPolicy{MaxRetries: maxRetries, Wait: wait}.Normalize()
}

// Normalize coerces MaxRetries to at least 1 and Wait to at least 0.
func (p RetryPolicy) Normalize() RetryPolicy {
	if p.MaxRetries < 1 {
		p.MaxRetries = 1
	}
	if p.Wait < 0 {
		p.Wait = 0
	}
	return p
}

// attemptFunc runs one attempt.
type attemptFunc[T any] func(attempt int) (T, error)

// fallbackFunc handles the error of the final attempt.
type fallbackFunc[T any] func(err error, attempt int) (T, error)

// executeWithRetry handles the retry logic and execution of a single item.
// item is the batch index reported in events, -1 for single nodes.
func executeWithRetry[T any](ctx context.Context, rt *runtime, node string, item int, p RetryPolicy, exec attemptFunc[T], fallback fallbackFunc[T]) (T, error) {
	p = p.Normalize()
	var (
		result T
		err    error
	)
	for attempt := 0; attempt < p.MaxRetries; attempt++ {
		result, err = exec(attempt)
		if err == nil {
			return result, nil
		}
		if attempt == p.MaxRetries-1 {
			rt.emit(ctx, Event{Kind: EventFallback, Node: node, Attempt: attempt, Item: item, Err: err})
			return fallback(err, attempt)
		}
		rt.emit(ctx, Event{Kind: EventRetry, Node: node, Attempt: attempt, Item: item, Err: err})
		if p.Wait > 0 {
			time.Sleep(p.Wait)
		}
	}
	return result, err
}
