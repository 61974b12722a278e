package fhirclient

import (
	"context"
	"time"
)

// RetryPolicy bounds Retry. Retries is the total number of attempts; Delay
// is the fixed pause between attempts.
type RetryPolicy struct {
	Retries int
	Delay   time.Duration
}

// Retry invokes op up to p.Retries times (at least once). Only failures
// classified by IsRetryable are retried; anything else is returned at once.
// When attempts are exhausted the last error is returned.
func Retry[T any](ctx context.Context, p RetryPolicy, op func(context.Context) (T, error)) (T, error) {
	attempts := p.Retries
	if attempts < 1 {
		attempts = 1
	}

	var zero T
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if attempt == attempts || !IsRetryable(err) || ctx.Err() != nil {
			break
		}
		if !wait(ctx, p.Delay) {
			break
		}
	}
	return zero, lastErr
}

func wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
