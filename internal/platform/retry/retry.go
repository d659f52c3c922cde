// Package retry wraps idempotent operations with bounded retry and a fixed
// delay. Idempotency is the caller's obligation: a retried operation may run
// again after a partial success that reported failure.
package retry

import (
	"context"
	"time"
)

type Policy struct {
	Attempts int
	Delay    time.Duration
	// Retryable decides whether an error is worth another attempt.
	// Nil means every error is retried until the attempts run out.
	Retryable func(error) bool
}

// Fixed returns a policy with the given attempt count and inter-attempt delay.
func Fixed(attempts int, delay time.Duration) Policy {
	return Policy{Attempts: attempts, Delay: delay}
}

// Do invokes op until it succeeds, a non-retryable error occurs, the attempts
// are exhausted, or ctx is done. On exhaustion the last error is returned.
func (p Policy) Do(ctx context.Context, op func(context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = ctx.Err(); err != nil {
			return err
		}
		err = op(ctx)
		if err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.Delay):
		}
	}
	return err
}
