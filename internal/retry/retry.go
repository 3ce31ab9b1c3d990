// Package retry implements the explicit retry+backoff wrapper used by the
// provider pool and outbound upstream calls, in place of decorator-based retry.
package retry

import (
	"context"
	"math/rand"
	"time"
)

// IsRetryable decides whether an error returned by fn should be retried.
type IsRetryable func(err error) bool

// Do calls fn up to attempts times with exponential backoff between
// attempts (base doubling from minBackoff, capped at maxBackoff), retrying
// only while isRetryable(err) is true. Returns the last error if all
// attempts are exhausted or an attempt returns a non-retryable error.
func Do(ctx context.Context, attempts int, minBackoff, maxBackoff time.Duration, isRetryable IsRetryable, fn func(ctx context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	backoff := minBackoff
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if attempt == attempts || !isRetryable(err) {
			return err
		}
		sleep := backoff + time.Duration(rand.Int63n(int64(minBackoff)+1))
		if sleep > maxBackoff {
			sleep = maxBackoff
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
	return err
}
