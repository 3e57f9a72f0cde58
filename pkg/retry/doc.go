// Package retry runs operations with bounded retries and backoff.
//
// Only transient failures (network errors, throttling, 5xx responses and
// per-request timeouts) are retried by default. Cancellation of the parent
// context stops retrying immediately.
//
//	err := retry.Do(ctx, func(ctx context.Context) error {
//		return fetch(ctx, url)
//	}, &retry.Config{
//		MaxAttempts: 4,
//		Backoff:     retry.DefaultExponentialBackoff(),
//		Logger:      log,
//	})
package retry
