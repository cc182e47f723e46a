package retry

import (
	"context"
	"fmt"
)

// Do runs op until it succeeds, the classifier rejects its error, or MaxAttempts is reached.
// The final error is returned unchanged so callers can classify it themselves.
// Cancelling ctx during a wait aborts with the context error.
func Do[T any](ctx context.Context, policy *Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var (
		zero    T
		lastErr error
	)

	for attempt := 1; attempt <= policy.Config.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := policy.wait(ctx, attempt, lastErr); err != nil {
				return zero, fmt.Errorf("retry aborted after attempt %d (last error: %v): %w", attempt-1, lastErr, err)
			}
		}

		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !policy.ShouldRetry(err) {
			break
		}
	}

	return zero, lastErr
}
