package classifier

import (
	"context"
	"time"

	"github.com/brigadeops/core/internal/apperr"
)

// backoffSchedule is §4.5's exponential backoff: the delay after failed
// attempt i+1 is backoffSchedule[i], and attempts past the end of the
// schedule reuse its last entry. With 3 attempts only the 1s and 2s
// delays are used.
var backoffSchedule = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}

// attemptFunc performs one submission attempt.
type attemptFunc func(ctx context.Context) (Prediction, error)

// withRetry runs attempt up to maxAttempts times, sleeping per
// backoffSchedule between retryable failures, and stops immediately on
// a non-retryable (Permanent) failure — §4.5: "Non-retryable: 4xx
// except 429, 401/403 (surface as AuthError without retry)."
func withRetry(ctx context.Context, maxAttempts int, attempt attemptFunc) (Prediction, int, error) {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		pred, err := attempt(ctx)
		if err == nil {
			return pred, i + 1, nil
		}
		lastErr = err

		if !apperr.Is(err, apperr.KindTransient) {
			return Prediction{}, i + 1, err
		}
		if i == maxAttempts-1 {
			break
		}

		delay := backoffSchedule[len(backoffSchedule)-1]
		if i < len(backoffSchedule) {
			delay = backoffSchedule[i]
		}

		select {
		case <-ctx.Done():
			return Prediction{}, i + 1, apperr.Wrap(component, apperr.KindTransient, "cancelled during backoff", ctx.Err())
		case <-time.After(delay):
		}
	}
	return Prediction{}, maxAttempts, lastErr
}
