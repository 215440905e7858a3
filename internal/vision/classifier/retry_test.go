package classifier

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brigadeops/core/internal/apperr"
)

// useFastBackoff swaps in a millisecond-scale schedule for the
// duration of a test, so retry tests don't wait on real seconds.
func useFastBackoff(t *testing.T) {
	original := backoffSchedule
	backoffSchedule = []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond}
	t.Cleanup(func() { backoffSchedule = original })
}

func TestWithRetrySucceedsOnFirstAttempt(t *testing.T) {
	calls := 0
	pred, attempts, err := withRetry(context.Background(), 3, func(context.Context) (Prediction, error) {
		calls++
		return Prediction{Label: "occupied", Confidence: 0.9}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "occupied", pred.Label)
}

func TestWithRetryStopsImmediatelyOnPermanentFailure(t *testing.T) {
	calls := 0
	_, attempts, err := withRetry(context.Background(), 3, func(context.Context) (Prediction, error) {
		calls++
		return Prediction{}, apperr.New(component, apperr.KindPermanent, "client error: 400")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, attempts)
}

func TestWithRetryRetriesTransientFailureUntilExhausted(t *testing.T) {
	useFastBackoff(t)
	calls := 0
	_, attempts, err := withRetry(context.Background(), 3, func(context.Context) (Prediction, error) {
		calls++
		return Prediction{}, apperr.New(component, apperr.KindTransient, "429 rate limited")
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, attempts)
}

func TestWithRetrySucceedsAfterTransientFailures(t *testing.T) {
	useFastBackoff(t)
	calls := 0
	_, attempts, err := withRetry(context.Background(), 3, func(context.Context) (Prediction, error) {
		calls++
		if calls < 2 {
			return Prediction{}, apperr.New(component, apperr.KindTransient, "server error: 503")
		}
		return Prediction{Label: "dirty", Confidence: 0.5}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, attempts)
}

func TestWithRetryRespectsContextCancellationDuringBackoff(t *testing.T) {
	useFastBackoff(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := withRetry(ctx, 3, func(context.Context) (Prediction, error) {
		return Prediction{}, apperr.New(component, apperr.KindTransient, "server error: 503")
	})
	require.Error(t, err)
}
