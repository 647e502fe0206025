package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noSleep(ctx context.Context, d time.Duration) {}

func TestRetrier_SucceedsAfterMFailuresWhenWithinCap(t *testing.T) {
	m := 2
	calls := 0
	r := NewRetrier(RetryConfig{MaxRetries: 3, Sleep: noSleep})

	attempts, err := r.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		if calls <= m {
			return errBoom
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, m+1, attempts)
}

func TestRetrier_ExhaustsWhenFailuresExceedCap(t *testing.T) {
	calls := 0
	sleeps := 0
	r := NewRetrier(RetryConfig{MaxRetries: 2, Sleep: func(ctx context.Context, d time.Duration) { sleeps++ }})

	attempts, err := r.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return errBoom
	})

	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, 3, attempts) // initial + 2 retries
	assert.Equal(t, 2, sleeps)
}

func TestRetrier_ZeroMaxRetriesMeansTryOnce(t *testing.T) {
	calls := 0
	r := NewRetrier(RetryConfig{MaxRetries: 0, Sleep: noSleep})

	_, err := r.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return errBoom
	})

	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, 1, calls)
}

func TestRetrier_DelayIsExponentialAndCapped(t *testing.T) {
	r := NewRetrier(RetryConfig{
		BaseDelay:     100 * time.Millisecond,
		BackoffFactor: 2,
		MaxDelay:      350 * time.Millisecond,
	})

	assert.Equal(t, 100*time.Millisecond, r.delay(0))
	assert.Equal(t, 200*time.Millisecond, r.delay(1))
	assert.Equal(t, 350*time.Millisecond, r.delay(2)) // would be 400ms, capped
}

func TestRetrier_RespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRetrier(RetryConfig{MaxRetries: 5, Sleep: noSleep})
	calls := 0
	_, err := r.Execute(ctx, func(ctx context.Context) error {
		calls++
		return errBoom
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 0, calls)
}
