package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rbravo-mcr/reservas-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func failingOp(ctx context.Context) error { return errBoom }
func okOp(ctx context.Context) error      { return nil }

// fakeClock is a manually advanced monotonic clock for deterministic tests.
type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time   { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestBreaker_TripsAfterThresholdConsecutiveFailures(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 3, RecoveryTimeout: time.Minute})

	for i := 0; i < 3; i++ {
		err := b.Call(context.Background(), failingOp)
		require.ErrorIs(t, err, errBoom)
	}

	assert.Equal(t, StateOpen, b.State())

	calls := 0
	err := b.Call(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})
	require.ErrorIs(t, err, domain.ErrCircuitOpen)
	assert.Equal(t, 0, calls, "underlying thunk must not be invoked while OPEN")
}

func TestBreaker_ResetsFailureCountOnSuccessWhileClosed(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 2, RecoveryTimeout: time.Minute})

	require.ErrorIs(t, b.Call(context.Background(), failingOp), errBoom)
	require.NoError(t, b.Call(context.Background(), okOp))
	require.ErrorIs(t, b.Call(context.Background(), failingOp), errBoom)

	assert.Equal(t, StateClosed, b.State(), "one more failure after a reset must not trip a threshold-2 breaker")
}

func TestBreaker_TransitionsToHalfOpenAfterRecoveryTimeout(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	b := NewBreaker(BreakerConfig{FailureThreshold: 1, RecoveryTimeout: 10 * time.Second, Clock: clock.Now})

	require.ErrorIs(t, b.Call(context.Background(), failingOp), errBoom)
	assert.Equal(t, StateOpen, b.State())

	clock.Advance(5 * time.Second)
	assert.Equal(t, StateOpen, b.State())

	clock.Advance(6 * time.Second)
	assert.Equal(t, StateHalfOpen, b.State())
}

func TestBreaker_HalfOpenSuccessClosesBreaker(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	b := NewBreaker(BreakerConfig{FailureThreshold: 1, RecoveryTimeout: 10 * time.Second, Clock: clock.Now})

	require.ErrorIs(t, b.Call(context.Background(), failingOp), errBoom)
	clock.Advance(11 * time.Second)

	require.NoError(t, b.Call(context.Background(), okOp))
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_HalfOpenFailureReopensBreaker(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	b := NewBreaker(BreakerConfig{FailureThreshold: 1, RecoveryTimeout: 10 * time.Second, Clock: clock.Now})

	require.ErrorIs(t, b.Call(context.Background(), failingOp), errBoom)
	clock.Advance(11 * time.Second)

	require.ErrorIs(t, b.Call(context.Background(), failingOp), errBoom)
	assert.Equal(t, StateOpen, b.State())
}

func TestBreaker_HalfOpenAllowsExactlyOneProbe(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	b := NewBreaker(BreakerConfig{FailureThreshold: 1, RecoveryTimeout: 10 * time.Second, Clock: clock.Now})

	require.ErrorIs(t, b.Call(context.Background(), failingOp), errBoom)
	clock.Advance(11 * time.Second)
	require.Equal(t, StateHalfOpen, b.State())

	block := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = b.Call(context.Background(), func(ctx context.Context) error {
			close(started)
			<-block
			return nil
		})
	}()
	<-started

	err := b.Call(context.Background(), okOp)
	require.ErrorIs(t, err, domain.ErrCircuitOpen, "second concurrent call must not get the probe slot")
	close(block)
}
