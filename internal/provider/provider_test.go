package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rbravo-mcr/reservas-api/internal/domain"
	"github.com/rbravo-mcr/reservas-api/internal/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noSleep(ctx context.Context, d time.Duration) {}

func testRetryConfig() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxRetries:    2,
		BaseDelay:     time.Millisecond,
		BackoffFactor: 2,
		MaxDelay:      time.Millisecond,
		Sleep:         noSleep,
	}
}

func testBreakerConfig() resilience.BreakerConfig {
	return resilience.BreakerConfig{FailureThreshold: 5, RecoveryTimeout: time.Minute}
}

var errBoom = errors.New("boom")

func TestDispatcher_RunReturnsSuccessResultOnFirstAttempt(t *testing.T) {
	d := newDispatcher(testRetryConfig(), testBreakerConfig())
	result := d.run(context.Background(), func(ctx context.Context) (domain.ProviderResult, error) {
		return domain.ProviderResult{Success: true, Status: "SUCCESS"}, nil
	})
	assert.True(t, result.Success)
	assert.Equal(t, "SUCCESS", result.Status)
}

func TestDispatcher_RunRetriesTransientFailuresThenSucceeds(t *testing.T) {
	d := newDispatcher(testRetryConfig(), testBreakerConfig())
	attempts := 0
	result := d.run(context.Background(), func(ctx context.Context) (domain.ProviderResult, error) {
		attempts++
		if attempts < 2 {
			return domain.ProviderResult{}, errBoom
		}
		return domain.ProviderResult{Success: true, Status: "SUCCESS"}, nil
	})
	assert.True(t, result.Success)
	assert.Equal(t, 2, attempts)
}

func TestDispatcher_RunMapsExhaustedRetriesToFailed(t *testing.T) {
	d := newDispatcher(testRetryConfig(), testBreakerConfig())
	result := d.run(context.Background(), func(ctx context.Context) (domain.ProviderResult, error) {
		return domain.ProviderResult{}, errBoom
	})
	assert.False(t, result.Success)
	assert.Equal(t, "FAILED", result.Status)
}

func TestDispatcher_RunMapsOpenBreakerToCircuitOpen(t *testing.T) {
	breakerCfg := resilience.BreakerConfig{FailureThreshold: 1, RecoveryTimeout: time.Minute}
	d := newDispatcher(resilience.RetryConfig{MaxRetries: 0, Sleep: noSleep}, breakerCfg)

	// trip the breaker directly
	_ = d.breaker.Call(context.Background(), func(ctx context.Context) error { return errBoom })
	require.Equal(t, resilience.StateOpen, d.breaker.State())

	result := d.run(context.Background(), func(ctx context.Context) (domain.ProviderResult, error) {
		return domain.ProviderResult{Success: true, Status: "SUCCESS"}, nil
	})
	assert.False(t, result.Success)
	assert.Equal(t, "CIRCUIT_OPEN", result.Status)
}

func TestDispatcher_RunMapsDeadlineExceededToTimeout(t *testing.T) {
	d := newDispatcher(resilience.RetryConfig{MaxRetries: 0, Sleep: noSleep}, testBreakerConfig())
	result := d.run(context.Background(), func(ctx context.Context) (domain.ProviderResult, error) {
		return domain.ProviderResult{}, context.DeadlineExceeded
	})
	assert.False(t, result.Success)
	assert.Equal(t, "TIMEOUT", result.Status)
}
