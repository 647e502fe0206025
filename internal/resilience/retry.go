// Package resilience holds the fault-isolation fabric (C4, C5): a retry
// policy with exponential backoff and a circuit breaker, both designed to be
// composed around a provider adapter's HTTP call (spec.md §4.6). Adapted
// from pkg/retry/retry.go, field-for-field, generalized so the sleep
// function and clock are both injectable for deterministic tests.
package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// ErrRetriesExhausted names the condition where every attempt, including
// retries, has failed. Execute does not return it; it returns the last error
// from op instead.
var ErrRetriesExhausted = errors.New("retries exhausted")

// RetryConfig controls backoff shape (spec.md §4.8, §6 retry.* knobs).
type RetryConfig struct {
	MaxRetries    int           // additional attempts beyond the first; 0 = try once
	BaseDelay     time.Duration
	BackoffFactor float64 // >= 1
	MaxDelay      time.Duration
	JitterFactor  float64 // 0-1, optional; 0 disables jitter for deterministic tests

	// Sleep is the injectable delay function (spec.md §4.8 "the sleep
	// function is injectable"). Defaults to a real time.Sleep-backed
	// context-aware wait.
	Sleep func(ctx context.Context, d time.Duration)
}

// DefaultRetryConfig mirrors the teacher's DefaultConfig shape.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		BaseDelay:     100 * time.Millisecond,
		BackoffFactor: 2.0,
		MaxDelay:      5 * time.Second,
		JitterFactor:  0,
	}
}

// Operation is the thunk retried by Retrier.Execute.
type Operation func(ctx context.Context) error

// Retrier executes an Operation, retrying on failure with exponential
// backoff up to MaxRetries additional attempts.
type Retrier struct {
	cfg RetryConfig
}

// NewRetrier builds a Retrier, filling in zero-valued fields with defaults.
func NewRetrier(cfg RetryConfig) *Retrier {
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 100 * time.Millisecond
	}
	if cfg.BackoffFactor < 1 {
		cfg.BackoffFactor = 2.0
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 5 * time.Second
	}
	if cfg.Sleep == nil {
		cfg.Sleep = contextSleep
	}
	return &Retrier{cfg: cfg}
}

func contextSleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// Execute runs op, retrying on error up to cfg.MaxRetries additional times.
// On exhaustion, returns the last error from op (not ErrRetriesExhausted) so
// callers can classify the underlying failure; attempts is the number of
// times op was invoked.
func (r *Retrier) Execute(ctx context.Context, op Operation) (attempts int, err error) {
	var lastErr error
	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		attempts++
		if ctx.Err() != nil {
			return attempts, ctx.Err()
		}
		lastErr = op(ctx)
		if lastErr == nil {
			return attempts, nil
		}
		if attempt == r.cfg.MaxRetries {
			break
		}
		r.cfg.Sleep(ctx, r.delay(attempt))
	}
	return attempts, lastErr
}

func (r *Retrier) delay(attempt int) time.Duration {
	d := float64(r.cfg.BaseDelay) * math.Pow(r.cfg.BackoffFactor, float64(attempt))
	if r.cfg.JitterFactor > 0 {
		jitter := d * r.cfg.JitterFactor
		d += (rand.Float64()*2 - 1) * jitter
	}
	if d > float64(r.cfg.MaxDelay) {
		d = float64(r.cfg.MaxDelay)
	}
	if d < 0 {
		d = float64(r.cfg.BaseDelay)
	}
	return time.Duration(d)
}
