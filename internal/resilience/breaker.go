package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rbravo-mcr/reservas-api/internal/domain"
)

// BreakerState is one of CLOSED/OPEN/HALF_OPEN (spec.md §4.7).
type BreakerState string

const (
	StateClosed   BreakerState = "CLOSED"
	StateOpen     BreakerState = "OPEN"
	StateHalfOpen BreakerState = "HALF_OPEN"
)

// Clock returns the current instant; swapped out in tests for a fake
// monotonic clock (spec.md §9 "circuit breaker... use a monotonic clock").
type Clock func() time.Time

// BreakerConfig controls trip/recovery thresholds (spec.md §6 breaker.*
// knobs).
type BreakerConfig struct {
	FailureThreshold int
	RecoveryTimeout  time.Duration
	Clock            Clock // defaults to time.Now
}

// Breaker is a per-dependency failure isolator. All state mutations are
// serialized under mu so concurrent callers observe one consistent state,
// mirroring the mutex-guarded mutable-state idiom of pkg/saga's Instance.
// There is no third-party circuit-breaker dependency anywhere in the
// reference corpus (see DESIGN.md) — this is a deliberate stdlib-only
// component.
type Breaker struct {
	mu sync.Mutex

	failureThreshold int
	recoveryTimeout  time.Duration
	clock            Clock

	state        BreakerState
	failureCount int
	openedAt     time.Time
	halfOpenBusy bool // exactly one probe allowed while HALF_OPEN
}

// NewBreaker builds a Breaker in the CLOSED state.
func NewBreaker(cfg BreakerConfig) *Breaker {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	threshold := cfg.FailureThreshold
	if threshold <= 0 {
		threshold = 1
	}
	return &Breaker{
		failureThreshold: threshold,
		recoveryTimeout:  cfg.RecoveryTimeout,
		clock:            clock,
		state:            StateClosed,
	}
}

// State returns the current breaker state, advancing OPEN -> HALF_OPEN if the
// recovery timeout has elapsed (the transition spec.md §4.7 describes as
// happening "on the next call attempt").
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeRecoverLocked()
	return b.state
}

func (b *Breaker) maybeRecoverLocked() {
	if b.state == StateOpen && b.clock().Sub(b.openedAt) >= b.recoveryTimeout {
		b.state = StateHalfOpen
		b.halfOpenBusy = false
	}
}

// Call executes op if the breaker admits the call, recording the outcome.
// Returns ErrCircuitOpen without invoking op when the breaker is OPEN, or
// when it is HALF_OPEN and a probe is already in flight.
func (b *Breaker) Call(ctx context.Context, op Operation) error {
	if !b.admit() {
		return domain.ErrCircuitOpen
	}
	err := op(ctx)
	b.record(err)
	return err
}

// admit reports whether a call may proceed, claiming the single HALF_OPEN
// probe slot if applicable.
func (b *Breaker) admit() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeRecoverLocked()

	switch b.state {
	case StateClosed:
		return true
	case StateHalfOpen:
		if b.halfOpenBusy {
			return false
		}
		b.halfOpenBusy = true
		return true
	default: // StateOpen
		return false
	}
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateHalfOpen:
		b.halfOpenBusy = false
		if err == nil {
			b.state = StateClosed
			b.failureCount = 0
			return
		}
		b.state = StateOpen
		b.openedAt = b.clock()
		return
	case StateClosed:
		if err == nil {
			b.failureCount = 0
			return
		}
		b.failureCount++
		if b.failureCount >= b.failureThreshold {
			b.state = StateOpen
			b.openedAt = b.clock()
		}
	case StateOpen:
		// A call should never reach here (admit() gates it), but stay
		// defensive rather than panic on a racing caller.
	}
}
