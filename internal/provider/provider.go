// Package provider implements C6: stateless translators between a
// reservation snapshot and an external HTTP collaborator, composed with the
// retry policy (C5, outer) and circuit breaker (C4, inner) per spec.md §4.6.
// Grounded on backend-payment/internal/gateway/stripe_gateway.go (the
// Charge/adapter shape) and original_source's provider_api_gateway.py (the
// generic supplier HTTP client), with the resilience composition added on
// top since neither source composes retry+breaker around its gateway call.
package provider

import (
	"context"
	"errors"

	"github.com/rbravo-mcr/reservas-api/internal/domain"
	"github.com/rbravo-mcr/reservas-api/internal/resilience"
)

// Adapter dispatches one ProviderRequest for a reservation and returns a
// totalized Result; it never returns a Go error for a transport/HTTP
// failure (spec.md §4.6).
type Adapter interface {
	Dispatch(ctx context.Context, res *domain.Reservation) domain.ProviderResult
}

// dispatcher wires one HTTP call through a retrier (outer) and a breaker
// (inner), then totalizes any leftover error into a ProviderResult. Both
// the payment and booking adapters embed this to avoid duplicating the
// composition.
type dispatcher struct {
	retrier *resilience.Retrier
	breaker *resilience.Breaker
}

func newDispatcher(retryCfg resilience.RetryConfig, breakerCfg resilience.BreakerConfig) dispatcher {
	return dispatcher{
		retrier: resilience.NewRetrier(retryCfg),
		breaker: resilience.NewBreaker(breakerCfg),
	}
}

// run executes call through the breaker, then the retrier, mapping any
// residual error into a Result. call performs exactly one HTTP attempt and
// classifies its own errors as retryable by returning them un-wrapped.
func (d dispatcher) run(ctx context.Context, call func(ctx context.Context) (domain.ProviderResult, error)) domain.ProviderResult {
	var result domain.ProviderResult

	op := func(ctx context.Context) error {
		return d.breaker.Call(ctx, func(ctx context.Context) error {
			r, err := call(ctx)
			if err != nil {
				return err
			}
			result = r
			return nil
		})
	}

	_, err := d.retrier.Execute(ctx, op)
	if err == nil {
		return result
	}

	switch {
	case errors.Is(err, domain.ErrCircuitOpen):
		return domain.ProviderResult{Success: false, Status: "CIRCUIT_OPEN"}
	case errors.Is(err, context.DeadlineExceeded):
		return domain.ProviderResult{Success: false, Status: "TIMEOUT"}
	default:
		return domain.ProviderResult{
			Success: false,
			Status:  "FAILED",
			Payload: domain.Snapshot{"error": err.Error()},
		}
	}
}
