package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rbravo-mcr/reservas-api/internal/domain"
	"github.com/rbravo-mcr/reservas-api/internal/resilience"
)

// BookingAdapter dispatches BOOKING_REQUESTED outbox events to the car
// rental supplier's confirmation endpoint over plain HTTP. No
// supplier-specific SDK exists anywhere in the retrieval pack for an
// arbitrary car-rental supplier, so this follows original_source's
// provider_api_gateway.py, which is itself a hand-rolled HTTP client.
type BookingAdapter struct {
	dispatcher
	httpClient *http.Client
	baseURL    string
	timeout    time.Duration
}

// NewBookingAdapter constructs a BookingAdapter.
func NewBookingAdapter(httpClient *http.Client, baseURL string, timeout time.Duration, retryCfg resilience.RetryConfig, breakerCfg resilience.BreakerConfig) *BookingAdapter {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &BookingAdapter{
		dispatcher: newDispatcher(retryCfg, breakerCfg),
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		timeout:    timeout,
	}
}

type bookingRequestBody struct {
	ReservationCode  string         `json:"reservation_code"`
	SupplierCode     string         `json:"supplier_code"`
	PickupOfficeCode string         `json:"pickup_office_code"`
	DropoffOfficeCode string        `json:"dropoff_office_code"`
	PickupDatetime   time.Time      `json:"pickup_datetime"`
	DropoffDatetime  time.Time      `json:"dropoff_datetime"`
	VehicleSnapshot  domain.Snapshot `json:"vehicle_snapshot"`
}

type bookingResponseBody struct {
	Status       string `json:"status"`
	ConfirmationCode string `json:"confirmation_code,omitempty"`
}

// Dispatch POSTs the reservation's supplier-facing fields to
// /bookings/confirm and maps the response per spec.md §4.6's total failure
// mapping.
func (a *BookingAdapter) Dispatch(ctx context.Context, res *domain.Reservation) domain.ProviderResult {
	return a.dispatcher.run(ctx, func(ctx context.Context) (domain.ProviderResult, error) {
		callCtx, cancel := context.WithTimeout(ctx, a.timeout)
		defer cancel()

		body := bookingRequestBody{
			ReservationCode:   res.ReservationCode,
			SupplierCode:      res.SupplierCode,
			PickupOfficeCode:  res.PickupOfficeCode,
			DropoffOfficeCode: res.DropoffOfficeCode,
			PickupDatetime:    res.PickupDatetime,
			DropoffDatetime:   res.DropoffDatetime,
			VehicleSnapshot:   res.VehicleSnapshot,
		}
		payload, err := json.Marshal(body)
		if err != nil {
			return domain.ProviderResult{}, fmt.Errorf("failed to marshal booking request: %w", err)
		}

		httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, a.baseURL+"/bookings/confirm", bytes.NewReader(payload))
		if err != nil {
			return domain.ProviderResult{}, fmt.Errorf("failed to build booking request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		// reservation_code doubles as the idempotency key: a re-delivered
		// BOOKING_REQUESTED event after a worker crash must land on the same
		// supplier-side booking instead of creating a duplicate (spec.md §1).
		httpReq.Header.Set("Idempotency-Key", res.ReservationCode)

		resp, err := a.httpClient.Do(httpReq)
		if err != nil {
			return domain.ProviderResult{}, fmt.Errorf("booking request failed: %w", err)
		}
		defer resp.Body.Close()

		respBytes, err := io.ReadAll(resp.Body)
		if err != nil {
			return domain.ProviderResult{}, fmt.Errorf("failed to read booking response: %w", err)
		}

		if resp.StatusCode >= 500 {
			return domain.ProviderResult{}, fmt.Errorf("supplier returned %d", resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			return domain.ProviderResult{
				Success: false,
				Status:  "FAILED",
				Payload: domain.Snapshot{"status_code": resp.StatusCode, "body": string(respBytes)},
			}, nil
		}

		var parsed bookingResponseBody
		if err := json.Unmarshal(respBytes, &parsed); err != nil {
			return domain.ProviderResult{
				Success: true,
				Status:  "SUCCESS",
				Payload: domain.Snapshot{"raw": string(respBytes)},
			}, nil
		}

		status := parsed.Status
		if status == "" {
			status = "SUCCESS"
		}
		return domain.ProviderResult{
			Success: true,
			Status:  strings.ToUpper(status),
			Payload: domain.Snapshot{"confirmation_code": parsed.ConfirmationCode},
		}, nil
	})
}

var _ Adapter = (*BookingAdapter)(nil)
