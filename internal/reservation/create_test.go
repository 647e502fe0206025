package reservation

import (
	"context"
	"testing"
	"time"

	"github.com/rbravo-mcr/reservas-api/internal/domain"
	"github.com/rbravo-mcr/reservas-api/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() (*Service, *repository.MemoryReservationRepository, *repository.MemoryOutboxRepository) {
	reservations := repository.NewMemoryReservationRepository()
	outbox := repository.NewMemoryOutboxRepository()
	clock := func() time.Time { return time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC) }
	svc := NewService(reservations, outbox, nil, clock)
	return svc, reservations, outbox
}

func validRequest() CreateRequest {
	pickup := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	return CreateRequest{
		SupplierCode:      "HERTZ",
		PickupOfficeCode:  "LAX01",
		DropoffOfficeCode: "SFO01",
		PickupDatetime:    pickup,
		DropoffDatetime:   pickup.Add(48 * time.Hour),
		TotalAmountCents:  12999,
		CustomerSnapshot:  domain.Snapshot{"name": "Jane Doe", "email": "jane@example.com"},
		VehicleSnapshot:   domain.Snapshot{"model": "Civic", "plate": "ABC123"},
	}
}

func TestService_Create_PersistsReservationAndTwoOutboxEvents(t *testing.T) {
	svc, reservations, outbox := newTestService()

	res, err := svc.Create(context.Background(), validRequest())
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Len(t, res.ReservationCode, 8)
	assert.Equal(t, domain.StatusCreated, res.Status)
	assert.Equal(t, "129.99", res.TotalAmount)

	stored, err := reservations.FindByCode(context.Background(), res.ReservationCode)
	require.NoError(t, err)
	assert.Equal(t, res.ReservationCode, stored.ReservationCode)

	ids, err := outbox.ClaimPending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, ids, 2)

	var sawPayment, sawBooking bool
	for _, id := range ids {
		ev, err := outbox.Load(context.Background(), nil, id)
		require.NoError(t, err)
		require.Equal(t, domain.OutboxPending, ev.Status)
		switch ev.EventType {
		case domain.EventPaymentRequested:
			sawPayment = true
		case domain.EventBookingRequested:
			sawBooking = true
		}
		assert.Equal(t, res.ReservationCode, ev.AggregateID)
	}
	assert.True(t, sawPayment, "expected a PAYMENT_REQUESTED outbox event")
	assert.True(t, sawBooking, "expected a BOOKING_REQUESTED outbox event")
}

func TestService_Create_RejectsInvertedWindow(t *testing.T) {
	svc, _, _ := newTestService()

	req := validRequest()
	req.DropoffDatetime = req.PickupDatetime.Add(-time.Hour)

	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.True(t, domain.IsBusinessRuleError(err))
}

func TestService_Create_RejectsNonPositiveAmount(t *testing.T) {
	svc, _, _ := newTestService()

	req := validRequest()
	req.TotalAmountCents = 0

	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.True(t, domain.IsBusinessRuleError(err))
}

func TestService_Create_RejectsRawPANInCustomerSnapshot(t *testing.T) {
	svc, _, _ := newTestService()

	req := validRequest()
	req.CustomerSnapshot = domain.Snapshot{"card_number": "4111111111111111"}

	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.True(t, domain.IsValidationError(err))
}

func TestService_Create_GeneratesDistinctCodesAcrossCalls(t *testing.T) {
	svc, _, _ := newTestService()

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		res, err := svc.Create(context.Background(), validRequest())
		require.NoError(t, err)
		assert.False(t, seen[res.ReservationCode], "reservation code reused: %s", res.ReservationCode)
		seen[res.ReservationCode] = true
	}
}
