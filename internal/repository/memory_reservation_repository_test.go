package repository

import (
	"context"
	"testing"
	"time"

	"github.com/rbravo-mcr/reservas-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReservation(code string) *domain.Reservation {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	return &domain.Reservation{
		ReservationCode:   code,
		SupplierCode:      "HERTZ",
		PickupOfficeCode:  "MAD01",
		DropoffOfficeCode: "MAD01",
		PickupDatetime:    now,
		DropoffDatetime:   now.Add(48 * time.Hour),
		TotalAmount:       "120.00",
		CustomerSnapshot:  domain.Snapshot{"name": "Jane"},
		VehicleSnapshot:   domain.Snapshot{"model": "Corolla"},
		Status:            domain.StatusCreated,
		CreatedAt:         now,
	}
}

func TestMemoryReservationRepository_SaveRejectsDuplicateCode(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryReservationRepository()
	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)

	require.NoError(t, repo.Save(ctx, tx, newTestReservation("ABC12345")))
	err = repo.Save(ctx, tx, newTestReservation("ABC12345"))
	assert.ErrorIs(t, err, domain.ErrDuplicateCode)
}

func TestMemoryReservationRepository_FindByCodeReturnsIndependentCopy(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryReservationRepository()
	tx, _ := repo.BeginTx(ctx)
	require.NoError(t, repo.Save(ctx, tx, newTestReservation("ABC12345")))

	got, err := repo.FindByCode(ctx, "ABC12345")
	require.NoError(t, err)

	got.Status = domain.StatusCancelled
	again, err := repo.FindByCode(ctx, "ABC12345")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCreated, again.Status)
}

func TestMemoryReservationRepository_FindByCodeUnknownReturnsNotFound(t *testing.T) {
	repo := NewMemoryReservationRepository()
	_, err := repo.FindByCode(context.Background(), "NOPE0000")
	assert.ErrorIs(t, err, domain.ErrReservationNotFound)
}

func TestMemoryReservationRepository_AddStatusHistoryAppendsInOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryReservationRepository()
	tx, _ := repo.BeginTx(ctx)
	require.NoError(t, repo.Save(ctx, tx, newTestReservation("ABC12345")))

	first := domain.StatusHistoryEntry{From: domain.StatusCreated, To: domain.StatusPaymentInProgress, ChangedAt: time.Now()}
	second := domain.StatusHistoryEntry{From: domain.StatusPaymentInProgress, To: domain.StatusPaid, ChangedAt: time.Now()}
	require.NoError(t, repo.AddStatusHistory(ctx, tx, "ABC12345", first))
	require.NoError(t, repo.AddStatusHistory(ctx, tx, "ABC12345", second))

	res, err := repo.FindByCode(ctx, "ABC12345")
	require.NoError(t, err)
	require.Len(t, res.StatusHistory, 2)
	assert.Equal(t, first, res.StatusHistory[0])
	assert.Equal(t, second, res.StatusHistory[1])
}

func TestMemoryReservationRepository_CountSuccessfulRequestsOnlyCountsMatchingTypeAndStatus(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryReservationRepository()
	tx, _ := repo.BeginTx(ctx)
	require.NoError(t, repo.Save(ctx, tx, newTestReservation("ABC12345")))

	require.NoError(t, repo.AddRequest(ctx, tx, &domain.ProviderRequest{
		ReservationCode: "ABC12345", RequestType: domain.RequestTypePayment, Status: domain.ResponseSuccess,
	}))
	require.NoError(t, repo.AddRequest(ctx, tx, &domain.ProviderRequest{
		ReservationCode: "ABC12345", RequestType: domain.RequestTypePayment, Status: domain.ResponseFailed,
	}))
	require.NoError(t, repo.AddRequest(ctx, tx, &domain.ProviderRequest{
		ReservationCode: "ABC12345", RequestType: domain.RequestTypeBooking, Status: domain.ResponseSuccess,
	}))

	count, err := repo.CountSuccessfulRequests(ctx, tx, "ABC12345", domain.RequestTypePayment)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
