package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validParams() NewReservationParams {
	pickup := time.Date(2026, 12, 1, 10, 0, 0, 0, time.UTC)
	return NewReservationParams{
		ReservationCode:   "AB12CD34",
		SupplierCode:      "SUP01",
		PickupOfficeCode:  "OFF1",
		DropoffOfficeCode: "OFF2",
		PickupDatetime:    pickup,
		DropoffDatetime:   pickup.Add(48 * time.Hour),
		TotalAmountCents:  18050,
		CustomerSnapshot:  Snapshot{"name": "Jane"},
		VehicleSnapshot:   Snapshot{"model": "Corolla"},
		CreatedAt:         pickup.Add(-2 * time.Minute),
	}
}

func TestNewReservation_RejectsInvertedWindow(t *testing.T) {
	p := validParams()
	p.DropoffDatetime = p.PickupDatetime.Add(-time.Hour)

	_, err := NewReservation(p, "180.50")

	require.ErrorIs(t, err, ErrInvalidTimeWindow)
}

func TestNewReservation_RejectsNonPositiveAmount(t *testing.T) {
	p := validParams()
	p.TotalAmountCents = 0

	_, err := NewReservation(p, "0.00")

	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestNewReservation_StartsAtCreatedWithNoHistory(t *testing.T) {
	r, err := NewReservation(validParams(), "180.50")

	require.NoError(t, err)
	assert.Equal(t, StatusCreated, r.Status)
	assert.Empty(t, r.StatusHistory)
}

func TestTransitionTo_HappyPathAppendsHistory(t *testing.T) {
	r, err := NewReservation(validParams(), "180.50")
	require.NoError(t, err)

	t1 := time.Now().UTC()
	require.NoError(t, r.TransitionTo(StatusPaymentInProgress, t1))
	t2 := t1.Add(time.Second)
	require.NoError(t, r.TransitionTo(StatusPaid, t2))
	t3 := t2.Add(time.Second)
	require.NoError(t, r.TransitionTo(StatusSupplierConfirmed, t3))

	require.Len(t, r.StatusHistory, 3)
	assert.Equal(t, StatusCreated, r.StatusHistory[0].From)
	assert.Equal(t, StatusPaymentInProgress, r.StatusHistory[0].To)
	assert.Equal(t, StatusPaid, r.StatusHistory[1].To)
	assert.Equal(t, StatusSupplierConfirmed, r.StatusHistory[2].To)
	assert.Equal(t, StatusSupplierConfirmed, r.Status)
}

func TestTransitionTo_RejectsSkippingStates(t *testing.T) {
	r, err := NewReservation(validParams(), "180.50")
	require.NoError(t, err)

	err = r.TransitionTo(StatusSupplierConfirmed, time.Now().UTC())

	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StatusCreated, r.Status)
	assert.Empty(t, r.StatusHistory)
}

func TestTransitionTo_CancelledIsTerminal(t *testing.T) {
	r, err := NewReservation(validParams(), "180.50")
	require.NoError(t, err)
	require.NoError(t, r.TransitionTo(StatusCancelled, time.Now().UTC()))

	err = r.TransitionTo(StatusPaymentInProgress, time.Now().UTC())

	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCanTransition_AnyNonCancelledStateCanCancel(t *testing.T) {
	for _, from := range []ReservationStatus{
		StatusCreated, StatusPaymentInProgress, StatusPaid, StatusSupplierConfirmed,
	} {
		assert.True(t, CanTransition(from, StatusCancelled), "expected %s -> CANCELLED to be legal", from)
	}
	assert.False(t, CanTransition(StatusCancelled, StatusCancelled))
}
