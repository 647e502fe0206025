package domain

import (
	"time"
)

// Snapshot is a schema-less key/value bag (spec.md §9 "dynamic snapshot
// bags"). Only sanitation and masking code ever inspects leaf values.
type Snapshot map[string]any

// StatusHistoryEntry is one append-only audit row (spec.md §3, invariant I7).
type StatusHistoryEntry struct {
	From      ReservationStatus
	To        ReservationStatus
	ChangedAt time.Time
}

// Reservation is the aggregate root (C10). It is a pure in-memory object:
// constructors validate invariants, and status transitions are guarded so
// that invalid edges never reach a store.
type Reservation struct {
	ReservationCode  string
	SupplierCode     string
	PickupOfficeCode string
	DropoffOfficeCode string
	PickupDatetime   time.Time
	DropoffDatetime  time.Time
	TotalAmount      string // fixed-point decimal, 2 fractional digits, stored as text end-to-end
	CustomerSnapshot Snapshot
	VehicleSnapshot  Snapshot
	Status           ReservationStatus
	CreatedAt        time.Time
	StatusHistory    []StatusHistoryEntry
}

// NewReservationParams is the validated input to NewReservation.
type NewReservationParams struct {
	ReservationCode   string
	SupplierCode      string
	PickupOfficeCode  string
	DropoffOfficeCode string
	PickupDatetime    time.Time
	DropoffDatetime   time.Time
	TotalAmountCents  int64 // validated positive; rendered to 2-decimal text by the caller
	CustomerSnapshot  Snapshot
	VehicleSnapshot   Snapshot
	CreatedAt         time.Time
}

// NewReservation validates the window/amount/code invariants and returns a
// reservation at status CREATED. It does not touch any store.
func NewReservation(p NewReservationParams, totalAmount string) (*Reservation, error) {
	if p.SupplierCode == "" {
		return nil, ErrInvalidSupplierCode
	}
	if p.PickupOfficeCode == "" || p.DropoffOfficeCode == "" {
		return nil, ErrInvalidOfficeCode
	}
	if !p.DropoffDatetime.After(p.PickupDatetime) {
		return nil, ErrInvalidTimeWindow
	}
	if p.TotalAmountCents <= 0 {
		return nil, ErrInvalidAmount
	}

	return &Reservation{
		ReservationCode:   p.ReservationCode,
		SupplierCode:      p.SupplierCode,
		PickupOfficeCode:  p.PickupOfficeCode,
		DropoffOfficeCode: p.DropoffOfficeCode,
		PickupDatetime:    p.PickupDatetime,
		DropoffDatetime:   p.DropoffDatetime,
		TotalAmount:       totalAmount,
		CustomerSnapshot:  p.CustomerSnapshot,
		VehicleSnapshot:   p.VehicleSnapshot,
		Status:            StatusCreated,
		CreatedAt:         p.CreatedAt,
		StatusHistory:     nil,
	}, nil
}

// TransitionTo moves the reservation to `to`, appending one StatusHistoryEntry
// with the given clock reading. Returns ErrInvalidTransition for any edge not
// in the lifecycle graph (spec.md §4.1).
func (r *Reservation) TransitionTo(to ReservationStatus, at time.Time) error {
	if !CanTransition(r.Status, to) {
		return ErrInvalidTransition
	}
	r.StatusHistory = append(r.StatusHistory, StatusHistoryEntry{
		From:      r.Status,
		To:        to,
		ChangedAt: at,
	})
	r.Status = to
	return nil
}

// ProviderRequest is an immutable-once-written record of one external
// response (spec.md §3).
type ProviderRequest struct {
	ID               int64
	ReservationCode  string
	ProviderCode     string
	RequestType      RequestType
	RequestPayload   Snapshot
	ResponsePayload   Snapshot
	Status           ResponseStatus
	CreatedAt        time.Time
	RespondedAt      time.Time
}

// OutboxEvent is a durable dispatch intent (spec.md §3, invariant I1).
type OutboxEvent struct {
	ID          int64
	AggregateID string // = ReservationCode
	EventType   OutboxEventType
	Payload     Snapshot
	Status      OutboxStatus
	CreatedAt   time.Time
	LastError   string
}
