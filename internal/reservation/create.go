// Package reservation implements C7, the create-reservation use case:
// generate a code, sanitize and PCI-filter the inbound snapshots, and
// co-persist the reservation with its two outbox dispatch intents in one
// transaction (spec.md §4.5). Grounded on
// backend-booking/internal/service/booking_service.go's ReserveSeats — same
// defaults-from-config constructor, same "validate, then one transactional
// side-effect, then span events" shape — adapted to spec.md's own step
// ordering (code → sanitize → build → transactional persist).
package reservation

import (
	"context"
	"fmt"
	"time"

	"github.com/rbravo-mcr/reservas-api/internal/codegen"
	"github.com/rbravo-mcr/reservas-api/internal/domain"
	"github.com/rbravo-mcr/reservas-api/internal/repository"
	"github.com/rbravo-mcr/reservas-api/internal/sanitize"
	"github.com/rbravo-mcr/reservas-api/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// CreateRequest is the validated input to Service.Create. Field-level HTTP
// validation happens upstream in internal/httpapi; this use case only
// enforces the domain invariants C10 already knows about.
type CreateRequest struct {
	SupplierCode      string
	PickupOfficeCode  string
	DropoffOfficeCode string
	PickupDatetime    time.Time
	DropoffDatetime   time.Time
	TotalAmountCents  int64
	CustomerSnapshot  domain.Snapshot
	VehicleSnapshot   domain.Snapshot
}

// Clock returns the current instant; swapped out in tests.
type Clock func() time.Time

// Service implements the create-reservation use case.
type Service struct {
	reservations repository.ReservationStore
	outbox       repository.OutboxStore
	codegen      *codegen.Generator
	clock        Clock
}

// NewService constructs a Service. codegen may be nil to use defaults.
func NewService(reservations repository.ReservationStore, outbox repository.OutboxStore, gen *codegen.Generator, clock Clock) *Service {
	if gen == nil {
		gen = codegen.New()
	}
	if clock == nil {
		clock = time.Now
	}
	return &Service{reservations: reservations, outbox: outbox, codegen: gen, clock: clock}
}

// Create sanitizes req, generates a unique code, and co-persists the
// reservation with its two outbox events in one transaction. If the outbox
// append fails, the whole transaction rolls back and no side effects are
// visible (spec.md §4.5 "all-or-nothing guarantee").
func (s *Service) Create(ctx context.Context, req CreateRequest) (*domain.Reservation, error) {
	ctx, span := telemetry.StartSpan(ctx, "reservation.create")
	defer span.End()

	code, err := s.codegen.Generate(ctx, func(ctx context.Context, candidate string) (bool, error) {
		return s.reservations.ExistsCode(ctx, candidate)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("reservation_code", code))

	customerSnapshot, err := sanitizePayload(req.CustomerSnapshot)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	customerSnapshot, err = sanitize.EnforcePCI(customerSnapshot)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	vehicleSnapshot, err := sanitizePayload(req.VehicleSnapshot)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	amount := formatAmount(req.TotalAmountCents)
	res, err := domain.NewReservation(domain.NewReservationParams{
		ReservationCode:   code,
		SupplierCode:      req.SupplierCode,
		PickupOfficeCode:  req.PickupOfficeCode,
		DropoffOfficeCode: req.DropoffOfficeCode,
		PickupDatetime:    req.PickupDatetime,
		DropoffDatetime:   req.DropoffDatetime,
		TotalAmountCents:  req.TotalAmountCents,
		CustomerSnapshot:  customerSnapshot,
		VehicleSnapshot:   vehicleSnapshot,
		CreatedAt:         s.clock(),
	}, amount)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	tx, err := s.reservations.BeginTx(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreFailure, err)
	}

	if err := s.persist(ctx, tx, res); err != nil {
		_ = tx.Rollback(ctx)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreFailure, err)
	}

	span.SetStatus(codes.Ok, "")
	return res, nil
}

func (s *Service) persist(ctx context.Context, tx repository.Tx, res *domain.Reservation) error {
	if err := s.reservations.Save(ctx, tx, res); err != nil {
		return err
	}

	events := []*domain.OutboxEvent{
		{
			AggregateID: res.ReservationCode,
			EventType:   domain.EventPaymentRequested,
			Payload:     reservationSnapshot(res),
			CreatedAt:   s.clock(),
		},
		{
			AggregateID: res.ReservationCode,
			EventType:   domain.EventBookingRequested,
			Payload:     reservationSnapshot(res),
			CreatedAt:   s.clock(),
		},
	}
	return s.outbox.Append(ctx, tx, events)
}

func reservationSnapshot(res *domain.Reservation) domain.Snapshot {
	return domain.Snapshot{
		"reservation_code":    res.ReservationCode,
		"supplier_code":       res.SupplierCode,
		"pickup_office_code":  res.PickupOfficeCode,
		"dropoff_office_code": res.DropoffOfficeCode,
		"pickup_datetime":     res.PickupDatetime,
		"dropoff_datetime":    res.DropoffDatetime,
		"total_amount":        res.TotalAmount,
		"customer_snapshot":   res.CustomerSnapshot,
		"vehicle_snapshot":    res.VehicleSnapshot,
	}
}

func sanitizePayload(snapshot domain.Snapshot) (domain.Snapshot, error) {
	if snapshot == nil {
		return domain.Snapshot{}, nil
	}
	return sanitize.Payload(snapshot)
}

func formatAmount(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
