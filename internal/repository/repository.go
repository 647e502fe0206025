// Package repository implements C1 (reservation store) and C2 (outbox
// store): durable CRUD with uniqueness of reservation codes, and an
// append-only dispatch-intent log queried/mutated atomically with C1 in one
// transaction. Grounded on
// backend-booking/internal/repository/postgres_booking_repository.go
// (span-wrapped methods, scan helpers, compile-time interface assertions)
// and backend-payment/internal/repository/memory_payment_repository.go
// (mutex-guarded map fakes for tests).
package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rbravo-mcr/reservas-api/internal/domain"
)

// Tx is the subset of pgx.Tx the stores need; both C1 and C2 accept the
// same Tx so a caller can compose writes to both inside one transaction
// (spec.md §4.5 step 4).
type Tx interface {
	pgx.Tx
}

// ReservationStore is the C1 contract (spec.md §4.3).
type ReservationStore interface {
	// Save inserts a reservation within tx. Returns domain.ErrDuplicateCode
	// on a unique-index violation.
	Save(ctx context.Context, tx Tx, r *domain.Reservation) error

	// FindByCode returns the reservation, or domain.ErrReservationNotFound.
	FindByCode(ctx context.Context, code string) (*domain.Reservation, error)

	// ExistsCode reports whether code is already assigned to a reservation.
	ExistsCode(ctx context.Context, code string) (bool, error)

	// UpdateStatus overwrites the current status within tx. Callers must
	// also call AddStatusHistory in the same transaction (spec.md §4.3).
	UpdateStatus(ctx context.Context, tx Tx, code string, status domain.ReservationStatus) error

	// AddRequest inserts an immutable ProviderRequest row within tx.
	AddRequest(ctx context.Context, tx Tx, req *domain.ProviderRequest) error

	// CountSuccessfulRequests counts SUCCESS rows for (code, reqType).
	CountSuccessfulRequests(ctx context.Context, tx Tx, code string, reqType domain.RequestType) (int, error)

	// AddStatusHistory appends one append-only audit row within tx.
	AddStatusHistory(ctx context.Context, tx Tx, code string, entry domain.StatusHistoryEntry) error

	// BeginTx opens a new transaction against the reservation store's pool.
	BeginTx(ctx context.Context) (Tx, error)
}

// OutboxStore is the C2 contract (spec.md §4.4).
type OutboxStore interface {
	// Append inserts a batch of OutboxEvents within tx.
	Append(ctx context.Context, tx Tx, events []*domain.OutboxEvent) error

	// ClaimPending returns up to limit ids whose status is PENDING or
	// FAILED, ordered by id ascending (spec.md §4.4; no row locking by
	// default, see DESIGN.md open-question decision).
	ClaimPending(ctx context.Context, limit int) ([]int64, error)

	// Load returns the event by id within tx, or nil if absent.
	Load(ctx context.Context, tx Tx, id int64) (*domain.OutboxEvent, error)

	// MarkProcessed sets status=PROCESSED and clears last_error within tx.
	MarkProcessed(ctx context.Context, tx Tx, id int64) error

	// MarkFailed sets status=FAILED and stores lastErr within tx.
	MarkFailed(ctx context.Context, tx Tx, id int64, lastErr string) error

	// BeginTx opens a new transaction against the outbox store's pool.
	BeginTx(ctx context.Context) (Tx, error)
}
