package repository

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/rbravo-mcr/reservas-api/internal/domain"
)

// memoryTx is a no-op transaction handle for the in-memory fakes: it embeds
// a nil pgx.Tx so it satisfies the Tx interface at compile time, and
// overrides only the lifecycle methods the fakes actually call. Grounded on
// memory_payment_repository.go's mutex-guarded map pattern, generalized
// to also need a transaction handle because ReservationStore/OutboxStore
// compose writes across one call (spec.md §4.5 step 4).
type memoryTx struct {
	pgx.Tx
}

func (memoryTx) Commit(ctx context.Context) error   { return nil }
func (memoryTx) Rollback(ctx context.Context) error { return nil }

// MemoryReservationRepository implements ReservationStore in memory, useful
// for unit tests that exercise C7/C9 without a database.
type MemoryReservationRepository struct {
	mu            sync.RWMutex
	reservations  map[string]*domain.Reservation
	requests      map[string][]*domain.ProviderRequest
	nextRequestID int64
}

// NewMemoryReservationRepository creates a new in-memory reservation store.
func NewMemoryReservationRepository() *MemoryReservationRepository {
	return &MemoryReservationRepository{
		reservations: make(map[string]*domain.Reservation),
		requests:     make(map[string][]*domain.ProviderRequest),
	}
}

// BeginTx returns a no-op transaction handle.
func (r *MemoryReservationRepository) BeginTx(ctx context.Context) (Tx, error) {
	return memoryTx{}, nil
}

// Save inserts a reservation, cloning it to avoid external mutation.
func (r *MemoryReservationRepository) Save(ctx context.Context, tx Tx, res *domain.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.reservations[res.ReservationCode]; exists {
		return domain.ErrDuplicateCode
	}

	clone := *res
	clone.StatusHistory = append([]domain.StatusHistoryEntry(nil), res.StatusHistory...)
	r.reservations[res.ReservationCode] = &clone
	return nil
}

// FindByCode returns a copy of the stored reservation.
func (r *MemoryReservationRepository) FindByCode(ctx context.Context, code string) (*domain.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, exists := r.reservations[code]
	if !exists {
		return nil, domain.ErrReservationNotFound
	}
	clone := *res
	clone.StatusHistory = append([]domain.StatusHistoryEntry(nil), res.StatusHistory...)
	return &clone, nil
}

// ExistsCode reports whether code is already assigned.
func (r *MemoryReservationRepository) ExistsCode(ctx context.Context, code string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.reservations[code]
	return exists, nil
}

// UpdateStatus overwrites the current status.
func (r *MemoryReservationRepository) UpdateStatus(ctx context.Context, tx Tx, code string, status domain.ReservationStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, exists := r.reservations[code]
	if !exists {
		return domain.ErrReservationNotFound
	}
	res.Status = status
	return nil
}

// AddRequest inserts an immutable ProviderRequest row.
func (r *MemoryReservationRepository) AddRequest(ctx context.Context, tx Tx, req *domain.ProviderRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextRequestID++
	clone := *req
	clone.ID = r.nextRequestID
	r.requests[req.ReservationCode] = append(r.requests[req.ReservationCode], &clone)
	req.ID = clone.ID
	return nil
}

// CountSuccessfulRequests counts SUCCESS rows for (code, reqType).
func (r *MemoryReservationRepository) CountSuccessfulRequests(ctx context.Context, tx Tx, code string, reqType domain.RequestType) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, req := range r.requests[code] {
		if req.RequestType == reqType && req.Status == domain.ResponseSuccess {
			count++
		}
	}
	return count, nil
}

// AddStatusHistory appends one append-only audit row.
func (r *MemoryReservationRepository) AddStatusHistory(ctx context.Context, tx Tx, code string, entry domain.StatusHistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, exists := r.reservations[code]
	if !exists {
		return domain.ErrReservationNotFound
	}
	res.StatusHistory = append(res.StatusHistory, entry)
	return nil
}

var _ ReservationStore = (*MemoryReservationRepository)(nil)
