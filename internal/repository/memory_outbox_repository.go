package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/rbravo-mcr/reservas-api/internal/domain"
)

// MemoryOutboxRepository implements OutboxStore in memory, useful for unit
// tests exercising C7/C8 without a database.
type MemoryOutboxRepository struct {
	mu     sync.Mutex
	events map[int64]*domain.OutboxEvent
	nextID int64
}

// NewMemoryOutboxRepository creates a new in-memory outbox store.
func NewMemoryOutboxRepository() *MemoryOutboxRepository {
	return &MemoryOutboxRepository{events: make(map[int64]*domain.OutboxEvent)}
}

// BeginTx returns a no-op transaction handle.
func (r *MemoryOutboxRepository) BeginTx(ctx context.Context) (Tx, error) {
	return memoryTx{}, nil
}

// Append inserts a batch of OutboxEvents, assigning ids in call order.
func (r *MemoryOutboxRepository) Append(ctx context.Context, tx Tx, events []*domain.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ev := range events {
		r.nextID++
		clone := *ev
		clone.ID = r.nextID
		clone.Status = domain.OutboxPending
		r.events[clone.ID] = &clone
		ev.ID = clone.ID
	}
	return nil
}

// ClaimPending returns up to limit ids whose status is PENDING or FAILED,
// ordered by id ascending.
func (r *MemoryOutboxRepository) ClaimPending(ctx context.Context, limit int) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ids []int64
	for id, ev := range r.events {
		if ev.Status == domain.OutboxPending || ev.Status == domain.OutboxFailed {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// Load returns a copy of the event by id, or nil if absent.
func (r *MemoryOutboxRepository) Load(ctx context.Context, tx Tx, id int64) (*domain.OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ev, exists := r.events[id]
	if !exists {
		return nil, nil
	}
	clone := *ev
	return &clone, nil
}

// MarkProcessed sets status=PROCESSED and clears last_error.
func (r *MemoryOutboxRepository) MarkProcessed(ctx context.Context, tx Tx, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ev, exists := r.events[id]
	if !exists {
		return nil
	}
	ev.Status = domain.OutboxProcessed
	ev.LastError = ""
	return nil
}

// MarkFailed sets status=FAILED and stores lastErr.
func (r *MemoryOutboxRepository) MarkFailed(ctx context.Context, tx Tx, id int64, lastErr string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ev, exists := r.events[id]
	if !exists {
		return nil
	}
	ev.Status = domain.OutboxFailed
	ev.LastError = lastErr
	return nil
}

var _ OutboxStore = (*MemoryOutboxRepository)(nil)
