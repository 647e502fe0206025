// Package outbox implements C8: the background loop that drains
// provider_outbox_events in small batches and dispatches each event through
// a provider adapter (C6), one fresh transaction and one exception scope per
// event (spec.md §4.9). Grounded on
// backend-booking/internal/worker/expiry_worker.go's Start/Stop/ticker scan
// loop shape, replacing the scan-for-expired-rows query with
// OutboxStore.ClaimPending.
package outbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rbravo-mcr/reservas-api/internal/domain"
	"github.com/rbravo-mcr/reservas-api/internal/logger"
	"github.com/rbravo-mcr/reservas-api/internal/provider"
	"github.com/rbravo-mcr/reservas-api/internal/reconciler"
	"github.com/rbravo-mcr/reservas-api/internal/repository"
	"github.com/rbravo-mcr/reservas-api/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Config controls the poll cadence and batch size (spec.md §6
// batch_size/poll_interval_seconds).
type Config struct {
	BatchSize    int
	PollInterval time.Duration
}

// Clock returns the current instant; swapped out in tests.
type Clock func() time.Time

// Worker is the C8 background loop. It owns no transaction across loop
// iterations: every claimed event gets its own transaction, opened and
// committed inside processOne (spec.md §5 "transactions must not be held
// across HTTP I/O to a provider").
type Worker struct {
	outbox  repository.OutboxStore
	payment provider.Adapter
	booking provider.Adapter
	recon   *reconciler.Reconciler
	cfg     Config
	clock   Clock

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// New constructs a Worker. recon is invoked with each dispatch's Result so
// the reservation's status is reconciled as part of the same tick (the
// outbox row transitions PENDING/FAILED -> PROCESSED independently of
// whether the reconciler's own transaction succeeds; see reconcile).
func New(outboxStore repository.OutboxStore, payment, booking provider.Adapter, recon *reconciler.Reconciler, cfg Config, clock Clock) *Worker {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if clock == nil {
		clock = time.Now
	}
	return &Worker{
		outbox:  outboxStore,
		payment: payment,
		booking: booking,
		recon:   recon,
		cfg:     cfg,
		clock:   clock,
		stopCh:  make(chan struct{}),
	}
}

// Start runs the poll loop until ctx is cancelled or Stop is called. It
// completes the in-flight batch before returning (spec.md §5 "cooperative
// stop... completes the in-flight event first").
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("outbox worker already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.mu.Unlock()

	log := logger.Get()
	log.Info("starting outbox worker")

	w.wg.Add(1)
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	w.ProcessPendingOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case <-ticker.C:
			w.ProcessPendingOnce(ctx)
		}
	}
}

// Stop signals the loop to exit at the next poll boundary and waits for it
// to finish the in-flight batch.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	w.mu.Unlock()

	w.wg.Wait()
	logger.Get().Info("outbox worker stopped")
}

// ProcessPendingOnce claims up to BatchSize pending/failed event ids and
// dispatches each in its own transaction (spec.md §4.9 step 1-2). Exported
// so tests (and the P-worker-recovery property) can drive the loop
// synchronously without Start/Stop.
func (w *Worker) ProcessPendingOnce(ctx context.Context) {
	ctx, span := telemetry.StartSpan(ctx, "outbox.process_pending_once")
	defer span.End()

	ids, err := w.outbox.ClaimPending(ctx, w.cfg.BatchSize)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Get().Errorw("failed to claim pending outbox events", "error", err)
		return
	}
	span.SetAttributes(attribute.Int("claimed", len(ids)))

	for _, id := range ids {
		w.processOne(ctx, id)
	}
}

// processOne loads one event, dispatches it, and commits the row-level
// status change — every failure isolated to this event's own scope so it
// never poisons the rest of the batch (spec.md §4.9 "Failure isolation").
func (w *Worker) processOne(ctx context.Context, id int64) {
	ctx, span := telemetry.StartSpan(ctx, "outbox.process_one")
	defer span.End()
	span.SetAttributes(attribute.Int64("event_id", id))

	log := logger.Get()

	tx, err := w.outbox.BeginTx(ctx)
	if err != nil {
		log.Errorw("failed to begin outbox transaction", "event_id", id, "error", err)
		return
	}

	ev, err := w.outbox.Load(ctx, tx, id)
	if err != nil {
		_ = tx.Rollback(ctx)
		log.Errorw("failed to load outbox event", "event_id", id, "error", err)
		return
	}
	if ev == nil || ev.Status == domain.OutboxProcessed {
		_ = tx.Rollback(ctx)
		return
	}

	res := reservationFromPayload(ev)

	var result domain.ProviderResult
	var dispatchErr error
	switch ev.EventType {
	case domain.EventPaymentRequested:
		result = w.payment.Dispatch(ctx, res)
	case domain.EventBookingRequested:
		result = w.booking.Dispatch(ctx, res)
	default:
		dispatchErr = fmt.Errorf("%w: %s", domain.ErrUnknownOutboxEventType, ev.EventType)
	}

	if dispatchErr != nil {
		if err := w.outbox.MarkFailed(ctx, tx, id, dispatchErr.Error()); err != nil {
			_ = tx.Rollback(ctx)
			log.Errorw("failed to mark outbox event failed", "event_id", id, "error", err)
			return
		}
		if err := tx.Commit(ctx); err != nil {
			log.Errorw("failed to commit outbox failure", "event_id", id, "error", err)
		}
		span.SetStatus(codes.Error, dispatchErr.Error())
		return
	}

	if !result.Success {
		if err := w.outbox.MarkFailed(ctx, tx, id, result.Status); err != nil {
			_ = tx.Rollback(ctx)
			log.Errorw("failed to mark outbox event failed", "event_id", id, "error", err)
			return
		}
		if err := tx.Commit(ctx); err != nil {
			log.Errorw("failed to commit outbox failure", "event_id", id, "error", err)
		}
		w.reconcile(ctx, ev, res, result)
		return
	}

	if err := w.outbox.MarkProcessed(ctx, tx, id); err != nil {
		_ = tx.Rollback(ctx)
		log.Errorw("failed to mark outbox event processed", "event_id", id, "error", err)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		log.Errorw("failed to commit outbox success", "event_id", id, "error", err)
		span.RecordError(err)
		return
	}

	span.SetStatus(codes.Ok, "")
	w.reconcile(ctx, ev, res, result)
}

// reconcile feeds the dispatch outcome into C9. Reconciliation failures are
// logged but never re-fail the outbox row: the event genuinely reached the
// provider (or genuinely failed), and spec.md §4.9 ties PROCESSED/FAILED
// purely to the dispatch outcome, not to reconciliation succeeding.
func (w *Worker) reconcile(ctx context.Context, ev *domain.OutboxEvent, res *domain.Reservation, result domain.ProviderResult) {
	if w.recon == nil {
		return
	}
	reqType := domain.RequestTypePayment
	if ev.EventType == domain.EventBookingRequested {
		reqType = domain.RequestTypeBooking
	}
	err := w.recon.ApplyResponse(ctx, reconciler.ApplyResponseRequest{
		ReservationCode: res.ReservationCode,
		ProviderCode:    providerCode(ev.EventType),
		RequestType:     reqType,
		Success:         result.Success,
		RequestPayload:  reservationPayload(res),
		ResponsePayload: result.Payload,
		RespondedAt:     w.clock(),
	})
	if err != nil {
		logger.Get().Errorw("failed to reconcile provider response",
			"reservation_code", res.ReservationCode,
			"event_type", ev.EventType,
			"error", err,
		)
	}
}

func providerCode(t domain.OutboxEventType) string {
	if t == domain.EventPaymentRequested {
		return "stripe"
	}
	return "supplier"
}

// reservationFromPayload rebuilds a minimal Reservation from an outbox
// event's payload snapshot, defaulting any missing field so a malformed or
// partially-written payload never panics the worker (spec.md §4.9 step 2a
// "defensive defaults on missing fields").
func reservationFromPayload(ev *domain.OutboxEvent) *domain.Reservation {
	res := &domain.Reservation{
		ReservationCode: ev.AggregateID,
	}
	p := ev.Payload
	if p == nil {
		return res
	}
	if v, ok := p["supplier_code"].(string); ok {
		res.SupplierCode = v
	}
	if v, ok := p["pickup_office_code"].(string); ok {
		res.PickupOfficeCode = v
	}
	if v, ok := p["dropoff_office_code"].(string); ok {
		res.DropoffOfficeCode = v
	}
	if v, ok := p["pickup_datetime"].(time.Time); ok {
		res.PickupDatetime = v
	}
	if v, ok := p["dropoff_datetime"].(time.Time); ok {
		res.DropoffDatetime = v
	}
	if v, ok := p["total_amount"].(string); ok {
		res.TotalAmount = v
	}
	if v, ok := p["customer_snapshot"].(domain.Snapshot); ok {
		res.CustomerSnapshot = v
	} else if v, ok := p["customer_snapshot"].(map[string]any); ok {
		res.CustomerSnapshot = domain.Snapshot(v)
	}
	if v, ok := p["vehicle_snapshot"].(domain.Snapshot); ok {
		res.VehicleSnapshot = v
	} else if v, ok := p["vehicle_snapshot"].(map[string]any); ok {
		res.VehicleSnapshot = domain.Snapshot(v)
	}
	return res
}

func reservationPayload(res *domain.Reservation) domain.Snapshot {
	return domain.Snapshot{
		"reservation_code": res.ReservationCode,
		"supplier_code":    res.SupplierCode,
	}
}
