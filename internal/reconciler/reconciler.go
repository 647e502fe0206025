// Package reconciler implements C9, the status reconciler: it records every
// external response as an immutable ProviderRequest row and recomputes the
// reservation's lifecycle status from the accumulated SUCCESS rows
// (spec.md §4.10). The recomputation is monotone — a later FAILED response
// never downgrades a status already reached, matching spec.md §9's "Open
// question — status downgrade" decision (see DESIGN.md). Grounded on
// original_source's update_reservation_status_use_case.py for the exact
// _resolve_status algorithm and its audit-logger hooks, generalized to a
// zap audit log line (SPEC_FULL.md §12).
package reconciler

import (
	"context"
	"fmt"
	"time"

	"github.com/rbravo-mcr/reservas-api/internal/domain"
	"github.com/rbravo-mcr/reservas-api/internal/logger"
	"github.com/rbravo-mcr/reservas-api/internal/mask"
	"github.com/rbravo-mcr/reservas-api/internal/repository"
	"github.com/rbravo-mcr/reservas-api/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Clock returns the current instant; swapped out in tests.
type Clock func() time.Time

// ApplyResponseRequest is the input to Reconciler.ApplyResponse
// (spec.md §4.10).
type ApplyResponseRequest struct {
	ReservationCode string
	ProviderCode    string
	RequestType     domain.RequestType
	Success         bool
	RequestPayload  domain.Snapshot
	ResponsePayload domain.Snapshot
	// RespondedAt defaults to the reconciler's clock if the zero value.
	RespondedAt time.Time
}

// Reconciler implements C9.
type Reconciler struct {
	reservations repository.ReservationStore
	clock        Clock
}

// New constructs a Reconciler.
func New(reservations repository.ReservationStore, clock Clock) *Reconciler {
	if clock == nil {
		clock = time.Now
	}
	return &Reconciler{reservations: reservations, clock: clock}
}

// ApplyResponse records req as a ProviderRequest row and, within the same
// transaction, recomputes and (if changed) applies the target status
// (spec.md §4.10 steps 1-4).
func (r *Reconciler) ApplyResponse(ctx context.Context, req ApplyResponseRequest) error {
	ctx, span := telemetry.StartSpan(ctx, "reconciler.apply_response")
	defer span.End()
	span.SetAttributes(
		attribute.String("reservation_code", req.ReservationCode),
		attribute.String("request_type", string(req.RequestType)),
		attribute.Bool("success", req.Success),
	)

	respondedAt := req.RespondedAt
	if respondedAt.IsZero() {
		respondedAt = r.clock()
	}

	res, err := r.reservations.FindByCode(ctx, req.ReservationCode)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	tx, err := r.reservations.BeginTx(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%w: %v", domain.ErrStoreFailure, err)
	}

	previousStatus := res.Status
	if err := r.apply(ctx, tx, res, req, respondedAt); err != nil {
		_ = tx.Rollback(ctx)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%w: %v", domain.ErrStoreFailure, err)
	}

	r.auditLog(req, previousStatus, respondedAt)
	span.SetStatus(codes.Ok, "")
	return nil
}

func (r *Reconciler) apply(ctx context.Context, tx repository.Tx, res *domain.Reservation, req ApplyResponseRequest, respondedAt time.Time) error {
	responseStatus := domain.ResponseFailed
	if req.Success {
		responseStatus = domain.ResponseSuccess
	}

	if err := r.reservations.AddRequest(ctx, tx, &domain.ProviderRequest{
		ReservationCode: req.ReservationCode,
		ProviderCode:    req.ProviderCode,
		RequestType:     req.RequestType,
		RequestPayload:  req.RequestPayload,
		ResponsePayload: req.ResponsePayload,
		Status:          responseStatus,
		CreatedAt:       respondedAt,
		RespondedAt:     respondedAt,
	}); err != nil {
		return err
	}

	target, err := r.resolveStatus(ctx, tx, res, req)
	if err != nil {
		return err
	}

	if target == res.Status {
		return nil
	}

	if err := r.reservations.UpdateStatus(ctx, tx, req.ReservationCode, target); err != nil {
		return err
	}
	if err := r.reservations.AddStatusHistory(ctx, tx, req.ReservationCode, domain.StatusHistoryEntry{
		From:      res.Status,
		To:        target,
		ChangedAt: respondedAt,
	}); err != nil {
		return err
	}

	res.Status = target
	return nil
}

// resolveStatus computes the target status per spec.md §4.10 step 3: a
// reservation already CANCELLED stays CANCELLED (I6 latches); otherwise the
// target is derived purely from accumulated SUCCESS rows, so a FAILED
// response can never regress PAID/SUPPLIER_CONFIRMED back down (I4/I5).
func (r *Reconciler) resolveStatus(ctx context.Context, tx repository.Tx, res *domain.Reservation, req ApplyResponseRequest) (domain.ReservationStatus, error) {
	if res.Status == domain.StatusCancelled {
		return domain.StatusCancelled, nil
	}

	paymentOK, err := r.ok(ctx, tx, req, domain.RequestTypePayment)
	if err != nil {
		return "", err
	}
	bookingOK, err := r.ok(ctx, tx, req, domain.RequestTypeBooking)
	if err != nil {
		return "", err
	}

	switch {
	case paymentOK && bookingOK:
		return domain.StatusSupplierConfirmed, nil
	case paymentOK:
		return domain.StatusPaid, nil
	default:
		return domain.StatusCreated, nil
	}
}

func (r *Reconciler) ok(ctx context.Context, tx repository.Tx, req ApplyResponseRequest, reqType domain.RequestType) (bool, error) {
	if req.RequestType == reqType && req.Success {
		return true, nil
	}
	count, err := r.reservations.CountSuccessfulRequests(ctx, tx, req.ReservationCode, reqType)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// auditLog emits one masked structured log line per sensitive-access event,
// supplementing spec.md §4.10 with original_source's
// UpdateReservationAuditLogger.log_sensitive_access/log_reservation_modified
// hooks (SPEC_FULL.md §12).
func (r *Reconciler) auditLog(req ApplyResponseRequest, previousStatus domain.ReservationStatus, respondedAt time.Time) {
	logger.Get().Infow("reservation status reconciled",
		"reservation_code", req.ReservationCode,
		"provider_code", req.ProviderCode,
		"request_type", req.RequestType,
		"success", req.Success,
		"previous_status", previousStatus,
		"response_payload", mask.Snapshot(req.ResponsePayload),
		"responded_at", respondedAt,
	)
}
