package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rbravo-mcr/reservas-api/internal/domain"
	"github.com/rbravo-mcr/reservas-api/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PostgresOutboxRepository implements OutboxStore using PostgreSQL with
// pgxpool, grounded on the same span-wrapped method shape as
// postgres_reservation_repository.go.
type PostgresOutboxRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresOutboxRepository creates a new PostgresOutboxRepository.
func NewPostgresOutboxRepository(pool *pgxpool.Pool) *PostgresOutboxRepository {
	return &PostgresOutboxRepository{pool: pool}
}

// BeginTx opens a transaction against the outbox pool.
func (r *PostgresOutboxRepository) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin outbox transaction: %w", err)
	}
	return tx, nil
}

// Append inserts a batch of OutboxEvents within tx.
func (r *PostgresOutboxRepository) Append(ctx context.Context, tx Tx, events []*domain.OutboxEvent) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.outbox.append")
	defer span.End()

	span.SetAttributes(attribute.Int("event_count", len(events)))

	for _, ev := range events {
		payloadJSON, err := json.Marshal(ev.Payload)
		if err != nil {
			return fmt.Errorf("failed to marshal outbox payload: %w", err)
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO provider_outbox_events (
				aggregate_id, event_type, payload, status, created_at, last_error
			) VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`,
			ev.AggregateID,
			string(ev.EventType),
			payloadJSON,
			string(domain.OutboxPending),
			ev.CreatedAt,
			ev.LastError,
		).Scan(&ev.ID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("%w: %v", domain.ErrStoreFailure, err)
		}
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// ClaimPending returns up to limit ids whose status is PENDING or FAILED,
// ordered by id ascending. Deliberately a plain SELECT rather than
// SELECT ... FOR UPDATE SKIP LOCKED: no rows are locked, so two worker
// replicas may claim and dispatch the same id; delivery is at-least-once and
// the adapters pass reservation_code as the idempotency key (see DESIGN.md
// open-question decision).
func (r *PostgresOutboxRepository) ClaimPending(ctx context.Context, limit int) ([]int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.outbox.claim_pending")
	defer span.End()

	rows, err := r.pool.Query(ctx, `
		SELECT id FROM provider_outbox_events
		WHERE status IN ($1, $2)
		ORDER BY id ASC
		LIMIT $3
	`, string(domain.OutboxPending), string(domain.OutboxFailed), limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreFailure, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrStoreFailure, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreFailure, err)
	}

	span.SetAttributes(attribute.Int("claimed", len(ids)))
	span.SetStatus(codes.Ok, "")
	return ids, nil
}

// Load returns the event by id within tx, or nil if absent.
func (r *PostgresOutboxRepository) Load(ctx context.Context, tx Tx, id int64) (*domain.OutboxEvent, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.outbox.load")
	defer span.End()

	var (
		ev          domain.OutboxEvent
		eventType   string
		status      string
		payloadJSON []byte
	)

	err := tx.QueryRow(ctx, `
		SELECT id, aggregate_id, event_type, payload, status, created_at, last_error
		FROM provider_outbox_events WHERE id = $1
	`, id).Scan(&ev.ID, &ev.AggregateID, &eventType, &payloadJSON, &status, &ev.CreatedAt, &ev.LastError)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreFailure, err)
	}

	ev.EventType = domain.OutboxEventType(eventType)
	ev.Status = domain.OutboxStatus(status)
	if err := json.Unmarshal(payloadJSON, &ev.Payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal outbox payload: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return &ev, nil
}

// MarkProcessed sets status=PROCESSED and clears last_error within tx.
func (r *PostgresOutboxRepository) MarkProcessed(ctx context.Context, tx Tx, id int64) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.outbox.mark_processed")
	defer span.End()

	_, err := tx.Exec(ctx, `
		UPDATE provider_outbox_events SET status = $2, last_error = '' WHERE id = $1
	`, id, string(domain.OutboxProcessed))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%w: %v", domain.ErrStoreFailure, err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// MarkFailed sets status=FAILED and stores lastErr within tx.
func (r *PostgresOutboxRepository) MarkFailed(ctx context.Context, tx Tx, id int64, lastErr string) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.outbox.mark_failed")
	defer span.End()

	_, err := tx.Exec(ctx, `
		UPDATE provider_outbox_events SET status = $2, last_error = $3 WHERE id = $1
	`, id, string(domain.OutboxFailed), lastErr)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%w: %v", domain.ErrStoreFailure, err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

var _ OutboxStore = (*PostgresOutboxRepository)(nil)
