package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rbravo-mcr/reservas-api/internal/domain"
	"github.com/rbravo-mcr/reservas-api/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PostgresReservationRepository implements ReservationStore using PostgreSQL
// with pgxpool, grounded on
// backend-booking/internal/repository/postgres_booking_repository.go.
type PostgresReservationRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresReservationRepository creates a new PostgresReservationRepository.
func NewPostgresReservationRepository(pool *pgxpool.Pool) *PostgresReservationRepository {
	return &PostgresReservationRepository{pool: pool}
}

// BeginTx opens a transaction against the reservation pool.
func (r *PostgresReservationRepository) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin reservation transaction: %w", err)
	}
	return tx, nil
}

// Save inserts a reservation within tx.
func (r *PostgresReservationRepository) Save(ctx context.Context, tx Tx, res *domain.Reservation) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.reservation.save")
	defer span.End()

	span.SetAttributes(attribute.String("reservation_code", res.ReservationCode))

	customerJSON, err := json.Marshal(res.CustomerSnapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal customer snapshot: %w", err)
	}
	vehicleJSON, err := json.Marshal(res.VehicleSnapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal vehicle snapshot: %w", err)
	}

	query := `
		INSERT INTO reservations (
			reservation_code, supplier_code, pickup_office_code, dropoff_office_code,
			pickup_datetime, dropoff_datetime, total_amount,
			customer_snapshot, vehicle_snapshot, status, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
	`

	_, err = tx.Exec(ctx, query,
		res.ReservationCode,
		res.SupplierCode,
		res.PickupOfficeCode,
		res.DropoffOfficeCode,
		res.PickupDatetime,
		res.DropoffDatetime,
		res.TotalAmount,
		customerJSON,
		vehicleJSON,
		string(res.Status),
		res.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			span.SetStatus(codes.Error, "duplicate code")
			return domain.ErrDuplicateCode
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%w: %v", domain.ErrStoreFailure, err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// FindByCode returns the reservation, or domain.ErrReservationNotFound.
func (r *PostgresReservationRepository) FindByCode(ctx context.Context, code string) (*domain.Reservation, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.reservation.find_by_code")
	defer span.End()

	span.SetAttributes(attribute.String("reservation_code", code))

	query := `
		SELECT reservation_code, supplier_code, pickup_office_code, dropoff_office_code,
			pickup_datetime, dropoff_datetime, total_amount,
			customer_snapshot, vehicle_snapshot, status, created_at
		FROM reservations
		WHERE reservation_code = $1
	`

	var (
		res          domain.Reservation
		status       string
		customerJSON []byte
		vehicleJSON  []byte
	)

	err := r.pool.QueryRow(ctx, query, code).Scan(
		&res.ReservationCode,
		&res.SupplierCode,
		&res.PickupOfficeCode,
		&res.DropoffOfficeCode,
		&res.PickupDatetime,
		&res.DropoffDatetime,
		&res.TotalAmount,
		&customerJSON,
		&vehicleJSON,
		&status,
		&res.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrReservationNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreFailure, err)
	}

	res.Status = domain.ReservationStatus(status)
	if err := json.Unmarshal(customerJSON, &res.CustomerSnapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal customer snapshot: %w", err)
	}
	if err := json.Unmarshal(vehicleJSON, &res.VehicleSnapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal vehicle snapshot: %w", err)
	}

	history, err := r.loadStatusHistory(ctx, code)
	if err != nil {
		return nil, err
	}
	res.StatusHistory = history

	span.SetStatus(codes.Ok, "")
	return &res, nil
}

func (r *PostgresReservationRepository) loadStatusHistory(ctx context.Context, code string) ([]domain.StatusHistoryEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT from_status, to_status, changed_at
		FROM reservation_status_history
		WHERE reservation_code = $1
		ORDER BY id ASC
	`, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreFailure, err)
	}
	defer rows.Close()

	var history []domain.StatusHistoryEntry
	for rows.Next() {
		var from, to string
		var changedAt time.Time
		if err := rows.Scan(&from, &to, &changedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrStoreFailure, err)
		}
		history = append(history, domain.StatusHistoryEntry{
			From:      domain.ReservationStatus(from),
			To:        domain.ReservationStatus(to),
			ChangedAt: changedAt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreFailure, err)
	}
	return history, nil
}

// ExistsCode reports whether code is already assigned to a reservation.
func (r *PostgresReservationRepository) ExistsCode(ctx context.Context, code string) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.reservation.exists_code")
	defer span.End()

	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM reservations WHERE reservation_code = $1)`, code).Scan(&exists)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("%w: %v", domain.ErrStoreFailure, err)
	}
	span.SetStatus(codes.Ok, "")
	return exists, nil
}

// UpdateStatus overwrites the current status within tx.
func (r *PostgresReservationRepository) UpdateStatus(ctx context.Context, tx Tx, code string, status domain.ReservationStatus) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.reservation.update_status")
	defer span.End()

	span.SetAttributes(
		attribute.String("reservation_code", code),
		attribute.String("status", string(status)),
	)

	result, err := tx.Exec(ctx, `UPDATE reservations SET status = $2 WHERE reservation_code = $1`, code, string(status))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%w: %v", domain.ErrStoreFailure, err)
	}
	if result.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "not found")
		return domain.ErrReservationNotFound
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// AddRequest inserts an immutable ProviderRequest row within tx.
func (r *PostgresReservationRepository) AddRequest(ctx context.Context, tx Tx, req *domain.ProviderRequest) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.reservation.add_request")
	defer span.End()

	requestJSON, err := json.Marshal(req.RequestPayload)
	if err != nil {
		return fmt.Errorf("failed to marshal request payload: %w", err)
	}
	responseJSON, err := json.Marshal(req.ResponsePayload)
	if err != nil {
		return fmt.Errorf("failed to marshal response payload: %w", err)
	}

	query := `
		INSERT INTO reservation_provider_requests (
			reservation_code, provider_code, request_type,
			request_payload, response_payload, status, created_at, responded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err = tx.QueryRow(ctx, query,
		req.ReservationCode,
		req.ProviderCode,
		string(req.RequestType),
		requestJSON,
		responseJSON,
		string(req.Status),
		req.CreatedAt,
		req.RespondedAt,
	).Scan(&req.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%w: %v", domain.ErrStoreFailure, err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// CountSuccessfulRequests counts SUCCESS rows for (code, reqType).
func (r *PostgresReservationRepository) CountSuccessfulRequests(ctx context.Context, tx Tx, code string, reqType domain.RequestType) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.reservation.count_successful_requests")
	defer span.End()

	var count int
	err := tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM reservation_provider_requests
		WHERE reservation_code = $1 AND request_type = $2 AND status = $3
	`, code, string(reqType), string(domain.ResponseSuccess)).Scan(&count)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("%w: %v", domain.ErrStoreFailure, err)
	}
	span.SetStatus(codes.Ok, "")
	return count, nil
}

// AddStatusHistory appends one append-only audit row within tx.
func (r *PostgresReservationRepository) AddStatusHistory(ctx context.Context, tx Tx, code string, entry domain.StatusHistoryEntry) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.reservation.add_status_history")
	defer span.End()

	_, err := tx.Exec(ctx, `
		INSERT INTO reservation_status_history (reservation_code, from_status, to_status, changed_at)
		VALUES ($1, $2, $3, $4)
	`, code, string(entry.From), string(entry.To), entry.ChangedAt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%w: %v", domain.ErrStoreFailure, err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

var _ ReservationStore = (*PostgresReservationRepository)(nil)
