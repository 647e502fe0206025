package addon

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rbravo-mcr/reservas-api/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PostgresCatalog implements Catalog against the rental_addons table,
// grounded on postgres_booking_repository.go's span-wrapped query shape.
type PostgresCatalog struct {
	pool *pgxpool.Pool
}

// NewPostgresCatalog creates a new PostgresCatalog.
func NewPostgresCatalog(pool *pgxpool.Pool) *PostgresCatalog {
	return &PostgresCatalog{pool: pool}
}

// ListActive returns active add-ons ordered by sort_order.
func (c *PostgresCatalog) ListActive(ctx context.Context, category *Category) ([]Addon, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.addon.list_active")
	defer span.End()

	query := `
		SELECT code, name, category, description, sort_order, is_active
		FROM rental_addons
		WHERE is_active = true
	`
	args := []any{}
	if category != nil {
		query += " AND category = $1"
		args = append(args, string(*category))
		span.SetAttributes(attribute.String("category", string(*category)))
	}
	query += " ORDER BY sort_order ASC"

	rows, err := c.pool.Query(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to list addons: %w", err)
	}
	defer rows.Close()

	var addons []Addon
	for rows.Next() {
		var a Addon
		var category string
		if err := rows.Scan(&a.Code, &a.Name, &category, &a.Description, &a.SortOrder, &a.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan addon row: %w", err)
		}
		a.Category = Category(category)
		addons = append(addons, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate addon rows: %w", err)
	}

	span.SetAttributes(attribute.Int("count", len(addons)))
	span.SetStatus(codes.Ok, "")
	return addons, nil
}

var _ Catalog = (*PostgresCatalog)(nil)
