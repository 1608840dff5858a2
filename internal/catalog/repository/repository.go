package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fieldservice_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const serviceItemNotFoundMsg = "service item not found"

// ServiceItem is the database model for a catalog service item.
type ServiceItem struct {
	ID                       uuid.UUID `db:"id"`
	TenantID                 uuid.UUID `db:"tenant_id"`
	Name                     string    `db:"name"`
	Description              *string   `db:"description"`
	UnitPriceCents           int64     `db:"unit_price_cents"`
	EstimatedDurationMinutes *int32    `db:"estimated_duration_minutes"`
	IsActive                 bool      `db:"is_active"`
	CreatedAt                time.Time `db:"created_at"`
	UpdatedAt                time.Time `db:"updated_at"`
}

// CreateParams contains the fields for creating a service item.
type CreateParams struct {
	TenantID                 uuid.UUID
	Name                     string
	Description              *string
	UnitPriceCents           int64
	EstimatedDurationMinutes *int32
}

// UpdateParams contains the fields for updating a service item.
// Nil pointer fields keep their current value.
type UpdateParams struct {
	TenantID                 uuid.UUID
	ID                       uuid.UUID
	Name                     *string
	Description              *string
	UnitPriceCents           *int64
	EstimatedDurationMinutes *int32
	IsActive                 *bool
}

// Repository provides database operations for the service item catalog.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new catalog repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const serviceItemColumns = `id, tenant_id, name, description, unit_price_cents, estimated_duration_minutes, is_active, created_at, updated_at`

// GetByID retrieves a service item scoped to the tenant.
func (r *Repository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*ServiceItem, error) {
	query := `SELECT ` + serviceItemColumns + ` FROM service_items WHERE tenant_id = $1 AND id = $2`

	var item ServiceItem
	err := r.pool.QueryRow(ctx, query, tenantID, id).Scan(
		&item.ID, &item.TenantID, &item.Name, &item.Description,
		&item.UnitPriceCents, &item.EstimatedDurationMinutes, &item.IsActive,
		&item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(serviceItemNotFoundMsg)
		}
		return nil, fmt.Errorf("get service item: %w", err)
	}
	return &item, nil
}

// List retrieves all service items for a tenant ordered by name.
func (r *Repository) List(ctx context.Context, tenantID uuid.UUID, activeOnly bool) ([]ServiceItem, error) {
	query := `SELECT ` + serviceItemColumns + ` FROM service_items
		WHERE tenant_id = $1 AND ($2::boolean = false OR is_active = true)
		ORDER BY name ASC`

	rows, err := r.pool.Query(ctx, query, tenantID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list service items: %w", err)
	}
	defer rows.Close()

	var items []ServiceItem
	for rows.Next() {
		var item ServiceItem
		if err := rows.Scan(
			&item.ID, &item.TenantID, &item.Name, &item.Description,
			&item.UnitPriceCents, &item.EstimatedDurationMinutes, &item.IsActive,
			&item.CreatedAt, &item.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan service item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate service items: %w", err)
	}
	return items, nil
}

// GetEstimatedDurations returns the estimated duration in minutes for each of
// the given service items. Items that do not exist or have no duration are
// simply absent from the result map.
func (r *Repository) GetEstimatedDurations(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]int32, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]int32{}, nil
	}

	query := `SELECT id, estimated_duration_minutes FROM service_items
		WHERE tenant_id = $1 AND id = ANY($2) AND estimated_duration_minutes IS NOT NULL`

	rows, err := r.pool.Query(ctx, query, tenantID, ids)
	if err != nil {
		return nil, fmt.Errorf("get service item durations: %w", err)
	}
	defer rows.Close()

	durations := make(map[uuid.UUID]int32, len(ids))
	for rows.Next() {
		var id uuid.UUID
		var minutes int32
		if err := rows.Scan(&id, &minutes); err != nil {
			return nil, fmt.Errorf("scan service item duration: %w", err)
		}
		durations[id] = minutes
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate service item durations: %w", err)
	}
	return durations, nil
}

// Create inserts a new service item.
func (r *Repository) Create(ctx context.Context, params CreateParams) (*ServiceItem, error) {
	query := `
		INSERT INTO service_items (id, tenant_id, name, description, unit_price_cents, estimated_duration_minutes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + serviceItemColumns

	var item ServiceItem
	err := r.pool.QueryRow(ctx, query,
		uuid.New(), params.TenantID, params.Name, params.Description,
		params.UnitPriceCents, params.EstimatedDurationMinutes,
	).Scan(
		&item.ID, &item.TenantID, &item.Name, &item.Description,
		&item.UnitPriceCents, &item.EstimatedDurationMinutes, &item.IsActive,
		&item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create service item: %w", err)
	}
	return &item, nil
}

// Update updates a service item; nil params keep the existing value.
func (r *Repository) Update(ctx context.Context, params UpdateParams) (*ServiceItem, error) {
	query := `
		UPDATE service_items SET
			name = COALESCE($3, name),
			description = COALESCE($4, description),
			unit_price_cents = COALESCE($5, unit_price_cents),
			estimated_duration_minutes = COALESCE($6, estimated_duration_minutes),
			is_active = COALESCE($7, is_active),
			updated_at = now()
		WHERE tenant_id = $1 AND id = $2
		RETURNING ` + serviceItemColumns

	var item ServiceItem
	err := r.pool.QueryRow(ctx, query,
		params.TenantID, params.ID, params.Name, params.Description,
		params.UnitPriceCents, params.EstimatedDurationMinutes, params.IsActive,
	).Scan(
		&item.ID, &item.TenantID, &item.Name, &item.Description,
		&item.UnitPriceCents, &item.EstimatedDurationMinutes, &item.IsActive,
		&item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(serviceItemNotFoundMsg)
		}
		return nil, fmt.Errorf("update service item: %w", err)
	}
	return &item, nil
}

// Delete removes a service item.
func (r *Repository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM service_items WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return fmt.Errorf("delete service item: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(serviceItemNotFoundMsg)
	}
	return nil
}
