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

const requestNotFoundMsg = "request not found"

// Request statuses.
const (
	StatusNew       = "new"
	StatusConverted = "converted"
)

// Request sources.
const (
	SourceStaff  = "staff"
	SourcePublic = "public"
)

// Request is the database model for an incoming service request.
type Request struct {
	ID          uuid.UUID  `db:"id"`
	TenantID    uuid.UUID  `db:"tenant_id"`
	ClientID    uuid.UUID  `db:"client_id"`
	PropertyID  *uuid.UUID `db:"property_id"`
	Title       string     `db:"title"`
	Description *string    `db:"description"`
	Source      string     `db:"source"`
	Status      string     `db:"status"`
	QuoteID     *uuid.UUID `db:"quote_id"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

// Repository provides database operations for service requests.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new requests repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const requestColumns = `id, tenant_id, client_id, property_id, title, description, source, status, quote_id, created_at, updated_at`

func scanRequest(row pgx.Row) (*Request, error) {
	var r Request
	err := row.Scan(
		&r.ID, &r.TenantID, &r.ClientID, &r.PropertyID, &r.Title, &r.Description,
		&r.Source, &r.Status, &r.QuoteID, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Create inserts a new service request.
func (r *Repository) Create(ctx context.Context, request *Request) error {
	query := `
		INSERT INTO service_requests (id, tenant_id, client_id, property_id, title, description, source, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.pool.Exec(ctx, query,
		request.ID, request.TenantID, request.ClientID, request.PropertyID,
		request.Title, request.Description, request.Source, request.Status,
		request.CreatedAt, request.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create service request: %w", err)
	}
	return nil
}

// GetByID retrieves a request scoped to the tenant.
func (r *Repository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Request, error) {
	query := `SELECT ` + requestColumns + ` FROM service_requests WHERE tenant_id = $1 AND id = $2`

	request, err := scanRequest(r.pool.QueryRow(ctx, query, tenantID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(requestNotFoundMsg)
		}
		return nil, fmt.Errorf("get service request: %w", err)
	}
	return request, nil
}

// List retrieves requests for a tenant, newest first.
func (r *Repository) List(ctx context.Context, tenantID uuid.UUID, status *string) ([]Request, error) {
	var statusParam interface{}
	if status != nil {
		statusParam = *status
	}

	query := `SELECT ` + requestColumns + ` FROM service_requests
		WHERE tenant_id = $1 AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, tenantID, statusParam)
	if err != nil {
		return nil, fmt.Errorf("list service requests: %w", err)
	}
	defer rows.Close()

	var requests []Request
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan service request: %w", err)
		}
		requests = append(requests, *request)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate service requests: %w", err)
	}
	return requests, nil
}

// MarkConvertedIf flips a new request to converted, recording the quote it
// became. The write succeeds only while the request is still new; otherwise
// no row is touched and (nil, nil) is returned so the caller can decide how
// to report the lost race.
func (r *Repository) MarkConvertedIf(ctx context.Context, tenantID, id, quoteID uuid.UUID) (*Request, error) {
	query := `
		UPDATE service_requests SET status = $3, quote_id = $4, updated_at = now()
		WHERE tenant_id = $1 AND id = $2 AND status = $5
		RETURNING ` + requestColumns

	request, err := scanRequest(r.pool.QueryRow(ctx, query, tenantID, id, StatusConverted, quoteID, StatusNew))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("mark request converted: %w", err)
	}
	return request, nil
}
