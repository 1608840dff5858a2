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

const (
	clientNotFoundMsg   = "client not found"
	propertyNotFoundMsg = "property not found"
)

// Client is the database model for a client.
type Client struct {
	ID        uuid.UUID `db:"id"`
	TenantID  uuid.UUID `db:"tenant_id"`
	Name      string    `db:"name"`
	Email     string    `db:"email"`
	Phone     *string   `db:"phone"`
	Notes     *string   `db:"notes"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Property is the database model for a client property (service address).
type Property struct {
	ID         uuid.UUID `db:"id"`
	TenantID   uuid.UUID `db:"tenant_id"`
	ClientID   uuid.UUID `db:"client_id"`
	Street     string    `db:"street"`
	City       string    `db:"city"`
	PostalCode string    `db:"postal_code"`
	Country    string    `db:"country"`
	Notes      *string   `db:"notes"`
	CreatedAt  time.Time `db:"created_at"`
}

// ContactData is the minimal contact projection used for outbound messages.
type ContactData struct {
	Name  string
	Email string
	Phone *string
}

// Repository provides database operations for clients and their properties.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new clients repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const clientColumns = `id, tenant_id, name, email, phone, notes, created_at, updated_at`

// Create inserts a new client.
func (r *Repository) Create(ctx context.Context, client *Client) error {
	query := `
		INSERT INTO clients (id, tenant_id, name, email, phone, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		client.ID, client.TenantID, client.Name, client.Email,
		client.Phone, client.Notes, client.CreatedAt, client.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	return nil
}

// GetByID retrieves a client scoped to the tenant.
func (r *Repository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE tenant_id = $1 AND id = $2`

	var c Client
	err := r.pool.QueryRow(ctx, query, tenantID, id).Scan(
		&c.ID, &c.TenantID, &c.Name, &c.Email, &c.Phone, &c.Notes, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(clientNotFoundMsg)
		}
		return nil, fmt.Errorf("get client: %w", err)
	}
	return &c, nil
}

// GetByEmail retrieves a client by email, case-insensitive. Used by public
// intake to fold repeat submitters onto their existing client record.
func (r *Repository) GetByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE tenant_id = $1 AND lower(email) = lower($2)`

	var c Client
	err := r.pool.QueryRow(ctx, query, tenantID, email).Scan(
		&c.ID, &c.TenantID, &c.Name, &c.Email, &c.Phone, &c.Notes, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(clientNotFoundMsg)
		}
		return nil, fmt.Errorf("get client by email: %w", err)
	}
	return &c, nil
}

// GetContactData retrieves the contact projection for a client.
func (r *Repository) GetContactData(ctx context.Context, tenantID, clientID uuid.UUID) (*ContactData, error) {
	query := `SELECT name, email, phone FROM clients WHERE tenant_id = $1 AND id = $2`

	var data ContactData
	err := r.pool.QueryRow(ctx, query, tenantID, clientID).Scan(&data.Name, &data.Email, &data.Phone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(clientNotFoundMsg)
		}
		return nil, fmt.Errorf("get client contact data: %w", err)
	}
	return &data, nil
}

// List retrieves clients for a tenant with optional search, newest first.
func (r *Repository) List(ctx context.Context, tenantID uuid.UUID, search string) ([]Client, error) {
	var searchParam interface{}
	if search != "" {
		searchParam = "%" + search + "%"
	}

	query := `SELECT ` + clientColumns + ` FROM clients
		WHERE tenant_id = $1
			AND ($2::text IS NULL OR name ILIKE $2 OR email ILIKE $2)
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, tenantID, searchParam)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	var clients []Client
	for rows.Next() {
		var c Client
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Name, &c.Email, &c.Phone, &c.Notes, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clients: %w", err)
	}
	return clients, nil
}

// Update updates a client; nil params keep the existing value.
func (r *Repository) Update(ctx context.Context, tenantID, id uuid.UUID, name, email, phone, notes *string) (*Client, error) {
	query := `
		UPDATE clients SET
			name = COALESCE($3, name),
			email = COALESCE($4, email),
			phone = COALESCE($5, phone),
			notes = COALESCE($6, notes),
			updated_at = now()
		WHERE tenant_id = $1 AND id = $2
		RETURNING ` + clientColumns

	var c Client
	err := r.pool.QueryRow(ctx, query, tenantID, id, name, email, phone, notes).Scan(
		&c.ID, &c.TenantID, &c.Name, &c.Email, &c.Phone, &c.Notes, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(clientNotFoundMsg)
		}
		return nil, fmt.Errorf("update client: %w", err)
	}
	return &c, nil
}

// CreateProperty inserts a new property for a client.
func (r *Repository) CreateProperty(ctx context.Context, p *Property) error {
	query := `
		INSERT INTO properties (id, tenant_id, client_id, street, city, postal_code, country, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		p.ID, p.TenantID, p.ClientID, p.Street, p.City, p.PostalCode, p.Country, p.Notes, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create property: %w", err)
	}
	return nil
}

// GetPropertyByID retrieves a property scoped to the tenant.
func (r *Repository) GetPropertyByID(ctx context.Context, tenantID, id uuid.UUID) (*Property, error) {
	query := `SELECT id, tenant_id, client_id, street, city, postal_code, country, notes, created_at
		FROM properties WHERE tenant_id = $1 AND id = $2`

	var p Property
	err := r.pool.QueryRow(ctx, query, tenantID, id).Scan(
		&p.ID, &p.TenantID, &p.ClientID, &p.Street, &p.City, &p.PostalCode, &p.Country, &p.Notes, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(propertyNotFoundMsg)
		}
		return nil, fmt.Errorf("get property: %w", err)
	}
	return &p, nil
}

// ListProperties retrieves all properties for a client.
func (r *Repository) ListProperties(ctx context.Context, tenantID, clientID uuid.UUID) ([]Property, error) {
	query := `SELECT id, tenant_id, client_id, street, city, postal_code, country, notes, created_at
		FROM properties WHERE tenant_id = $1 AND client_id = $2
		ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, tenantID, clientID)
	if err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}
	defer rows.Close()

	var properties []Property
	for rows.Next() {
		var p Property
		if err := rows.Scan(&p.ID, &p.TenantID, &p.ClientID, &p.Street, &p.City, &p.PostalCode, &p.Country, &p.Notes, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan property: %w", err)
		}
		properties = append(properties, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate properties: %w", err)
	}
	return properties, nil
}

// DeleteProperty removes a property.
func (r *Repository) DeleteProperty(ctx context.Context, tenantID, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM properties WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return fmt.Errorf("delete property: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(propertyNotFoundMsg)
	}
	return nil
}
