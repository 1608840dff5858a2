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

const quoteNotFoundMsg = "quote not found"

// Quote is the database model for a quote header.
type Quote struct {
	ID            uuid.UUID  `db:"id"`
	TenantID      uuid.UUID  `db:"tenant_id"`
	RequestID     *uuid.UUID `db:"request_id"`
	ClientID      uuid.UUID  `db:"client_id"`
	PropertyID    *uuid.UUID `db:"property_id"`
	Title         string     `db:"title"`
	Status        string     `db:"status"`
	TaxRateBps    int        `db:"tax_rate_bps"`
	SubtotalCents int64      `db:"subtotal_cents"`
	TaxCents      int64      `db:"tax_cents"`
	TotalCents    int64      `db:"total_cents"`
	ValidUntil    *time.Time `db:"valid_until"`
	SentAt        *time.Time `db:"sent_at"`
	ApprovedAt    *time.Time `db:"approved_at"`
	DeclinedAt    *time.Time `db:"declined_at"`
	ScheduledAt   *time.Time `db:"scheduled_at"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
}

// QuoteItem is the database model for a quote line item.
type QuoteItem struct {
	ID             uuid.UUID  `db:"id"`
	QuoteID        uuid.UUID  `db:"quote_id"`
	TenantID       uuid.UUID  `db:"tenant_id"`
	ServiceItemID  *uuid.UUID `db:"service_item_id"`
	Description    string     `db:"description"`
	Quantity       float64    `db:"quantity"`
	UnitPriceCents int64      `db:"unit_price_cents"`
	LineTotalCents int64      `db:"line_total_cents"`
	SortOrder      int        `db:"sort_order"`
	CreatedAt      time.Time  `db:"created_at"`
}

// StatusExtra carries the timestamp fields a status transition may set.
// Nil fields are left untouched by the conditional update.
type StatusExtra struct {
	SentAt      *time.Time
	ApprovedAt  *time.Time
	DeclinedAt  *time.Time
	ScheduledAt *time.Time
}

// ListParams contains parameters for listing quotes.
type ListParams struct {
	TenantID uuid.UUID
	ClientID *uuid.UUID
	Status   *string
}

// Repository provides database operations for quotes.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new quotes repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const quoteColumns = `id, tenant_id, request_id, client_id, property_id, title, status, tax_rate_bps,
	subtotal_cents, tax_cents, total_cents, valid_until,
	sent_at, approved_at, declined_at, scheduled_at, created_at, updated_at`

func scanQuote(row pgx.Row) (*Quote, error) {
	var q Quote
	err := row.Scan(
		&q.ID, &q.TenantID, &q.RequestID, &q.ClientID, &q.PropertyID, &q.Title, &q.Status, &q.TaxRateBps,
		&q.SubtotalCents, &q.TaxCents, &q.TotalCents, &q.ValidUntil,
		&q.SentAt, &q.ApprovedAt, &q.DeclinedAt, &q.ScheduledAt, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// CreateWithItems inserts a quote and its line items in a single transaction.
func (r *Repository) CreateWithItems(ctx context.Context, quote *Quote, items []QuoteItem) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	quoteQuery := `
		INSERT INTO quotes (
			id, tenant_id, request_id, client_id, property_id, title, status, tax_rate_bps,
			subtotal_cents, tax_cents, total_cents, valid_until, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	if _, err := tx.Exec(ctx, quoteQuery,
		quote.ID, quote.TenantID, quote.RequestID, quote.ClientID, quote.PropertyID,
		quote.Title, quote.Status, quote.TaxRateBps,
		quote.SubtotalCents, quote.TaxCents, quote.TotalCents, quote.ValidUntil,
		quote.CreatedAt, quote.UpdatedAt,
	); err != nil {
		return fmt.Errorf("insert quote: %w", err)
	}

	if err := insertItems(ctx, tx, items); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// UpdateWithItems updates a quote header and replaces its line items. The
// update only applies while the quote is still in draft; a non-draft quote
// is reported as a validation failure after a re-read.
func (r *Repository) UpdateWithItems(ctx context.Context, quote *Quote, items []QuoteItem) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	updateQuery := `
		UPDATE quotes SET
			title = $3, tax_rate_bps = $4,
			subtotal_cents = $5, tax_cents = $6, total_cents = $7,
			valid_until = $8, updated_at = $9
		WHERE tenant_id = $1 AND id = $2 AND status = 'draft'`

	result, err := tx.Exec(ctx, updateQuery,
		quote.TenantID, quote.ID, quote.Title, quote.TaxRateBps,
		quote.SubtotalCents, quote.TaxCents, quote.TotalCents,
		quote.ValidUntil, quote.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update quote: %w", err)
	}
	if result.RowsAffected() == 0 {
		if _, getErr := r.GetByID(ctx, quote.TenantID, quote.ID); getErr != nil {
			return getErr
		}
		return apperr.Validation("only draft quotes can be updated")
	}

	if _, err := tx.Exec(ctx, `DELETE FROM quote_items WHERE tenant_id = $1 AND quote_id = $2`, quote.TenantID, quote.ID); err != nil {
		return fmt.Errorf("delete old quote items: %w", err)
	}
	if err := insertItems(ctx, tx, items); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func insertItems(ctx context.Context, tx pgx.Tx, items []QuoteItem) error {
	itemQuery := `
		INSERT INTO quote_items (
			id, quote_id, tenant_id, service_item_id, description, quantity,
			unit_price_cents, line_total_cents, sort_order, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	for _, item := range items {
		if _, err := tx.Exec(ctx, itemQuery,
			item.ID, item.QuoteID, item.TenantID, item.ServiceItemID,
			item.Description, item.Quantity, item.UnitPriceCents,
			item.LineTotalCents, item.SortOrder, item.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert quote item: %w", err)
		}
	}
	return nil
}

// GetByID retrieves a quote scoped to the tenant.
func (r *Repository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Quote, error) {
	query := `SELECT ` + quoteColumns + ` FROM quotes WHERE tenant_id = $1 AND id = $2`

	quote, err := scanQuote(r.pool.QueryRow(ctx, query, tenantID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(quoteNotFoundMsg)
		}
		return nil, fmt.Errorf("get quote: %w", err)
	}
	return quote, nil
}

// GetItems retrieves all line items for a quote in sort order.
func (r *Repository) GetItems(ctx context.Context, tenantID, quoteID uuid.UUID) ([]QuoteItem, error) {
	query := `
		SELECT id, quote_id, tenant_id, service_item_id, description, quantity,
			unit_price_cents, line_total_cents, sort_order, created_at
		FROM quote_items WHERE tenant_id = $1 AND quote_id = $2
		ORDER BY sort_order ASC`

	rows, err := r.pool.Query(ctx, query, tenantID, quoteID)
	if err != nil {
		return nil, fmt.Errorf("query quote items: %w", err)
	}
	defer rows.Close()

	var items []QuoteItem
	for rows.Next() {
		var it QuoteItem
		if err := rows.Scan(
			&it.ID, &it.QuoteID, &it.TenantID, &it.ServiceItemID,
			&it.Description, &it.Quantity, &it.UnitPriceCents,
			&it.LineTotalCents, &it.SortOrder, &it.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan quote item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quote items: %w", err)
	}
	return items, nil
}

// List retrieves quotes for a tenant, newest first.
func (r *Repository) List(ctx context.Context, params ListParams) ([]Quote, error) {
	var clientParam interface{}
	if params.ClientID != nil {
		clientParam = *params.ClientID
	}
	var statusParam interface{}
	if params.Status != nil {
		statusParam = *params.Status
	}

	query := `SELECT ` + quoteColumns + ` FROM quotes
		WHERE tenant_id = $1
			AND ($2::uuid IS NULL OR client_id = $2)
			AND ($3::text IS NULL OR status = $3)
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, params.TenantID, clientParam, statusParam)
	if err != nil {
		return nil, fmt.Errorf("list quotes: %w", err)
	}
	defer rows.Close()

	var quotes []Quote
	for rows.Next() {
		quote, err := scanQuote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		quotes = append(quotes, *quote)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quotes: %w", err)
	}
	return quotes, nil
}

// UpdateStatusIf performs the conditional status transition for a quote. The
// write succeeds only when the current status is one of expected; otherwise
// no row is touched and (nil, nil) is returned so the caller can re-read and
// decide between idempotent success and a genuine conflict. This is the only
// code path that changes a quote's status.
func (r *Repository) UpdateStatusIf(ctx context.Context, tenantID, id uuid.UUID, newStatus string, extra StatusExtra, expected ...string) (*Quote, error) {
	query := `
		UPDATE quotes SET
			status = $3,
			sent_at = COALESCE($4, sent_at),
			approved_at = COALESCE($5, approved_at),
			declined_at = COALESCE($6, declined_at),
			scheduled_at = COALESCE($7, scheduled_at),
			updated_at = now()
		WHERE tenant_id = $1 AND id = $2 AND status = ANY($8)
		RETURNING ` + quoteColumns

	quote, err := scanQuote(r.pool.QueryRow(ctx, query,
		tenantID, id, newStatus,
		extra.SentAt, extra.ApprovedAt, extra.DeclinedAt, extra.ScheduledAt,
		expected,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("update quote status: %w", err)
	}
	return quote, nil
}

// ExpireDue flips every sent quote whose valid_until has passed to expired.
// Returns the number of quotes expired.
func (r *Repository) ExpireDue(ctx context.Context) (int64, error) {
	query := `
		UPDATE quotes SET status = 'expired', updated_at = now()
		WHERE status = 'sent' AND valid_until IS NOT NULL AND valid_until < now()`

	result, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("expire due quotes: %w", err)
	}
	return result.RowsAffected(), nil
}
