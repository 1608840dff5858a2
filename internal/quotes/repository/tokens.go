package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fieldservice_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// QuoteToken binds an opaque bearer token to a quote for the public link.
type QuoteToken struct {
	ID        uuid.UUID `db:"id"`
	TenantID  uuid.UUID `db:"tenant_id"`
	QuoteID   uuid.UUID `db:"quote_id"`
	Token     string    `db:"token"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

// IssueToken inserts a new public link token for a quote.
func (r *Repository) IssueToken(ctx context.Context, token *QuoteToken) error {
	query := `
		INSERT INTO quote_tokens (id, tenant_id, quote_id, token, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.pool.Exec(ctx, query,
		token.ID, token.TenantID, token.QuoteID, token.Token, token.ExpiresAt, token.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("issue quote token: %w", err)
	}
	return nil
}

// GetActiveToken returns the most recent unexpired token for a quote, or
// a not-found error when none exists.
func (r *Repository) GetActiveToken(ctx context.Context, tenantID, quoteID uuid.UUID) (*QuoteToken, error) {
	query := `
		SELECT id, tenant_id, quote_id, token, expires_at, created_at
		FROM quote_tokens
		WHERE tenant_id = $1 AND quote_id = $2 AND expires_at > now()
		ORDER BY created_at DESC
		LIMIT 1`

	var t QuoteToken
	err := r.pool.QueryRow(ctx, query, tenantID, quoteID).Scan(
		&t.ID, &t.TenantID, &t.QuoteID, &t.Token, &t.ExpiresAt, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("no active token for quote")
		}
		return nil, fmt.Errorf("get active quote token: %w", err)
	}
	return &t, nil
}

// ResolveToken looks up a bearer token. Unknown tokens are not found;
// expired tokens are gone.
func (r *Repository) ResolveToken(ctx context.Context, token string) (*QuoteToken, error) {
	query := `
		SELECT id, tenant_id, quote_id, token, expires_at, created_at
		FROM quote_tokens WHERE token = $1`

	var t QuoteToken
	err := r.pool.QueryRow(ctx, query, token).Scan(
		&t.ID, &t.TenantID, &t.QuoteID, &t.Token, &t.ExpiresAt, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(quoteNotFoundMsg)
		}
		return nil, fmt.Errorf("resolve quote token: %w", err)
	}
	if t.ExpiresAt.Before(time.Now()) {
		return nil, apperr.Gone("this link has expired")
	}
	return &t, nil
}
