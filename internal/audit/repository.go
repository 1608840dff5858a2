package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists audit events to Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new audit repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Append inserts a single audit event row.
func (r *Repository) Append(ctx context.Context, event Event) error {
	metadata, err := json.Marshal(event.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal audit metadata: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO audit_events
			(id, tenant_id, principal_type, principal_id, event_name, subject_type, subject_id, correlation_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
	`, uuid.New(), event.TenantID, event.PrincipalType, event.PrincipalID,
		event.EventName, event.SubjectType, event.SubjectID, event.CorrelationID, metadata)
	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}
	return nil
}

// Compile-time check that Repository implements Sink.
var _ Sink = (*Repository)(nil)
