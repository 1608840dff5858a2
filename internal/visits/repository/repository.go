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

const visitNotFoundMsg = "visit not found"

// Visit is the database model for a visit.
type Visit struct {
	ID                       uuid.UUID  `db:"id"`
	TenantID                 uuid.UUID  `db:"tenant_id"`
	JobID                    uuid.UUID  `db:"job_id"`
	AssignedUserID           *uuid.UUID `db:"assigned_user_id"`
	ScheduledStart           *time.Time `db:"scheduled_start"`
	ScheduledEnd             *time.Time `db:"scheduled_end"`
	EstimatedDurationMinutes int32      `db:"estimated_duration_minutes"`
	Status                   string     `db:"status"`
	Notes                    *string    `db:"notes"`
	CompletedAt              *time.Time `db:"completed_at"`
	CreatedAt                time.Time  `db:"created_at"`
	UpdatedAt                time.Time  `db:"updated_at"`
}

// StatusExtra carries the timestamp fields a visit status transition may set.
type StatusExtra struct {
	CompletedAt *time.Time
}

// JobState is the minimal projection of a job the visit orchestrator needs
// for status derivation.
type JobState struct {
	ID     uuid.UUID
	Status string
}

// Repository provides database operations for visits and their photos.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new visits repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const visitColumns = `id, tenant_id, job_id, assigned_user_id, scheduled_start, scheduled_end,
	estimated_duration_minutes, status, notes, completed_at, created_at, updated_at`

func scanVisit(row pgx.Row) (*Visit, error) {
	var v Visit
	err := row.Scan(
		&v.ID, &v.TenantID, &v.JobID, &v.AssignedUserID, &v.ScheduledStart, &v.ScheduledEnd,
		&v.EstimatedDurationMinutes, &v.Status, &v.Notes, &v.CompletedAt, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Create inserts a new visit.
func (r *Repository) Create(ctx context.Context, visit *Visit) error {
	query := `
		INSERT INTO visits (
			id, tenant_id, job_id, assigned_user_id, scheduled_start, scheduled_end,
			estimated_duration_minutes, status, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.pool.Exec(ctx, query,
		visit.ID, visit.TenantID, visit.JobID, visit.AssignedUserID,
		visit.ScheduledStart, visit.ScheduledEnd, visit.EstimatedDurationMinutes,
		visit.Status, visit.Notes, visit.CreatedAt, visit.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create visit: %w", err)
	}
	return nil
}

// GetByID retrieves a visit scoped to the tenant.
func (r *Repository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Visit, error) {
	query := `SELECT ` + visitColumns + ` FROM visits WHERE tenant_id = $1 AND id = $2`

	visit, err := scanVisit(r.pool.QueryRow(ctx, query, tenantID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(visitNotFoundMsg)
		}
		return nil, fmt.Errorf("get visit: %w", err)
	}
	return visit, nil
}

// ListByJob retrieves all visits for a job, oldest first.
func (r *Repository) ListByJob(ctx context.Context, tenantID, jobID uuid.UUID) ([]Visit, error) {
	query := `SELECT ` + visitColumns + ` FROM visits
		WHERE tenant_id = $1 AND job_id = $2
		ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, tenantID, jobID)
	if err != nil {
		return nil, fmt.Errorf("list visits: %w", err)
	}
	defer rows.Close()

	var visits []Visit
	for rows.Next() {
		visit, err := scanVisit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan visit: %w", err)
		}
		visits = append(visits, *visit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate visits: %w", err)
	}
	return visits, nil
}

// UpdateStatusIf performs the conditional status transition for a visit.
// Returns (nil, nil) when no row matched the expected statuses; callers
// re-read to distinguish idempotent success from conflict. This is the only
// code path that changes a visit's status.
func (r *Repository) UpdateStatusIf(ctx context.Context, tenantID, id uuid.UUID, newStatus string, extra StatusExtra, expected ...string) (*Visit, error) {
	query := `
		UPDATE visits SET
			status = $3,
			completed_at = COALESCE($4, completed_at),
			updated_at = now()
		WHERE tenant_id = $1 AND id = $2 AND status = ANY($5)
		RETURNING ` + visitColumns

	visit, err := scanVisit(r.pool.QueryRow(ctx, query, tenantID, id, newStatus, extra.CompletedAt, expected))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("update visit status: %w", err)
	}
	return visit, nil
}

// UpdateSchedule sets the scheduling window and assignee for a visit.
func (r *Repository) UpdateSchedule(ctx context.Context, tenantID, id uuid.UUID, start, end *time.Time, assignedUserID *uuid.UUID) (*Visit, error) {
	query := `
		UPDATE visits SET
			scheduled_start = $3, scheduled_end = $4, assigned_user_id = $5, updated_at = now()
		WHERE tenant_id = $1 AND id = $2
		RETURNING ` + visitColumns

	visit, err := scanVisit(r.pool.QueryRow(ctx, query, tenantID, id, start, end, assignedUserID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(visitNotFoundMsg)
		}
		return nil, fmt.Errorf("update visit schedule: %w", err)
	}
	return visit, nil
}

// SetNotes replaces the notes on a visit.
func (r *Repository) SetNotes(ctx context.Context, tenantID, id uuid.UUID, notes string) (*Visit, error) {
	query := `
		UPDATE visits SET notes = $3, updated_at = now()
		WHERE tenant_id = $1 AND id = $2
		RETURNING ` + visitColumns

	visit, err := scanVisit(r.pool.QueryRow(ctx, query, tenantID, id, notes))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(visitNotFoundMsg)
		}
		return nil, fmt.Errorf("set visit notes: %w", err)
	}
	return visit, nil
}

// GetJobState retrieves the derivation projection of a job.
func (r *Repository) GetJobState(ctx context.Context, tenantID, jobID uuid.UUID) (*JobState, error) {
	var state JobState
	err := r.pool.QueryRow(ctx,
		`SELECT id, status FROM jobs WHERE tenant_id = $1 AND id = $2`,
		tenantID, jobID,
	).Scan(&state.ID, &state.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("job not found")
		}
		return nil, fmt.Errorf("get job state: %w", err)
	}
	return &state, nil
}

// SetJobStatus writes the derived job status unconditionally. The job status
// is a projection recomputed from current visit state, so the last write is
// always a full recomputation, never an increment.
func (r *Repository) SetJobStatus(ctx context.Context, tenantID, jobID uuid.UUID, status string) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE jobs SET status = $3, updated_at = now() WHERE tenant_id = $1 AND id = $2`,
		tenantID, jobID, status,
	)
	if err != nil {
		return fmt.Errorf("set job status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("job not found")
	}
	return nil
}
