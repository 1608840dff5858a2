package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fieldservice_backend/platform/apperr"

	quotesrepo "fieldservice_backend/internal/quotes/repository"
	visitsrepo "fieldservice_backend/internal/visits/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Sentinel errors for the create-from-quote transaction. Callers branch on
// these to distinguish a lost race from an infrastructure failure.
var (
	// ErrQuoteTransitioned is returned when the quote left the approved
	// status between the caller's read and the transactional flip.
	ErrQuoteTransitioned = errors.New("quote has already been transitioned")

	// ErrJobExists is returned when the unique (tenant_id, quote_id)
	// constraint rejects the insert, meaning a concurrent caller created
	// the job first.
	ErrJobExists = errors.New("job already exists for quote")
)

const jobNotFoundMsg = "job not found"

// uniqueQuoteConstraint is the unique index on jobs (tenant_id, quote_id).
const uniqueQuoteConstraint = "jobs_tenant_quote_key"

// Job is the database model for a confirmed engagement. Every job originates
// from exactly one quote.
type Job struct {
	ID         uuid.UUID  `db:"id"`
	TenantID   uuid.UUID  `db:"tenant_id"`
	QuoteID    uuid.UUID  `db:"quote_id"`
	ClientID   uuid.UUID  `db:"client_id"`
	PropertyID *uuid.UUID `db:"property_id"`
	Title      string     `db:"title"`
	Status     string     `db:"status"`
	CreatedAt  time.Time  `db:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at"`
}

// ListParams contains parameters for listing jobs.
type ListParams struct {
	TenantID uuid.UUID
	ClientID *uuid.UUID
	Status   *string
}

// Repository provides database operations for jobs.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new jobs repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const jobColumns = `id, tenant_id, quote_id, client_id, property_id, title, status, created_at, updated_at`

func scanJob(row pgx.Row) (*Job, error) {
	var j Job
	err := row.Scan(
		&j.ID, &j.TenantID, &j.QuoteID, &j.ClientID, &j.PropertyID,
		&j.Title, &j.Status, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// CreateFromQuote performs the three-way write that confirms a quote: flip
// the quote approved -> scheduled, insert the job, insert its first visit,
// all in one transaction. The conditional quote update and the unique
// (tenant_id, quote_id) index are independent backstops against two callers
// confirming the same quote; one of them always catches the duplicate.
// Returns the quote as updated inside the transaction.
func (r *Repository) CreateFromQuote(ctx context.Context, job *Job, visit *visitsrepo.Visit, scheduledAt time.Time) (*quotesrepo.Quote, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	quoteQuery := `
		UPDATE quotes SET status = 'scheduled', scheduled_at = $3, updated_at = now()
		WHERE tenant_id = $1 AND id = $2 AND status = 'approved'
		RETURNING id, tenant_id, request_id, client_id, property_id, title, status, tax_rate_bps,
			subtotal_cents, tax_cents, total_cents, valid_until,
			sent_at, approved_at, declined_at, scheduled_at, created_at, updated_at`

	var quote quotesrepo.Quote
	err = tx.QueryRow(ctx, quoteQuery, job.TenantID, job.QuoteID, scheduledAt).Scan(
		&quote.ID, &quote.TenantID, &quote.RequestID, &quote.ClientID, &quote.PropertyID,
		&quote.Title, &quote.Status, &quote.TaxRateBps,
		&quote.SubtotalCents, &quote.TaxCents, &quote.TotalCents, &quote.ValidUntil,
		&quote.SentAt, &quote.ApprovedAt, &quote.DeclinedAt, &quote.ScheduledAt,
		&quote.CreatedAt, &quote.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQuoteTransitioned
		}
		return nil, fmt.Errorf("transition quote to scheduled: %w", err)
	}

	jobQuery := `
		INSERT INTO jobs (id, tenant_id, quote_id, client_id, property_id, title, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	if _, err := tx.Exec(ctx, jobQuery,
		job.ID, job.TenantID, job.QuoteID, job.ClientID, job.PropertyID,
		job.Title, job.Status, job.CreatedAt, job.UpdatedAt,
	); err != nil {
		if isUniqueQuoteViolation(err) {
			return nil, fmt.Errorf("insert job: %w", ErrJobExists)
		}
		return nil, fmt.Errorf("insert job: %w", err)
	}

	visitQuery := `
		INSERT INTO visits (
			id, tenant_id, job_id, assigned_user_id, scheduled_start, scheduled_end,
			estimated_duration_minutes, status, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	if _, err := tx.Exec(ctx, visitQuery,
		visit.ID, visit.TenantID, visit.JobID, visit.AssignedUserID,
		visit.ScheduledStart, visit.ScheduledEnd, visit.EstimatedDurationMinutes,
		visit.Status, visit.Notes, visit.CreatedAt, visit.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("insert first visit: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		if isUniqueQuoteViolation(err) {
			return nil, fmt.Errorf("commit job creation: %w", ErrJobExists)
		}
		return nil, fmt.Errorf("commit job creation: %w", err)
	}
	return &quote, nil
}

func isUniqueQuoteViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == uniqueQuoteConstraint
}

// GetByID retrieves a job scoped to the tenant.
func (r *Repository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE tenant_id = $1 AND id = $2`

	job, err := scanJob(r.pool.QueryRow(ctx, query, tenantID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(jobNotFoundMsg)
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// GetByQuoteID retrieves the job created from the given quote, if any.
func (r *Repository) GetByQuoteID(ctx context.Context, tenantID, quoteID uuid.UUID) (*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE tenant_id = $1 AND quote_id = $2`

	job, err := scanJob(r.pool.QueryRow(ctx, query, tenantID, quoteID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(jobNotFoundMsg)
		}
		return nil, fmt.Errorf("get job by quote: %w", err)
	}
	return job, nil
}

// List retrieves jobs for a tenant, newest first.
func (r *Repository) List(ctx context.Context, params ListParams) ([]Job, error) {
	var clientParam interface{}
	if params.ClientID != nil {
		clientParam = *params.ClientID
	}
	var statusParam interface{}
	if params.Status != nil {
		statusParam = *params.Status
	}

	query := `SELECT ` + jobColumns + ` FROM jobs
		WHERE tenant_id = $1
			AND ($2::uuid IS NULL OR client_id = $2)
			AND ($3::text IS NULL OR status = $3)
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, params.TenantID, clientParam, statusParam)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}
