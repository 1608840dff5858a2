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

const photoNotFoundMsg = "photo not found"

// Photo statuses.
const (
	PhotoStatusPending = "pending"
	PhotoStatusReady   = "ready"
)

// VisitPhoto is the database model for visit photo evidence. A photo is
// pending until the client confirms the binary upload landed in storage.
type VisitPhoto struct {
	ID          uuid.UUID `db:"id"`
	TenantID    uuid.UUID `db:"tenant_id"`
	VisitID     uuid.UUID `db:"visit_id"`
	FileKey     string    `db:"file_key"`
	FileName    string    `db:"file_name"`
	ContentType string    `db:"content_type"`
	SizeBytes   *int64    `db:"size_bytes"`
	Status      string    `db:"status"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

const photoColumns = `id, tenant_id, visit_id, file_key, file_name, content_type, size_bytes, status, created_at, updated_at`

func scanPhoto(row pgx.Row) (*VisitPhoto, error) {
	var p VisitPhoto
	err := row.Scan(
		&p.ID, &p.TenantID, &p.VisitID, &p.FileKey, &p.FileName,
		&p.ContentType, &p.SizeBytes, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePhoto inserts a pending photo row.
func (r *Repository) CreatePhoto(ctx context.Context, photo *VisitPhoto) error {
	query := `
		INSERT INTO visit_photos (id, tenant_id, visit_id, file_key, file_name, content_type, size_bytes, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.pool.Exec(ctx, query,
		photo.ID, photo.TenantID, photo.VisitID, photo.FileKey, photo.FileName,
		photo.ContentType, photo.SizeBytes, photo.Status, photo.CreatedAt, photo.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create visit photo: %w", err)
	}
	return nil
}

// GetPhoto retrieves a photo scoped to both tenant and visit, so a photo ID
// from a different visit is indistinguishable from a missing one.
func (r *Repository) GetPhoto(ctx context.Context, tenantID, visitID, photoID uuid.UUID) (*VisitPhoto, error) {
	query := `SELECT ` + photoColumns + ` FROM visit_photos
		WHERE tenant_id = $1 AND visit_id = $2 AND id = $3`

	photo, err := scanPhoto(r.pool.QueryRow(ctx, query, tenantID, visitID, photoID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(photoNotFoundMsg)
		}
		return nil, fmt.Errorf("get visit photo: %w", err)
	}
	return photo, nil
}

// ListReady retrieves all ready photos for a visit, oldest first.
func (r *Repository) ListReady(ctx context.Context, tenantID, visitID uuid.UUID) ([]VisitPhoto, error) {
	query := `SELECT ` + photoColumns + ` FROM visit_photos
		WHERE tenant_id = $1 AND visit_id = $2 AND status = 'ready'
		ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, tenantID, visitID)
	if err != nil {
		return nil, fmt.Errorf("list ready photos: %w", err)
	}
	defer rows.Close()

	var photos []VisitPhoto
	for rows.Next() {
		photo, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("scan visit photo: %w", err)
		}
		photos = append(photos, *photo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate visit photos: %w", err)
	}
	return photos, nil
}

// CountPhotos returns the ready and pending counts for a visit in one query.
func (r *Repository) CountPhotos(ctx context.Context, tenantID, visitID uuid.UUID) (ready, pending int, err error) {
	query := `
		SELECT
			count(*) FILTER (WHERE status = 'ready'),
			count(*) FILTER (WHERE status = 'pending')
		FROM visit_photos WHERE tenant_id = $1 AND visit_id = $2`

	if err := r.pool.QueryRow(ctx, query, tenantID, visitID).Scan(&ready, &pending); err != nil {
		return 0, 0, fmt.Errorf("count visit photos: %w", err)
	}
	return ready, pending, nil
}

// DeleteStalePending removes pending photo rows for a visit older than the
// cutoff, returning the deleted rows so their storage objects can be cleaned
// up best-effort.
func (r *Repository) DeleteStalePending(ctx context.Context, tenantID, visitID uuid.UUID, cutoff time.Time) ([]VisitPhoto, error) {
	query := `
		DELETE FROM visit_photos
		WHERE tenant_id = $1 AND visit_id = $2 AND status = 'pending' AND created_at < $3
		RETURNING ` + photoColumns

	return r.deleteReturning(ctx, query, tenantID, visitID, cutoff)
}

// DeleteAllStalePending removes stale pending photo rows across all tenants.
// Used by the background sweep.
func (r *Repository) DeleteAllStalePending(ctx context.Context, cutoff time.Time) ([]VisitPhoto, error) {
	query := `
		DELETE FROM visit_photos
		WHERE status = 'pending' AND created_at < $1
		RETURNING ` + photoColumns

	return r.deleteReturning(ctx, query, cutoff)
}

func (r *Repository) deleteReturning(ctx context.Context, query string, args ...any) ([]VisitPhoto, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("delete stale pending photos: %w", err)
	}
	defer rows.Close()

	var photos []VisitPhoto
	for rows.Next() {
		photo, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("scan deleted photo: %w", err)
		}
		photos = append(photos, *photo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deleted photos: %w", err)
	}
	return photos, nil
}

// ConfirmPhotoIf flips a pending photo to ready only while the visit's ready
// count is still below maxReady. The cap is re-checked inside the UPDATE's
// WHERE clause so the count check and the flip are one atomic operation; of
// N photos racing for the last slots, exactly the available slots win.
// Returns (nil, nil) when the photo was not pending or the cap was hit.
func (r *Repository) ConfirmPhotoIf(ctx context.Context, tenantID, visitID, photoID uuid.UUID, maxReady int) (*VisitPhoto, error) {
	query := `
		UPDATE visit_photos SET status = 'ready', updated_at = now()
		WHERE tenant_id = $1 AND visit_id = $2 AND id = $3 AND status = 'pending'
			AND (
				SELECT count(*) FROM visit_photos
				WHERE tenant_id = $1 AND visit_id = $2 AND status = 'ready'
			) < $4
		RETURNING ` + photoColumns

	photo, err := scanPhoto(r.pool.QueryRow(ctx, query, tenantID, visitID, photoID, maxReady))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("confirm visit photo: %w", err)
	}
	return photo, nil
}

// DeletePhoto removes a photo row. The row deletion is authoritative; the
// caller deletes the storage object afterwards, best-effort.
func (r *Repository) DeletePhoto(ctx context.Context, tenantID, visitID, photoID uuid.UUID) error {
	result, err := r.pool.Exec(ctx,
		`DELETE FROM visit_photos WHERE tenant_id = $1 AND visit_id = $2 AND id = $3`,
		tenantID, visitID, photoID,
	)
	if err != nil {
		return fmt.Errorf("delete visit photo: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(photoNotFoundMsg)
	}
	return nil
}
