package service

import (
	"context"
	"strings"
	"time"

	"fieldservice_backend/internal/visits/domain"
	"fieldservice_backend/internal/visits/repository"
	"fieldservice_backend/internal/visits/transport"
	"fieldservice_backend/platform/apperr"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Photo quota limits per visit.
const (
	maxReadyPhotos    = 20
	maxPendingUploads = 5

	// stalePendingWindow is how long an unconfirmed upload may hold one of
	// the pending slots before it is garbage-collected.
	stalePendingWindow = 15 * time.Minute

	// gcConcurrency bounds parallel storage deletes during garbage
	// collection.
	gcConcurrency = 4
)

// CreatePhoto registers an intended upload: it creates a pending photo row
// and returns a presigned upload authorization. Stale pending rows are
// garbage-collected first so abandoned uploads cannot exhaust the pending
// quota forever.
func (s *Service) CreatePhoto(ctx context.Context, tenantID, userID uuid.UUID, role string, visitID uuid.UUID, req transport.CreatePhotoRequest) (*transport.CreatePhotoResponse, error) {
	visit, err := s.photoVisit(ctx, tenantID, userID, role, visitID)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(req.FileName) == "" {
		return nil, apperr.Validation("file name is required")
	}
	if err := s.storage.ValidateContentType(req.ContentType); err != nil {
		return nil, apperr.Validation(err.Error())
	}
	if err := s.storage.ValidateFileSize(req.SizeBytes); err != nil {
		return nil, apperr.Validation(err.Error())
	}

	stale, err := s.store.DeleteStalePending(ctx, tenantID, visitID, time.Now().Add(-stalePendingWindow))
	if err != nil {
		return nil, err
	}
	s.deleteObjects(ctx, stale)

	ready, pending, err := s.store.CountPhotos(ctx, tenantID, visitID)
	if err != nil {
		return nil, err
	}
	if ready >= maxReadyPhotos {
		return nil, apperr.Validation("Maximum of 20 photos")
	}
	if pending >= maxPendingUploads {
		return nil, apperr.Validation("Too many pending uploads")
	}

	folder := tenantID.String() + "/" + visit.ID.String()
	upload, err := s.storage.GenerateUploadURL(ctx, s.bucket, folder, req.FileName, req.ContentType, req.SizeBytes)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	photo := &repository.VisitPhoto{
		ID:          uuid.New(),
		TenantID:    tenantID,
		VisitID:     visitID,
		FileKey:     upload.FileKey,
		FileName:    req.FileName,
		ContentType: req.ContentType,
		SizeBytes:   &req.SizeBytes,
		Status:      repository.PhotoStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreatePhoto(ctx, photo); err != nil {
		return nil, err
	}

	return &transport.CreatePhotoResponse{
		Photo:  toPhotoResponse(photo),
		Upload: upload,
	}, nil
}

// ConfirmPhoto flips a pending photo to ready once its upload landed. The
// 20-photo cap is re-checked atomically by the conditional write itself: of
// N siblings racing for the last slots, exactly the available slots succeed.
// Confirming an already-ready photo is an idempotent success.
func (s *Service) ConfirmPhoto(ctx context.Context, tenantID, userID uuid.UUID, role string, visitID, photoID uuid.UUID) (*transport.PhotoResponse, error) {
	if _, err := s.photoVisit(ctx, tenantID, userID, role, visitID); err != nil {
		return nil, err
	}

	photo, err := s.store.GetPhoto(ctx, tenantID, visitID, photoID)
	if err != nil {
		return nil, err
	}
	if photo.Status == repository.PhotoStatusReady {
		resp := toPhotoResponse(photo)
		return &resp, nil
	}

	confirmed, err := s.store.ConfirmPhotoIf(ctx, tenantID, visitID, photoID, maxReadyPhotos)
	if err != nil {
		return nil, err
	}
	if confirmed != nil {
		resp := toPhotoResponse(confirmed)
		return &resp, nil
	}

	// The conditional write touched nothing: either a duplicate confirm won
	// the race for this same photo, or a sibling took the last ready slot.
	current, err := s.store.GetPhoto(ctx, tenantID, visitID, photoID)
	if err != nil {
		return nil, err
	}
	if current.Status == repository.PhotoStatusReady {
		resp := toPhotoResponse(current)
		return &resp, nil
	}
	return nil, apperr.Validation("Photo quota exceeded")
}

// ListPhotos returns the visit's ready photos, each with a time-limited
// download URL.
func (s *Service) ListPhotos(ctx context.Context, tenantID, userID uuid.UUID, role string, visitID uuid.UUID) ([]transport.PhotoWithURLResponse, error) {
	if _, err := s.visitForAccess(ctx, tenantID, userID, role, visitID); err != nil {
		return nil, err
	}

	photos, err := s.store.ListReady(ctx, tenantID, visitID)
	if err != nil {
		return nil, err
	}

	responses := make([]transport.PhotoWithURLResponse, 0, len(photos))
	for i := range photos {
		url, err := s.storage.GenerateDownloadURL(ctx, s.bucket, photos[i].FileKey)
		if err != nil {
			return nil, err
		}
		responses = append(responses, transport.PhotoWithURLResponse{
			Photo:       toPhotoResponse(&photos[i]),
			DownloadURL: url.URL,
			URLExpires:  url.ExpiresAt,
		})
	}
	return responses, nil
}

// DeletePhoto removes a photo. The row deletion is authoritative; the
// storage object delete afterwards is best-effort.
func (s *Service) DeletePhoto(ctx context.Context, tenantID, userID uuid.UUID, role string, visitID, photoID uuid.UUID) error {
	if _, err := s.visitForAccess(ctx, tenantID, userID, role, visitID); err != nil {
		return err
	}

	photo, err := s.store.GetPhoto(ctx, tenantID, visitID, photoID)
	if err != nil {
		return err
	}
	if err := s.store.DeletePhoto(ctx, tenantID, visitID, photoID); err != nil {
		return err
	}

	if err := s.storage.DeleteObject(context.WithoutCancel(ctx), s.bucket, photo.FileKey); err != nil {
		s.log.SideEffectError("visit:photo_delete", err)
	}
	return nil
}

// SweepStalePhotos garbage-collects abandoned pending uploads across all
// tenants. Invoked by the background worker. Returns the number of rows
// removed.
func (s *Service) SweepStalePhotos(ctx context.Context) (int, error) {
	stale, err := s.store.DeleteAllStalePending(ctx, time.Now().Add(-stalePendingWindow))
	if err != nil {
		return 0, err
	}
	s.deleteObjects(ctx, stale)
	return len(stale), nil
}

// photoVisit loads the visit and enforces the preconditions for mutating its
// photo evidence: RBAC, and a state in which evidence makes sense.
func (s *Service) photoVisit(ctx context.Context, tenantID, userID uuid.UUID, role string, visitID uuid.UUID) (*repository.Visit, error) {
	visit, err := s.visitForAccess(ctx, tenantID, userID, role, visitID)
	if err != nil {
		return nil, err
	}
	status := domain.Status(visit.Status)
	if status == domain.StatusScheduled || status == domain.StatusCancelled {
		return nil, apperr.Validation("cannot add photos to a " + visit.Status + " visit")
	}
	return visit, nil
}

func (s *Service) visitForAccess(ctx context.Context, tenantID, userID uuid.UUID, role string, visitID uuid.UUID) (*repository.Visit, error) {
	visit, err := s.store.GetByID(ctx, tenantID, visitID)
	if err != nil {
		return nil, err
	}
	if err := checkVisitAccess(visit, userID, role, "you can only manage photos for your own assigned visits"); err != nil {
		return nil, err
	}
	return visit, nil
}

// deleteObjects removes the storage objects behind garbage-collected rows.
// Failures are logged and swallowed: the rows are already gone, and an
// orphaned object costs storage, not correctness.
func (s *Service) deleteObjects(ctx context.Context, photos []repository.VisitPhoto) {
	if len(photos) == 0 {
		return
	}
	detached := context.WithoutCancel(ctx)
	g := new(errgroup.Group)
	g.SetLimit(gcConcurrency)
	for _, p := range photos {
		key := p.FileKey
		g.Go(func() error {
			return s.storage.DeleteObject(detached, s.bucket, key)
		})
	}
	if err := g.Wait(); err != nil {
		s.log.SideEffectError("visit:photo_gc", err)
	}
}
