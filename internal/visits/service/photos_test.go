package service

import (
	"context"
	"testing"
	"time"

	"fieldservice_backend/internal/visits/domain"
	"fieldservice_backend/internal/visits/repository"
	"fieldservice_backend/internal/visits/transport"
	"fieldservice_backend/platform/apperr"

	"github.com/google/uuid"
)

func photoRequest() transport.CreatePhotoRequest {
	return transport.CreatePhotoRequest{
		FileName:    "before.jpg",
		ContentType: "image/jpeg",
		SizeBytes:   1024,
	}
}

func addPhoto(store *fakeStore, visit *repository.Visit, status string, age time.Duration) *repository.VisitPhoto {
	p := &repository.VisitPhoto{
		ID:          uuid.New(),
		TenantID:    visit.TenantID,
		VisitID:     visit.ID,
		FileKey:     visit.ID.String() + "/" + uuid.NewString(),
		FileName:    "photo.jpg",
		ContentType: "image/jpeg",
		Status:      status,
		CreatedAt:   time.Now().Add(-age),
		UpdatedAt:   time.Now().Add(-age),
	}
	store.photos[p.ID] = p
	return p
}

func TestCreatePhoto_ReturnsUploadAuthorization(t *testing.T) {
	store := newFakeStore()
	visit := newVisit(store, domain.StatusStarted, nil)
	svc := newTestService(store, nil)

	resp, err := svc.CreatePhoto(context.Background(), visit.TenantID, uuid.New(), RoleAdmin, visit.ID, photoRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Photo.Status != repository.PhotoStatusPending {
		t.Fatalf("expected pending photo, got %s", resp.Photo.Status)
	}
	if resp.Upload == nil || resp.Upload.URL == "" {
		t.Fatalf("expected upload authorization")
	}
	if len(store.photos) != 1 {
		t.Fatalf("expected 1 photo row, got %d", len(store.photos))
	}
}

func TestCreatePhoto_RejectsNonImage(t *testing.T) {
	store := newFakeStore()
	visit := newVisit(store, domain.StatusStarted, nil)
	svc := newTestService(store, nil)

	req := photoRequest()
	req.ContentType = "application/pdf"
	_, err := svc.CreatePhoto(context.Background(), visit.TenantID, uuid.New(), RoleAdmin, visit.ID, req)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreatePhoto_RejectsScheduledVisit(t *testing.T) {
	store := newFakeStore()
	visit := newVisit(store, domain.StatusScheduled, nil)
	svc := newTestService(store, nil)

	_, err := svc.CreatePhoto(context.Background(), visit.TenantID, uuid.New(), RoleAdmin, visit.ID, photoRequest())
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreatePhoto_MemberOtherVisitForbidden(t *testing.T) {
	store := newFakeStore()
	someoneElse := uuid.New()
	visit := newVisit(store, domain.StatusStarted, &someoneElse)
	svc := newTestService(store, nil)

	_, err := svc.CreatePhoto(context.Background(), visit.TenantID, uuid.New(), RoleMember, visit.ID, photoRequest())
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestCreatePhoto_ReadyQuotaFull(t *testing.T) {
	store := newFakeStore()
	visit := newVisit(store, domain.StatusStarted, nil)
	for i := 0; i < maxReadyPhotos; i++ {
		addPhoto(store, visit, repository.PhotoStatusReady, 0)
	}
	svc := newTestService(store, nil)

	_, err := svc.CreatePhoto(context.Background(), visit.TenantID, uuid.New(), RoleAdmin, visit.ID, photoRequest())
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreatePhoto_PendingQuotaFull(t *testing.T) {
	store := newFakeStore()
	visit := newVisit(store, domain.StatusStarted, nil)
	for i := 0; i < maxPendingUploads; i++ {
		addPhoto(store, visit, repository.PhotoStatusPending, 0)
	}
	svc := newTestService(store, nil)

	_, err := svc.CreatePhoto(context.Background(), visit.TenantID, uuid.New(), RoleAdmin, visit.ID, photoRequest())
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreatePhoto_StalePendingIsGarbageCollected(t *testing.T) {
	store := newFakeStore()
	visit := newVisit(store, domain.StatusStarted, nil)
	// All pending slots held, but every holder is past the staleness window.
	for i := 0; i < maxPendingUploads; i++ {
		addPhoto(store, visit, repository.PhotoStatusPending, stalePendingWindow+time.Minute)
	}
	objects := &fakeObjectStorage{}
	svc := newTestService(store, objects)

	resp, err := svc.CreatePhoto(context.Background(), visit.TenantID, uuid.New(), RoleAdmin, visit.ID, photoRequest())
	if err != nil {
		t.Fatalf("expected stale rows to be collected, got %v", err)
	}
	if resp.Photo.Status != repository.PhotoStatusPending {
		t.Fatalf("expected pending photo, got %s", resp.Photo.Status)
	}
	if len(objects.deleted) != maxPendingUploads {
		t.Fatalf("expected %d storage deletes, got %d", maxPendingUploads, len(objects.deleted))
	}
}

func TestConfirmPhoto_FlipsPendingToReady(t *testing.T) {
	store := newFakeStore()
	visit := newVisit(store, domain.StatusStarted, nil)
	photo := addPhoto(store, visit, repository.PhotoStatusPending, 0)
	svc := newTestService(store, nil)

	resp, err := svc.ConfirmPhoto(context.Background(), visit.TenantID, uuid.New(), RoleAdmin, visit.ID, photo.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != repository.PhotoStatusReady {
		t.Fatalf("expected ready, got %s", resp.Status)
	}
}

func TestConfirmPhoto_ReplayIsIdempotent(t *testing.T) {
	store := newFakeStore()
	visit := newVisit(store, domain.StatusStarted, nil)
	photo := addPhoto(store, visit, repository.PhotoStatusReady, 0)
	svc := newTestService(store, nil)

	resp, err := svc.ConfirmPhoto(context.Background(), visit.TenantID, uuid.New(), RoleAdmin, visit.ID, photo.ID)
	if err != nil {
		t.Fatalf("expected idempotent success, got %v", err)
	}
	if resp.Status != repository.PhotoStatusReady {
		t.Fatalf("expected ready, got %s", resp.Status)
	}
	if store.confirmCalls != 0 {
		t.Fatalf("replay must not attempt the conditional write, got %d", store.confirmCalls)
	}
}

func TestConfirmPhoto_QuotaRace(t *testing.T) {
	store := newFakeStore()
	visit := newVisit(store, domain.StatusStarted, nil)
	// 19 ready plus 2 pending racing for the last slot.
	for i := 0; i < maxReadyPhotos-1; i++ {
		addPhoto(store, visit, repository.PhotoStatusReady, 0)
	}
	first := addPhoto(store, visit, repository.PhotoStatusPending, 0)
	second := addPhoto(store, visit, repository.PhotoStatusPending, 0)
	svc := newTestService(store, nil)

	if _, err := svc.ConfirmPhoto(context.Background(), visit.TenantID, uuid.New(), RoleAdmin, visit.ID, first.ID); err != nil {
		t.Fatalf("first confirm should take the last slot, got %v", err)
	}
	_, err := svc.ConfirmPhoto(context.Background(), visit.TenantID, uuid.New(), RoleAdmin, visit.ID, second.ID)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected quota error for the loser, got %v", err)
	}

	ready, _, _ := store.CountPhotos(context.Background(), visit.TenantID, visit.ID)
	if ready != maxReadyPhotos {
		t.Fatalf("ready count must never exceed %d, got %d", maxReadyPhotos, ready)
	}
}

func TestConfirmPhoto_CrossVisitIsNotFound(t *testing.T) {
	store := newFakeStore()
	visit := newVisit(store, domain.StatusStarted, nil)
	other := newVisit(store, domain.StatusStarted, nil)
	other.TenantID = visit.TenantID
	photo := addPhoto(store, other, repository.PhotoStatusPending, 0)
	svc := newTestService(store, nil)

	_, err := svc.ConfirmPhoto(context.Background(), visit.TenantID, uuid.New(), RoleAdmin, visit.ID, photo.ID)
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for cross-visit confirm, got %v", err)
	}
}

func TestListPhotos_ReturnsOnlyReadyWithURLs(t *testing.T) {
	store := newFakeStore()
	visit := newVisit(store, domain.StatusStarted, nil)
	addPhoto(store, visit, repository.PhotoStatusReady, 0)
	addPhoto(store, visit, repository.PhotoStatusPending, 0)
	svc := newTestService(store, nil)

	photos, err := svc.ListPhotos(context.Background(), visit.TenantID, uuid.New(), RoleAdmin, visit.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(photos) != 1 {
		t.Fatalf("expected 1 ready photo, got %d", len(photos))
	}
	if photos[0].DownloadURL == "" {
		t.Fatalf("expected download URL")
	}
}

func TestDeletePhoto_RemovesRowAndObject(t *testing.T) {
	store := newFakeStore()
	visit := newVisit(store, domain.StatusStarted, nil)
	photo := addPhoto(store, visit, repository.PhotoStatusReady, 0)
	objects := &fakeObjectStorage{}
	svc := newTestService(store, objects)

	if err := svc.DeletePhoto(context.Background(), visit.TenantID, uuid.New(), RoleAdmin, visit.ID, photo.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.photos) != 0 {
		t.Fatalf("expected photo row removed")
	}
	if len(objects.deleted) != 1 || objects.deleted[0] != photo.FileKey {
		t.Fatalf("expected storage object %s deleted, got %v", photo.FileKey, objects.deleted)
	}
}

func TestSweepStalePhotos(t *testing.T) {
	store := newFakeStore()
	visit := newVisit(store, domain.StatusStarted, nil)
	addPhoto(store, visit, repository.PhotoStatusPending, stalePendingWindow+time.Minute)
	fresh := addPhoto(store, visit, repository.PhotoStatusPending, time.Minute)
	svc := newTestService(store, nil)

	removed, err := svc.SweepStalePhotos(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 stale row removed, got %d", removed)
	}
	if _, ok := store.photos[fresh.ID]; !ok {
		t.Fatalf("fresh pending row must survive the sweep")
	}
}
