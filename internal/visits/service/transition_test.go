package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"fieldservice_backend/internal/adapters/storage"
	"fieldservice_backend/internal/visits/domain"
	"fieldservice_backend/internal/visits/repository"
	"fieldservice_backend/platform/apperr"
	"fieldservice_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeStore struct {
	visits map[uuid.UUID]*repository.Visit
	job    *repository.JobState
	photos map[uuid.UUID]*repository.VisitPhoto

	casCalls     int
	confirmCalls int
	jobWrites    []string
	// beforeCAS simulates a concurrent writer committing between the
	// service's read and its conditional update.
	beforeCAS func()
	// jobStateErr forces the derivation step to fail.
	jobStateErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		visits: make(map[uuid.UUID]*repository.Visit),
		photos: make(map[uuid.UUID]*repository.VisitPhoto),
	}
}

func (f *fakeStore) Create(_ context.Context, visit *repository.Visit) error {
	v := *visit
	f.visits[v.ID] = &v
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, tenantID, id uuid.UUID) (*repository.Visit, error) {
	v, ok := f.visits[id]
	if !ok || v.TenantID != tenantID {
		return nil, apperr.NotFound("visit not found")
	}
	out := *v
	return &out, nil
}

func (f *fakeStore) ListByJob(_ context.Context, tenantID, jobID uuid.UUID) ([]repository.Visit, error) {
	var out []repository.Visit
	for _, v := range f.visits {
		if v.TenantID == tenantID && v.JobID == jobID {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateStatusIf(_ context.Context, tenantID, id uuid.UUID, newStatus string, extra repository.StatusExtra, expected ...string) (*repository.Visit, error) {
	f.casCalls++
	if f.beforeCAS != nil {
		f.beforeCAS()
		f.beforeCAS = nil
	}
	v, ok := f.visits[id]
	if !ok || v.TenantID != tenantID {
		return nil, nil
	}
	matched := false
	for _, status := range expected {
		if v.Status == status {
			matched = true
			break
		}
	}
	if !matched {
		return nil, nil
	}
	v.Status = newStatus
	if extra.CompletedAt != nil {
		v.CompletedAt = extra.CompletedAt
	}
	out := *v
	return &out, nil
}

func (f *fakeStore) UpdateSchedule(_ context.Context, tenantID, id uuid.UUID, start, end *time.Time, assignedUserID *uuid.UUID) (*repository.Visit, error) {
	v, ok := f.visits[id]
	if !ok || v.TenantID != tenantID {
		return nil, apperr.NotFound("visit not found")
	}
	v.ScheduledStart, v.ScheduledEnd, v.AssignedUserID = start, end, assignedUserID
	out := *v
	return &out, nil
}

func (f *fakeStore) SetNotes(_ context.Context, tenantID, id uuid.UUID, notes string) (*repository.Visit, error) {
	v, ok := f.visits[id]
	if !ok || v.TenantID != tenantID {
		return nil, apperr.NotFound("visit not found")
	}
	v.Notes = &notes
	out := *v
	return &out, nil
}

func (f *fakeStore) GetJobState(_ context.Context, _, jobID uuid.UUID) (*repository.JobState, error) {
	if f.jobStateErr != nil {
		return nil, f.jobStateErr
	}
	if f.job == nil || f.job.ID != jobID {
		return nil, apperr.NotFound("job not found")
	}
	j := *f.job
	return &j, nil
}

func (f *fakeStore) SetJobStatus(_ context.Context, _, jobID uuid.UUID, status string) error {
	if f.job == nil || f.job.ID != jobID {
		return apperr.NotFound("job not found")
	}
	f.job.Status = status
	f.jobWrites = append(f.jobWrites, status)
	return nil
}

func (f *fakeStore) CreatePhoto(_ context.Context, photo *repository.VisitPhoto) error {
	p := *photo
	f.photos[p.ID] = &p
	return nil
}

func (f *fakeStore) GetPhoto(_ context.Context, tenantID, visitID, photoID uuid.UUID) (*repository.VisitPhoto, error) {
	p, ok := f.photos[photoID]
	if !ok || p.TenantID != tenantID || p.VisitID != visitID {
		return nil, apperr.NotFound("photo not found")
	}
	out := *p
	return &out, nil
}

func (f *fakeStore) ListReady(_ context.Context, tenantID, visitID uuid.UUID) ([]repository.VisitPhoto, error) {
	var out []repository.VisitPhoto
	for _, p := range f.photos {
		if p.TenantID == tenantID && p.VisitID == visitID && p.Status == repository.PhotoStatusReady {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeStore) CountPhotos(_ context.Context, tenantID, visitID uuid.UUID) (int, int, error) {
	var ready, pending int
	for _, p := range f.photos {
		if p.TenantID != tenantID || p.VisitID != visitID {
			continue
		}
		switch p.Status {
		case repository.PhotoStatusReady:
			ready++
		case repository.PhotoStatusPending:
			pending++
		}
	}
	return ready, pending, nil
}

func (f *fakeStore) DeleteStalePending(_ context.Context, tenantID, visitID uuid.UUID, cutoff time.Time) ([]repository.VisitPhoto, error) {
	var out []repository.VisitPhoto
	for id, p := range f.photos {
		if p.TenantID == tenantID && p.VisitID == visitID && p.Status == repository.PhotoStatusPending && p.CreatedAt.Before(cutoff) {
			out = append(out, *p)
			delete(f.photos, id)
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteAllStalePending(_ context.Context, cutoff time.Time) ([]repository.VisitPhoto, error) {
	var out []repository.VisitPhoto
	for id, p := range f.photos {
		if p.Status == repository.PhotoStatusPending && p.CreatedAt.Before(cutoff) {
			out = append(out, *p)
			delete(f.photos, id)
		}
	}
	return out, nil
}

func (f *fakeStore) ConfirmPhotoIf(_ context.Context, tenantID, visitID, photoID uuid.UUID, maxReady int) (*repository.VisitPhoto, error) {
	f.confirmCalls++
	p, ok := f.photos[photoID]
	if !ok || p.TenantID != tenantID || p.VisitID != visitID || p.Status != repository.PhotoStatusPending {
		return nil, nil
	}
	ready := 0
	for _, other := range f.photos {
		if other.VisitID == visitID && other.Status == repository.PhotoStatusReady {
			ready++
		}
	}
	if ready >= maxReady {
		return nil, nil
	}
	p.Status = repository.PhotoStatusReady
	out := *p
	return &out, nil
}

func (f *fakeStore) DeletePhoto(_ context.Context, tenantID, visitID, photoID uuid.UUID) error {
	p, ok := f.photos[photoID]
	if !ok || p.TenantID != tenantID || p.VisitID != visitID {
		return apperr.NotFound("photo not found")
	}
	delete(f.photos, photoID)
	return nil
}

type fakeObjectStorage struct {
	deleted   []string
	uploadErr error
}

func (f *fakeObjectStorage) GenerateUploadURL(_ context.Context, _, folder, fileName, _ string, _ int64) (*storage.PresignedURL, error) {
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return &storage.PresignedURL{
		URL:       "https://storage.test/upload",
		FileKey:   folder + "/" + uuid.NewString() + "-" + fileName,
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil
}

func (f *fakeObjectStorage) GenerateDownloadURL(_ context.Context, _, fileKey string) (*storage.PresignedURL, error) {
	return &storage.PresignedURL{
		URL:       "https://storage.test/download/" + fileKey,
		FileKey:   fileKey,
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil
}

func (f *fakeObjectStorage) DeleteObject(_ context.Context, _, fileKey string) error {
	f.deleted = append(f.deleted, fileKey)
	return nil
}

func (f *fakeObjectStorage) EnsureBucketExists(context.Context, string) error { return nil }

func (f *fakeObjectStorage) ValidateContentType(contentType string) error {
	if !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		return fmt.Errorf("content type %q is not allowed", contentType)
	}
	return nil
}

func (f *fakeObjectStorage) ValidateFileSize(sizeBytes int64) error {
	if sizeBytes <= 0 {
		return errors.New("file size must be greater than 0")
	}
	return nil
}

func newVisit(store *fakeStore, status domain.Status, assignedTo *uuid.UUID) *repository.Visit {
	now := time.Now()
	visit := &repository.Visit{
		ID:                       uuid.New(),
		TenantID:                 uuid.New(),
		JobID:                    uuid.New(),
		AssignedUserID:           assignedTo,
		EstimatedDurationMinutes: 60,
		Status:                   string(status),
		CreatedAt:                now,
		UpdatedAt:                now,
	}
	store.visits[visit.ID] = visit
	store.job = &repository.JobState{ID: visit.JobID, Status: jobStatusScheduled}
	return visit
}

func newTestService(store *fakeStore, objects *fakeObjectStorage) *Service {
	if objects == nil {
		objects = &fakeObjectStorage{}
	}
	return New(store, objects, "visit-photos", nil, nil, logger.New("test"))
}

func TestTransition_AdminMovesVisit(t *testing.T) {
	store := newFakeStore()
	visit := newVisit(store, domain.StatusScheduled, nil)
	svc := newTestService(store, nil)

	resp, err := svc.TransitionStatus(context.Background(), visit.TenantID, uuid.New(), RoleAdmin, visit.ID, "en_route")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != "en_route" {
		t.Fatalf("expected en_route, got %s", resp.Status)
	}
}

func TestTransition_MemberOwnAssignedVisit(t *testing.T) {
	store := newFakeStore()
	userID := uuid.New()
	visit := newVisit(store, domain.StatusScheduled, &userID)
	svc := newTestService(store, nil)

	resp, err := svc.TransitionStatus(context.Background(), visit.TenantID, userID, RoleMember, visit.ID, "started")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != "started" {
		t.Fatalf("expected started, got %s", resp.Status)
	}
}

func TestTransition_MemberOtherVisitForbidden(t *testing.T) {
	store := newFakeStore()
	someoneElse := uuid.New()
	visit := newVisit(store, domain.StatusScheduled, &someoneElse)
	svc := newTestService(store, nil)

	_, err := svc.TransitionStatus(context.Background(), visit.TenantID, uuid.New(), RoleMember, visit.ID, "started")
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestTransition_MemberCannotCancel(t *testing.T) {
	store := newFakeStore()
	userID := uuid.New()
	visit := newVisit(store, domain.StatusScheduled, &userID)
	svc := newTestService(store, nil)

	_, err := svc.TransitionStatus(context.Background(), visit.TenantID, userID, RoleMember, visit.ID, "cancelled")
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestTransition_IllegalMove(t *testing.T) {
	store := newFakeStore()
	visit := newVisit(store, domain.StatusScheduled, nil)
	svc := newTestService(store, nil)

	_, err := svc.TransitionStatus(context.Background(), visit.TenantID, uuid.New(), RoleAdmin, visit.ID, "completed")
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if store.casCalls != 0 {
		t.Fatalf("illegal move must not reach the conditional update")
	}
}

func TestTransition_LostRaceIsConflict(t *testing.T) {
	store := newFakeStore()
	visit := newVisit(store, domain.StatusScheduled, nil)
	store.beforeCAS = func() {
		store.visits[visit.ID].Status = "cancelled"
	}
	svc := newTestService(store, nil)

	_, err := svc.TransitionStatus(context.Background(), visit.TenantID, uuid.New(), RoleAdmin, visit.ID, "en_route")
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestTransition_StartedAdvancesJob(t *testing.T) {
	store := newFakeStore()
	visit := newVisit(store, domain.StatusScheduled, nil)
	svc := newTestService(store, nil)

	if _, err := svc.TransitionStatus(context.Background(), visit.TenantID, uuid.New(), RoleAdmin, visit.ID, "started"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.job.Status != jobStatusInProgress {
		t.Fatalf("expected job in_progress, got %s", store.job.Status)
	}
}

func TestTransition_CompletingLastVisitCompletesJob(t *testing.T) {
	store := newFakeStore()
	visit := newVisit(store, domain.StatusStarted, nil)
	sibling := &repository.Visit{
		ID:       uuid.New(),
		TenantID: visit.TenantID,
		JobID:    visit.JobID,
		Status:   "cancelled",
	}
	store.visits[sibling.ID] = sibling
	store.job.Status = jobStatusInProgress
	svc := newTestService(store, nil)

	resp, err := svc.TransitionStatus(context.Background(), visit.TenantID, uuid.New(), RoleAdmin, visit.ID, "completed")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.CompletedAt == nil {
		t.Fatalf("expected completedAt to be set")
	}
	if store.job.Status != jobStatusCompleted {
		t.Fatalf("expected job completed, got %s", store.job.Status)
	}
}

func TestTransition_OpenSiblingLeavesJobUnchanged(t *testing.T) {
	store := newFakeStore()
	visit := newVisit(store, domain.StatusStarted, nil)
	sibling := &repository.Visit{
		ID:       uuid.New(),
		TenantID: visit.TenantID,
		JobID:    visit.JobID,
		Status:   "scheduled",
	}
	store.visits[sibling.ID] = sibling
	store.job.Status = jobStatusInProgress
	svc := newTestService(store, nil)

	if _, err := svc.TransitionStatus(context.Background(), visit.TenantID, uuid.New(), RoleAdmin, visit.ID, "completed"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.job.Status != jobStatusInProgress {
		t.Fatalf("expected job unchanged, got %s", store.job.Status)
	}
	if len(store.jobWrites) != 0 {
		t.Fatalf("expected no job writes, got %v", store.jobWrites)
	}
}

func TestTransition_DerivationFailureDoesNotFailTransition(t *testing.T) {
	store := newFakeStore()
	visit := newVisit(store, domain.StatusScheduled, nil)
	store.jobStateErr = errors.New("connection reset")
	svc := newTestService(store, nil)

	resp, err := svc.TransitionStatus(context.Background(), visit.TenantID, uuid.New(), RoleAdmin, visit.ID, "started")
	if err != nil {
		t.Fatalf("transition must survive derivation failure, got %v", err)
	}
	if resp.Status != "started" {
		t.Fatalf("expected started, got %s", resp.Status)
	}
}

func TestDeriveTerminalStatus(t *testing.T) {
	cases := []struct {
		name     string
		statuses []string
		want     string
	}{
		{"completed and cancelled", []string{"completed", "cancelled"}, jobStatusCompleted},
		{"all cancelled", []string{"cancelled", "cancelled"}, jobStatusCancelled},
		{"open sibling", []string{"completed", "scheduled"}, ""},
		{"single completed", []string{"completed"}, jobStatusCompleted},
		{"en_route sibling", []string{"cancelled", "en_route"}, ""},
		{"no visits", nil, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			visits := make([]repository.Visit, len(tc.statuses))
			for i, s := range tc.statuses {
				visits[i] = repository.Visit{Status: s}
			}
			if got := deriveTerminalStatus(visits); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
