// Package service implements visit scheduling, the visit status state
// machine, and photo evidence handling. Job status is never set directly:
// it is recomputed from the job's visits after each transition.
package service

import (
	"context"
	"time"

	"fieldservice_backend/internal/adapters/storage"
	"fieldservice_backend/internal/audit"
	"fieldservice_backend/internal/events"
	"fieldservice_backend/internal/visits/domain"
	"fieldservice_backend/internal/visits/repository"
	"fieldservice_backend/internal/visits/transport"
	"fieldservice_backend/platform/apperr"
	"fieldservice_backend/platform/logger"

	"github.com/google/uuid"
)

// Roles recognized by visit RBAC checks.
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Store is the persistence surface the visits service depends on.
// Implemented by the visits repository; faked in tests.
type Store interface {
	Create(ctx context.Context, visit *repository.Visit) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*repository.Visit, error)
	ListByJob(ctx context.Context, tenantID, jobID uuid.UUID) ([]repository.Visit, error)
	UpdateStatusIf(ctx context.Context, tenantID, id uuid.UUID, newStatus string, extra repository.StatusExtra, expected ...string) (*repository.Visit, error)
	UpdateSchedule(ctx context.Context, tenantID, id uuid.UUID, start, end *time.Time, assignedUserID *uuid.UUID) (*repository.Visit, error)
	SetNotes(ctx context.Context, tenantID, id uuid.UUID, notes string) (*repository.Visit, error)
	GetJobState(ctx context.Context, tenantID, jobID uuid.UUID) (*repository.JobState, error)
	SetJobStatus(ctx context.Context, tenantID, jobID uuid.UUID, status string) error

	CreatePhoto(ctx context.Context, photo *repository.VisitPhoto) error
	GetPhoto(ctx context.Context, tenantID, visitID, photoID uuid.UUID) (*repository.VisitPhoto, error)
	ListReady(ctx context.Context, tenantID, visitID uuid.UUID) ([]repository.VisitPhoto, error)
	CountPhotos(ctx context.Context, tenantID, visitID uuid.UUID) (ready, pending int, err error)
	DeleteStalePending(ctx context.Context, tenantID, visitID uuid.UUID, cutoff time.Time) ([]repository.VisitPhoto, error)
	DeleteAllStalePending(ctx context.Context, cutoff time.Time) ([]repository.VisitPhoto, error)
	ConfirmPhotoIf(ctx context.Context, tenantID, visitID, photoID uuid.UUID, maxReady int) (*repository.VisitPhoto, error)
	DeletePhoto(ctx context.Context, tenantID, visitID, photoID uuid.UUID) error
}

// Service provides business logic for visits.
type Service struct {
	store    Store
	storage  storage.Service
	bucket   string
	recorder *audit.Recorder
	eventBus events.Bus
	log      *logger.Logger
}

// New creates a new visits service.
func New(store Store, objectStorage storage.Service, bucket string, recorder *audit.Recorder, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		store:    store,
		storage:  objectStorage,
		bucket:   bucket,
		recorder: recorder,
		eventBus: bus,
		log:      log,
	}
}

// Create schedules a follow-up visit on an existing job.
func (s *Service) Create(ctx context.Context, tenantID, userID uuid.UUID, req transport.CreateVisitRequest) (*transport.VisitResponse, error) {
	if _, err := s.store.GetJobState(ctx, tenantID, req.JobID); err != nil {
		return nil, err
	}

	now := time.Now()
	visit := &repository.Visit{
		ID:                       uuid.New(),
		TenantID:                 tenantID,
		JobID:                    req.JobID,
		AssignedUserID:           req.AssignedUserID,
		ScheduledStart:           req.ScheduledStart,
		ScheduledEnd:             req.ScheduledEnd,
		EstimatedDurationMinutes: req.EstimatedDurationMinutes,
		Status:                   string(domain.StatusScheduled),
		Notes:                    req.Notes,
		CreatedAt:                now,
		UpdatedAt:                now,
	}
	if err := s.store.Create(ctx, visit); err != nil {
		return nil, err
	}

	s.record(ctx, visit, "visit.scheduled", userID.String(), nil)
	return toResponse(visit), nil
}

// GetByID retrieves a visit.
func (s *Service) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*transport.VisitResponse, error) {
	visit, err := s.store.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	return toResponse(visit), nil
}

// ListByJob retrieves all visits for a job.
func (s *Service) ListByJob(ctx context.Context, tenantID, jobID uuid.UUID) ([]transport.VisitResponse, error) {
	visits, err := s.store.ListByJob(ctx, tenantID, jobID)
	if err != nil {
		return nil, err
	}
	responses := make([]transport.VisitResponse, len(visits))
	for i := range visits {
		responses[i] = *toResponse(&visits[i])
	}
	return responses, nil
}

// UpdateSchedule reschedules or reassigns a visit. Terminal visits cannot be
// rescheduled.
func (s *Service) UpdateSchedule(ctx context.Context, tenantID, id uuid.UUID, req transport.UpdateScheduleRequest) (*transport.VisitResponse, error) {
	visit, err := s.store.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if domain.IsTerminal(domain.Status(visit.Status)) {
		return nil, apperr.Validation("cannot reschedule a " + visit.Status + " visit")
	}

	updated, err := s.store.UpdateSchedule(ctx, tenantID, id, req.ScheduledStart, req.ScheduledEnd, req.AssignedUserID)
	if err != nil {
		return nil, err
	}
	return toResponse(updated), nil
}

// SetNotes replaces the free-form notes on a visit.
func (s *Service) SetNotes(ctx context.Context, tenantID, id uuid.UUID, notes string) (*transport.VisitResponse, error) {
	updated, err := s.store.SetNotes(ctx, tenantID, id, notes)
	if err != nil {
		return nil, err
	}
	return toResponse(updated), nil
}

// checkVisitAccess enforces member-level RBAC: a member may only act on a
// visit assigned to them. Owners and admins pass unconditionally. The denial
// message is caller-supplied so the response names the operation denied.
func checkVisitAccess(visit *repository.Visit, userID uuid.UUID, role, denialMsg string) error {
	if role != RoleMember {
		return nil
	}
	if visit.AssignedUserID == nil || *visit.AssignedUserID != userID {
		return apperr.Forbidden(denialMsg)
	}
	return nil
}

func (s *Service) record(ctx context.Context, visit *repository.Visit, eventName, principalID string, metadata map[string]any) {
	s.recorder.Record(ctx, audit.Event{
		TenantID:      visit.TenantID,
		PrincipalType: audit.PrincipalUser,
		PrincipalID:   principalID,
		EventName:     eventName,
		SubjectType:   "visit",
		SubjectID:     visit.ID,
		CorrelationID: visit.JobID,
		Metadata:      metadata,
	})
}

func toResponse(v *repository.Visit) *transport.VisitResponse {
	return &transport.VisitResponse{
		ID:                       v.ID,
		JobID:                    v.JobID,
		AssignedUserID:           v.AssignedUserID,
		ScheduledStart:           v.ScheduledStart,
		ScheduledEnd:             v.ScheduledEnd,
		EstimatedDurationMinutes: v.EstimatedDurationMinutes,
		Status:                   v.Status,
		Notes:                    v.Notes,
		CompletedAt:              v.CompletedAt,
		CreatedAt:                v.CreatedAt,
		UpdatedAt:                v.UpdatedAt,
	}
}

func toPhotoResponse(p *repository.VisitPhoto) transport.PhotoResponse {
	return transport.PhotoResponse{
		ID:          p.ID,
		VisitID:     p.VisitID,
		FileName:    p.FileName,
		ContentType: p.ContentType,
		SizeBytes:   p.SizeBytes,
		Status:      p.Status,
		CreatedAt:   p.CreatedAt,
	}
}
