package service

import (
	"context"
	"fmt"
	"time"

	"fieldservice_backend/internal/audit"
	"fieldservice_backend/internal/events"
	"fieldservice_backend/internal/visits/domain"
	"fieldservice_backend/internal/visits/repository"
	"fieldservice_backend/internal/visits/transport"
	"fieldservice_backend/platform/apperr"

	"github.com/google/uuid"
)

// Job statuses written by the derivation step.
const (
	jobStatusScheduled  = "scheduled"
	jobStatusInProgress = "in_progress"
	jobStatusCompleted  = "completed"
	jobStatusCancelled  = "cancelled"
)

// TransitionStatus moves a visit through its state machine. The write is a
// conditional update expecting the status the caller just read; losing that
// race is a conflict, not a silent overwrite. After a successful transition
// the parent job's status is re-derived from all of its visits, best-effort.
func (s *Service) TransitionStatus(ctx context.Context, tenantID, userID uuid.UUID, role string, visitID uuid.UUID, newStatus string) (*transport.VisitResponse, error) {
	visit, err := s.store.GetByID(ctx, tenantID, visitID)
	if err != nil {
		return nil, err
	}

	if err := checkVisitAccess(visit, userID, role, "you can only transition your own assigned visits"); err != nil {
		return nil, err
	}
	if role == RoleMember && newStatus == string(domain.StatusCancelled) {
		return nil, apperr.Forbidden("only owners and admins can cancel visits")
	}

	if !domain.CanTransition(domain.Status(visit.Status), domain.Status(newStatus)) {
		return nil, apperr.Validation(fmt.Sprintf("Cannot transition from '%s' to '%s'", visit.Status, newStatus))
	}

	var extra repository.StatusExtra
	if newStatus == string(domain.StatusCompleted) {
		now := time.Now()
		extra.CompletedAt = &now
	}

	updated, err := s.store.UpdateStatusIf(ctx, tenantID, visitID, newStatus, extra, visit.Status)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, apperr.Conflict("Visit status was changed concurrently")
	}

	s.record(ctx, updated, "visit."+newStatus, userID.String(), nil)

	if s.eventBus != nil {
		s.eventBus.Publish(ctx, events.VisitStatusChanged{
			BaseEvent: events.NewBaseEvent(),
			VisitID:   updated.ID,
			JobID:     updated.JobID,
			TenantID:  tenantID,
			OldStatus: visit.Status,
			NewStatus: newStatus,
		})
	}

	if err := s.deriveJobStatus(ctx, tenantID, userID, updated.JobID, newStatus); err != nil {
		s.log.SideEffectError("visit:job_derivation", err)
	}

	return toResponse(updated), nil
}

// deriveJobStatus recomputes the parent job's status from current visit
// state. The write is unconditional: the derivation is a pure function of
// the visits, so recomputing twice yields the same result and a concurrent
// overwrite is harmless.
func (s *Service) deriveJobStatus(ctx context.Context, tenantID, userID, jobID uuid.UUID, newVisitStatus string) error {
	switch newVisitStatus {
	case string(domain.StatusStarted):
		job, err := s.store.GetJobState(ctx, tenantID, jobID)
		if err != nil {
			return err
		}
		if job.Status != jobStatusScheduled {
			return nil
		}
		if err := s.store.SetJobStatus(ctx, tenantID, jobID, jobStatusInProgress); err != nil {
			return err
		}
		s.recordJob(ctx, tenantID, userID, jobID, "job."+jobStatusInProgress)
		return nil

	case string(domain.StatusCompleted), string(domain.StatusCancelled):
		visits, err := s.store.ListByJob(ctx, tenantID, jobID)
		if err != nil {
			return err
		}
		next := deriveTerminalStatus(visits)
		if next == "" {
			return nil
		}
		job, err := s.store.GetJobState(ctx, tenantID, jobID)
		if err != nil {
			return err
		}
		if job.Status == next {
			return nil
		}
		if err := s.store.SetJobStatus(ctx, tenantID, jobID, next); err != nil {
			return err
		}
		s.recordJob(ctx, tenantID, userID, jobID, "job."+next)
		return nil
	}
	return nil
}

// deriveTerminalStatus folds a job's visits into a terminal job status, or
// "" when any visit is still open. Completion wins over cancellation: one
// completed visit among terminals means the job happened.
func deriveTerminalStatus(visits []repository.Visit) string {
	anyCompleted := false
	for _, v := range visits {
		switch domain.Status(v.Status) {
		case domain.StatusCompleted:
			anyCompleted = true
		case domain.StatusCancelled:
		default:
			return ""
		}
	}
	if len(visits) == 0 {
		return ""
	}
	if anyCompleted {
		return jobStatusCompleted
	}
	return jobStatusCancelled
}

func (s *Service) recordJob(ctx context.Context, tenantID, userID, jobID uuid.UUID, eventName string) {
	s.recorder.Record(ctx, audit.Event{
		TenantID:      tenantID,
		PrincipalType: audit.PrincipalUser,
		PrincipalID:   userID.String(),
		EventName:     eventName,
		SubjectType:   "job",
		SubjectID:     jobID,
		CorrelationID: jobID,
	})
}
