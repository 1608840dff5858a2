// Package service implements job creation and lookup. A job is only ever
// created from an approved quote, atomically with the quote's transition to
// scheduled and the job's first visit.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fieldservice_backend/internal/audit"
	"fieldservice_backend/internal/events"
	"fieldservice_backend/internal/jobs/repository"
	"fieldservice_backend/internal/jobs/transport"
	visitstransport "fieldservice_backend/internal/visits/transport"
	"fieldservice_backend/platform/apperr"
	"fieldservice_backend/platform/logger"

	quotesrepo "fieldservice_backend/internal/quotes/repository"
	quotestransport "fieldservice_backend/internal/quotes/transport"
	visitsdomain "fieldservice_backend/internal/visits/domain"
	visitsrepo "fieldservice_backend/internal/visits/repository"

	"github.com/google/uuid"
)

// defaultVisitDurationMinutes is the fallback when no line item carries a
// service-item duration.
const defaultVisitDurationMinutes = 60

// Store is the persistence surface the jobs service depends on.
// Implemented by the jobs repository; faked in tests.
type Store interface {
	CreateFromQuote(ctx context.Context, job *repository.Job, visit *visitsrepo.Visit, scheduledAt time.Time) (*quotesrepo.Quote, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*repository.Job, error)
	GetByQuoteID(ctx context.Context, tenantID, quoteID uuid.UUID) (*repository.Job, error)
	List(ctx context.Context, params repository.ListParams) ([]repository.Job, error)
}

// QuoteReader loads quote state for the orchestration.
type QuoteReader interface {
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*quotesrepo.Quote, error)
	GetItems(ctx context.Context, tenantID, quoteID uuid.UUID) ([]quotesrepo.QuoteItem, error)
}

// DurationReader resolves service-item durations for the visit suggestion.
type DurationReader interface {
	GetEstimatedDurations(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]int32, error)
}

// VisitReader loads the visits belonging to a job.
type VisitReader interface {
	ListByJob(ctx context.Context, tenantID, jobID uuid.UUID) ([]visitsrepo.Visit, error)
}

// Service provides business logic for jobs.
type Service struct {
	store     Store
	quotes    QuoteReader
	durations DurationReader
	visits    VisitReader
	recorder  *audit.Recorder
	eventBus  events.Bus
	log       *logger.Logger
}

// New creates a new jobs service.
func New(store Store, quotes QuoteReader, durations DurationReader, visits VisitReader, recorder *audit.Recorder, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		store:     store,
		quotes:    quotes,
		durations: durations,
		visits:    visits,
		recorder:  recorder,
		eventBus:  bus,
		log:       log,
	}
}

// CreateFromQuote confirms an approved quote into a job with its first visit.
// The operation is idempotent: a repeat call for an already-confirmed quote
// returns the existing job and visit with AlreadyExisted set, whether the
// first call happened minutes ago or is racing this one right now. Two
// independent guards make the concurrent case safe without locks: the
// conditional quote transition and the unique job-per-quote constraint.
func (s *Service) CreateFromQuote(ctx context.Context, tenantID, userID, quoteID uuid.UUID) (*transport.CreateFromQuoteResponse, error) {
	quote, err := s.quotes.GetByID(ctx, tenantID, quoteID)
	if err != nil {
		return nil, err
	}

	if quote.Status == string(transport.StatusScheduled) {
		return s.existingResult(ctx, tenantID, quote)
	}
	if quote.Status != string(quotestransport.QuoteStatusApproved) {
		return nil, apperr.Validation(fmt.Sprintf("Cannot create job from quote with status %q", quote.Status))
	}

	suggested, err := s.suggestDuration(ctx, tenantID, quoteID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	job := &repository.Job{
		ID:         uuid.New(),
		TenantID:   tenantID,
		QuoteID:    quote.ID,
		ClientID:   quote.ClientID,
		PropertyID: quote.PropertyID,
		Title:      quote.Title,
		Status:     string(transport.StatusScheduled),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	visit := &visitsrepo.Visit{
		ID:                       uuid.New(),
		TenantID:                 tenantID,
		JobID:                    job.ID,
		EstimatedDurationMinutes: suggested,
		Status:                   string(visitsdomain.StatusScheduled),
		CreatedAt:                now,
		UpdatedAt:                now,
	}

	updatedQuote, err := s.store.CreateFromQuote(ctx, job, visit, now)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrQuoteTransitioned):
		return nil, apperr.Conflict("Quote has already been transitioned")
	case errors.Is(err, repository.ErrJobExists):
		// A concurrent caller committed first. Fold into the idempotent
		// path; if the quote didn't actually produce a job the violation
		// was something else and the original error stands.
		existing, getErr := s.store.GetByQuoteID(ctx, tenantID, quoteID)
		if getErr != nil {
			if apperr.Is(getErr, apperr.KindNotFound) {
				return nil, err
			}
			return nil, getErr
		}
		current, getErr := s.quotes.GetByID(ctx, tenantID, quoteID)
		if getErr != nil {
			return nil, getErr
		}
		return s.resultForExisting(ctx, tenantID, existing, current)
	default:
		return nil, err
	}

	principalID := userID.String()
	s.record(ctx, tenantID, principalID, "job.created", "job", job.ID, quote.ID, map[string]any{"quoteId": quote.ID.String()})
	s.record(ctx, tenantID, principalID, "visit.scheduled", "visit", visit.ID, quote.ID, map[string]any{"jobId": job.ID.String()})
	s.record(ctx, tenantID, principalID, "quote.scheduled", "quote", quote.ID, quote.ID, nil)

	if s.eventBus != nil {
		s.eventBus.Publish(ctx, events.JobCreated{
			BaseEvent:      events.NewBaseEvent(),
			JobID:          job.ID,
			QuoteID:        quote.ID,
			VisitID:        visit.ID,
			TenantID:       tenantID,
			ClientID:       quote.ClientID,
			Title:          job.Title,
			ScheduledStart: visit.ScheduledStart,
		})
	}

	return &transport.CreateFromQuoteResponse{
		Job:                      toResponse(job),
		Visit:                    toVisitResponse(visit),
		Quote:                    quoteToResponse(updatedQuote),
		SuggestedDurationMinutes: suggested,
		AlreadyExisted:           false,
	}, nil
}

// existingResult handles a quote that is already scheduled: the job must
// exist, and the call short-circuits to it without writing anything.
func (s *Service) existingResult(ctx context.Context, tenantID uuid.UUID, quote *quotesrepo.Quote) (*transport.CreateFromQuoteResponse, error) {
	job, err := s.store.GetByQuoteID(ctx, tenantID, quote.ID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.Validation("scheduled quote has no job")
		}
		return nil, err
	}
	return s.resultForExisting(ctx, tenantID, job, quote)
}

func (s *Service) resultForExisting(ctx context.Context, tenantID uuid.UUID, job *repository.Job, quote *quotesrepo.Quote) (*transport.CreateFromQuoteResponse, error) {
	visits, err := s.visits.ListByJob(ctx, tenantID, job.ID)
	if err != nil {
		return nil, err
	}
	resp := &transport.CreateFromQuoteResponse{
		Job:            toResponse(job),
		Quote:          quoteToResponse(quote),
		AlreadyExisted: true,
	}
	if len(visits) > 0 {
		resp.Visit = toVisitResponse(&visits[0])
		resp.SuggestedDurationMinutes = visits[0].EstimatedDurationMinutes
	}
	return resp, nil
}

// suggestDuration sums the estimated durations of every line item's service
// item. Line items without a service item reference, and service items
// without a duration, contribute nothing. A zero sum falls back to the
// default.
func (s *Service) suggestDuration(ctx context.Context, tenantID, quoteID uuid.UUID) (int32, error) {
	items, err := s.quotes.GetItems(ctx, tenantID, quoteID)
	if err != nil {
		return 0, err
	}

	var ids []uuid.UUID
	for _, it := range items {
		if it.ServiceItemID != nil {
			ids = append(ids, *it.ServiceItemID)
		}
	}

	var total int32
	if len(ids) > 0 {
		durations, err := s.durations.GetEstimatedDurations(ctx, tenantID, ids)
		if err != nil {
			return 0, err
		}
		for _, id := range ids {
			total += durations[id]
		}
	}
	if total == 0 {
		total = defaultVisitDurationMinutes
	}
	return total, nil
}

// GetByID retrieves a job with its visits.
func (s *Service) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*transport.JobDetailResponse, error) {
	job, err := s.store.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	visits, err := s.visits.ListByJob(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	detail := &transport.JobDetailResponse{Job: toResponse(job)}
	for i := range visits {
		detail.Visits = append(detail.Visits, toVisitResponse(&visits[i]))
	}
	return detail, nil
}

// List retrieves jobs for a tenant.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID, clientID *uuid.UUID, status *string) ([]transport.JobResponse, error) {
	jobs, err := s.store.List(ctx, repository.ListParams{TenantID: tenantID, ClientID: clientID, Status: status})
	if err != nil {
		return nil, err
	}
	responses := make([]transport.JobResponse, len(jobs))
	for i := range jobs {
		responses[i] = toResponse(&jobs[i])
	}
	return responses, nil
}

func (s *Service) record(ctx context.Context, tenantID uuid.UUID, principalID, eventName, subjectType string, subjectID, correlationID uuid.UUID, metadata map[string]any) {
	s.recorder.Record(ctx, audit.Event{
		TenantID:      tenantID,
		PrincipalType: audit.PrincipalUser,
		PrincipalID:   principalID,
		EventName:     eventName,
		SubjectType:   subjectType,
		SubjectID:     subjectID,
		CorrelationID: correlationID,
		Metadata:      metadata,
	})
}

func toResponse(j *repository.Job) transport.JobResponse {
	return transport.JobResponse{
		ID:         j.ID,
		QuoteID:    j.QuoteID,
		ClientID:   j.ClientID,
		PropertyID: j.PropertyID,
		Title:      j.Title,
		Status:     transport.JobStatus(j.Status),
		CreatedAt:  j.CreatedAt,
		UpdatedAt:  j.UpdatedAt,
	}
}

func toVisitResponse(v *visitsrepo.Visit) visitstransport.VisitResponse {
	return visitstransport.VisitResponse{
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

func quoteToResponse(q *quotesrepo.Quote) quotestransport.QuoteResponse {
	return quotestransport.QuoteResponse{
		ID:            q.ID,
		RequestID:     q.RequestID,
		ClientID:      q.ClientID,
		PropertyID:    q.PropertyID,
		Title:         q.Title,
		Status:        quotestransport.QuoteStatus(q.Status),
		TaxRateBps:    q.TaxRateBps,
		SubtotalCents: q.SubtotalCents,
		TaxCents:      q.TaxCents,
		TotalCents:    q.TotalCents,
		ValidUntil:    q.ValidUntil,
		SentAt:        q.SentAt,
		ApprovedAt:    q.ApprovedAt,
		DeclinedAt:    q.DeclinedAt,
		ScheduledAt:   q.ScheduledAt,
		CreatedAt:     q.CreatedAt,
		UpdatedAt:     q.UpdatedAt,
	}
}
