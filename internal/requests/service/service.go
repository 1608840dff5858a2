// Package service implements service request intake and conversion into
// draft quotes.
package service

import (
	"context"
	"time"

	"fieldservice_backend/internal/audit"
	"fieldservice_backend/internal/events"
	"fieldservice_backend/internal/requests/repository"
	"fieldservice_backend/internal/requests/transport"
	"fieldservice_backend/platform/apperr"
	"fieldservice_backend/platform/logger"

	quotestransport "fieldservice_backend/internal/quotes/transport"

	"github.com/google/uuid"
)

// Store is the persistence surface the requests service depends on.
type Store interface {
	Create(ctx context.Context, request *repository.Request) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*repository.Request, error)
	List(ctx context.Context, tenantID uuid.UUID, status *string) ([]repository.Request, error)
	MarkConvertedIf(ctx context.Context, tenantID, id, quoteID uuid.UUID) (*repository.Request, error)
}

// ClientResolver folds a public submitter onto a client record, creating one
// when the email is unknown. Implemented by an adapter over the clients
// repository.
type ClientResolver interface {
	ResolveIntakeClient(ctx context.Context, tenantID uuid.UUID, name, email string, phone *string) (uuid.UUID, error)
}

// QuoteCreator creates the draft quote a request converts into. Implemented
// by the quotes service.
type QuoteCreator interface {
	Create(ctx context.Context, tenantID, userID uuid.UUID, req quotestransport.CreateQuoteRequest) (*quotestransport.QuoteResponse, error)
}

// Service provides business logic for service requests.
type Service struct {
	store    Store
	clients  ClientResolver
	quotes   QuoteCreator
	recorder *audit.Recorder
	eventBus events.Bus
	log      *logger.Logger
}

// New creates a new requests service.
func New(store Store, clients ClientResolver, quotes QuoteCreator, recorder *audit.Recorder, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		store:    store,
		clients:  clients,
		quotes:   quotes,
		recorder: recorder,
		eventBus: bus,
		log:      log,
	}
}

// Intake handles a public request submission.
func (s *Service) Intake(ctx context.Context, req transport.IntakeRequest) (*transport.RequestResponse, error) {
	clientID, err := s.clients.ResolveIntakeClient(ctx, req.TenantID, req.Name, req.Email, req.Phone)
	if err != nil {
		return nil, err
	}

	request, err := s.create(ctx, req.TenantID, clientID, nil, req.Title, req.Description, repository.SourcePublic)
	if err != nil {
		return nil, err
	}

	s.record(ctx, request, "request.received", audit.PrincipalExternal, req.Email)
	s.publishReceived(ctx, request)
	return toResponse(request), nil
}

// Create logs a service request on behalf of a known client.
func (s *Service) Create(ctx context.Context, tenantID, userID uuid.UUID, req transport.CreateRequest) (*transport.RequestResponse, error) {
	request, err := s.create(ctx, tenantID, req.ClientID, req.PropertyID, req.Title, req.Description, repository.SourceStaff)
	if err != nil {
		return nil, err
	}

	s.record(ctx, request, "request.received", audit.PrincipalUser, userID.String())
	s.publishReceived(ctx, request)
	return toResponse(request), nil
}

func (s *Service) create(ctx context.Context, tenantID, clientID uuid.UUID, propertyID *uuid.UUID, title string, description *string, source string) (*repository.Request, error) {
	now := time.Now()
	request := &repository.Request{
		ID:          uuid.New(),
		TenantID:    tenantID,
		ClientID:    clientID,
		PropertyID:  propertyID,
		Title:       title,
		Description: description,
		Source:      source,
		Status:      repository.StatusNew,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Create(ctx, request); err != nil {
		return nil, err
	}
	return request, nil
}

// GetByID retrieves a request.
func (s *Service) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*transport.RequestResponse, error) {
	request, err := s.store.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	return toResponse(request), nil
}

// List retrieves requests for a tenant.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID, status *string) ([]transport.RequestResponse, error) {
	requests, err := s.store.List(ctx, tenantID, status)
	if err != nil {
		return nil, err
	}
	responses := make([]transport.RequestResponse, len(requests))
	for i := range requests {
		responses[i] = *toResponse(&requests[i])
	}
	return responses, nil
}

// Convert turns a new request into a draft quote. The flip to converted is
// conditional on the request still being new, so two staff members
// converting simultaneously produce exactly one linked quote; the loser
// gets a conflict.
func (s *Service) Convert(ctx context.Context, tenantID, userID, requestID uuid.UUID, req transport.ConvertRequest) (*transport.ConvertResponse, error) {
	request, err := s.store.GetByID(ctx, tenantID, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != repository.StatusNew {
		return nil, apperr.Validation("request has already been converted")
	}

	title := request.Title
	if req.Title != nil {
		title = *req.Title
	}
	quote, err := s.quotes.Create(ctx, tenantID, userID, quotestransport.CreateQuoteRequest{
		ClientID:   request.ClientID,
		PropertyID: request.PropertyID,
		RequestID:  &request.ID,
		Title:      title,
		TaxRateBps: req.TaxRateBps,
		ValidUntil: req.ValidUntil,
		Items:      req.Items,
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.store.MarkConvertedIf(ctx, tenantID, requestID, quote.ID)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, apperr.Conflict("request was converted concurrently")
	}

	s.record(ctx, updated, "request.converted", audit.PrincipalUser, userID.String())
	return &transport.ConvertResponse{Request: *toResponse(updated), Quote: *quote}, nil
}

func (s *Service) record(ctx context.Context, request *repository.Request, eventName, principalType, principalID string) {
	s.recorder.Record(ctx, audit.Event{
		TenantID:      request.TenantID,
		PrincipalType: principalType,
		PrincipalID:   principalID,
		EventName:     eventName,
		SubjectType:   "request",
		SubjectID:     request.ID,
		CorrelationID: request.ID,
	})
}

func (s *Service) publishReceived(ctx context.Context, request *repository.Request) {
	if s.eventBus == nil {
		return
	}
	s.eventBus.Publish(ctx, events.RequestReceived{
		BaseEvent: events.NewBaseEvent(),
		RequestID: request.ID,
		TenantID:  request.TenantID,
		ClientID:  request.ClientID,
		Title:     request.Title,
	})
}

func toResponse(r *repository.Request) *transport.RequestResponse {
	return &transport.RequestResponse{
		ID:          r.ID,
		ClientID:    r.ClientID,
		PropertyID:  r.PropertyID,
		Title:       r.Title,
		Description: r.Description,
		Source:      r.Source,
		Status:      r.Status,
		QuoteID:     r.QuoteID,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}
