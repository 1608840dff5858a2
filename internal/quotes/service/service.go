// Package service implements quote lifecycle business logic. Every status
// change goes through the repository's conditional update; a nil result from
// that update means another writer won the race and the caller re-reads to
// decide between idempotent success and a real conflict.
package service

import (
	"context"
	"time"

	"fieldservice_backend/internal/audit"
	"fieldservice_backend/internal/events"
	"fieldservice_backend/internal/quotes/repository"
	"fieldservice_backend/internal/quotes/transport"
	"fieldservice_backend/platform/config"
	"fieldservice_backend/platform/logger"

	"github.com/google/uuid"
)

// Store is the persistence surface the quotes service depends on.
// Implemented by the quotes repository; faked in tests.
type Store interface {
	CreateWithItems(ctx context.Context, quote *repository.Quote, items []repository.QuoteItem) error
	UpdateWithItems(ctx context.Context, quote *repository.Quote, items []repository.QuoteItem) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*repository.Quote, error)
	GetItems(ctx context.Context, tenantID, quoteID uuid.UUID) ([]repository.QuoteItem, error)
	List(ctx context.Context, params repository.ListParams) ([]repository.Quote, error)
	UpdateStatusIf(ctx context.Context, tenantID, id uuid.UUID, newStatus string, extra repository.StatusExtra, expected ...string) (*repository.Quote, error)
	IssueToken(ctx context.Context, token *repository.QuoteToken) error
	GetActiveToken(ctx context.Context, tenantID, quoteID uuid.UUID) (*repository.QuoteToken, error)
	ResolveToken(ctx context.Context, token string) (*repository.QuoteToken, error)
	ExpireDue(ctx context.Context) (int64, error)
}

// Contact is the minimal client contact projection for outbound messages.
type Contact struct {
	Name  string
	Email string
}

// ContactReader resolves client contact data for outbound messages.
// Implemented by an adapter over the clients repository.
type ContactReader interface {
	GetQuoteContact(ctx context.Context, tenantID, clientID uuid.UUID) (*Contact, error)
}

// Service provides business logic for quotes.
type Service struct {
	store    Store
	contacts ContactReader
	recorder *audit.Recorder
	eventBus events.Bus
	cfg      config.PublicLinkConfig
	log      *logger.Logger
}

// New creates a new quotes service.
func New(store Store, contacts ContactReader, recorder *audit.Recorder, bus events.Bus, cfg config.PublicLinkConfig, log *logger.Logger) *Service {
	return &Service{
		store:    store,
		contacts: contacts,
		recorder: recorder,
		eventBus: bus,
		cfg:      cfg,
		log:      log,
	}
}

// GetByID retrieves a quote with its line items.
func (s *Service) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*transport.QuoteResponse, error) {
	quote, err := s.store.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	items, err := s.store.GetItems(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	return toResponse(quote, items), nil
}

// List retrieves quotes for a tenant without their line items.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID, clientID *uuid.UUID, status *string) ([]transport.QuoteResponse, error) {
	quotes, err := s.store.List(ctx, repository.ListParams{TenantID: tenantID, ClientID: clientID, Status: status})
	if err != nil {
		return nil, err
	}
	responses := make([]transport.QuoteResponse, len(quotes))
	for i := range quotes {
		responses[i] = *toResponse(&quotes[i], nil)
	}
	return responses, nil
}

// ExpireDue marks all overdue sent quotes as expired. Invoked by the
// background sweep.
func (s *Service) ExpireDue(ctx context.Context) (int64, error) {
	return s.store.ExpireDue(ctx)
}

func (s *Service) record(ctx context.Context, quote *repository.Quote, eventName, principalType, principalID string, metadata map[string]any) {
	s.recorder.Record(ctx, audit.Event{
		TenantID:      quote.TenantID,
		PrincipalType: principalType,
		PrincipalID:   principalID,
		EventName:     eventName,
		SubjectType:   "quote",
		SubjectID:     quote.ID,
		CorrelationID: quote.ID,
		Metadata:      metadata,
	})
}

func toResponse(q *repository.Quote, items []repository.QuoteItem) *transport.QuoteResponse {
	resp := &transport.QuoteResponse{
		ID:            q.ID,
		RequestID:     q.RequestID,
		ClientID:      q.ClientID,
		PropertyID:    q.PropertyID,
		Title:         q.Title,
		Status:        transport.QuoteStatus(q.Status),
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
	for _, it := range items {
		resp.Items = append(resp.Items, toItemResponse(it))
	}
	return resp
}

func toItemResponse(it repository.QuoteItem) transport.QuoteItemResponse {
	return transport.QuoteItemResponse{
		ID:             it.ID,
		ServiceItemID:  it.ServiceItemID,
		Description:    it.Description,
		Quantity:       it.Quantity,
		UnitPriceCents: it.UnitPriceCents,
		LineTotalCents: it.LineTotalCents,
		SortOrder:      it.SortOrder,
	}
}

func buildItems(tenantID, quoteID uuid.UUID, reqs []transport.QuoteItemRequest, calc Calculation, now time.Time) []repository.QuoteItem {
	items := make([]repository.QuoteItem, len(reqs))
	for i, it := range reqs {
		items[i] = repository.QuoteItem{
			ID:             uuid.New(),
			QuoteID:        quoteID,
			TenantID:       tenantID,
			ServiceItemID:  it.ServiceItemID,
			Description:    it.Description,
			Quantity:       it.Quantity,
			UnitPriceCents: it.UnitPriceCents,
			LineTotalCents: calc.LineTotalCents[i],
			SortOrder:      i,
			CreatedAt:      now,
		}
	}
	return items
}
