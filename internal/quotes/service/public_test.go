package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"fieldservice_backend/internal/quotes/repository"
	"fieldservice_backend/internal/quotes/transport"
	"fieldservice_backend/platform/apperr"
	"fieldservice_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeStore struct {
	quote    *repository.Quote
	items    []repository.QuoteItem
	casCalls int
	// beforeCAS simulates a concurrent writer that commits between the
	// service's read and its conditional update.
	beforeCAS func(q *repository.Quote)
}

func (f *fakeStore) GetByID(_ context.Context, tenantID, id uuid.UUID) (*repository.Quote, error) {
	if f.quote == nil || f.quote.TenantID != tenantID || f.quote.ID != id {
		return nil, apperr.NotFound("quote not found")
	}
	q := *f.quote
	return &q, nil
}

func (f *fakeStore) GetItems(_ context.Context, _, _ uuid.UUID) ([]repository.QuoteItem, error) {
	return f.items, nil
}

func (f *fakeStore) UpdateStatusIf(_ context.Context, tenantID, id uuid.UUID, newStatus string, extra repository.StatusExtra, expected ...string) (*repository.Quote, error) {
	f.casCalls++
	if f.quote == nil || f.quote.TenantID != tenantID || f.quote.ID != id {
		return nil, nil
	}
	if f.beforeCAS != nil {
		f.beforeCAS(f.quote)
		f.beforeCAS = nil
	}
	matched := false
	for _, status := range expected {
		if f.quote.Status == status {
			matched = true
			break
		}
	}
	if !matched {
		return nil, nil
	}
	f.quote.Status = newStatus
	if extra.SentAt != nil {
		f.quote.SentAt = extra.SentAt
	}
	if extra.ApprovedAt != nil {
		f.quote.ApprovedAt = extra.ApprovedAt
	}
	if extra.DeclinedAt != nil {
		f.quote.DeclinedAt = extra.DeclinedAt
	}
	if extra.ScheduledAt != nil {
		f.quote.ScheduledAt = extra.ScheduledAt
	}
	q := *f.quote
	return &q, nil
}

func (f *fakeStore) CreateWithItems(context.Context, *repository.Quote, []repository.QuoteItem) error {
	return errors.New("not implemented")
}

func (f *fakeStore) UpdateWithItems(context.Context, *repository.Quote, []repository.QuoteItem) error {
	return errors.New("not implemented")
}

func (f *fakeStore) List(context.Context, repository.ListParams) ([]repository.Quote, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeStore) IssueToken(context.Context, *repository.QuoteToken) error {
	return errors.New("not implemented")
}

func (f *fakeStore) GetActiveToken(context.Context, uuid.UUID, uuid.UUID) (*repository.QuoteToken, error) {
	return nil, apperr.NotFound("no active token for quote")
}

func (f *fakeStore) ResolveToken(context.Context, string) (*repository.QuoteToken, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeStore) ExpireDue(context.Context) (int64, error) {
	return 0, errors.New("not implemented")
}

type fakeContacts struct{}

func (fakeContacts) GetQuoteContact(context.Context, uuid.UUID, uuid.UUID) (*Contact, error) {
	return &Contact{Name: "Pat", Email: "pat@example.com"}, nil
}

func sentQuote() *repository.Quote {
	now := time.Now()
	sentAt := now.Add(-time.Hour)
	return &repository.Quote{
		ID:            uuid.New(),
		TenantID:      uuid.New(),
		ClientID:      uuid.New(),
		Title:         "Spring cleanup",
		Status:        string(transport.QuoteStatusSent),
		SubtotalCents: 10000,
		TaxCents:      2100,
		TotalCents:    12100,
		SentAt:        &sentAt,
		CreatedAt:     now.Add(-2 * time.Hour),
		UpdatedAt:     now,
	}
}

func newTestService(store *fakeStore) *Service {
	return New(store, fakeContacts{}, nil, nil, nil, logger.New("test"))
}

func TestRespond_ApproveSentQuote(t *testing.T) {
	store := &fakeStore{quote: sentQuote()}
	svc := newTestService(store)

	resp, err := svc.Respond(context.Background(), store.quote.TenantID, store.quote.ID, uuid.New(), transport.RespondActionApprove)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != transport.QuoteStatusApproved {
		t.Fatalf("expected status approved, got %s", resp.Status)
	}
	if resp.ApprovedAt == nil {
		t.Fatalf("expected approvedAt to be set")
	}
	if store.casCalls != 1 {
		t.Fatalf("expected 1 conditional update, got %d", store.casCalls)
	}
}

func TestRespond_ApproveReplayIsIdempotent(t *testing.T) {
	store := &fakeStore{quote: sentQuote()}
	svc := newTestService(store)
	tenantID, quoteID := store.quote.TenantID, store.quote.ID

	first, err := svc.Respond(context.Background(), tenantID, quoteID, uuid.New(), transport.RespondActionApprove)
	if err != nil {
		t.Fatalf("first approve failed: %v", err)
	}

	second, err := svc.Respond(context.Background(), tenantID, quoteID, uuid.New(), transport.RespondActionApprove)
	if err != nil {
		t.Fatalf("replayed approve failed: %v", err)
	}
	if second.Status != transport.QuoteStatusApproved {
		t.Fatalf("expected status approved on replay, got %s", second.Status)
	}
	if !first.ApprovedAt.Equal(*second.ApprovedAt) {
		t.Fatalf("approvedAt changed on replay: %v vs %v", first.ApprovedAt, second.ApprovedAt)
	}
	if store.casCalls != 1 {
		t.Fatalf("replay must not write, got %d conditional updates", store.casCalls)
	}
}

func TestRespond_ApproveScheduledQuoteIsIdempotent(t *testing.T) {
	store := &fakeStore{quote: sentQuote()}
	store.quote.Status = string(transport.QuoteStatusScheduled)
	approvedAt := time.Now().Add(-time.Minute)
	store.quote.ApprovedAt = &approvedAt
	svc := newTestService(store)

	resp, err := svc.Respond(context.Background(), store.quote.TenantID, store.quote.ID, uuid.New(), transport.RespondActionApprove)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != transport.QuoteStatusScheduled {
		t.Fatalf("expected status scheduled, got %s", resp.Status)
	}
	if store.casCalls != 0 {
		t.Fatalf("expected no conditional update, got %d", store.casCalls)
	}
}

func TestRespond_OppositeActionFails(t *testing.T) {
	store := &fakeStore{quote: sentQuote()}
	svc := newTestService(store)
	tenantID, quoteID := store.quote.TenantID, store.quote.ID

	if _, err := svc.Respond(context.Background(), tenantID, quoteID, uuid.New(), transport.RespondActionApprove); err != nil {
		t.Fatalf("approve failed: %v", err)
	}

	_, err := svc.Respond(context.Background(), tenantID, quoteID, uuid.New(), transport.RespondActionDecline)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRespond_DraftQuoteFails(t *testing.T) {
	store := &fakeStore{quote: sentQuote()}
	store.quote.Status = string(transport.QuoteStatusDraft)
	svc := newTestService(store)

	_, err := svc.Respond(context.Background(), store.quote.TenantID, store.quote.ID, uuid.New(), transport.RespondActionApprove)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRespond_LostRaceToSameAction(t *testing.T) {
	store := &fakeStore{quote: sentQuote()}
	store.beforeCAS = func(q *repository.Quote) {
		now := time.Now()
		q.Status = string(transport.QuoteStatusApproved)
		q.ApprovedAt = &now
	}
	svc := newTestService(store)

	resp, err := svc.Respond(context.Background(), store.quote.TenantID, store.quote.ID, uuid.New(), transport.RespondActionApprove)
	if err != nil {
		t.Fatalf("expected idempotent success after lost race, got %v", err)
	}
	if resp.Status != transport.QuoteStatusApproved {
		t.Fatalf("expected status approved, got %s", resp.Status)
	}
}

func TestRespond_LostRaceToOppositeAction(t *testing.T) {
	store := &fakeStore{quote: sentQuote()}
	store.beforeCAS = func(q *repository.Quote) {
		now := time.Now()
		q.Status = string(transport.QuoteStatusDeclined)
		q.DeclinedAt = &now
	}
	svc := newTestService(store)

	_, err := svc.Respond(context.Background(), store.quote.TenantID, store.quote.ID, uuid.New(), transport.RespondActionApprove)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error after lost race, got %v", err)
	}
}

func TestRespond_UnknownQuote(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store)

	_, err := svc.Respond(context.Background(), uuid.New(), uuid.New(), uuid.New(), transport.RespondActionApprove)
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
