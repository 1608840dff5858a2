package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"fieldservice_backend/internal/audit"
	"fieldservice_backend/internal/jobs/repository"
	"fieldservice_backend/platform/apperr"
	"fieldservice_backend/platform/logger"

	quotesrepo "fieldservice_backend/internal/quotes/repository"
	visitsrepo "fieldservice_backend/internal/visits/repository"

	"github.com/google/uuid"
)

// fakeBackend plays the whole persistence surface for the orchestration: it
// is the job store, the quote reader, the duration reader and the visit
// reader at once, mimicking how the real transaction behaves including the
// unique-per-quote constraint.
type fakeBackend struct {
	quote       *quotesrepo.Quote
	items       []quotesrepo.QuoteItem
	durations   map[uuid.UUID]int32
	job         *repository.Job
	visits      []visitsrepo.Visit
	createCalls int
	// beforeCreate simulates a concurrent caller committing between this
	// caller's read and its transaction.
	beforeCreate func(f *fakeBackend)
}

func (f *fakeBackend) GetByID(_ context.Context, tenantID, id uuid.UUID) (*quotesrepo.Quote, error) {
	if f.quote == nil || f.quote.TenantID != tenantID || f.quote.ID != id {
		return nil, apperr.NotFound("quote not found")
	}
	q := *f.quote
	return &q, nil
}

func (f *fakeBackend) GetItems(_ context.Context, _, _ uuid.UUID) ([]quotesrepo.QuoteItem, error) {
	return f.items, nil
}

func (f *fakeBackend) GetEstimatedDurations(_ context.Context, _ uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]int32, error) {
	out := make(map[uuid.UUID]int32)
	for _, id := range ids {
		if d, ok := f.durations[id]; ok {
			out[id] = d
		}
	}
	return out, nil
}

func (f *fakeBackend) CreateFromQuote(_ context.Context, job *repository.Job, visit *visitsrepo.Visit, scheduledAt time.Time) (*quotesrepo.Quote, error) {
	f.createCalls++
	if f.beforeCreate != nil {
		f.beforeCreate(f)
		f.beforeCreate = nil
	}
	if f.quote.Status != "approved" {
		return nil, repository.ErrQuoteTransitioned
	}
	if f.job != nil {
		return nil, fmt.Errorf("insert job: %w", repository.ErrJobExists)
	}
	f.quote.Status = "scheduled"
	f.quote.ScheduledAt = &scheduledAt
	j := *job
	f.job = &j
	f.visits = append(f.visits, *visit)
	q := *f.quote
	return &q, nil
}

func (f *fakeBackend) GetJobByID(_ context.Context, tenantID, id uuid.UUID) (*repository.Job, error) {
	if f.job == nil || f.job.TenantID != tenantID || f.job.ID != id {
		return nil, apperr.NotFound("job not found")
	}
	j := *f.job
	return &j, nil
}

func (f *fakeBackend) GetByQuoteID(_ context.Context, tenantID, quoteID uuid.UUID) (*repository.Job, error) {
	if f.job == nil || f.job.TenantID != tenantID || f.job.QuoteID != quoteID {
		return nil, apperr.NotFound("job not found")
	}
	j := *f.job
	return &j, nil
}

func (f *fakeBackend) List(context.Context, repository.ListParams) ([]repository.Job, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeBackend) ListByJob(_ context.Context, _, jobID uuid.UUID) ([]visitsrepo.Visit, error) {
	var out []visitsrepo.Visit
	for _, v := range f.visits {
		if v.JobID == jobID {
			out = append(out, v)
		}
	}
	return out, nil
}

// jobStore adapts fakeBackend to the Store interface, whose GetByID clashes
// with the quote reader's.
type jobStore struct{ *fakeBackend }

func (s jobStore) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*repository.Job, error) {
	return s.GetJobByID(ctx, tenantID, id)
}

type memorySink struct {
	events []audit.Event
}

func (m *memorySink) Append(_ context.Context, event audit.Event) error {
	m.events = append(m.events, event)
	return nil
}

func approvedQuote() *quotesrepo.Quote {
	now := time.Now()
	approvedAt := now.Add(-time.Hour)
	return &quotesrepo.Quote{
		ID:            uuid.New(),
		TenantID:      uuid.New(),
		ClientID:      uuid.New(),
		Title:         "Gutter replacement",
		Status:        "approved",
		SubtotalCents: 50000,
		TotalCents:    50000,
		ApprovedAt:    &approvedAt,
		CreatedAt:     now.Add(-48 * time.Hour),
		UpdatedAt:     now,
	}
}

func newTestService(f *fakeBackend, sink *memorySink) *Service {
	var recorder *audit.Recorder
	if sink != nil {
		recorder = audit.NewRecorder(sink, logger.New("test"))
	}
	return New(jobStore{f}, f, f, f, recorder, nil, logger.New("test"))
}

func itemWithService(quote *quotesrepo.Quote, serviceItemID *uuid.UUID) quotesrepo.QuoteItem {
	return quotesrepo.QuoteItem{
		ID:            uuid.New(),
		QuoteID:       quote.ID,
		TenantID:      quote.TenantID,
		ServiceItemID: serviceItemID,
		Description:   "work",
		Quantity:      1,
	}
}

func TestCreateFromQuote_FreshCreation(t *testing.T) {
	quote := approvedQuote()
	svcA, svcB := uuid.New(), uuid.New()
	backend := &fakeBackend{
		quote: quote,
		items: []quotesrepo.QuoteItem{
			itemWithService(quote, &svcA),
			itemWithService(quote, &svcB),
		},
		durations: map[uuid.UUID]int32{svcA: 45, svcB: 30},
	}
	sink := &memorySink{}
	svc := newTestService(backend, sink)

	resp, err := svc.CreateFromQuote(context.Background(), quote.TenantID, uuid.New(), quote.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.AlreadyExisted {
		t.Fatalf("expected fresh creation")
	}
	if resp.SuggestedDurationMinutes != 75 {
		t.Fatalf("expected suggested duration 75, got %d", resp.SuggestedDurationMinutes)
	}
	if resp.Job.Status != "scheduled" {
		t.Fatalf("expected job scheduled, got %s", resp.Job.Status)
	}
	if resp.Visit.Status != "scheduled" {
		t.Fatalf("expected visit scheduled, got %s", resp.Visit.Status)
	}
	if resp.Visit.EstimatedDurationMinutes != 75 {
		t.Fatalf("expected visit duration 75, got %d", resp.Visit.EstimatedDurationMinutes)
	}
	if string(resp.Quote.Status) != "scheduled" {
		t.Fatalf("expected quote scheduled, got %s", resp.Quote.Status)
	}
	if resp.Quote.ScheduledAt == nil {
		t.Fatalf("expected scheduledAt to be set")
	}

	wantEvents := []string{"job.created", "visit.scheduled", "quote.scheduled"}
	if len(sink.events) != len(wantEvents) {
		t.Fatalf("expected %d audit events, got %d", len(wantEvents), len(sink.events))
	}
	for i, want := range wantEvents {
		if sink.events[i].EventName != want {
			t.Fatalf("audit event %d: expected %s, got %s", i, want, sink.events[i].EventName)
		}
	}
}

func TestCreateFromQuote_SecondCallIsIdempotent(t *testing.T) {
	quote := approvedQuote()
	backend := &fakeBackend{quote: quote}
	svc := newTestService(backend, nil)

	first, err := svc.CreateFromQuote(context.Background(), quote.TenantID, uuid.New(), quote.ID)
	if err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	second, err := svc.CreateFromQuote(context.Background(), quote.TenantID, uuid.New(), quote.ID)
	if err != nil {
		t.Fatalf("second call failed: %v", err)
	}
	if first.AlreadyExisted || !second.AlreadyExisted {
		t.Fatalf("expected alreadyExisted false then true, got %v then %v", first.AlreadyExisted, second.AlreadyExisted)
	}
	if first.Job.ID != second.Job.ID {
		t.Fatalf("job id changed between calls: %s vs %s", first.Job.ID, second.Job.ID)
	}
	if first.Visit.ID != second.Visit.ID {
		t.Fatalf("visit id changed between calls: %s vs %s", first.Visit.ID, second.Visit.ID)
	}
	if backend.createCalls != 1 {
		t.Fatalf("second call must not write, got %d transactions", backend.createCalls)
	}
}

func TestCreateFromQuote_NoDurationsDefaultsTo60(t *testing.T) {
	quote := approvedQuote()
	backend := &fakeBackend{
		quote: quote,
		items: []quotesrepo.QuoteItem{itemWithService(quote, nil)},
	}
	svc := newTestService(backend, nil)

	resp, err := svc.CreateFromQuote(context.Background(), quote.TenantID, uuid.New(), quote.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.SuggestedDurationMinutes != 60 {
		t.Fatalf("expected default duration 60, got %d", resp.SuggestedDurationMinutes)
	}
}

func TestCreateFromQuote_MixedDurationsSumOnlyKnownValues(t *testing.T) {
	quote := approvedQuote()
	svcA, svcB := uuid.New(), uuid.New()
	backend := &fakeBackend{
		quote: quote,
		items: []quotesrepo.QuoteItem{
			itemWithService(quote, &svcA),
			itemWithService(quote, &svcB),
			itemWithService(quote, nil),
		},
		// svcB exists but carries no estimated duration.
		durations: map[uuid.UUID]int32{svcA: 45},
	}
	svc := newTestService(backend, nil)

	resp, err := svc.CreateFromQuote(context.Background(), quote.TenantID, uuid.New(), quote.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.SuggestedDurationMinutes != 45 {
		t.Fatalf("expected suggested duration 45, got %d", resp.SuggestedDurationMinutes)
	}
	if resp.Visit.EstimatedDurationMinutes != 45 {
		t.Fatalf("expected visit duration 45, got %d", resp.Visit.EstimatedDurationMinutes)
	}
}

func TestCreateFromQuote_NonApprovedQuoteFails(t *testing.T) {
	quote := approvedQuote()
	quote.Status = "sent"
	backend := &fakeBackend{quote: quote}
	svc := newTestService(backend, nil)

	_, err := svc.CreateFromQuote(context.Background(), quote.TenantID, uuid.New(), quote.ID)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateFromQuote_LostRaceOnQuoteTransition(t *testing.T) {
	quote := approvedQuote()
	backend := &fakeBackend{quote: quote}
	backend.beforeCreate = func(f *fakeBackend) {
		f.quote.Status = "declined"
	}
	svc := newTestService(backend, nil)

	_, err := svc.CreateFromQuote(context.Background(), quote.TenantID, uuid.New(), quote.ID)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestCreateFromQuote_LostRaceOnUniqueConstraint(t *testing.T) {
	quote := approvedQuote()
	backend := &fakeBackend{quote: quote}
	existingJob := &repository.Job{
		ID:       uuid.New(),
		TenantID: quote.TenantID,
		QuoteID:  quote.ID,
		ClientID: quote.ClientID,
		Title:    quote.Title,
		Status:   "scheduled",
	}
	existingVisit := visitsrepo.Visit{
		ID:                       uuid.New(),
		TenantID:                 quote.TenantID,
		JobID:                    existingJob.ID,
		EstimatedDurationMinutes: 60,
		Status:                   "scheduled",
	}
	// The concurrent winner's job row lands first while the quote still
	// reads approved, so this caller passes the status check and its
	// insert trips the unique constraint, the second backstop.
	backend.beforeCreate = func(f *fakeBackend) {
		f.job = existingJob
		f.visits = append(f.visits, existingVisit)
	}
	svc := newTestService(backend, nil)

	resp, err := svc.CreateFromQuote(context.Background(), quote.TenantID, uuid.New(), quote.ID)
	if err != nil {
		t.Fatalf("expected idempotent success after lost race, got %v", err)
	}
	if !resp.AlreadyExisted {
		t.Fatalf("expected alreadyExisted after lost race")
	}
	if resp.Job.ID != existingJob.ID {
		t.Fatalf("expected winner's job id %s, got %s", existingJob.ID, resp.Job.ID)
	}
	if resp.Visit.ID != existingVisit.ID {
		t.Fatalf("expected winner's visit id %s, got %s", existingVisit.ID, resp.Visit.ID)
	}
}

func TestCreateFromQuote_ScheduledQuoteWithoutJobIsDataIntegrityError(t *testing.T) {
	quote := approvedQuote()
	quote.Status = "scheduled"
	backend := &fakeBackend{quote: quote}
	svc := newTestService(backend, nil)

	_, err := svc.CreateFromQuote(context.Background(), quote.TenantID, uuid.New(), quote.ID)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateFromQuote_UnknownQuote(t *testing.T) {
	backend := &fakeBackend{}
	svc := newTestService(backend, nil)

	_, err := svc.CreateFromQuote(context.Background(), uuid.New(), uuid.New(), uuid.New())
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
