package service

import (
	"context"
	"testing"
	"time"

	"fieldservice_backend/internal/audit"
	"fieldservice_backend/internal/requests/repository"
	"fieldservice_backend/internal/requests/transport"
	"fieldservice_backend/platform/apperr"
	"fieldservice_backend/platform/logger"

	quotestransport "fieldservice_backend/internal/quotes/transport"

	"github.com/google/uuid"
)

type fakeStore struct {
	requests      map[uuid.UUID]*repository.Request
	beforeConvert func(*fakeStore)
	convertCalls  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{requests: make(map[uuid.UUID]*repository.Request)}
}

func (f *fakeStore) Create(_ context.Context, request *repository.Request) error {
	cp := *request
	f.requests[request.ID] = &cp
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, tenantID, id uuid.UUID) (*repository.Request, error) {
	r, ok := f.requests[id]
	if !ok || r.TenantID != tenantID {
		return nil, apperr.NotFound("request not found")
	}
	cp := *r
	return &cp, nil
}

func (f *fakeStore) List(_ context.Context, tenantID uuid.UUID, status *string) ([]repository.Request, error) {
	var out []repository.Request
	for _, r := range f.requests {
		if r.TenantID != tenantID {
			continue
		}
		if status != nil && r.Status != *status {
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeStore) MarkConvertedIf(_ context.Context, tenantID, id, quoteID uuid.UUID) (*repository.Request, error) {
	f.convertCalls++
	if f.beforeConvert != nil {
		hook := f.beforeConvert
		f.beforeConvert = nil
		hook(f)
	}
	r, ok := f.requests[id]
	if !ok || r.TenantID != tenantID || r.Status != repository.StatusNew {
		return nil, nil
	}
	r.Status = repository.StatusConverted
	r.QuoteID = &quoteID
	r.UpdatedAt = time.Now()
	cp := *r
	return &cp, nil
}

type fakeClients struct {
	known    map[string]uuid.UUID
	resolved []string
}

func (f *fakeClients) ResolveIntakeClient(_ context.Context, _ uuid.UUID, _, email string, _ *string) (uuid.UUID, error) {
	f.resolved = append(f.resolved, email)
	if id, ok := f.known[email]; ok {
		return id, nil
	}
	id := uuid.New()
	if f.known == nil {
		f.known = make(map[string]uuid.UUID)
	}
	f.known[email] = id
	return id, nil
}

type fakeQuotes struct {
	created []quotestransport.CreateQuoteRequest
	err     error
}

func (f *fakeQuotes) Create(_ context.Context, _, _ uuid.UUID, req quotestransport.CreateQuoteRequest) (*quotestransport.QuoteResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, req)
	return &quotestransport.QuoteResponse{
		ID:        uuid.New(),
		RequestID: req.RequestID,
		ClientID:  req.ClientID,
		Title:     req.Title,
		Status:    quotestransport.QuoteStatusDraft,
	}, nil
}

type memorySink struct {
	events []audit.Event
}

func (m *memorySink) Append(_ context.Context, e audit.Event) error {
	m.events = append(m.events, e)
	return nil
}

func newTestService(store *fakeStore, clients *fakeClients, quotes *fakeQuotes, sink *memorySink) *Service {
	log := logger.New("test")
	var recorder *audit.Recorder
	if sink != nil {
		recorder = audit.NewRecorder(sink, log)
	}
	return New(store, clients, quotes, recorder, nil, log)
}

func seedRequest(store *fakeStore, tenantID uuid.UUID, status string) *repository.Request {
	desc := "leaking tap in the kitchen"
	r := &repository.Request{
		ID:          uuid.New(),
		TenantID:    tenantID,
		ClientID:    uuid.New(),
		Title:       "Tap repair",
		Description: &desc,
		Source:      repository.SourcePublic,
		Status:      status,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	store.requests[r.ID] = r
	return r
}

func TestIntake_CreatesRequestForNewSubmitter(t *testing.T) {
	store := newFakeStore()
	clients := &fakeClients{}
	sink := &memorySink{}
	svc := newTestService(store, clients, &fakeQuotes{}, sink)
	tenantID := uuid.New()

	result, err := svc.Intake(context.Background(), transport.IntakeRequest{
		TenantID: tenantID,
		Name:     "Jamie Vos",
		Email:    "jamie@example.com",
		Title:    "Gutter cleaning",
	})
	if err != nil {
		t.Fatalf("Intake: %v", err)
	}
	if result.Source != repository.SourcePublic {
		t.Fatalf("source = %q, want %q", result.Source, repository.SourcePublic)
	}
	if result.Status != repository.StatusNew {
		t.Fatalf("status = %q, want %q", result.Status, repository.StatusNew)
	}
	if result.ClientID != clients.known["jamie@example.com"] {
		t.Fatalf("client ID not taken from resolver")
	}
	if len(sink.events) != 1 || sink.events[0].EventName != "request.received" {
		t.Fatalf("audit events = %+v, want one request.received", sink.events)
	}
	if sink.events[0].PrincipalType != audit.PrincipalExternal {
		t.Fatalf("principal type = %q, want external", sink.events[0].PrincipalType)
	}
}

func TestIntake_RepeatSubmitterReusesClient(t *testing.T) {
	store := newFakeStore()
	existing := uuid.New()
	clients := &fakeClients{known: map[string]uuid.UUID{"jamie@example.com": existing}}
	svc := newTestService(store, clients, &fakeQuotes{}, nil)
	tenantID := uuid.New()

	result, err := svc.Intake(context.Background(), transport.IntakeRequest{
		TenantID: tenantID,
		Name:     "Jamie Vos",
		Email:    "jamie@example.com",
		Title:    "Second visit",
	})
	if err != nil {
		t.Fatalf("Intake: %v", err)
	}
	if result.ClientID != existing {
		t.Fatalf("client ID = %s, want existing %s", result.ClientID, existing)
	}
}

func TestCreate_StaffRequestIsAuditedAsUser(t *testing.T) {
	store := newFakeStore()
	sink := &memorySink{}
	svc := newTestService(store, &fakeClients{}, &fakeQuotes{}, sink)
	tenantID, userID := uuid.New(), uuid.New()

	result, err := svc.Create(context.Background(), tenantID, userID, transport.CreateRequest{
		ClientID: uuid.New(),
		Title:    "Boiler service",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if result.Source != repository.SourceStaff {
		t.Fatalf("source = %q, want %q", result.Source, repository.SourceStaff)
	}
	if len(sink.events) != 1 || sink.events[0].PrincipalType != audit.PrincipalUser {
		t.Fatalf("audit events = %+v, want one user-principal event", sink.events)
	}
	if sink.events[0].PrincipalID != userID.String() {
		t.Fatalf("principal ID = %q, want %q", sink.events[0].PrincipalID, userID)
	}
}

func TestConvert_CreatesDraftQuoteAndMarksConverted(t *testing.T) {
	store := newFakeStore()
	quotes := &fakeQuotes{}
	sink := &memorySink{}
	svc := newTestService(store, &fakeClients{}, quotes, sink)
	tenantID := uuid.New()
	request := seedRequest(store, tenantID, repository.StatusNew)

	result, err := svc.Convert(context.Background(), tenantID, uuid.New(), request.ID, transport.ConvertRequest{
		TaxRateBps: 2100,
		Items: []quotestransport.QuoteItemRequest{
			{Description: "Labor", Quantity: 2, UnitPriceCents: 7500},
		},
	})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if result.Request.Status != repository.StatusConverted {
		t.Fatalf("request status = %q, want converted", result.Request.Status)
	}
	if result.Request.QuoteID == nil || *result.Request.QuoteID != result.Quote.ID {
		t.Fatalf("request not linked to created quote")
	}
	if len(quotes.created) != 1 {
		t.Fatalf("quote creations = %d, want 1", len(quotes.created))
	}
	created := quotes.created[0]
	if created.Title != request.Title {
		t.Fatalf("quote title = %q, want request title %q", created.Title, request.Title)
	}
	if created.RequestID == nil || *created.RequestID != request.ID {
		t.Fatalf("quote not backlinked to request")
	}
	if len(sink.events) != 1 || sink.events[0].EventName != "request.converted" {
		t.Fatalf("audit events = %+v, want one request.converted", sink.events)
	}
}

func TestConvert_ExplicitTitleOverridesRequestTitle(t *testing.T) {
	store := newFakeStore()
	quotes := &fakeQuotes{}
	svc := newTestService(store, &fakeClients{}, quotes, nil)
	tenantID := uuid.New()
	request := seedRequest(store, tenantID, repository.StatusNew)

	title := "Full bathroom renovation"
	_, err := svc.Convert(context.Background(), tenantID, uuid.New(), request.ID, transport.ConvertRequest{
		Title: &title,
		Items: []quotestransport.QuoteItemRequest{
			{Description: "Labor", Quantity: 1, UnitPriceCents: 100},
		},
	})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if quotes.created[0].Title != title {
		t.Fatalf("quote title = %q, want %q", quotes.created[0].Title, title)
	}
}

func TestConvert_AlreadyConvertedFails(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeClients{}, &fakeQuotes{}, nil)
	tenantID := uuid.New()
	request := seedRequest(store, tenantID, repository.StatusConverted)

	_, err := svc.Convert(context.Background(), tenantID, uuid.New(), request.ID, transport.ConvertRequest{
		Items: []quotestransport.QuoteItemRequest{
			{Description: "Labor", Quantity: 1, UnitPriceCents: 100},
		},
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
}

func TestConvert_LostRaceIsConflict(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeClients{}, &fakeQuotes{}, nil)
	tenantID := uuid.New()
	request := seedRequest(store, tenantID, repository.StatusNew)

	// A rival converts between the pre-check read and the conditional flip.
	store.beforeConvert = func(f *fakeStore) {
		rivalQuote := uuid.New()
		f.requests[request.ID].Status = repository.StatusConverted
		f.requests[request.ID].QuoteID = &rivalQuote
	}

	_, err := svc.Convert(context.Background(), tenantID, uuid.New(), request.ID, transport.ConvertRequest{
		Items: []quotestransport.QuoteItemRequest{
			{Description: "Labor", Quantity: 1, UnitPriceCents: 100},
		},
	})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
	if store.convertCalls != 1 {
		t.Fatalf("convert calls = %d, want 1", store.convertCalls)
	}
}

func TestList_FiltersByStatus(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeClients{}, &fakeQuotes{}, nil)
	tenantID := uuid.New()
	seedRequest(store, tenantID, repository.StatusNew)
	seedRequest(store, tenantID, repository.StatusConverted)
	seedRequest(store, uuid.New(), repository.StatusNew)

	status := repository.StatusNew
	result, err := svc.List(context.Background(), tenantID, &status)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("len = %d, want 1", len(result))
	}
	if result[0].Status != repository.StatusNew {
		t.Fatalf("status = %q, want new", result[0].Status)
	}
}
