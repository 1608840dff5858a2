package notification

import (
	"context"
	"testing"
	"time"

	"fieldservice_backend/internal/email"
	"fieldservice_backend/internal/events"
	"fieldservice_backend/platform/apperr"
	"fieldservice_backend/platform/logger"

	"github.com/google/uuid"
)

type testSender struct {
	quoteCalls    int
	decisionCalls int
	visitCalls    int

	lastTo          string
	lastName        string
	lastAction      string
	lastAttachments []email.Attachment
	lastScheduled   *time.Time
}

func (s *testSender) SendQuoteEmail(_ context.Context, toEmail, clientName, _ string, _ int64, _ string, attachments ...email.Attachment) error {
	s.quoteCalls++
	s.lastTo = toEmail
	s.lastName = clientName
	s.lastAttachments = attachments
	return nil
}

func (s *testSender) SendQuoteDecisionEmail(_ context.Context, toEmail, _, _, action string) error {
	s.decisionCalls++
	s.lastTo = toEmail
	s.lastAction = action
	return nil
}

func (s *testSender) SendVisitScheduledEmail(_ context.Context, toEmail, clientName, _ string, scheduledStart *time.Time) error {
	s.visitCalls++
	s.lastTo = toEmail
	s.lastName = clientName
	s.lastScheduled = scheduledStart
	return nil
}

type testContacts struct {
	contact *Contact
}

func (r testContacts) ResolveContact(context.Context, uuid.UUID, uuid.UUID) (*Contact, error) {
	if r.contact == nil {
		return nil, apperr.NotFound("client not found")
	}
	return r.contact, nil
}

func TestHandleQuoteSentAttachesQRCode(t *testing.T) {
	sender := &testSender{}
	m := New(sender, testContacts{}, logger.New("test"))

	err := m.Handle(context.Background(), events.QuoteSent{
		BaseEvent:   events.NewBaseEvent(),
		QuoteID:     uuid.New(),
		TenantID:    uuid.New(),
		ClientEmail: "client@example.com",
		ClientName:  "A. Client",
		Title:       "Roof repair",
		TotalCents:  125000,
		RespondURL:  "https://app.example.com/q/abc",
		QRCodePNG:   []byte{0x89, 0x50, 0x4e, 0x47},
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if sender.quoteCalls != 1 {
		t.Fatalf("quote emails = %d, want 1", sender.quoteCalls)
	}
	if sender.lastTo != "client@example.com" {
		t.Fatalf("to = %q", sender.lastTo)
	}
	if len(sender.lastAttachments) != 1 || sender.lastAttachments[0].FileName != "quote-qr.png" {
		t.Fatalf("attachments = %+v, want one quote-qr.png", sender.lastAttachments)
	}
}

func TestHandleQuoteSentWithoutQRCodeHasNoAttachment(t *testing.T) {
	sender := &testSender{}
	m := New(sender, testContacts{}, logger.New("test"))

	err := m.Handle(context.Background(), events.QuoteSent{
		BaseEvent:   events.NewBaseEvent(),
		QuoteID:     uuid.New(),
		ClientEmail: "client@example.com",
		Title:       "Roof repair",
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(sender.lastAttachments) != 0 {
		t.Fatalf("attachments = %+v, want none", sender.lastAttachments)
	}
}

func TestHandleQuoteRespondedForwardsAction(t *testing.T) {
	sender := &testSender{}
	m := New(sender, testContacts{}, logger.New("test"))

	err := m.Handle(context.Background(), events.QuoteResponded{
		BaseEvent:   events.NewBaseEvent(),
		QuoteID:     uuid.New(),
		ClientEmail: "client@example.com",
		Title:       "Roof repair",
		Action:      "decline",
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if sender.decisionCalls != 1 || sender.lastAction != "decline" {
		t.Fatalf("decision calls = %d action = %q", sender.decisionCalls, sender.lastAction)
	}
}

func TestHandleJobCreatedResolvesContact(t *testing.T) {
	sender := &testSender{}
	start := time.Date(2026, 9, 14, 9, 0, 0, 0, time.UTC)
	m := New(sender, testContacts{contact: &Contact{Name: "A. Client", Email: "client@example.com"}}, logger.New("test"))

	err := m.Handle(context.Background(), events.JobCreated{
		BaseEvent:      events.NewBaseEvent(),
		JobID:          uuid.New(),
		TenantID:       uuid.New(),
		ClientID:       uuid.New(),
		Title:          "Roof repair",
		ScheduledStart: &start,
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if sender.visitCalls != 1 {
		t.Fatalf("visit emails = %d, want 1", sender.visitCalls)
	}
	if sender.lastName != "A. Client" || sender.lastTo != "client@example.com" {
		t.Fatalf("contact not resolved: to=%q name=%q", sender.lastTo, sender.lastName)
	}
	if sender.lastScheduled == nil || !sender.lastScheduled.Equal(start) {
		t.Fatalf("scheduled start not forwarded")
	}
}

func TestHandleJobCreatedUnknownClientFails(t *testing.T) {
	sender := &testSender{}
	m := New(sender, testContacts{}, logger.New("test"))

	err := m.Handle(context.Background(), events.JobCreated{
		BaseEvent: events.NewBaseEvent(),
		JobID:     uuid.New(),
	})
	if err == nil {
		t.Fatal("expected error for unknown client")
	}
	if sender.visitCalls != 0 {
		t.Fatalf("visit emails = %d, want 0", sender.visitCalls)
	}
}
