// Package notification delivers client-facing emails in response to domain
// events. Domain modules publish events and stay unaware of email providers
// or templates.
package notification

import (
	"context"
	"fmt"

	"fieldservice_backend/internal/email"
	"fieldservice_backend/internal/events"
	"fieldservice_backend/platform/logger"

	"github.com/google/uuid"
)

// Contact is the client contact data needed to address an email.
type Contact struct {
	Name  string
	Email string
}

// ContactResolver looks up client contact data for events that carry only a
// client ID. Implemented by an adapter over the clients repository.
type ContactResolver interface {
	ResolveContact(ctx context.Context, tenantID, clientID uuid.UUID) (*Contact, error)
}

// Module subscribes to domain events and sends the corresponding emails.
type Module struct {
	sender   email.Sender
	contacts ContactResolver
	log      *logger.Logger
}

// New creates the notification module.
func New(sender email.Sender, contacts ContactResolver, log *logger.Logger) *Module {
	return &Module{
		sender:   sender,
		contacts: contacts,
		log:      log,
	}
}

// RegisterHandlers subscribes to all relevant domain events on the event bus.
func (m *Module) RegisterHandlers(bus *events.InMemoryBus) {
	bus.Subscribe(events.QuoteSent{}.EventName(), m)
	bus.Subscribe(events.QuoteResponded{}.EventName(), m)
	bus.Subscribe(events.JobCreated{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.QuoteSent:
		return m.handleQuoteSent(ctx, e)
	case events.QuoteResponded:
		return m.handleQuoteResponded(ctx, e)
	case events.JobCreated:
		return m.handleJobCreated(ctx, e)
	default:
		return fmt.Errorf("unhandled event type %q", event.EventName())
	}
}

func (m *Module) handleQuoteSent(ctx context.Context, e events.QuoteSent) error {
	var attachments []email.Attachment
	if len(e.QRCodePNG) > 0 {
		attachments = append(attachments, email.Attachment{
			FileName: "quote-qr.png",
			Content:  e.QRCodePNG,
		})
	}
	if err := m.sender.SendQuoteEmail(ctx, e.ClientEmail, e.ClientName, e.Title, e.TotalCents, e.RespondURL, attachments...); err != nil {
		return fmt.Errorf("quote email for %s: %w", e.QuoteID, err)
	}
	m.log.Info("quote email sent", "quoteId", e.QuoteID, "tenantId", e.TenantID)
	return nil
}

func (m *Module) handleQuoteResponded(ctx context.Context, e events.QuoteResponded) error {
	if err := m.sender.SendQuoteDecisionEmail(ctx, e.ClientEmail, e.ClientName, e.Title, e.Action); err != nil {
		return fmt.Errorf("quote decision email for %s: %w", e.QuoteID, err)
	}
	m.log.Info("quote decision email sent", "quoteId", e.QuoteID, "action", e.Action)
	return nil
}

func (m *Module) handleJobCreated(ctx context.Context, e events.JobCreated) error {
	contact, err := m.contacts.ResolveContact(ctx, e.TenantID, e.ClientID)
	if err != nil {
		return fmt.Errorf("resolve contact for job %s: %w", e.JobID, err)
	}
	if err := m.sender.SendVisitScheduledEmail(ctx, contact.Email, contact.Name, e.Title, e.ScheduledStart); err != nil {
		return fmt.Errorf("visit scheduled email for job %s: %w", e.JobID, err)
	}
	m.log.Info("visit scheduled email sent", "jobId", e.JobID, "visitId", e.VisitID)
	return nil
}

// Compile-time check.
var _ events.Handler = (*Module)(nil)
