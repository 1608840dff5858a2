// Package email delivers transactional mail to clients. Templates are
// embedded; delivery goes through SMTP via go-mail.
package email

import (
	"context"
	"time"
)

// Attachment is a file attached to an outbound email.
type Attachment struct {
	FileName string
	Content  []byte
}

// Sender delivers the transactional emails the domain produces.
type Sender interface {
	// SendQuoteEmail mails the client their quote with the public respond link.
	SendQuoteEmail(ctx context.Context, toEmail, clientName, title string, totalCents int64, respondURL string, attachments ...Attachment) error
	// SendQuoteDecisionEmail confirms the client's approve/decline decision.
	SendQuoteDecisionEmail(ctx context.Context, toEmail, clientName, title, action string) error
	// SendVisitScheduledEmail tells the client a visit has been planned.
	SendVisitScheduledEmail(ctx context.Context, toEmail, clientName, title string, scheduledStart *time.Time) error
}

// NoopSender discards all emails. Used when email delivery is disabled.
type NoopSender struct{}

func (NoopSender) SendQuoteEmail(context.Context, string, string, string, int64, string, ...Attachment) error {
	return nil
}

func (NoopSender) SendQuoteDecisionEmail(context.Context, string, string, string, string) error {
	return nil
}

func (NoopSender) SendVisitScheduledEmail(context.Context, string, string, string, *time.Time) error {
	return nil
}

var _ Sender = NoopSender{}
