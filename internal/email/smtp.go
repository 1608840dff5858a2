package email

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// SMTPSender implements Sender over a direct SMTP connection via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates a new SMTPSender with the given SMTP credentials.
func NewSMTPSender(host string, port int, username, password, fromEmail, fromName string) *SMTPSender {
	return &SMTPSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string, attachments ...Attachment) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	for _, att := range attachments {
		msg.AttachReader(att.FileName, bytes.NewReader(att.Content))
	}

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

func (s *SMTPSender) SendQuoteEmail(ctx context.Context, toEmail, clientName, title string, totalCents int64, respondURL string, attachments ...Attachment) error {
	subject := fmt.Sprintf(subjectQuoteFmt, title)
	content, err := renderEmailTemplate("quote.html", quoteEmailData{
		baseEmailData: baseEmailData{
			Title:    subject,
			Heading:  "Your quote is ready",
			CTALabel: "View quote",
			CTAURL:   respondURL,
		},
		ClientName:     clientName,
		QuoteTitle:     title,
		TotalFormatted: formatCurrencyEUR(totalCents),
		HasAttachments: len(attachments) > 0,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content, attachments...)
}

func (s *SMTPSender) SendQuoteDecisionEmail(ctx context.Context, toEmail, clientName, title, action string) error {
	approved := action == "approve"
	subjectFmt := subjectQuoteDeclinedFmt
	heading := "Quote declined"
	if approved {
		subjectFmt = subjectQuoteApprovedFmt
		heading = "Quote approved"
	}
	subject := fmt.Sprintf(subjectFmt, title)
	content, err := renderEmailTemplate("quote_decision.html", quoteDecisionEmailData{
		baseEmailData: baseEmailData{
			Title:   subject,
			Heading: heading,
		},
		ClientName: clientName,
		QuoteTitle: title,
		Approved:   approved,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}

func (s *SMTPSender) SendVisitScheduledEmail(ctx context.Context, toEmail, clientName, title string, scheduledStart *time.Time) error {
	var scheduledDate string
	if scheduledStart != nil {
		scheduledDate = scheduledStart.Format("Monday 2 January 2006, 15:04")
	}
	subject := fmt.Sprintf(subjectVisitScheduledFmt, title)
	content, err := renderEmailTemplate("visit_scheduled.html", visitScheduledEmailData{
		baseEmailData: baseEmailData{
			Title:   subject,
			Heading: "Visit scheduled",
		},
		ClientName:    clientName,
		JobTitle:      title,
		ScheduledDate: scheduledDate,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}

var _ Sender = (*SMTPSender)(nil)
