package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"fieldservice_backend/internal/audit"
	"fieldservice_backend/internal/events"
	"fieldservice_backend/internal/quotes/repository"
	"fieldservice_backend/internal/quotes/transport"
	"fieldservice_backend/platform/apperr"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
)

const qrCodeSizePx = 256

// Send dispatches a quote to its client: flips draft to sent, issues a
// public respond token, and publishes the notification event carrying the
// respond URL and its QR code. Re-sending an already sent quote reuses the
// active token and sends again without a status write.
func (s *Service) Send(ctx context.Context, tenantID, userID, quoteID uuid.UUID) (*transport.SendQuoteResponse, error) {
	quote, err := s.store.GetByID(ctx, tenantID, quoteID)
	if err != nil {
		return nil, err
	}

	switch quote.Status {
	case string(transport.QuoteStatusDraft):
		now := time.Now()
		updated, err := s.store.UpdateStatusIf(ctx, tenantID, quoteID,
			string(transport.QuoteStatusSent),
			repository.StatusExtra{SentAt: &now},
			string(transport.QuoteStatusDraft),
		)
		if err != nil {
			return nil, err
		}
		if updated == nil {
			// Lost a race; only a concurrent send is an acceptable winner.
			quote, err = s.store.GetByID(ctx, tenantID, quoteID)
			if err != nil {
				return nil, err
			}
			if quote.Status != string(transport.QuoteStatusSent) {
				return nil, apperr.Validation("only draft quotes can be sent")
			}
		} else {
			quote = updated
		}
	case string(transport.QuoteStatusSent):
		// resend
	default:
		return nil, apperr.Validation("only draft quotes can be sent")
	}

	token, err := s.ensureToken(ctx, quote)
	if err != nil {
		return nil, err
	}

	respondURL := s.respondURL(token.Token)
	qrPNG, err := qrcode.Encode(respondURL, qrcode.Medium, qrCodeSizePx)
	if err != nil {
		s.log.SideEffectError("quote:qr_encode", err)
		qrPNG = nil
	}

	s.record(ctx, quote, "quote.sent", audit.PrincipalUser, userID.String(), map[string]any{
		"tokenId": token.ID,
	})

	if contact, lookupErr := s.contacts.GetQuoteContact(ctx, tenantID, quote.ClientID); lookupErr != nil {
		s.log.SideEffectError("quote:contact_lookup", lookupErr)
	} else if s.eventBus != nil {
		s.eventBus.Publish(ctx, events.QuoteSent{
			BaseEvent:   events.NewBaseEvent(),
			QuoteID:     quote.ID,
			TenantID:    tenantID,
			ClientID:    quote.ClientID,
			ClientEmail: contact.Email,
			ClientName:  contact.Name,
			Title:       quote.Title,
			TotalCents:  quote.TotalCents,
			RespondURL:  respondURL,
			QRCodePNG:   qrPNG,
		})
	}

	items, err := s.store.GetItems(ctx, tenantID, quoteID)
	if err != nil {
		return nil, err
	}

	resp := &transport.SendQuoteResponse{
		Quote:      toResponse(quote, items),
		RespondURL: respondURL,
	}
	if len(qrPNG) > 0 {
		resp.QRCodeBase64 = base64.StdEncoding.EncodeToString(qrPNG)
	}
	return resp, nil
}

func (s *Service) ensureToken(ctx context.Context, quote *repository.Quote) (*repository.QuoteToken, error) {
	if existing, err := s.store.GetActiveToken(ctx, quote.TenantID, quote.ID); err == nil {
		return existing, nil
	} else if !apperr.Is(err, apperr.KindNotFound) {
		return nil, err
	}

	raw, err := generateToken()
	if err != nil {
		return nil, err
	}

	expiresAt := time.Now().Add(s.cfg.GetQuoteTokenTTL())
	if quote.ValidUntil != nil && quote.ValidUntil.After(time.Now()) && quote.ValidUntil.Before(expiresAt) {
		expiresAt = *quote.ValidUntil
	}

	token := repository.QuoteToken{
		ID:        uuid.New(),
		TenantID:  quote.TenantID,
		QuoteID:   quote.ID,
		Token:     raw,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	if err := s.store.IssueToken(ctx, &token); err != nil {
		return nil, err
	}
	return &token, nil
}

func (s *Service) respondURL(token string) string {
	return strings.TrimRight(s.cfg.GetAppBaseURL(), "/") + "/public/quotes/" + token
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
