package service

import (
	"context"
	"fmt"
	"time"

	"fieldservice_backend/internal/audit"
	"fieldservice_backend/internal/events"
	"fieldservice_backend/internal/quotes/repository"
	"fieldservice_backend/internal/quotes/transport"
	"fieldservice_backend/platform/apperr"

	"github.com/google/uuid"
)

// ResolvedToken is the output of public link resolution: the tenant, the
// quote the token is bound to, and the token's own identity for auditing.
type ResolvedToken struct {
	TenantID uuid.UUID
	QuoteID  uuid.UUID
	TokenID  uuid.UUID
}

// ResolveToken validates a public bearer token.
func (s *Service) ResolveToken(ctx context.Context, token string) (*ResolvedToken, error) {
	t, err := s.store.ResolveToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return &ResolvedToken{TenantID: t.TenantID, QuoteID: t.QuoteID, TokenID: t.ID}, nil
}

// GetPublic returns the customer-facing view of a quote.
func (s *Service) GetPublic(ctx context.Context, tenantID, quoteID uuid.UUID) (*transport.PublicQuoteResponse, error) {
	quote, err := s.store.GetByID(ctx, tenantID, quoteID)
	if err != nil {
		return nil, err
	}
	items, err := s.store.GetItems(ctx, tenantID, quoteID)
	if err != nil {
		return nil, err
	}

	resp := &transport.PublicQuoteResponse{
		Title:         quote.Title,
		Status:        transport.QuoteStatus(quote.Status),
		SubtotalCents: quote.SubtotalCents,
		TaxCents:      quote.TaxCents,
		TotalCents:    quote.TotalCents,
		ValidUntil:    quote.ValidUntil,
		ApprovedAt:    quote.ApprovedAt,
		DeclinedAt:    quote.DeclinedAt,
		Items:         make([]transport.QuoteItemResponse, 0, len(items)),
	}
	for _, it := range items {
		resp.Items = append(resp.Items, toItemResponse(it))
	}
	return resp, nil
}

// Respond applies an external approve or decline to a sent quote. Customers
// clicking email links double-submit and retry on timeouts, so replaying the
// same action on an already decided quote returns the current state as
// success; only the opposite action fails.
func (s *Service) Respond(ctx context.Context, tenantID, quoteID, tokenID uuid.UUID, action string) (*transport.PublicQuoteResponse, error) {
	target, opposite, err := respondStatuses(action)
	if err != nil {
		return nil, err
	}

	quote, err := s.store.GetByID(ctx, tenantID, quoteID)
	if err != nil {
		return nil, err
	}

	switch {
	case isActionTerminal(quote.Status, target):
		return s.GetPublic(ctx, tenantID, quoteID)
	case quote.Status == opposite:
		return nil, apperr.Validation(fmt.Sprintf("this quote has already been %s", opposite))
	case quote.Status != string(transport.QuoteStatusSent):
		return nil, apperr.Validation(fmt.Sprintf("only sent quotes can be %s", target))
	}

	now := time.Now()
	extra := repository.StatusExtra{}
	if action == transport.RespondActionApprove {
		extra.ApprovedAt = &now
	} else {
		extra.DeclinedAt = &now
	}

	updated, err := s.store.UpdateStatusIf(ctx, tenantID, quoteID, target, extra, string(transport.QuoteStatusSent))
	if err != nil {
		return nil, err
	}
	if updated == nil {
		// Lost the race; decide from the state the winner left behind.
		quote, err = s.store.GetByID(ctx, tenantID, quoteID)
		if err != nil {
			return nil, err
		}
		switch {
		case isActionTerminal(quote.Status, target):
			return s.GetPublic(ctx, tenantID, quoteID)
		case quote.Status == opposite:
			return nil, apperr.Validation(fmt.Sprintf("this quote has already been %s", opposite))
		default:
			return nil, apperr.Internal(fmt.Sprintf("quote in unexpected state %q after lost transition", quote.Status))
		}
	}
	quote = updated

	s.record(ctx, quote, "quote."+target, audit.PrincipalExternal, tokenID.String(), map[string]any{
		"action": action,
	})

	if contact, lookupErr := s.contacts.GetQuoteContact(ctx, tenantID, quote.ClientID); lookupErr != nil {
		s.log.SideEffectError("quote:contact_lookup", lookupErr)
	} else if s.eventBus != nil {
		s.eventBus.Publish(ctx, events.QuoteResponded{
			BaseEvent:   events.NewBaseEvent(),
			QuoteID:     quote.ID,
			TenantID:    tenantID,
			ClientID:    quote.ClientID,
			ClientEmail: contact.Email,
			ClientName:  contact.Name,
			Title:       quote.Title,
			Action:      action,
			TotalCents:  quote.TotalCents,
		})
	}

	return s.GetPublic(ctx, tenantID, quoteID)
}

// respondStatuses maps a respond action to its terminal status and the
// terminal status of the opposite action.
func respondStatuses(action string) (target, opposite string, err error) {
	switch action {
	case transport.RespondActionApprove:
		return string(transport.QuoteStatusApproved), string(transport.QuoteStatusDeclined), nil
	case transport.RespondActionDecline:
		return string(transport.QuoteStatusDeclined), string(transport.QuoteStatusApproved), nil
	default:
		return "", "", apperr.Validation("action must be approve or decline")
	}
}

// isActionTerminal reports whether the quote already sits in the terminal
// state this action aims for. Scheduled counts for approve because it is
// only reachable from approved.
func isActionTerminal(status, target string) bool {
	if status == target {
		return true
	}
	return target == string(transport.QuoteStatusApproved) && status == string(transport.QuoteStatusScheduled)
}
