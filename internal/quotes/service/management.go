package service

import (
	"context"
	"time"

	"fieldservice_backend/internal/audit"
	"fieldservice_backend/internal/quotes/repository"
	"fieldservice_backend/internal/quotes/transport"

	"github.com/google/uuid"
)

// Create creates a new draft quote with server-side computed totals.
func (s *Service) Create(ctx context.Context, tenantID, userID uuid.UUID, req transport.CreateQuoteRequest) (*transport.QuoteResponse, error) {
	calc := CalculateQuote(req.Items, req.TaxRateBps)

	now := time.Now()
	quote := repository.Quote{
		ID:            uuid.New(),
		TenantID:      tenantID,
		RequestID:     req.RequestID,
		ClientID:      req.ClientID,
		PropertyID:    req.PropertyID,
		Title:         req.Title,
		Status:        string(transport.QuoteStatusDraft),
		TaxRateBps:    req.TaxRateBps,
		SubtotalCents: calc.SubtotalCents,
		TaxCents:      calc.TaxCents,
		TotalCents:    calc.TotalCents,
		ValidUntil:    req.ValidUntil,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	items := buildItems(tenantID, quote.ID, req.Items, calc, now)

	if err := s.store.CreateWithItems(ctx, &quote, items); err != nil {
		return nil, err
	}

	s.record(ctx, &quote, "quote.drafted", audit.PrincipalUser, userID.String(), map[string]any{
		"totalCents": quote.TotalCents,
	})

	return toResponse(&quote, items), nil
}

// Update replaces a draft quote's header and line items, recomputing totals.
// Non-draft quotes are immutable through this path.
func (s *Service) Update(ctx context.Context, tenantID, userID, id uuid.UUID, req transport.UpdateQuoteRequest) (*transport.QuoteResponse, error) {
	current, err := s.store.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	calc := CalculateQuote(req.Items, req.TaxRateBps)

	now := time.Now()
	quote := *current
	quote.Title = req.Title
	quote.TaxRateBps = req.TaxRateBps
	quote.SubtotalCents = calc.SubtotalCents
	quote.TaxCents = calc.TaxCents
	quote.TotalCents = calc.TotalCents
	quote.ValidUntil = req.ValidUntil
	quote.UpdatedAt = now

	items := buildItems(tenantID, id, req.Items, calc, now)
	if err := s.store.UpdateWithItems(ctx, &quote, items); err != nil {
		return nil, err
	}

	return toResponse(&quote, items), nil
}
