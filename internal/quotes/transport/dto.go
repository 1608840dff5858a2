// Package transport defines request/response DTOs for the quotes module.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// QuoteStatus is the lifecycle status of a quote.
type QuoteStatus string

// Quote lifecycle statuses.
const (
	QuoteStatusDraft     QuoteStatus = "draft"
	QuoteStatusSent      QuoteStatus = "sent"
	QuoteStatusApproved  QuoteStatus = "approved"
	QuoteStatusDeclined  QuoteStatus = "declined"
	QuoteStatusExpired   QuoteStatus = "expired"
	QuoteStatusScheduled QuoteStatus = "scheduled"
)

// Respond actions available through the public link.
const (
	RespondActionApprove = "approve"
	RespondActionDecline = "decline"
)

// QuoteItemRequest is one line item in a create/update payload.
type QuoteItemRequest struct {
	ServiceItemID  *uuid.UUID `json:"serviceItemId,omitempty"`
	Description    string     `json:"description" validate:"required,max=500"`
	Quantity       float64    `json:"quantity" validate:"gt=0"`
	UnitPriceCents int64      `json:"unitPriceCents" validate:"gte=0"`
}

// CreateQuoteRequest is the payload for creating a draft quote.
type CreateQuoteRequest struct {
	ClientID   uuid.UUID          `json:"clientId" validate:"required"`
	PropertyID *uuid.UUID         `json:"propertyId,omitempty"`
	RequestID  *uuid.UUID         `json:"requestId,omitempty"`
	Title      string             `json:"title" validate:"required,max=200"`
	TaxRateBps int                `json:"taxRateBps" validate:"gte=0,lte=10000"`
	ValidUntil *time.Time         `json:"validUntil,omitempty"`
	Items      []QuoteItemRequest `json:"items" validate:"required,min=1,dive"`
}

// UpdateQuoteRequest is the payload for updating a draft quote.
// The line items replace the existing set.
type UpdateQuoteRequest struct {
	Title      string             `json:"title" validate:"required,max=200"`
	TaxRateBps int                `json:"taxRateBps" validate:"gte=0,lte=10000"`
	ValidUntil *time.Time         `json:"validUntil,omitempty"`
	Items      []QuoteItemRequest `json:"items" validate:"required,min=1,dive"`
}

// RespondRequest is the public approve/decline payload.
type RespondRequest struct {
	Action string `json:"action" validate:"required,oneof=approve decline"`
}

// QuoteItemResponse is the API representation of a quote line item.
type QuoteItemResponse struct {
	ID             uuid.UUID  `json:"id"`
	ServiceItemID  *uuid.UUID `json:"serviceItemId,omitempty"`
	Description    string     `json:"description"`
	Quantity       float64    `json:"quantity"`
	UnitPriceCents int64      `json:"unitPriceCents"`
	LineTotalCents int64      `json:"lineTotalCents"`
	SortOrder      int        `json:"sortOrder"`
}

// QuoteResponse is the API representation of a quote.
type QuoteResponse struct {
	ID            uuid.UUID           `json:"id"`
	RequestID     *uuid.UUID          `json:"requestId,omitempty"`
	ClientID      uuid.UUID           `json:"clientId"`
	PropertyID    *uuid.UUID          `json:"propertyId,omitempty"`
	Title         string              `json:"title"`
	Status        QuoteStatus         `json:"status"`
	TaxRateBps    int                 `json:"taxRateBps"`
	SubtotalCents int64               `json:"subtotalCents"`
	TaxCents      int64               `json:"taxCents"`
	TotalCents    int64               `json:"totalCents"`
	ValidUntil    *time.Time          `json:"validUntil,omitempty"`
	SentAt        *time.Time          `json:"sentAt,omitempty"`
	ApprovedAt    *time.Time          `json:"approvedAt,omitempty"`
	DeclinedAt    *time.Time          `json:"declinedAt,omitempty"`
	ScheduledAt   *time.Time          `json:"scheduledAt,omitempty"`
	Items         []QuoteItemResponse `json:"items,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
}

// SendQuoteResponse is returned after dispatching a quote to the client.
type SendQuoteResponse struct {
	Quote        *QuoteResponse `json:"quote"`
	RespondURL   string         `json:"respondUrl"`
	QRCodeBase64 string         `json:"qrCodeBase64,omitempty"`
}

// PublicQuoteResponse is the customer-facing quote representation. It omits
// internal identifiers the customer has no use for.
type PublicQuoteResponse struct {
	Title         string              `json:"title"`
	Status        QuoteStatus         `json:"status"`
	SubtotalCents int64               `json:"subtotalCents"`
	TaxCents      int64               `json:"taxCents"`
	TotalCents    int64               `json:"totalCents"`
	ValidUntil    *time.Time          `json:"validUntil,omitempty"`
	ApprovedAt    *time.Time          `json:"approvedAt,omitempty"`
	DeclinedAt    *time.Time          `json:"declinedAt,omitempty"`
	Items         []QuoteItemResponse `json:"items"`
}
