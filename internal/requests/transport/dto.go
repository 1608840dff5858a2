// Package transport defines request/response DTOs for the requests module.
package transport

import (
	"time"

	quotestransport "fieldservice_backend/internal/quotes/transport"

	"github.com/google/uuid"
)

// CreateRequest is the staff-facing payload for logging a service request.
type CreateRequest struct {
	ClientID    uuid.UUID  `json:"clientId" validate:"required"`
	PropertyID  *uuid.UUID `json:"propertyId,omitempty"`
	Title       string     `json:"title" validate:"required,max=200"`
	Description *string    `json:"description,omitempty" validate:"omitempty,max=2000"`
}

// IntakeRequest is the public intake payload, e.g. from a website form. The
// submitter is matched to an existing client by email or a new client is
// created.
type IntakeRequest struct {
	TenantID    uuid.UUID `json:"tenantId" validate:"required"`
	Name        string    `json:"name" validate:"required,max=200"`
	Email       string    `json:"email" validate:"required,email"`
	Phone       *string   `json:"phone,omitempty"`
	Title       string    `json:"title" validate:"required,max=200"`
	Description *string   `json:"description,omitempty" validate:"omitempty,max=2000"`
}

// ConvertRequest turns a request into a draft quote. Title defaults to the
// request's title when omitted.
type ConvertRequest struct {
	Title      *string                            `json:"title,omitempty" validate:"omitempty,max=200"`
	TaxRateBps int                                `json:"taxRateBps" validate:"gte=0,lte=10000"`
	ValidUntil *time.Time                         `json:"validUntil,omitempty"`
	Items      []quotestransport.QuoteItemRequest `json:"items" validate:"required,min=1,dive"`
}

// RequestResponse is the API representation of a service request.
type RequestResponse struct {
	ID          uuid.UUID  `json:"id"`
	ClientID    uuid.UUID  `json:"clientId"`
	PropertyID  *uuid.UUID `json:"propertyId,omitempty"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	Source      string     `json:"source"`
	Status      string     `json:"status"`
	QuoteID     *uuid.UUID `json:"quoteId,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// ConvertResponse pairs the converted request with the draft quote created
// from it.
type ConvertResponse struct {
	Request RequestResponse               `json:"request"`
	Quote   quotestransport.QuoteResponse `json:"quote"`
}
