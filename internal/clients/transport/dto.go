// Package transport defines request/response DTOs for the clients module.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// CreateClientRequest is the payload for creating a client.
type CreateClientRequest struct {
	Name  string  `json:"name" validate:"required,max=200"`
	Email string  `json:"email" validate:"required,email"`
	Phone *string `json:"phone,omitempty"`
	Notes *string `json:"notes,omitempty"`
}

// UpdateClientRequest is the payload for updating a client.
// Omitted fields keep their current value.
type UpdateClientRequest struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,max=200"`
	Email *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone *string `json:"phone,omitempty"`
	Notes *string `json:"notes,omitempty"`
}

// ClientResponse is the API representation of a client.
type ClientResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     *string   `json:"phone,omitempty"`
	Notes     *string   `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreatePropertyRequest is the payload for adding a property to a client.
type CreatePropertyRequest struct {
	Street     string  `json:"street" validate:"required,max=200"`
	City       string  `json:"city" validate:"required,max=100"`
	PostalCode string  `json:"postalCode" validate:"required,max=20"`
	Country    string  `json:"country" validate:"required,len=2"`
	Notes      *string `json:"notes,omitempty"`
}

// PropertyResponse is the API representation of a property.
type PropertyResponse struct {
	ID         uuid.UUID `json:"id"`
	ClientID   uuid.UUID `json:"clientId"`
	Street     string    `json:"street"`
	City       string    `json:"city"`
	PostalCode string    `json:"postalCode"`
	Country    string    `json:"country"`
	Notes      *string   `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}
