// Package transport defines request/response DTOs for the catalog module.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// CreateServiceItemRequest is the payload for creating a service item.
type CreateServiceItemRequest struct {
	Name                     string  `json:"name" validate:"required,max=200"`
	Description              *string `json:"description,omitempty"`
	UnitPriceCents           int64   `json:"unitPriceCents" validate:"gte=0"`
	EstimatedDurationMinutes *int32  `json:"estimatedDurationMinutes,omitempty" validate:"omitempty,gt=0"`
}

// UpdateServiceItemRequest is the payload for updating a service item.
// Omitted fields keep their current value.
type UpdateServiceItemRequest struct {
	Name                     *string `json:"name,omitempty" validate:"omitempty,max=200"`
	Description              *string `json:"description,omitempty"`
	UnitPriceCents           *int64  `json:"unitPriceCents,omitempty" validate:"omitempty,gte=0"`
	EstimatedDurationMinutes *int32  `json:"estimatedDurationMinutes,omitempty" validate:"omitempty,gt=0"`
	IsActive                 *bool   `json:"isActive,omitempty"`
}

// ServiceItemResponse is the API representation of a service item.
type ServiceItemResponse struct {
	ID                       uuid.UUID `json:"id"`
	Name                     string    `json:"name"`
	Description              *string   `json:"description,omitempty"`
	UnitPriceCents           int64     `json:"unitPriceCents"`
	EstimatedDurationMinutes *int32    `json:"estimatedDurationMinutes,omitempty"`
	IsActive                 bool      `json:"isActive"`
	CreatedAt                time.Time `json:"createdAt"`
	UpdatedAt                time.Time `json:"updatedAt"`
}
