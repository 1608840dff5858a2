package service

import (
	"context"

	"fieldservice_backend/internal/catalog/repository"
	"fieldservice_backend/internal/catalog/transport"

	"github.com/google/uuid"
)

// Service provides business logic for the service item catalog.
type Service struct {
	repo *repository.Repository
}

// New creates a new catalog service.
func New(repo *repository.Repository) *Service {
	return &Service{repo: repo}
}

// Create creates a new service item.
func (s *Service) Create(ctx context.Context, tenantID uuid.UUID, req transport.CreateServiceItemRequest) (*transport.ServiceItemResponse, error) {
	item, err := s.repo.Create(ctx, repository.CreateParams{
		TenantID:                 tenantID,
		Name:                     req.Name,
		Description:              req.Description,
		UnitPriceCents:           req.UnitPriceCents,
		EstimatedDurationMinutes: req.EstimatedDurationMinutes,
	})
	if err != nil {
		return nil, err
	}
	return toResponse(item), nil
}

// Update updates an existing service item.
func (s *Service) Update(ctx context.Context, tenantID, id uuid.UUID, req transport.UpdateServiceItemRequest) (*transport.ServiceItemResponse, error) {
	item, err := s.repo.Update(ctx, repository.UpdateParams{
		TenantID:                 tenantID,
		ID:                       id,
		Name:                     req.Name,
		Description:              req.Description,
		UnitPriceCents:           req.UnitPriceCents,
		EstimatedDurationMinutes: req.EstimatedDurationMinutes,
		IsActive:                 req.IsActive,
	})
	if err != nil {
		return nil, err
	}
	return toResponse(item), nil
}

// GetByID retrieves a single service item.
func (s *Service) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*transport.ServiceItemResponse, error) {
	item, err := s.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	return toResponse(item), nil
}

// List retrieves service items for a tenant.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID, activeOnly bool) ([]transport.ServiceItemResponse, error) {
	items, err := s.repo.List(ctx, tenantID, activeOnly)
	if err != nil {
		return nil, err
	}
	responses := make([]transport.ServiceItemResponse, len(items))
	for i := range items {
		responses[i] = *toResponse(&items[i])
	}
	return responses, nil
}

// Delete removes a service item.
func (s *Service) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return s.repo.Delete(ctx, tenantID, id)
}

func toResponse(item *repository.ServiceItem) *transport.ServiceItemResponse {
	return &transport.ServiceItemResponse{
		ID:                       item.ID,
		Name:                     item.Name,
		Description:              item.Description,
		UnitPriceCents:           item.UnitPriceCents,
		EstimatedDurationMinutes: item.EstimatedDurationMinutes,
		IsActive:                 item.IsActive,
		CreatedAt:                item.CreatedAt,
		UpdatedAt:                item.UpdatedAt,
	}
}
