package service

import (
	"context"
	"time"

	"fieldservice_backend/internal/clients/repository"
	"fieldservice_backend/internal/clients/transport"
	"fieldservice_backend/platform/phone"

	"github.com/google/uuid"
)

// Service provides business logic for clients and properties.
type Service struct {
	repo *repository.Repository
}

// New creates a new clients service.
func New(repo *repository.Repository) *Service {
	return &Service{repo: repo}
}

// Create creates a new client. Phone numbers are normalized to E.164.
func (s *Service) Create(ctx context.Context, tenantID uuid.UUID, req transport.CreateClientRequest) (*transport.ClientResponse, error) {
	now := time.Now()
	client := repository.Client{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Name:      req.Name,
		Email:     req.Email,
		Phone:     normalizePhone(req.Phone),
		Notes:     req.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, &client); err != nil {
		return nil, err
	}
	return toClientResponse(&client), nil
}

// Update updates an existing client.
func (s *Service) Update(ctx context.Context, tenantID, id uuid.UUID, req transport.UpdateClientRequest) (*transport.ClientResponse, error) {
	client, err := s.repo.Update(ctx, tenantID, id, req.Name, req.Email, normalizePhone(req.Phone), req.Notes)
	if err != nil {
		return nil, err
	}
	return toClientResponse(client), nil
}

// GetByID retrieves a single client.
func (s *Service) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*transport.ClientResponse, error) {
	client, err := s.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	return toClientResponse(client), nil
}

// List retrieves clients for a tenant.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID, search string) ([]transport.ClientResponse, error) {
	clients, err := s.repo.List(ctx, tenantID, search)
	if err != nil {
		return nil, err
	}
	responses := make([]transport.ClientResponse, len(clients))
	for i := range clients {
		responses[i] = *toClientResponse(&clients[i])
	}
	return responses, nil
}

// CreateProperty adds a property to a client. The client must exist within
// the tenant.
func (s *Service) CreateProperty(ctx context.Context, tenantID, clientID uuid.UUID, req transport.CreatePropertyRequest) (*transport.PropertyResponse, error) {
	if _, err := s.repo.GetByID(ctx, tenantID, clientID); err != nil {
		return nil, err
	}

	property := repository.Property{
		ID:         uuid.New(),
		TenantID:   tenantID,
		ClientID:   clientID,
		Street:     req.Street,
		City:       req.City,
		PostalCode: req.PostalCode,
		Country:    req.Country,
		Notes:      req.Notes,
		CreatedAt:  time.Now(),
	}
	if err := s.repo.CreateProperty(ctx, &property); err != nil {
		return nil, err
	}
	return toPropertyResponse(&property), nil
}

// ListProperties retrieves all properties for a client.
func (s *Service) ListProperties(ctx context.Context, tenantID, clientID uuid.UUID) ([]transport.PropertyResponse, error) {
	properties, err := s.repo.ListProperties(ctx, tenantID, clientID)
	if err != nil {
		return nil, err
	}
	responses := make([]transport.PropertyResponse, len(properties))
	for i := range properties {
		responses[i] = *toPropertyResponse(&properties[i])
	}
	return responses, nil
}

// DeleteProperty removes a property.
func (s *Service) DeleteProperty(ctx context.Context, tenantID, id uuid.UUID) error {
	return s.repo.DeleteProperty(ctx, tenantID, id)
}

func normalizePhone(raw *string) *string {
	if raw == nil {
		return nil
	}
	normalized := phone.NormalizeE164(*raw)
	if normalized == "" {
		return nil
	}
	return &normalized
}

func toClientResponse(c *repository.Client) *transport.ClientResponse {
	return &transport.ClientResponse{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		Notes:     c.Notes,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func toPropertyResponse(p *repository.Property) *transport.PropertyResponse {
	return &transport.PropertyResponse{
		ID:         p.ID,
		ClientID:   p.ClientID,
		Street:     p.Street,
		City:       p.City,
		PostalCode: p.PostalCode,
		Country:    p.Country,
		Notes:      p.Notes,
		CreatedAt:  p.CreatedAt,
	}
}
