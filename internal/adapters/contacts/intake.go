package contacts

import (
	"context"
	"time"

	clientsrepo "fieldservice_backend/internal/clients/repository"
	requestsvc "fieldservice_backend/internal/requests/service"
	"fieldservice_backend/platform/apperr"
	"fieldservice_backend/platform/phone"

	"github.com/google/uuid"
)

// IntakeClientAdapter implements the requests service's ClientResolver:
// public submitters are matched to an existing client by email, or a new
// client record is created for them.
type IntakeClientAdapter struct {
	repo *clientsrepo.Repository
}

// NewIntakeClientAdapter creates the adapter over the clients repository.
func NewIntakeClientAdapter(repo *clientsrepo.Repository) *IntakeClientAdapter {
	return &IntakeClientAdapter{repo: repo}
}

// ResolveIntakeClient returns the client ID for a submitter, creating the
// client when the email is unknown.
func (a *IntakeClientAdapter) ResolveIntakeClient(ctx context.Context, tenantID uuid.UUID, name, email string, phoneNumber *string) (uuid.UUID, error) {
	existing, err := a.repo.GetByEmail(ctx, tenantID, email)
	if err == nil {
		return existing.ID, nil
	}
	if !apperr.Is(err, apperr.KindNotFound) {
		return uuid.Nil, err
	}

	var normalized *string
	if phoneNumber != nil {
		if n := phone.NormalizeE164(*phoneNumber); n != "" {
			normalized = &n
		}
	}

	now := time.Now()
	client := &clientsrepo.Client{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Name:      name,
		Email:     email,
		Phone:     normalized,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := a.repo.Create(ctx, client); err != nil {
		return uuid.Nil, err
	}
	return client.ID, nil
}

// Compile-time check.
var _ requestsvc.ClientResolver = (*IntakeClientAdapter)(nil)
