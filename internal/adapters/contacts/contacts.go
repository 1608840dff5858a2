// Package contacts adapts the clients repository to the narrow contact
// lookup interfaces other modules declare, keeping bounded contexts from
// importing each other's domains directly.
package contacts

import (
	"context"

	clientsrepo "fieldservice_backend/internal/clients/repository"
	"fieldservice_backend/internal/notification"
	quotesvc "fieldservice_backend/internal/quotes/service"

	"github.com/google/uuid"
)

// QuoteContactAdapter implements the quotes service's ContactReader.
type QuoteContactAdapter struct {
	repo *clientsrepo.Repository
}

// NewQuoteContactAdapter creates the adapter over the clients repository.
func NewQuoteContactAdapter(repo *clientsrepo.Repository) *QuoteContactAdapter {
	return &QuoteContactAdapter{repo: repo}
}

// GetQuoteContact resolves the client's name and email for quote messaging.
func (a *QuoteContactAdapter) GetQuoteContact(ctx context.Context, tenantID, clientID uuid.UUID) (*quotesvc.Contact, error) {
	data, err := a.repo.GetContactData(ctx, tenantID, clientID)
	if err != nil {
		return nil, err
	}
	return &quotesvc.Contact{Name: data.Name, Email: data.Email}, nil
}

// Compile-time check.
var _ quotesvc.ContactReader = (*QuoteContactAdapter)(nil)

// NotificationContactAdapter implements the notification module's
// ContactResolver.
type NotificationContactAdapter struct {
	repo *clientsrepo.Repository
}

// NewNotificationContactAdapter creates the adapter over the clients repository.
func NewNotificationContactAdapter(repo *clientsrepo.Repository) *NotificationContactAdapter {
	return &NotificationContactAdapter{repo: repo}
}

// ResolveContact resolves the client's name and email for outbound notifications.
func (a *NotificationContactAdapter) ResolveContact(ctx context.Context, tenantID, clientID uuid.UUID) (*notification.Contact, error) {
	data, err := a.repo.GetContactData(ctx, tenantID, clientID)
	if err != nil {
		return nil, err
	}
	return &notification.Contact{Name: data.Name, Email: data.Email}, nil
}

// Compile-time check.
var _ notification.ContactResolver = (*NotificationContactAdapter)(nil)
