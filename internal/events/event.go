// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"fieldservice_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Quote Domain Events
// =============================================================================

// QuoteSent is published when a quote is dispatched to the client.
type QuoteSent struct {
	BaseEvent
	QuoteID     uuid.UUID `json:"quoteId"`
	TenantID    uuid.UUID `json:"tenantId"`
	ClientID    uuid.UUID `json:"clientId"`
	ClientEmail string    `json:"clientEmail"`
	ClientName  string    `json:"clientName"`
	Title       string    `json:"title"`
	TotalCents  int64     `json:"totalCents"`
	RespondURL  string    `json:"respondUrl"`
	QRCodePNG   []byte    `json:"-"`
}

func (e QuoteSent) EventName() string { return "quotes.sent" }

// QuoteResponded is published when a client approves or declines a quote
// through the public link. Action is "approve" or "decline".
type QuoteResponded struct {
	BaseEvent
	QuoteID     uuid.UUID `json:"quoteId"`
	TenantID    uuid.UUID `json:"tenantId"`
	ClientID    uuid.UUID `json:"clientId"`
	ClientEmail string    `json:"clientEmail"`
	ClientName  string    `json:"clientName"`
	Title       string    `json:"title"`
	Action      string    `json:"action"`
	TotalCents  int64     `json:"totalCents"`
}

func (e QuoteResponded) EventName() string { return "quotes.responded" }

// =============================================================================
// Job Domain Events
// =============================================================================

// JobCreated is published after a job and its first visit are created from
// an approved quote.
type JobCreated struct {
	BaseEvent
	JobID          uuid.UUID  `json:"jobId"`
	QuoteID        uuid.UUID  `json:"quoteId"`
	VisitID        uuid.UUID  `json:"visitId"`
	TenantID       uuid.UUID  `json:"tenantId"`
	ClientID       uuid.UUID  `json:"clientId"`
	Title          string     `json:"title"`
	ScheduledStart *time.Time `json:"scheduledStart,omitempty"`
}

func (e JobCreated) EventName() string { return "jobs.created" }

// VisitStatusChanged is published after a visit status transition commits.
type VisitStatusChanged struct {
	BaseEvent
	VisitID   uuid.UUID `json:"visitId"`
	JobID     uuid.UUID `json:"jobId"`
	TenantID  uuid.UUID `json:"tenantId"`
	OldStatus string    `json:"oldStatus"`
	NewStatus string    `json:"newStatus"`
}

func (e VisitStatusChanged) EventName() string { return "visits.status.changed" }

// =============================================================================
// Request Domain Events
// =============================================================================

// RequestReceived is published when a new service request is submitted.
type RequestReceived struct {
	BaseEvent
	RequestID uuid.UUID `json:"requestId"`
	TenantID  uuid.UUID `json:"tenantId"`
	ClientID  uuid.UUID `json:"clientId"`
	Title     string    `json:"title"`
}

func (e RequestReceived) EventName() string { return "requests.received" }
