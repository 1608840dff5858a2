package transport

import (
	"time"

	quotestransport "fieldservice_backend/internal/quotes/transport"
	visitstransport "fieldservice_backend/internal/visits/transport"

	"github.com/google/uuid"
)

// JobStatus values. Job status is derived from the job's visits and is never
// set directly through the API.
type JobStatus string

const (
	StatusScheduled  JobStatus = "scheduled"
	StatusInProgress JobStatus = "in_progress"
	StatusCompleted  JobStatus = "completed"
	StatusCancelled  JobStatus = "cancelled"
)

// JobResponse is the API representation of a job.
type JobResponse struct {
	ID         uuid.UUID  `json:"id"`
	QuoteID    uuid.UUID  `json:"quoteId"`
	ClientID   uuid.UUID  `json:"clientId"`
	PropertyID *uuid.UUID `json:"propertyId,omitempty"`
	Title      string     `json:"title"`
	Status     JobStatus  `json:"status"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// CreateFromQuoteResponse is the result of confirming a quote. AlreadyExisted
// reports whether the job had been created by an earlier call, in which case
// the existing job and visit are returned unchanged.
type CreateFromQuoteResponse struct {
	Job                      JobResponse                     `json:"job"`
	Visit                    visitstransport.VisitResponse   `json:"visit"`
	Quote                    quotestransport.QuoteResponse   `json:"quote"`
	SuggestedDurationMinutes int32                           `json:"suggestedDurationMinutes"`
	AlreadyExisted           bool                            `json:"alreadyExisted"`
}

// JobDetailResponse is a job together with all of its visits.
type JobDetailResponse struct {
	Job    JobResponse                     `json:"job"`
	Visits []visitstransport.VisitResponse `json:"visits"`
}
