package transport

import (
	"time"

	"fieldservice_backend/internal/adapters/storage"

	"github.com/google/uuid"
)

// CreateVisitRequest adds a follow-up visit to an existing job.
type CreateVisitRequest struct {
	JobID                    uuid.UUID  `json:"jobId" binding:"required"`
	AssignedUserID           *uuid.UUID `json:"assignedUserId"`
	ScheduledStart           *time.Time `json:"scheduledStart"`
	ScheduledEnd             *time.Time `json:"scheduledEnd"`
	EstimatedDurationMinutes int32      `json:"estimatedDurationMinutes" binding:"required,min=1"`
	Notes                    *string    `json:"notes"`
}

// UpdateScheduleRequest reschedules or reassigns a visit.
type UpdateScheduleRequest struct {
	ScheduledStart *time.Time `json:"scheduledStart"`
	ScheduledEnd   *time.Time `json:"scheduledEnd"`
	AssignedUserID *uuid.UUID `json:"assignedUserId"`
}

// TransitionRequest moves a visit to a new status.
type TransitionRequest struct {
	Status string `json:"status" binding:"required,oneof=en_route started completed cancelled"`
}

// NotesRequest replaces the free-form notes on a visit.
type NotesRequest struct {
	Notes string `json:"notes" binding:"required"`
}

// VisitResponse is the API representation of a visit.
type VisitResponse struct {
	ID                       uuid.UUID  `json:"id"`
	JobID                    uuid.UUID  `json:"jobId"`
	AssignedUserID           *uuid.UUID `json:"assignedUserId,omitempty"`
	ScheduledStart           *time.Time `json:"scheduledStart,omitempty"`
	ScheduledEnd             *time.Time `json:"scheduledEnd,omitempty"`
	EstimatedDurationMinutes int32      `json:"estimatedDurationMinutes"`
	Status                   string     `json:"status"`
	Notes                    *string    `json:"notes,omitempty"`
	CompletedAt              *time.Time `json:"completedAt,omitempty"`
	CreatedAt                time.Time  `json:"createdAt"`
	UpdatedAt                time.Time  `json:"updatedAt"`
}

// CreatePhotoRequest registers an intended photo upload for a visit.
type CreatePhotoRequest struct {
	FileName    string `json:"fileName" binding:"required"`
	ContentType string `json:"contentType" binding:"required"`
	SizeBytes   int64  `json:"sizeBytes" binding:"required,min=1"`
}

// PhotoResponse is the API representation of a visit photo.
type PhotoResponse struct {
	ID          uuid.UUID `json:"id"`
	VisitID     uuid.UUID `json:"visitId"`
	FileName    string    `json:"fileName"`
	ContentType string    `json:"contentType"`
	SizeBytes   *int64    `json:"sizeBytes,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CreatePhotoResponse pairs the pending photo row with the presigned upload
// authorization the client must use to push the binary.
type CreatePhotoResponse struct {
	Photo  PhotoResponse         `json:"photo"`
	Upload *storage.PresignedURL `json:"upload"`
}

// PhotoWithURLResponse pairs a ready photo with a time-limited download URL.
type PhotoWithURLResponse struct {
	Photo       PhotoResponse `json:"photo"`
	DownloadURL string        `json:"downloadUrl"`
	URLExpires  time.Time     `json:"urlExpires"`
}
