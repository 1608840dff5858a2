package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"fieldservice_backend/internal/visits/service"
	"fieldservice_backend/internal/visits/transport"
	"fieldservice_backend/platform/httpkit"
	"fieldservice_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgInvalidVisitID   = "invalid visit ID"
	msgInvalidPhotoID   = "invalid photo ID"
	msgInvalidJobID     = "invalid job ID"
	msgTenantIDRequired = "tenant ID is required"
)

// Handler handles HTTP requests for visits.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new visits handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// ListByJob retrieves all visits for a job.
// GET /api/v1/jobs/:id/visits
func (h *Handler) ListByJob(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidJobID, nil)
		return
	}
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}

	result, err := h.svc.ListByJob(c.Request.Context(), tenantID, jobID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GetByID retrieves a visit.
// GET /api/v1/visits/:id
func (h *Handler) GetByID(c *gin.Context) {
	visitID, tenantID, _, ok := visitScope(c)
	if !ok {
		return
	}

	result, err := h.svc.GetByID(c.Request.Context(), tenantID, visitID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Create schedules a follow-up visit on an existing job.
// POST /api/v1/visits
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}

	result, err := h.svc.Create(c.Request.Context(), tenantID, identity.UserID(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// Transition moves a visit to a new status.
// POST /api/v1/visits/:id/status
func (h *Handler) Transition(c *gin.Context) {
	visitID, tenantID, identity, ok := visitScope(c)
	if !ok {
		return
	}
	var req transport.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	result, err := h.svc.TransitionStatus(c.Request.Context(), tenantID, identity.UserID(), identity.Role(), visitID, req.Status)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// UpdateSchedule reschedules or reassigns a visit.
// PUT /api/v1/visits/:id/schedule
func (h *Handler) UpdateSchedule(c *gin.Context) {
	visitID, tenantID, _, ok := visitScope(c)
	if !ok {
		return
	}
	var req transport.UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	result, err := h.svc.UpdateSchedule(c.Request.Context(), tenantID, visitID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// SetNotes replaces the notes on a visit.
// PUT /api/v1/visits/:id/notes
func (h *Handler) SetNotes(c *gin.Context) {
	visitID, tenantID, _, ok := visitScope(c)
	if !ok {
		return
	}
	var req transport.NotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	result, err := h.svc.SetNotes(c.Request.Context(), tenantID, visitID, req.Notes)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// CreatePhoto registers an intended photo upload.
// POST /api/v1/visits/:id/photos
func (h *Handler) CreatePhoto(c *gin.Context) {
	visitID, tenantID, identity, ok := visitScope(c)
	if !ok {
		return
	}
	var req transport.CreatePhotoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	result, err := h.svc.CreatePhoto(c.Request.Context(), tenantID, identity.UserID(), identity.Role(), visitID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// ConfirmPhoto marks an uploaded photo as ready.
// POST /api/v1/visits/:id/photos/:photoId/confirm
func (h *Handler) ConfirmPhoto(c *gin.Context) {
	visitID, tenantID, identity, ok := visitScope(c)
	if !ok {
		return
	}
	photoID, err := uuid.Parse(c.Param("photoId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidPhotoID, nil)
		return
	}

	result, err := h.svc.ConfirmPhoto(c.Request.Context(), tenantID, identity.UserID(), identity.Role(), visitID, photoID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ListPhotos retrieves the visit's ready photos with download URLs.
// GET /api/v1/visits/:id/photos
func (h *Handler) ListPhotos(c *gin.Context) {
	visitID, tenantID, identity, ok := visitScope(c)
	if !ok {
		return
	}

	result, err := h.svc.ListPhotos(c.Request.Context(), tenantID, identity.UserID(), identity.Role(), visitID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// DeletePhoto removes a photo and its storage object.
// DELETE /api/v1/visits/:id/photos/:photoId
func (h *Handler) DeletePhoto(c *gin.Context) {
	visitID, tenantID, identity, ok := visitScope(c)
	if !ok {
		return
	}
	photoID, err := uuid.Parse(c.Param("photoId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidPhotoID, nil)
		return
	}

	if httpkit.HandleError(c, h.svc.DeletePhoto(c.Request.Context(), tenantID, identity.UserID(), identity.Role(), visitID, photoID)) {
		return
	}
	c.Status(http.StatusNoContent)
}

// visitScope parses the visit ID and resolves the caller's tenant identity.
func visitScope(c *gin.Context) (visitID, tenantID uuid.UUID, identity httpkit.Identity, ok bool) {
	visitID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidVisitID, nil)
		return uuid.UUID{}, uuid.UUID{}, nil, false
	}
	identity = httpkit.MustGetIdentity(c)
	if identity == nil {
		return uuid.UUID{}, uuid.UUID{}, nil, false
	}
	tenant := identity.TenantID()
	if tenant == nil {
		httpkit.Error(c, http.StatusBadRequest, msgTenantIDRequired, nil)
		return uuid.UUID{}, uuid.UUID{}, nil, false
	}
	return visitID, *tenant, identity, true
}

func requireTenant(c *gin.Context) (uuid.UUID, bool) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return uuid.UUID{}, false
	}
	tenantID := identity.TenantID()
	if tenantID == nil {
		httpkit.Error(c, http.StatusBadRequest, msgTenantIDRequired, nil)
		return uuid.UUID{}, false
	}
	return *tenantID, true
}
