package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"fieldservice_backend/internal/jobs/service"
	"fieldservice_backend/platform/httpkit"
	"fieldservice_backend/platform/validator"
)

const msgInvalidJobID = "invalid job ID"

// Handler handles HTTP requests for jobs.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new jobs handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// List retrieves jobs with optional client/status filters.
// GET /api/v1/jobs
func (h *Handler) List(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	tenantID, ok := mustGetTenantID(c, identity)
	if !ok {
		return
	}

	var clientID *uuid.UUID
	if raw := c.Query("clientId"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid client ID", nil)
			return
		}
		clientID = &parsed
	}
	var status *string
	if raw := c.Query("status"); raw != "" {
		status = &raw
	}

	result, err := h.svc.List(c.Request.Context(), tenantID, clientID, status)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GetByID retrieves a job with its visits.
// GET /api/v1/jobs/:id
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidJobID, nil)
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	tenantID, ok := mustGetTenantID(c, identity)
	if !ok {
		return
	}

	result, err := h.svc.GetByID(c.Request.Context(), tenantID, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// CreateFromQuote confirms an approved quote into a job. Safe to retry: a
// repeat for the same quote returns the existing job with 200 instead of 201.
// POST /api/v1/quotes/:id/job
func (h *Handler) CreateFromQuote(c *gin.Context) {
	quoteID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid quote ID", nil)
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	tenantID, ok := mustGetTenantID(c, identity)
	if !ok {
		return
	}

	result, err := h.svc.CreateFromQuote(c.Request.Context(), tenantID, identity.UserID(), quoteID)
	if httpkit.HandleError(c, err) {
		return
	}
	if result.AlreadyExisted {
		httpkit.OK(c, result)
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

func mustGetTenantID(c *gin.Context, identity httpkit.Identity) (uuid.UUID, bool) {
	tenantID := identity.TenantID()
	if tenantID == nil {
		httpkit.Error(c, http.StatusBadRequest, "tenant ID is required", nil)
		return uuid.UUID{}, false
	}
	return *tenantID, true
}
