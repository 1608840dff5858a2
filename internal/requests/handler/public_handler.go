package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fieldservice_backend/internal/requests/service"
	"fieldservice_backend/internal/requests/transport"
	"fieldservice_backend/platform/httpkit"
	"fieldservice_backend/platform/validator"
)

// PublicHandler handles unauthenticated request intake from the public
// booking form. The submitter is identified by email only; the payload
// carries the tenant the form belongs to.
type PublicHandler struct {
	svc *service.Service
	val *validator.Validator
}

// NewPublicHandler creates a new public intake handler.
func NewPublicHandler(svc *service.Service, val *validator.Validator) *PublicHandler {
	return &PublicHandler{svc: svc, val: val}
}

// Intake handles POST /api/v1/public/requests
func (h *PublicHandler) Intake(c *gin.Context) {
	var req transport.IntakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Intake(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}
