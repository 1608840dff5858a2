package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fieldservice_backend/internal/quotes/service"
	"fieldservice_backend/internal/quotes/transport"
	"fieldservice_backend/platform/httpkit"
	"fieldservice_backend/platform/validator"
)

// PublicHandler handles unauthenticated requests for the customer-facing
// quote link. The bearer token in the URL is the sole credential; it is
// resolved into a (tenant, quote, token) triple before any business logic.
type PublicHandler struct {
	svc *service.Service
	val *validator.Validator
}

// NewPublicHandler creates a new public quotes handler.
func NewPublicHandler(svc *service.Service, val *validator.Validator) *PublicHandler {
	return &PublicHandler{svc: svc, val: val}
}

// GetQuote handles GET /api/v1/public/quotes/:token
func (h *PublicHandler) GetQuote(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		httpkit.Error(c, http.StatusBadRequest, "token is required", nil)
		return
	}

	resolved, err := h.svc.ResolveToken(c.Request.Context(), token)
	if httpkit.HandleError(c, err) {
		return
	}

	result, err := h.svc.GetPublic(c.Request.Context(), resolved.TenantID, resolved.QuoteID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Respond handles POST /api/v1/public/quotes/:token/respond
func (h *PublicHandler) Respond(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		httpkit.Error(c, http.StatusBadRequest, "token is required", nil)
		return
	}

	var req transport.RespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	resolved, err := h.svc.ResolveToken(c.Request.Context(), token)
	if httpkit.HandleError(c, err) {
		return
	}

	result, err := h.svc.Respond(c.Request.Context(), resolved.TenantID, resolved.QuoteID, resolved.TokenID, req.Action)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
