// Package clients provides the clients bounded context module.
package clients

import (
	"fieldservice_backend/internal/clients/handler"
	"fieldservice_backend/internal/clients/repository"
	"fieldservice_backend/internal/clients/service"
	apphttp "fieldservice_backend/internal/http"
	"fieldservice_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the clients bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates and initializes the clients module.
func NewModule(pool *pgxpool.Pool, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "clients"
}

// Repository returns the repository for cross-module adapters.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts client routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/clients", m.handler.List)
	ctx.Protected.GET("/clients/:id", m.handler.GetByID)
	ctx.Protected.POST("/clients", m.handler.Create)
	ctx.Protected.PUT("/clients/:id", m.handler.Update)
	ctx.Protected.GET("/clients/:id/properties", m.handler.ListProperties)
	ctx.Protected.POST("/clients/:id/properties", m.handler.CreateProperty)
	ctx.Protected.DELETE("/properties/:id", m.handler.DeleteProperty)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
