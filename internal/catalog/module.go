// Package catalog provides the service item catalog bounded context module.
package catalog

import (
	"fieldservice_backend/internal/catalog/handler"
	"fieldservice_backend/internal/catalog/repository"
	"fieldservice_backend/internal/catalog/service"
	apphttp "fieldservice_backend/internal/http"
	"fieldservice_backend/platform/httpkit"
	"fieldservice_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the catalog bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates and initializes the catalog module.
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
	return "catalog"
}

// Repository returns the repository for cross-module adapters.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts catalog routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/catalog/items", m.handler.List)
	ctx.Protected.GET("/catalog/items/:id", m.handler.GetByID)

	admin := ctx.Protected.Group("/catalog", httpkit.RequireRole("owner", "admin"))
	admin.POST("/items", m.handler.Create)
	admin.PUT("/items/:id", m.handler.Update)
	admin.DELETE("/items/:id", m.handler.Delete)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
