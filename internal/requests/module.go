// Package requests provides the service-request intake bounded context module.
package requests

import (
	"fieldservice_backend/internal/audit"
	"fieldservice_backend/internal/events"
	apphttp "fieldservice_backend/internal/http"
	"fieldservice_backend/internal/requests/handler"
	"fieldservice_backend/internal/requests/repository"
	"fieldservice_backend/internal/requests/service"
	"fieldservice_backend/platform/logger"
	"fieldservice_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the requests bounded context module implementing http.Module.
type Module struct {
	handler       *handler.Handler
	publicHandler *handler.PublicHandler
	service       *service.Service
	repo          *repository.Repository
}

// NewModule creates and initializes the requests module.
func NewModule(
	pool *pgxpool.Pool,
	clients service.ClientResolver,
	quotes service.QuoteCreator,
	recorder *audit.Recorder,
	bus events.Bus,
	val *validator.Validator,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, clients, quotes, recorder, bus, log)
	h := handler.New(svc, val)
	ph := handler.NewPublicHandler(svc, val)

	return &Module{
		handler:       h,
		publicHandler: ph,
		service:       svc,
		repo:          repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "requests"
}

// Service returns the service layer for cross-module wiring.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for cross-module adapters.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts request routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/requests", m.handler.List)
	ctx.Protected.GET("/requests/:id", m.handler.GetByID)
	ctx.Protected.POST("/requests", m.handler.Create)
	ctx.Protected.POST("/requests/:id/convert", m.handler.Convert)

	ctx.Public.POST("/requests", m.publicHandler.Intake)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
