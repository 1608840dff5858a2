// Package jobs provides the job bounded context module.
package jobs

import (
	"fieldservice_backend/internal/audit"
	"fieldservice_backend/internal/events"
	apphttp "fieldservice_backend/internal/http"
	"fieldservice_backend/internal/jobs/handler"
	"fieldservice_backend/internal/jobs/repository"
	"fieldservice_backend/internal/jobs/service"
	"fieldservice_backend/platform/logger"
	"fieldservice_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the jobs bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates and initializes the jobs module.
func NewModule(
	pool *pgxpool.Pool,
	quotes service.QuoteReader,
	durations service.DurationReader,
	visits service.VisitReader,
	recorder *audit.Recorder,
	bus events.Bus,
	val *validator.Validator,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, quotes, durations, visits, recorder, bus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "jobs"
}

// Service returns the service layer for cross-module wiring.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for cross-module adapters.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts job routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/jobs", m.handler.List)
	ctx.Protected.GET("/jobs/:id", m.handler.GetByID)
	ctx.Protected.POST("/quotes/:id/job", m.handler.CreateFromQuote)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
