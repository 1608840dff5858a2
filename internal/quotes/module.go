// Package quotes provides the quote lifecycle bounded context module.
package quotes

import (
	"fieldservice_backend/internal/audit"
	"fieldservice_backend/internal/events"
	apphttp "fieldservice_backend/internal/http"
	"fieldservice_backend/internal/quotes/handler"
	"fieldservice_backend/internal/quotes/repository"
	"fieldservice_backend/internal/quotes/service"
	"fieldservice_backend/platform/config"
	"fieldservice_backend/platform/logger"
	"fieldservice_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the quotes bounded context module implementing http.Module.
type Module struct {
	handler       *handler.Handler
	publicHandler *handler.PublicHandler
	service       *service.Service
	repo          *repository.Repository
}

// NewModule creates and initializes the quotes module.
func NewModule(
	pool *pgxpool.Pool,
	contacts service.ContactReader,
	recorder *audit.Recorder,
	bus events.Bus,
	cfg config.PublicLinkConfig,
	val *validator.Validator,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, contacts, recorder, bus, cfg, log)
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
	return "quotes"
}

// Service returns the service layer for cross-module wiring.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for cross-module adapters.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts quote routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/quotes", m.handler.List)
	ctx.Protected.GET("/quotes/:id", m.handler.GetByID)
	ctx.Protected.POST("/quotes", m.handler.Create)
	ctx.Protected.PUT("/quotes/:id", m.handler.Update)
	ctx.Protected.POST("/quotes/:id/send", m.handler.Send)

	public := ctx.Public.Group("/quotes")
	public.GET("/:token", m.publicHandler.GetQuote)
	public.POST("/:token/respond", m.publicHandler.Respond)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
