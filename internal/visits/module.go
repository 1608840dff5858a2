// Package visits provides the visit bounded context module: scheduling, the
// status state machine, and photo evidence.
package visits

import (
	"fieldservice_backend/internal/adapters/storage"
	"fieldservice_backend/internal/audit"
	"fieldservice_backend/internal/events"
	apphttp "fieldservice_backend/internal/http"
	"fieldservice_backend/internal/visits/handler"
	"fieldservice_backend/internal/visits/repository"
	"fieldservice_backend/internal/visits/service"
	"fieldservice_backend/platform/logger"
	"fieldservice_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the visits bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates and initializes the visits module.
func NewModule(
	pool *pgxpool.Pool,
	objectStorage storage.Service,
	photoBucket string,
	recorder *audit.Recorder,
	bus events.Bus,
	val *validator.Validator,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, objectStorage, photoBucket, recorder, bus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "visits"
}

// Service returns the service layer for cross-module wiring.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for cross-module adapters.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts visit routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/jobs/:id/visits", m.handler.ListByJob)

	ctx.Protected.POST("/visits", m.handler.Create)
	ctx.Protected.GET("/visits/:id", m.handler.GetByID)
	ctx.Protected.POST("/visits/:id/status", m.handler.Transition)
	ctx.Protected.PUT("/visits/:id/schedule", m.handler.UpdateSchedule)
	ctx.Protected.PUT("/visits/:id/notes", m.handler.SetNotes)

	ctx.Protected.GET("/visits/:id/photos", m.handler.ListPhotos)
	ctx.Protected.POST("/visits/:id/photos", m.handler.CreatePhoto)
	ctx.Protected.POST("/visits/:id/photos/:photoId/confirm", m.handler.ConfirmPhoto)
	ctx.Protected.DELETE("/visits/:id/photos/:photoId", m.handler.DeletePhoto)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
