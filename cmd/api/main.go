package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fieldservice_backend/internal/adapters/contacts"
	"fieldservice_backend/internal/adapters/storage"
	"fieldservice_backend/internal/audit"
	"fieldservice_backend/internal/catalog"
	"fieldservice_backend/internal/clients"
	"fieldservice_backend/internal/email"
	"fieldservice_backend/internal/events"
	apphttp "fieldservice_backend/internal/http"
	"fieldservice_backend/internal/http/router"
	"fieldservice_backend/internal/jobs"
	"fieldservice_backend/internal/notification"
	"fieldservice_backend/internal/quotes"
	"fieldservice_backend/internal/requests"
	"fieldservice_backend/internal/visits"
	"fieldservice_backend/platform/config"
	"fieldservice_backend/platform/db"
	"fieldservice_backend/platform/logger"
	"fieldservice_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Best-effort audit trail over the audit_events table
	recorder := audit.NewRecorder(audit.NewRepository(pool), log)

	// Shared validator instance for dependency injection
	val := validator.New()

	// Storage service for visit photo uploads (MinIO)
	storageSvc, err := storage.NewMinIOService(cfg)
	if err != nil {
		log.Error("failed to initialize storage service", "error", err)
		panic("failed to initialize storage service: " + err.Error())
	}
	photoBucket := cfg.GetMinioBucketVisitPhotos()
	if err := withRetry(ctx, log, "ensure visit photo bucket", 5, 2*time.Second, func() error {
		return storageSvc.EnsureBucketExists(ctx, photoBucket)
	}); err != nil {
		log.Error("failed to ensure storage bucket exists", "error", err, "bucket", photoBucket)
		panic("failed to ensure storage bucket exists: " + err.Error())
	}
	log.Info("storage service initialized", "visitPhotosBucket", photoBucket)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	clientsModule := clients.NewModule(pool, val)
	catalogModule := catalog.NewModule(pool, val)

	quoteContacts := contacts.NewQuoteContactAdapter(clientsModule.Repository())
	quotesModule := quotes.NewModule(pool, quoteContacts, recorder, eventBus, cfg, val, log)

	visitsModule := visits.NewModule(pool, storageSvc, photoBucket, recorder, eventBus, val, log)

	jobsModule := jobs.NewModule(pool, quotesModule.Repository(), catalogModule.Repository(), visitsModule.Repository(), recorder, eventBus, val, log)

	intakeClients := contacts.NewIntakeClientAdapter(clientsModule.Repository())
	requestsModule := requests.NewModule(pool, intakeClients, quotesModule.Service(), recorder, eventBus, val, log)

	// Notification module subscribes to domain events (not HTTP-facing)
	notificationContacts := contacts.NewNotificationContactAdapter(clientsModule.Repository())
	notificationModule := notification.New(newSender(cfg, log), notificationContacts, log)
	notificationModule.RegisterHandlers(eventBus)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			clientsModule,
			catalogModule,
			requestsModule,
			quotesModule,
			jobsModule,
			visitsModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func newSender(cfg *config.Config, log *logger.Logger) email.Sender {
	if !cfg.IsEmailEnabled() {
		log.Warn("email delivery disabled; outbound mail will be discarded")
		return email.NoopSender{}
	}
	return email.NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
