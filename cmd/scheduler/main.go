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
	"fieldservice_backend/internal/clients"
	"fieldservice_backend/internal/events"
	"fieldservice_backend/internal/quotes"
	"fieldservice_backend/internal/scheduler"
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
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	eventBus := events.NewInMemoryBus(log)
	recorder := audit.NewRecorder(audit.NewRepository(pool), log)
	val := validator.New()

	storageSvc, err := storage.NewMinIOService(cfg)
	if err != nil {
		log.Error("failed to initialize storage service", "error", err)
		panic("failed to initialize storage service: " + err.Error())
	}

	// Worker-side module wiring (no HTTP handlers required).
	clientsModule := clients.NewModule(pool, val)
	quoteContacts := contacts.NewQuoteContactAdapter(clientsModule.Repository())
	quotesModule := quotes.NewModule(pool, quoteContacts, recorder, eventBus, cfg, val, log)
	visitsModule := visits.NewModule(pool, storageSvc, cfg.GetMinioBucketVisitPhotos(), recorder, eventBus, val, log)

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = client.Close() }()

	interval := getDurationEnv("MAINTENANCE_INTERVAL", 5*time.Minute)
	enqueuer := scheduler.NewMaintenanceEnqueuer(client, log, interval)
	go enqueuer.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, quotesModule.Service(), visitsModule.Service(), log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
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

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}

	return parsed
}
