package scheduler

import (
	"context"
	"time"

	"fieldservice_backend/platform/logger"
)

const defaultMaintenanceInterval = 5 * time.Minute

// MaintenanceEnqueuer periodically queues the recurring maintenance tasks.
type MaintenanceEnqueuer struct {
	client   *Client
	log      *logger.Logger
	interval time.Duration
}

func NewMaintenanceEnqueuer(client *Client, log *logger.Logger, interval time.Duration) *MaintenanceEnqueuer {
	if interval <= 0 {
		interval = defaultMaintenanceInterval
	}
	return &MaintenanceEnqueuer{
		client:   client,
		log:      log,
		interval: interval,
	}
}

func (e *MaintenanceEnqueuer) Run(ctx context.Context) {
	if e == nil || e.client == nil {
		return
	}

	e.enqueue(ctx)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.enqueue(ctx)
		}
	}
}

func (e *MaintenanceEnqueuer) enqueue(ctx context.Context) {
	if err := e.client.EnqueueQuoteExpiry(ctx); err != nil {
		e.log.SideEffectError("scheduler:quote_expiry", err)
	}
	if err := e.client.EnqueuePhotoSweep(ctx); err != nil {
		e.log.SideEffectError("scheduler:photo_sweep", err)
	}
}
