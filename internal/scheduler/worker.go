package scheduler

import (
	"context"
	"fmt"

	"fieldservice_backend/platform/config"
	"fieldservice_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// QuoteExpirer flips sent quotes past their validity window to expired.
// Implemented by the quotes service.
type QuoteExpirer interface {
	ExpireDue(ctx context.Context) (int64, error)
}

// PhotoSweeper deletes stale pending photo uploads and their objects.
// Implemented by the visits service.
type PhotoSweeper interface {
	SweepStalePhotos(ctx context.Context) (int, error)
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	quotes QuoteExpirer
	photos PhotoSweeper
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, quotes QuoteExpirer, photos PhotoSweeper, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		quotes: quotes,
		photos: photos,
		log:    log,
	}

	mux.HandleFunc(TaskQuoteExpireDue, w.handleQuoteExpireDue)
	mux.HandleFunc(TaskPhotoSweepStale, w.handlePhotoSweepStale)

	return w, nil
}

func (w *Worker) handleQuoteExpireDue(ctx context.Context, _ *asynq.Task) error {
	expired, err := w.quotes.ExpireDue(ctx)
	if err != nil {
		return err
	}
	if expired > 0 {
		w.log.Info("expired overdue quotes", "count", expired)
	}
	return nil
}

func (w *Worker) handlePhotoSweepStale(ctx context.Context, _ *asynq.Task) error {
	swept, err := w.photos.SweepStalePhotos(ctx)
	if err != nil {
		return err
	}
	if swept > 0 {
		w.log.Info("swept stale pending photos", "count", swept)
	}
	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
