// Package scheduler runs background maintenance through asynq: expiring
// overdue quotes and sweeping stale pending photo uploads.
package scheduler

import (
	"github.com/hibiken/asynq"
)

// TaskQuoteExpireDue marks sent quotes whose validity window has passed
// as expired.
const TaskQuoteExpireDue = "quote.expire_due"

// TaskPhotoSweepStale removes pending photo uploads that were never
// confirmed.
const TaskPhotoSweepStale = "photo.sweep_stale"

// NewQuoteExpireDueTask creates a quote expiry task. It carries no payload;
// the handler scans for all due quotes.
func NewQuoteExpireDueTask() *asynq.Task {
	return asynq.NewTask(TaskQuoteExpireDue, nil)
}

// NewPhotoSweepStaleTask creates a stale photo sweep task. It carries no
// payload; the handler scans for all stale uploads.
func NewPhotoSweepStaleTask() *asynq.Task {
	return asynq.NewTask(TaskPhotoSweepStale, nil)
}
