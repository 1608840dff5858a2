// Package audit provides the append-only audit trail. Events are a write-only
// side channel: the core never reads them back, and recording failures are
// logged and swallowed so they can never fail the operation being audited.
package audit

import (
	"context"

	"fieldservice_backend/platform/logger"

	"github.com/google/uuid"
)

// Principal types attached to audit events.
const (
	PrincipalUser     = "user"
	PrincipalExternal = "external"
	PrincipalSystem   = "system"
)

// Event is a single immutable audit record.
type Event struct {
	TenantID      uuid.UUID
	PrincipalType string
	PrincipalID   string
	EventName     string
	SubjectType   string
	SubjectID     uuid.UUID
	CorrelationID uuid.UUID
	Metadata      map[string]any
}

// Sink persists audit events.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Recorder writes audit events best-effort.
type Recorder struct {
	sink Sink
	log  *logger.Logger
}

// NewRecorder creates a recorder over the given sink.
func NewRecorder(sink Sink, log *logger.Logger) *Recorder {
	return &Recorder{sink: sink, log: log}
}

// Record appends the event. Failures are logged and discarded; the caller's
// operation has already succeeded and must not be reported as failed because
// its trail lagged.
func (r *Recorder) Record(ctx context.Context, event Event) {
	if r == nil || r.sink == nil {
		return
	}
	if err := r.sink.Append(context.WithoutCancel(ctx), event); err != nil && r.log != nil {
		r.log.SideEffectError("audit:"+event.EventName, err)
	}
}
