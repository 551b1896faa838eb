package service

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/verdanthq/gatehouse/internal/auth/domain"
	"github.com/verdanthq/gatehouse/internal/auth/store"
	"github.com/verdanthq/gatehouse/pkg/idx"
)

// AuditRecorder appends security events to the audit trail without ever
// blocking the authentication path. Events flow through a bounded buffer
// to a single writer goroutine; when the buffer is full the event is
// dropped and counted rather than stalling a login.
type AuditRecorder struct {
	Store  store.Store
	Logger *slog.Logger

	// BufferSize is the capacity of the event buffer. Zero means 256.
	BufferSize int

	// Now overrides the clock in tests. Nil means time.Now UTC.
	Now func() time.Time

	events  chan domain.AuditEvent
	stopCh  chan struct{}
	doneCh  chan struct{}
	dropped atomic.Uint64
}

func (r *AuditRecorder) clock() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now().UTC()
}

// Start launches the writer goroutine. Call Stop to flush and shut down.
func (r *AuditRecorder) Start() {
	size := r.BufferSize
	if size <= 0 {
		size = 256
	}

	r.events = make(chan domain.AuditEvent, size)
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})

	go r.run()
	r.Logger.Info("audit recorder started", "buffer_size", size)
}

// Stop drains buffered events and shuts the writer down.
func (r *AuditRecorder) Stop() {
	close(r.stopCh)
	<-r.doneCh

	if n := r.dropped.Load(); n > 0 {
		r.Logger.Warn("audit events dropped during lifetime", "count", n)
	}
	r.Logger.Info("audit recorder stopped")
}

// Record enqueues one event. Events without a resolved user are skipped;
// a full buffer drops the event rather than blocking the caller.
func (r *AuditRecorder) Record(userID string, action domain.AuditAction, sourceAddress string) {
	if userID == "" {
		return
	}

	event := domain.AuditEvent{
		ID:            idx.New().String(),
		UserID:        userID,
		Action:        action,
		SourceAddress: sourceAddress,
		OccurredAt:    r.clock(),
	}

	select {
	case r.events <- event:
	default:
		r.dropped.Add(1)
		r.Logger.Warn("audit buffer full, event dropped",
			"action", action, "user_id", userID)
	}
}

// Dropped returns how many events were discarded due to a full buffer.
func (r *AuditRecorder) Dropped() uint64 {
	return r.dropped.Load()
}

func (r *AuditRecorder) run() {
	defer close(r.doneCh)

	for {
		select {
		case event := <-r.events:
			r.write(event)
		case <-r.stopCh:
			// Drain whatever is still buffered before exiting.
			for {
				select {
				case event := <-r.events:
					r.write(event)
				default:
					return
				}
			}
		}
	}
}

func (r *AuditRecorder) write(event domain.AuditEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.Store.AuditEvents().Append(ctx, event); err != nil {
		r.Logger.Error("failed to append audit event",
			"action", event.Action, "user_id", event.UserID, "error", err)
	}
}

// RecentEvents returns the newest audit entries for one user.
func (r *AuditRecorder) RecentEvents(ctx context.Context, userID string, limit int) ([]domain.AuditEvent, error) {
	return r.Store.AuditEvents().ListByUser(ctx, userID, limit)
}
