// Package compliance provides a fail-closed audit publisher for outcome events.
//
// Compliance events are written synchronously and the caller blocks until the
// write succeeds. If the write fails, an error is returned and the calling
// operation MUST fail: a certificate decision or an override that cannot be
// audited is not recorded.
//
// Use for: proctoring_session_stopped, certificate_decided, admin_override_recorded
package compliance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	audit "proctor/pkg/platform/audit"
)

// Publisher emits compliance events with fail-closed semantics.
type Publisher struct {
	sink    audit.Sink
	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets a logger for error reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// WithClock overrides the timestamp source for events that carry none.
func WithClock(now func() time.Time) Option {
	return func(p *Publisher) {
		p.now = now
	}
}

// New creates a compliance publisher.
// The sink should be outbox-backed in production for guaranteed delivery.
func New(sink audit.Sink, opts ...Option) *Publisher {
	p := &Publisher{
		sink: sink,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit synchronously writes a compliance event to the sink.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	start := time.Now()

	if event.Action == "" {
		return fmt.Errorf("compliance event requires Action")
	}
	if event.SessionID.IsNil() && event.TestSessionID.IsNil() {
		return fmt.Errorf("compliance event requires SessionID or TestSessionID")
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	event.Category = audit.CategoryCompliance

	if err := p.sink.Append(ctx, event); err != nil {
		p.metrics.IncPersistFailures()
		if p.logger != nil {
			p.logger.ErrorContext(ctx, "CRITICAL: compliance audit failed",
				"action", event.Action,
				"session_id", event.SessionID,
				"test_session_id", event.TestSessionID,
				"error", err,
			)
		}
		return fmt.Errorf("compliance audit persistence failed: %w", err)
	}

	p.metrics.ObservePersistDuration(time.Since(start).Seconds())
	p.metrics.IncEventsEmitted()
	return nil
}

// Close is a no-op for the synchronous compliance publisher.
func (p *Publisher) Close() error {
	return nil
}
