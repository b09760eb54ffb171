// Package publisher emits audit events to a sink, synchronously or through a
// bounded buffer drained by a background worker.
package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	id "proctor/pkg/domain"
	audit "proctor/pkg/platform/audit"
	"proctor/pkg/platform/audit/worker"
)

var (
	errBufferFull   = errors.New("audit buffer full")
	errClosed       = errors.New("audit publisher closed")
	errNotQueryable = errors.New("audit sink does not support queries")
)

// Sampler decides whether an event with the given action is kept.
type Sampler interface {
	ShouldSample(action string) bool
}

type Publisher struct {
	sink    audit.Sink
	logger  *slog.Logger
	sampler Sampler
	onDrop  func()
	onFail  func()

	bufferSize int
	mu         sync.RWMutex
	closed     bool
	inbox      chan audit.Event
	done       chan struct{}
}

type Option func(*Publisher)

// WithAsyncBuffer enables asynchronous emission with a bounded buffer.
// Emit never blocks; it fails with "audit buffer full" instead.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.bufferSize = size
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

// WithSampler drops events whose action the sampler rejects.
func WithSampler(s Sampler) Option {
	return func(p *Publisher) { p.sampler = s }
}

// WithDropHook is called for every event rejected because the buffer is full.
func WithDropHook(fn func()) Option {
	return func(p *Publisher) { p.onDrop = fn }
}

// WithFailureHook is called for every event the sink failed to store. It
// only applies to asynchronous publishers.
func WithFailureHook(fn func()) Option {
	return func(p *Publisher) { p.onFail = fn }
}

func NewPublisher(sink audit.Sink, opts ...Option) *Publisher {
	p := &Publisher{sink: sink}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufferSize > 0 {
		p.inbox = make(chan audit.Event, p.bufferSize)
		p.done = make(chan struct{})
		var wopts []worker.Option
		if p.logger != nil {
			wopts = append(wopts, worker.WithLogger(p.logger))
		}
		if p.onFail != nil {
			wopts = append(wopts, worker.WithFailureHook(p.onFail))
		}
		w := worker.NewWorker(sink, p.inbox, wopts...)
		go func() {
			defer close(p.done)
			_ = w.Run(context.Background())
		}()
	}
	return p
}

// Emit fills in defaults and hands the event to the sink.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.ID == (id.EventID{}) {
		event.ID = id.NewEventID()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}
	if p.sampler != nil && !p.sampler.ShouldSample(event.Action) {
		return nil
	}

	if p.inbox == nil {
		return p.sink.Append(ctx, event)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return errClosed
	}
	select {
	case p.inbox <- event:
		return nil
	default:
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.onDrop != nil {
		p.onDrop()
	}
	if p.logger != nil {
		p.logger.WarnContext(ctx, "audit event dropped, buffer full",
			"action", event.Action,
			"session_id", event.SessionID,
		)
	}
	return errBufferFull
}

// List returns events for a user when the sink is queryable.
func (p *Publisher) List(ctx context.Context, userID id.UserID) ([]audit.Event, error) {
	store, ok := p.sink.(audit.Store)
	if !ok {
		return nil, errNotQueryable
	}
	return store.ListByUser(ctx, userID)
}

// ListBySession returns events for one proctoring session when the sink is queryable.
func (p *Publisher) ListBySession(ctx context.Context, sessionID id.SessionID) ([]audit.Event, error) {
	store, ok := p.sink.(audit.Store)
	if !ok {
		return nil, errNotQueryable
	}
	return store.ListBySession(ctx, sessionID)
}

// Close stops accepting events and waits until the buffer has drained.
func (p *Publisher) Close() {
	if p.inbox == nil {
		return
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.inbox)
	p.mu.Unlock()
	<-p.done
}
