package worker

import (
	"context"
	"log/slog"

	audit "proctor/pkg/platform/audit"
)

// Worker drains audit events from a channel into a sink. It returns when the
// inbox is closed or the context ends.
type Worker struct {
	sink   audit.Sink
	inbox  <-chan audit.Event
	logger *slog.Logger
	onFail func()
}

type Option func(*Worker)

// WithLogger reports append failures instead of dropping them silently.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) { w.logger = logger }
}

// WithFailureHook is called once per failed append, typically a metric.
func WithFailureHook(fn func()) Option {
	return func(w *Worker) { w.onFail = fn }
}

func NewWorker(sink audit.Sink, inbox <-chan audit.Event, opts ...Option) *Worker {
	w := &Worker{sink: sink, inbox: inbox}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.inbox:
			if !ok {
				return nil
			}
			if err := w.sink.Append(ctx, event); err != nil {
				if w.onFail != nil {
					w.onFail()
				}
				if w.logger != nil {
					w.logger.ErrorContext(ctx, "audit append failed",
						"action", event.Action,
						"session_id", event.SessionID,
						"error", err,
					)
				}
			}
		}
	}
}
