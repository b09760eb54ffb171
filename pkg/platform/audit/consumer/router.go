// Package consumer materializes audit events relayed through Kafka into the
// queryable audit store.
package consumer

import (
	"context"
	"log/slog"

	"proctor/internal/platform/kafka/consumer"
)

// Router sends each record to the handler registered for its topic. Records
// for unknown topics go to the fallback, or are logged and committed when
// there is none so a stray topic cannot wedge the group.
type Router struct {
	byTopic  map[string]consumer.Handler
	fallback consumer.Handler
	logger   *slog.Logger
}

func NewRouter(logger *slog.Logger, fallback consumer.Handler) *Router {
	return &Router{byTopic: map[string]consumer.Handler{}, fallback: fallback, logger: logger}
}

// Register binds topic to h. Registering a topic twice replaces the handler.
func (r *Router) Register(topic string, h consumer.Handler) {
	r.byTopic[topic] = h
}

func (r *Router) Handle(ctx context.Context, msg *consumer.Message) error {
	if h, ok := r.byTopic[msg.Topic]; ok {
		return h.Handle(ctx, msg)
	}
	if r.fallback != nil {
		return r.fallback.Handle(ctx, msg)
	}
	r.logger.WarnContext(ctx, "audit record on unrouted topic",
		"topic", msg.Topic,
		"partition", msg.Partition,
		"offset", msg.Offset,
	)
	return nil
}
