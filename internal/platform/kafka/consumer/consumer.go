// Package consumer runs a poll loop over a franz-go consumer group client and
// hands each record to a Handler.
package consumer

import (
	"context"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Message is the transport-independent view of a consumed record.
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// Handler processes one message. Returning an error leaves the batch
// uncommitted; malformed messages should be logged and acknowledged with nil.
type Handler interface {
	Handle(ctx context.Context, msg *Message) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, msg *Message) error

func (f HandlerFunc) Handle(ctx context.Context, msg *Message) error { return f(ctx, msg) }

// Poller is the subset of *kgo.Client the consumer needs.
type Poller interface {
	PollFetches(ctx context.Context) kgo.Fetches
	CommitUncommittedOffsets(ctx context.Context) error
}

type Consumer struct {
	client  Poller
	handler Handler
	logger  *slog.Logger
}

func New(client Poller, handler Handler, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{client: client, handler: handler, logger: logger}
}

// FromRecord converts a franz-go record into a Message.
func FromRecord(r *kgo.Record) *Message {
	headers := make(map[string]string, len(r.Headers))
	for _, h := range r.Headers {
		headers[h.Key] = string(h.Value)
	}
	return &Message{
		Topic:     r.Topic,
		Partition: r.Partition,
		Offset:    r.Offset,
		Key:       r.Key,
		Value:     r.Value,
		Headers:   headers,
		Timestamp: r.Timestamp,
	}
}

// Run polls until ctx is cancelled or the client is closed.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		for _, fe := range fetches.Errors() {
			c.logger.WarnContext(ctx, "kafka fetch error",
				"topic", fe.Topic,
				"partition", fe.Partition,
				"error", fe.Err,
			)
		}

		failed := false
		fetches.EachRecord(func(r *kgo.Record) {
			if failed {
				return
			}
			if err := c.handler.Handle(ctx, FromRecord(r)); err != nil {
				failed = true
				c.logger.ErrorContext(ctx, "kafka handler failed",
					"topic", r.Topic,
					"offset", r.Offset,
					"error", err,
				)
			}
		})
		if failed {
			continue
		}
		if err := c.client.CommitUncommittedOffsets(ctx); err != nil {
			c.logger.WarnContext(ctx, "kafka commit failed", "error", err)
		}
	}
}
