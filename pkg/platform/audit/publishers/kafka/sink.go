// Package kafka publishes audit events directly to a Kafka topic. It is used
// when no Postgres outbox is configured.
package kafka

import (
	"context"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	audit "proctor/pkg/platform/audit"
)

// Producer is the subset of *kgo.Client the sink needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Sink writes each event as one record keyed by session so a session's
// events stay ordered within a partition.
type Sink struct {
	producer Producer
	topic    string
}

func NewSink(producer Producer, topic string) *Sink {
	return &Sink{producer: producer, topic: topic}
}

func (s *Sink) Append(ctx context.Context, event audit.Event) error {
	payload, err := audit.EncodePayload(event)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	key := event.Action
	switch {
	case !event.SessionID.IsNil():
		key = event.SessionID.String()
	case !event.TestSessionID.IsNil():
		key = event.TestSessionID.String()
	}

	category := event.Category
	if category == "" {
		category = audit.AuditEvent(event.Action).Category()
	}

	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(key),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(event.Action)},
			{Key: "category", Value: []byte(category)},
		},
	}
	if err := s.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}
