package consumer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"proctor/internal/platform/kafka/consumer"
	audit "proctor/pkg/platform/audit"
)

// EventWriter persists an event under a known ID. Writes must be idempotent
// because Kafka delivers at least once.
type EventWriter interface {
	AppendWithID(ctx context.Context, eventID uuid.UUID, event audit.Event) error
}

// Materializer writes relayed audit events into the audit_events table.
type Materializer struct {
	writer EventWriter
	logger *slog.Logger
}

func NewMaterializer(writer EventWriter, logger *slog.Logger) *Materializer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Materializer{writer: writer, logger: logger}
}

// Handle decodes one relayed event. Malformed payloads are logged and
// acknowledged; storage failures are returned so the batch is retried.
func (m *Materializer) Handle(ctx context.Context, msg *consumer.Message) error {
	event, err := audit.DecodePayload(msg.Value)
	if err != nil {
		m.logger.ErrorContext(ctx, "failed to decode audit payload",
			"topic", msg.Topic,
			"offset", msg.Offset,
			"error", err,
		)
		return nil
	}
	eventID := uuid.UUID(event.ID)
	if eventID == uuid.Nil {
		m.logger.ErrorContext(ctx, "audit payload missing event id",
			"action", event.Action,
			"offset", msg.Offset,
		)
		return nil
	}
	if event.Category == audit.CategoryCompliance && event.SessionID.IsNil() && event.TestSessionID.IsNil() {
		m.logger.ErrorContext(ctx, "CRITICAL: compliance event missing session identifiers",
			"event_id", eventID,
			"action", event.Action,
		)
		return nil
	}

	if err := m.writer.AppendWithID(ctx, eventID, event); err != nil {
		return fmt.Errorf("materialize audit event %s: %w", eventID, err)
	}
	return nil
}
