package audit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "proctor/pkg/domain"
)

// payload is the JSON wire form of an Event, shared by the outbox and the
// Kafka sink.
type payload struct {
	ID            string   `json:"id"`
	Category      string   `json:"category"`
	Timestamp     string   `json:"timestamp"`
	UserID        string   `json:"user_id,omitempty"`
	SessionID     string   `json:"session_id,omitempty"`
	TestSessionID string   `json:"test_session_id,omitempty"`
	Action        string   `json:"action"`
	Subject       string   `json:"subject,omitempty"`
	Severity      int      `json:"severity,omitempty"`
	Score         *float64 `json:"score,omitempty"`
	Decision      string   `json:"decision,omitempty"`
	Reason        string   `json:"reason,omitempty"`
	RequestID     string   `json:"request_id,omitempty"`
	ActorID       string   `json:"actor_id,omitempty"`
}

// EncodePayload renders event as JSON, assigning an ID when missing.
func EncodePayload(event Event) ([]byte, error) {
	eventID := uuid.UUID(event.ID)
	if eventID == uuid.Nil {
		eventID = uuid.New()
	}
	category := event.Category
	if category == "" {
		category = AuditEvent(event.Action).Category()
	}

	p := payload{
		ID:        eventID.String(),
		Category:  string(category),
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
		Action:    event.Action,
		Subject:   event.Subject,
		Severity:  event.Severity,
		Score:     event.Score,
		Decision:  event.Decision,
		Reason:    event.Reason,
		RequestID: event.RequestID,
		ActorID:   event.ActorID,
	}
	if !event.UserID.IsNil() {
		p.UserID = event.UserID.String()
	}
	if !event.SessionID.IsNil() {
		p.SessionID = event.SessionID.String()
	}
	if !event.TestSessionID.IsNil() {
		p.TestSessionID = event.TestSessionID.String()
	}
	return json.Marshal(p)
}

// DecodePayload parses the JSON wire form back into an Event.
func DecodePayload(data []byte) (Event, error) {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Event{}, err
	}
	event := Event{
		Category:  EventCategory(p.Category),
		Action:    p.Action,
		Subject:   p.Subject,
		Severity:  p.Severity,
		Score:     p.Score,
		Decision:  p.Decision,
		Reason:    p.Reason,
		RequestID: p.RequestID,
		ActorID:   p.ActorID,
	}
	if p.ID != "" {
		u, err := uuid.Parse(p.ID)
		if err != nil {
			return Event{}, fmt.Errorf("parse event id: %w", err)
		}
		event.ID = id.EventID(u)
	}
	if p.Timestamp != "" {
		ts, err := time.Parse(time.RFC3339Nano, p.Timestamp)
		if err != nil {
			return Event{}, fmt.Errorf("parse timestamp: %w", err)
		}
		event.Timestamp = ts
	}
	if p.UserID != "" {
		u, err := uuid.Parse(p.UserID)
		if err != nil {
			return Event{}, fmt.Errorf("parse user id: %w", err)
		}
		event.UserID = id.UserID(u)
	}
	if p.SessionID != "" {
		u, err := uuid.Parse(p.SessionID)
		if err != nil {
			return Event{}, fmt.Errorf("parse session id: %w", err)
		}
		event.SessionID = id.SessionID(u)
	}
	if p.TestSessionID != "" {
		u, err := uuid.Parse(p.TestSessionID)
		if err != nil {
			return Event{}, fmt.Errorf("parse test session id: %w", err)
		}
		event.TestSessionID = id.TestSessionID(u)
	}
	return event, nil
}
