package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	id "proctor/pkg/domain"
	audit "proctor/pkg/platform/audit"
	txcontext "proctor/pkg/platform/tx"

	"github.com/google/uuid"
)

// Store implements audit.Store using the transactional outbox pattern.
// Append writes to the outbox table so an event commits or rolls back with
// the business write that caused it. A relay publishes outbox rows to Kafka
// and AppendWithID materializes them into audit_events for querying.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL audit store that writes to the outbox.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Append writes an audit event to the outbox table for Kafka publishing.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	payloadBytes, err := audit.EncodePayload(event)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	aggregateType := "audit"
	aggregateID := uuid.UUID(event.ID).String()
	if !event.SessionID.IsNil() {
		aggregateType = "proctoring_session"
		aggregateID = event.SessionID.String()
	}

	query := `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		uuid.New(),
		aggregateType,
		aggregateID,
		event.Action,
		payloadBytes,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// AppendWithID inserts an event into audit_events with a specific ID.
// Idempotent: duplicate inserts are ignored via ON CONFLICT DO NOTHING.
func (s *Store) AppendWithID(ctx context.Context, eventID uuid.UUID, event audit.Event) error {
	query := `
		INSERT INTO audit_events (
			id, category, timestamp, user_id, session_id, test_session_id,
			action, subject, severity, score, decision, reason,
			request_id, actor_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := s.execer(ctx).ExecContext(ctx, query,
		eventID,
		string(event.Category),
		event.Timestamp,
		nullableUUID(uuid.UUID(event.UserID)),
		nullableUUID(uuid.UUID(event.SessionID)),
		nullableUUID(uuid.UUID(event.TestSessionID)),
		event.Action,
		event.Subject,
		event.Severity,
		event.Score,
		event.Decision,
		event.Reason,
		event.RequestID,
		event.ActorID,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

const selectColumns = `
	SELECT id, category, timestamp, user_id, session_id, test_session_id,
		   action, subject, severity, score, decision, reason,
		   request_id, actor_id
	FROM audit_events
`

// ListByUser returns events for a specific candidate, oldest first.
func (s *Store) ListByUser(ctx context.Context, userID id.UserID) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+`WHERE user_id = $1 ORDER BY timestamp ASC`, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ListBySession returns events for one proctoring session, oldest first.
func (s *Store) ListBySession(ctx context.Context, sessionID id.SessionID) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+`WHERE session_id = $1 ORDER BY timestamp ASC`, uuid.UUID(sessionID))
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ListRecent returns the N most recent events.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+`ORDER BY timestamp DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event

	for rows.Next() {
		var (
			eventID                          uuid.UUID
			category                         string
			event                            audit.Event
			userID, sessionID, testSessionID *uuid.UUID
		)

		err := rows.Scan(
			&eventID,
			&category,
			&event.Timestamp,
			&userID,
			&sessionID,
			&testSessionID,
			&event.Action,
			&event.Subject,
			&event.Severity,
			&event.Score,
			&event.Decision,
			&event.Reason,
			&event.RequestID,
			&event.ActorID,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}

		event.ID = id.EventID(eventID)
		event.Category = audit.EventCategory(category)
		if userID != nil {
			event.UserID = id.UserID(*userID)
		}
		if sessionID != nil {
			event.SessionID = id.SessionID(*sessionID)
		}
		if testSessionID != nil {
			event.TestSessionID = id.TestSessionID(*testSessionID)
		}

		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}

	return events, nil
}

func nullableUUID(u uuid.UUID) *uuid.UUID {
	if u == uuid.Nil {
		return nil
	}
	return &u
}
