package audit

import (
	"context"
	"time"

	id "proctor/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events that decide or annotate a candidate's
	// outcome. They are written synchronously and fail closed.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers integrity findings and monitoring failures that
	// reviewers and alerting consume.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine lifecycle activity and can be sampled.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID            id.EventID
	Category      EventCategory
	Timestamp     time.Time
	UserID        id.UserID
	SessionID     id.SessionID
	TestSessionID id.TestSessionID
	Action        string
	// Subject is a short human readable identifier of what the event is about,
	// e.g. the violation type or the certificate outcome.
	Subject  string
	Severity int
	Score    *float64
	Decision string
	Reason   string
	// RequestID is the correlation ID from the HTTP request context, empty for
	// events raised by monitoring loops.
	RequestID string
	// ActorID is the caller who triggered the event when it is not the
	// candidate, e.g. the reviewer recording an override.
	ActorID string
}

type AuditEvent string

const (
	// Session lifecycle
	EventSessionStarted  AuditEvent = "proctoring_session_started"
	EventSessionStopped  AuditEvent = "proctoring_session_stopped"
	EventSessionDegraded AuditEvent = "proctoring_session_degraded"
	EventForcedStop      AuditEvent = "proctoring_forced_stop"

	// Monitoring
	EventViolationConfirmed  AuditEvent = "proctoring_violation_confirmed"
	EventDetectorUnavailable AuditEvent = "proctoring_detector_unavailable"

	// Outcome
	EventCertificateDecided    AuditEvent = "certificate_decided"
	EventAdminOverrideRecorded AuditEvent = "admin_override_recorded"
)

// eventCategories maps each audit event to its category.
var eventCategories = map[AuditEvent]EventCategory{
	EventSessionStopped:        CategoryCompliance,
	EventCertificateDecided:    CategoryCompliance,
	EventAdminOverrideRecorded: CategoryCompliance,

	EventViolationConfirmed: CategorySecurity,
	EventSessionDegraded:    CategorySecurity,
	EventForcedStop:         CategorySecurity,

	EventSessionStarted:      CategoryOperations,
	EventDetectorUnavailable: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Sink accepts events for durable storage or onward transport.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Store is a Sink that can also be queried.
type Store interface {
	Sink
	ListByUser(ctx context.Context, userID id.UserID) ([]Event, error)
	ListBySession(ctx context.Context, sessionID id.SessionID) ([]Event, error)
}

// Emitter is what domain services depend on to record events.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}
