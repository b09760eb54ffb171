// Package domain holds typed identifiers shared across modules.
//
// IDs are distinct named types over uuid.UUID so the compiler rejects passing a
// TestSessionID where a SessionID is expected. Parse functions are the only
// trust-boundary entry points and reject empty, malformed and nil UUIDs.
package domain

import (
	"github.com/google/uuid"

	dErrors "proctor/pkg/domain-errors"
)

type (
	// UserID identifies the candidate taking the exam.
	UserID uuid.UUID
	// SessionID identifies one live proctoring session.
	SessionID uuid.UUID
	// TestSessionID identifies the exam attempt owned by the exam service.
	TestSessionID uuid.UUID
	// ViolationID identifies one confirmed violation.
	ViolationID uuid.UUID
	// EventID identifies one audit event.
	EventID uuid.UUID
)

func parseUUID(s, kind string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" is required")
	}
	if len(s) > 64 {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" is too long")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+kind)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" must not be nil")
	}
	return u, nil
}

func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user_id")
	return UserID(u), err
}

func ParseSessionID(s string) (SessionID, error) {
	u, err := parseUUID(s, "session_id")
	return SessionID(u), err
}

func ParseTestSessionID(s string) (TestSessionID, error) {
	u, err := parseUUID(s, "test_session_id")
	return TestSessionID(u), err
}

func ParseViolationID(s string) (ViolationID, error) {
	u, err := parseUUID(s, "violation_id")
	return ViolationID(u), err
}

// NewSessionID allocates a random session identifier.
func NewSessionID() SessionID { return SessionID(uuid.New()) }

// NewViolationID allocates a random violation identifier.
func NewViolationID() ViolationID { return ViolationID(uuid.New()) }

// NewEventID allocates a random audit event identifier.
func NewEventID() EventID { return EventID(uuid.New()) }

func (id UserID) String() string        { return uuid.UUID(id).String() }
func (id SessionID) String() string     { return uuid.UUID(id).String() }
func (id TestSessionID) String() string { return uuid.UUID(id).String() }
func (id ViolationID) String() string   { return uuid.UUID(id).String() }
func (id EventID) String() string       { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id SessionID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id TestSessionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ViolationID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }

// MarshalText lets typed IDs serialize as canonical UUID strings in JSON.
func (id UserID) MarshalText() ([]byte, error)        { return uuid.UUID(id).MarshalText() }
func (id SessionID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }
func (id TestSessionID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id ViolationID) MarshalText() ([]byte, error)   { return uuid.UUID(id).MarshalText() }
func (id EventID) MarshalText() ([]byte, error)       { return uuid.UUID(id).MarshalText() }

func (id *UserID) UnmarshalText(b []byte) error        { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *SessionID) UnmarshalText(b []byte) error     { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *TestSessionID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ViolationID) UnmarshalText(b []byte) error   { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *EventID) UnmarshalText(b []byte) error       { return (*uuid.UUID)(id).UnmarshalText(b) }
