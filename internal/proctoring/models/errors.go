package models

import (
	"errors"

	id "proctor/pkg/domain"
	dErrors "proctor/pkg/domain-errors"
)

var (
	// ErrDetectorFailure marks a model call that failed, timed out or panicked.
	// It is recovered per tick and never reaches callers of the manager.
	ErrDetectorFailure = errors.New("detector failure")
	ErrSessionNotFound = errors.New("proctoring session not found")
	ErrAlreadyActive   = errors.New("proctoring session already active")
	ErrConfigInvalid   = errors.New("invalid proctoring config")
	ErrAttemptNotFound = errors.New("attempt record not found")
)

func SessionNotFound(sessionID id.SessionID) error {
	return dErrors.Wrap(ErrSessionNotFound, dErrors.CodeNotFound, "session "+sessionID.String())
}

func AlreadyActive(msg string) error {
	return dErrors.Wrap(ErrAlreadyActive, dErrors.CodeConflict, msg)
}

func AttemptNotFound(testSessionID id.TestSessionID) error {
	return dErrors.Wrap(ErrAttemptNotFound, dErrors.CodeNotFound, "attempt "+testSessionID.String())
}
