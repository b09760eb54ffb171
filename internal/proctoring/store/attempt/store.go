// Package attempt persists the records of stopped proctoring sessions.
package attempt

import (
	"context"

	"proctor/internal/proctoring/models"
	id "proctor/pkg/domain"
)

// Store is implemented by the memory and Postgres stores. Lookups that find
// nothing return an error wrapping sentinel.ErrNotFound.
type Store interface {
	Save(ctx context.Context, record *models.AttemptRecord) error
	FindBySession(ctx context.Context, sessionID id.SessionID) (*models.AttemptRecord, error)
	// FindByTestSession returns the most recently stopped attempt.
	FindByTestSession(ctx context.Context, testSessionID id.TestSessionID) (*models.AttemptRecord, error)
	SetAdminOverride(ctx context.Context, testSessionID id.TestSessionID, override models.AdminOverride) error
	SaveDecision(ctx context.Context, testSessionID id.TestSessionID, decision models.CertificateDecision) error
}

// clone copies a record so callers never share slices or pointers with the
// stored value.
func clone(r *models.AttemptRecord) *models.AttemptRecord {
	out := *r
	out.Config = r.Config.Clone()
	if r.Violations != nil {
		out.Violations = make([]models.Violation, len(r.Violations))
		copy(out.Violations, r.Violations)
	}
	if r.Override != nil {
		o := *r.Override
		out.Override = &o
	}
	if r.Decision != nil {
		d := *r.Decision
		out.Decision = &d
	}
	return &out
}
