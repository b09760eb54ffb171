// Package status shares live session snapshots across server replicas.
//
// The replica that owns a session publishes every snapshot to a Syncer,
// which writes the latest one per session to a Cache in the background.
// Other replicas answer status queries from the cache.
package status

import (
	"context"

	"proctor/internal/proctoring/models"
	id "proctor/pkg/domain"
)

// Cache stores the latest snapshot per session. Get returns an error
// wrapping sentinel.ErrNotFound for unknown or expired sessions.
type Cache interface {
	Put(ctx context.Context, status models.SessionStatus) error
	Get(ctx context.Context, sessionID id.SessionID) (*models.SessionStatus, error)
}
