package status

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"proctor/internal/proctoring/models"
	id "proctor/pkg/domain"
	"proctor/pkg/platform/sentinel"
)

type InMemoryCache struct {
	mu       sync.RWMutex
	statuses map[id.SessionID]models.SessionStatus
}

func NewInMemory() *InMemoryCache {
	return &InMemoryCache{statuses: make(map[id.SessionID]models.SessionStatus)}
}

func (c *InMemoryCache) Put(_ context.Context, status models.SessionStatus) error {
	status.Violations = slices.Clone(status.Violations)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses[status.SessionID] = status
	return nil
}

func (c *InMemoryCache) Get(_ context.Context, sessionID id.SessionID) (*models.SessionStatus, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st, ok := c.statuses[sessionID]
	if !ok {
		return nil, fmt.Errorf("status for session %s: %w", sessionID, sentinel.ErrNotFound)
	}
	st.Violations = slices.Clone(st.Violations)
	return &st, nil
}
