package memory

import (
	"context"
	"slices"
	"sync"

	id "proctor/pkg/domain"
	audit "proctor/pkg/platform/audit"
)

// InMemoryStore keeps events in append order with per-user and per-session
// indexes. Used in development and tests.
type InMemoryStore struct {
	mu        sync.RWMutex
	events    []audit.Event
	byUser    map[id.UserID][]int
	bySession map[id.SessionID][]int
}

func NewInMemoryStore() *InMemoryStore {
	s := &InMemoryStore{}
	s.reset()
	return s
}

func (s *InMemoryStore) reset() {
	s.events = nil
	s.byUser = make(map[id.UserID][]int)
	s.bySession = make(map[id.SessionID][]int)
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := len(s.events)
	s.events = append(s.events, event)
	if !event.UserID.IsNil() {
		s.byUser[event.UserID] = append(s.byUser[event.UserID], idx)
	}
	if !event.SessionID.IsNil() {
		s.bySession[event.SessionID] = append(s.bySession[event.SessionID], idx)
	}
	return nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.byUser[userID]), nil
}

func (s *InMemoryStore) ListBySession(_ context.Context, sessionID id.SessionID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.bySession[sessionID]), nil
}

// ListAll returns every event in append order.
func (s *InMemoryStore) ListAll(_ context.Context) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.events), nil
}

// ListRecent returns up to limit events, newest first.
func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := slices.Clone(s.events)
	slices.SortStableFunc(all, func(a, b audit.Event) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	if limit >= 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (s *InMemoryStore) collect(idx []int) []audit.Event {
	out := make([]audit.Event, 0, len(idx))
	for _, i := range idx {
		out = append(out, s.events[i])
	}
	return out
}
