package attempt

import (
	"context"
	"fmt"
	"sync"

	"proctor/internal/proctoring/models"
	id "proctor/pkg/domain"
	"proctor/pkg/platform/sentinel"
)

// InMemoryStore keeps attempt records in process memory.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[id.SessionID]*models.AttemptRecord
	latest  map[id.TestSessionID]id.SessionID
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		records: make(map[id.SessionID]*models.AttemptRecord),
		latest:  make(map[id.TestSessionID]id.SessionID),
	}
}

func (s *InMemoryStore) Save(_ context.Context, record *models.AttemptRecord) error {
	if record == nil {
		return fmt.Errorf("attempt record is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.SessionID] = clone(record)
	if cur, ok := s.latest[record.TestSessionID]; ok {
		if prev := s.records[cur]; prev != nil && prev.StoppedAt.After(record.StoppedAt) {
			return nil
		}
	}
	s.latest[record.TestSessionID] = record.SessionID
	return nil
}

func (s *InMemoryStore) FindBySession(_ context.Context, sessionID id.SessionID) (*models.AttemptRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[sessionID]
	if !ok {
		return nil, fmt.Errorf("attempt for session %s: %w", sessionID, sentinel.ErrNotFound)
	}
	return clone(r), nil
}

func (s *InMemoryStore) FindByTestSession(_ context.Context, testSessionID id.TestSessionID) (*models.AttemptRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.findLatest(testSessionID)
	if !ok {
		return nil, fmt.Errorf("attempt for test session %s: %w", testSessionID, sentinel.ErrNotFound)
	}
	return clone(r), nil
}

func (s *InMemoryStore) SetAdminOverride(_ context.Context, testSessionID id.TestSessionID, override models.AdminOverride) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.findLatest(testSessionID)
	if !ok {
		return fmt.Errorf("attempt for test session %s: %w", testSessionID, sentinel.ErrNotFound)
	}
	r.Override = &override
	return nil
}

func (s *InMemoryStore) SaveDecision(_ context.Context, testSessionID id.TestSessionID, decision models.CertificateDecision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.findLatest(testSessionID)
	if !ok {
		return fmt.Errorf("attempt for test session %s: %w", testSessionID, sentinel.ErrNotFound)
	}
	r.Decision = &decision
	return nil
}

// findLatest must be called with the lock held.
func (s *InMemoryStore) findLatest(testSessionID id.TestSessionID) (*models.AttemptRecord, bool) {
	sessionID, ok := s.latest[testSessionID]
	if !ok {
		return nil, false
	}
	r, ok := s.records[sessionID]
	return r, ok
}
