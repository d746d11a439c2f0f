package store

import (
	"context"
	"sync"
	"time"

	"github.com/veridian-labs/walletgate/core"
	"github.com/veridian-labs/walletgate/ports"
)

// MemoryStore is an in-memory implementation of the SessionStore interface
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*memoryRecord
}

type memoryRecord struct {
	session   core.LoginSession
	reapAfter time.Time
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*memoryRecord),
	}
}

// Create inserts a new session
func (s *MemoryStore) Create(ctx context.Context, session *core.LoginSession, retention time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.RequestID]; exists {
		return core.ErrDuplicateID
	}

	s.sessions[session.RequestID] = &memoryRecord{
		session:   *session,
		reapAfter: session.ExpiresAt.Add(retention),
	}

	return nil
}

// Update atomically applies fn to the stored session
func (s *MemoryStore) Update(ctx context.Context, requestID string, fn func(*core.LoginSession) error) (*core.LoginSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.sessions[requestID]
	if !exists || time.Now().After(rec.reapAfter) {
		delete(s.sessions, requestID)
		return nil, core.ErrNotFound
	}

	updated := rec.session
	if err := fn(&updated); err != nil {
		return nil, err
	}

	rec.session = updated
	result := updated
	return &result, nil
}

// Delete removes a session
func (s *MemoryStore) Delete(ctx context.Context, requestID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, requestID)
	return nil
}

// SweepExpired removes sessions whose retention window has elapsed
func (s *MemoryStore) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, rec := range s.sessions {
		if now.After(rec.reapAfter) {
			delete(s.sessions, id)
			removed++
		}
	}

	return removed, nil
}

var _ ports.SessionStore = (*MemoryStore)(nil)
var _ ports.SessionSweeper = (*MemoryStore)(nil)
