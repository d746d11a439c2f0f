package service_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/veridian-labs/walletgate/core"
	"github.com/veridian-labs/walletgate/ports"
)

// fakeVerifier mints UUID exchange IDs and approves or rejects presentations
type fakeVerifier struct {
	mu         sync.Mutex
	reject     bool
	challenges []ports.Challenge
}

func (f *fakeVerifier) CreateChallenge(ctx context.Context, req ports.ProofRequest, callbackURL string) (*ports.Challenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := ports.Challenge{
		RequestID:     uuid.New().String(),
		InvitationURL: "https://verifier.example/oob?id=" + uuid.New().String(),
	}
	f.challenges = append(f.challenges, ch)
	return &ch, nil
}

func (f *fakeVerifier) VerifyPresentation(ctx context.Context, requestID string, proof map[string]any) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.reject, nil
}

// fakeEvents records published events
type fakeEvents struct {
	mu        sync.Mutex
	completed []string
	expired   []string
}

func (f *fakeEvents) PublishLoginCompleted(ctx context.Context, requestID string, did string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, requestID)
	return nil
}

func (f *fakeEvents) PublishLoginExpired(ctx context.Context, requestID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expired = append(f.expired, requestID)
	return nil
}

// memUsers is an in-memory UserRepository
type memUsers struct {
	mu    sync.Mutex
	byDID map[string]*core.User
	byID  map[string]*core.User
}

func newMemUsers() *memUsers {
	return &memUsers{
		byDID: make(map[string]*core.User),
		byID:  make(map[string]*core.User),
	}
}

func (m *memUsers) Create(ctx context.Context, user *core.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byDID[user.DID]; exists {
		return fmt.Errorf("duplicate DID %s", user.DID)
	}

	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	u := *user
	m.byDID[u.DID] = &u
	m.byID[u.ID] = &u
	return nil
}

func (m *memUsers) FindByDID(ctx context.Context, did string) (*core.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byDID[did]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (m *memUsers) FindByID(ctx context.Context, id string) (*core.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

// memSessions is an in-memory SessionRepository
type memSessions struct {
	mu   sync.Mutex
	byID map[string]*core.Session
}

func newMemSessions() *memSessions {
	return &memSessions{byID: make(map[string]*core.Session)}
}

func (m *memSessions) Create(ctx context.Context, session *core.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := *session
	m.byID[s.ID] = &s
	return nil
}

func (m *memSessions) FindByTokenID(ctx context.Context, tokenID string) (*core.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.byID {
		if s.TokenID == tokenID {
			copied := *s
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memSessions) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.byID, id)
	return nil
}

func (m *memSessions) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.byID {
		if now.After(s.ExpiresAt) {
			delete(m.byID, id)
			removed++
		}
	}
	return removed, nil
}

var (
	_ ports.Verifier          = (*fakeVerifier)(nil)
	_ ports.EventPublisher    = (*fakeEvents)(nil)
	_ ports.UserRepository    = (*memUsers)(nil)
	_ ports.SessionRepository = (*memSessions)(nil)
)
