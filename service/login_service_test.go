package service_test

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridian-labs/walletgate/adapters/store"
	"github.com/veridian-labs/walletgate/adapters/tokenizer"
	"github.com/veridian-labs/walletgate/core"
	"github.com/veridian-labs/walletgate/service"
)

type fixture struct {
	svc      *service.LoginService
	verifier *fakeVerifier
	events   *fakeEvents
	users    *memUsers
	sessions *memSessions
}

func newFixture(t *testing.T, cfg service.Config) *fixture {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	f := &fixture{
		verifier: &fakeVerifier{},
		events:   &fakeEvents{},
		users:    newMemUsers(),
		sessions: newMemSessions(),
	}
	f.svc = service.NewLoginService(
		store.NewMemoryStore(),
		f.verifier,
		tokenizer.NewJWTTokenizer(key),
		f.users,
		f.sessions,
		f.events,
		cfg,
	)

	return f
}

func TestCreateSessionIsPending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, service.Config{})

	session, err := f.svc.CreateSession(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, session.RequestID)
	assert.NotEmpty(t, session.ChallengePayload)
	assert.Equal(t, core.StatePending, session.State)
	assert.True(t, session.ExpiresAt.After(session.CreatedAt))

	result, err := f.svc.Status(ctx, session.RequestID)
	require.NoError(t, err)
	assert.Equal(t, service.StatusPending, result.Status)
	assert.Empty(t, result.SessionToken)
}

func TestCreateSessionConcurrent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, service.Config{})

	seen := make(map[string]bool)
	results := make(chan string, 20)
	for i := 0; i < 20; i++ {
		go func() {
			session, err := f.svc.CreateSession(ctx)
			if err != nil {
				results <- ""
				return
			}
			results <- session.RequestID
		}()
	}
	for i := 0; i < 20; i++ {
		id := <-results
		require.NotEmpty(t, id)
		require.False(t, seen[id], "request IDs must not collide")
		seen[id] = true
	}
}

func TestCompleteThenStatusDeliversTokenOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, service.Config{})

	session, err := f.svc.CreateSession(ctx)
	require.NoError(t, err)

	token, err := f.svc.CompleteSession(ctx, session.RequestID, "did:example:alice")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(token), 64)

	result, err := f.svc.Status(ctx, session.RequestID)
	require.NoError(t, err)
	assert.Equal(t, service.StatusCompleted, result.Status)
	assert.Equal(t, token, result.SessionToken)

	// One-shot delivery: the record is purged after the first retrieval
	result, err = f.svc.Status(ctx, session.RequestID)
	require.NoError(t, err)
	assert.Equal(t, service.StatusNotFound, result.Status)
	assert.Empty(t, result.SessionToken)

	assert.Equal(t, []string{session.RequestID}, f.events.completed)
}

func TestDuplicateCompletionRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, service.Config{})

	session, err := f.svc.CreateSession(ctx)
	require.NoError(t, err)

	first, err := f.svc.CompleteSession(ctx, session.RequestID, "did:example:alice")
	require.NoError(t, err)

	_, err = f.svc.CompleteSession(ctx, session.RequestID, "did:example:mallory")
	assert.ErrorIs(t, err, core.ErrAlreadyCompleted)

	// The original token stands
	result, err := f.svc.Status(ctx, session.RequestID)
	require.NoError(t, err)
	assert.Equal(t, first, result.SessionToken)
}

func TestStatusUnknownIDIsNotFound(t *testing.T) {
	f := newFixture(t, service.Config{})

	result, err := f.svc.Status(context.Background(), "never-created")
	require.NoError(t, err)
	assert.Equal(t, service.StatusNotFound, result.Status)
}

func TestLazyExpiry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, service.Config{ChallengeTTL: 30 * time.Millisecond, Retention: time.Minute})

	session, err := f.svc.CreateSession(ctx)
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)

	// No sweep ran; expiry is enforced at lookup time
	result, err := f.svc.Status(ctx, session.RequestID)
	require.NoError(t, err)
	assert.Equal(t, service.StatusNotFound, result.Status)
	assert.Equal(t, []string{session.RequestID}, f.events.expired)

	// Completion after expiry is rejected and never issues a token
	_, err = f.svc.CompleteSession(ctx, session.RequestID, "did:example:alice")
	assert.ErrorIs(t, err, core.ErrExpired)
}

func TestCompletionAfterExpiryMarksExpired(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, service.Config{ChallengeTTL: 30 * time.Millisecond, Retention: time.Minute})

	session, err := f.svc.CreateSession(ctx)
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)

	_, err = f.svc.CompleteSession(ctx, session.RequestID, "did:example:alice")
	assert.ErrorIs(t, err, core.ErrExpired)

	result, err := f.svc.Status(ctx, session.RequestID)
	require.NoError(t, err)
	assert.Equal(t, service.StatusNotFound, result.Status)
}

func TestRepeatedPendingPollsAreSideEffectFree(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, service.Config{})

	session, err := f.svc.CreateSession(ctx)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		result, err := f.svc.Status(ctx, session.RequestID)
		require.NoError(t, err)
		assert.Equal(t, service.StatusPending, result.Status)
	}

	assert.Empty(t, f.events.completed)
	assert.Empty(t, f.events.expired)
}

func TestRoundTripAuthenticate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, service.Config{})

	session, err := f.svc.CreateSession(ctx)
	require.NoError(t, err)

	_, err = f.svc.CompleteSession(ctx, session.RequestID, "did:example:alice")
	require.NoError(t, err)

	result, err := f.svc.Status(ctx, session.RequestID)
	require.NoError(t, err)
	require.Equal(t, service.StatusCompleted, result.Status)

	user, err := f.svc.Authenticate(ctx, result.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, "did:example:alice", user.DID)
}

func TestAuthenticateRejectsRevokedToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, service.Config{})

	session, err := f.svc.CreateSession(ctx)
	require.NoError(t, err)
	token, err := f.svc.CompleteSession(ctx, session.RequestID, "did:example:alice")
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, token))

	_, err = f.svc.Authenticate(ctx, token)
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}

func TestAuthenticateRejectsGarbage(t *testing.T) {
	f := newFixture(t, service.Config{})

	_, err := f.svc.Authenticate(context.Background(), "garbage")
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}

func TestVerifyCallbackRejectedProof(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, service.Config{})
	f.verifier.reject = true

	session, err := f.svc.CreateSession(ctx)
	require.NoError(t, err)

	_, err = f.svc.VerifyCallback(ctx, session.RequestID, nil, "did:example:alice")
	assert.ErrorIs(t, err, core.ErrProofRejected)

	// The session is untouched and still completable
	result, err := f.svc.Status(ctx, session.RequestID)
	require.NoError(t, err)
	assert.Equal(t, service.StatusPending, result.Status)
}

func TestFirstLoginProvisionsUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, service.Config{})

	session, err := f.svc.CreateSession(ctx)
	require.NoError(t, err)
	_, err = f.svc.CompleteSession(ctx, session.RequestID, "did:example:alice")
	require.NoError(t, err)

	first, err := f.users.FindByDID(ctx, "did:example:alice")
	require.NoError(t, err)
	require.NotNil(t, first)

	// A later login for the same DID reuses the user
	session2, err := f.svc.CreateSession(ctx)
	require.NoError(t, err)
	_, err = f.svc.CompleteSession(ctx, session2.RequestID, "did:example:alice")
	require.NoError(t, err)

	again, err := f.users.FindByDID(ctx, "did:example:alice")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
}

func TestSweepReclaimsExpired(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, service.Config{ChallengeTTL: 10 * time.Millisecond, Retention: 10 * time.Millisecond})

	_, err := f.svc.CreateSession(ctx)
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)

	require.NoError(t, f.svc.Sweep(ctx))

	// Sweep must be externally indistinguishable from lazy expiry
	result, err := f.svc.Status(ctx, "whatever")
	require.NoError(t, err)
	assert.Equal(t, service.StatusNotFound, result.Status)
}
