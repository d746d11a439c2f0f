package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	slogctx "github.com/veqryn/slog-context"

	"github.com/veridian-labs/walletgate/core"
	"github.com/veridian-labs/walletgate/ports"
)

// Status is the client-observable state of a login exchange. It is a closed
// enumeration; internal errors never leak through it. Expired and absent
// sessions are reported identically so an unauthenticated poller cannot
// probe for session existence.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusNotFound  Status = "not_found"
)

// StatusResult is the result of one poll.
type StatusResult struct {
	Status       Status
	SessionToken string // Set only when Status is StatusCompleted
}

// Config carries the tunable knobs of the login service.
type Config struct {
	ChallengeTTL      time.Duration     // How long a pending login stays valid
	SessionTTL        time.Duration     // Lifetime of issued bearer sessions
	Retention         time.Duration     // How long expired records stay reportable
	CallbackURL       string            // Where the verifier posts completions
	CredDefID         string            // Credential definition the proof must satisfy
	VerifierEndpoint  string            // Wallet-facing verifier endpoint, for query-url payloads
	ChallengeEncoding ChallengeEncoding // How challenge payloads are encoded
}

// LoginService drives the proof-request login exchange: it creates pending
// sessions, transitions them on verifier completion, answers polls and
// issues bearer sessions.
type LoginService struct {
	store     ports.SessionStore
	verifier  ports.Verifier
	tokenizer ports.Tokenizer
	users     ports.UserRepository
	sessions  ports.SessionRepository
	eventPub  ports.EventPublisher

	cfg Config
}

// NewLoginService creates a new login service
func NewLoginService(
	store ports.SessionStore,
	verifier ports.Verifier,
	tokenizer ports.Tokenizer,
	users ports.UserRepository,
	sessions ports.SessionRepository,
	eventPub ports.EventPublisher,
	cfg Config,
) *LoginService {
	if cfg.ChallengeTTL <= 0 {
		cfg.ChallengeTTL = 5 * time.Minute
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.Retention <= 0 {
		cfg.Retention = time.Minute
	}
	if cfg.ChallengeEncoding == "" {
		cfg.ChallengeEncoding = EncodingOOBURL
	}

	return &LoginService{
		store:     store,
		verifier:  verifier,
		tokenizer: tokenizer,
		users:     users,
		sessions:  sessions,
		eventPub:  eventPub,
		cfg:       cfg,
	}
}

// CreateSession registers a proof request with the verifier and stores a new
// pending login session. Safe under concurrent invocation; request IDs come
// from the verifier exchange and never collide.
func (s *LoginService) CreateSession(ctx context.Context) (*core.LoginSession, error) {
	proofReq := ports.ProofRequest{
		Name:    "Walletgate Sign-In",
		Version: "1.0",
		RequestedAttributes: map[string]any{
			"kyc_verified": map[string]any{
				"name": "kyc_verified",
				"restrictions": []map[string]any{
					{"cred_def_id": s.cfg.CredDefID},
				},
			},
		},
	}

	challenge, err := s.verifier.CreateChallenge(ctx, proofReq, s.cfg.CallbackURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create challenge: %w", err)
	}

	now := time.Now()
	session := &core.LoginSession{
		RequestID:        challenge.RequestID,
		ChallengePayload: s.encodeChallenge(challenge),
		State:            core.StatePending,
		CreatedAt:        now,
		ExpiresAt:        now.Add(s.cfg.ChallengeTTL),
	}

	if err := s.store.Create(ctx, session, s.cfg.Retention); err != nil {
		// A duplicate ID here means the verifier reissued an exchange ID,
		// which is an integrity failure, not a user condition
		return nil, fmt.Errorf("failed to store login session %s: %w", session.RequestID, err)
	}

	return session, nil
}

// CompleteSession transitions a pending session to completed and issues a
// session token for the proven identity. Idempotent-safe against duplicate
// verifier callbacks: a second attempt fails with core.ErrAlreadyCompleted
// and the original token stands.
func (s *LoginService) CompleteSession(ctx context.Context, requestID, holderDID string) (string, error) {
	user, err := s.findOrCreateUser(ctx, holderDID)
	if err != nil {
		return "", err
	}

	now := time.Now()
	issued := &core.Session{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		TokenID:   uuid.New().String(),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.cfg.SessionTTL),
	}

	token, err := s.tokenizer.SessionToToken(issued, holderDID)
	if err != nil {
		return "", fmt.Errorf("failed to create session token: %w", err)
	}

	// The transition outcome is decided inside the atomic update so a
	// concurrent expiry or duplicate callback can never corrupt state.
	var outcome error
	_, err = s.store.Update(ctx, requestID, func(ls *core.LoginSession) error {
		switch {
		case ls.State == core.StateCompleted:
			outcome = core.ErrAlreadyCompleted
		case ls.State == core.StateExpired:
			outcome = core.ErrExpired
		case ls.Expired(now):
			ls.State = core.StateExpired
			outcome = core.ErrExpired
		default:
			ls.State = core.StateCompleted
			ls.SessionToken = token
			ls.HolderDID = holderDID
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return "", core.ErrNotFound
		}
		return "", fmt.Errorf("failed to complete login session %s: %w", requestID, err)
	}
	if outcome != nil {
		return "", outcome
	}

	if err := s.sessions.Create(ctx, issued); err != nil {
		return "", fmt.Errorf("failed to persist issued session: %w", err)
	}

	if err := s.eventPub.PublishLoginCompleted(ctx, requestID, holderDID); err != nil {
		// The session is completed and the token stored; event delivery is
		// best-effort
		slogctx.Warn(ctx, "failed to publish login completed event",
			"request_id", requestID, "error", err)
	}

	return token, nil
}

// VerifyCallback validates a submitted presentation with the external
// verifier, then completes the session for the proven holder.
func (s *LoginService) VerifyCallback(ctx context.Context, requestID string, proof map[string]any, holderDID string) (string, error) {
	verified, err := s.verifier.VerifyPresentation(ctx, requestID, proof)
	if err != nil {
		return "", fmt.Errorf("failed to verify presentation: %w", err)
	}
	if !verified {
		return "", core.ErrProofRejected
	}

	return s.CompleteSession(ctx, requestID, holderDID)
}

// Status answers one poll for the given request ID. Read-only except for the
// lazy expiry transition. A completed session is purged after its token is
// retrieved once, so a second poll reports not_found.
func (s *LoginService) Status(ctx context.Context, requestID string) (StatusResult, error) {
	now := time.Now()

	var (
		result  StatusResult
		expired bool
	)
	_, err := s.store.Update(ctx, requestID, func(ls *core.LoginSession) error {
		switch {
		case ls.State == core.StateCompleted:
			result = StatusResult{Status: StatusCompleted, SessionToken: ls.SessionToken}
		case ls.State == core.StateExpired:
			result = StatusResult{Status: StatusNotFound}
		case ls.Expired(now):
			ls.State = core.StateExpired
			expired = true
			result = StatusResult{Status: StatusNotFound}
		default:
			result = StatusResult{Status: StatusPending}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return StatusResult{Status: StatusNotFound}, nil
		}
		return StatusResult{}, fmt.Errorf("failed to read login session %s: %w", requestID, err)
	}

	if expired {
		if err := s.eventPub.PublishLoginExpired(ctx, requestID); err != nil {
			slogctx.Warn(ctx, "failed to publish login expired event",
				"request_id", requestID, "error", err)
		}
	}

	if result.Status == StatusCompleted {
		// One-shot token delivery: the record is gone after the first
		// successful retrieval
		if err := s.store.Delete(ctx, requestID); err != nil {
			slogctx.Warn(ctx, "failed to purge completed login session",
				"request_id", requestID, "error", err)
		}
	}

	return result, nil
}

// Authenticate resolves a bearer token to its user. Returns
// core.ErrTokenExpired or core.ErrInvalidToken when the token is not
// acceptable; the HTTP layer maps both to 401.
func (s *LoginService) Authenticate(ctx context.Context, token string) (*core.User, error) {
	session, _, err := s.tokenizer.TokenToSession(token)
	if err != nil {
		return nil, err
	}

	stored, err := s.sessions.FindByTokenID(ctx, session.TokenID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if stored == nil {
		return nil, core.ErrInvalidToken
	}
	if time.Now().After(stored.ExpiresAt) {
		return nil, core.ErrTokenExpired
	}

	user, err := s.users.FindByID(ctx, stored.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, core.ErrInvalidToken
	}

	return user, nil
}

// Logout revokes the bearer session behind the given token. Expired or
// unknown tokens are not an error; there is nothing left to revoke.
func (s *LoginService) Logout(ctx context.Context, token string) error {
	session, _, err := s.tokenizer.TokenToSession(token)
	if err != nil {
		return nil
	}

	stored, err := s.sessions.FindByTokenID(ctx, session.TokenID)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	if stored == nil {
		return nil
	}

	if err := s.sessions.Delete(ctx, stored.ID); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	return nil
}

func (s *LoginService) findOrCreateUser(ctx context.Context, did string) (*core.User, error) {
	user, err := s.users.FindByDID(ctx, did)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user != nil {
		return user, nil
	}

	user = &core.User{
		ID:  uuid.New().String(),
		DID: did,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// Lost a create race with a concurrent first login for the same DID
		if existing, findErr := s.users.FindByDID(ctx, did); findErr == nil && existing != nil {
			return existing, nil
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}
