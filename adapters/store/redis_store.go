package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/veridian-labs/walletgate/core"
	"github.com/veridian-labs/walletgate/ports"
)

const updateRetries = 4

// RedisStore is a Redis implementation of the SessionStore interface.
// Expired records are reclaimed by Redis key TTL; no sweep is needed.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a new Redis store
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "walletgate:login:",
	}
}

func (s *RedisStore) key(requestID string) string {
	return s.prefix + requestID
}

type redisRecord struct {
	RequestID        string     `json:"request_id"`
	ChallengePayload string     `json:"challenge_payload"`
	State            core.State `json:"state"`
	SessionToken     string     `json:"session_token,omitempty"`
	HolderDID        string     `json:"holder_did,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	ExpiresAt        time.Time  `json:"expires_at"`
}

func encodeSession(session *core.LoginSession) ([]byte, error) {
	return json.Marshal(redisRecord{
		RequestID:        session.RequestID,
		ChallengePayload: session.ChallengePayload,
		State:            session.State,
		SessionToken:     session.SessionToken,
		HolderDID:        session.HolderDID,
		CreatedAt:        session.CreatedAt,
		ExpiresAt:        session.ExpiresAt,
	})
}

func decodeSession(data []byte) (*core.LoginSession, error) {
	var rec redisRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode session record: %w", err)
	}

	return &core.LoginSession{
		RequestID:        rec.RequestID,
		ChallengePayload: rec.ChallengePayload,
		State:            rec.State,
		SessionToken:     rec.SessionToken,
		HolderDID:        rec.HolderDID,
		CreatedAt:        rec.CreatedAt,
		ExpiresAt:        rec.ExpiresAt,
	}, nil
}

// Create inserts a new session with a TTL covering expiry plus retention
func (s *RedisStore) Create(ctx context.Context, session *core.LoginSession, retention time.Duration) error {
	encoded, err := encodeSession(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	ttl := time.Until(session.ExpiresAt) + retention
	ok, err := s.client.SetNX(ctx, s.key(session.RequestID), encoded, ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	if !ok {
		return core.ErrDuplicateID
	}

	return nil
}

// Update applies fn to the stored session under a WATCH transaction so that
// concurrent completion and expiry transitions on the same request ID never
// lose an update. Bounded retries on transaction conflicts.
func (s *RedisStore) Update(ctx context.Context, requestID string, fn func(*core.LoginSession) error) (*core.LoginSession, error) {
	key := s.key(requestID)

	for i := 0; i < updateRetries; i++ {
		var updated *core.LoginSession

		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					return core.ErrNotFound
				}
				return fmt.Errorf("failed to load session: %w", err)
			}

			session, err := decodeSession(data)
			if err != nil {
				return err
			}

			if err := fn(session); err != nil {
				return err
			}

			encoded, err := encodeSession(session)
			if err != nil {
				return fmt.Errorf("failed to encode session: %w", err)
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, encoded, redis.KeepTTL)
				return nil
			})
			if err != nil {
				return err
			}

			updated = session
			return nil
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}

		return updated, nil
	}

	return nil, fmt.Errorf("failed to update session %s: too many conflicts", requestID)
}

// Delete removes a session
func (s *RedisStore) Delete(ctx context.Context, requestID string) error {
	if err := s.client.Del(ctx, s.key(requestID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

var _ ports.SessionStore = (*RedisStore)(nil)
