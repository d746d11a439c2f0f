package core

import "time"

// State is the lifecycle state of a login session.
type State string

const (
	// StatePending means the challenge is issued and not yet resolved
	StatePending State = "pending"

	// StateCompleted means a verified proof resolved the session
	StateCompleted State = "completed"

	// StateExpired means the TTL elapsed before completion
	StateExpired State = "expired"
)

// Terminal reports whether the state can no longer change.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateExpired
}

// LoginSession represents one proof-request login exchange.
type LoginSession struct {
	RequestID        string    // Unique identifier, lookup key, embedded in the challenge
	ChallengePayload string    // Encoded proof-request descriptor, rendered as a scannable code
	State            State     // pending, completed or expired
	SessionToken     string    // Set only on completion, issued at most once
	HolderDID        string    // Identity of the wallet holder, resolved on completion
	CreatedAt        time.Time // When the session was created
	ExpiresAt        time.Time // When the pending session expires
}

// Expired reports whether the session's TTL has elapsed at the given time.
func (s *LoginSession) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// User is an account provisioned on first completed login.
type User struct {
	ID        string    // Unique user identifier
	DID       string    // Decentralized identifier proven by the wallet
	CreatedAt time.Time // When the user was first seen
	UpdatedAt time.Time // Last modification time
}

// Session represents an issued bearer session backing authenticated calls.
type Session struct {
	ID        string    // Unique session identifier
	UserID    string    // Owner of the session
	TokenID   string    // JWT ID of the issued session token
	IssuedAt  time.Time // When the session was issued
	ExpiresAt time.Time // When the bearer token stops being accepted
}
