package ports

import (
	"context"
	"time"

	"github.com/veridian-labs/walletgate/core"
)

// SessionStore holds pending login sessions keyed by request ID.
//
// Update is the only mutation path for an existing session: the store applies
// fn to the current record atomically with respect to other callers touching
// the same request ID. fn returning an error aborts the update and the error
// is returned unchanged. Sessions are independent; no cross-key ordering is
// guaranteed.
type SessionStore interface {
	// Create inserts a new session. retention bounds how long the record may
	// be kept after ExpiresAt so that lazy expiry still has something to
	// report on. Returns core.ErrDuplicateID on a request ID collision.
	Create(ctx context.Context, session *core.LoginSession, retention time.Duration) error

	// Update atomically applies fn to the stored session and persists the
	// result. Returns core.ErrNotFound if the session is absent.
	Update(ctx context.Context, requestID string, fn func(*core.LoginSession) error) (*core.LoginSession, error)

	// Delete removes a session. Deleting an absent session is not an error.
	Delete(ctx context.Context, requestID string) error
}

// SessionSweeper is implemented by stores that need an explicit sweep to
// reclaim sessions past their retention window.
type SessionSweeper interface {
	SweepExpired(ctx context.Context, now time.Time) (int, error)
}
