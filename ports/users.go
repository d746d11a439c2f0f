package ports

import (
	"context"
	"time"

	"github.com/veridian-labs/walletgate/core"
)

// UserRepository persists users keyed by decentralized identifier.
type UserRepository interface {
	Create(ctx context.Context, user *core.User) error
	FindByDID(ctx context.Context, did string) (*core.User, error)
	FindByID(ctx context.Context, id string) (*core.User, error)
}

// SessionRepository persists issued bearer sessions.
type SessionRepository interface {
	Create(ctx context.Context, session *core.Session) error
	FindByTokenID(ctx context.Context, tokenID string) (*core.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
