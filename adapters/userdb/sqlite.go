package userdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/veridian-labs/walletgate/core"
	"github.com/veridian-labs/walletgate/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	did        TEXT NOT NULL UNIQUE,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL REFERENCES users(id),
	token_id   TEXT NOT NULL UNIQUE,
	issued_at  TIMESTAMP NOT NULL,
	expires_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);
`

// Open opens the sqlite database at the given path and ensures the schema
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// modernc sqlite serializes writes; a single connection avoids lock errors
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return db, nil
}

// UserRepository is a sqlite implementation of the UserRepository interface
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user
func (r *UserRepository) Create(ctx context.Context, user *core.User) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, did, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		user.ID, user.DID, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

// FindByDID returns the user with the given DID, or nil if absent
func (r *UserRepository) FindByDID(ctx context.Context, did string) (*core.User, error) {
	return r.findOne(ctx, `SELECT id, did, created_at, updated_at FROM users WHERE did = ?`, did)
}

// FindByID returns the user with the given ID, or nil if absent
func (r *UserRepository) FindByID(ctx context.Context, id string) (*core.User, error) {
	return r.findOne(ctx, `SELECT id, did, created_at, updated_at FROM users WHERE id = ?`, id)
}

func (r *UserRepository) findOne(ctx context.Context, query string, arg any) (*core.User, error) {
	user := &core.User{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.DID, &user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}

// SessionRepository is a sqlite implementation of the SessionRepository interface
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new issued session
func (r *SessionRepository) Create(ctx context.Context, session *core.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, token_id, issued_at, expires_at) VALUES (?, ?, ?, ?, ?)`,
		session.ID, session.UserID, session.TokenID, session.IssuedAt.UTC(), session.ExpiresAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// FindByTokenID returns the session issued under the given token ID, or nil
func (r *SessionRepository) FindByTokenID(ctx context.Context, tokenID string) (*core.Session, error) {
	session := &core.Session{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, token_id, issued_at, expires_at FROM sessions WHERE token_id = ?`,
		tokenID,
	).Scan(&session.ID, &session.UserID, &session.TokenID, &session.IssuedAt, &session.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	return session, nil
}

// Delete removes a session
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions past their expiry
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < ?`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(n), nil
}

var _ ports.UserRepository = (*UserRepository)(nil)
var _ ports.SessionRepository = (*SessionRepository)(nil)
