package core

import "errors"

var (
	ErrNotFound         = errors.New("login session not found")
	ErrExpired          = errors.New("login session has expired")
	ErrAlreadyCompleted = errors.New("login session already completed")
	ErrDuplicateID      = errors.New("login session already exists")
	ErrTokenExpired     = errors.New("session token has expired")
	ErrInvalidToken     = errors.New("invalid session token")
	ErrProofRejected    = errors.New("proof verification rejected")
)
