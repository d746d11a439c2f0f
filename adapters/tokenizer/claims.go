package tokenizer

import "github.com/golang-jwt/jwt/v5"

// SessionClaims combines standard claims with session-specific ones
type SessionClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"` // ID of the issued session
	DID       string `json:"did"` // Decentralized identifier of the holder
}
