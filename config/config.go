package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the environment-driven configuration surface of walletgate.
type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	// RedisURL selects the redis-backed session store and event transport.
	// Empty runs the in-memory store with an in-process event bus.
	RedisURL string `env:"REDIS_URL"`

	DatabasePath string `env:"DATABASE_PATH" envDefault:"walletgate.db"`

	// VerifierURL is the admin API of the external verifier agent
	VerifierURL string `env:"VERIFIER_URL" envDefault:"http://localhost:8004"`

	// VerifierEndpoint is the wallet-facing verifier endpoint used for
	// query-url challenge payloads
	VerifierEndpoint string `env:"VERIFIER_ENDPOINT" envDefault:"http://localhost:8003"`

	// CallbackURL is where the verifier posts proof completions
	CallbackURL string `env:"CALLBACK_URL" envDefault:"http://localhost:8080/proof-callback"`

	// CredDefID restricts which credential definition satisfies the proof
	CredDefID string `env:"CRED_DEF_ID"`

	// SigningKeyPath points at a PEM-encoded EC private key for session
	// tokens. Empty generates an ephemeral key on startup.
	SigningKeyPath string `env:"SIGNING_KEY_PATH"`

	// ChallengeTTL is how long a pending login stays valid
	ChallengeTTL time.Duration `env:"CHALLENGE_TTL" envDefault:"5m"`

	// SessionTTL is the lifetime of issued bearer sessions
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"24h"`

	// Retention is how long expired login records stay reportable
	Retention time.Duration `env:"RETENTION" envDefault:"1m"`

	// SweepInterval drives the housekeeping loop
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`

	// ChallengeEncoding selects the challenge payload scheme:
	// oob-url or query-url
	ChallengeEncoding string `env:"CHALLENGE_ENCODING" envDefault:"oob-url"`
}

// Load parses the configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}
