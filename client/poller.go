// Package client implements the counterpart login flow: it requests a
// challenge, exposes it for rendering and polls the status endpoint until
// the exchange reaches a terminal state.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// PollerState is the client-visible state of the login flow.
type PollerState string

const (
	StateIdle              PollerState = "idle"
	StateAwaitingChallenge PollerState = "awaiting_challenge"
	StatePolling           PollerState = "polling"
	StateAuthenticated     PollerState = "authenticated"
	StateFailed            PollerState = "failed"
)

var (
	// ErrLoginExpired is returned when the server reports not_found: the
	// session expired or never existed. The challenge is discarded and the
	// caller may start over.
	ErrLoginExpired = errors.New("login session expired")

	// ErrTooManyFailures is returned when consecutive transport failures
	// exceed the configured cap.
	ErrTooManyFailures = errors.New("too many consecutive poll failures")
)

// Challenge is what the caller renders as a scannable code.
type Challenge struct {
	RequestID        string    `json:"request_id"`
	ChallengePayload string    `json:"challenge_payload"`
	ExpiresAt        time.Time `json:"expires_at"`
}

// Options configures a Poller.
type Options struct {
	// Interval between polls. Defaults to 2 seconds.
	Interval time.Duration

	// MaxFailures caps consecutive transport failures before the poll loop
	// gives up. Zero means no cap; single failures are always tolerated.
	MaxFailures int

	// HTTPClient overrides the default HTTP client.
	HTTPClient *http.Client

	// Logger receives transport-failure log lines. Defaults to slog.Default.
	Logger *slog.Logger
}

// Poller drives the login flow against a walletgate server. One timer drives
// sequential poll attempts; a poll is never issued while a prior one is
// outstanding, and the timer is always released when the flow reaches a
// terminal state or the context is cancelled.
type Poller struct {
	baseURL string
	tokens  TokenStore
	opts    Options

	state PollerState
}

// NewPoller creates a poller against the given server base URL. The token
// store receives the session token exactly once, on authentication.
func NewPoller(baseURL string, tokens TokenStore, opts Options) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = 2 * time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Poller{
		baseURL: baseURL,
		tokens:  tokens,
		opts:    opts,
		state:   StateIdle,
	}
}

// State returns the current flow state.
func (p *Poller) State() PollerState {
	return p.state
}

// Begin requests a new login challenge from the server. The caller renders
// Challenge.ChallengePayload and then calls Wait.
func (p *Poller) Begin(ctx context.Context) (*Challenge, error) {
	p.state = StateAwaitingChallenge

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/login", nil)
	if err != nil {
		p.state = StateFailed
		return nil, fmt.Errorf("failed to create login request: %w", err)
	}

	resp, err := p.opts.HTTPClient.Do(req)
	if err != nil {
		p.state = StateFailed
		return nil, fmt.Errorf("failed to request challenge: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		p.state = StateFailed
		return nil, fmt.Errorf("unexpected status %d from login endpoint", resp.StatusCode)
	}

	var challenge Challenge
	if err := json.NewDecoder(resp.Body).Decode(&challenge); err != nil {
		p.state = StateFailed
		return nil, fmt.Errorf("failed to decode challenge: %w", err)
	}

	p.state = StatePolling
	return &challenge, nil
}

// Wait polls the status endpoint until the session completes, expires or
// ctx is cancelled. On success the token has been handed to the TokenStore
// and is also returned. Transport errors during a tick are logged and the
// next tick proceeds.
func (p *Poller) Wait(ctx context.Context, requestID string) (string, error) {
	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()

	failures := 0

	for {
		select {
		case <-ctx.Done():
			p.state = StateFailed
			return "", ctx.Err()
		case <-ticker.C:
			// The poll runs synchronously on the ticker goroutine, so a slow
			// round trip drops ticks instead of stacking requests
			status, token, err := p.poll(ctx, requestID)
			if err != nil {
				failures++
				p.opts.Logger.Warn("login status poll failed",
					"request_id", requestID, "failures", failures, "error", err)
				if p.opts.MaxFailures > 0 && failures >= p.opts.MaxFailures {
					p.state = StateFailed
					return "", ErrTooManyFailures
				}
				continue
			}
			failures = 0

			switch status {
			case "pending":
				// Keep polling
			case "completed":
				if err := p.tokens.Save(token); err != nil {
					p.state = StateFailed
					return "", fmt.Errorf("failed to persist session token: %w", err)
				}
				p.state = StateAuthenticated
				return token, nil
			case "not_found":
				p.state = StateFailed
				return "", ErrLoginExpired
			default:
				p.state = StateFailed
				return "", fmt.Errorf("unexpected login status %q", status)
			}
		}
	}
}

// Run performs the whole flow: Begin, hand the challenge to render, then
// Wait. render may be nil.
func (p *Poller) Run(ctx context.Context, render func(*Challenge)) (string, error) {
	challenge, err := p.Begin(ctx)
	if err != nil {
		return "", err
	}

	if render != nil {
		render(challenge)
	}

	return p.Wait(ctx, challenge.RequestID)
}

func (p *Poller) poll(ctx context.Context, requestID string) (status, token string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/login/status/"+requestID, nil)
	if err != nil {
		return "", "", err
	}

	resp, err := p.opts.HTTPClient.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("unexpected status %d from status endpoint", resp.StatusCode)
	}

	var body struct {
		Status       string `json:"status"`
		SessionToken string `json:"session_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", "", err
	}

	return body.Status, body.SessionToken, nil
}
