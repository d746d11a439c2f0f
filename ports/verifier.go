package ports

import "context"

// ProofRequest describes what a credential holder must prove to log in.
type ProofRequest struct {
	Name                string
	Version             string
	RequestedAttributes map[string]any
	RequestedPredicates map[string]any
}

// Challenge is the verifier's answer to a proof request: an exchange
// identifier plus an out-of-band invitation a wallet can act on.
type Challenge struct {
	RequestID     string // Presentation exchange identifier
	InvitationURL string // Out-of-band invitation URL, empty if unsupported
}

// Verifier is the opaque external collaborator that creates proof requests
// and validates submitted presentations.
type Verifier interface {
	// CreateChallenge registers a proof request with the verifier agent and
	// returns the exchange identifier and invitation for the wallet.
	CreateChallenge(ctx context.Context, req ProofRequest, callbackURL string) (*Challenge, error)

	// VerifyPresentation validates a submitted proof for the given exchange.
	// A nil error with verified == false means the proof was well-formed but
	// did not satisfy the request.
	VerifyPresentation(ctx context.Context, requestID string, proof map[string]any) (bool, error)
}
