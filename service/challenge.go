package service

import (
	"fmt"
	"net/url"

	"github.com/veridian-labs/walletgate/ports"
)

// ChallengeEncoding selects how the scannable challenge payload is built.
type ChallengeEncoding string

const (
	// EncodingOOBURL uses the verifier's out-of-band invitation URL as the
	// payload, falling back to a query URL when the agent offers none
	EncodingOOBURL ChallengeEncoding = "oob-url"

	// EncodingQueryURL always builds a plain query URL pointing the wallet at
	// the verifier endpoint
	EncodingQueryURL ChallengeEncoding = "query-url"
)

func (s *LoginService) encodeChallenge(challenge *ports.Challenge) string {
	if s.cfg.ChallengeEncoding == EncodingOOBURL && challenge.InvitationURL != "" {
		return challenge.InvitationURL
	}

	return fmt.Sprintf("%s?pres_ex_id=%s&response_uri=%s",
		s.cfg.VerifierEndpoint,
		url.QueryEscape(challenge.RequestID),
		url.QueryEscape(s.cfg.CallbackURL),
	)
}
