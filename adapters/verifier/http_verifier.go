package verifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/veridian-labs/walletgate/ports"
)

// HTTPVerifier talks to an external verifier agent over its admin API. The
// agent is treated as a black box: it mints presentation exchanges, hands out
// wallet invitations and validates submitted presentations.
type HTTPVerifier struct {
	baseURL string
	client  *http.Client
}

// NewHTTPVerifier creates a verifier client for the given agent URL
func NewHTTPVerifier(baseURL string) *HTTPVerifier {
	return &HTTPVerifier{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// CreateChallenge registers a proof request and builds an out-of-band
// invitation for it. Agents without out-of-band support still yield a usable
// challenge; InvitationURL is left empty in that case.
func (v *HTTPVerifier) CreateChallenge(ctx context.Context, req ports.ProofRequest, callbackURL string) (*ports.Challenge, error) {
	requestID, err := v.createProofRequest(ctx, req, callbackURL)
	if err != nil {
		return nil, err
	}

	invitationURL, err := v.createInvitation(ctx, requestID)
	if err != nil {
		// The exchange exists; the caller falls back to a plain query URL
		return &ports.Challenge{RequestID: requestID}, nil
	}

	return &ports.Challenge{
		RequestID:     requestID,
		InvitationURL: invitationURL,
	}, nil
}

func (v *HTTPVerifier) createProofRequest(ctx context.Context, req ports.ProofRequest, callbackURL string) (string, error) {
	predicates := req.RequestedPredicates
	if predicates == nil {
		predicates = map[string]any{}
	}

	payload := map[string]any{
		"proof_request": map[string]any{
			"name":                 req.Name,
			"version":              req.Version,
			"requested_attributes": req.RequestedAttributes,
			"requested_predicates": predicates,
		},
	}
	if callbackURL != "" {
		payload["response_uri"] = callbackURL
	}

	result, err := v.post(ctx, "/present-proof/create-request", payload)
	if err != nil {
		return "", fmt.Errorf("failed to create proof request: %w", err)
	}

	requestID, ok := result["presentation_exchange_id"].(string)
	if !ok {
		requestID, ok = result["pres_ex_id"].(string)
	}
	if !ok {
		return "", fmt.Errorf("verifier response missing presentation exchange id")
	}

	return requestID, nil
}

func (v *HTTPVerifier) createInvitation(ctx context.Context, requestID string) (string, error) {
	record, err := v.get(ctx, "/present-proof/records/"+requestID)
	if err != nil {
		return "", fmt.Errorf("failed to fetch proof request record: %w", err)
	}

	requestDict, ok := record["presentation_request_dict"].(map[string]any)
	if !ok {
		return "", fmt.Errorf("proof request record missing presentation_request_dict")
	}

	attach, ok := requestDict["request_presentations~attach"].([]any)
	if !ok || len(attach) == 0 {
		return "", fmt.Errorf("proof request record missing presentation attachment")
	}

	payload := map[string]any{
		"auto_accept":         true,
		"public":              true,
		"handshake_protocols": []string{},
		"attachments": []map[string]any{
			{
				"@id":  "request-0",
				"type": "present-proof",
				"data": map[string]any{
					"json": map[string]any{
						"@type":                        requestDict["@type"],
						"@id":                          requestDict["@id"],
						"request_presentations~attach": attach,
					},
				},
			},
		},
	}

	result, err := v.post(ctx, "/out-of-band/create-invitation", payload)
	if err != nil {
		return "", fmt.Errorf("failed to create out-of-band invitation: %w", err)
	}

	invitationURL, ok := result["invitation_url"].(string)
	if !ok {
		return "", fmt.Errorf("invitation response missing invitation_url")
	}

	return invitationURL, nil
}

// VerifyPresentation asks the agent to validate the submitted presentation
func (v *HTTPVerifier) VerifyPresentation(ctx context.Context, requestID string, proof map[string]any) (bool, error) {
	result, err := v.post(ctx, "/present-proof/records/"+requestID+"/verify-presentation", nil)
	if err != nil {
		return false, fmt.Errorf("failed to verify presentation: %w", err)
	}

	if verified, ok := result["verified"].(bool); ok {
		return verified, nil
	}

	// Older agents only report the exchange state
	state, _ := result["state"].(string)
	return state == "verified", nil
}

func (v *HTTPVerifier) post(ctx context.Context, path string, payload any) (map[string]any, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return v.do(req)
}

func (v *HTTPVerifier) get(ctx context.Context, path string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	return v.do(req)
}

func (v *HTTPVerifier) do(req *http.Request) (map[string]any, error) {
	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("verifier agent unreachable: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read verifier response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg := string(data)
		if len(msg) > 200 {
			msg = msg[:200] + "..."
		}
		return nil, fmt.Errorf("verifier agent returned status %d: %s", resp.StatusCode, msg)
	}

	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse verifier response: %w", err)
	}

	return result, nil
}

var _ ports.Verifier = (*HTTPVerifier)(nil)
