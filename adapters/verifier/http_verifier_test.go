package verifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridian-labs/walletgate/ports"
)

func agentStub(t *testing.T, oobBroken bool) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /present-proof/create-request", func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Contains(t, payload, "proof_request")

		json.NewEncoder(w).Encode(map[string]any{
			"presentation_exchange_id": "pres-ex-1",
		})
	})
	mux.HandleFunc("GET /present-proof/records/pres-ex-1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"presentation_request_dict": map[string]any{
				"@type":                        "present-proof/1.0/request-presentation",
				"@id":                          "msg-1",
				"request_presentations~attach": []any{map[string]any{"@id": "libindy-request-presentation-0"}},
			},
		})
	})
	mux.HandleFunc("POST /out-of-band/create-invitation", func(w http.ResponseWriter, r *http.Request) {
		if oobBroken {
			w.WriteHeader(http.StatusNotImplemented)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"invitation_url": "https://agent.example/oob?c_i=abc",
		})
	})
	mux.HandleFunc("POST /present-proof/records/pres-ex-1/verify-presentation", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"verified": true})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestCreateChallenge(t *testing.T) {
	srv := agentStub(t, false)
	v := NewHTTPVerifier(srv.URL)

	challenge, err := v.CreateChallenge(context.Background(), ports.ProofRequest{
		Name:                "Walletgate Sign-In",
		Version:             "1.0",
		RequestedAttributes: map[string]any{},
	}, "http://localhost:8080/proof-callback")
	require.NoError(t, err)
	assert.Equal(t, "pres-ex-1", challenge.RequestID)
	assert.Equal(t, "https://agent.example/oob?c_i=abc", challenge.InvitationURL)
}

func TestCreateChallengeWithoutOOBSupport(t *testing.T) {
	srv := agentStub(t, true)
	v := NewHTTPVerifier(srv.URL)

	challenge, err := v.CreateChallenge(context.Background(), ports.ProofRequest{}, "")
	require.NoError(t, err)
	assert.Equal(t, "pres-ex-1", challenge.RequestID)
	assert.Empty(t, challenge.InvitationURL)
}

func TestVerifyPresentation(t *testing.T) {
	srv := agentStub(t, false)
	v := NewHTTPVerifier(srv.URL)

	verified, err := v.VerifyPresentation(context.Background(), "pres-ex-1", nil)
	require.NoError(t, err)
	assert.True(t, verified)
}

func TestVerifierUnreachable(t *testing.T) {
	v := NewHTTPVerifier("http://127.0.0.1:1")

	_, err := v.CreateChallenge(context.Background(), ports.ProofRequest{}, "")
	assert.Error(t, err)
}
