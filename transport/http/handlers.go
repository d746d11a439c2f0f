package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	slogctx "github.com/veqryn/slog-context"

	"github.com/veridian-labs/walletgate/core"
	"github.com/veridian-labs/walletgate/service"
)

// LoginHandlers contains HTTP handlers for the login exchange endpoints
type LoginHandlers struct {
	loginService *service.LoginService
}

// NewLoginHandlers creates new login handlers
func NewLoginHandlers(loginService *service.LoginService) *LoginHandlers {
	return &LoginHandlers{
		loginService: loginService,
	}
}

// Login creates a new pending login session and returns the challenge
func (h *LoginHandlers) Login(c *gin.Context) {
	session, err := h.loginService.CreateSession(c.Request.Context())
	if err != nil {
		slogctx.Error(c.Request.Context(), "failed to create login session", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create login session"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"request_id":        session.RequestID,
		"challenge_payload": session.ChallengePayload,
		"expires_at":        session.ExpiresAt.Format(time.RFC3339),
	})
}

// Status answers one poll for a login session. The response is a closed
// enumeration; expired and unknown sessions are both reported as not_found.
func (h *LoginHandlers) Status(c *gin.Context) {
	requestID := c.Param("requestID")

	result, err := h.loginService.Status(c.Request.Context(), requestID)
	if err != nil {
		slogctx.Error(c.Request.Context(), "failed to read login status", "request_id", requestID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read login status"})
		return
	}

	resp := gin.H{"status": string(result.Status)}
	if result.Status == service.StatusCompleted {
		resp["session_token"] = result.SessionToken
	}

	c.JSON(http.StatusOK, resp)
}

// ProofCallback is the verifier-facing completion entry point
func (h *LoginHandlers) ProofCallback(c *gin.Context) {
	var req struct {
		RequestID string         `json:"proof_request_id" binding:"required"`
		Proof     map[string]any `json:"proof"`
		HolderDID string         `json:"holder_did" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request"})
		return
	}

	token, err := h.loginService.VerifyCallback(c.Request.Context(), req.RequestID, req.Proof, req.HolderDID)
	if err != nil {
		statusCode := http.StatusInternalServerError
		message := "Failed to complete login"

		switch {
		case errors.Is(err, core.ErrProofRejected):
			statusCode = http.StatusUnauthorized
			message = "Proof verification failed"
		case errors.Is(err, core.ErrNotFound):
			statusCode = http.StatusNotFound
			message = "Unknown login session"
		case errors.Is(err, core.ErrExpired):
			statusCode = http.StatusGone
			message = "Login session expired"
		case errors.Is(err, core.ErrAlreadyCompleted):
			statusCode = http.StatusConflict
			message = "Login session already completed"
		}

		if statusCode == http.StatusInternalServerError {
			slogctx.Error(c.Request.Context(), "failed to complete login",
				"request_id", req.RequestID, "error", err)
		}

		c.JSON(statusCode, gin.H{"success": false, "message": message})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"session_token": token,
		"message":       "Login successful",
	})
}

// Logout revokes the caller's bearer session
func (h *LoginHandlers) Logout(c *gin.Context) {
	token, ok := c.Get(contextKeyToken)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Token not found in context"})
		return
	}

	if err := h.loginService.Logout(c.Request.Context(), token.(string)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to logout"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Dashboard returns the authenticated user
func (h *LoginHandlers) Dashboard(c *gin.Context) {
	user, ok := getUser(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User not found in context"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": gin.H{
			"id":         user.ID,
			"did":        user.DID,
			"created_at": user.CreatedAt.Format(time.RFC3339),
		},
	})
}

// Me returns information about the authenticated user
func (h *LoginHandlers) Me(c *gin.Context) {
	user, ok := getUser(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User not found in context"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"did": user.DID})
}

// Health reports liveness
func (h *LoginHandlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func getUser(c *gin.Context) (*core.User, bool) {
	v, ok := c.Get(contextKeyUser)
	if !ok {
		return nil, false
	}
	user, ok := v.(*core.User)
	return user, ok
}
