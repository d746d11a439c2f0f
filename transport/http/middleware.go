package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	slogctx "github.com/veqryn/slog-context"

	"github.com/veridian-labs/walletgate/core"
	"github.com/veridian-labs/walletgate/service"
)

const (
	contextKeyUser  = "user"
	contextKeyToken = "sessionToken"
)

// AuthMiddleware creates middleware that validates bearer session tokens.
// Any missing, invalid or expired token yields 401, which is the signal the
// client uses to clear its stored token and restart the login flow.
func AuthMiddleware(loginService *service.LoginService) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")

		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header"})
			return
		}

		token := strings.TrimPrefix(auth, "Bearer ")

		user, err := loginService.Authenticate(c.Request.Context(), token)
		if err != nil {
			if err == core.ErrTokenExpired {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Session expired"})
			} else {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			}
			return
		}

		c.Set(contextKeyUser, user)
		c.Set(contextKeyToken, token)

		c.Next()
	}
}

// RequestLogger attaches a request ID and route attributes to the request
// context so service-layer log lines carry them.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := slogctx.Append(c.Request.Context(),
			"http_request_id", uuid.New().String(),
			"method", c.Request.Method,
			"path", c.FullPath(),
		)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
