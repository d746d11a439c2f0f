package http

import (
	"github.com/gin-gonic/gin"

	"github.com/veridian-labs/walletgate/service"
)

// SetupRouter sets up the Gin router
func SetupRouter(loginService *service.LoginService) *gin.Engine {
	router := gin.Default()
	router.Use(RequestLogger())

	handlers := NewLoginHandlers(loginService)

	router.GET("/healthz", handlers.Health)

	// Login exchange routes
	router.POST("/login", handlers.Login)
	router.GET("/login/status/:requestID", handlers.Status)
	router.POST("/proof-callback", handlers.ProofCallback)

	// Protected API routes
	api := router.Group("/api")
	api.Use(AuthMiddleware(loginService))
	{
		api.GET("/dashboard", handlers.Dashboard)
		api.GET("/me", handlers.Me)
		api.POST("/logout", handlers.Logout)
	}

	return router
}
