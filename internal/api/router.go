package api

import (
	"github.com/gin-gonic/gin"
	"github.com/leadertalk/leadertalk/internal/api/admin"
	"github.com/leadertalk/leadertalk/internal/api/chat"
	"github.com/leadertalk/leadertalk/internal/api/middleware"
)

// RouterConfig holds configuration for the router
type RouterConfig struct {
	AdminAPIKey  string
	Identity     middleware.IdentityResolver
	AllowOrigins []string
}

// SetupRouter sets up the Gin router
func SetupRouter(
	chatHandler *chat.Handler,
	adminHandler *admin.Handler,
	cfg RouterConfig,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// CORS middleware
	r.Use(middleware.CORS(cfg.AllowOrigins))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Conversational API (requires an authenticated caller)
	leaderGroup := r.Group("/api/leaders")
	leaderGroup.Use(middleware.Identity(cfg.Identity))
	chatHandler.RegisterRoutes(leaderGroup)

	// Entity catalog API (requires API key)
	adminGroup := r.Group("/api/admin")
	adminGroup.Use(middleware.APIKey(cfg.AdminAPIKey))
	adminHandler.RegisterRoutes(adminGroup)

	return r
}
