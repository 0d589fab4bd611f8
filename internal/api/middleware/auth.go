package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// UserIDKey is the context key holding the authenticated caller identity.
const UserIDKey = "user_id"

// IdentityResolver resolves a bearer token to a stable user identity.
// The real identity provider sits outside this service; StaticResolver is
// the built-in stand-in.
type IdentityResolver interface {
	Resolve(token string) (userID string, ok bool)
}

// StaticResolver resolves tokens from a fixed token-to-user map.
type StaticResolver map[string]string

// Resolve implements IdentityResolver.
func (r StaticResolver) Resolve(token string) (string, bool) {
	userID, ok := r[token]
	return userID, ok
}

// Identity requires an authenticated caller on every request and stores
// the resolved user id in the context. Chat history is always scoped by
// this identity; there is no anonymous access.
func Identity(resolver IdentityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		userID, ok := resolver.Resolve(strings.TrimPrefix(auth, "Bearer "))
		if !ok || userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// UserID returns the authenticated user id stored by Identity.
func UserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

// APIKey returns an API key authentication middleware for admin routes
func APIKey(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip auth if no API key configured
		if apiKey == "" {
			c.Next()
			return
		}

		// Get API key from header
		key := c.GetHeader("X-API-Key")
		if key == "" {
			// Also try Authorization header
			auth := c.GetHeader("Authorization")
			if strings.HasPrefix(auth, "Bearer ") {
				key = strings.TrimPrefix(auth, "Bearer ")
			}
		}

		if key != apiKey {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		c.Next()
	}
}
