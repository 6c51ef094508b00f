package middleware

import (
	"net/http"
	"strings"

	"opencat/pkg/services"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware validates the `Authorization: Bearer <key>` header against
// the api_keys table and binds the owning App into the request context.
// The response never distinguishes a missing header from an invalid,
// unknown, or revoked key.
func AuthMiddleware(apiKeys *services.APIKeyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		app, err := apiKeys.Authenticate(c.Request.Context(), parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Set("app", app)
		c.Set("app_id", app.ID)
		c.Next()
	}
}

// AdminMiddleware guards app-bootstrap operations (creating the very first
// App, and listing across all apps) that by definition precede any per-app
// API key. It checks the same `Authorization: Bearer <secret>` header
// against the operator-configured server secret key.
func AdminMiddleware(secretKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" || secretKey == "" || parts[1] != secretKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
