package middleware

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"github.com/atharva123a/finance/internal/utils" // JWT utility functions

	"github.com/gin-gonic/gin" // Gin web framework
)

// JWTAuthMiddleware validates session tokens and extracts user information.
// Tokens revoked by logout are rejected even if their signature still verifies.
func JWTAuthMiddleware(secret string, revoker utils.TokenRevoker) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization") // Get Authorization header
		// Check if the Authorization header is present and properly formatted
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			// If not, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}
		tokenStr := strings.TrimPrefix(authHeader, "Bearer ") // Extract the token string and parse it
		claims, err := utils.ParseJWT(tokenStr, secret)       // Parse the session token
		if err != nil {
			// If parsing fails, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		// Reject tokens denylisted by a previous logout
		if revoker.IsRevoked(c.Request.Context(), tokenStr) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Session has been logged out"})
			return
		}
		c.Set("userID", claims.UserID) // Store userID in context
		c.Set("token", tokenStr)       // Raw token, needed by logout
		if claims.ExpiresAt != nil {
			c.Set("tokenExp", claims.ExpiresAt.Time) // Token expiry, bounds the revocation TTL
		}
		c.Next() // Proceed to the next handler
	}
}
