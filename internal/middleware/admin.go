package middleware

import (
	"net/http" // HTTP status codes

	"github.com/atharva123a/finance/internal/domain" // Importing domain models

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library
)

// AdminOnlyMiddleware re-reads the user's role from the database on each
// request, so a demoted admin loses access without waiting for token expiry
func AdminOnlyMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID") // Set by JWTAuthMiddleware
		if !exists {
			// No authenticated user in context
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var role string // Only the role column is needed here
		err := db.Model(&domain.User{}).Select("role").Where("id = ?", userID).Scan(&role).Error
		// Missing user or non-admin role both read as forbidden
		if err != nil || role != "admin" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		c.Next() // Admin confirmed, proceed
	}
}
