package api

import (
	"errors"   // gorm.ErrRecordNotFound checks
	"net/http" // HTTP status codes
	"strings"  // String manipulation
	"time"     // Token expiry handling

	"github.com/atharva123a/finance/internal/domain" // Importing domain models
	"github.com/atharva123a/finance/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"golang.org/x/crypto/bcrypt" // Password hashing
	"gorm.io/gorm"               // GORM ORM library
)

// RegisterRequest carries a new account's credentials
type RegisterRequest struct {
	Username     string `json:"username" binding:"required"` // Username must be provided
	Password     string `json:"password" binding:"required"` // Password must be provided
	Confirmation string `json:"confirmation"`                // Must match Password, checked below
}

// LoginRequest carries an existing account's credentials
type LoginRequest struct {
	Username string `json:"username" binding:"required"` // Username must be provided
	Password string `json:"password" binding:"required"` // Password must be provided
}

// AuthResponse returns the session token after a successful login
type AuthResponse struct {
	Token string `json:"token"` // Session token
}

// RegisterHandler creates a new user with a starting cash balance
func RegisterHandler(db *gorm.DB, startCash float64) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// Missing username or password
			c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password are required"})
			return
		}
		// Password and confirmation must agree
		if req.Confirmation == "" || req.Password != req.Confirmation {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Password and confirmation do not match"})
			return
		}
		username := strings.ToLower(strings.TrimSpace(req.Username)) // Usernames are stored lowercase
		// Check for an existing account before creating one
		var existing domain.User
		err := db.Where("username = ?", username).First(&existing).Error
		if err == nil {
			// Username is taken
			c.JSON(http.StatusConflict, gin.H{"error": "Username already exists"})
			return
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check username"})
			return
		}
		// Hash the password
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
			return
		}
		// Create the user with the starting cash grant
		user := domain.User{Username: username, Password: string(hash), Cash: startCash}
		if err := db.Create(&user).Error; err != nil {
			// A concurrent registration can still hit the unique constraint here
			c.JSON(http.StatusConflict, gin.H{"error": "Username already exists"})
			return
		}
		// Log the new account
		logrus.WithFields(logrus.Fields{
			"user_id":  user.ID,   // New user ID
			"username": username,  // Registered username
			"cash":     startCash, // Starting balance
		}).Info("User registered")
		c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully"})
	}
}

// LoginHandler authenticates a user and returns a session token
func LoginHandler(db *gorm.DB, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		var user domain.User // Fetch user from database
		if err := db.Where("username = ?", strings.ToLower(req.Username)).First(&user).Error; err != nil {
			// Unknown username reads the same as a wrong password
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		// Compare provided password with stored hash
		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		// Mint the session token
		token, err := utils.GenerateJWT(user.ID, jwtSecret)
		if err != nil {
			// If token generation fails, return internal server error
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}
		// Return the token in the response
		c.JSON(http.StatusOK, AuthResponse{Token: token})
	}
}

// LogoutHandler revokes the presented session token so it cannot be replayed
func LogoutHandler(revoker utils.TokenRevoker) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetString("token") // Raw token, set by the auth middleware
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		// Denylist the token until its natural expiry
		exp, _ := c.Get("tokenExp")
		expiresAt, ok := exp.(time.Time)
		if !ok {
			expiresAt = time.Now().Add(24 * time.Hour) // Fall back to the issue-time TTL
		}
		if err := revoker.Revoke(c.Request.Context(), token, expiresAt); err != nil {
			logrus.WithFields(logrus.Fields{
				"user_id": c.GetUint("userID"), // Acting user
				"error":   err.Error(),         // Error message
			}).Error("Failed to revoke session")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Logout failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
	}
}
