package main

import (
	"context" // context package is needed for Redis operations
	"log"     // log package is needed for logging

	"github.com/atharva123a/finance/internal/api"        // Custom package for API handlers
	"github.com/atharva123a/finance/internal/config"     // Custom package for configuration
	"github.com/atharva123a/finance/internal/ledger"     // Trading ledger service
	"github.com/atharva123a/finance/internal/middleware" // Custom package for middleware
	"github.com/atharva123a/finance/internal/quote"      // Quote provider
	"github.com/atharva123a/finance/internal/utils"      // Session revocation

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
	"gorm.io/driver/mysql"         // MySQL driver for GORM
	"gorm.io/gorm"                 // GORM ORM library
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// The quote provider is an external collaborator, refuse to start without a key
	if cfg.QuoteAPIKey == "" {
		logrus.Fatal("QUOTE_API_KEY not set")
	}

	// Setup Data Source Name (DSN) and connect to the database
	dsn := cfg.DBUser + ":" + cfg.DBPassword + "@tcp(" + cfg.DBHost + ":" + cfg.DBPort + ")/" + cfg.DBName + "?parseTime=true"
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}

	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})

	// Test Redis connection
	_, err = redisClient.Ping(context.Background()).Result()
	if err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}

	// Quote provider with Redis caching and a DB audit trail
	quotes := quote.NewAlphaVantage(cfg.QuoteAPIKey, cfg.QuoteAPIURL, redisClient, db)
	// The ledger owns every trade
	svc := ledger.New(db, quotes)
	// Logout denylists tokens in Redis
	revoker := utils.NewRedisRevoker(redisClient)

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup Gin
	r := gin.Default() // Gin router instance

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	// Auth routes
	r.POST("/register", api.RegisterHandler(db, cfg.StartCash)) // Registration endpoint
	r.POST("/login", api.LoginHandler(db, cfg.JWTSecret))       // Login endpoint

	// Trading routes (protected by session token)
	authed := r.Group("/")
	authed.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret, revoker))
	authed.GET("", api.PortfolioHandler(svc, redisClient))       // Portfolio view
	authed.GET("/logout", api.LogoutHandler(revoker))            // Logout endpoint
	authed.GET("/quote/:symbol", api.QuoteHandler(quotes))       // Quote lookup endpoint
	authed.POST("/quote", api.QuoteHandler(quotes))              // Quote lookup via request body
	authed.POST("/buy", api.BuyHandler(svc, redisClient))        // Buy endpoint
	authed.POST("/sell", api.SellHandler(svc, redisClient))      // Sell endpoint
	authed.GET("/history", api.HistoryHandler(svc, redisClient)) // Transaction history endpoint
	authed.GET("/symbols", api.SymbolsHandler(svc))              // Held symbols for the sell form

	// Admin routes (protected, admin only)
	adminGroup := r.Group("/admin")
	adminGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret, revoker), middleware.AdminOnlyMiddleware(db))
	adminGroup.GET("/users", api.ListUsersHandler(db, redisClient))               // List users endpoint
	adminGroup.GET("/transactions", api.ListTransactionsHandler(db, redisClient)) // Global trade log endpoint

	log.Println("Server running on " + cfg.AppPort) // Log server start
	r.Run(":" + cfg.AppPort)                        // Start the server on port cfg.AppPort
}
