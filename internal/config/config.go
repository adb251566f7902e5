package config

import (
	"os"      // For environment variables
	"strconv" // For string to int conversion

	"github.com/joho/godotenv" // For loading .env files
)

// Config holds the application configuration
type Config struct {
	AppPort     string  // Application port
	DBUser      string  // Database user
	DBPassword  string  // Database password
	DBHost      string  // Database host
	DBPort      string  // Database port
	DBName      string  // Database name
	JWTSecret   string  // JWT secret key
	RedisAddr   string  // Redis server address
	RedisPass   string  // Redis password
	RedisDB     int     // Redis database number
	QuoteAPIKey string  // API key for the stock quote provider
	QuoteAPIURL string  // Base URL of the quote provider (overridable for tests)
	StartCash   float64 // Cash balance granted to new accounts
	IsProd      bool    // Is production environment
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	// New accounts start with $10,000 of simulated cash unless overridden
	startCash, err := strconv.ParseFloat(os.Getenv("START_CASH"), 64)
	if err != nil || startCash <= 0 {
		startCash = 10000
	}
	quoteURL := os.Getenv("QUOTE_API_URL")
	if quoteURL == "" {
		quoteURL = "https://www.alphavantage.co" // Default quote provider
	}
	return &Config{
		AppPort:     os.Getenv("APP_PORT"),          // Application port
		DBUser:      os.Getenv("DB_USER"),           // Database user
		DBPassword:  os.Getenv("DB_PASSWORD"),       // Database password
		DBHost:      os.Getenv("DB_HOST"),           // Database host
		DBPort:      os.Getenv("DB_PORT"),           // Database port
		DBName:      os.Getenv("DB_NAME"),           // Database name
		JWTSecret:   os.Getenv("JWT_SECRET"),        // JWT secret key
		RedisAddr:   os.Getenv("REDIS_ADDR"),        // Redis server address
		RedisPass:   os.Getenv("REDIS_PASS"),        // Redis password
		RedisDB:     redisDB,                        // Redis database number
		QuoteAPIKey: os.Getenv("QUOTE_API_KEY"),     // Quote provider API key
		QuoteAPIURL: quoteURL,                       // Quote provider base URL
		StartCash:   startCash,                      // Starting cash for new users
		IsProd:      os.Getenv("IS_PROD") == "true", // Is production environment
	}
}
