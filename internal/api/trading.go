package api

import (
	"errors"   // Sentinel error dispatch
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Cache TTLs

	"github.com/atharva123a/finance/internal/domain" // Importing domain models
	"github.com/atharva123a/finance/internal/ledger" // Trading ledger service
	"github.com/atharva123a/finance/internal/quote"  // Quote provider
	"github.com/atharva123a/finance/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
)

// TradeRequest is the body of a buy or sell
type TradeRequest struct {
	Symbol string `json:"symbol" binding:"required"`       // Stock ticker symbol
	Shares int    `json:"shares" binding:"required,min=1"` // Whole shares, at least one
}

// tradeStatus maps ledger failures to conventional HTTP status codes
func tradeStatus(err error) int {
	switch {
	case errors.Is(err, ledger.ErrUnknownSymbol), errors.Is(err, ledger.ErrNoSuchPosition):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrInvalidShares),
		errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, ledger.ErrInsufficientShares):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// tradeMessage hides internal failures behind a generic message
func tradeMessage(err error, fallback string) string {
	if tradeStatus(err) == http.StatusInternalServerError {
		return fallback
	}
	return err.Error()
}

// BuyHandler purchases shares for the authenticated user
func BuyHandler(svc *ledger.Service, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID") // Get userID from context
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req TradeRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Symbol and a positive share count are required"})
			return
		}
		// Run the trade through the ledger
		res, err := svc.Buy(c.Request.Context(), userID.(uint), req.Symbol, req.Shares)
		if err != nil {
			// Log the rejected or failed trade
			logrus.WithFields(logrus.Fields{
				"user_id": userID,      // Acting user
				"symbol":  req.Symbol,  // Requested symbol
				"shares":  req.Shares,  // Requested shares
				"error":   err.Error(), // Error message
			}).Warn("Buy failed")
			c.JSON(tradeStatus(err), gin.H{"error": tradeMessage(err, "Buy failed")})
			return
		}
		// Log the completed trade
		logrus.WithFields(logrus.Fields{
			"user_id":   userID,                          // Acting user
			"symbol":    res.Symbol,                      // Traded symbol
			"shares":    res.Shares,                      // Shares bought
			"price":     res.Price,                       // Execution price
			"total":     res.Total,                       // Cash spent
			"type":      "buy",                           // Trade side
			"timestamp": time.Now().Format(time.RFC3339), // Current timestamp
		}).Info("Buy transaction")
		// The portfolio and history caches are now stale
		utils.InvalidateUserCaches(c.Request.Context(), rdb, userID.(uint))
		c.JSON(http.StatusOK, gin.H{"message": "Bought!", "trade": res})
	}
}

// SellHandler sells shares for the authenticated user
func SellHandler(svc *ledger.Service, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID") // Get userID from context
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req TradeRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Symbol and a positive share count are required"})
			return
		}
		// Run the trade through the ledger
		res, err := svc.Sell(c.Request.Context(), userID.(uint), req.Symbol, req.Shares)
		if err != nil {
			// Log the rejected or failed trade
			logrus.WithFields(logrus.Fields{
				"user_id": userID,      // Acting user
				"symbol":  req.Symbol,  // Requested symbol
				"shares":  req.Shares,  // Requested shares
				"error":   err.Error(), // Error message
			}).Warn("Sell failed")
			c.JSON(tradeStatus(err), gin.H{"error": tradeMessage(err, "Sell failed")})
			return
		}
		// Log the completed trade
		logrus.WithFields(logrus.Fields{
			"user_id":   userID,                          // Acting user
			"symbol":    res.Symbol,                      // Traded symbol
			"shares":    res.Shares,                      // Shares sold
			"price":     res.Price,                       // Execution price
			"total":     res.Total,                       // Cash received
			"type":      "sell",                          // Trade side
			"timestamp": time.Now().Format(time.RFC3339), // Current timestamp
		}).Info("Sell transaction")
		// The portfolio and history caches are now stale
		utils.InvalidateUserCaches(c.Request.Context(), rdb, userID.(uint))
		c.JSON(http.StatusOK, gin.H{"message": "Sold!", "trade": res})
	}
}

// QuoteRequest is the body form of a quote lookup
type QuoteRequest struct {
	Symbol string `json:"symbol" binding:"required"` // Stock ticker symbol
}

// QuoteHandler looks up the current quote for a symbol, taken from the URL
// path on GET or from the JSON body on POST
func QuoteHandler(quotes quote.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		symbol := c.Param("symbol") // Symbol from the URL path
		if symbol == "" {
			var req QuoteRequest // Fall back to the request body
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Symbol is required"})
				return
			}
			symbol = req.Symbol
		}
		q, err := quotes.Lookup(c.Request.Context(), symbol)
		if errors.Is(err, quote.ErrNotFound) {
			// Unknown symbol
			c.JSON(http.StatusNotFound, gin.H{"error": "No stock exists for that symbol"})
			return
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to fetch stock data"})
			return
		}
		c.JSON(http.StatusOK, q) // {symbol, name, price}
	}
}

// PortfolioHandler returns the authenticated user's holdings, cash and grand total
func PortfolioHandler(svc *ledger.Service, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID") // Get userID from context
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		ctx := c.Request.Context()
		cacheKey := "portfolio:user:" + strconv.Itoa(int(userID.(uint))) // Cache key for the portfolio
		var cached ledger.Portfolio
		// Serve from cache when the portfolio hasn't changed since the last trade
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			c.JSON(http.StatusOK, gin.H{"portfolio": cached, "cached": true})
			return
		}
		// Aggregate from the database
		p, err := svc.GetPortfolio(ctx, userID.(uint))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch portfolio"})
			return
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, p, 60*time.Second)     // Cache for 60 seconds
		c.JSON(http.StatusOK, gin.H{"portfolio": p, "cached": false}) // Return portfolio
	}
}

// HistoryHandler returns the authenticated user's trades, newest first
func HistoryHandler(svc *ledger.Service, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID") // Get userID from context
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		page := 1      // Default page
		pageSize := 20 // Default page size
		// If page exists in query
		if p := c.Query("page"); p != "" {
			if v, err := strconv.Atoi(p); err == nil && v > 0 {
				page = v // Set page if valid
			}
		}
		// If page_size exists in query
		if ps := c.Query("page_size"); ps != "" {
			if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
				pageSize = v // Set page size if valid
			}
		}
		ctx := c.Request.Context()
		// Redis cache key
		cacheKey := "txhistory:user:" + strconv.Itoa(int(userID.(uint))) + ":page:" + strconv.Itoa(page) + ":size:" + strconv.Itoa(pageSize)
		var cached struct {
			Transactions []domain.Transaction `json:"transactions"` // List of transactions
			Page         int                  `json:"page"`         // Current page
			PageSize     int                  `json:"page_size"`    // Page size
			Total        int64                `json:"total"`        // Total transactions
			TotalPages   int                  `json:"total_pages"`  // Total pages
		}
		// Try to get from cache
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			c.JSON(http.StatusOK, gin.H{
				"transactions": cached.Transactions, // Cached transactions
				"page":         cached.Page,         // Current page
				"page_size":    cached.PageSize,     // Page size
				"total":        cached.Total,        // Total transactions
				"total_pages":  cached.TotalPages,   // Total pages
				"cached":       true,
			})
			return
		}
		// Fetch the page from the ledger
		transactions, total, err := svc.History(ctx, userID.(uint), page, pageSize)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch transactions"})
			return
		}
		// Calculate total pages
		totalPages := (int(total) + pageSize - 1) / pageSize
		resp := gin.H{
			"transactions": transactions, // List of transactions
			"page":         page,         // Current page
			"page_size":    pageSize,     // Page size
			"total":        total,        // Total transactions
			"total_pages":  totalPages,   // Total pages
			"cached":       false,        // Not from cache
		}
		// Cache the result for 60 seconds
		_ = utils.SetCache(ctx, rdb, cacheKey, resp, 60*time.Second)
		c.JSON(http.StatusOK, resp) // Return transaction history
	}
}

// SymbolsHandler lists the symbols the authenticated user currently holds
func SymbolsHandler(svc *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID") // Get userID from context
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		symbols, err := svc.Symbols(c.Request.Context(), userID.(uint))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch symbols"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"symbols": symbols}) // Held symbols
	}
}
