package quote

import (
	"context"       // Request-scoped cancellation
	"encoding/json" // Decoding provider responses
	"errors"        // Sentinel errors
	"fmt"           // URL construction
	"net/http"      // Calling the provider
	"net/url"       // Symbol escaping
	"strconv"       // Price string parsing
	"strings"       // Symbol normalization
	"time"          // Cache TTL and HTTP timeout

	"github.com/atharva123a/finance/internal/domain" // QuotePrice audit rows
	"github.com/atharva123a/finance/internal/utils"  // Redis cache helpers

	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
)

// ErrNotFound is returned when the provider has no quote for a symbol
var ErrNotFound = errors.New("symbol not found")

const cacheTTL = 5 * time.Minute // Quotes are cached briefly, prices move

// Quote is the normalized result of a symbol lookup
type Quote struct {
	Symbol string  `json:"symbol"` // Ticker symbol, uppercased
	Name   string  `json:"name"`   // Company name
	Price  float64 `json:"price"`  // Latest trade price
}

// Provider resolves a ticker symbol to its current quote
type Provider interface {
	Lookup(ctx context.Context, symbol string) (*Quote, error)
}

// AlphaVantage is a Provider backed by the Alpha Vantage REST API, with a
// Redis read-through cache and an optional audit table for fresh lookups
type AlphaVantage struct {
	apiKey  string        // Provider API key
	baseURL string        // Provider base URL, overridable for tests
	client  *http.Client  // HTTP client used for both endpoints
	rdb     *redis.Client // Quote cache, may be nil
	db      *gorm.DB      // Audit store for fresh lookups, may be nil
}

// NewAlphaVantage builds a quote provider. rdb and db are optional: without
// them every lookup goes straight to the API and nothing is recorded.
func NewAlphaVantage(apiKey, baseURL string, rdb *redis.Client, db *gorm.DB) *AlphaVantage {
	return &AlphaVantage{
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
		rdb:     rdb,
		db:      db,
	}
}

// globalQuoteResponse mirrors the GLOBAL_QUOTE endpoint payload
type globalQuoteResponse struct {
	GlobalQuote struct {
		Symbol string `json:"01. symbol"`
		Price  string `json:"05. price"`
	} `json:"Global Quote"`
}

// symbolSearchResponse mirrors the SYMBOL_SEARCH endpoint payload
type symbolSearchResponse struct {
	BestMatches []struct {
		Symbol string `json:"1. symbol"`
		Name   string `json:"2. name"`
	} `json:"bestMatches"`
}

// Lookup resolves a symbol to its current price and company name.
// Returns ErrNotFound when the provider does not know the symbol.
func (a *AlphaVantage) Lookup(ctx context.Context, symbol string) (*Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol)) // Normalize the symbol
	if symbol == "" {
		return nil, ErrNotFound // Empty input can never resolve
	}
	// Check the Redis cache first
	cacheKey := "quote:" + symbol
	var cached Quote
	if found, err := utils.GetCache(ctx, a.rdb, cacheKey, &cached); err == nil && found {
		return &cached, nil // Serve the cached quote
	}
	// Fetch the current price
	price, err := a.fetchPrice(ctx, symbol)
	if err != nil {
		return nil, err
	}
	q := &Quote{Symbol: symbol, Name: a.fetchName(ctx, symbol), Price: price}
	_ = utils.SetCache(ctx, a.rdb, cacheKey, q, cacheTTL) // Cache the fresh quote
	// Record the fresh lookup for the admin audit trail
	if a.db != nil {
		if err := a.db.WithContext(ctx).Create(&domain.QuotePrice{Symbol: symbol, Price: price}).Error; err != nil {
			logrus.WithFields(logrus.Fields{
				"symbol": symbol,      // Looked-up symbol
				"error":  err.Error(), // Error message
			}).Warn("Failed to record quote price") // Audit write is best effort
		}
	}
	return q, nil
}

// fetchPrice calls GLOBAL_QUOTE for the latest trade price
func (a *AlphaVantage) fetchPrice(ctx context.Context, symbol string) (float64, error) {
	endpoint := fmt.Sprintf("%s/query?function=GLOBAL_QUOTE&symbol=%s&apikey=%s",
		a.baseURL, url.QueryEscape(symbol), a.apiKey)
	var result globalQuoteResponse
	if err := a.getJSON(ctx, endpoint, &result); err != nil {
		return 0, err
	}
	// An empty price field is how the API reports an unknown symbol
	if result.GlobalQuote.Price == "" {
		return 0, ErrNotFound
	}
	price, err := strconv.ParseFloat(result.GlobalQuote.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", result.GlobalQuote.Price, err)
	}
	return price, nil
}

// fetchName calls SYMBOL_SEARCH for the company name. Best effort: on any
// failure the ticker symbol itself stands in for the name.
func (a *AlphaVantage) fetchName(ctx context.Context, symbol string) string {
	endpoint := fmt.Sprintf("%s/query?function=SYMBOL_SEARCH&keywords=%s&apikey=%s",
		a.baseURL, url.QueryEscape(symbol), a.apiKey)
	var result symbolSearchResponse
	if err := a.getJSON(ctx, endpoint, &result); err != nil {
		return symbol
	}
	// Take the first exact-symbol match
	for _, m := range result.BestMatches {
		if strings.EqualFold(m.Symbol, symbol) {
			return m.Name
		}
	}
	return symbol
}

// getJSON performs a GET request and decodes the JSON body into dest
func (a *AlphaVantage) getJSON(ctx context.Context, endpoint string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("quote provider unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("quote provider returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}
