package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/atharva123a/finance/internal/domain"
	"github.com/atharva123a/finance/internal/ledger"
	"github.com/atharva123a/finance/internal/middleware"
	"github.com/atharva123a/finance/internal/quote"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	testSecret    = "test-secret"
	testStartCash = 10000.0
)

// memoryRevoker keeps the logout denylist in a map, standing in for Redis
type memoryRevoker struct {
	revoked map[string]bool
}

func newMemoryRevoker() *memoryRevoker {
	return &memoryRevoker{revoked: map[string]bool{}}
}

func (m *memoryRevoker) Revoke(_ context.Context, token string, _ time.Time) error {
	m.revoked[token] = true
	return nil
}

func (m *memoryRevoker) IsRevoked(_ context.Context, token string) bool {
	return m.revoked[token]
}

// fakeProvider serves quotes from a fixed price table
type fakeProvider struct {
	prices map[string]float64
}

func (f *fakeProvider) Lookup(_ context.Context, symbol string) (*quote.Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol)) // Same normalization as the real provider
	price, ok := f.prices[symbol]
	if !ok {
		return nil, quote.ErrNotFound
	}
	return &quote.Quote{Symbol: symbol, Name: symbol, Price: price}, nil
}

// newTestRouter wires the full route table over an in-memory database,
// without Redis (caching degrades to a no-op) and with an in-memory
// logout denylist
func newTestRouter(t *testing.T, quotes quote.Provider) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.Position{}, &domain.Transaction{}, &domain.QuotePrice{}))

	svc := ledger.New(db, quotes)
	revoker := newMemoryRevoker()
	r := gin.New()
	r.POST("/register", RegisterHandler(db, testStartCash))
	r.POST("/login", LoginHandler(db, testSecret))

	authed := r.Group("/")
	authed.Use(middleware.JWTAuthMiddleware(testSecret, revoker))
	authed.GET("", PortfolioHandler(svc, nil))
	authed.GET("/logout", LogoutHandler(revoker))
	authed.GET("/quote/:symbol", QuoteHandler(quotes))
	authed.POST("/quote", QuoteHandler(quotes))
	authed.POST("/buy", BuyHandler(svc, nil))
	authed.POST("/sell", SellHandler(svc, nil))
	authed.GET("/history", HistoryHandler(svc, nil))
	authed.GET("/symbols", SymbolsHandler(svc))

	adminGroup := r.Group("/admin")
	adminGroup.Use(middleware.JWTAuthMiddleware(testSecret, revoker), middleware.AdminOnlyMiddleware(db))
	adminGroup.GET("/users", ListUsersHandler(db, nil))
	adminGroup.GET("/transactions", ListTransactionsHandler(db, nil))

	return r, db
}

// doJSON performs a request with an optional JSON body and bearer token
func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// decodeBody unmarshals a response body into a generic map
func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

// registerAndLogin creates an account and returns its session token
func registerAndLogin(t *testing.T, r *gin.Engine, username string) string {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/register", "", gin.H{
		"username": username, "password": "hunter22", "confirmation": "hunter22",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodPost, "/login", "", gin.H{
		"username": username, "password": "hunter22",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	token, _ := decodeBody(t, w)["token"].(string)
	require.NotEmpty(t, token)
	return token
}
