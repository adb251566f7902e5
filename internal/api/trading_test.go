package api

import (
	"net/http"
	"testing"

	"github.com/atharva123a/finance/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteEndpoint(t *testing.T) {
	r, _ := newTestRouter(t, &fakeProvider{prices: map[string]float64{"NFLX": 50.25}})
	token := registerAndLogin(t, r, "alice")

	w := doJSON(t, r, http.MethodGet, "/quote/NFLX", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "NFLX", body["symbol"])
	assert.Equal(t, 50.25, body["price"])

	// Unknown symbol
	w = doJSON(t, r, http.MethodGet, "/quote/NOPE", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// POST form carries the symbol in the body
	w = doJSON(t, r, http.MethodPost, "/quote", token, gin.H{"symbol": "nflx"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "NFLX", decodeBody(t, w)["symbol"])

	w = doJSON(t, r, http.MethodPost, "/quote", token, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBuySellRoundTrip(t *testing.T) {
	provider := &fakeProvider{prices: map[string]float64{"NFLX": 50}}
	r, db := newTestRouter(t, provider)
	token := registerAndLogin(t, r, "alice")

	// Buy 10 shares at $50
	w := doJSON(t, r, http.MethodPost, "/buy", token, gin.H{"symbol": "NFLX", "shares": 10})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	trade, ok := decodeBody(t, w)["trade"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 500.0, trade["total"])
	assert.Equal(t, 9500.0, trade["cash"])

	// Price moves, sell half
	provider.prices["NFLX"] = 60
	w = doJSON(t, r, http.MethodPost, "/sell", token, gin.H{"symbol": "NFLX", "shares": 5})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	trade, ok = decodeBody(t, w)["trade"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 300.0, trade["total"])
	assert.Equal(t, 9800.0, trade["cash"])

	// Portfolio reflects the re-priced remainder
	w = doJSON(t, r, http.MethodGet, "/", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	portfolio, ok := decodeBody(t, w)["portfolio"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 9800.0, portfolio["cash"])
	assert.Equal(t, 10100.0, portfolio["grand_total"]) // 9800 cash + 300 position
	positions, ok := portfolio["positions"].([]any)
	require.True(t, ok)
	require.Len(t, positions, 1)
	pos := positions[0].(map[string]any)
	assert.Equal(t, 5.0, pos["Shares"])
	assert.Equal(t, 300.0, pos["Total"])

	// History shows both trades, newest first, with signed deltas
	w = doJSON(t, r, http.MethodGet, "/history", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	transactions, ok := decodeBody(t, w)["transactions"].([]any)
	require.True(t, ok)
	require.Len(t, transactions, 2)

	// Both trades are on the books
	var count int64
	require.NoError(t, db.Model(&domain.Transaction{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestBuyErrors(t *testing.T) {
	r, _ := newTestRouter(t, &fakeProvider{prices: map[string]float64{"NFLX": 5000}})
	token := registerAndLogin(t, r, "alice")

	// Unknown symbol
	w := doJSON(t, r, http.MethodPost, "/buy", token, gin.H{"symbol": "NOPE", "shares": 1})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Cost over available cash
	w = doJSON(t, r, http.MethodPost, "/buy", token, gin.H{"symbol": "NFLX", "shares": 3})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Missing or non-positive share count never reaches the ledger
	w = doJSON(t, r, http.MethodPost, "/buy", token, gin.H{"symbol": "NFLX"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = doJSON(t, r, http.MethodPost, "/buy", token, gin.H{"symbol": "NFLX", "shares": -2})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSellErrors(t *testing.T) {
	r, _ := newTestRouter(t, &fakeProvider{prices: map[string]float64{"NFLX": 50}})
	token := registerAndLogin(t, r, "alice")

	// Nothing held yet
	w := doJSON(t, r, http.MethodPost, "/sell", token, gin.H{"symbol": "NFLX", "shares": 1})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Selling more than held
	w = doJSON(t, r, http.MethodPost, "/buy", token, gin.H{"symbol": "NFLX", "shares": 2})
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, r, http.MethodPost, "/sell", token, gin.H{"symbol": "NFLX", "shares": 3})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSymbolsEndpoint(t *testing.T) {
	r, _ := newTestRouter(t, &fakeProvider{prices: map[string]float64{"NFLX": 50, "AAPL": 100}})
	token := registerAndLogin(t, r, "alice")

	for _, symbol := range []string{"NFLX", "AAPL"} {
		w := doJSON(t, r, http.MethodPost, "/buy", token, gin.H{"symbol": symbol, "shares": 1})
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := doJSON(t, r, http.MethodGet, "/symbols", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	symbols, ok := decodeBody(t, w)["symbols"].([]any)
	require.True(t, ok)
	assert.Equal(t, []any{"AAPL", "NFLX"}, symbols)
}

func TestAdminTransactionFilters(t *testing.T) {
	provider := &fakeProvider{prices: map[string]float64{"NFLX": 50, "AAPL": 100}}
	r, db := newTestRouter(t, provider)
	token := registerAndLogin(t, r, "admin")
	require.NoError(t, db.Model(&domain.User{}).Where("username = ?", "admin").Update("role", "admin").Error)

	for _, trade := range []gin.H{
		{"symbol": "NFLX", "shares": 2},
		{"symbol": "AAPL", "shares": 1},
	} {
		w := doJSON(t, r, http.MethodPost, "/buy", token, trade)
		require.Equal(t, http.StatusOK, w.Code)
	}
	w := doJSON(t, r, http.MethodPost, "/sell", token, gin.H{"symbol": "NFLX", "shares": 1})
	require.Equal(t, http.StatusOK, w.Code)

	// Unfiltered log holds all three trades
	w = doJSON(t, r, http.MethodGet, "/admin/transactions", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	transactions, ok := decodeBody(t, w)["transactions"].([]any)
	require.True(t, ok)
	assert.Len(t, transactions, 3)

	// Side filter keeps only the sell
	w = doJSON(t, r, http.MethodGet, "/admin/transactions?side=sell", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	transactions, ok = decodeBody(t, w)["transactions"].([]any)
	require.True(t, ok)
	require.Len(t, transactions, 1)
	assert.Equal(t, -1.0, transactions[0].(map[string]any)["Shares"])

	// Symbol filter, lowercase input still matches
	w = doJSON(t, r, http.MethodGet, "/admin/transactions?symbol=aapl", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	transactions, ok = decodeBody(t, w)["transactions"].([]any)
	require.True(t, ok)
	assert.Len(t, transactions, 1)
}
