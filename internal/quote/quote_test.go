package quote

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/atharva123a/finance/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fakeAlphaVantage emulates the two provider endpoints the client calls
func fakeAlphaVantage(t *testing.T, prices map[string]string, names map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		symbol := r.URL.Query().Get("symbol")
		if symbol == "" {
			symbol = r.URL.Query().Get("keywords")
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("function") {
		case "GLOBAL_QUOTE":
			price := prices[symbol] // Empty price means unknown symbol
			fmt.Fprintf(w, `{"Global Quote": {"01. symbol": %q, "05. price": %q}}`, symbol, price)
		case "SYMBOL_SEARCH":
			name, ok := names[symbol]
			if !ok {
				fmt.Fprint(w, `{"bestMatches": []}`)
				return
			}
			fmt.Fprintf(w, `{"bestMatches": [{"1. symbol": %q, "2. name": %q}]}`, symbol, name)
		default:
			t.Errorf("unexpected function %q", r.URL.Query().Get("function"))
		}
	}))
}

func TestLookup(t *testing.T) {
	srv := fakeAlphaVantage(t,
		map[string]string{"NFLX": "50.2500"},
		map[string]string{"NFLX": "Netflix, Inc."},
	)
	defer srv.Close()

	p := NewAlphaVantage("test-key", srv.URL, nil, nil)
	q, err := p.Lookup(context.Background(), "nflx")
	require.NoError(t, err)

	assert.Equal(t, "NFLX", q.Symbol) // Input normalized to uppercase
	assert.Equal(t, "Netflix, Inc.", q.Name)
	assert.Equal(t, 50.25, q.Price)
}

func TestLookupUnknownSymbol(t *testing.T) {
	srv := fakeAlphaVantage(t, map[string]string{}, map[string]string{})
	defer srv.Close()

	p := NewAlphaVantage("test-key", srv.URL, nil, nil)
	_, err := p.Lookup(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ErrNotFound)

	// Blank input short-circuits without a provider call
	_, err = p.Lookup(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLookupNameFallsBackToSymbol(t *testing.T) {
	// Price resolves but the search endpoint has no match
	srv := fakeAlphaVantage(t, map[string]string{"XYZ": "12.00"}, map[string]string{})
	defer srv.Close()

	p := NewAlphaVantage("test-key", srv.URL, nil, nil)
	q, err := p.Lookup(context.Background(), "XYZ")
	require.NoError(t, err)
	assert.Equal(t, "XYZ", q.Name)
}

func TestLookupRecordsAuditRow(t *testing.T) {
	srv := fakeAlphaVantage(t, map[string]string{"AAPL": "101.50"}, map[string]string{})
	defer srv.Close()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&domain.QuotePrice{}))

	p := NewAlphaVantage("test-key", srv.URL, nil, db)
	_, err = p.Lookup(context.Background(), "AAPL")
	require.NoError(t, err)

	var row domain.QuotePrice
	require.NoError(t, db.First(&row).Error)
	assert.Equal(t, "AAPL", row.Symbol)
	assert.Equal(t, 101.5, row.Price)
}

func TestLookupBadPrice(t *testing.T) {
	srv := fakeAlphaVantage(t, map[string]string{"BAD": "not-a-number"}, map[string]string{})
	defer srv.Close()

	p := NewAlphaVantage("test-key", srv.URL, nil, nil)
	_, err := p.Lookup(context.Background(), "BAD")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound) // Malformed data is not "symbol unknown"
}
