// Package ledger holds the trading ledger logic: it is the only place that
// mutates cash balances, positions and the transaction log, and every trade
// runs inside a single database transaction so the three always move together.
package ledger

import (
	"context" // Request-scoped cancellation
	"errors"  // Sentinel errors
	"strings" // Symbol normalization

	"github.com/atharva123a/finance/internal/domain" // Importing domain models
	"github.com/atharva123a/finance/internal/quote"  // Quote provider

	"gorm.io/gorm" // GORM ORM library
)

// Trade failure kinds, surfaced directly to the user by the API layer
var (
	ErrUnknownSymbol      = errors.New("no stock exists for that symbol")
	ErrInvalidShares      = errors.New("share count must be a positive integer")
	ErrInsufficientFunds  = errors.New("not enough cash for this purchase")
	ErrInsufficientShares = errors.New("not enough shares to sell")
	ErrNoSuchPosition     = errors.New("no position held for that symbol")
)

// Service enforces cash and share balance invariants across trades
type Service struct {
	db     *gorm.DB       // Relational store for users, positions, transactions
	quotes quote.Provider // Current price resolution
}

// New builds a ledger service over the given store and quote provider
func New(db *gorm.DB, quotes quote.Provider) *Service {
	return &Service{db: db, quotes: quotes}
}

// TradeResult describes a completed buy or sell
type TradeResult struct {
	Symbol string  `json:"symbol"` // Traded symbol
	Name   string  `json:"name"`   // Company name, empty on sells
	Shares int     `json:"shares"` // Shares moved by this trade
	Price  float64 `json:"price"`  // Quote price the trade executed at
	Total  float64 `json:"total"`  // Cash moved by this trade
	Cash   float64 `json:"cash"`   // User's cash balance after the trade
}

// Buy purchases shares of a symbol at the current quote price.
// The cash check, position upsert, transaction append and cash deduction all
// commit atomically or not at all.
func (s *Service) Buy(ctx context.Context, userID uint, symbol string, shares int) (*TradeResult, error) {
	if shares < 1 {
		return nil, ErrInvalidShares // Zero or negative buys are meaningless
	}
	// Resolve the current price before touching any state
	q, err := s.quotes.Lookup(ctx, symbol)
	if errors.Is(err, quote.ErrNotFound) {
		return nil, ErrUnknownSymbol
	} else if err != nil {
		return nil, err // Provider failure, not a trade rejection
	}
	cost := q.Price * float64(shares) // Total cost of the purchase
	var res *TradeResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pos domain.Position // Existing position for this symbol, if any
		err := tx.Where("user_id = ? AND symbol = ?", userID, q.Symbol).First(&pos).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			// First buy of this symbol opens a new position. A concurrent
			// first buy trips the (user, symbol) unique index and rolls back.
			pos = domain.Position{
				UserID: userID,
				Symbol: q.Symbol,
				Name:   q.Name,
				Shares: shares,
				Price:  q.Price,
				Total:  cost,
			}
			if err := tx.Create(&pos).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			// Repeat buy: grow the share count and add this trade's cost to
			// the total. Relative SQL arithmetic, so a concurrent trade on the
			// same position cannot be overwritten by a stale snapshot.
			updates := map[string]any{
				"shares": gorm.Expr("shares + ?", shares),
				"total":  gorm.Expr("total + ?", cost),
			}
			if err := tx.Model(&pos).Updates(updates).Error; err != nil {
				return err
			}
		}
		// Append the immutable trade record, positive delta marks a buy
		t := domain.Transaction{UserID: userID, Symbol: q.Symbol, Shares: shares, Total: cost}
		if err := tx.Create(&t).Error; err != nil {
			return err
		}
		// Deduct the cost, guarded so cash never goes negative: the predicate
		// re-evaluates against the committed balance once the row lock is
		// held, which serializes concurrent trades by the same user
		deduct := tx.Model(&domain.User{}).
			Where("id = ? AND cash >= ?", userID, cost).
			Update("cash", gorm.Expr("cash - ?", cost))
		if deduct.Error != nil {
			return deduct.Error
		}
		if deduct.RowsAffected == 0 {
			return ErrInsufficientFunds // Rolls back the position and the log entry
		}
		var user domain.User // Post-trade balance, sees this transaction's own write
		if err := tx.First(&user, userID).Error; err != nil {
			return err
		}
		res = &TradeResult{
			Symbol: q.Symbol,
			Name:   q.Name,
			Shares: shares,
			Price:  q.Price,
			Total:  cost,
			Cash:   user.Cash,
		}
		return nil // Commit
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Sell disposes of shares at the current quote price. The remaining position
// is re-priced at that quote rather than at cost basis, matching the ledger's
// accounting: a position's total always reflects the last trade that touched
// it. A position sold down to zero shares is deleted.
func (s *Service) Sell(ctx context.Context, userID uint, symbol string, shares int) (*TradeResult, error) {
	if shares < 1 {
		return nil, ErrInvalidShares // Zero or negative sells are meaningless
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol)) // Positions are keyed on uppercase symbols
	// Pre-read outside the transaction, only to pick the right rejection and
	// to avoid quoting for a symbol the user does not hold. The authoritative
	// check is the guarded decrement below.
	var pos domain.Position
	err := s.db.WithContext(ctx).Where("user_id = ? AND symbol = ?", userID, symbol).First(&pos).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoSuchPosition // Nothing held under that symbol
	} else if err != nil {
		return nil, err
	}
	if shares > pos.Shares {
		return nil, ErrInsufficientShares
	}
	// Price the sale at the current quote
	q, err := s.quotes.Lookup(ctx, pos.Symbol)
	if errors.Is(err, quote.ErrNotFound) {
		return nil, ErrUnknownSymbol
	} else if err != nil {
		return nil, err
	}
	proceeds := q.Price * float64(shares) // Cash credited by the sale
	var res *TradeResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Decrement guarded by the share count, so two sells of the same
		// shares cannot both succeed: the predicate re-evaluates against the
		// committed row once the lock is held, and a stale pre-read loses
		decr := tx.Model(&domain.Position{}).
			Where("id = ? AND shares >= ?", pos.ID, shares).
			Update("shares", gorm.Expr("shares - ?", shares))
		if decr.Error != nil {
			return decr.Error
		}
		if decr.RowsAffected == 0 {
			// The position shrank or vanished since the pre-read
			var cur domain.Position
			err := tx.Where("id = ?", pos.ID).First(&cur).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoSuchPosition
			} else if err != nil {
				return err
			}
			return ErrInsufficientShares
		}
		var cur domain.Position // Post-decrement state, read under the row lock
		if err := tx.Where("id = ?", pos.ID).First(&cur).Error; err != nil {
			return err
		}
		if cur.Shares == 0 {
			// Fully sold: close the position instead of keeping a zero row
			if err := tx.Delete(&cur).Error; err != nil {
				return err
			}
		} else {
			// Partial sale: re-price what remains at the current quote
			updates := map[string]any{
				"price": q.Price,
				"total": q.Price * float64(cur.Shares),
			}
			if err := tx.Model(&cur).Updates(updates).Error; err != nil {
				return err
			}
		}
		// Append the immutable trade record, negative delta marks a sell
		t := domain.Transaction{UserID: userID, Symbol: pos.Symbol, Shares: -shares, Total: proceeds}
		if err := tx.Create(&t).Error; err != nil {
			return err
		}
		// Credit the proceeds to the user's cash
		if err := tx.Model(&domain.User{}).Where("id = ?", userID).
			Update("cash", gorm.Expr("cash + ?", proceeds)).Error; err != nil {
			return err
		}
		var user domain.User // Post-trade balance, sees this transaction's own write
		if err := tx.First(&user, userID).Error; err != nil {
			return err
		}
		res = &TradeResult{
			Symbol: pos.Symbol,
			Shares: shares,
			Price:  q.Price,
			Total:  proceeds,
			Cash:   user.Cash,
		}
		return nil // Commit
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Portfolio is a user's full holdings view
type Portfolio struct {
	Positions  []domain.Position `json:"positions"`   // Open positions, one per symbol
	Cash       float64           `json:"cash"`        // Uninvested cash
	GrandTotal float64           `json:"grand_total"` // Cash plus the value of all positions
}

// GetPortfolio aggregates a user's positions, cash and grand total. Pure read.
func (s *Service) GetPortfolio(ctx context.Context, userID uint) (*Portfolio, error) {
	var user domain.User // Cash balance
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return nil, err
	}
	var positions []domain.Position // Open positions, ordered for stable rendering
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("symbol").Find(&positions).Error; err != nil {
		return nil, err
	}
	grand := user.Cash // Grand total starts from cash
	for _, p := range positions {
		grand += p.Total // Add each position's value
	}
	return &Portfolio{Positions: positions, Cash: user.Cash, GrandTotal: grand}, nil
}

// History returns a page of the user's trades, newest first, with the total
// count for pagination. Pure read.
func (s *Service) History(ctx context.Context, userID uint, page, pageSize int) ([]domain.Transaction, int64, error) {
	var total int64 // Total trades for this user
	if err := s.db.WithContext(ctx).Model(&domain.Transaction{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * pageSize       // Calculate offset
	var transactions []domain.Transaction // Slice to hold transactions
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at desc").
		Offset(offset).
		Limit(pageSize).
		Find(&transactions).Error; err != nil {
		return nil, 0, err
	}
	return transactions, total, nil
}

// Symbols lists the distinct symbols a user currently holds, for the sell form
func (s *Service) Symbols(ctx context.Context, userID uint) ([]string, error) {
	var symbols []string
	err := s.db.WithContext(ctx).Model(&domain.Position{}).
		Where("user_id = ?", userID).
		Distinct("symbol").
		Order("symbol").
		Pluck("symbol", &symbols).Error
	if err != nil {
		return nil, err
	}
	return symbols, nil
}
