package domain

// Position Model: one row per (user, symbol) aggregate holding
type Position struct {
	ID     uint    `gorm:"primaryKey"`                          // Primary key
	UserID uint    `gorm:"uniqueIndex:idx_user_symbol"`         // Foreign key to User
	Symbol string  `gorm:"uniqueIndex:idx_user_symbol;size:16"` // Stock ticker symbol
	Name   string  // Company name as reported by the quote provider
	Shares int     `gorm:"not null"` // Held share count, always >= 1 (row deleted at zero)
	Price  float64 // Price at last trade touching this position
	Total  float64 // Aggregate position value
}
