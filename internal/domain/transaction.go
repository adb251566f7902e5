package domain

// Transaction Model: append-only trade log, never updated or deleted
type Transaction struct {
	ID        uint    `gorm:"primaryKey"` // Primary key
	UserID    uint    `gorm:"index"`      // Foreign key to User
	Symbol    string  `gorm:"size:16"`    // Stock ticker symbol
	Shares    int     // Signed share delta: positive = buy, negative = sell
	Total     float64 // Cash moved by the trade (cost for buys, proceeds for sells)
	CreatedAt int64   `gorm:"autoCreateTime:milli"` // Timestamp of the trade in milliseconds
}
