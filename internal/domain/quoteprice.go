package domain

// QuotePrice Model: one row per fresh (uncached) quote lookup, kept as an audit trail
type QuotePrice struct {
	ID        uint    `gorm:"primaryKey"` // Primary key
	Symbol    string  `gorm:"index;size:16"`
	Price     float64 // Price returned by the provider
	CreatedAt int64   `gorm:"autoCreateTime:milli"` // Timestamp of the lookup in milliseconds
}
