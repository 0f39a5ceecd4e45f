package domain

import (
	"time"
)

// InstrumentInfo is the persisted metadata for a supported instrument
type InstrumentInfo struct {
	Symbol         string    `gorm:"primaryKey" json:"symbol"`
	Name           string    `json:"name"`
	PricePrecision int       `json:"price_precision"`
	QtyPrecision   int       `json:"qty_precision"`
	IsFavorite     bool      `json:"is_favorite" gorm:"index"` // User favorite status
	LastWatchedAt  time.Time `json:"last_watched_at"`          // When this instrument was last the active session
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// AppConfig represents user-specific configuration (Key-Value)
type AppConfig struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
