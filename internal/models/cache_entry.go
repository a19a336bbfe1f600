// internal/models/cache_entry.go
package models

import (
	"time"
)

// CacheEntry holds a third-party enrichment payload keyed globally by
// identifier (not per keyword). CapturedAt drives the freshness window;
// stale entries are retained until an explicit cleanup pass.
type CacheEntry struct {
	ID         uint   `json:"id" gorm:"primaryKey;autoIncrement"`
	Identifier string `json:"identifier" gorm:"size:20;not null;uniqueIndex"`

	Title        string   `json:"title" gorm:"type:text"`
	Brand        string   `json:"brand" gorm:"size:255"`
	PriceMin     *float64 `json:"price_min"`
	PriceMax     *float64 `json:"price_max"`
	PriceMinDate *string  `json:"price_min_date" gorm:"size:10"`
	PriceMaxDate *string  `json:"price_max_date" gorm:"size:10"`

	// Full provider payload, retained for reprocessing.
	RawPayload string `json:"raw_payload" gorm:"type:text"`

	CapturedAt time.Time `json:"captured_at" gorm:"not null;index"`
	UpdatedAt  time.Time `json:"updated_at"`
}
