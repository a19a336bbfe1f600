// internal/models/category_stat.go
package models

import (
	"time"
)

// CategoryStat is an audit snapshot of the per-keyword category
// distribution. It is recomputed on every run and is not authoritative
// for filtering decisions beyond the run that wrote it.
type CategoryStat struct {
	ID           uint     `json:"id" gorm:"primaryKey;autoIncrement"`
	Keyword      string   `json:"keyword" gorm:"size:255;not null;uniqueIndex:idx_category_stats_keyword_category"`
	Category     string   `json:"category" gorm:"size:255;not null;uniqueIndex:idx_category_stats_keyword_category"`
	Count        int      `json:"count" gorm:"not null"`
	AvgPrice     *float64 `json:"avg_price"`
	AvgRating    *float64 `json:"avg_rating"`
	TotalReviews *int     `json:"total_reviews"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
