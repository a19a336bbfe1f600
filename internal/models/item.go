// internal/models/item.go
package models

import (
	"time"
)

// ItemRecord is one discovered product, keyed by (identifier, keyword).
// Filter stages never delete rows; they set FilterStatus, and a nil
// FilterStatus means the record currently passes every applied filter.
type ItemRecord struct {
	ID          uint       `json:"id" gorm:"primaryKey;autoIncrement"`
	Identifier  string     `json:"identifier" gorm:"size:20;not null;uniqueIndex:idx_items_identifier_keyword;index"`
	Keyword     string     `json:"keyword" gorm:"size:255;not null;uniqueIndex:idx_items_identifier_keyword;index"`
	SourceType  SourceType `json:"source_type" gorm:"size:32;not null"`
	SourceValue string     `json:"source_value" gorm:"size:255"`

	Name         string   `json:"name" gorm:"type:text"`
	Brand        string   `json:"brand" gorm:"size:255"`
	CategoryPath *string  `json:"category_path" gorm:"type:text"`
	CategoryMain *string  `json:"category_main" gorm:"size:255"`
	CategorySub  *string  `json:"category_sub" gorm:"size:255;index"`
	Price        *float64 `json:"price"`
	Rating       *float64 `json:"rating"`
	ReviewsCount *int     `json:"reviews_count"`
	SalesVolume  *int     `json:"sales_volume"`
	PageRank     *int     `json:"page_rank"`
	URL          string   `json:"url" gorm:"type:text"`
	Sponsored    bool     `json:"sponsored" gorm:"default:false"`

	// Enrichment fields filled from secondary providers.
	Sales3M              *int     `json:"sales_3m" gorm:"column:sales_3m"`
	ProviderMonthlySales *int     `json:"provider_monthly_sales"`
	ListingDate          *string  `json:"listing_date" gorm:"size:10"`
	AvgMonthlySales      *int     `json:"avg_monthly_sales"`
	SalesMonthsCount     *int     `json:"sales_months_count"`
	PriceMin             *float64 `json:"price_min"`
	PriceMax             *float64 `json:"price_max"`
	PriceMinDate         *string  `json:"price_min_date" gorm:"size:10"`
	PriceMaxDate         *string  `json:"price_max_date" gorm:"size:10"`

	FilterStatus *FilterStatus `json:"filter_status" gorm:"size:32;index"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// SearchItem is a raw listing as delivered by the search collaborator.
// Price and sales arrive as free-form text and are normalized on insert.
type SearchItem struct {
	Identifier   string   `json:"identifier" validate:"required"`
	Name         string   `json:"name"`
	Brand        string   `json:"brand"`
	PriceText    string   `json:"price_text"`
	Rating       *float64 `json:"rating"`
	ReviewsCount *int     `json:"reviews_count"`
	SalesText    string   `json:"sales_text"`
	PageRank     *int     `json:"page_rank"`
	URL          string   `json:"url"`
	Sponsored    bool     `json:"sponsored"`
}
