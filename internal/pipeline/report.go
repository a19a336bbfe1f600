// internal/pipeline/report.go
package pipeline

import (
	"time"

	"github.com/google/uuid"

	"github.com/javajoker/asin-radar/internal/store"
)

// Stage identifiers, in execution order.
const (
	StageSearch        = "search"
	StageTaxonomy      = "taxonomy"
	StageAnalyze       = "analyze"
	StageExpansion     = "expansion"
	StageDeepExpansion = "deep_expansion"
	StageSponsored     = "sponsored_filter"
	StageCategory      = "category_filter"
	StageSales         = "sales_filter"
	StageEnrichment    = "enrichment"
	StageListingDate   = "listing_date_filter"
	StagePrice         = "price_filter"
	StageExport        = "export"
)

// StageReport captures one stage's effect for the run report.
type StageReport struct {
	Stage     string        `json:"stage"`
	DataCount int           `json:"data_count"`
	Removed   int64         `json:"removed,omitempty"`
	Duration  time.Duration `json:"duration"`
	FromCache bool          `json:"from_cache,omitempty"`
	Skipped   bool          `json:"skipped,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// EnrichmentReport summarizes the best-effort enrichment stage.
type EnrichmentReport struct {
	Success         bool `json:"success"`
	EnrichedCount   int  `json:"enriched_count"`
	TotalItems      int  `json:"total_items"`
	HasSales3M      int  `json:"has_sales_3m"`
	HasMonthlySales int  `json:"has_monthly_sales"`
	HasListingDate  int  `json:"has_listing_date"`
	HasPriceHistory int  `json:"has_price_history"`
}

// PriceFilterReport records the derived threshold alongside the filter
// outcome.
type PriceFilterReport struct {
	Skipped  bool                `json:"skipped"`
	MaxPrice *float64            `json:"max_price,omitempty"`
	Result   *store.FilterResult `json:"result,omitempty"`
}

// Report is the ephemeral per-invocation record of a pipeline run. It
// lives only as long as the process, except as an exported summary.
type Report struct {
	RunID   uuid.UUID `json:"run_id"`
	Keyword string    `json:"keyword"`
	Success bool      `json:"success"`
	Error   string    `json:"error,omitempty"`

	TotalItems    int64         `json:"total_items"`
	TopCategories []string      `json:"top_categories,omitempty"`
	Stages        []StageReport `json:"stages"`

	SponsoredFilter   *store.FilterResult            `json:"sponsored_filter,omitempty"`
	CategoryFilter    *store.CategoryFilterResult    `json:"category_filter,omitempty"`
	SalesFilter       *store.FilterResult            `json:"sales_filter,omitempty"`
	Enrichment        *EnrichmentReport              `json:"enrichment,omitempty"`
	ListingDateFilter *store.ListingDateFilterResult `json:"listing_date_filter,omitempty"`
	PriceFilter       *PriceFilterReport             `json:"price_filter,omitempty"`

	ExportPaths []string      `json:"export_paths,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
}

func (r *Report) addStage(stage string, start time.Time, mutate func(*StageReport)) {
	entry := StageReport{Stage: stage, Duration: time.Since(start)}
	if mutate != nil {
		mutate(&entry)
	}
	r.Stages = append(r.Stages, entry)
}
