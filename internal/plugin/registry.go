// internal/plugin/registry.go
package plugin

import (
	"context"
	"sync"

	"github.com/javajoker/asin-radar/internal/cache"
	"github.com/javajoker/asin-radar/internal/models"
	"github.com/javajoker/asin-radar/internal/relevance"
	"github.com/javajoker/asin-radar/internal/store"
)

// SearchRequest parameterizes one search/crawl collaborator call.
type SearchRequest struct {
	Keyword        string
	Country        string
	MaxPages       int
	SalesThreshold int
	// Category restricts the crawl to one category page instead of the
	// keyword's search results.
	Category string
}

// SearchResult is what the search collaborator hands back.
type SearchResult struct {
	Items        []models.SearchItem
	PagesFetched int
	StopReason   string
}

// Searcher turns a keyword or category into raw item listings.
type Searcher interface {
	Search(ctx context.Context, req SearchRequest) (*SearchResult, error)
}

// TrendPoint is one month of provider sales data, keyed "YYYYMM".
type TrendPoint struct {
	Month string
	Sales int
}

// SalesData is a taxonomy provider's historical record for one
// identifier.
type SalesData struct {
	Trends       []TrendPoint
	MonthlySales *int
	// Listing timestamp in Unix milliseconds, as delivered.
	AvailableMillis *int64
	Rating          *float64
	Reviews         *int
}

// Taxonomy resolves identifiers to category paths and sales history.
// May be unavailable; callers check the registry first.
type Taxonomy interface {
	FetchCategories(ctx context.Context, identifiers []string) (map[string]store.CategoryInfo, error)
	FetchSalesHistory(ctx context.Context, identifiers []string) (map[string]SalesData, error)
}

// PriceHistory fetches raw provider payloads for a batch of
// identifiers. Payloads are reconciled and cached by the caller.
type PriceHistory interface {
	FetchPriceHistory(ctx context.Context, identifiers []string, country string) ([]cache.Payload, error)
}

// Registry holds the optional collaborators. Absence of a collaborator
// is a normal checked state, not an error; every accessor returns an
// availability flag.
type Registry struct {
	mu           sync.RWMutex
	searcher     Searcher
	taxonomy     Taxonomy
	priceHistory PriceHistory
	judge        relevance.Judge
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) RegisterSearcher(s Searcher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.searcher = s
}

func (r *Registry) Searcher() (Searcher, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.searcher, r.searcher != nil
}

func (r *Registry) RegisterTaxonomy(t Taxonomy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.taxonomy = t
}

func (r *Registry) Taxonomy() (Taxonomy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.taxonomy, r.taxonomy != nil
}

func (r *Registry) RegisterPriceHistory(p PriceHistory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.priceHistory = p
}

func (r *Registry) PriceHistory() (PriceHistory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.priceHistory, r.priceHistory != nil
}

func (r *Registry) RegisterJudge(j relevance.Judge) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.judge = j
}

func (r *Registry) Judge() (relevance.Judge, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.judge, r.judge != nil
}
