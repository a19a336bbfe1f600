// internal/cache/cache.go
package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/asin-radar/internal/models"
)

// PricePoint is one observation in a provider price series.
type PricePoint struct {
	Price float64 `json:"price"`
	Date  string  `json:"date"`
}

// Payload is a provider enrichment payload as handed to Save. The three
// series fields mirror the provider's feed; the first non-empty one, in
// declaration order, is authoritative for min/max reconciliation.
type Payload struct {
	Identifier    string          `json:"identifier"`
	Title         string          `json:"title"`
	Brand         string          `json:"brand"`
	PriceMin      *float64        `json:"price_min"`
	PriceMax      *float64        `json:"price_max"`
	PriceMinDate  *string         `json:"price_min_date"`
	PriceMaxDate  *string         `json:"price_max_date"`
	MainHistory   []PricePoint    `json:"main_history"`
	BuyBoxHistory []PricePoint    `json:"buybox_history"`
	NewHistory    []PricePoint    `json:"new_history"`
	Raw           json.RawMessage `json:"raw,omitempty"`
}

type Stats struct {
	Total  int64
	Fresh  int64
	Oldest *time.Time
	Newest *time.Time
}

// Cache is the TTL-bounded store of provider payloads, keyed globally by
// identifier. Entries older than the freshness window are never returned
// by reads but stay on disk until Clean.
type Cache struct {
	db     *gorm.DB
	logger *logrus.Logger
	days   int
}

func New(db *gorm.DB, logger *logrus.Logger, freshnessDays int) *Cache {
	return &Cache{db: db, logger: logger, days: freshnessDays}
}

func (c *Cache) cutoff() time.Time {
	return time.Now().AddDate(0, 0, -c.days)
}

// IsFresh reports whether identifier has an entry inside the freshness
// window.
func (c *Cache) IsFresh(identifier string) (bool, error) {
	var count int64
	err := c.db.Model(&models.CacheEntry{}).
		Where("identifier = ? AND captured_at >= ?", identifier, c.cutoff()).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check cache freshness: %w", err)
	}
	return count > 0, nil
}

// Get returns the entry for identifier regardless of freshness, or nil
// when absent. Callers wanting the freshness guarantee use GetBatch.
func (c *Cache) Get(identifier string) (*models.CacheEntry, error) {
	var entry models.CacheEntry
	err := c.db.Where("identifier = ?", identifier).First(&entry).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}
	return &entry, nil
}

// GetBatch returns fresh entries for the given identifiers. Stale
// entries are never included.
func (c *Cache) GetBatch(identifiers []string) (map[string]models.CacheEntry, error) {
	result := make(map[string]models.CacheEntry, len(identifiers))
	if len(identifiers) == 0 {
		return result, nil
	}

	var entries []models.CacheEntry
	err := c.db.
		Where("identifier IN ? AND captured_at >= ?", identifiers, c.cutoff()).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read cache batch: %w", err)
	}

	for _, entry := range entries {
		result[entry.Identifier] = entry
	}
	return result, nil
}

// Uncached returns the identifiers with no fresh entry, preserving input
// order. This drives the "only fetch what's missing" behavior of every
// enrichment caller.
func (c *Cache) Uncached(identifiers []string) ([]string, error) {
	if len(identifiers) == 0 {
		return nil, nil
	}

	var fresh []string
	err := c.db.Model(&models.CacheEntry{}).
		Where("identifier IN ? AND captured_at >= ?", identifiers, c.cutoff()).
		Pluck("identifier", &fresh).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list fresh entries: %w", err)
	}

	freshSet := make(map[string]bool, len(fresh))
	for _, id := range fresh {
		freshSet[id] = true
	}

	var missing []string
	for _, id := range identifiers {
		if !freshSet[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// Save upserts a payload by identifier. When the payload carries any raw
// price series, min/max and their dates are recomputed from the series
// and override provider-supplied summary values; without a series the
// summary values pass through unchanged. Summary windows differ between
// providers, a raw series is self-describing.
func (c *Cache) Save(payload Payload) error {
	if payload.Identifier == "" {
		return fmt.Errorf("payload has no identifier")
	}

	entry := models.CacheEntry{
		Identifier:   payload.Identifier,
		Title:        payload.Title,
		Brand:        payload.Brand,
		PriceMin:     payload.PriceMin,
		PriceMax:     payload.PriceMax,
		PriceMinDate: payload.PriceMinDate,
		PriceMaxDate: payload.PriceMaxDate,
		CapturedAt:   time.Now(),
	}

	if series := payload.series(); len(series) > 0 {
		min, max, minDate, maxDate := summarize(series)
		if min != nil {
			entry.PriceMin = min
			entry.PriceMax = max
			entry.PriceMinDate = minDate
			entry.PriceMaxDate = maxDate
		}
	}

	if len(payload.Raw) > 0 {
		entry.RawPayload = string(payload.Raw)
	}

	err := c.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "identifier"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "brand", "price_min", "price_max",
			"price_min_date", "price_max_date", "raw_payload",
			"captured_at", "updated_at",
		}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("failed to save cache entry: %w", err)
	}
	return nil
}

// Clean hard-deletes entries older than the freshness window. Not part
// of the filter pipeline; intended for periodic maintenance.
func (c *Cache) Clean() (int64, error) {
	result := c.db.Where("captured_at < ?", c.cutoff()).Delete(&models.CacheEntry{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to clean cache: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		c.logger.WithFields(logrus.Fields{
			"deleted": result.RowsAffected,
			"days":    c.days,
		}).Info("Expired cache entries removed")
	}
	return result.RowsAffected, nil
}

func (c *Cache) GetStats() (*Stats, error) {
	stats := &Stats{}

	if err := c.db.Model(&models.CacheEntry{}).Count(&stats.Total).Error; err != nil {
		return nil, fmt.Errorf("failed to count cache entries: %w", err)
	}
	err := c.db.Model(&models.CacheEntry{}).
		Where("captured_at >= ?", c.cutoff()).
		Count(&stats.Fresh).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count fresh entries: %w", err)
	}

	if stats.Total > 0 {
		var oldest, newest models.CacheEntry
		if err := c.db.Order("captured_at ASC").First(&oldest).Error; err == nil {
			stats.Oldest = &oldest.CapturedAt
		}
		if err := c.db.Order("captured_at DESC").First(&newest).Error; err == nil {
			stats.Newest = &newest.CapturedAt
		}
	}

	return stats, nil
}

// series returns the first non-empty price series in priority order.
func (p Payload) series() []PricePoint {
	for _, series := range [][]PricePoint{p.MainHistory, p.BuyBoxHistory, p.NewHistory} {
		if len(series) > 0 {
			return series
		}
	}
	return nil
}

func summarize(series []PricePoint) (min, max *float64, minDate, maxDate *string) {
	for _, point := range series {
		if point.Price <= 0 {
			continue
		}
		price := point.Price
		date := point.Date
		if min == nil || price < *min {
			min, minDate = &price, &date
		}
		if max == nil || price > *max {
			max, maxDate = &price, &date
		}
	}
	return min, max, minDate, maxDate
}
