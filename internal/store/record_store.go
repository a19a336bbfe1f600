// internal/store/record_store.go
package store

import (
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/asin-radar/internal/database"
	"github.com/javajoker/asin-radar/internal/models"
	"github.com/javajoker/asin-radar/internal/parse"
)

// Fields a caller may sort the export by. Anything else falls back to
// price.
var allowedOrderFields = map[string]bool{
	"price":         true,
	"sales_volume":  true,
	"rating":        true,
	"reviews_count": true,
	"page_rank":     true,
}

// FilterResult reports one filter stage's effect on a keyword's records.
type FilterResult struct {
	Total   int64
	Removed int64
	Kept    int64
}

// CategoryFilterResult extends FilterResult with the winning group and
// its price statistics, consumed later by the price filter.
type CategoryFilterResult struct {
	FilterResult
	TopCategory string
	AvgPrice    *float64
	MedianPrice *float64
}

// ListingDateFilterResult attributes removals to the two independent
// listing-age proxies.
type ListingDateFilterResult struct {
	FilterResult
	CutoffDate           string
	RemovedByDate        int64
	RemovedBySalesMonths int64
}

// Distribution buckets a keyword's unfiltered records around a
// threshold.
type Distribution struct {
	NoData         int64
	UnderThreshold int64
	OverThreshold  int64
	Total          int64
}

// EnrichmentData carries per-identifier historical fields for a batch
// update.
type EnrichmentData struct {
	Sales3M              *int
	ProviderMonthlySales *int
	ListingDate          *string
	AvgMonthlySales      *int
	SalesMonthsCount     *int
	PriceMin             *float64
	PriceMax             *float64
	PriceMinDate         *string
	PriceMaxDate         *string
	Rating               *float64
	ReviewsCount         *int
}

// CategoryInfo is a taxonomy lookup result persisted onto a record.
type CategoryInfo struct {
	Path string
	Main string
	Sub  string
}

// RecordStore owns the item table and the category-stats table. All
// filter stages go through the single mark primitive: a guarded update
// that only ever transitions records from untagged to tagged.
type RecordStore struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewRecordStore(db *gorm.DB, logger *logrus.Logger) *RecordStore {
	return &RecordStore{db: db, logger: logger}
}

// UpsertItems inserts or replaces records by (identifier, keyword).
// Re-discovery overwrites descriptive fields but never filter_status.
// Items without an identifier are skipped, not fatal.
func (s *RecordStore) UpsertItems(keyword string, sourceType models.SourceType, sourceValue string, items []models.SearchItem) (int, error) {
	saved := 0
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		for _, item := range items {
			if item.Identifier == "" {
				s.logger.WithField("name", item.Name).Warn("Skipping item without identifier")
				continue
			}

			record := models.ItemRecord{
				Identifier:   item.Identifier,
				Keyword:      keyword,
				SourceType:   sourceType,
				SourceValue:  sourceValue,
				Name:         item.Name,
				Brand:        item.Brand,
				Price:        parse.Price(item.PriceText),
				Rating:       item.Rating,
				ReviewsCount: item.ReviewsCount,
				PageRank:     item.PageRank,
				URL:          item.URL,
				Sponsored:    item.Sponsored,
			}
			if sales := parse.Sales(item.SalesText); sales > 0 {
				record.SalesVolume = &sales
			}

			err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "identifier"}, {Name: "keyword"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"name", "brand", "price", "rating", "reviews_count",
					"sales_volume", "page_rank", "url", "sponsored",
					"updated_at",
				}),
			}).Create(&record).Error
			if err != nil {
				s.logger.WithError(err).WithField("identifier", item.Identifier).Warn("Failed to upsert item")
				continue
			}
			saved++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to upsert items: %w", err)
	}
	return saved, nil
}

// mark sets filter_status = tag on every unfiltered record of keyword
// matching cond. The filter_status IS NULL guard is the compare-and-set
// that makes stage order decide attribution, not exclusion.
func (s *RecordStore) mark(tx *gorm.DB, keyword string, tag models.FilterStatus, cond string, args ...interface{}) (int64, error) {
	query := tx.Model(&models.ItemRecord{}).
		Where("keyword = ? AND filter_status IS NULL", keyword)
	if cond != "" {
		query = query.Where(cond, args...)
	}
	result := query.Update("filter_status", tag)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to mark records as %s: %w", tag, result.Error)
	}
	return result.RowsAffected, nil
}

// Reset clears every filter tag for a keyword. Mandatory before a full
// pipeline re-run so repeated invocations evaluate every record again.
func (s *RecordStore) Reset(keyword string) (int64, error) {
	result := s.db.Model(&models.ItemRecord{}).
		Where("keyword = ? AND filter_status IS NOT NULL", keyword).
		Update("filter_status", nil)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to reset filter status: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *RecordStore) Count(keyword string) (int64, error) {
	var count int64
	err := s.db.Model(&models.ItemRecord{}).Where("keyword = ?", keyword).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

func (s *RecordStore) unfilteredCount(tx *gorm.DB, keyword string) (int64, error) {
	var count int64
	err := tx.Model(&models.ItemRecord{}).
		Where("keyword = ? AND filter_status IS NULL", keyword).
		Count(&count).Error
	return count, err
}

// FilterSponsored tags sponsored placements.
func (s *RecordStore) FilterSponsored(keyword string) (*FilterResult, error) {
	result := &FilterResult{}
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		total, err := s.unfilteredCount(tx, keyword)
		if err != nil {
			return err
		}
		removed, err := s.mark(tx, keyword, models.FilterStatusSponsored, "sponsored = ?", true)
		if err != nil {
			return err
		}
		result.Total = total
		result.Removed = removed
		result.Kept = total - removed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// FilterByCategory keeps only the single largest sub-category group and
// tags everything else, null sub-category included. Group-size ties
// break lexicographically. The winning group's mean and median price
// feed the later price filter; the median of an even-count list is the
// average of the two middle values.
func (s *RecordStore) FilterByCategory(keyword string) (*CategoryFilterResult, error) {
	result := &CategoryFilterResult{}
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		total, err := s.unfilteredCount(tx, keyword)
		if err != nil {
			return err
		}
		result.Total = total
		if total == 0 {
			return nil
		}

		type group struct {
			CategorySub string
			Cnt         int64
		}
		var groups []group
		err = tx.Model(&models.ItemRecord{}).
			Select("category_sub, COUNT(*) as cnt").
			Where("keyword = ? AND filter_status IS NULL AND category_sub IS NOT NULL AND category_sub != ''", keyword).
			Group("category_sub").
			Order("cnt DESC, category_sub ASC").
			Scan(&groups).Error
		if err != nil {
			return fmt.Errorf("failed to group categories: %w", err)
		}
		if len(groups) == 0 {
			// Nothing classified; keep everything.
			result.Kept = total
			return nil
		}

		top := groups[0].CategorySub
		result.TopCategory = top

		removed, err := s.mark(tx, keyword, models.FilterStatusCategory,
			"category_sub IS NULL OR category_sub = '' OR category_sub != ?", top)
		if err != nil {
			return err
		}
		result.Removed = removed
		result.Kept = total - removed

		var prices []float64
		err = tx.Model(&models.ItemRecord{}).
			Where("keyword = ? AND filter_status IS NULL AND price IS NOT NULL AND price > 0", keyword).
			Order("price ASC").
			Pluck("price", &prices).Error
		if err != nil {
			return fmt.Errorf("failed to collect group prices: %w", err)
		}
		if len(prices) > 0 {
			avg := meanOf(prices)
			med := medianOf(prices)
			result.AvgPrice = &avg
			result.MedianPrice = &med
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// FilterBySales tags records whose sales volume strictly exceeds
// maxSales. Null or zero volume is always retained; missing data must
// not count as exceeding the threshold.
func (s *RecordStore) FilterBySales(keyword string, maxSales int) (*FilterResult, error) {
	return s.thresholdFilter(keyword, models.FilterStatusSales,
		"sales_volume IS NOT NULL AND sales_volume > ?", maxSales)
}

// FilterByPrice tags records priced strictly above maxPrice. Null or
// zero price is always retained.
func (s *RecordStore) FilterByPrice(keyword string, maxPrice float64) (*FilterResult, error) {
	return s.thresholdFilter(keyword, models.FilterStatusPrice,
		"price IS NOT NULL AND price > ?", maxPrice)
}

func (s *RecordStore) thresholdFilter(keyword string, tag models.FilterStatus, cond string, arg interface{}) (*FilterResult, error) {
	result := &FilterResult{}
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		total, err := s.unfilteredCount(tx, keyword)
		if err != nil {
			return err
		}
		removed, err := s.mark(tx, keyword, tag, cond, arg)
		if err != nil {
			return err
		}
		result.Total = total
		result.Removed = removed
		result.Kept = total - removed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// FilterByListingDate tags records that look like old listings: a
// listing date before now - months*30d, or more months of sales data
// than the window allows. The two proxies are independent, OR-combined,
// and counted separately.
func (s *RecordStore) FilterByListingDate(keyword string, months int) (*ListingDateFilterResult, error) {
	cutoff := time.Now().AddDate(0, 0, -months*30).Format("2006-01-02")

	result := &ListingDateFilterResult{CutoffDate: cutoff}
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		total, err := s.unfilteredCount(tx, keyword)
		if err != nil {
			return err
		}
		result.Total = total

		byDate, err := s.mark(tx, keyword, models.FilterStatusListingDate,
			"listing_date IS NOT NULL AND listing_date != '' AND listing_date < ?", cutoff)
		if err != nil {
			return err
		}
		bySalesMonths, err := s.mark(tx, keyword, models.FilterStatusSalesMonths,
			"sales_months_count IS NOT NULL AND sales_months_count > ?", months)
		if err != nil {
			return err
		}

		result.RemovedByDate = byDate
		result.RemovedBySalesMonths = bySalesMonths
		result.Removed = byDate + bySalesMonths
		result.Kept = total - result.Removed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SalesDistribution buckets unfiltered records around a sales
// threshold. Zero volume counts as no data.
func (s *RecordStore) SalesDistribution(keyword string, threshold int) (*Distribution, error) {
	return s.distribution(keyword,
		"sales_volume IS NULL OR sales_volume = 0",
		"sales_volume > 0 AND sales_volume <= ?",
		"sales_volume > ?",
		threshold)
}

// PriceDistribution buckets unfiltered records around a price
// threshold.
func (s *RecordStore) PriceDistribution(keyword string, threshold float64) (*Distribution, error) {
	return s.distribution(keyword,
		"price IS NULL OR price = 0",
		"price > 0 AND price <= ?",
		"price > ?",
		threshold)
}

func (s *RecordStore) distribution(keyword, noDataCond, underCond, overCond string, arg interface{}) (*Distribution, error) {
	dist := &Distribution{}
	base := func() *gorm.DB {
		return s.db.Model(&models.ItemRecord{}).
			Where("keyword = ? AND filter_status IS NULL", keyword)
	}

	if err := base().Where(noDataCond).Count(&dist.NoData).Error; err != nil {
		return nil, fmt.Errorf("failed to compute distribution: %w", err)
	}
	if err := base().Where(underCond, arg).Count(&dist.UnderThreshold).Error; err != nil {
		return nil, fmt.Errorf("failed to compute distribution: %w", err)
	}
	if err := base().Where(overCond, arg).Count(&dist.OverThreshold).Error; err != nil {
		return nil, fmt.Errorf("failed to compute distribution: %w", err)
	}
	dist.Total = dist.NoData + dist.UnderThreshold + dist.OverThreshold
	return dist, nil
}

// Export returns the unfiltered records for a keyword ordered by an
// allow-listed field, nulls last. Unknown fields fall back to price.
func (s *RecordStore) Export(keyword, orderBy string) ([]models.ItemRecord, error) {
	if !allowedOrderFields[orderBy] {
		orderBy = "price"
	}

	var records []models.ItemRecord
	err := s.db.
		Where("keyword = ? AND filter_status IS NULL", keyword).
		Order(fmt.Sprintf("%s IS NULL, %s ASC", orderBy, orderBy)).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to export records: %w", err)
	}
	return records, nil
}

// UnfilteredItems returns the full unfiltered record set, used by the
// category analyzer.
func (s *RecordStore) UnfilteredItems(keyword string) ([]models.ItemRecord, error) {
	var records []models.ItemRecord
	err := s.db.
		Where("keyword = ? AND filter_status IS NULL", keyword).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}
	return records, nil
}

// IdentifiersForEnrichment lists the unfiltered identifiers of a
// keyword, in insertion order.
func (s *RecordStore) IdentifiersForEnrichment(keyword string) ([]string, error) {
	var identifiers []string
	err := s.db.Model(&models.ItemRecord{}).
		Where("keyword = ? AND filter_status IS NULL", keyword).
		Order("id ASC").
		Pluck("identifier", &identifiers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list identifiers: %w", err)
	}
	return identifiers, nil
}

// ExistingIdentifiers returns the set of identifiers already stored for
// a keyword, regardless of filter state.
func (s *RecordStore) ExistingIdentifiers(keyword string) (map[string]bool, error) {
	var identifiers []string
	err := s.db.Model(&models.ItemRecord{}).
		Where("keyword = ?", keyword).
		Pluck("identifier", &identifiers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list identifiers: %w", err)
	}
	set := make(map[string]bool, len(identifiers))
	for _, id := range identifiers {
		set[id] = true
	}
	return set, nil
}

// HasTodayData reports whether records for (keyword, source) were
// already stored today, for same-day dedup of collaborator fetches.
func (s *RecordStore) HasTodayData(keyword string, sourceType models.SourceType, sourceValue string) (bool, error) {
	year, month, day := time.Now().Date()
	startOfDay := time.Date(year, month, day, 0, 0, 0, 0, time.Local)

	var count int64
	err := s.db.Model(&models.ItemRecord{}).
		Where("keyword = ? AND source_type = ? AND source_value = ? AND created_at >= ?",
			keyword, sourceType, sourceValue, startOfDay).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check today's data: %w", err)
	}
	return count > 0, nil
}

// BatchUpdateEnrichment writes historical fields onto a keyword's
// records. Rating and review count are backfilled only where the stored
// value is null or zero. Rows failing individually are logged and
// skipped.
func (s *RecordStore) BatchUpdateEnrichment(keyword string, data map[string]EnrichmentData) (int, error) {
	updated := 0
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		for identifier, fields := range data {
			updates := map[string]interface{}{
				"sales_3m":               fields.Sales3M,
				"provider_monthly_sales": fields.ProviderMonthlySales,
				"listing_date":           fields.ListingDate,
				"avg_monthly_sales":      fields.AvgMonthlySales,
				"sales_months_count":     fields.SalesMonthsCount,
				"price_min":              fields.PriceMin,
				"price_max":              fields.PriceMax,
				"price_min_date":         fields.PriceMinDate,
				"price_max_date":         fields.PriceMaxDate,
			}
			result := tx.Model(&models.ItemRecord{}).
				Where("keyword = ? AND identifier = ?", keyword, identifier).
				Updates(updates)
			if result.Error != nil {
				s.logger.WithError(result.Error).WithField("identifier", identifier).Warn("Failed to update enrichment")
				continue
			}
			if result.RowsAffected == 0 {
				continue
			}

			if fields.Rating != nil {
				tx.Model(&models.ItemRecord{}).
					Where("keyword = ? AND identifier = ? AND (rating IS NULL OR rating = 0)", keyword, identifier).
					Update("rating", fields.Rating)
			}
			if fields.ReviewsCount != nil {
				tx.Model(&models.ItemRecord{}).
					Where("keyword = ? AND identifier = ? AND (reviews_count IS NULL OR reviews_count = 0)", keyword, identifier).
					Update("reviews_count", fields.ReviewsCount)
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to update enrichment: %w", err)
	}
	return updated, nil
}

// CategoryCoverage reports how many of a keyword's unfiltered records
// carry a sub-category.
func (s *RecordStore) CategoryCoverage(keyword string) (total, classified int64, err error) {
	if total, err = s.unfilteredCount(s.db, keyword); err != nil {
		return 0, 0, fmt.Errorf("failed to count records: %w", err)
	}
	err = s.db.Model(&models.ItemRecord{}).
		Where("keyword = ? AND filter_status IS NULL AND category_sub IS NOT NULL AND category_sub != ''", keyword).
		Count(&classified).Error
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count classified records: %w", err)
	}
	return total, classified, nil
}

// MissingCategoryIdentifiers lists unfiltered identifiers with no
// sub-category, for the taxonomy fill.
func (s *RecordStore) MissingCategoryIdentifiers(keyword string) ([]string, error) {
	var identifiers []string
	err := s.db.Model(&models.ItemRecord{}).
		Where("keyword = ? AND filter_status IS NULL AND (category_sub IS NULL OR category_sub = '')", keyword).
		Pluck("identifier", &identifiers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list unclassified identifiers: %w", err)
	}
	return identifiers, nil
}

// UpdateCategories persists taxonomy lookups onto records.
func (s *RecordStore) UpdateCategories(keyword string, categories map[string]CategoryInfo) (int, error) {
	updated := 0
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		for identifier, info := range categories {
			result := tx.Model(&models.ItemRecord{}).
				Where("keyword = ? AND identifier = ?", keyword, identifier).
				Updates(map[string]interface{}{
					"category_path": info.Path,
					"category_main": info.Main,
					"category_sub":  info.Sub,
				})
			if result.Error != nil {
				s.logger.WithError(result.Error).WithField("identifier", identifier).Warn("Failed to update category")
				continue
			}
			updated += int(result.RowsAffected)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to update categories: %w", err)
	}
	return updated, nil
}

// SaveCategoryStats replaces the audit snapshot of a keyword's category
// distribution.
func (s *RecordStore) SaveCategoryStats(keyword string, stats []models.CategoryStat) error {
	return database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := tx.Where("keyword = ?", keyword).Delete(&models.CategoryStat{}).Error; err != nil {
			return fmt.Errorf("failed to clear category stats: %w", err)
		}
		for i := range stats {
			stats[i].Keyword = keyword
			if err := tx.Create(&stats[i]).Error; err != nil {
				return fmt.Errorf("failed to save category stat: %w", err)
			}
		}
		return nil
	})
}

func meanOf(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// medianOf expects values sorted ascending.
func medianOf(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	if !sort.Float64sAreSorted(values) {
		sort.Float64s(values)
	}
	if n%2 == 1 {
		return values[n/2]
	}
	return (values[n/2-1] + values[n/2]) / 2
}
