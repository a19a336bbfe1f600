// internal/pipeline/orchestrator.go
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/javajoker/asin-radar/internal/category"
	"github.com/javajoker/asin-radar/internal/config"
	"github.com/javajoker/asin-radar/internal/enrich"
	"github.com/javajoker/asin-radar/internal/export"
	"github.com/javajoker/asin-radar/internal/models"
	"github.com/javajoker/asin-radar/internal/parse"
	"github.com/javajoker/asin-radar/internal/plugin"
	"github.com/javajoker/asin-radar/internal/relevance"
	"github.com/javajoker/asin-radar/internal/store"
)

// Orchestrator sequences the filter and enrichment stages over one
// keyword's records. Stages run strictly in order; each stage's writes
// are a precondition for the next. Enrichment is best-effort, the
// filter stages are not.
type Orchestrator struct {
	store      *store.RecordStore
	reconciler *enrich.Reconciler
	registry   *plugin.Registry
	exporter   *export.Exporter
	logger     *logrus.Logger

	cfg          config.PipelineConfig
	relevanceCfg config.RelevanceConfig
	exportFormat string

	// Paces chunked taxonomy calls.
	limiter *rate.Limiter
}

func NewOrchestrator(
	recordStore *store.RecordStore,
	reconciler *enrich.Reconciler,
	registry *plugin.Registry,
	exporter *export.Exporter,
	logger *logrus.Logger,
	cfg config.PipelineConfig,
	relevanceCfg config.RelevanceConfig,
	exportFormat string,
) *Orchestrator {
	interval := time.Duration(cfg.ChunkInterval * float64(time.Second))
	limiter := rate.NewLimiter(rate.Inf, 1)
	if interval > 0 {
		limiter = rate.NewLimiter(rate.Every(interval), 1)
	}
	return &Orchestrator{
		store:        recordStore,
		reconciler:   reconciler,
		registry:     registry,
		exporter:     exporter,
		logger:       logger,
		cfg:          cfg,
		relevanceCfg: relevanceCfg,
		exportFormat: exportFormat,
		limiter:      limiter,
	}
}

// Run executes the full pipeline for a keyword and returns the run
// report. The returned error is non-nil only for fatal failures (no
// search collaborator, store unreachable); best-effort stages record
// their failures in the report and the run continues.
func (o *Orchestrator) Run(ctx context.Context, keyword string) (*Report, error) {
	report := &Report{
		RunID:     uuid.New(),
		Keyword:   keyword,
		StartedAt: time.Now(),
	}
	defer func() {
		report.Duration = time.Since(report.StartedAt)
	}()

	o.logger.WithFields(logrus.Fields{
		"run_id":  report.RunID,
		"keyword": keyword,
	}).Info("Pipeline run started")

	// Stage 1: keyword search (mandatory).
	if err := o.searchStage(ctx, keyword, report); err != nil {
		report.Error = err.Error()
		return report, err
	}

	// Stage 2: taxonomy categories (best-effort).
	o.taxonomyStage(ctx, keyword, report)

	// Stage 3: category distribution, with optional relevance
	// pre-filter of category names.
	stats := o.analyzeStage(ctx, keyword, report)

	// Stage 4: expansion of top categories.
	o.expansionStage(ctx, keyword, stats, report)

	// Stage 5: optional deep expansion from stored identifiers.
	o.deepExpansionStage(ctx, keyword, report)

	// Every record participates in filtering again on re-runs.
	if cleared, err := o.store.Reset(keyword); err != nil {
		report.Error = err.Error()
		return report, err
	} else if cleared > 0 {
		o.logger.WithField("cleared", cleared).Info("Filter status reset before filtering")
	}

	// Filter stages: sponsored, category, sales, enrichment,
	// listing-age, price. Fixed order; attribution follows it.
	if err := o.sponsoredStage(keyword, report); err != nil {
		report.Error = err.Error()
		return report, err
	}
	if err := o.categoryStage(ctx, keyword, report); err != nil {
		report.Error = err.Error()
		return report, err
	}
	if err := o.salesStage(keyword, report); err != nil {
		report.Error = err.Error()
		return report, err
	}

	o.enrichmentStage(ctx, keyword, report)

	if err := o.listingDateStage(keyword, report); err != nil {
		report.Error = err.Error()
		return report, err
	}
	if err := o.priceStage(keyword, report); err != nil {
		report.Error = err.Error()
		return report, err
	}

	o.exportStage(keyword, report)

	total, err := o.store.Count(keyword)
	if err != nil {
		report.Error = err.Error()
		return report, err
	}
	report.TotalItems = total
	report.Success = true

	o.logger.WithFields(logrus.Fields{
		"run_id":      report.RunID,
		"keyword":     keyword,
		"total_items": total,
		"duration":    report.Duration,
	}).Info("Pipeline run finished")
	return report, nil
}

func (o *Orchestrator) searchStage(ctx context.Context, keyword string, report *Report) error {
	start := time.Now()

	searcher, ok := o.registry.Searcher()
	if !ok {
		return fmt.Errorf("no search collaborator registered")
	}

	fresh, err := o.store.HasTodayData(keyword, models.SourceTypeKeyword, keyword)
	if err != nil {
		return err
	}
	if fresh {
		count, err := o.store.Count(keyword)
		if err != nil {
			return err
		}
		o.logger.WithField("keyword", keyword).Info("Reusing today's search results")
		report.addStage(StageSearch, start, func(s *StageReport) {
			s.DataCount = int(count)
			s.FromCache = true
		})
		return nil
	}

	task, err := o.store.StartTask(keyword, models.TaskTypeInitialSearch, keyword)
	if err != nil {
		return err
	}

	result, err := searcher.Search(ctx, plugin.SearchRequest{
		Keyword:        keyword,
		Country:        o.cfg.Country,
		MaxPages:       o.cfg.MaxPages,
		SalesThreshold: o.cfg.SalesThreshold,
	})
	if err != nil {
		o.store.FinishTask(task, 0, 0, err)
		return fmt.Errorf("search failed: %w", err)
	}

	saved, err := o.store.UpsertItems(keyword, models.SourceTypeKeyword, keyword, result.Items)
	if err != nil {
		o.store.FinishTask(task, 0, result.PagesFetched, err)
		return err
	}
	if err := o.store.FinishTask(task, saved, result.PagesFetched, nil); err != nil {
		o.logger.WithError(err).Warn("Failed to close task record")
	}

	report.addStage(StageSearch, start, func(s *StageReport) {
		s.DataCount = saved
	})
	return nil
}

func (o *Orchestrator) taxonomyStage(ctx context.Context, keyword string, report *Report) {
	start := time.Now()

	taxonomy, ok := o.registry.Taxonomy()
	if !ok {
		report.addStage(StageTaxonomy, start, func(s *StageReport) { s.Skipped = true })
		return
	}

	missing, err := o.store.MissingCategoryIdentifiers(keyword)
	if err != nil {
		report.addStage(StageTaxonomy, start, func(s *StageReport) { s.Error = err.Error() })
		return
	}
	if len(missing) == 0 {
		report.addStage(StageTaxonomy, start, nil)
		return
	}

	categories := o.fetchCategories(ctx, taxonomy, missing)
	updated := 0
	if len(categories) > 0 {
		if updated, err = o.store.UpdateCategories(keyword, categories); err != nil {
			report.addStage(StageTaxonomy, start, func(s *StageReport) { s.Error = err.Error() })
			return
		}
	}

	report.addStage(StageTaxonomy, start, func(s *StageReport) {
		s.DataCount = updated
	})
}

// fetchCategories resolves identifiers through the taxonomy plugin in
// fixed-size paced chunks. Failed chunks are logged and skipped.
func (o *Orchestrator) fetchCategories(ctx context.Context, taxonomy plugin.Taxonomy, identifiers []string) map[string]store.CategoryInfo {
	result := make(map[string]store.CategoryInfo)
	for _, chunk := range parse.Chunk(identifiers, o.cfg.ChunkSize) {
		if err := o.limiter.Wait(ctx); err != nil {
			break
		}
		chunkResult, err := taxonomy.FetchCategories(ctx, chunk)
		if err != nil {
			o.logger.WithError(err).WithField("chunk_size", len(chunk)).Warn("Taxonomy chunk failed")
			continue
		}
		for identifier, info := range chunkResult {
			result[identifier] = info
		}
	}
	return result
}

func (o *Orchestrator) analyzeStage(ctx context.Context, keyword string, report *Report) []category.Stat {
	start := time.Now()

	records, err := o.store.UnfilteredItems(keyword)
	if err != nil {
		report.addStage(StageAnalyze, start, func(s *StageReport) { s.Error = err.Error() })
		return nil
	}

	items := make([]category.Item, 0, len(records))
	for _, record := range records {
		item := category.Item{
			Name:         record.Name,
			Price:        record.Price,
			Rating:       record.Rating,
			ReviewsCount: record.ReviewsCount,
		}
		if record.CategorySub != nil {
			item.CategorySub = *record.CategorySub
		}
		items = append(items, item)
	}

	_, taxonomyAvailable := o.registry.Taxonomy()
	stats := category.AnalyzeDistribution(items, keyword, taxonomyAvailable)

	if filter, ok := o.relevanceFilter(); ok && len(stats) > 0 {
		names := make([]string, 0, len(stats))
		for _, stat := range stats {
			names = append(names, stat.Category)
		}
		relevant := filter.FilterCategories(ctx, keyword, names)
		relevantSet := make(map[string]bool, len(relevant))
		for _, name := range relevant {
			relevantSet[name] = true
		}
		kept := stats[:0]
		for _, stat := range stats {
			if relevantSet[stat.Category] {
				kept = append(kept, stat)
			}
		}
		stats = kept
	}

	categoryStats := make([]models.CategoryStat, 0, len(stats))
	for _, stat := range stats {
		categoryStats = append(categoryStats, models.CategoryStat{
			Category:     stat.Category,
			Count:        stat.Count,
			AvgPrice:     stat.AvgPrice,
			AvgRating:    stat.AvgRating,
			TotalReviews: stat.TotalReviews,
		})
	}
	if err := o.store.SaveCategoryStats(keyword, categoryStats); err != nil {
		o.logger.WithError(err).Warn("Failed to persist category stats")
	}

	for i, stat := range stats {
		if i >= o.cfg.TopCategories {
			break
		}
		report.TopCategories = append(report.TopCategories, stat.Category)
	}
	report.addStage(StageAnalyze, start, func(s *StageReport) {
		s.DataCount = len(stats)
	})
	return stats
}

func (o *Orchestrator) expansionStage(ctx context.Context, keyword string, stats []category.Stat, report *Report) {
	start := time.Now()

	searcher, ok := o.registry.Searcher()
	if !ok || len(stats) == 0 || o.cfg.TopCategories <= 0 {
		report.addStage(StageExpansion, start, func(s *StageReport) { s.Skipped = true })
		return
	}

	categories := make([]string, 0, o.cfg.TopCategories)
	for i, stat := range stats {
		if i >= o.cfg.TopCategories {
			break
		}
		categories = append(categories, stat.Category)
	}

	newItems := o.scrapeCategories(ctx, searcher, keyword, categories, models.SourceTypeCategoryExpansion, models.TaskTypeCategoryExpansion)
	report.addStage(StageExpansion, start, func(s *StageReport) {
		s.DataCount = newItems
	})
}

// scrapeCategories fetches each category through the search
// collaborator, skipping categories already covered today, and returns
// the number of newly stored identifiers.
func (o *Orchestrator) scrapeCategories(ctx context.Context, searcher plugin.Searcher, keyword string, categories []string, sourceType models.SourceType, taskType models.TaskType) int {
	existing, err := o.store.ExistingIdentifiers(keyword)
	if err != nil {
		o.logger.WithError(err).Warn("Failed to load existing identifiers")
		existing = map[string]bool{}
	}

	newItems := 0
	for _, categoryName := range categories {
		fresh, err := o.store.HasTodayData(keyword, sourceType, categoryName)
		if err == nil && fresh {
			o.logger.WithField("category", categoryName).Info("Category already fetched today, skipping")
			continue
		}

		task, err := o.store.StartTask(keyword, taskType, categoryName)
		if err != nil {
			o.logger.WithError(err).Warn("Failed to record task")
			continue
		}

		result, err := searcher.Search(ctx, plugin.SearchRequest{
			Keyword:        keyword,
			Country:        o.cfg.Country,
			MaxPages:       o.cfg.MaxPagesPerCategory,
			SalesThreshold: o.cfg.SalesThreshold,
			Category:       categoryName,
		})
		if err != nil {
			o.logger.WithError(err).WithField("category", categoryName).Warn("Category fetch failed")
			o.store.FinishTask(task, 0, 0, err)
			continue
		}

		saved, err := o.store.UpsertItems(keyword, sourceType, categoryName, result.Items)
		if err != nil {
			o.logger.WithError(err).WithField("category", categoryName).Warn("Category merge failed")
			o.store.FinishTask(task, 0, result.PagesFetched, err)
			continue
		}
		o.store.FinishTask(task, saved, result.PagesFetched, nil)

		for _, item := range result.Items {
			if item.Identifier != "" && !existing[item.Identifier] {
				existing[item.Identifier] = true
				newItems++
			}
		}
	}
	return newItems
}

// relevanceFilter builds a filter around the registered judge, when one
// is available and the relevance stage is enabled.
func (o *Orchestrator) relevanceFilter() (*relevance.Filter, bool) {
	judge, ok := o.registry.Judge()
	if !ok || !o.relevanceCfg.Enabled {
		return nil, false
	}
	return relevance.NewFilter(judge, o.logger, relevance.Config{
		ConcurrencyFloor: o.relevanceCfg.ConcurrencyFloor,
		ConcurrencyCeil:  o.relevanceCfg.ConcurrencyCeil,
		ConcurrencyStep:  o.relevanceCfg.ConcurrencyStep,
		StreakTarget:     o.relevanceCfg.StreakTarget,
		MaxParseRetries:  o.relevanceCfg.MaxParseRetries,
		CategoryLimit:    o.relevanceCfg.CategoryLimit,
	}), true
}

func (o *Orchestrator) deepExpansionStage(ctx context.Context, keyword string, report *Report) {
	start := time.Now()

	searcher, searcherOK := o.registry.Searcher()
	taxonomy, taxonomyOK := o.registry.Taxonomy()
	if !o.cfg.DeepExpansion || !searcherOK || !taxonomyOK {
		report.addStage(StageDeepExpansion, start, func(s *StageReport) { s.Skipped = true })
		return
	}

	records, err := o.store.UnfilteredItems(keyword)
	if err != nil {
		report.addStage(StageDeepExpansion, start, func(s *StageReport) { s.Error = err.Error() })
		return
	}
	identifiers := o.deepExpansionSeeds(ctx, keyword, records)

	categories := o.fetchCategories(ctx, taxonomy, identifiers)
	counts := make(map[string]int)
	for _, info := range categories {
		if info.Sub != "" {
			counts[info.Sub]++
		}
	}

	ranked := rankCategories(counts)
	picked := make([]string, 0, o.cfg.DeepExpansionCats)
	for _, categoryName := range ranked {
		covered, err := o.store.HasTodayData(keyword, models.SourceTypeCategoryExpansion, categoryName)
		if err == nil && covered {
			continue
		}
		picked = append(picked, categoryName)
		if len(picked) >= o.cfg.DeepExpansionCats {
			break
		}
	}

	newItems := o.scrapeCategories(ctx, searcher, keyword, picked, models.SourceTypeDeepExpansion, models.TaskTypeDeepExpansion)
	report.addStage(StageDeepExpansion, start, func(s *StageReport) {
		s.DataCount = newItems
	})
}

// deepExpansionSeeds picks the identifiers that seed deep expansion.
// With a judge available the records are pruned by relevance first,
// stopping once the configured relevant count is reached; otherwise the
// first stored records are taken as-is.
func (o *Orchestrator) deepExpansionSeeds(ctx context.Context, keyword string, records []models.ItemRecord) []string {
	if len(records) > o.cfg.DeepExpansionItems {
		records = records[:o.cfg.DeepExpansionItems]
	}

	filter, ok := o.relevanceFilter()
	if !ok {
		identifiers := make([]string, len(records))
		for i, record := range records {
			identifiers[i] = record.Identifier
		}
		return identifiers
	}

	candidates := make([]relevance.Candidate, 0, len(records))
	for _, record := range records {
		candidate := relevance.Candidate{
			Identifier: record.Identifier,
			Name:       record.Name,
		}
		if record.CategorySub != nil {
			candidate.Category = *record.CategorySub
		}
		candidates = append(candidates, candidate)
	}

	result, err := filter.FilterItems(ctx, keyword, candidates, o.cfg.RelevanceLimit)
	if err != nil {
		o.logger.WithError(err).Warn("Item relevance filter failed, using all seeds")
		identifiers := make([]string, len(records))
		for i, record := range records {
			identifiers[i] = record.Identifier
		}
		return identifiers
	}

	identifiers := make([]string, 0, len(result.Relevant))
	for _, candidate := range result.Relevant {
		identifiers = append(identifiers, candidate.Identifier)
	}
	return identifiers
}

func (o *Orchestrator) sponsoredStage(keyword string, report *Report) error {
	start := time.Now()
	result, err := o.store.FilterSponsored(keyword)
	if err != nil {
		return err
	}
	report.SponsoredFilter = result
	report.addStage(StageSponsored, start, func(s *StageReport) {
		s.DataCount = int(result.Kept)
		s.Removed = result.Removed
	})
	return nil
}

func (o *Orchestrator) categoryStage(ctx context.Context, keyword string, report *Report) error {
	start := time.Now()

	// Fill category gaps before the majority vote when coverage is
	// short of the target and the taxonomy is reachable.
	if taxonomy, ok := o.registry.Taxonomy(); ok {
		total, classified, err := o.store.CategoryCoverage(keyword)
		if err != nil {
			return err
		}
		if total > 0 && float64(classified)/float64(total) < o.cfg.CoverageFraction {
			missing, err := o.store.MissingCategoryIdentifiers(keyword)
			if err != nil {
				return err
			}
			filled := o.fetchCategories(ctx, taxonomy, missing)
			if len(filled) > 0 {
				if _, err := o.store.UpdateCategories(keyword, filled); err != nil {
					o.logger.WithError(err).Warn("Category fill failed")
				}
			}
		}
	}

	result, err := o.store.FilterByCategory(keyword)
	if err != nil {
		return err
	}
	report.CategoryFilter = result
	report.addStage(StageCategory, start, func(s *StageReport) {
		s.DataCount = int(result.Kept)
		s.Removed = result.Removed
	})
	return nil
}

func (o *Orchestrator) salesStage(keyword string, report *Report) error {
	start := time.Now()

	if dist, err := o.store.SalesDistribution(keyword, o.cfg.FilterMaxSales); err == nil {
		o.logger.WithFields(logrus.Fields{
			"no_data":         dist.NoData,
			"under_threshold": dist.UnderThreshold,
			"over_threshold":  dist.OverThreshold,
		}).Info("Sales distribution before filtering")
	}

	result, err := o.store.FilterBySales(keyword, o.cfg.FilterMaxSales)
	if err != nil {
		return err
	}
	report.SalesFilter = result
	report.addStage(StageSales, start, func(s *StageReport) {
		s.DataCount = int(result.Kept)
		s.Removed = result.Removed
	})
	return nil
}

func (o *Orchestrator) enrichmentStage(ctx context.Context, keyword string, report *Report) {
	start := time.Now()
	enrichment := &EnrichmentReport{}
	report.Enrichment = enrichment

	identifiers, err := o.store.IdentifiersForEnrichment(keyword)
	if err != nil {
		report.addStage(StageEnrichment, start, func(s *StageReport) { s.Error = err.Error() })
		return
	}
	enrichment.TotalItems = len(identifiers)
	if len(identifiers) == 0 {
		enrichment.Success = true
		report.addStage(StageEnrichment, start, func(s *StageReport) { s.Skipped = true })
		return
	}

	data := make(map[string]store.EnrichmentData, len(identifiers))

	if taxonomy, ok := o.registry.Taxonomy(); ok {
		for _, chunk := range parse.Chunk(identifiers, o.cfg.ChunkSize) {
			if err := o.limiter.Wait(ctx); err != nil {
				break
			}
			histories, err := taxonomy.FetchSalesHistory(ctx, chunk)
			if err != nil {
				o.logger.WithError(err).Warn("Sales history chunk failed")
				continue
			}
			for identifier, sales := range histories {
				stats := enrich.ComputeSalesStats(sales.Trends)
				entry := data[identifier]
				entry.Sales3M = stats.Sales3M
				entry.AvgMonthlySales = stats.AvgMonthlySales
				entry.SalesMonthsCount = stats.SalesMonthsCount
				entry.ProviderMonthlySales = sales.MonthlySales
				entry.ListingDate = enrich.ListingDateFromMillis(sales.AvailableMillis)
				entry.Rating = sales.Rating
				entry.ReviewsCount = sales.Reviews
				data[identifier] = entry
			}
		}
	} else {
		o.logger.Warn("Taxonomy collaborator unavailable, skipping sales history")
	}

	if provider, ok := o.registry.PriceHistory(); ok {
		summaries, err := o.reconciler.PriceHistories(ctx, provider, identifiers, o.cfg.Country)
		if err != nil {
			o.logger.WithError(err).Warn("Price history reconciliation failed")
		}
		for identifier, summary := range summaries {
			entry := data[identifier]
			entry.PriceMin = summary.PriceMin
			entry.PriceMax = summary.PriceMax
			entry.PriceMinDate = summary.PriceMinDate
			entry.PriceMaxDate = summary.PriceMaxDate
			data[identifier] = entry
			if summary.PriceMin != nil {
				enrichment.HasPriceHistory++
			}
		}
	} else {
		o.logger.Warn("Price history collaborator unavailable, skipping price history")
	}

	if len(data) == 0 {
		report.addStage(StageEnrichment, start, func(s *StageReport) { s.Skipped = true })
		return
	}

	updated, err := o.store.BatchUpdateEnrichment(keyword, data)
	if err != nil {
		report.addStage(StageEnrichment, start, func(s *StageReport) { s.Error = err.Error() })
		return
	}

	for _, entry := range data {
		if entry.Sales3M != nil {
			enrichment.HasSales3M++
		}
		if entry.ProviderMonthlySales != nil {
			enrichment.HasMonthlySales++
		}
		if entry.ListingDate != nil {
			enrichment.HasListingDate++
		}
	}
	enrichment.Success = true
	enrichment.EnrichedCount = updated

	report.addStage(StageEnrichment, start, func(s *StageReport) {
		s.DataCount = updated
	})
}

func (o *Orchestrator) listingDateStage(keyword string, report *Report) error {
	start := time.Now()
	result, err := o.store.FilterByListingDate(keyword, o.cfg.ListingMonths)
	if err != nil {
		return err
	}
	report.ListingDateFilter = result
	report.addStage(StageListingDate, start, func(s *StageReport) {
		s.DataCount = int(result.Kept)
		s.Removed = result.Removed
	})
	return nil
}

func (o *Orchestrator) priceStage(keyword string, report *Report) error {
	start := time.Now()
	priceReport := &PriceFilterReport{}
	report.PriceFilter = priceReport

	var avg, median *float64
	if report.CategoryFilter != nil {
		avg = report.CategoryFilter.AvgPrice
		median = report.CategoryFilter.MedianPrice
	}

	// Threshold is the smaller of the winning group's mean and median.
	var maxPrice *float64
	switch {
	case avg != nil && median != nil:
		maxPrice = avg
		if *median < *avg {
			maxPrice = median
		}
	case avg != nil:
		maxPrice = avg
	case median != nil:
		maxPrice = median
	}

	if maxPrice == nil {
		priceReport.Skipped = true
		report.addStage(StagePrice, start, func(s *StageReport) { s.Skipped = true })
		return nil
	}
	priceReport.MaxPrice = maxPrice

	result, err := o.store.FilterByPrice(keyword, *maxPrice)
	if err != nil {
		return err
	}
	priceReport.Result = result
	report.addStage(StagePrice, start, func(s *StageReport) {
		s.DataCount = int(result.Kept)
		s.Removed = result.Removed
	})
	return nil
}

func (o *Orchestrator) exportStage(keyword string, report *Report) {
	start := time.Now()

	records, err := o.store.Export(keyword, "price")
	if err != nil {
		report.addStage(StageExport, start, func(s *StageReport) { s.Error = err.Error() })
		return
	}
	if len(records) == 0 {
		o.logger.Warn("No records to export")
		report.addStage(StageExport, start, func(s *StageReport) { s.Skipped = true })
		return
	}

	if o.exportFormat == "csv" || o.exportFormat == "both" {
		if path, err := o.exporter.WriteCSV(keyword, records); err != nil {
			o.logger.WithError(err).Warn("CSV export failed")
		} else {
			report.ExportPaths = append(report.ExportPaths, path)
		}
	}
	if o.exportFormat == "xlsx" || o.exportFormat == "both" {
		if path, err := o.exporter.WriteXLSX(keyword, records); err != nil {
			o.logger.WithError(err).Warn("XLSX export failed")
		} else {
			report.ExportPaths = append(report.ExportPaths, path)
		}
	}

	report.addStage(StageExport, start, func(s *StageReport) {
		s.DataCount = len(records)
	})
}

func rankCategories(counts map[string]int) []string {
	type pair struct {
		name  string
		count int
	}
	pairs := make([]pair, 0, len(counts))
	for name, count := range counts {
		pairs = append(pairs, pair{name, count})
	}
	// Count descending, name ascending for deterministic ties.
	for i := 0; i < len(pairs); i++ {
		for j := i + 1; j < len(pairs); j++ {
			if pairs[j].count > pairs[i].count ||
				(pairs[j].count == pairs[i].count && pairs[j].name < pairs[i].name) {
				pairs[i], pairs[j] = pairs[j], pairs[i]
			}
		}
	}
	ranked := make([]string, len(pairs))
	for i, p := range pairs {
		ranked[i] = p.name
	}
	return ranked
}
