// internal/pipeline/pipeline_test.go
package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/javajoker/asin-radar/internal/cache"
	"github.com/javajoker/asin-radar/internal/config"
	"github.com/javajoker/asin-radar/internal/enrich"
	"github.com/javajoker/asin-radar/internal/export"
	"github.com/javajoker/asin-radar/internal/models"
	"github.com/javajoker/asin-radar/internal/plugin"
	"github.com/javajoker/asin-radar/internal/store"
)

type fakeSearcher struct {
	items         []models.SearchItem
	searchCalls   int
	categoryCalls int
}

func (s *fakeSearcher) Search(ctx context.Context, req plugin.SearchRequest) (*plugin.SearchResult, error) {
	if req.Category != "" {
		s.categoryCalls++
		return &plugin.SearchResult{PagesFetched: 1}, nil
	}
	s.searchCalls++
	return &plugin.SearchResult{Items: s.items, PagesFetched: 2}, nil
}

type fakeTaxonomy struct {
	categories  map[string]store.CategoryInfo
	sales       map[string]plugin.SalesData
	salesErr    error
	salesCalls  int
	fetchedSets [][]string
}

func (t *fakeTaxonomy) FetchCategories(ctx context.Context, identifiers []string) (map[string]store.CategoryInfo, error) {
	t.fetchedSets = append(t.fetchedSets, identifiers)
	result := make(map[string]store.CategoryInfo)
	for _, identifier := range identifiers {
		if info, ok := t.categories[identifier]; ok {
			result[identifier] = info
		}
	}
	return result, nil
}

func (t *fakeTaxonomy) FetchSalesHistory(ctx context.Context, identifiers []string) (map[string]plugin.SalesData, error) {
	t.salesCalls++
	if t.salesErr != nil {
		return nil, t.salesErr
	}
	result := make(map[string]plugin.SalesData)
	for _, identifier := range identifiers {
		if data, ok := t.sales[identifier]; ok {
			result[identifier] = data
		}
	}
	return result, nil
}

type fakePriceProvider struct {
	payloads map[string]cache.Payload
}

func (p *fakePriceProvider) FetchPriceHistory(ctx context.Context, identifiers []string, country string) ([]cache.Payload, error) {
	var payloads []cache.Payload
	for _, identifier := range identifiers {
		if payload, ok := p.payloads[identifier]; ok {
			payloads = append(payloads, payload)
		}
	}
	return payloads, nil
}

type PipelineTestSuite struct {
	suite.Suite
	db       *gorm.DB
	store    *store.RecordStore
	cache    *cache.Cache
	registry *plugin.Registry
	exporter *export.Exporter
	log      *logrus.Logger
	cfg      config.PipelineConfig
}

func (suite *PipelineTestSuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(suite.T(), err)
	require.NoError(suite.T(), db.AutoMigrate(
		&models.ItemRecord{}, &models.CategoryStat{},
		&models.CacheEntry{}, &models.ScrapeTask{},
	))

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	suite.db = db
	suite.log = log
	suite.store = store.NewRecordStore(db, log)
	suite.cache = cache.New(db, log, 20)
	suite.registry = plugin.NewRegistry()
	suite.exporter = export.NewExporter(suite.T().TempDir(), log)
	suite.cfg = config.PipelineConfig{
		Country:             "us",
		MaxPages:            10,
		SalesThreshold:      10,
		TopCategories:       2,
		MaxPagesPerCategory: 5,
		RelevanceLimit:      100,
		FilterMaxSales:      100,
		ListingMonths:       6,
		ChunkSize:           40,
		ChunkInterval:       0,
		CoverageFraction:    0.9,
	}
}

func (suite *PipelineTestSuite) newOrchestrator() *Orchestrator {
	reconciler := enrich.NewReconciler(suite.cache, suite.log, suite.cfg.ChunkSize, 2)
	return NewOrchestrator(
		suite.store, reconciler, suite.registry, suite.exporter, suite.log,
		suite.cfg, config.RelevanceConfig{}, "csv",
	)
}

func intPtr(v int) *int           { return &v }
func int64Ptr(v int64) *int64     { return &v }
func floatPtr(v float64) *float64 { return &v }

// seedCollaborators registers a full set of fakes producing a known
// outcome for the keyword "camping lantern":
//
//	A1 sponsored, A2 kept, A3 removed by sales, A4 removed by
//	category, A5 removed by price.
func (suite *PipelineTestSuite) seedCollaborators() (*fakeSearcher, *fakeTaxonomy) {
	searcher := &fakeSearcher{items: []models.SearchItem{
		{Identifier: "A000000001", Name: "Promoted Lantern", PriceText: "$25.00", Sponsored: true},
		{Identifier: "A000000002", Name: "Small Lantern", PriceText: "$10.00", SalesText: "50+ bought"},
		{Identifier: "A000000003", Name: "Popular Lantern", PriceText: "$20.00", SalesText: "200+ bought"},
		{Identifier: "A000000004", Name: "Dome Tent", PriceText: "$15.00", SalesText: "30+ bought"},
		{Identifier: "A000000005", Name: "Deluxe Lantern", PriceText: "$40.00", SalesText: "60+ bought"},
	}}

	lantern := store.CategoryInfo{Path: "Outdoors > Lanterns", Main: "Outdoors", Sub: "Lanterns"}
	taxonomy := &fakeTaxonomy{
		categories: map[string]store.CategoryInfo{
			"A000000001": lantern,
			"A000000002": lantern,
			"A000000003": lantern,
			"A000000004": {Path: "Outdoors > Tents", Main: "Outdoors", Sub: "Tents"},
			"A000000005": lantern,
		},
		sales: map[string]plugin.SalesData{
			"A000000002": {
				Trends: []plugin.TrendPoint{
					{Month: "202606", Sales: 30},
					{Month: "202607", Sales: 40},
					{Month: "202608", Sales: 50},
				},
				MonthlySales:    intPtr(45),
				AvailableMillis: int64Ptr(time.Now().AddDate(0, -2, 0).UnixMilli()),
				Rating:          floatPtr(4.4),
				Reviews:         intPtr(120),
			},
		},
	}

	suite.registry.RegisterSearcher(searcher)
	suite.registry.RegisterTaxonomy(taxonomy)
	suite.registry.RegisterPriceHistory(&fakePriceProvider{payloads: map[string]cache.Payload{
		"A000000002": {
			Identifier: "A000000002",
			MainHistory: []cache.PricePoint{
				{Price: 9.99, Date: "2026-07-01"},
				{Price: 12.99, Date: "2026-08-01"},
			},
		},
	}})
	return searcher, taxonomy
}

func (suite *PipelineTestSuite) TestFullRun() {
	suite.seedCollaborators()
	orchestrator := suite.newOrchestrator()

	report, err := orchestrator.Run(context.Background(), "camping lantern")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), report.Success)
	assert.Equal(suite.T(), "camping lantern", report.Keyword)
	assert.Equal(suite.T(), int64(5), report.TotalItems)

	require.NotNil(suite.T(), report.SponsoredFilter)
	assert.Equal(suite.T(), int64(1), report.SponsoredFilter.Removed)

	require.NotNil(suite.T(), report.CategoryFilter)
	assert.Equal(suite.T(), "Lanterns", report.CategoryFilter.TopCategory)
	assert.Equal(suite.T(), int64(1), report.CategoryFilter.Removed)

	require.NotNil(suite.T(), report.SalesFilter)
	assert.Equal(suite.T(), int64(1), report.SalesFilter.Removed)

	// Winning group prices 10/20/40: mean 23.33, median 20, threshold 20.
	require.NotNil(suite.T(), report.PriceFilter)
	require.NotNil(suite.T(), report.PriceFilter.MaxPrice)
	assert.InDelta(suite.T(), 20.0, *report.PriceFilter.MaxPrice, 0.01)
	require.NotNil(suite.T(), report.PriceFilter.Result)
	assert.Equal(suite.T(), int64(1), report.PriceFilter.Result.Removed)

	// A2 is the single survivor, enriched end to end.
	records, err := suite.store.Export("camping lantern", "price")
	require.NoError(suite.T(), err)
	require.Len(suite.T(), records, 1)
	survivor := records[0]
	assert.Equal(suite.T(), "A000000002", survivor.Identifier)
	require.NotNil(suite.T(), survivor.Sales3M)
	assert.Equal(suite.T(), 120, *survivor.Sales3M)
	require.NotNil(suite.T(), survivor.PriceMin)
	assert.Equal(suite.T(), 9.99, *survivor.PriceMin)
	require.NotNil(suite.T(), survivor.PriceMax)
	assert.Equal(suite.T(), 12.99, *survivor.PriceMax)
	require.NotNil(suite.T(), survivor.Rating)
	assert.Equal(suite.T(), 4.4, *survivor.Rating)

	require.NotEmpty(suite.T(), report.ExportPaths)
	assert.Contains(suite.T(), report.TopCategories, "Lanterns")
}

func (suite *PipelineTestSuite) TestNoSearcherFails() {
	orchestrator := suite.newOrchestrator()

	report, err := orchestrator.Run(context.Background(), "camping lantern")
	require.Error(suite.T(), err)
	assert.False(suite.T(), report.Success)
	assert.NotEmpty(suite.T(), report.Error)
}

func (suite *PipelineTestSuite) TestEnrichmentFailureDoesNotSkipFilters() {
	_, taxonomy := suite.seedCollaborators()
	taxonomy.salesErr = errors.New("provider down")
	suite.registry.RegisterPriceHistory(nil)

	orchestrator := suite.newOrchestrator()
	report, err := orchestrator.Run(context.Background(), "camping lantern")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), report.Success)

	// Later filter stages still ran.
	require.NotNil(suite.T(), report.ListingDateFilter)
	require.NotNil(suite.T(), report.PriceFilter)

	// No enrichment data landed, so A5 still falls to the price filter
	// but nothing to the listing-age proxies.
	assert.Equal(suite.T(), int64(0), report.ListingDateFilter.Removed)
}

func (suite *PipelineTestSuite) TestRerunReusesTodaysSearch() {
	searcher, _ := suite.seedCollaborators()
	orchestrator := suite.newOrchestrator()

	first, err := orchestrator.Run(context.Background(), "camping lantern")
	require.NoError(suite.T(), err)
	second, err := orchestrator.Run(context.Background(), "camping lantern")
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), 1, searcher.searchCalls)
	assert.Equal(suite.T(), first.TotalItems, second.TotalItems)

	var fromCache bool
	for _, stage := range second.Stages {
		if stage.Stage == StageSearch {
			fromCache = stage.FromCache
		}
	}
	assert.True(suite.T(), fromCache)

	// Both runs converge on the same survivor set.
	records, err := suite.store.Export("camping lantern", "price")
	require.NoError(suite.T(), err)
	require.Len(suite.T(), records, 1)
	assert.Equal(suite.T(), "A000000002", records[0].Identifier)
}

func (suite *PipelineTestSuite) TestPriceFilterSkippedWithoutPrices() {
	searcher := &fakeSearcher{items: []models.SearchItem{
		{Identifier: "B000000001", Name: "Mystery Widget"},
		{Identifier: "B000000002", Name: "Mystery Gadget"},
	}}
	suite.registry.RegisterSearcher(searcher)

	orchestrator := suite.newOrchestrator()
	report, err := orchestrator.Run(context.Background(), "widget")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), report.Success)

	require.NotNil(suite.T(), report.PriceFilter)
	assert.True(suite.T(), report.PriceFilter.Skipped)
	assert.Nil(suite.T(), report.PriceFilter.MaxPrice)
}

func (suite *PipelineTestSuite) TestTaskAuditRows() {
	suite.seedCollaborators()
	orchestrator := suite.newOrchestrator()

	_, err := orchestrator.Run(context.Background(), "camping lantern")
	require.NoError(suite.T(), err)

	var tasks []models.ScrapeTask
	require.NoError(suite.T(), suite.db.Where("keyword = ?", "camping lantern").Find(&tasks).Error)
	require.NotEmpty(suite.T(), tasks)

	var initial *models.ScrapeTask
	for i := range tasks {
		if tasks[i].TaskType == models.TaskTypeInitialSearch {
			initial = &tasks[i]
		}
	}
	require.NotNil(suite.T(), initial)
	assert.Equal(suite.T(), models.TaskStatusCompleted, initial.Status)
	assert.Equal(suite.T(), 5, initial.ItemCount)
	assert.Equal(suite.T(), 2, initial.PagesFetched)
	assert.NotNil(suite.T(), initial.FinishedAt)
}

func TestPipelineSuite(t *testing.T) {
	suite.Run(t, new(PipelineTestSuite))
}
