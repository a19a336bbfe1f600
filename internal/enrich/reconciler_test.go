// internal/enrich/reconciler_test.go
package enrich

import (
	"context"
	"errors"
	"sync"
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
	"github.com/javajoker/asin-radar/internal/models"
	"github.com/javajoker/asin-radar/internal/plugin"
)

type fakeProvider struct {
	mu      sync.Mutex
	fetched [][]string
	fail    map[string]bool
	payload func(identifier string) cache.Payload
}

func (p *fakeProvider) FetchPriceHistory(ctx context.Context, identifiers []string, country string) ([]cache.Payload, error) {
	p.mu.Lock()
	p.fetched = append(p.fetched, identifiers)
	p.mu.Unlock()

	var payloads []cache.Payload
	for _, identifier := range identifiers {
		if p.fail[identifier] {
			return nil, errors.New("provider unavailable")
		}
		if p.payload != nil {
			payloads = append(payloads, p.payload(identifier))
		} else {
			payloads = append(payloads, cache.Payload{
				Identifier:  identifier,
				MainHistory: []cache.PricePoint{{Price: 42.0, Date: "2026-06-01"}},
			})
		}
	}
	return payloads, nil
}

func (p *fakeProvider) fetchedIdentifiers() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var all []string
	for _, chunk := range p.fetched {
		all = append(all, chunk...)
	}
	return all
}

type ReconcilerTestSuite struct {
	suite.Suite
	db         *gorm.DB
	cache      *cache.Cache
	reconciler *Reconciler
}

func (suite *ReconcilerTestSuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(suite.T(), err)
	require.NoError(suite.T(), db.AutoMigrate(&models.CacheEntry{}))

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	suite.db = db
	suite.cache = cache.New(db, log, 20)
	suite.reconciler = NewReconciler(suite.cache, log, 2, 2)
}

func (suite *ReconcilerTestSuite) seedFresh(identifier string, priceMin float64) {
	entry := models.CacheEntry{
		Identifier: identifier,
		PriceMin:   &priceMin,
		CapturedAt: time.Now(),
	}
	require.NoError(suite.T(), suite.db.Create(&entry).Error)
}

func (suite *ReconcilerTestSuite) TestCacheHitsSkipProvider() {
	suite.seedFresh("B000000001", 10.0)
	provider := &fakeProvider{}

	results, err := suite.reconciler.PriceHistories(context.Background(), provider, []string{"B000000001"}, "US")
	require.NoError(suite.T(), err)
	require.Contains(suite.T(), results, "B000000001")
	assert.True(suite.T(), results["B000000001"].FromCache)
	assert.Equal(suite.T(), 0, results["B000000001"].HistoryCount)
	assert.Empty(suite.T(), provider.fetchedIdentifiers())
}

func (suite *ReconcilerTestSuite) TestMissesFetchedAndSavedThrough() {
	suite.seedFresh("B000000001", 10.0)
	provider := &fakeProvider{}

	ids := []string{"B000000001", "B000000002", "B000000003"}
	results, err := suite.reconciler.PriceHistories(context.Background(), provider, ids, "US")
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), results, 3)
	assert.ElementsMatch(suite.T(), []string{"B000000002", "B000000003"}, provider.fetchedIdentifiers())

	assert.False(suite.T(), results["B000000002"].FromCache)
	assert.Equal(suite.T(), 42.0, *results["B000000002"].PriceMin)
	assert.Equal(suite.T(), 1, results["B000000002"].HistoryCount)

	// A second run inside the freshness window never re-fetches.
	provider2 := &fakeProvider{}
	again, err := suite.reconciler.PriceHistories(context.Background(), provider2, ids, "US")
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), again, 3)
	assert.Empty(suite.T(), provider2.fetchedIdentifiers())
	assert.True(suite.T(), again["B000000002"].FromCache)
}

func (suite *ReconcilerTestSuite) TestFailedChunkDropsOnlyItsIdentifiers() {
	provider := &fakeProvider{fail: map[string]bool{"B000000001": true}}

	// Chunk size 2: the failing chunk holds B1+B2, the next B3.
	results, err := suite.reconciler.PriceHistories(context.Background(), provider,
		[]string{"B000000001", "B000000002", "B000000003"}, "US")
	require.NoError(suite.T(), err)
	assert.NotContains(suite.T(), results, "B000000001")
	assert.NotContains(suite.T(), results, "B000000002")
	assert.Contains(suite.T(), results, "B000000003")
}

func (suite *ReconcilerTestSuite) TestNoProviderReturnsCacheHitsOnly() {
	suite.seedFresh("B000000001", 10.0)

	results, err := suite.reconciler.PriceHistories(context.Background(), nil,
		[]string{"B000000001", "B000000002"}, "US")
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), results, 1)
	assert.Contains(suite.T(), results, "B000000001")
}

func (suite *ReconcilerTestSuite) TestSeriesOverridesProviderSummary() {
	provider := &fakeProvider{
		payload: func(identifier string) cache.Payload {
			min := 999.0
			max := 1000.0
			return cache.Payload{
				Identifier: identifier,
				PriceMin:   &min,
				PriceMax:   &max,
				MainHistory: []cache.PricePoint{
					{Price: 249.99, Date: "2026-01-01"},
					{Price: 139.99, Date: "2026-02-01"},
				},
			}
		},
	}

	results, err := suite.reconciler.PriceHistories(context.Background(), provider, []string{"B000000009"}, "US")
	require.NoError(suite.T(), err)
	summary := results["B000000009"]
	assert.Equal(suite.T(), 139.99, *summary.PriceMin)
	assert.Equal(suite.T(), 249.99, *summary.PriceMax)
	assert.Equal(suite.T(), 2, summary.HistoryCount)
}

func TestReconcilerSuite(t *testing.T) {
	suite.Run(t, new(ReconcilerTestSuite))
}

func TestComputeSalesStats(t *testing.T) {
	trends := []plugin.TrendPoint{
		{Month: "202601", Sales: 100},
		{Month: "202603", Sales: 300},
		{Month: "202602", Sales: 0},
		{Month: "202512", Sales: 50},
	}
	stats := ComputeSalesStats(trends)
	require.NotNil(t, stats.Sales3M)
	// Most recent three months: 202603 (300) + 202602 (0) + 202601 (100).
	assert.Equal(t, 400, *stats.Sales3M)
	assert.Equal(t, 3, *stats.SalesMonthsCount)
	assert.Equal(t, 150, *stats.AvgMonthlySales)
}

func TestComputeSalesStatsEmpty(t *testing.T) {
	stats := ComputeSalesStats(nil)
	assert.Nil(t, stats.Sales3M)
	assert.Nil(t, stats.AvgMonthlySales)
	assert.Nil(t, stats.SalesMonthsCount)

	zero := ComputeSalesStats([]plugin.TrendPoint{{Month: "202601", Sales: 0}})
	assert.Nil(t, zero.Sales3M)
	assert.Nil(t, zero.SalesMonthsCount)
}

func TestListingDateFromMillis(t *testing.T) {
	millis := time.Date(2026, 5, 1, 12, 0, 0, 0, time.Local).UnixMilli()
	date := ListingDateFromMillis(&millis)
	require.NotNil(t, date)
	assert.Equal(t, "2026-05-01", *date)

	assert.Nil(t, ListingDateFromMillis(nil))
	var negative int64 = -1
	assert.Nil(t, ListingDateFromMillis(&negative))
}
