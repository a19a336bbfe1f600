// internal/enrich/reconciler.go
package enrich

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/javajoker/asin-radar/internal/cache"
	"github.com/javajoker/asin-radar/internal/parse"
	"github.com/javajoker/asin-radar/internal/plugin"
)

// PriceSummary is the reconciler's answer for one identifier. Cache
// hits come back in this reduced shape with HistoryCount zero; the raw
// series is not retained in memory.
type PriceSummary struct {
	Identifier   string
	PriceMin     *float64
	PriceMax     *float64
	PriceMinDate *string
	PriceMaxDate *string
	HistoryCount int
	FromCache    bool
}

// Reconciler merges provider price history into single min/max facts,
// going through the TTL cache so identifiers are never re-fetched
// within the freshness window.
type Reconciler struct {
	cache  *cache.Cache
	logger *logrus.Logger
	// Identifiers per provider call and concurrent calls in flight.
	chunkSize   int
	concurrency int
}

func NewReconciler(c *cache.Cache, logger *logrus.Logger, chunkSize, concurrency int) *Reconciler {
	if chunkSize < 1 {
		chunkSize = 40
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Reconciler{cache: c, logger: logger, chunkSize: chunkSize, concurrency: concurrency}
}

// PriceHistories resolves identifiers to price summaries: fresh cache
// entries are returned directly, the rest are fetched from the
// provider, saved through the cache, and summarized. A failing provider
// chunk drops only its own identifiers from the result.
func (r *Reconciler) PriceHistories(ctx context.Context, provider plugin.PriceHistory, identifiers []string, country string) (map[string]PriceSummary, error) {
	results := make(map[string]PriceSummary, len(identifiers))
	if len(identifiers) == 0 {
		return results, nil
	}

	cached, err := r.cache.GetBatch(identifiers)
	if err != nil {
		return nil, err
	}
	for identifier, entry := range cached {
		results[identifier] = PriceSummary{
			Identifier:   identifier,
			PriceMin:     entry.PriceMin,
			PriceMax:     entry.PriceMax,
			PriceMinDate: entry.PriceMinDate,
			PriceMaxDate: entry.PriceMaxDate,
			FromCache:    true,
		}
	}

	missing, err := r.cache.Uncached(identifiers)
	if err != nil {
		return nil, err
	}
	if len(missing) == 0 {
		r.logger.WithField("cached", len(cached)).Debug("All identifiers served from cache")
		return results, nil
	}

	if provider == nil {
		r.logger.WithFields(logrus.Fields{
			"cached":  len(cached),
			"missing": len(missing),
		}).Warn("No price history provider registered, returning cache hits only")
		return results, nil
	}

	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.concurrency)

	for _, chunk := range parse.Chunk(missing, r.chunkSize) {
		chunk := chunk
		group.Go(func() error {
			payloads, err := provider.FetchPriceHistory(groupCtx, chunk, country)
			if err != nil {
				// Partial failure tolerance: this chunk is lost, the
				// batch continues.
				r.logger.WithError(err).WithField("chunk_size", len(chunk)).Warn("Price history chunk failed")
				return nil
			}

			for _, payload := range payloads {
				if payload.Identifier == "" {
					continue
				}
				if err := r.cache.Save(payload); err != nil {
					r.logger.WithError(err).WithField("identifier", payload.Identifier).Warn("Failed to cache payload")
				}
				summary := summarizePayload(payload)

				mu.Lock()
				results[summary.Identifier] = summary
				mu.Unlock()
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	r.logger.WithFields(logrus.Fields{
		"cached":  len(cached),
		"fetched": len(results) - len(cached),
		"missing": len(missing),
	}).Info("Price histories reconciled")
	return results, nil
}

// summarizePayload applies the override rule in memory: a raw series is
// authoritative for min/max when present, provider summary fields
// otherwise.
func summarizePayload(payload cache.Payload) PriceSummary {
	summary := PriceSummary{
		Identifier:   payload.Identifier,
		PriceMin:     payload.PriceMin,
		PriceMax:     payload.PriceMax,
		PriceMinDate: payload.PriceMinDate,
		PriceMaxDate: payload.PriceMaxDate,
	}

	series := firstSeries(payload)
	if len(series) == 0 {
		return summary
	}

	var min, max *float64
	var minDate, maxDate *string
	count := 0
	for _, point := range series {
		if point.Price <= 0 {
			continue
		}
		count++
		price := point.Price
		date := point.Date
		if min == nil || price < *min {
			min, minDate = &price, &date
		}
		if max == nil || price > *max {
			max, maxDate = &price, &date
		}
	}
	if min != nil {
		summary.PriceMin = min
		summary.PriceMax = max
		summary.PriceMinDate = minDate
		summary.PriceMaxDate = maxDate
	}
	summary.HistoryCount = count
	return summary
}

func firstSeries(payload cache.Payload) []cache.PricePoint {
	for _, series := range [][]cache.PricePoint{payload.MainHistory, payload.BuyBoxHistory, payload.NewHistory} {
		if len(series) > 0 {
			return series
		}
	}
	return nil
}
