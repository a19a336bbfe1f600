// internal/enrich/sales_stats.go
package enrich

import (
	"sort"
	"time"

	"github.com/javajoker/asin-radar/internal/plugin"
)

// SalesStats are the trend aggregates written onto item records.
type SalesStats struct {
	Sales3M          *int
	AvgMonthlySales  *int
	SalesMonthsCount *int
}

// ComputeSalesStats aggregates a provider's monthly trend points:
// recent-3-months total, average over months that actually had sales,
// and the count of those months. Empty aggregates come back nil rather
// than zero so absence of data stays distinguishable downstream.
func ComputeSalesStats(trends []plugin.TrendPoint) SalesStats {
	if len(trends) == 0 {
		return SalesStats{}
	}

	sorted := make([]plugin.TrendPoint, len(trends))
	copy(sorted, trends)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Month > sorted[j].Month
	})

	validMonths := 0
	totalSales := 0
	for _, point := range sorted {
		if point.Sales > 0 {
			validMonths++
			totalSales += point.Sales
		}
	}

	recent := sorted
	if len(recent) > 3 {
		recent = recent[:3]
	}
	sales3m := 0
	for _, point := range recent {
		sales3m += point.Sales
	}

	stats := SalesStats{}
	if sales3m > 0 {
		stats.Sales3M = &sales3m
	}
	if validMonths > 0 {
		avg := totalSales / validMonths
		stats.AvgMonthlySales = &avg
		stats.SalesMonthsCount = &validMonths
	}
	return stats
}

// ListingDateFromMillis converts a provider listing timestamp to a
// YYYY-MM-DD date, nil when absent or nonsensical.
func ListingDateFromMillis(millis *int64) *string {
	if millis == nil || *millis <= 0 {
		return nil
	}
	date := time.UnixMilli(*millis).Format("2006-01-02")
	return &date
}
