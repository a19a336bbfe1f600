// internal/category/analyzer_test.go
package category

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractNgrams(t *testing.T) {
	assert.Equal(t, []string{"sleeping", "bag", "liner"}, ExtractNgrams("Sleeping Bag Liner!", 1))
	assert.Equal(t, []string{"sleeping bag", "bag liner"}, ExtractNgrams("Sleeping Bag Liner", 2))
	assert.Equal(t, []string{"sleeping bag liner"}, ExtractNgrams("Sleeping (Bag) Liner 2024", 3))
	assert.Nil(t, ExtractNgrams("bag", 2))
}

func TestExtractProductTypesPrefersLongerPhrases(t *testing.T) {
	titles := []string{
		"Ultralight Sleeping Bag for Camping",
		"Compact Sleeping Bag 3 Season",
		"Warm Sleeping Bag with Hood",
		"Down Sleeping Bag",
	}

	types := ExtractProductTypes(titles, "camping", 3, 10)
	require.NotEmpty(t, types)
	assert.Equal(t, "sleeping bag", types[0])
	// The substring "bag" must have been deduplicated away.
	assert.NotContains(t, types, "bag")
	assert.NotContains(t, types, "sleeping")
}

func TestExtractProductTypesSkipsStopwordsAndKeyword(t *testing.T) {
	titles := []string{
		"Best Premium Tent for Camping",
		"Best Premium Tent Large",
		"Best Premium Tent Set",
	}

	types := ExtractProductTypes(titles, "camping tent", 3, 10)
	for _, productType := range types {
		assert.NotContains(t, []string{"best", "premium", "tent", "camping", "best premium"}, productType)
	}
}

func TestExtractProductTypesMinCount(t *testing.T) {
	titles := []string{
		"Camp Stove Burner",
		"Camp Stove Burner",
	}
	// Two occurrences are below the minimum of three.
	assert.Empty(t, ExtractProductTypes(titles, "camping", 3, 10))
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func TestAnalyzeDistributionWithTaxonomy(t *testing.T) {
	items := []Item{
		{Name: "Lantern A", CategorySub: "Lanterns", Price: floatPtr(20), Rating: floatPtr(4.0), ReviewsCount: intPtr(100)},
		{Name: "Lantern B", CategorySub: "Lanterns", Price: floatPtr(40), Rating: floatPtr(5.0), ReviewsCount: intPtr(50)},
		{Name: "Tent A", CategorySub: "Tents", Price: floatPtr(100)},
		{Name: "Mystery", CategorySub: ""},
	}

	stats := AnalyzeDistribution(items, "camping", true)
	require.Len(t, stats, 2)
	assert.Equal(t, "Lanterns", stats[0].Category)
	assert.Equal(t, 2, stats[0].Count)
	assert.Equal(t, 30.0, *stats[0].AvgPrice)
	assert.Equal(t, 4.5, *stats[0].AvgRating)
	assert.Equal(t, 150, *stats[0].TotalReviews)
	assert.Equal(t, "Tents", stats[1].Category)
}

func TestAnalyzeDistributionFallback(t *testing.T) {
	items := []Item{
		{Name: "Ultralight Sleeping Bag", Price: floatPtr(30)},
		{Name: "Down Sleeping Bag", Price: floatPtr(50)},
		{Name: "Warm Sleeping Bag", Price: floatPtr(40)},
		{Name: "Mystery Gadget"},
	}

	stats := AnalyzeDistribution(items, "camping", false)
	require.Len(t, stats, 1)
	assert.Equal(t, "Sleeping Bag", stats[0].Category)
	assert.Equal(t, 3, stats[0].Count)
	assert.Equal(t, 40.0, *stats[0].AvgPrice)
}

func TestAnalyzeDistributionExcludesOther(t *testing.T) {
	items := []Item{
		{Name: "A", CategorySub: "Lanterns"},
		{Name: "B", CategorySub: ""},
	}
	stats := AnalyzeDistribution(items, "camping", true)
	require.Len(t, stats, 1)
	assert.Equal(t, "Lanterns", stats[0].Category)
}

func TestAnalyzeDistributionDeterministicTies(t *testing.T) {
	items := []Item{
		{Name: "A", CategorySub: "Tents"},
		{Name: "B", CategorySub: "Lanterns"},
	}
	stats := AnalyzeDistribution(items, "camping", true)
	require.Len(t, stats, 2)
	assert.Equal(t, "Lanterns", stats[0].Category)
	assert.Equal(t, "Tents", stats[1].Category)
}
