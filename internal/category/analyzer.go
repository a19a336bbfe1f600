// internal/category/analyzer.go
package category

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Stat is one row of the per-keyword category distribution.
type Stat struct {
	Category     string
	Count        int
	AvgPrice     *float64
	AvgRating    *float64
	TotalReviews *int
}

// Item is the analyzer's view of a record: title for the n-gram
// fallback, taxonomy sub-category when known, metrics for aggregates.
type Item struct {
	Name         string
	CategorySub  string
	Price        *float64
	Rating       *float64
	ReviewsCount *int
}

var nonAlpha = regexp.MustCompile(`[^a-zA-Z\s]`)

var titleCaser = cases.Title(language.English)

// ExtractNgrams returns the n-word sequences of text after stripping
// non-alphabetic characters and case-folding.
func ExtractNgrams(text string, n int) []string {
	words := strings.Fields(nonAlpha.ReplaceAllString(strings.ToLower(text), " "))
	if len(words) < n {
		return nil
	}

	ngrams := make([]string, 0, len(words)-n+1)
	for i := 0; i+n <= len(words); i++ {
		ngrams = append(ngrams, strings.Join(words[i:i+n], " "))
	}
	return ngrams
}

// ExtractProductTypes derives product-type phrases from item titles when
// no taxonomy data exists. 1/2/3-grams are counted; sequences that are
// entirely stop-words (including the search keyword's own words) are
// discarded, as are single words shorter than 3 characters or below
// minCount occurrences. Ranking is (word count desc, frequency desc,
// lexicographic) so specific phrases beat their generic substrings, then
// any candidate contained in an already-selected longer phrase is
// dropped.
func ExtractProductTypes(titles []string, keyword string, minCount, topN int) []string {
	stopwords := make(map[string]bool, len(baseStopwords)+4)
	for word := range baseStopwords {
		stopwords[word] = true
	}
	for _, word := range strings.Fields(nonAlpha.ReplaceAllString(strings.ToLower(keyword), " ")) {
		stopwords[word] = true
	}

	counts := make(map[string]int)
	for _, title := range titles {
		if title == "" {
			continue
		}
		for n := 1; n <= 3; n++ {
			for _, ngram := range ExtractNgrams(title, n) {
				if n == 1 {
					if stopwords[ngram] || len(ngram) < 3 {
						continue
					}
				} else if allStopwords(strings.Fields(ngram), stopwords) {
					continue
				}
				counts[ngram]++
			}
		}
	}

	type candidate struct {
		ngram string
		words int
		count int
	}
	candidates := make([]candidate, 0, len(counts))
	for ngram, count := range counts {
		if count >= minCount {
			candidates = append(candidates, candidate{ngram, len(strings.Fields(ngram)), count})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].words != candidates[j].words {
			return candidates[i].words > candidates[j].words
		}
		if candidates[i].count != candidates[j].count {
			return candidates[i].count > candidates[j].count
		}
		return candidates[i].ngram < candidates[j].ngram
	})

	result := make([]string, 0, topN)
	for _, c := range candidates {
		subset := false
		for _, kept := range result {
			if c.ngram != kept && strings.Contains(kept, c.ngram) {
				subset = true
				break
			}
		}
		if subset {
			continue
		}
		result = append(result, c.ngram)
		if len(result) >= topN {
			break
		}
	}
	return result
}

// AnalyzeDistribution computes the category distribution of a batch.
// Taxonomy sub-categories are used when present; otherwise the n-gram
// fallback classifies each title by the first matching product type.
// "Other" is excluded from the returned stats.
func AnalyzeDistribution(items []Item, keyword string, useTaxonomy bool) []Stat {
	hasTaxonomy := false
	for _, item := range items {
		if item.CategorySub != "" {
			hasTaxonomy = true
			break
		}
	}
	if !hasTaxonomy {
		useTaxonomy = false
	}

	var productTypes []string
	if !useTaxonomy {
		titles := make([]string, 0, len(items))
		for _, item := range items {
			titles = append(titles, item.Name)
		}
		productTypes = ExtractProductTypes(titles, keyword, 3, 30)
	}

	type bucket struct {
		count   int
		prices  []float64
		ratings []float64
		reviews int
		hasRev  bool
	}
	buckets := make(map[string]*bucket)

	for _, item := range items {
		category := "Other"
		if useTaxonomy && item.CategorySub != "" {
			category = item.CategorySub
		} else if !useTaxonomy {
			name := strings.ToLower(item.Name)
			for _, productType := range productTypes {
				if strings.Contains(name, productType) {
					category = titleCaser.String(productType)
					break
				}
			}
		}

		b := buckets[category]
		if b == nil {
			b = &bucket{}
			buckets[category] = b
		}
		b.count++
		if item.Price != nil {
			b.prices = append(b.prices, *item.Price)
		}
		if item.Rating != nil {
			b.ratings = append(b.ratings, *item.Rating)
		}
		if item.ReviewsCount != nil {
			b.reviews += *item.ReviewsCount
			b.hasRev = true
		}
	}

	stats := make([]Stat, 0, len(buckets))
	for category, b := range buckets {
		if category == "Other" {
			continue
		}
		stat := Stat{Category: category, Count: b.count}
		if len(b.prices) > 0 {
			avg := mean(b.prices)
			stat.AvgPrice = &avg
		}
		if len(b.ratings) > 0 {
			avg := mean(b.ratings)
			stat.AvgRating = &avg
		}
		if b.hasRev {
			reviews := b.reviews
			stat.TotalReviews = &reviews
		}
		stats = append(stats, stat)
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Category < stats[j].Category
	})
	return stats
}

func allStopwords(words []string, stopwords map[string]bool) bool {
	for _, word := range words {
		if !stopwords[word] {
			return false
		}
	}
	return true
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
