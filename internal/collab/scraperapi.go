// internal/collab/scraperapi.go
package collab

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/javajoker/asin-radar/internal/models"
	"github.com/javajoker/asin-radar/internal/plugin"
)

const scraperAPIEndpoint = "https://api.scraperapi.com/structured/amazon/search"

// ScraperAPISearcher implements the search collaborator against the
// hosted ScraperAPI structured-search endpoint, one request per result
// page.
type ScraperAPISearcher struct {
	apiKey string
	client *http.Client
	logger *logrus.Logger
}

func NewScraperAPISearcher(apiKey string, logger *logrus.Logger) *ScraperAPISearcher {
	return &ScraperAPISearcher{
		apiKey: apiKey,
		client: &http.Client{Timeout: 70 * time.Second},
		logger: logger,
	}
}

type searchResponse struct {
	Results []struct {
		ASIN         string   `json:"asin"`
		Name         string   `json:"name"`
		Brand        string   `json:"brand"`
		PriceString  string   `json:"price_string"`
		Stars        *float64 `json:"stars"`
		TotalReviews *int     `json:"total_reviews"`
		SalesVolume  string   `json:"sales_volume"`
		Position     *int     `json:"position"`
		URL          string   `json:"url"`
		Sponsored    bool     `json:"sponsored"`
	} `json:"results"`
	Pagination []string `json:"pagination"`
}

// Search pages through the endpoint until max pages, an empty page, or
// context cancellation. A failing page ends the crawl with the pages
// collected so far rather than an error, unless no page succeeded.
func (s *ScraperAPISearcher) Search(ctx context.Context, req plugin.SearchRequest) (*plugin.SearchResult, error) {
	result := &plugin.SearchResult{}
	query := req.Keyword
	if req.Category != "" {
		query = fmt.Sprintf("%s %s", req.Keyword, req.Category)
	}

	for page := 1; page <= req.MaxPages; page++ {
		if err := ctx.Err(); err != nil {
			result.StopReason = "cancelled"
			return result, nil
		}

		items, hasNext, err := s.fetchPage(ctx, query, req.Country, page)
		if err != nil {
			if result.PagesFetched == 0 {
				return nil, err
			}
			s.logger.WithError(err).WithField("page", page).Warn("Search page failed, stopping crawl")
			result.StopReason = "page_error"
			return result, nil
		}
		result.PagesFetched++

		if len(items) == 0 {
			result.StopReason = "empty_page"
			return result, nil
		}
		result.Items = append(result.Items, items...)

		if !hasNext {
			result.StopReason = "last_page"
			return result, nil
		}
	}

	result.StopReason = "max_pages"
	return result, nil
}

func (s *ScraperAPISearcher) fetchPage(ctx context.Context, query, country string, page int) ([]models.SearchItem, bool, error) {
	params := url.Values{}
	params.Set("api_key", s.apiKey)
	params.Set("query", query)
	params.Set("country", country)
	params.Set("page", strconv.Itoa(page))

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, scraperAPIEndpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to build search request: %w", err)
	}

	response, err := s.client.Do(request)
	if err != nil {
		return nil, false, fmt.Errorf("failed to fetch search page: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("search page returned status %d", response.StatusCode)
	}

	var payload searchResponse
	if err := json.NewDecoder(response.Body).Decode(&payload); err != nil {
		return nil, false, fmt.Errorf("failed to decode search page: %w", err)
	}

	items := make([]models.SearchItem, 0, len(payload.Results))
	for _, raw := range payload.Results {
		items = append(items, models.SearchItem{
			Identifier:   raw.ASIN,
			Name:         raw.Name,
			Brand:        raw.Brand,
			PriceText:    raw.PriceString,
			Rating:       raw.Stars,
			ReviewsCount: raw.TotalReviews,
			SalesText:    raw.SalesVolume,
			PageRank:     raw.Position,
			URL:          raw.URL,
			Sponsored:    raw.Sponsored,
		})
	}
	return items, len(payload.Pagination) > page, nil
}
