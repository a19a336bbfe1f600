// internal/config/config.go
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/javajoker/asin-radar/internal/utils"
)

type Config struct {
	Environment string
	Database    DatabaseConfig
	Cache       CacheConfig
	Relevance   RelevanceConfig
	Pipeline    PipelineConfig
	Export      ExportConfig
	Log         LogConfig
	Collab      CollabConfig
}

type DatabaseConfig struct {
	Path     string `validate:"required"`
	LogLevel string
}

type CacheConfig struct {
	// Days a cached enrichment payload stays trusted without re-fetching.
	FreshnessDays int `validate:"min=1"`
}

type RelevanceConfig struct {
	Enabled          bool
	ConcurrencyFloor int `validate:"min=1"`
	ConcurrencyCeil  int `validate:"min=1"`
	ConcurrencyStep  int `validate:"min=1"`
	StreakTarget     int `validate:"min=1"`
	MaxParseRetries  int `validate:"min=0"`
	CategoryLimit    int `validate:"min=1"`
}

type PipelineConfig struct {
	Country             string
	MaxPages            int `validate:"min=1"`
	SalesThreshold      int
	TopCategories       int
	MaxPagesPerCategory int `validate:"min=1"`
	RelevanceLimit      int
	FilterMaxSales      int
	ListingMonths       int `validate:"min=1"`
	DeepExpansion       bool
	DeepExpansionItems  int
	DeepExpansionCats   int
	// Taxonomy calls go out in fixed-size identifier chunks, paced by a
	// rate limiter.
	ChunkSize        int     `validate:"min=1"`
	ChunkInterval    float64 `validate:"min=0"`
	CoverageFraction float64 `validate:"min=0,max=1"`
}

type ExportConfig struct {
	Dir    string `validate:"required"`
	Format string `validate:"oneof=csv xlsx both"`
}

type LogConfig struct {
	Level  string
	Format string
}

type CollabConfig struct {
	ScraperAPIKey string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Database: DatabaseConfig{
			Path:     getEnv("DB_PATH", "data/asin_radar.db"),
			LogLevel: getEnv("DB_LOG_LEVEL", "silent"),
		},
		Cache: CacheConfig{
			FreshnessDays: getEnvAsInt("CACHE_FRESHNESS_DAYS", 20),
		},
		Relevance: RelevanceConfig{
			Enabled:          getEnvAsBool("RELEVANCE_ENABLED", true),
			ConcurrencyFloor: getEnvAsInt("RELEVANCE_CONCURRENCY_FLOOR", 5),
			ConcurrencyCeil:  getEnvAsInt("RELEVANCE_CONCURRENCY_CEIL", 20),
			ConcurrencyStep:  getEnvAsInt("RELEVANCE_CONCURRENCY_STEP", 2),
			StreakTarget:     getEnvAsInt("RELEVANCE_STREAK_TARGET", 3),
			MaxParseRetries:  getEnvAsInt("RELEVANCE_MAX_PARSE_RETRIES", 3),
			CategoryLimit:    getEnvAsInt("RELEVANCE_CATEGORY_LIMIT", 30),
		},
		Pipeline: PipelineConfig{
			Country:             getEnv("PIPELINE_COUNTRY", "us"),
			MaxPages:            getEnvAsInt("PIPELINE_MAX_PAGES", 100),
			SalesThreshold:      getEnvAsInt("PIPELINE_SALES_THRESHOLD", 10),
			TopCategories:       getEnvAsInt("PIPELINE_TOP_CATEGORIES", 3),
			MaxPagesPerCategory: getEnvAsInt("PIPELINE_MAX_PAGES_PER_CATEGORY", 50),
			RelevanceLimit:      getEnvAsInt("PIPELINE_RELEVANCE_LIMIT", 100),
			FilterMaxSales:      getEnvAsInt("PIPELINE_FILTER_MAX_SALES", 100),
			ListingMonths:       getEnvAsInt("PIPELINE_LISTING_MONTHS", 6),
			DeepExpansion:       getEnvAsBool("PIPELINE_DEEP_EXPANSION", false),
			DeepExpansionItems:  getEnvAsInt("PIPELINE_DEEP_EXPANSION_ITEMS", 300),
			DeepExpansionCats:   getEnvAsInt("PIPELINE_DEEP_EXPANSION_CATEGORIES", 3),
			ChunkSize:           getEnvAsInt("PIPELINE_CHUNK_SIZE", 40),
			ChunkInterval:       getEnvAsFloat("PIPELINE_CHUNK_INTERVAL_SECONDS", 2.0),
			CoverageFraction:    getEnvAsFloat("PIPELINE_COVERAGE_FRACTION", 0.9),
		},
		Export: ExportConfig{
			Dir:    getEnv("EXPORT_DIR", "outputs"),
			Format: getEnv("EXPORT_FORMAT", "csv"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		Collab: CollabConfig{
			ScraperAPIKey: getEnv("SCRAPERAPI_KEY", ""),
		},
	}

	return config, config.Validate()
}

func (c *Config) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		return err
	}
	if c.Relevance.ConcurrencyCeil < c.Relevance.ConcurrencyFloor {
		c.Relevance.ConcurrencyCeil = c.Relevance.ConcurrencyFloor
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(strings.ToLower(value)); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
