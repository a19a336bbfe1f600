// cmd/radar/main.go
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/javajoker/asin-radar/internal/cache"
	"github.com/javajoker/asin-radar/internal/collab"
	"github.com/javajoker/asin-radar/internal/config"
	"github.com/javajoker/asin-radar/internal/database"
	"github.com/javajoker/asin-radar/internal/enrich"
	"github.com/javajoker/asin-radar/internal/export"
	"github.com/javajoker/asin-radar/internal/logging"
	"github.com/javajoker/asin-radar/internal/pipeline"
	"github.com/javajoker/asin-radar/internal/plugin"
	"github.com/javajoker/asin-radar/internal/store"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	batchFile := flag.String("batch", "", "file of keywords, one per line (# comments and blanks skipped)")
	country := flag.String("country", cfg.Pipeline.Country, "marketplace country code")
	maxPages := flag.Int("max-pages", cfg.Pipeline.MaxPages, "max search pages for the initial crawl")
	salesThreshold := flag.Int("sales-threshold", cfg.Pipeline.SalesThreshold, "stop crawling once page sales drop below this")
	topCategories := flag.Int("top-categories", cfg.Pipeline.TopCategories, "categories to expand after analysis")
	filterMaxSales := flag.Int("filter-max-sales", cfg.Pipeline.FilterMaxSales, "sales filter ceiling")
	listingMonths := flag.Int("listing-months", cfg.Pipeline.ListingMonths, "listing-age window in months")
	deepExpansion := flag.Bool("round3", cfg.Pipeline.DeepExpansion, "enable deep category expansion")
	noAIFilter := flag.Bool("no-ai-filter", false, "disable the relevance judge")
	dbPath := flag.String("db-path", cfg.Database.Path, "sqlite database path")
	exportDir := flag.String("export-dir", cfg.Export.Dir, "export output directory")
	cacheDays := flag.Int("cache-days", cfg.Cache.FreshnessDays, "enrichment cache freshness in days")
	cleanCache := flag.Bool("clean-cache", false, "delete stale cache entries and exit")
	cacheStats := flag.Bool("cache-stats", false, "print cache statistics and exit")
	flag.Parse()

	cfg.Pipeline.Country = *country
	cfg.Pipeline.MaxPages = *maxPages
	cfg.Pipeline.SalesThreshold = *salesThreshold
	cfg.Pipeline.TopCategories = *topCategories
	cfg.Pipeline.FilterMaxSales = *filterMaxSales
	cfg.Pipeline.ListingMonths = *listingMonths
	cfg.Pipeline.DeepExpansion = *deepExpansion
	cfg.Database.Path = *dbPath
	cfg.Export.Dir = *exportDir
	cfg.Cache.FreshnessDays = *cacheDays
	if *noAIFilter {
		cfg.Relevance.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration:", err)
	}

	logger := logging.New(cfg.Log)

	// Initialize database
	db, err := database.Initialize(cfg.Database)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer database.Close(db)

	// Run database migrations
	if err := database.RunMigrations(db); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	ttlCache := cache.New(db, logger, cfg.Cache.FreshnessDays)

	if *cacheStats {
		stats, err := ttlCache.GetStats()
		if err != nil {
			log.Fatal("Failed to read cache stats:", err)
		}
		printJSON(stats)
		return
	}
	if *cleanCache {
		deleted, err := ttlCache.Clean()
		if err != nil {
			log.Fatal("Failed to clean cache:", err)
		}
		logger.WithField("deleted", deleted).Info("Cache cleaned")
		return
	}

	keywords, err := collectKeywords(*batchFile, flag.Args())
	if err != nil {
		log.Fatal("Failed to collect keywords:", err)
	}
	if len(keywords) == 0 {
		fmt.Fprintln(os.Stderr, "usage: radar [flags] <keyword> | radar -batch keywords.txt")
		flag.PrintDefaults()
		os.Exit(2)
	}

	registry := plugin.NewRegistry()
	if cfg.Collab.ScraperAPIKey != "" {
		registry.RegisterSearcher(collab.NewScraperAPISearcher(cfg.Collab.ScraperAPIKey, logger))
	} else {
		logger.Warn("SCRAPERAPI_KEY not set, no search collaborator registered")
	}

	recordStore := store.NewRecordStore(db, logger)
	reconciler := enrich.NewReconciler(ttlCache, logger, cfg.Pipeline.ChunkSize, 2)
	exporter := export.NewExporter(cfg.Export.Dir, logger)
	orchestrator := pipeline.NewOrchestrator(
		recordStore, reconciler, registry, exporter, logger,
		cfg.Pipeline, cfg.Relevance, cfg.Export.Format,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Keywords run strictly one after another; the store is
	// single-writer per keyword.
	failed := 0
	for _, keyword := range keywords {
		if ctx.Err() != nil {
			logger.Warn("Interrupted, skipping remaining keywords")
			break
		}

		report, err := orchestrator.Run(ctx, keyword)
		if err != nil {
			logger.WithError(err).WithField("keyword", keyword).Error("Pipeline run failed")
			failed++
		}
		printJSON(report)
	}

	if failed > 0 {
		os.Exit(1)
	}
}

// collectKeywords merges the positional keyword with an optional batch
// file, in file order.
func collectKeywords(batchFile string, args []string) ([]string, error) {
	var keywords []string
	for _, arg := range args {
		if keyword := strings.TrimSpace(arg); keyword != "" {
			keywords = append(keywords, keyword)
		}
	}

	if batchFile == "" {
		return keywords, nil
	}

	file, err := os.Open(batchFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open batch file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		keywords = append(keywords, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}
	return keywords, nil
}

func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Printf("Failed to encode report: %v", err)
		return
	}
	fmt.Println(string(data))
}
