package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"sensortower-scraper/config"
	"sensortower-scraper/scraper"
	"sensortower-scraper/scraper/browser"
	"sensortower-scraper/services"
	"sensortower-scraper/storage"
	"sensortower-scraper/utils"
)

func main() {
	var (
		name    = flag.String("name", "", "app name to search for on the App Store")
		appID   = flag.String("id", "", "numeric App Store app ID (skips identity resolution)")
		url     = flag.String("url", "", "direct SensorTower overview URL")
		batch   = flag.String("batch", "", "comma-separated list of app names or IDs")
		batchID = flag.Bool("batch-ids", false, "treat batch items as numeric app IDs")
		report  = flag.Bool("report", false, "print the market insight report after scraping")
	)
	flag.Parse()

	// ================== Bootstrap ====================
	logger := utils.NewLogger()
	cfg := config.Load()

	logger.Info("SensorTower App Scraping System")
	logger.Info("Country: %s | Rate delay: %dms | Retries: %d",
		cfg.Country, cfg.RateLimitDelay, cfg.MaxRetries)

	// =================== Storage Setup ========================================
	store, err := storage.New(cfg, logger)
	if err != nil {
		logger.Error("Cannot open storage backend: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	// =================== Browser Setup ========================================
	session, err := browser.NewSession(cfg, logger)
	if err != nil {
		logger.Error("Cannot launch browser: %v", err)
		os.Exit(1)
	}
	defer session.Close()

	ctx := context.Background()
	sc := scraper.New(cfg, logger, session)

	// =============== Scraping ===================================
	switch {
	case *batch != "":
		items := splitItems(*batch)
		results := sc.ScrapeBatch(ctx, items, *batchID, store)
		printBatchSummary(results)

	case *name != "" || *appID != "" || *url != "":
		req := scraper.Request{Name: *name, AppID: *appID, DirectURL: *url}
		record, err := sc.ScrapeAndSave(ctx, req, store)
		if err != nil {
			logger.Error("Scrape failed: %v", err)
			os.Exit(1)
		}
		logger.Info("Saved %q (app ID %s)",
			deref(record.AppName), deref(record.AppID))

	default:
		flag.Usage()
		os.Exit(2)
	}

	// ==== Insights ============================
	if *report {
		records, err := store.ListAll()
		if err != nil {
			logger.Error("Failed to load stored records: %v", err)
			os.Exit(1)
		}
		insightSvc := services.NewInsightService(logger)
		services.PrintInsightReport(insightSvc.Generate(records))
	}
}

func splitItems(raw string) []string {
	var items []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			items = append(items, p)
		}
	}
	return items
}

func printBatchSummary(results []scraper.ItemResult) {
	counts := map[scraper.Outcome]int{}
	for _, r := range results {
		counts[r.Outcome]++
	}
	fmt.Println()
	fmt.Printf(" Batch complete: %d items\n", len(results))
	fmt.Printf("   success: %d | no data: %d | save errors: %d | skipped: %d\n",
		counts[scraper.OutcomeSuccess], counts[scraper.OutcomeNoData],
		counts[scraper.OutcomeSaveError], counts[scraper.OutcomeSkippedInvalidID])
	for _, r := range results {
		if r.Outcome != scraper.OutcomeSuccess && r.Err != "" {
			fmt.Printf("   %-20s %s: %s\n", r.Item, r.Outcome, r.Err)
		}
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
