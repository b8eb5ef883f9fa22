// Command fix-estimates recomputes the numeric download, revenue and rating
// estimates for every stored record from its raw text values and saves any
// record whose stored numbers drifted. In particular it repairs rows where a
// "< 5K" style figure was stored as 5000 instead of 0.
package main

import (
	"context"
	"fmt"
	"os"

	"sensortower-scraper/config"
	"sensortower-scraper/models"
	"sensortower-scraper/normalize"
	"sensortower-scraper/storage"
	"sensortower-scraper/utils"
)

func main() {
	logger := utils.NewLogger()
	cfg := config.Load()

	store, err := storage.New(cfg, logger)
	if err != nil {
		logger.Error("Cannot open storage backend: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	records, err := store.ListAll()
	if err != nil {
		logger.Error("Failed to load stored records: %v", err)
		os.Exit(1)
	}
	logger.Info("Checking %d stored records", len(records))

	ctx := context.Background()
	var fixed, failed int
	for _, r := range records {
		beforeDownloads := cloneInt(r.DownloadsNumeric)
		beforeRevenue := cloneInt(r.RevenueNumeric)
		beforeRatings := cloneInt(r.RatingCountNumeric)
		beforeAvg := cloneFloat(r.AverageRatingNumeric)

		normalize.Apply(r)

		if intEq(beforeDownloads, r.DownloadsNumeric) &&
			intEq(beforeRevenue, r.RevenueNumeric) &&
			intEq(beforeRatings, r.RatingCountNumeric) &&
			floatEq(beforeAvg, r.AverageRatingNumeric) {
			continue
		}

		if err := storage.UpsertWithRetry(ctx, store, r, cfg.MaxRetries, logger); err != nil {
			logger.Error("Failed to save %q: %v", models.Deref(r.AppName), err)
			failed++
			continue
		}
		logger.Info("Fixed %q: downloads %v -> %v, revenue %v -> %v",
			models.Deref(r.AppName),
			intStr(beforeDownloads), intStr(r.DownloadsNumeric),
			intStr(beforeRevenue), intStr(r.RevenueNumeric))
		fixed++
	}

	fmt.Printf("\n Estimate fix complete: %d fixed, %d failed, %d unchanged\n",
		fixed, failed, len(records)-fixed-failed)
}

func cloneInt(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func intEq(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func floatEq(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func intStr(p *int64) string {
	if p == nil {
		return "none"
	}
	return fmt.Sprintf("%d", *p)
}
