// Command backfill-ratings revisits stored records missing a rating pair
// and fills it in from the store detail page.
package main

import (
	"context"
	"fmt"
	"os"

	"sensortower-scraper/config"
	"sensortower-scraper/models"
	"sensortower-scraper/normalize"
	"sensortower-scraper/scraper/appstore"
	"sensortower-scraper/scraper/browser"
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

	var pending []*models.AppRecord
	for _, r := range records {
		if !models.Has(r.AverageRating) || !models.Has(r.RatingCount) {
			pending = append(pending, r)
		}
	}
	logger.Info("Records missing ratings: %d of %d", len(pending), len(records))
	if len(pending) == 0 {
		return
	}

	session, err := browser.NewSession(cfg, logger)
	if err != nil {
		logger.Error("Cannot launch browser: %v", err)
		os.Exit(1)
	}
	defer session.Close()

	ctx := context.Background()
	extractor := appstore.NewExtractor(cfg, logger, session)
	limiter := utils.NewRateLimiter(cfg.RateLimitDelay)

	var updated, skipped, failed int
	for _, r := range pending {
		appID := models.Deref(r.AppID)
		if appID == "" {
			skipped++
			continue
		}
		limiter.Wait()

		listing := extractor.Extract(ctx, appID)
		if listing.Err != "" || (listing.AverageRating == "" && listing.RatingCount == "") {
			logger.Warn("No rating found for %q (id %s)", models.Deref(r.AppName), appID)
			failed++
			continue
		}

		if listing.AverageRating != "" {
			r.AverageRating = models.Str(listing.AverageRating)
		}
		if listing.RatingCount != "" {
			r.RatingCount = models.Str(listing.RatingCount)
		}
		normalize.Apply(r)

		if err := storage.UpsertWithRetry(ctx, store, r, cfg.MaxRetries, logger); err != nil {
			logger.Error("Failed to save %q: %v", models.Deref(r.AppName), err)
			failed++
			continue
		}
		logger.Info("Updated %q: rating %s (%s ratings)",
			models.Deref(r.AppName), listing.AverageRating, listing.RatingCount)
		updated++
	}

	fmt.Printf("\n Backfill complete: %d updated, %d skipped (no app ID), %d failed\n",
		updated, skipped, failed)
}
