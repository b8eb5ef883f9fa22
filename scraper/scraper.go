// Package scraper composes identity resolution, dashboard extraction and
// storefront enrichment into single-app and batch pipelines.
package scraper

import (
	"context"
	"fmt"
	"strings"

	"sensortower-scraper/config"
	"sensortower-scraper/models"
	"sensortower-scraper/normalize"
	"sensortower-scraper/scraper/appstore"
	"sensortower-scraper/scraper/page"
	"sensortower-scraper/scraper/sensortower"
	"sensortower-scraper/storage"
	"sensortower-scraper/utils"
)

// Request identifies one app to scrape. Exactly one of Name, AppID or
// DirectURL is required; AppID and DirectURL skip identity resolution.
type Request struct {
	Name      string
	AppID     string
	DirectURL string
}

// Outcome tags one batch item's result.
type Outcome string

const (
	OutcomeSuccess          Outcome = "success"
	OutcomeNoData           Outcome = "no_data"
	OutcomeSaveError        Outcome = "save_error"
	OutcomeSkippedInvalidID Outcome = "skipped_invalid_id"
)

// ItemResult is one batch item's outcome.
type ItemResult struct {
	Item    string
	Outcome Outcome
	AppName string
	AppID   string
	Err     string
}

type identityResolver interface {
	Resolve(ctx context.Context, appName string) (string, error)
}

type dashboardExtractor interface {
	Extract(ctx context.Context, appID, directURL string) *models.AppRecord
}

type storefrontExtractor interface {
	Extract(ctx context.Context, target string) *appstore.Listing
}

// Scraper runs the scraping pipeline. One logical flow of control per
// request; batch mode is strictly sequential with a polite inter-item delay.
type Scraper struct {
	cfg        *config.Config
	logger     utils.Logger
	resolver   identityResolver
	dashboard  dashboardExtractor
	storefront storefrontExtractor
	limiter    *utils.RateLimiter
	tracker    *utils.Tracker
}

// New wires a Scraper onto the given browser.
func New(cfg *config.Config, logger utils.Logger, b page.Browser) *Scraper {
	return &Scraper{
		cfg:        cfg,
		logger:     logger,
		resolver:   appstore.NewResolver(cfg, logger, b),
		dashboard:  sensortower.NewExtractor(cfg, logger, b),
		storefront: appstore.NewExtractor(cfg, logger, b),
		limiter:    utils.NewRateLimiter(cfg.RateLimitDelay),
		tracker:    utils.NewTracker(),
	}
}

// ScrapeApp runs the three pipeline stages for one request. A dashboard
// failure does not block storefront enrichment: the store page may be
// reachable even when the dashboard is not.
func (s *Scraper) ScrapeApp(ctx context.Context, req Request) *models.AppRecord {
	// Stage 1: identify.
	appID := req.AppID
	if appID == "" && req.DirectURL == "" {
		if isDigits(req.Name) {
			appID = req.Name
		} else {
			id, err := s.resolver.Resolve(ctx, req.Name)
			if err != nil {
				r := &models.AppRecord{}
				r.Error = models.Str(fmt.Sprintf("app store search failed for %q: %v", req.Name, err))
				return r
			}
			if id == "" {
				r := &models.AppRecord{}
				r.Error = models.Str(fmt.Sprintf("could not find app ID for %q on the app store", req.Name))
				return r
			}
			appID = id
		}
	}

	// Stage 2: dashboard extraction.
	record := s.dashboard.Extract(ctx, appID, req.DirectURL)
	if record.Error != nil {
		s.logger.Warn("Dashboard extraction degraded: %s", *record.Error)
	}

	// Stage 3: storefront enrichment, keyed by the same identifier. Only
	// the rating pair and the release date merge in; dashboard-sourced
	// fields are never overwritten by storefront values.
	enrichID := models.Deref(record.AppID)
	if enrichID == "" {
		enrichID = appID
	}
	if enrichID != "" {
		s.limiter.Wait()
		listing := s.storefront.Extract(ctx, enrichID)
		if listing.Err != "" {
			s.logger.Warn("Store rating enrichment failed: %s", listing.Err)
		}
		if listing.AverageRating != "" {
			record.AverageRating = models.Str(listing.AverageRating)
		}
		if listing.RatingCount != "" {
			record.RatingCount = models.Str(listing.RatingCount)
		}
		if listing.ReleaseDate != "" {
			record.ReleaseDate = models.Str(listing.ReleaseDate)
		}
	}

	return record
}

// ScrapeAndSave scrapes one request and upserts the result with freshly
// recomputed derived numerics. The scraped record is returned even when the
// save fails so the caller can retry.
func (s *Scraper) ScrapeAndSave(ctx context.Context, req Request, store storage.Store) (*models.AppRecord, error) {
	record := s.ScrapeApp(ctx, req)
	if !models.Has(record.AppName) && !models.Has(record.AppID) {
		return record, nil
	}

	normalize.Apply(record)
	ok, err := store.Upsert(record)
	if err != nil {
		return record, fmt.Errorf("save failed: %w", err)
	}
	if !ok {
		return record, fmt.Errorf("save could not be verified")
	}
	return record, nil
}

// ScrapeBatch fans the pipeline out over items, one at a time, continuing
// past individual failures. When byID is true each item must be a numeric
// identifier; anything else is skipped with a distinct outcome.
func (s *Scraper) ScrapeBatch(ctx context.Context, items []string, byID bool, store storage.Store) []ItemResult {
	var results []ItemResult

	for i, raw := range items {
		item := strings.TrimSpace(raw)
		if item == "" {
			continue
		}
		if i > 0 {
			s.limiter.Wait()
		}
		s.logger.Info("Processing %d/%d: %s", i+1, len(items), item)

		if byID && !isDigits(item) {
			s.logger.Warn("Skipping %q: not a valid app ID", item)
			results = append(results, ItemResult{
				Item: item, Outcome: OutcomeSkippedInvalidID,
				Err: "not a valid app ID",
			})
			continue
		}
		if !s.tracker.Add(item) {
			results = append(results, ItemResult{
				Item: item, Outcome: OutcomeNoData,
				Err: "duplicate of an earlier item",
			})
			continue
		}

		req := Request{Name: item}
		if byID {
			req = Request{AppID: item}
		}

		record, err := s.ScrapeAndSave(ctx, req, store)
		res := ItemResult{
			Item:    item,
			AppName: models.Deref(record.AppName),
			AppID:   models.Deref(record.AppID),
		}
		switch {
		case err != nil:
			res.Outcome = OutcomeSaveError
			res.Err = err.Error()
		case !models.Has(record.AppName) && !models.Has(record.AppID):
			res.Outcome = OutcomeNoData
			res.Err = models.Deref(record.Error)
			if res.Err == "" {
				res.Err = "no app data found"
			}
		default:
			res.Outcome = OutcomeSuccess
		}
		results = append(results, res)
	}

	return results
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
