package scraper

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"sensortower-scraper/config"
	"sensortower-scraper/models"
	"sensortower-scraper/scraper/appstore"
	"sensortower-scraper/utils"
)

type fakeResolver struct {
	id    string
	err   error
	calls int
}

func (f *fakeResolver) Resolve(ctx context.Context, appName string) (string, error) {
	f.calls++
	return f.id, f.err
}

type fakeDashboard struct {
	fn func(appID, directURL string) *models.AppRecord
}

func (f *fakeDashboard) Extract(ctx context.Context, appID, directURL string) *models.AppRecord {
	return f.fn(appID, directURL)
}

type fakeStorefront struct {
	fn func(target string) *appstore.Listing
}

func (f *fakeStorefront) Extract(ctx context.Context, target string) *appstore.Listing {
	return f.fn(target)
}

type fakeStore struct {
	saved   []*models.AppRecord
	saveErr error
}

func (f *fakeStore) Upsert(r *models.AppRecord) (bool, error) {
	if f.saveErr != nil {
		return false, f.saveErr
	}
	f.saved = append(f.saved, r)
	return true, nil
}

func (f *fakeStore) ListAll() ([]*models.AppRecord, error)     { return f.saved, nil }
func (f *fakeStore) DeleteByID(appID string) (bool, error)     { return false, nil }
func (f *fakeStore) DeleteByName(appName string) (bool, error) { return false, nil }
func (f *fakeStore) Close() error                              { return nil }

func newTestScraper(r identityResolver, d dashboardExtractor, sf storefrontExtractor) *Scraper {
	return &Scraper{
		cfg:        &config.Config{},
		logger:     utils.NewLogger(),
		resolver:   r,
		dashboard:  d,
		storefront: sf,
		limiter:    utils.NewRateLimiter(0),
		tracker:    utils.NewTracker(),
	}
}

func dashboardByID(fields func(r *models.AppRecord)) *fakeDashboard {
	return &fakeDashboard{fn: func(appID, directURL string) *models.AppRecord {
		r := &models.AppRecord{}
		if appID != "" {
			r.AppID = models.Str(appID)
		}
		fields(r)
		return r
	}}
}

func TestScrapeAppDashboardErrorStillEnriches(t *testing.T) {
	dashboard := dashboardByID(func(r *models.AppRecord) {
		r.Error = models.Str("login required")
	})
	storefront := &fakeStorefront{fn: func(target string) *appstore.Listing {
		return &appstore.Listing{
			AverageRating: "4.6",
			RatingCount:   "8.1K",
			ReleaseDate:   "June 15, 2021",
		}
	}}
	s := newTestScraper(&fakeResolver{}, dashboard, storefront)

	record := s.ScrapeApp(context.Background(), Request{AppID: "123"})

	require.Equal(t, "login required", models.Deref(record.Error))
	require.Equal(t, "4.6", models.Deref(record.AverageRating))
	require.Equal(t, "8.1K", models.Deref(record.RatingCount))
	require.Equal(t, "June 15, 2021", models.Deref(record.ReleaseDate))
}

func TestScrapeAppStorefrontNeverOverwritesDashboard(t *testing.T) {
	dashboard := dashboardByID(func(r *models.AppRecord) {
		r.AppName = models.Str("Focus Keeper")
		r.AverageRating = models.Str("4.2")
	})
	storefront := &fakeStorefront{fn: func(target string) *appstore.Listing {
		// Only the rating pair and release date merge in; the empty
		// fields below must not blank out dashboard values.
		return &appstore.Listing{AverageRating: "4.6", AppName: "Wrong Name"}
	}}
	s := newTestScraper(&fakeResolver{}, dashboard, storefront)

	record := s.ScrapeApp(context.Background(), Request{AppID: "123"})

	require.Equal(t, "Focus Keeper", models.Deref(record.AppName))
	// The storefront rating pair replaces the dashboard's.
	require.Equal(t, "4.6", models.Deref(record.AverageRating))
}

func TestScrapeAppNumericNameSkipsResolver(t *testing.T) {
	resolver := &fakeResolver{id: "999"}
	var gotID string
	dashboard := &fakeDashboard{fn: func(appID, directURL string) *models.AppRecord {
		gotID = appID
		return &models.AppRecord{AppID: models.Str(appID)}
	}}
	storefront := &fakeStorefront{fn: func(target string) *appstore.Listing {
		return &appstore.Listing{}
	}}
	s := newTestScraper(resolver, dashboard, storefront)

	s.ScrapeApp(context.Background(), Request{Name: "553834731"})

	require.Zero(t, resolver.calls)
	require.Equal(t, "553834731", gotID)
}

func TestScrapeAppResolverMiss(t *testing.T) {
	s := newTestScraper(&fakeResolver{id: ""},
		dashboardByID(func(*models.AppRecord) {}),
		&fakeStorefront{fn: func(string) *appstore.Listing { return &appstore.Listing{} }})

	record := s.ScrapeApp(context.Background(), Request{Name: "No Such App"})

	require.Contains(t, models.Deref(record.Error), "could not find app ID")
	require.False(t, models.Has(record.AppID))
}

func TestScrapeAndSaveSkipsEmptyRecord(t *testing.T) {
	store := &fakeStore{}
	s := newTestScraper(&fakeResolver{id: ""},
		dashboardByID(func(*models.AppRecord) {}),
		&fakeStorefront{fn: func(string) *appstore.Listing { return &appstore.Listing{} }})

	record, err := s.ScrapeAndSave(context.Background(), Request{Name: "No Such App"}, store)

	require.NoError(t, err)
	require.NotNil(t, record)
	require.Empty(t, store.saved)
}

func TestScrapeAndSaveRecomputesNumerics(t *testing.T) {
	dashboard := dashboardByID(func(r *models.AppRecord) {
		r.AppName = models.Str("Focus Keeper")
		r.DownloadsWorldwide = models.Str("134K")
		r.RevenueWorldwide = models.Str("< $5k")
	})
	storefront := &fakeStorefront{fn: func(string) *appstore.Listing {
		return &appstore.Listing{RatingCount: "8.2K"}
	}}
	store := &fakeStore{}
	s := newTestScraper(&fakeResolver{}, dashboard, storefront)

	record, err := s.ScrapeAndSave(context.Background(), Request{AppID: "123"}, store)

	require.NoError(t, err)
	require.Len(t, store.saved, 1)
	require.NotNil(t, record.DownloadsNumeric)
	require.EqualValues(t, 134000, *record.DownloadsNumeric)
	require.NotNil(t, record.RevenueNumeric)
	require.EqualValues(t, 0, *record.RevenueNumeric)
	require.NotNil(t, record.RatingCountNumeric)
	require.EqualValues(t, 8200, *record.RatingCountNumeric)
}

func TestScrapeBatchSkipsInvalidIDs(t *testing.T) {
	dashboard := dashboardByID(func(r *models.AppRecord) {
		r.AppName = models.Str("Some App")
	})
	storefront := &fakeStorefront{fn: func(string) *appstore.Listing {
		return &appstore.Listing{}
	}}
	store := &fakeStore{}
	s := newTestScraper(&fakeResolver{}, dashboard, storefront)

	results := s.ScrapeBatch(context.Background(), []string{"123", "abc", "456"}, true, store)

	require.Len(t, results, 3)
	require.Equal(t, OutcomeSuccess, results[0].Outcome)
	require.Equal(t, OutcomeSkippedInvalidID, results[1].Outcome)
	require.Equal(t, "abc", results[1].Item)
	require.Equal(t, OutcomeSuccess, results[2].Outcome)
	require.Len(t, store.saved, 2)
}

func TestScrapeBatchDeduplicates(t *testing.T) {
	dashboard := dashboardByID(func(r *models.AppRecord) {
		r.AppName = models.Str("Slack")
	})
	storefront := &fakeStorefront{fn: func(string) *appstore.Listing {
		return &appstore.Listing{}
	}}
	store := &fakeStore{}
	s := newTestScraper(&fakeResolver{id: "618783545"}, dashboard, storefront)

	results := s.ScrapeBatch(context.Background(), []string{"Slack", "Slack"}, false, store)

	require.Len(t, results, 2)
	require.Equal(t, OutcomeSuccess, results[0].Outcome)
	require.Equal(t, OutcomeNoData, results[1].Outcome)
	require.Equal(t, "duplicate of an earlier item", results[1].Err)
	require.Len(t, store.saved, 1)
}

func TestScrapeBatchContinuesPastSaveErrors(t *testing.T) {
	dashboard := dashboardByID(func(r *models.AppRecord) {
		r.AppName = models.Str("Some App")
	})
	storefront := &fakeStorefront{fn: func(string) *appstore.Listing {
		return &appstore.Listing{}
	}}
	store := &fakeStore{saveErr: errors.New("disk full")}
	s := newTestScraper(&fakeResolver{}, dashboard, storefront)

	results := s.ScrapeBatch(context.Background(), []string{"123", "456"}, true, store)

	require.Len(t, results, 2)
	for _, res := range results {
		require.Equal(t, OutcomeSaveError, res.Outcome)
		require.Contains(t, res.Err, "disk full")
	}
}
