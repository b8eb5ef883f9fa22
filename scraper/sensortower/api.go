package sensortower

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"sensortower-scraper/config"
	"sensortower-scraper/utils"

	"github.com/go-resty/resty/v2"
)

// apiApp mirrors the subset of the internal API response the pipeline uses.
// Pointer fields distinguish "absent" from zero values.
type apiApp struct {
	Name     string `json:"name"`
	Category *struct {
		Name string `json:"name"`
	} `json:"category"`
	Price     *json.Number `json:"price"`
	Developer *struct {
		Name string `json:"name"`
	} `json:"developer"`
	ContentRating    string `json:"content_rating"`
	LastUpdated      string `json:"last_updated"`
	UpdatedAt        string `json:"updated_at"`
	PublisherCountry string `json:"publisher_country"`
	Estimates        *struct {
		Downloads *json.Number `json:"downloads"`
		Revenue   *json.Number `json:"revenue"`
	} `json:"estimates"`
}

// APIClient fetches the dashboard's internal per-app JSON opportunistically.
// The endpoint may 404 or demand auth; every failure is swallowed and the
// caller falls back to page scraping.
type APIClient struct {
	cfg    *config.Config
	logger utils.Logger
	http   *resty.Client
}

// NewAPIClient creates the opportunistic API client.
func NewAPIClient(cfg *config.Config, logger utils.Logger) *APIClient {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetHeader("Accept", "application/json")
	return &APIClient{cfg: cfg, logger: logger, http: client}
}

// Fetch returns the app's API record, or nil when the call fails for any
// reason. Non-200 responses are not errors here.
func (c *APIClient) Fetch(ctx context.Context, appID string) *apiApp {
	url := fmt.Sprintf("%s/api/ios/apps/%s?country=%s", c.cfg.SensorTowerAppURL, appID, c.cfg.Country)

	resp, err := c.http.R().SetContext(ctx).Get(url)
	if err != nil {
		c.logger.Debug("internal API unreachable for %s: %v", appID, err)
		return nil
	}
	if resp.StatusCode() != 200 {
		c.logger.Debug("internal API returned %d for %s", resp.StatusCode(), appID)
		return nil
	}

	var app apiApp
	if err := json.Unmarshal(resp.Body(), &app); err != nil {
		c.logger.Debug("internal API body unparseable for %s: %v", appID, err)
		return nil
	}
	return &app
}
