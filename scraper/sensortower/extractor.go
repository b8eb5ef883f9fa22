// Package sensortower extracts app metadata from the analytics dashboard's
// overview pages. Each field runs a cascade with the internal API and the
// page's structured data as the high-confidence sources and free-text regex
// scans as the last resort; a field written by an earlier source is never
// overwritten by a later one.
package sensortower

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"sensortower-scraper/config"
	"sensortower-scraper/models"
	"sensortower-scraper/scraper/page"
	"sensortower-scraper/utils"

	"github.com/PuerkitoBio/goquery"
)

// Extractor scrapes dashboard overview pages.
type Extractor struct {
	cfg     *config.Config
	logger  utils.Logger
	browser page.Browser
	api     *APIClient
}

// NewExtractor creates a dashboard Extractor driving the given browser.
func NewExtractor(cfg *config.Config, logger utils.Logger, b page.Browser) *Extractor {
	return &Extractor{
		cfg:     cfg,
		logger:  logger,
		browser: b,
		api:     NewAPIClient(cfg, logger),
	}
}

// OverviewURL builds the overview-page URL for a numeric app ID.
func (e *Extractor) OverviewURL(appID string) string {
	return fmt.Sprintf("%s/overview/%s?country=%s", e.cfg.SensorTowerAppURL, appID, e.cfg.Country)
}

var overviewIDRe = regexp.MustCompile(`/overview/(\d+)`)

// Extract scrapes the overview page for appID (or a direct URL). Failures
// are recorded in the record's Error field; fields populated before the
// failure point are preserved.
func (e *Extractor) Extract(ctx context.Context, appID, directURL string) *models.AppRecord {
	r := &models.AppRecord{ScrapedAt: time.Now()}
	if appID != "" {
		r.AppID = models.Str(appID)
	}

	var pageURL string
	switch {
	case directURL != "":
		pageURL = directURL
	case appID != "":
		pageURL = e.OverviewURL(appID)
	default:
		r.Error = models.Str("no app ID or direct URL provided")
		return r
	}

	if err := e.browser.Navigate(ctx, pageURL); err != nil {
		r.Error = models.Str(fmt.Sprintf("error loading %s: %v", pageURL, err))
		return r
	}

	// Auth gate: a redirect to the login surface is fatal for this call.
	currentURL, _ := e.browser.URL(ctx)
	html, _ := e.browser.HTML(ctx)
	if isAuthRedirect(currentURL, html) {
		r.Error = models.Str(fmt.Sprintf("login required to access %s", pageURL))
		return r
	}

	// Highest-confidence source first: the internal API, best effort.
	if appID != "" {
		if app := e.api.Fetch(ctx, appID); app != nil {
			applyAPI(r, app)
		}
	}

	// Structured data in the initial HTML is available before hydration.
	ApplyStructuredData(html, r)

	// Let the client-side app render, then take the snapshot the weaker
	// cascade stages work from.
	e.browser.WaitReady(ctx, 500, 15*time.Second)
	snap, err := page.Capture(ctx, e.browser)
	if err != nil {
		r.Error = models.Str(err.Error())
		return r
	}

	if m := overviewIDRe.FindStringSubmatch(snap.URL); m != nil {
		r.AppID = models.Str(m[1])
	}

	populateRecord(snap, r, e.cfg.SensorTowerURL)
	return r
}

func isAuthRedirect(currentURL, html string) bool {
	lowerURL := strings.ToLower(currentURL)
	if strings.Contains(lowerURL, "login") || strings.Contains(lowerURL, "sign-in") {
		return true
	}
	head := strings.ToLower(html)
	if len(head) > 5000 {
		head = head[:5000]
	}
	return strings.Contains(head, "login")
}

// setPriceClass classifies a structured price numerically, so "0", "0.0" and
// "0.00" all read as free. Unparseable prices set nothing.
func setPriceClass(r *models.AppRecord, price json.Number) {
	v, err := price.Float64()
	if err != nil {
		return
	}
	if v == 0 {
		set(&r.Price, "Free")
	} else {
		set(&r.Price, "Paid")
	}
}

// set writes v into an absent optional field; present fields keep their
// higher-priority value.
func set(p **string, v string) {
	v = strings.TrimSpace(v)
	if v != "" && !models.Has(*p) {
		*p = models.Str(v)
	}
}

func applyAPI(r *models.AppRecord, app *apiApp) {
	set(&r.AppName, app.Name)
	if app.Category != nil {
		set(&r.Categories, app.Category.Name)
	}
	if app.Price != nil {
		setPriceClass(r, *app.Price)
	}
	if app.Developer != nil {
		set(&r.DeveloperName, app.Developer.Name)
	}
	set(&r.ContentRating, app.ContentRating)
	if app.LastUpdated != "" {
		set(&r.LastUpdated, app.LastUpdated)
	} else {
		set(&r.LastUpdated, app.UpdatedAt)
	}
	set(&r.PublisherCountry, app.PublisherCountry)
	if app.Estimates != nil {
		if app.Estimates.Downloads != nil {
			set(&r.DownloadsWorldwide, app.Estimates.Downloads.String())
		}
		if app.Estimates.Revenue != nil {
			set(&r.RevenueWorldwide, app.Estimates.Revenue.String())
		}
	}
}

// jsonLD is the subset of the page's linked-data block the pipeline reads.
type jsonLD struct {
	Name                string `json:"name"`
	ApplicationCategory string `json:"applicationCategory"`
	Offers              *struct {
		Price json.Number `json:"price"`
	} `json:"offers"`
	DateModified string `json:"dateModified"`
}

var metaDownloadsRe = regexp.MustCompile(`(?i)(\d+[KMB]?)\s*downloads?`)

// ApplyStructuredData reads the JSON-LD block and meta tags out of raw HTML
// into absent fields of r.
func ApplyStructuredData(html string, r *models.AppRecord) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return
	}

	if raw := doc.Find(`script[type="application/ld+json"]`).First().Text(); raw != "" {
		var ld jsonLD
		if json.Unmarshal([]byte(raw), &ld) == nil {
			set(&r.AppName, ld.Name)
			set(&r.Categories, ld.ApplicationCategory)
			if ld.Offers != nil {
				setPriceClass(r, ld.Offers.Price)
			}
			if ld.DateModified != "" {
				date := ld.DateModified
				if i := strings.Index(date, "T"); i != -1 {
					date = date[:i]
				}
				set(&r.LastUpdated, strings.ReplaceAll(date, "-", "/"))
			}
		}
	}

	if title, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
		if parts := strings.Split(title, " - "); len(parts) > 0 {
			set(&r.AppName, parts[0])
		}
	}

	desc, ok := doc.Find(`meta[property="og:description"]`).First().Attr("content")
	if !ok {
		desc, _ = doc.Find(`meta[name="description"]`).First().Attr("content")
	}
	if desc != "" && !models.Has(r.DownloadsWorldwide) {
		if m := metaDownloadsRe.FindStringSubmatch(desc); m != nil {
			set(&r.DownloadsWorldwide, m[1])
		}
	}
}

var (
	categoryRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Categories[:\s]+([^\n\r]+)`),
		regexp.MustCompile(`(?i)Category[:\s]+([^\n\r]+)`),
		regexp.MustCompile(`(?i)Genre[:\s]+([^\n\r]+)`),
	}
	commonCategories = []string{
		"Productivity", "Education", "Games", "Social", "Entertainment",
		"Photo", "Video", "Health & Fitness", "Business", "Lifestyle", "Utilities",
	}

	freeRe     = regexp.MustCompile(`(?i)\bFree\b`)
	paidRe     = regexp.MustCompile(`\$\d+`)
	topCtryRe  = regexp.MustCompile(`(?i)Top Countries[:\s]+([^\n\r]+)`)
	devRe      = regexp.MustCompile(`(?i)(?:Developer|Publisher|By|Made by)[:\s]+([^\n\r]+)`)
	cRatingRe  = regexp.MustCompile(`(?i)(?:Content Rating|Age Rating|Rating)[:\s]*(\d+\+)`)
	bareAgeRe  = regexp.MustCompile(`\b(\d{1,2})\+`)
	updatedRe  = regexp.MustCompile(`(?i)(?:Last Updated|Updated|Release Date)[:\s]+(\d{4}[/-]\d{1,2}[/-]\d{1,2})`)
	bareDateRe = regexp.MustCompile(`\d{4}[/-]\d{1,2}[/-]\d{1,2}`)
	pubCtryRe  = regexp.MustCompile(`(?i)Publisher Country[:\s]+([^\n\r]+)`)
	rankingRe  = regexp.MustCompile(`#(\d+)`)
	rankTextRe = regexp.MustCompile(`(?i)Category Ranking[:\s]*#?(\d+)`)

	downloadsLineRe = regexp.MustCompile(`(?i)Downloads[:\s]+([^\n\r]+?)(?:\n|Worldwide|Last Month|$)`)
	downloadsNumRe  = regexp.MustCompile(`(?i)(\d+[KMB]?)\s*(?:downloads?|installs?)`)
	revenueLineRe   = regexp.MustCompile(`(?i)Revenue[:\s]+([^\n\r]+?)(?:\n|Worldwide|Last Month|$)`)
	revenueNumRe    = regexp.MustCompile(`(?i)(\$?\d+[KMB]?)\s*(?:revenue|earnings)`)

	knownCountries = []string{
		"Taiwan", "Philippines", "Pakistan", "United States", "China",
		"Japan", "South Korea",
	}

	// Branding and marketing lines never name the app.
	nameExclusions = []string{"sensortower", "track performance", "sign up", "help"}
)

// populateRecord runs the DOM and free-text cascade stages over the
// snapshot, filling only fields the stronger sources left absent. Pure.
func populateRecord(snap page.Snapshot, r *models.AppRecord, siteBaseURL string) {
	doc, docErr := goquery.NewDocumentFromReader(strings.NewReader(snap.HTML))
	haveDoc := docErr == nil

	// Scope the text scans to the main content region when the DOM still
	// has one, so navigation chrome does not leak into fields.
	mainText := snap.Text
	if haveDoc {
		if t := strings.TrimSpace(doc.Find("#react-root").Text()); len(t) > 100 {
			mainText = t
		}
	}

	if !models.Has(r.AppName) {
		set(&r.AppName, extractName(snap, doc, haveDoc, mainText))
	}

	if !models.Has(r.Categories) {
		for _, re := range categoryRes {
			if m := re.FindStringSubmatch(mainText); m != nil {
				cat := strings.TrimSpace(strings.SplitN(strings.SplitN(m[1], "\n", 2)[0], "|", 2)[0])
				if cat != "" && len(cat) < 100 && !strings.Contains(strings.ToLower(cat), "ranking") {
					set(&r.Categories, cat)
					break
				}
			}
		}
	}
	if !models.Has(r.Categories) {
		lower := strings.ToLower(snap.Text)
		for _, cat := range commonCategories {
			if strings.Contains(lower, strings.ToLower(cat)) {
				set(&r.Categories, cat)
				break
			}
		}
	}

	if !models.Has(r.Price) {
		if freeRe.MatchString(snap.Text) || strings.Contains(snap.Text, "$0") {
			set(&r.Price, "Free")
		} else if paidRe.MatchString(snap.Text) {
			set(&r.Price, "Paid")
		}
	}

	extractTopCountries(snap.Text, r)
	extractDeveloper(snap, doc, haveDoc, mainText, r, siteBaseURL)

	if !models.Has(r.SupportURL) && haveDoc {
		if href := linkByHref(doc, "support", "help"); href != "" {
			if !strings.HasPrefix(href, "http") {
				href = "https://" + strings.TrimPrefix(href, "/")
			}
			set(&r.SupportURL, href)
		}
	}

	if !models.Has(r.ContentRating) {
		if m := cRatingRe.FindStringSubmatch(snap.Text); m != nil {
			set(&r.ContentRating, m[1])
		} else if m := bareAgeRe.FindStringSubmatch(snap.Text); m != nil {
			set(&r.ContentRating, m[1]+"+")
		}
	}

	extractEstimates(snap.Text, doc, haveDoc, r)

	if !models.Has(r.LastUpdated) {
		if m := updatedRe.FindStringSubmatch(snap.Text); m != nil {
			set(&r.LastUpdated, m[1])
		} else if m := bareDateRe.FindString(snap.Text); m != "" {
			set(&r.LastUpdated, m)
		}
	}

	extractPublisherCountry(snap.Text, r)

	if len(r.InAppPurchases) == 0 && haveDoc {
		r.InAppPurchases = extractIAPTable(doc)
	}

	if !models.Has(r.CategoryRanking) {
		set(&r.CategoryRanking, extractRanking(doc, haveDoc, mainText))
	}
}

// extractName avoids branding keywords and length-bounds candidates so a
// marketing paragraph never becomes the app name.
func extractName(snap page.Snapshot, doc *goquery.Document, haveDoc bool, mainText string) string {
	if haveDoc {
		h1 := strings.TrimSpace(doc.Find("#react-root h1").First().Text())
		if nameCandidateOK(h1) {
			return h1
		}
	}

	if snap.Title != "" {
		clean := strings.NewReplacer("SensorTower", "", "|", "-", "Overview", "").Replace(snap.Title)
		for _, part := range strings.Split(clean, "-") {
			part = strings.TrimSpace(part)
			if part != "" && !strings.EqualFold(part, "overview") {
				return part
			}
		}
	}

	for i, line := range strings.Split(mainText, "\n") {
		if i >= 10 {
			break
		}
		line = strings.TrimSpace(line)
		if len(line) > 2 && nameCandidateOK(line) && !strings.HasPrefix(strings.ToLower(line), "http") {
			return line
		}
	}
	return ""
}

func nameCandidateOK(s string) bool {
	if s == "" || len(s) >= 200 {
		return false
	}
	lower := strings.ToLower(s)
	for _, kw := range nameExclusions {
		if strings.Contains(lower, kw) {
			return false
		}
	}
	return true
}

func extractTopCountries(text string, r *models.AppRecord) {
	// "/ Regions" is a stray label fragment, not a country list.
	if models.Has(r.TopCountries) && strings.Contains(strings.ToLower(*r.TopCountries), "/ regions") {
		r.TopCountries = nil
	}
	if models.Has(r.TopCountries) {
		return
	}

	if m := topCtryRe.FindStringSubmatch(text); m != nil {
		countries := strings.TrimSpace(m[1])
		if countries != "" && len(countries) < 200 && !strings.Contains(countries, "/ Regions") {
			set(&r.TopCountries, countries)
			return
		}
	}

	// Scan the section following the label for known country names.
	lower := strings.ToLower(text)
	idx := strings.Index(lower, "top countries")
	if idx == -1 {
		return
	}
	section := lower[idx:]
	if len(section) > 500 {
		section = section[:500]
	}
	var found []string
	for _, country := range knownCountries {
		if strings.Contains(section, strings.ToLower(country)) {
			found = append(found, country)
		}
		if len(found) >= 5 {
			break
		}
	}
	if len(found) > 0 {
		set(&r.TopCountries, strings.Join(found, ", "))
	}
}

// developerCandidateOK rejects known false positives: "Website" is a link
// label, "Country" leaks from the adjacent publisher-country label.
func developerCandidateOK(s string) bool {
	if s == "" || len(s) >= 200 {
		return false
	}
	lower := strings.ToLower(s)
	return lower != "website" &&
		!strings.Contains(lower, "country") &&
		!strings.Contains(lower, "sensortower")
}

func extractDeveloper(snap page.Snapshot, doc *goquery.Document, haveDoc bool, mainText string, r *models.AppRecord, siteBaseURL string) {
	if models.Has(r.DeveloperName) && !developerCandidateOK(*r.DeveloperName) {
		r.DeveloperName = nil
	}

	if !models.Has(r.DeveloperName) && haveDoc {
		doc.Find(`#react-root a[href*="publisher"], #react-root a[href*="developer"]`).
			EachWithBreak(func(_ int, sel *goquery.Selection) bool {
				text := strings.TrimSpace(sel.Text())
				if developerCandidateOK(text) {
					set(&r.DeveloperName, text)
					return false
				}
				return true
			})
	}

	if !models.Has(r.DeveloperName) {
		if m := devRe.FindStringSubmatch(mainText); m != nil {
			dev := strings.TrimSpace(strings.SplitN(strings.SplitN(m[1], "\n", 2)[0], "|", 2)[0])
			if developerCandidateOK(dev) {
				set(&r.DeveloperName, dev)
			}
		}
	}

	if !models.Has(r.DeveloperWebsite) && haveDoc {
		if href := linkByHref(doc, "developer", "publisher"); href != "" {
			if !strings.HasPrefix(href, "http") {
				href = siteBaseURL + href
			}
			set(&r.DeveloperWebsite, href)
		}
	}
}

func linkByHref(doc *goquery.Document, keywords ...string) string {
	var found string
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		lower := strings.ToLower(href)
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				found = href
				return false
			}
		}
		return true
	})
	return found
}

func extractEstimates(text string, doc *goquery.Document, haveDoc bool, r *models.AppRecord) {
	if haveDoc {
		if !models.Has(r.DownloadsWorldwide) {
			v := strings.TrimSpace(doc.Find(`span[aria-labelledby="app-overview-unified-kpi-downloads"]`).First().Text())
			set(&r.DownloadsWorldwide, v)
		}
		if !models.Has(r.RevenueWorldwide) {
			v := strings.TrimSpace(doc.Find(`span[aria-labelledby="app-overview-unified-kpi-revenue"]`).First().Text())
			set(&r.RevenueWorldwide, strings.TrimPrefix(v, "$"))
		}
	}

	if !models.Has(r.DownloadsWorldwide) {
		if m := downloadsLineRe.FindStringSubmatch(text); m != nil {
			set(&r.DownloadsWorldwide, m[1])
		} else if m := downloadsNumRe.FindStringSubmatch(text); m != nil {
			set(&r.DownloadsWorldwide, m[1])
		}
	}
	if !models.Has(r.RevenueWorldwide) {
		if m := revenueLineRe.FindStringSubmatch(text); m != nil {
			set(&r.RevenueWorldwide, m[1])
		} else if m := revenueNumRe.FindStringSubmatch(text); m != nil {
			set(&r.RevenueWorldwide, m[1])
		}
	}
}

func extractPublisherCountry(text string, r *models.AppRecord) {
	if models.Has(r.PublisherCountry) {
		return
	}
	if m := pubCtryRe.FindStringSubmatch(text); m != nil {
		country := strings.TrimSpace(strings.SplitN(strings.SplitN(m[1], "\n", 2)[0], "|", 2)[0])
		set(&r.PublisherCountry, country)
		return
	}

	lower := strings.ToLower(text)
	pubIdx := strings.Index(lower, "publisher")
	if pubIdx == -1 {
		return
	}
	for _, country := range knownCountries {
		ctryIdx := strings.Index(lower, strings.ToLower(country))
		if ctryIdx != -1 && abs(ctryIdx-pubIdx) < 200 {
			set(&r.PublisherCountry, country)
			return
		}
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

var iapHeaderCells = map[string]bool{"title": true, "duration": true, "price": true}

// extractIAPTable reads the tabular IAP listing: rows of title/duration/price
// cells, header rows rejected by their literal column names.
func extractIAPTable(doc *goquery.Document) []models.InAppPurchase {
	var iaps []models.InAppPurchase

	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		tableText := strings.ToLower(table.Text())
		relevant := strings.Contains(tableText, "in-app purchase") ||
			strings.Contains(tableText, "iap") ||
			(strings.Contains(tableText, "title") && strings.Contains(tableText, "price"))
		if !relevant {
			return true
		}

		table.Find("tr").Each(func(i int, row *goquery.Selection) {
			if i == 0 {
				return // header
			}
			cells := row.Find("td, th")
			if cells.Length() < 2 {
				return
			}
			title := strings.TrimSpace(cells.Eq(0).Text())
			duration := strings.TrimSpace(cells.Eq(1).Text())
			price := ""
			if cells.Length() > 2 {
				price = strings.TrimSpace(cells.Eq(2).Text())
			}
			if title == "" || iapHeaderCells[strings.ToLower(title)] {
				return
			}
			iaps = append(iaps, models.InAppPurchase{Title: title, Duration: duration, Price: price})
		})
		return len(iaps) == 0
	})
	return iaps
}

// extractRanking returns the ranking ordinal, with a parenthetical category
// suffix when the KPI block names one. The suffix is advisory metadata.
func extractRanking(doc *goquery.Document, haveDoc bool, mainText string) string {
	if haveDoc {
		span := doc.Find(`span[aria-labelledby="app-overview-unified-kpi-category-ranking"]`).First()
		if span.Length() > 0 {
			if m := rankingRe.FindStringSubmatch(span.Text()); m != nil {
				if category := strings.TrimSpace(span.Find("p").First().Text()); category != "" {
					return fmt.Sprintf("%s (%s)", m[1], category)
				}
				return m[1]
			}
		}
	}
	if m := rankTextRe.FindStringSubmatch(mainText); m != nil {
		return m[1]
	}
	return ""
}
