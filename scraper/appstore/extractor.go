package appstore

import (
	"context"
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

// Listing is the structured result of one store detail page. Empty string
// means the field was not found; Err marks the whole listing as failed.
type Listing struct {
	AppName          string
	AppID            string
	RatingCount      string
	AverageRating    string
	AgeRating        string
	Category         string
	DeveloperName    string
	Languages        string
	AppSize          string
	Price            string
	Description      string
	ReleaseDate      string
	Version          string
	Compatibility    string
	Copyright        string
	SupportURL       string
	DeveloperWebsite string
	InAppPurchases   []models.InAppPurchase
	Err              string
}

// Extractor scrapes store detail pages.
type Extractor struct {
	cfg     *config.Config
	logger  utils.Logger
	browser page.Browser
}

// NewExtractor creates a new store-page Extractor driving the given browser.
func NewExtractor(cfg *config.Config, logger utils.Logger, b page.Browser) *Extractor {
	return &Extractor{cfg: cfg, logger: logger, browser: b}
}

// DetailURL builds the detail-page URL for a numeric app ID.
func (e *Extractor) DetailURL(appID string) string {
	return fmt.Sprintf("%s/%s/app/id%s", e.cfg.AppStoreURL, e.cfg.Locale, appID)
}

// Extract renders the detail page for target (a numeric ID or a full URL)
// and runs the per-field cascades. Failures never escape: they land in the
// listing's Err field with whatever was extracted up to that point.
func (e *Extractor) Extract(ctx context.Context, target string) *Listing {
	listing := &Listing{}

	pageURL := target
	if isDigits(target) {
		pageURL = e.DetailURL(target)
	}
	if m := appIDRe.FindStringSubmatch(pageURL); m != nil {
		listing.AppID = m[1]
	}

	if err := e.browser.Navigate(ctx, pageURL); err != nil {
		listing.Err = err.Error()
		return listing
	}
	e.browser.WaitReady(ctx, 500, 10*time.Second)

	snap, err := page.Capture(ctx, e.browser)
	if err != nil {
		listing.Err = err.Error()
		return listing
	}

	populateListing(snap, listing, e.cfg.AppStoreURL)

	if listing.RatingCount != "" || listing.AverageRating != "" {
		e.logger.Info("Store ratings extracted: %s (%s ratings)",
			orNA(listing.AverageRating), orNA(listing.RatingCount))
	} else {
		e.logger.Warn("No ratings found on store page %s", pageURL)
	}
	return listing
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

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

var (
	// rating pair, count first: "8.1K Ratings 4.6"
	ratingPairRe = regexp.MustCompile(`(?i)(\d+\.?\d*[KMB]?)\s*Ratings?\s+(\d+\.?\d*)`)
	// rating pair, average first: "4.6 out of 5  8.1K Ratings"
	outOfPairRe = regexp.MustCompile(`(?i)(\d+\.?\d*)\s+out of 5\s+(\d+\.?\d*[KMB]?)\s*Ratings?`)
	outOfRe     = regexp.MustCompile(`(?i)(\d+\.?\d*)\s+out of 5`)
	countRe     = regexp.MustCompile(`(?i)(\d+\.?\d*[KMB]?)\s*Ratings?`)

	agesRe   = regexp.MustCompile(`(?i)Ages\s+(\d+\+)`)
	ageAltRe = regexp.MustCompile(`(?i)(\d+\+)\s+Years?`)

	categoryLineRe  = regexp.MustCompile(`(?i)Category\s+([^\n\r]+)`)
	developerLineRe = regexp.MustCompile(`(?i)Developer\s+([^\n\r]+)`)
	languageLineRe  = regexp.MustCompile(`(?i)Language\s+([^\n\r]+?)(?:\n|Information|Supports|$)`)
	sizeLineRe      = regexp.MustCompile(`(?i)Size\s+([^\n\r]+)`)
	requiresRe      = regexp.MustCompile(`(?i)Requires\s+([^\n\r]+)`)
	copyrightRe     = regexp.MustCompile(`©\s+([^\n\r]+)`)
	versionRe       = regexp.MustCompile(`(?i)Version[:\s]+([\d.]+)`)

	freeWordRe = regexp.MustCompile(`(?i)\bFree\b`)
	priceAmtRe = regexp.MustCompile(`\$(\d+\.?\d*)`)
	iapPriceRe = regexp.MustCompile(`\$[\d,]+(?:\.\d{2})?`)

	releaseDateRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Released[:\s]+([A-Za-z]+\s+\d{1,2},?\s+\d{4})`),
		regexp.MustCompile(`(?i)Release\s+Date[:\s]+([A-Za-z]+\s+\d{1,2},?\s+\d{4})`),
		regexp.MustCompile(`(?i)First\s+Available[:\s]+([A-Za-z]+\s+\d{1,2},?\s+\d{4})`),
		regexp.MustCompile(`(?i)Released[:\s]+(\d{1,2}[/-]\d{1,2}[/-]\d{4})`),
	}

	whitespaceRe = regexp.MustCompile(`\s+`)
)

// populateListing runs every field cascade over the snapshot. Pure: it only
// reads snap, so tests feed it fixtures.
func populateListing(snap page.Snapshot, l *Listing, baseURL string) {
	doc, docErr := goquery.NewDocumentFromReader(strings.NewReader(snap.HTML))

	if l.AppName == "" && snap.Title != "" {
		// Title format: "App Name - App Store - ..."
		if parts := strings.Split(snap.Title, " - "); len(parts) > 0 {
			l.AppName = strings.TrimSpace(parts[0])
		}
	}
	if l.AppName == "" && docErr == nil {
		l.AppName = strings.TrimSpace(doc.Find("h1").First().Text())
	}

	avg, count := extractRatingPair(snap.Text, doc, docErr == nil)
	l.AverageRating, l.RatingCount = avg, count

	if m := agesRe.FindStringSubmatch(snap.Text); m != nil {
		l.AgeRating = m[1]
	} else if m := ageAltRe.FindStringSubmatch(snap.Text); m != nil {
		l.AgeRating = m[1]
	}

	l.Category = firstLineMatch(categoryLineRe, snap.Text)
	l.DeveloperName = firstLineMatch(developerLineRe, snap.Text)
	l.Languages = whitespaceRe.ReplaceAllString(firstLineMatch(languageLineRe, snap.Text), " ")
	l.AppSize = firstLineMatch(sizeLineRe, snap.Text)
	l.Compatibility = firstLineMatch(requiresRe, snap.Text)
	l.Copyright = firstLineMatch(copyrightRe, snap.Text)

	l.Price = extractPrice(snap.Text)
	l.InAppPurchases = ExtractIAPSection(snap.Text)
	l.Description = extractDescription(snap.Text, doc, docErr == nil)

	for _, re := range releaseDateRes {
		if m := re.FindStringSubmatch(snap.Text); m != nil {
			l.ReleaseDate = strings.TrimSpace(m[1])
			break
		}
	}
	if m := versionRe.FindStringSubmatch(snap.Text); m != nil {
		l.Version = strings.TrimSpace(m[1])
	}

	if docErr == nil {
		l.SupportURL = firstLink(doc, baseURL, "support", "help")
		l.DeveloperWebsite = firstLink(doc, baseURL, "developer", "publisher")
	}
}

// extractRatingPair extracts (average, count) jointly when possible so the
// two stay mutually consistent. A missing half stays empty, never guessed.
func extractRatingPair(text string, doc *goquery.Document, haveDoc bool) (avg, count string) {
	if m := ratingPairRe.FindStringSubmatch(text); m != nil {
		count, avg = m[1], m[2]
	}
	if avg == "" || count == "" {
		if m := outOfPairRe.FindStringSubmatch(text); m != nil {
			if avg == "" {
				avg = m[1]
			}
			if count == "" {
				count = m[2]
			}
		}
	}

	// Structural scan: elements mentioning rating keywords.
	if (avg == "" || count == "") && haveDoc {
		doc.Find("*").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			t := sel.Text()
			if !strings.Contains(t, "Ratings") && !strings.Contains(t, "out of 5") {
				return true
			}
			if count == "" {
				if m := countRe.FindStringSubmatch(t); m != nil {
					count = m[1]
				}
			}
			if avg == "" {
				if m := outOfRe.FindStringSubmatch(t); m != nil {
					avg = m[1]
				}
			}
			return avg == "" || count == ""
		})
	}

	// Isolated free-text fallbacks.
	if avg == "" {
		if m := outOfRe.FindStringSubmatch(text); m != nil {
			avg = m[1]
		}
	}
	if count == "" {
		if m := countRe.FindStringSubmatch(text); m != nil {
			count = m[1]
		}
	}
	return strings.TrimSpace(avg), strings.TrimSpace(count)
}

func firstLineMatch(re *regexp.Regexp, text string) string {
	if m := re.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func extractPrice(text string) string {
	if freeWordRe.MatchString(text) {
		return "Free"
	}
	if m := priceAmtRe.FindStringSubmatch(text); m != nil {
		return "$" + m[1]
	}
	return "Free"
}

// iapSectionStops end the in-app-purchase section of the rendered text.
var iapSectionStops = []string{"information", "supports", "privacy"}

// ExtractIAPSection finds the keyword-delimited in-app-purchase section of
// the rendered body text and reads one entry per price-bearing line, the
// text before the price being the title. Deduplicated by (title, price) and
// capped at 20 entries to bound description-injection noise.
func ExtractIAPSection(text string) []models.InAppPurchase {
	lower := strings.ToLower(text)
	start := strings.Index(lower, "in-app purchases")
	if start == -1 {
		// The store sometimes renders a non-breaking hyphen.
		start = strings.Index(lower, "in‑app purchases")
	}
	if start == -1 {
		return nil
	}

	section := text[start:]
	if len(section) > 5000 {
		section = section[:5000]
	}

	var iaps []models.InAppPurchase
	seen := make(map[string]bool)
	inSection := false

	for _, line := range strings.Split(section, "\n") {
		line = strings.TrimSpace(line)
		lowerLine := strings.ToLower(line)

		if strings.Contains(lowerLine, "in-app purchase") || strings.Contains(lowerLine, "in‑app purchase") {
			inSection = true
			continue
		}
		if inSection && containsAny(lowerLine, iapSectionStops) {
			break
		}
		if !inSection || line == "" {
			continue
		}

		price := iapPriceRe.FindString(line)
		if price == "" {
			continue
		}
		title := strings.TrimSpace(line[:strings.Index(line, price)])
		if title == "" || len(title) >= 200 {
			title = "In-App Purchase"
		}

		key := title + "|" + price
		if seen[key] {
			continue
		}
		seen[key] = true
		iaps = append(iaps, models.InAppPurchase{Title: title, Price: price})
		if len(iaps) >= 20 {
			break
		}
	}
	return iaps
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

var descriptionSelectors = []string{
	`div[class*="description"]`,
	`div[class*="product-review"]`,
	`div[class*="app-description"]`,
	`section[class*="description"]`,
	`p[class*="description"]`,
}

var descriptionNoise = []string{"download", "app store", "copyright", "developer"}

func extractDescription(text string, doc *goquery.Document, haveDoc bool) string {
	var desc string

	if haveDoc {
		for _, selector := range descriptionSelectors {
			candidate := strings.TrimSpace(doc.Find(selector).First().Text())
			if len(candidate) > 50 {
				desc = candidate
				break
			}
		}
	}

	if len(desc) < 50 {
		for _, line := range strings.Split(text, "\n") {
			line = strings.TrimSpace(line)
			if len(line) > 100 && len(line) < 1000 && !containsAny(strings.ToLower(line), descriptionNoise) {
				desc = line
				break
			}
		}
	}

	if desc == "" {
		return ""
	}
	desc = whitespaceRe.ReplaceAllString(desc, " ")
	if len(desc) > 500 {
		desc = desc[:500] + "..."
	}
	return desc
}

// firstLink returns the first anchor whose href mentions one of the
// keywords, absolutized against baseURL.
func firstLink(doc *goquery.Document, baseURL string, keywords ...string) string {
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
	if found == "" {
		return ""
	}
	if !strings.HasPrefix(found, "http") {
		return baseURL + found
	}
	return found
}
