package appstore

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"sensortower-scraper/config"
	"sensortower-scraper/scraper/page"
	"sensortower-scraper/utils"

	"github.com/PuerkitoBio/goquery"
)

var appIDRe = regexp.MustCompile(`/id/?(\d+)`)

// Resolver turns a human-readable app name into the store's numeric app ID
// by scanning search-result links.
type Resolver struct {
	cfg     *config.Config
	logger  utils.Logger
	browser page.Browser
}

// NewResolver creates a new Resolver driving the given browser.
func NewResolver(cfg *config.Config, logger utils.Logger, b page.Browser) *Resolver {
	return &Resolver{cfg: cfg, logger: logger, browser: b}
}

// resultSelectors are tried in order of specificity; the first one that
// yields a qualifying app link wins.
var resultSelectors = []string{
	`a[href*="/app/"]`,
	`a[href*="/id"]`,
	`li[class*="app"] a`,
	`div[class*="result"] a`,
	`a[data-testid*="app"]`,
}

// Resolve searches the store for appName and returns the first result's
// numeric ID. A not-found outcome is ("", nil): absence, not an error.
func (r *Resolver) Resolve(ctx context.Context, appName string) (string, error) {
	q := url.Values{}
	q.Set("term", appName)
	searchURL := fmt.Sprintf("%s?%s", r.cfg.AppStoreSearchURL, q.Encode())

	if err := r.browser.Navigate(ctx, searchURL); err != nil {
		return "", fmt.Errorf("app store search: %w", err)
	}
	r.browser.WaitReady(ctx, 500, 10*time.Second)

	for _, selector := range resultSelectors {
		hrefs, err := r.collectHrefs(ctx, selector)
		if err != nil {
			r.logger.Debug("selector %q failed: %v", selector, err)
			continue
		}
		if id := FirstAppID(hrefs); id != "" {
			r.logger.Info("Resolved %q to app ID %s", appName, id)
			return id, nil
		}
	}

	// Last resort: scan every anchor in the captured DOM.
	if html, err := r.browser.HTML(ctx); err == nil {
		if id := FirstAppID(anchorHrefs(html)); id != "" {
			r.logger.Info("Resolved %q to app ID %s (DOM scan)", appName, id)
			return id, nil
		}
	}

	r.logger.Warn("No app ID found for %q", appName)
	return "", nil
}

func (r *Resolver) collectHrefs(ctx context.Context, selector string) ([]string, error) {
	js := fmt.Sprintf(`
		(function() {
			var out = [];
			document.querySelectorAll(%q).forEach(function(a) {
				if (a.href) out.push(a.href);
			});
			return out;
		})()
	`, selector)
	var hrefs []string
	if err := r.browser.Evaluate(ctx, js, &hrefs); err != nil {
		return nil, err
	}
	return hrefs, nil
}

// FirstAppID returns the numeric ID of the first href that looks like an
// app detail link, or "" when no href qualifies.
func FirstAppID(hrefs []string) string {
	for _, href := range hrefs {
		if !strings.Contains(href, "/app/") {
			continue
		}
		if m := appIDRe.FindStringSubmatch(href); m != nil {
			return m[1]
		}
	}
	return ""
}

func anchorHrefs(html string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	var hrefs []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		if href, ok := sel.Attr("href"); ok {
			hrefs = append(hrefs, href)
		}
	})
	return hrefs
}
