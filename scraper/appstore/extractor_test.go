package appstore

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"sensortower-scraper/models"
	"sensortower-scraper/scraper/page"
)

func TestExtractRatingPairCountFirst(t *testing.T) {
	avg, count := extractRatingPair("8.1K Ratings 4.6", nil, false)
	require.Equal(t, "4.6", avg)
	require.Equal(t, "8.1K", count)
}

func TestExtractRatingPairAverageFirst(t *testing.T) {
	avg, count := extractRatingPair("4.6 out of 5 8.1K Ratings", nil, false)
	require.Equal(t, "4.6", avg)
	require.Equal(t, "8.1K", count)
}

func TestExtractRatingPairAverageOnly(t *testing.T) {
	avg, count := extractRatingPair("Rated 4.6 out of 5 by users", nil, false)
	require.Equal(t, "4.6", avg)
	require.Empty(t, count)
}

func TestExtractRatingPairFromDocument(t *testing.T) {
	html := `<html><body>
		<span class="we-rating">4.2 out of 5</span>
		<span class="we-rating-count">13M Ratings</span>
	</body></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	avg, count := extractRatingPair("", doc, true)
	require.Equal(t, "4.2", avg)
	require.Equal(t, "13M", count)
}

func TestExtractIAPSection(t *testing.T) {
	text := strings.Join([]string{
		"Some intro text",
		"In-App Purchases",
		"Premium Monthly $9.99",
		"Coin Pack $4.99",
		"Premium Monthly $9.99",
		"Information",
		"Hidden Extra $1.99",
	}, "\n")

	iaps := ExtractIAPSection(text)
	require.Equal(t, []models.InAppPurchase{
		{Title: "Premium Monthly", Price: "$9.99"},
		{Title: "Coin Pack", Price: "$4.99"},
	}, iaps)
}

func TestExtractIAPSectionAbsent(t *testing.T) {
	require.Nil(t, ExtractIAPSection("Nothing purchasable here"))
}

func TestExtractIAPSectionPriceOnlyLine(t *testing.T) {
	text := "In-App Purchases\n$0.99\nInformation"
	iaps := ExtractIAPSection(text)
	require.Len(t, iaps, 1)
	require.Equal(t, "In-App Purchase", iaps[0].Title)
	require.Equal(t, "$0.99", iaps[0].Price)
}

func TestExtractPrice(t *testing.T) {
	require.Equal(t, "Free", extractPrice("Get it Free today"))
	require.Equal(t, "$4.99", extractPrice("Buy for $4.99"))
	require.Equal(t, "Free", extractPrice("no price anywhere"))
}

func TestPopulateListing(t *testing.T) {
	text := strings.Join([]string{
		"Clash Quest",
		"4.6 out of 5",
		"8.1K Ratings",
		"Free",
		"Offers In-App Purchases",
		"In-App Purchases",
		"Premium Pass $4.99",
		"Information",
		"Category Games",
		"Developer Supercell Oy",
		"Language English, French",
		"Size 350 MB",
		"Requires iOS 13.0 or later.",
		"Ages 12+",
		"Released June 15, 2021",
		"Version 1.42.0",
		"© 2021 Supercell",
	}, "\n")
	html := `<html><body>
		<h1>Clash Quest</h1>
		<a href="https://supercell.com/en/support/">Support</a>
		<a href="https://supercell.com/en/developer-page/">Developer</a>
	</body></html>`

	snap := page.Snapshot{
		Text:  text,
		HTML:  html,
		Title: "Clash Quest - App Store",
	}
	l := &Listing{}
	populateListing(snap, l, "https://apps.apple.com")

	require.Equal(t, "Clash Quest", l.AppName)
	require.Equal(t, "4.6", l.AverageRating)
	require.Equal(t, "8.1K", l.RatingCount)
	require.Equal(t, "12+", l.AgeRating)
	require.Equal(t, "Games", l.Category)
	require.Equal(t, "Supercell Oy", l.DeveloperName)
	require.Equal(t, "English, French", l.Languages)
	require.Equal(t, "350 MB", l.AppSize)
	require.Equal(t, "iOS 13.0 or later.", l.Compatibility)
	require.Equal(t, "2021 Supercell", l.Copyright)
	require.Equal(t, "Free", l.Price)
	require.Equal(t, "June 15, 2021", l.ReleaseDate)
	require.Equal(t, "1.42.0", l.Version)
	require.Equal(t, []models.InAppPurchase{{Title: "Premium Pass", Price: "$4.99"}}, l.InAppPurchases)
	require.Equal(t, "https://supercell.com/en/support/", l.SupportURL)
	require.Equal(t, "https://supercell.com/en/developer-page/", l.DeveloperWebsite)
}

func TestFirstLinkAbsolutizesRelativeHrefs(t *testing.T) {
	html := `<html><body><a href="/us/help-center">Help</a></body></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	got := firstLink(doc, "https://apps.apple.com", "support", "help")
	require.Equal(t, "https://apps.apple.com/us/help-center", got)
}
