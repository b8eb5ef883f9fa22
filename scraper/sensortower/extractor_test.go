package sensortower

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"sensortower-scraper/models"
	"sensortower-scraper/scraper/page"
)

func TestIsAuthRedirect(t *testing.T) {
	require.True(t, isAuthRedirect("https://app.sensortower.com/login?next=/overview/1", ""))
	require.True(t, isAuthRedirect("https://app.sensortower.com/sign-in", ""))
	require.True(t, isAuthRedirect("https://app.sensortower.com/overview/1",
		"<html><body>Please login to continue</body></html>"))
	require.False(t, isAuthRedirect("https://app.sensortower.com/overview/1",
		"<html><body>App Overview Dashboard</body></html>"))
}

func TestApplyStructuredDataJSONLD(t *testing.T) {
	html := `<html><head>
		<script type="application/ld+json">{"name":"Focus Keeper","applicationCategory":"Productivity","offers":{"price":"0"},"dateModified":"2024-03-15T10:00:00Z"}</script>
		<meta property="og:description" content="Focus Keeper has 134K downloads this month.">
	</head><body></body></html>`

	r := &models.AppRecord{}
	ApplyStructuredData(html, r)

	require.Equal(t, "Focus Keeper", models.Deref(r.AppName))
	require.Equal(t, "Productivity", models.Deref(r.Categories))
	require.Equal(t, "Free", models.Deref(r.Price))
	require.Equal(t, "2024/03/15", models.Deref(r.LastUpdated))
	require.Equal(t, "134K", models.Deref(r.DownloadsWorldwide))
}

func TestApplyStructuredDataPaidAndOGTitle(t *testing.T) {
	html := `<html><head>
		<script type="application/ld+json">{"offers":{"price":"4.99"}}</script>
		<meta property="og:title" content="Minecraft - Overview - SensorTower">
	</head><body></body></html>`

	r := &models.AppRecord{}
	ApplyStructuredData(html, r)

	require.Equal(t, "Paid", models.Deref(r.Price))
	require.Equal(t, "Minecraft", models.Deref(r.AppName))
}

func TestApplyStructuredDataFreePriceVariants(t *testing.T) {
	// "0", "0.0" and "0.00" are all a zero price; only the numeric value
	// decides the class.
	for _, price := range []string{"0", "0.0", "0.00"} {
		html := fmt.Sprintf(`<html><head>
			<script type="application/ld+json">{"offers":{"price":"%s"}}</script>
		</head><body></body></html>`, price)

		r := &models.AppRecord{}
		ApplyStructuredData(html, r)

		require.Equal(t, "Free", models.Deref(r.Price), "price %q", price)
	}
}

func TestApplyAPIPriceClassification(t *testing.T) {
	testCases := []struct {
		price string
		want  string
	}{
		{"0", "Free"},
		{"0.0", "Free"},
		{"0.00", "Free"},
		{"4.99", "Paid"},
	}
	for _, tc := range testCases {
		n := json.Number(tc.price)
		r := &models.AppRecord{}
		applyAPI(r, &apiApp{Price: &n})

		require.Equal(t, tc.want, models.Deref(r.Price), "price %q", tc.price)
	}

	// An unparseable price sets nothing rather than guessing Paid.
	bad := json.Number("")
	r := &models.AppRecord{}
	applyAPI(r, &apiApp{Price: &bad})
	require.False(t, models.Has(r.Price))
}

func TestApplyStructuredDataKeepsPresentFields(t *testing.T) {
	html := `<html><head>
		<script type="application/ld+json">{"name":"Wrong Name","applicationCategory":"Games"}</script>
	</head><body></body></html>`

	r := &models.AppRecord{AppName: models.Str("Right Name")}
	ApplyStructuredData(html, r)

	require.Equal(t, "Right Name", models.Deref(r.AppName))
	require.Equal(t, "Games", models.Deref(r.Categories))
}

func TestPopulateRecordFromText(t *testing.T) {
	text := strings.Join([]string{
		"Focus Keeper",
		"Category: Productivity",
		"Free",
		"Top Countries: United States, Japan",
		"Publisher Country: United States",
		"Downloads: 134K",
		"Revenue: < $5k",
		"Last Updated: 2024/03/15",
	}, "\n")
	snap := page.Snapshot{
		Text:  text,
		HTML:  "<html><body></body></html>",
		Title: "Focus Keeper - Overview | SensorTower",
	}

	r := &models.AppRecord{}
	populateRecord(snap, r, "https://sensortower.com")

	require.Equal(t, "Focus Keeper", models.Deref(r.AppName))
	require.Equal(t, "Productivity", models.Deref(r.Categories))
	require.Equal(t, "Free", models.Deref(r.Price))
	require.Equal(t, "United States, Japan", models.Deref(r.TopCountries))
	require.Equal(t, "United States", models.Deref(r.PublisherCountry))
	require.Equal(t, "134K", models.Deref(r.DownloadsWorldwide))
	require.Equal(t, "< $5k", models.Deref(r.RevenueWorldwide))
	require.Equal(t, "2024/03/15", models.Deref(r.LastUpdated))
}

func TestPopulateRecordDiscardsDeveloperSentinels(t *testing.T) {
	longFiller := strings.Repeat("dashboard content line\n", 10)
	html := `<html><body><div id="react-root">` +
		`<a href="/publisher/12345">Supercell Oy</a>` +
		`<p>` + longFiller + `</p>` +
		`</div></body></html>`

	for _, sentinel := range []string{"Website", "Publisher Country", "SensorTower Inc"} {
		r := &models.AppRecord{DeveloperName: models.Str(sentinel)}
		populateRecord(page.Snapshot{Text: longFiller, HTML: html}, r, "https://sensortower.com")

		require.Equal(t, "Supercell Oy", models.Deref(r.DeveloperName),
			"sentinel %q should be replaced", sentinel)
	}
}

func TestPopulateRecordKeepsRealDeveloper(t *testing.T) {
	r := &models.AppRecord{DeveloperName: models.Str("Supercell Oy")}
	populateRecord(page.Snapshot{Text: "By: Someone Else", HTML: "<html></html>"}, r,
		"https://sensortower.com")
	require.Equal(t, "Supercell Oy", models.Deref(r.DeveloperName))
}

func TestExtractTopCountriesRegionsSentinel(t *testing.T) {
	// A stray "/ Regions" label fragment is never a country list, even when
	// a stronger source set it.
	r := &models.AppRecord{TopCountries: models.Str("Countries / Regions")}
	extractTopCountries("Top Countries: United States, Japan", r)
	require.Equal(t, "United States, Japan", models.Deref(r.TopCountries))
}

func TestExtractTopCountriesKnownCountryScan(t *testing.T) {
	r := &models.AppRecord{}
	extractTopCountries("Top Countries / Regions\nTaiwan and Philippines lead the chart", r)
	require.Equal(t, "Taiwan, Philippines", models.Deref(r.TopCountries))
}

func TestExtractEstimatesFromKPISpans(t *testing.T) {
	html := `<html><body>
		<span aria-labelledby="app-overview-unified-kpi-downloads">134K</span>
		<span aria-labelledby="app-overview-unified-kpi-revenue">$88K</span>
	</body></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	r := &models.AppRecord{}
	extractEstimates("", doc, true, r)

	require.Equal(t, "134K", models.Deref(r.DownloadsWorldwide))
	require.Equal(t, "88K", models.Deref(r.RevenueWorldwide))
}

func TestExtractIAPTableRejectsHeaderRows(t *testing.T) {
	html := `<html><body><table>
		<tr><th>Title</th><th>Duration</th><th>Price</th></tr>
		<tr><td>Premium</td><td>Monthly</td><td>$9.99</td></tr>
		<tr><td>Title</td><td>Duration</td><td>Price</td></tr>
		<tr><td>Coins</td><td></td><td>$1.99</td></tr>
	</table></body></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	iaps := extractIAPTable(doc)
	require.Equal(t, []models.InAppPurchase{
		{Title: "Premium", Duration: "Monthly", Price: "$9.99"},
		{Title: "Coins", Duration: "", Price: "$1.99"},
	}, iaps)
}

func TestExtractRankingWithCategory(t *testing.T) {
	html := `<html><body>
		<span aria-labelledby="app-overview-unified-kpi-category-ranking">#5<p>Productivity</p></span>
	</body></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	require.Equal(t, "5 (Productivity)", extractRanking(doc, true, ""))
}

func TestExtractRankingTextFallback(t *testing.T) {
	require.Equal(t, "12", extractRanking(nil, false, "Category Ranking: #12"))
	require.Empty(t, extractRanking(nil, false, "no ranking here"))
}

func TestExtractNameSkipsBranding(t *testing.T) {
	mainText := strings.Join([]string{
		"Sign up for SensorTower",
		"Track performance of any app",
		"Focus Keeper",
	}, "\n")
	got := extractName(page.Snapshot{}, nil, false, mainText)
	require.Equal(t, "Focus Keeper", got)
}
