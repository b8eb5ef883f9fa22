package services

import (
	"fmt"
	"sort"
	"strings"

	"sensortower-scraper/models"
)

// PrintInsightReport formats and prints the insight report to terminal
func PrintInsightReport(report *InsightReport) {
	border := strings.Repeat("═", 55)
	thin := strings.Repeat("─", 55)

	fmt.Printf("\n╔%s╗\n", border)
	fmt.Printf("║%s║\n", center("MOBILE APP MARKET INSIGHTS ", 55))
	fmt.Printf("╚%s╝\n", border)

	fmt.Printf("\n OVERVIEW\n%s\n", thin)
	fmt.Printf("  Total Apps Scraped      : %d\n", report.TotalApps)
	fmt.Printf("  Apps With Ratings       : %d\n", report.WithRatings)
	fmt.Printf("  Free Apps               : %d\n", report.FreeApps)
	fmt.Printf("  Paid Apps               : %d\n", report.PaidApps)
	fmt.Printf("  Average Rating          : %.2f\n", report.AverageRating)
	fmt.Printf("  Total Downloads (est.)  : %d\n", report.TotalDownloads)

	if report.MostDownloaded != nil {
		fmt.Printf("\n MOST DOWNLOADED APP\n%s\n", thin)
		fmt.Printf("  Name      : %s\n", models.Deref(report.MostDownloaded.AppName))
		fmt.Printf("  App ID    : %s\n", models.Deref(report.MostDownloaded.AppID))
		if report.MostDownloaded.DownloadsNumeric != nil {
			fmt.Printf("  Downloads : %d\n", *report.MostDownloaded.DownloadsNumeric)
		}
		fmt.Printf("  Developer : %s\n", models.Deref(report.MostDownloaded.DeveloperName))
	}

	if len(report.AppsByCategory) > 0 {
		fmt.Printf("\n APPS PER CATEGORY\n%s\n", thin)
		// Sort by count descending
		type catCount struct {
			cat   string
			count int
		}
		var cats []catCount
		for cat, cnt := range report.AppsByCategory {
			cats = append(cats, catCount{cat, cnt})
		}
		sort.Slice(cats, func(i, j int) bool {
			return cats[i].count > cats[j].count
		})
		for _, cc := range cats {
			bar := strings.Repeat("▓", cc.count)
			fmt.Printf("  %-25s %3d  %s\n", cc.cat+":", cc.count, bar)
		}
	}

	if len(report.TopRated) > 0 {
		fmt.Printf("\n TOP %d HIGHEST RATED APPS\n%s\n", len(report.TopRated), thin)
		for i, r := range report.TopRated {
			fmt.Printf("  %d. %-35s %.2f \n", i+1, truncate(models.Deref(r.AppName), 35), *r.AverageRatingNumeric)
		}
	}

	fmt.Printf("\n%s\n\n", border)
}

func center(s string, width int) string {
	runes := []rune(s)
	if len(runes) >= width {
		return s
	}
	pad := (width - len(runes)) / 2
	return strings.Repeat(" ", pad) + s + strings.Repeat(" ", width-len(runes)-pad)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
