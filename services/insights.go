package services

import (
	"sort"

	"sensortower-scraper/models"
	"sensortower-scraper/utils"
)

// InsightReport holds computed analytics over the stored app records
type InsightReport struct {
	TotalApps      int
	WithRatings    int
	FreeApps       int
	PaidApps       int
	AverageRating  float64
	TotalDownloads int64
	AppsByCategory map[string]int
	TopRated       []*models.AppRecord
	MostDownloaded *models.AppRecord
}

// InsightService computes analytics from stored app records
type InsightService struct {
	logger utils.Logger
}

// NewInsightService creates a new InsightService
func NewInsightService(logger utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

// Generate computes all insights from a slice of app records
func (s *InsightService) Generate(records []*models.AppRecord) *InsightReport {
	report := &InsightReport{
		AppsByCategory: make(map[string]int),
	}

	if len(records) == 0 {
		s.logger.Warn("No app records to generate insights from")
		return report
	}

	var ratingSum float64
	var maxDownloads int64 = -1

	for _, r := range records {
		report.TotalApps++

		switch models.Deref(r.Price) {
		case "Free":
			report.FreeApps++
		case "Paid":
			report.PaidApps++
		}

		if r.AverageRatingNumeric != nil {
			report.WithRatings++
			ratingSum += *r.AverageRatingNumeric
		}

		if r.DownloadsNumeric != nil {
			report.TotalDownloads += *r.DownloadsNumeric
			if *r.DownloadsNumeric > maxDownloads {
				maxDownloads = *r.DownloadsNumeric
				report.MostDownloaded = r
			}
		}

		if cat := models.Deref(r.Categories); cat != "" {
			report.AppsByCategory[cat]++
		}
	}

	if report.WithRatings > 0 {
		report.AverageRating = ratingSum / float64(report.WithRatings)
	}

	// Top 5 highest-rated apps
	rated := make([]*models.AppRecord, 0, len(records))
	for _, r := range records {
		if r.AverageRatingNumeric != nil {
			rated = append(rated, r)
		}
	}
	sort.Slice(rated, func(i, j int) bool {
		return *rated[i].AverageRatingNumeric > *rated[j].AverageRatingNumeric
	})
	maxTop := 5
	if len(rated) < maxTop {
		maxTop = len(rated)
	}
	report.TopRated = rated[:maxTop]

	return report
}
