// Package normalize converts the textual magnitude strings scraped from the
// target sites ("8.2K", "< $5k", "1,234") into comparable numbers.
package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"sensortower-scraper/models"
)

var (
	// "< 5k", "< $5k", "<5K", "< 5" all mean "fewer than 5,000" and
	// normalize to 0. Checked before generic suffix multiplication.
	lessThanFiveKRe = regexp.MustCompile(`^<\s*\$?\s*5\s*[kK]?$`)

	magnitudeRe = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*([kKmMbB])?$`)
)

// Number parses a textual magnitude into a numeric value.
// The second return is false when the input carries no number at all;
// callers must treat that as "unknown", not zero.
func Number(text string) (float64, bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return 0, false
	}
	switch strings.ToLower(s) {
	case "n/a", "none":
		return 0, false
	}

	if lessThanFiveKRe.MatchString(s) {
		return 0, true
	}

	// Strip comparison operators and currency markers before the magnitude.
	s = strings.TrimLeft(s, "<>=$ \t")
	s = strings.ReplaceAll(s, ",", "")

	m := magnitudeRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	val, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	switch strings.ToLower(m[2]) {
	case "k":
		val *= 1e3
	case "m":
		val *= 1e6
	case "b":
		val *= 1e9
	}
	return val, true
}

// Downloads parses the dashboard's worldwide-downloads field. That source
// renders "fewer than 5,000" as a bare "5k" with no comparator, so the
// literal "5k" maps to 0 here and only here.
func Downloads(text string) (float64, bool) {
	if strings.EqualFold(strings.TrimSpace(text), "5k") {
		return 0, true
	}
	return Number(text)
}

// Apply recomputes every derived numeric field of r from its textual twin.
// Fields whose text is absent or unparseable come out absent.
func Apply(r *models.AppRecord) {
	r.DownloadsNumeric = toInt(models.Deref(r.DownloadsWorldwide), Downloads)
	r.RevenueNumeric = toInt(models.Deref(r.RevenueWorldwide), Number)
	r.RatingCountNumeric = toInt(models.Deref(r.RatingCount), Number)

	r.AverageRatingNumeric = nil
	if v, ok := Number(models.Deref(r.AverageRating)); ok {
		r.AverageRatingNumeric = &v
	}
}

func toInt(text string, parse func(string) (float64, bool)) *int64 {
	v, ok := parse(text)
	if !ok {
		return nil
	}
	n := int64(math.Round(v))
	return &n
}
