package storage

import (
	"database/sql"
	"time"

	"sensortower-scraper/models"
)

// insertColumns is the shared column order for both backends.
const insertColumns = `app_name, app_id, categories, price, top_countries,
	advertised_status, support_url, developer_website, developer_name,
	content_rating, downloads_worldwide, revenue_worldwide, last_updated,
	publisher_country, category_ranking, in_app_purchases,
	average_rating, rating_count, release_date, version,
	downloads_numeric, revenue_numeric, rating_count_numeric,
	average_rating_numeric, error, scraped_at`

// recordArgs lays out a record's values in insertColumns order.
// The IAP list is serialized to JSON; scraped_at is RFC3339.
func recordArgs(r *models.AppRecord) ([]interface{}, error) {
	iapJSON, err := models.EncodeIAPs(r.InAppPurchases)
	if err != nil {
		return nil, err
	}

	appName := models.Deref(r.AppName)
	if appName == "" {
		appName = "Unknown"
	}
	scrapedAt := r.ScrapedAt
	if scrapedAt.IsZero() {
		scrapedAt = time.Now()
	}

	return []interface{}{
		appName,
		models.Deref(r.AppID),
		nullStr(r.Categories),
		nullStr(r.Price),
		nullStr(r.TopCountries),
		nullStr(r.AdvertisedStatus),
		nullStr(r.SupportURL),
		nullStr(r.DeveloperWebsite),
		nullStr(r.DeveloperName),
		nullStr(r.ContentRating),
		nullStr(r.DownloadsWorldwide),
		nullStr(r.RevenueWorldwide),
		nullStr(r.LastUpdated),
		nullStr(r.PublisherCountry),
		nullStr(r.CategoryRanking),
		nullIfEmpty(iapJSON),
		nullStr(r.AverageRating),
		nullStr(r.RatingCount),
		nullStr(r.ReleaseDate),
		nullStr(r.Version),
		nullInt(r.DownloadsNumeric),
		nullInt(r.RevenueNumeric),
		nullInt(r.RatingCountNumeric),
		nullFloat(r.AverageRatingNumeric),
		nullStr(r.Error),
		scrapedAt.Format(time.RFC3339),
	}, nil
}

// scanRecord reads one row selected with insertColumns back into a record.
func scanRecord(rows *sql.Rows) (*models.AppRecord, error) {
	var (
		r         models.AppRecord
		appName   string
		appID     sql.NullString
		strs      [18]sql.NullString
		ints      [3]sql.NullInt64
		avgNum    sql.NullFloat64
		errField  sql.NullString
		scrapedAt sql.NullString
	)

	err := rows.Scan(
		&appName, &appID,
		&strs[0], &strs[1], &strs[2], &strs[3], &strs[4], &strs[5], &strs[6],
		&strs[7], &strs[8], &strs[9], &strs[10], &strs[11], &strs[12],
		&strs[13], &strs[14], &strs[15], &strs[16], &strs[17],
		&ints[0], &ints[1], &ints[2], &avgNum, &errField, &scrapedAt,
	)
	if err != nil {
		return nil, err
	}

	r.AppName = models.Str(appName)
	r.AppID = fromNull(appID)
	r.Categories = fromNull(strs[0])
	r.Price = fromNull(strs[1])
	r.TopCountries = fromNull(strs[2])
	r.AdvertisedStatus = fromNull(strs[3])
	r.SupportURL = fromNull(strs[4])
	r.DeveloperWebsite = fromNull(strs[5])
	r.DeveloperName = fromNull(strs[6])
	r.ContentRating = fromNull(strs[7])
	r.DownloadsWorldwide = fromNull(strs[8])
	r.RevenueWorldwide = fromNull(strs[9])
	r.LastUpdated = fromNull(strs[10])
	r.PublisherCountry = fromNull(strs[11])
	r.CategoryRanking = fromNull(strs[12])
	r.AverageRating = fromNull(strs[14])
	r.RatingCount = fromNull(strs[15])
	r.ReleaseDate = fromNull(strs[16])
	r.Version = fromNull(strs[17])
	r.Error = fromNull(errField)

	if strs[13].Valid {
		iaps, err := models.DecodeIAPs(strs[13].String)
		if err != nil {
			return nil, err
		}
		r.InAppPurchases = iaps
	}

	r.DownloadsNumeric = fromNullInt(ints[0])
	r.RevenueNumeric = fromNullInt(ints[1])
	r.RatingCountNumeric = fromNullInt(ints[2])
	if avgNum.Valid {
		v := avgNum.Float64
		r.AverageRatingNumeric = &v
	}

	if scrapedAt.Valid {
		if t, err := time.Parse(time.RFC3339, scrapedAt.String); err == nil {
			r.ScrapedAt = t
		}
	}
	return &r, nil
}

func nullStr(p *string) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(p *int64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func nullFloat(p *float64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func fromNull(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func fromNullInt(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	n := ni.Int64
	return &n
}
