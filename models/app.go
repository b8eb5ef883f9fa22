package models

import (
	"encoding/json"
	"time"
)

// InAppPurchase is a single named, priced sub-offering of an app.
// Duration is the subscription period descriptor if the IAP has one.
type InAppPurchase struct {
	Title    string `json:"title"`
	Duration string `json:"duration"`
	Price    string `json:"price"`
}

// AppRecord is the canonical output of one scrape invocation.
//
// Optional fields are pointers so that "not found" is distinguishable from
// "found empty". The *_Numeric fields are derived from their textual twins
// and are recomputed before every save, never authored independently.
type AppRecord struct {
	AppName         *string
	AppID           *string // storefront numeric identifier, string-typed
	Categories      *string
	CategoryRanking *string // ordinal, optionally with a parenthetical category
	Price           *string // "Free" or "Paid"
	TopCountries    *string // comma-joined country names

	DeveloperName    *string
	DeveloperWebsite *string
	SupportURL       *string
	AdvertisedStatus *string
	ContentRating    *string // e.g. "12+"
	PublisherCountry *string
	LastUpdated      *string

	DownloadsWorldwide *string // raw textual magnitude, e.g. "134K", "< $5k"
	RevenueWorldwide   *string

	AverageRating *string // decimal string, e.g. "4.6"
	RatingCount   *string // textual magnitude, e.g. "8.2K"
	ReleaseDate   *string
	Version       *string

	InAppPurchases []InAppPurchase

	DownloadsNumeric     *int64
	RevenueNumeric       *int64
	RatingCountNumeric   *int64
	AverageRatingNumeric *float64

	// Error marks the record as partial/failed for the primary source.
	// Enrichment fields may still be populated independently.
	Error *string

	ScrapedAt time.Time
}

// Str returns a pointer to s, for populating optional fields.
func Str(s string) *string { return &s }

// Deref returns the value of p or "" when absent.
func Deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// Has reports whether an optional field is present and non-empty.
func Has(p *string) bool { return p != nil && *p != "" }

// EncodeIAPs serializes an in-app-purchase list for storage.
// An empty list encodes to "" so absence survives the round trip.
func EncodeIAPs(iaps []InAppPurchase) (string, error) {
	if len(iaps) == 0 {
		return "", nil
	}
	b, err := json.Marshal(iaps)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeIAPs is the inverse of EncodeIAPs.
func DecodeIAPs(s string) ([]InAppPurchase, error) {
	if s == "" {
		return nil, nil
	}
	var iaps []InAppPurchase
	if err := json.Unmarshal([]byte(s), &iaps); err != nil {
		return nil, err
	}
	return iaps, nil
}
