package storage

import (
	"context"
	"errors"

	"sensortower-scraper/config"
	"sensortower-scraper/models"
	"sensortower-scraper/utils"
)

// Store is the persistence gateway for scraped app records. Identity is the
// (app_id, app_name) pair; Upsert replaces any record sharing it.
type Store interface {
	// Upsert saves the record and reports whether it is addressable
	// afterwards, verified by a follow-up read.
	Upsert(record *models.AppRecord) (bool, error)
	// ListAll returns every stored record, newest first.
	ListAll() ([]*models.AppRecord, error)
	// DeleteByID removes the record with the given app ID.
	DeleteByID(appID string) (bool, error)
	// DeleteByName removes the record with the given app name.
	DeleteByName(appName string) (bool, error)
	Close() error
}

// UpsertWithRetry saves through RetryWithBackoff. The gateway itself never
// retries; this is the caller-side policy the maintenance binaries share.
// An unverified save counts as a failed attempt.
func UpsertWithRetry(ctx context.Context, store Store, record *models.AppRecord, maxRetries int, logger utils.Logger) error {
	return utils.RetryWithBackoff(ctx, maxRetries, func() error {
		ok, err := store.Upsert(record)
		if err != nil {
			return err
		}
		if !ok {
			return errors.New("save could not be verified")
		}
		return nil
	}, logger)
}

// New selects a backend from configuration: Postgres when a DSN is set,
// the local SQLite file otherwise.
func New(cfg *config.Config, logger utils.Logger) (Store, error) {
	if cfg.DatabaseURL != "" {
		return NewPostgresStore(cfg.DatabaseURL, logger)
	}
	return NewSQLiteStore(cfg.SQLitePath, logger), nil
}
