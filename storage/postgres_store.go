package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"sensortower-scraper/models"
	"sensortower-scraper/utils"

	_ "github.com/lib/pq"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS apps (
	id                     SERIAL PRIMARY KEY,
	app_name               TEXT NOT NULL,
	app_id                 TEXT,
	categories             TEXT,
	price                  TEXT,
	top_countries          TEXT,
	advertised_status      TEXT,
	support_url            TEXT,
	developer_website      TEXT,
	developer_name         TEXT,
	content_rating         TEXT,
	downloads_worldwide    TEXT,
	revenue_worldwide      TEXT,
	last_updated           TEXT,
	publisher_country      TEXT,
	category_ranking       TEXT,
	in_app_purchases       TEXT,
	average_rating         TEXT,
	rating_count           TEXT,
	release_date           TEXT,
	version                TEXT,
	downloads_numeric      BIGINT,
	revenue_numeric        BIGINT,
	rating_count_numeric   BIGINT,
	average_rating_numeric NUMERIC(4,2),
	error                  TEXT,
	scraped_at             TEXT,
	UNIQUE(app_id, app_name)
);

CREATE INDEX IF NOT EXISTS idx_apps_app_id     ON apps (app_id);
CREATE INDEX IF NOT EXISTS idx_apps_categories ON apps (categories);
CREATE INDEX IF NOT EXISTS idx_apps_downloads  ON apps (downloads_numeric);
`

// PostgresStore persists records in PostgreSQL behind the same Store
// contract as the SQLite backend.
type PostgresStore struct {
	db     *sql.DB
	logger utils.Logger
}

// NewPostgresStore connects, pings and bootstraps the apps table.
func NewPostgresStore(connStr string, logger utils.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open DB: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Minute * 5)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}
	if _, err := db.Exec(postgresSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	logger.Info("Connected to PostgreSQL successfully")
	return &PostgresStore{db: db, logger: logger}, nil
}

// Upsert saves the record, replacing any row with the same identity pair,
// and verifies the write with a follow-up read.
func (s *PostgresStore) Upsert(record *models.AppRecord) (bool, error) {
	args, err := recordArgs(record)
	if err != nil {
		return false, fmt.Errorf("encode record: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO apps (%s) VALUES (%s)
		ON CONFLICT (app_id, app_name) DO UPDATE SET
			categories = EXCLUDED.categories,
			price = EXCLUDED.price,
			top_countries = EXCLUDED.top_countries,
			advertised_status = EXCLUDED.advertised_status,
			support_url = EXCLUDED.support_url,
			developer_website = EXCLUDED.developer_website,
			developer_name = EXCLUDED.developer_name,
			content_rating = EXCLUDED.content_rating,
			downloads_worldwide = EXCLUDED.downloads_worldwide,
			revenue_worldwide = EXCLUDED.revenue_worldwide,
			last_updated = EXCLUDED.last_updated,
			publisher_country = EXCLUDED.publisher_country,
			category_ranking = EXCLUDED.category_ranking,
			in_app_purchases = EXCLUDED.in_app_purchases,
			average_rating = EXCLUDED.average_rating,
			rating_count = EXCLUDED.rating_count,
			release_date = EXCLUDED.release_date,
			version = EXCLUDED.version,
			downloads_numeric = EXCLUDED.downloads_numeric,
			revenue_numeric = EXCLUDED.revenue_numeric,
			rating_count_numeric = EXCLUDED.rating_count_numeric,
			average_rating_numeric = EXCLUDED.average_rating_numeric,
			error = EXCLUDED.error,
			scraped_at = EXCLUDED.scraped_at
	`, insertColumns, pgPlaceholders(len(args)))

	if _, err := s.db.Exec(query, args...); err != nil {
		return false, fmt.Errorf("upsert: %w", err)
	}

	var count int
	err = s.db.QueryRow(
		"SELECT COUNT(*) FROM apps WHERE app_id = $1 OR app_name = $2",
		models.Deref(record.AppID), models.Deref(record.AppName),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("verify save: %w", err)
	}
	return count > 0, nil
}

// ListAll returns every stored record, newest first.
func (s *PostgresStore) ListAll() ([]*models.AppRecord, error) {
	rows, err := s.db.Query(fmt.Sprintf(
		"SELECT %s FROM apps ORDER BY scraped_at DESC", insertColumns))
	if err != nil {
		return nil, fmt.Errorf("list apps: %w", err)
	}
	defer rows.Close()

	var records []*models.AppRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// DeleteByID removes the record with the given app ID.
func (s *PostgresStore) DeleteByID(appID string) (bool, error) {
	res, err := s.db.Exec("DELETE FROM apps WHERE app_id = $1", appID)
	if err != nil {
		return false, fmt.Errorf("delete app %s: %w", appID, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// DeleteByName removes the record with the given app name.
func (s *PostgresStore) DeleteByName(appName string) (bool, error) {
	res, err := s.db.Exec("DELETE FROM apps WHERE app_name = $1", appName)
	if err != nil {
		return false, fmt.Errorf("delete app %q: %w", appName, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func pgPlaceholders(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("$%d", i+1)
	}
	return strings.Join(parts, ",")
}
