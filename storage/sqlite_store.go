package storage

import (
	"database/sql"
	"fmt"

	"sensortower-scraper/models"
	"sensortower-scraper/utils"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS apps (
	id                     INTEGER PRIMARY KEY AUTOINCREMENT,
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
	downloads_numeric      INTEGER,
	revenue_numeric        INTEGER,
	rating_count_numeric   INTEGER,
	average_rating_numeric REAL,
	error                  TEXT,
	scraped_at             TEXT,
	UNIQUE(app_id, app_name)
);`

// SQLiteStore persists records in a local SQLite file. The database is
// opened per operation; write serialization is the database's job, the
// store takes no locks of its own.
type SQLiteStore struct {
	path   string
	logger utils.Logger
}

// NewSQLiteStore creates a store backed by the SQLite file at path.
func NewSQLiteStore(path string, logger utils.Logger) *SQLiteStore {
	return &SQLiteStore{path: path, logger: logger}
}

func (s *SQLiteStore) open() (*sql.DB, error) {
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", s.path, err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return db, nil
}

// Upsert saves the record, replacing any row with the same identity pair,
// and verifies the write with a follow-up read.
func (s *SQLiteStore) Upsert(record *models.AppRecord) (bool, error) {
	db, err := s.open()
	if err != nil {
		return false, err
	}
	defer db.Close()

	args, err := recordArgs(record)
	if err != nil {
		return false, fmt.Errorf("encode record: %w", err)
	}

	query := fmt.Sprintf(
		"INSERT OR REPLACE INTO apps (%s) VALUES (%s)",
		insertColumns, placeholders(len(args)),
	)
	if _, err := db.Exec(query, args...); err != nil {
		return false, fmt.Errorf("upsert: %w", err)
	}

	var count int
	err = db.QueryRow(
		"SELECT COUNT(*) FROM apps WHERE app_id = ? OR app_name = ?",
		models.Deref(record.AppID), models.Deref(record.AppName),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("verify save: %w", err)
	}

	s.logger.Debug("Saved %s (app_id=%s), verified count: %d",
		models.Deref(record.AppName), models.Deref(record.AppID), count)
	return count > 0, nil
}

// ListAll returns every stored record, newest first.
func (s *SQLiteStore) ListAll() ([]*models.AppRecord, error) {
	db, err := s.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.Query(fmt.Sprintf(
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
func (s *SQLiteStore) DeleteByID(appID string) (bool, error) {
	db, err := s.open()
	if err != nil {
		return false, err
	}
	defer db.Close()

	res, err := db.Exec("DELETE FROM apps WHERE app_id = ?", appID)
	if err != nil {
		return false, fmt.Errorf("delete app %s: %w", appID, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// DeleteByName removes the record with the given app name.
func (s *SQLiteStore) DeleteByName(appName string) (bool, error) {
	db, err := s.open()
	if err != nil {
		return false, err
	}
	defer db.Close()

	res, err := db.Exec("DELETE FROM apps WHERE app_name = ?", appName)
	if err != nil {
		return false, fmt.Errorf("delete app %q: %w", appName, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Close is a no-op: connections are per-operation.
func (s *SQLiteStore) Close() error { return nil }

func placeholders(n int) string {
	out := make([]byte, 0, n*2)
	for i := 0; i < n; i++ {
		if i > 0 {
			out = append(out, ',')
		}
		out = append(out, '?')
	}
	return string(out)
}
