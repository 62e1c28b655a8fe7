package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Compile-time interface check.
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore is a persistent Store backed by SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path and
// initialises the schema. Use ":memory:" for an in-memory SQLite database.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("throttle/store: open sqlite: %w", err)
	}
	// A second connection to ":memory:" would see an empty database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS throttle_usage (
			key          TEXT    NOT NULL,
			bucket       TEXT    NOT NULL,
			bucket_start INTEGER NOT NULL,
			count        INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (key, bucket)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("throttle/store: create table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Add atomically adds n to the counter for key in bucket b.
func (s *SQLiteStore) Add(ctx context.Context, key string, b Bucket, n int64) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO throttle_usage (key, bucket, bucket_start, count) VALUES (?, ?, ?, ?)
		ON CONFLICT (key, bucket) DO UPDATE SET count = throttle_usage.count + excluded.count
		RETURNING count`,
		key, b.Key, b.Start.Unix(), n,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("throttle/store: add %s: %w", key, err)
	}
	return count, nil
}

// Get returns the counter for key in bucket b.
func (s *SQLiteStore) Get(ctx context.Context, key string, b Bucket) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT count FROM throttle_usage WHERE key = ? AND bucket = ?`, key, b.Key,
	).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("throttle/store: get %s: %w", key, err)
	}
	return count, nil
}

// List returns every counter ordered by key, then bucket.
func (s *SQLiteStore) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, bucket, bucket_start, count FROM throttle_usage ORDER BY key, bucket`)
	if err != nil {
		return nil, fmt.Errorf("throttle/store: list: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e     Entry
			start int64
		)
		if err := rows.Scan(&e.Key, &e.Bucket.Key, &start, &e.Count); err != nil {
			return nil, fmt.Errorf("throttle/store: scan: %w", err)
		}
		e.Bucket.Start = time.Unix(start, 0).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

// Reset removes all buckets for the given key.
func (s *SQLiteStore) Reset(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM throttle_usage WHERE key = ?`, key); err != nil {
		return fmt.Errorf("throttle/store: reset %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying SQLite database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
