package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// FetchCache is a SQLite-backed cache of fetched page bodies, keyed by URL.
// It satisfies fetcher.BodyCache so repeated runs inside the TTL skip the
// network entirely.
type FetchCache struct {
	db *sql.DB
}

// NewFetchCache opens (or creates) the cache database at path and configures
// WAL mode.
func NewFetchCache(path string) (*FetchCache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "cache: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "cache: exec %s", pragma)
		}
	}
	return &FetchCache{db: db}, nil
}

const cacheMigration = `
CREATE TABLE IF NOT EXISTS fetch_cache (
	id         TEXT PRIMARY KEY,
	url        TEXT NOT NULL,
	body       TEXT NOT NULL,
	fetched_at DATETIME NOT NULL DEFAULT (datetime('now')),
	expires_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_fetch_cache_url ON fetch_cache(url);
CREATE INDEX IF NOT EXISTS idx_fetch_cache_expires_at ON fetch_cache(expires_at);
`

func (c *FetchCache) Migrate(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, cacheMigration)
	return eris.Wrap(err, "cache: migrate")
}

func (c *FetchCache) Close() error {
	return c.db.Close()
}

// GetCachedBody returns the most recent unexpired body for the URL.
func (c *FetchCache) GetCachedBody(ctx context.Context, url string) (string, bool, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT body FROM fetch_cache
		 WHERE url = ? AND expires_at > datetime('now')
		 ORDER BY fetched_at DESC LIMIT 1`,
		url,
	)

	var body string
	err := row.Scan(&body)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, eris.Wrap(err, "cache: get body")
	}
	return body, true, nil
}

// SetCachedBody stores a fetched body with the given TTL.
func (c *FetchCache) SetCachedBody(ctx context.Context, url, body string, ttl time.Duration) error {
	now := time.Now().UTC()
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO fetch_cache (id, url, body, fetched_at, expires_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), url, body, now, now.Add(ttl),
	)
	return eris.Wrap(err, "cache: set body")
}

// DeleteExpired sweeps expired entries and returns the number removed.
func (c *FetchCache) DeleteExpired(ctx context.Context) (int, error) {
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM fetch_cache WHERE expires_at <= datetime('now')`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "cache: delete expired")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "cache: rows affected")
}
