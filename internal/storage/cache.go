// Package storage holds the sqlite-backed search cache. Source results are
// keyed by (source, tag) and expire after a TTL, so back-to-back
// resolutions of the same genre do not hammer the provider APIs.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"grooveradio/internal/radio"
)

const schema = `
CREATE TABLE IF NOT EXISTS search_cache (
	source     TEXT NOT NULL,
	tag        TEXT NOT NULL,
	payload    TEXT NOT NULL,
	fetched_at INTEGER NOT NULL,
	PRIMARY KEY (source, tag)
);
`

// Config for the search cache. A zero TTL disables expiry checks.
type Config struct {
	Path string
	TTL  time.Duration
}

// SearchCache is a sqlite-backed radio.SearchCache.
type SearchCache struct {
	db  *sql.DB
	ttl time.Duration
	log *slog.Logger
}

var _ radio.SearchCache = (*SearchCache)(nil)

func OpenSearchCache(cfg Config, log *slog.Logger) (*SearchCache, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("storage: sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")
	_, _ = db.Exec("PRAGMA busy_timeout = 5000")

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: migrate: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &SearchCache{db: db, ttl: cfg.TTL, log: log}, nil
}

func (c *SearchCache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Get returns the cached result page for (source, tag) when a fresh entry
// exists. Corrupt or stale rows read as a miss.
func (c *SearchCache) Get(ctx context.Context, source, tag string) ([]radio.Candidate, bool) {
	var payload string
	var fetchedAt int64
	err := c.db.QueryRowContext(ctx,
		`SELECT payload, fetched_at FROM search_cache WHERE source = ? AND tag = ?`,
		source, tag).Scan(&payload, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false
	}
	if err != nil {
		c.log.Warn("cache read failed", "source", source, "tag", tag, "error", err)
		return nil, false
	}
	if c.ttl > 0 && time.Since(time.UnixMilli(fetchedAt)) > c.ttl {
		return nil, false
	}
	var cands []radio.Candidate
	if err := json.Unmarshal([]byte(payload), &cands); err != nil {
		c.log.Warn("cache entry corrupt, dropping", "source", source, "tag", tag, "error", err)
		_, _ = c.db.ExecContext(ctx,
			`DELETE FROM search_cache WHERE source = ? AND tag = ?`, source, tag)
		return nil, false
	}
	if len(cands) == 0 {
		return nil, false
	}
	return cands, true
}

func (c *SearchCache) Put(ctx context.Context, source, tag string, cands []radio.Candidate) error {
	payload, err := json.Marshal(cands)
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO search_cache(source, tag, payload, fetched_at) VALUES(?,?,?,?)
		 ON CONFLICT(source, tag) DO UPDATE SET payload=excluded.payload, fetched_at=excluded.fetched_at`,
		source, tag, string(payload), time.Now().UnixMilli())
	return err
}

// Prune removes entries past the TTL. Run periodically; a no-op when TTL
// is unset.
func (c *SearchCache) Prune(ctx context.Context) (int64, error) {
	if c.ttl <= 0 {
		return 0, nil
	}
	cutoff := time.Now().Add(-c.ttl).UnixMilli()
	res, err := c.db.ExecContext(ctx, `DELETE FROM search_cache WHERE fetched_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
