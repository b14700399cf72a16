package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// DefaultPageTTL applies when a page is stored without an expiry.
const DefaultPageTTL = time.Minute

// ErrCacheNotFound is returned when a cache entry is not found.
var ErrCacheNotFound = errors.New("cache entry not found")

// CachedPage is one cached catalog search page, stored as the JSON the
// searcher produced.
type CachedPage struct {
	CacheKey        string
	Term            string
	Page            int
	PageSize        int
	ResponseJSON    string
	CreatedAtUnixMs int64
	ExpiresAtUnixMs int64
	HitCount        int64
}

// PageCacheStats summarizes the cache contents.
type PageCacheStats struct {
	TotalEntries int64
	TotalHits    int64
	Expired      int64
}

// GetCachedPage retrieves a page by key. Expired pages are treated as
// missing. A hit increments the hit count.
func (s *SQLiteStore) GetCachedPage(ctx context.Context, key string) (*CachedPage, error) {
	if key == "" {
		return nil, errors.New("cache key is required")
	}

	now := time.Now().UnixMilli()

	row := s.db.QueryRowContext(ctx, `
		SELECT cache_key, term, page, page_size, response_json,
		       created_at_unix_ms, expires_at_unix_ms, hit_count
		FROM catalog_pages
		WHERE cache_key = ? AND expires_at_unix_ms > ?
	`, key, now)

	var entry CachedPage
	err := row.Scan(
		&entry.CacheKey,
		&entry.Term,
		&entry.Page,
		&entry.PageSize,
		&entry.ResponseJSON,
		&entry.CreatedAtUnixMs,
		&entry.ExpiresAtUnixMs,
		&entry.HitCount,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCacheNotFound
		}
		return nil, fmt.Errorf("failed to get cached page: %w", err)
	}

	// Best effort; a lost hit count is harmless.
	_, _ = s.db.ExecContext(ctx, `
		UPDATE catalog_pages SET hit_count = hit_count + 1 WHERE cache_key = ?
	`, key)

	return &entry, nil
}

// SetCachedPage stores or replaces a page.
func (s *SQLiteStore) SetCachedPage(ctx context.Context, entry *CachedPage) error {
	if entry == nil {
		return errors.New("cache entry cannot be nil")
	}
	if entry.CacheKey == "" {
		return errors.New("cache_key is required")
	}
	if entry.ResponseJSON == "" {
		return errors.New("response_json is required")
	}
	if entry.Page < 1 {
		return fmt.Errorf("page must be >= 1 (got %d)", entry.Page)
	}

	if entry.CreatedAtUnixMs == 0 {
		entry.CreatedAtUnixMs = time.Now().UnixMilli()
	}
	if entry.ExpiresAtUnixMs == 0 {
		entry.ExpiresAtUnixMs = entry.CreatedAtUnixMs + DefaultPageTTL.Milliseconds()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO catalog_pages (
			cache_key, term, page, page_size, response_json,
			created_at_unix_ms, expires_at_unix_ms, hit_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		entry.CacheKey,
		entry.Term,
		entry.Page,
		entry.PageSize,
		entry.ResponseJSON,
		entry.CreatedAtUnixMs,
		entry.ExpiresAtUnixMs,
		entry.HitCount,
	)
	if err != nil {
		return fmt.Errorf("failed to set cached page: %w", err)
	}

	return nil
}

// PruneExpiredPages removes expired pages and returns how many were removed.
func (s *SQLiteStore) PruneExpiredPages(ctx context.Context) (int64, error) {
	now := time.Now().UnixMilli()

	result, err := s.db.ExecContext(ctx, `
		DELETE FROM catalog_pages WHERE expires_at_unix_ms <= ?
	`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to prune page cache: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows, nil
}

// PageCacheStats returns statistics about the page cache.
func (s *SQLiteStore) PageCacheStats(ctx context.Context) (*PageCacheStats, error) {
	now := time.Now().UnixMilli()

	var stats PageCacheStats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(hit_count), 0),
		       COALESCE(SUM(CASE WHEN expires_at_unix_ms <= ? THEN 1 ELSE 0 END), 0)
		FROM catalog_pages
	`, now).Scan(&stats.TotalEntries, &stats.TotalHits, &stats.Expired)
	if err != nil {
		return nil, fmt.Errorf("failed to get page cache stats: %w", err)
	}

	return &stats, nil
}
