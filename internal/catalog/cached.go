package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/runger/discountpick/internal/storage"
)

// PageCache stores serialized search pages. *storage.SQLiteStore
// implements it.
type PageCache interface {
	GetCachedPage(ctx context.Context, key string) (*storage.CachedPage, error)
	SetCachedPage(ctx context.Context, entry *storage.CachedPage) error
}

// CachedSearcher serves repeated queries from a PageCache and forwards
// misses to the wrapped Searcher. Failed searches are never cached.
type CachedSearcher struct {
	next   Searcher
	cache  PageCache
	ttl    time.Duration
	logger *slog.Logger
}

// Compile-time check that CachedSearcher implements Searcher.
var _ Searcher = (*CachedSearcher)(nil)

// NewCachedSearcher wraps next. A zero ttl uses storage.DefaultPageTTL.
func NewCachedSearcher(next Searcher, cache PageCache, ttl time.Duration, logger *slog.Logger) *CachedSearcher {
	if ttl <= 0 {
		ttl = storage.DefaultPageTTL
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &CachedSearcher{next: next, cache: cache, ttl: ttl, logger: logger}
}

// Search implements Searcher.
func (c *CachedSearcher) Search(ctx context.Context, q Query) (Page, error) {
	key := cacheKey(q)

	entry, err := c.cache.GetCachedPage(ctx, key)
	switch {
	case err == nil:
		var page Page
		jerr := json.Unmarshal([]byte(entry.ResponseJSON), &page)
		if jerr == nil {
			c.logger.Debug("page cache hit", "term", q.Term, "page", q.Page)
			return page, nil
		}
		c.logger.Warn("discarding unreadable cached page", "term", q.Term, "page", q.Page, "error", jerr)
	case !errors.Is(err, storage.ErrCacheNotFound):
		c.logger.Warn("page cache lookup failed", "error", err)
	}

	page, err := c.next.Search(ctx, q)
	if err != nil {
		return Page{}, err
	}

	blob, err := json.Marshal(page)
	if err != nil {
		c.logger.Warn("page not cacheable", "error", err)
		return page, nil
	}

	now := time.Now()
	if err := c.cache.SetCachedPage(ctx, &storage.CachedPage{
		CacheKey:        key,
		Term:            q.Term,
		Page:            q.Page,
		PageSize:        q.PageSize,
		ResponseJSON:    string(blob),
		CreatedAtUnixMs: now.UnixMilli(),
		ExpiresAtUnixMs: now.Add(c.ttl).UnixMilli(),
	}); err != nil {
		c.logger.Warn("page cache store failed", "error", err)
	}

	return page, nil
}

// cacheKey joins the query fields with NUL, which cannot appear in a
// search box.
func cacheKey(q Query) string {
	return q.Term + "\x00" + strconv.Itoa(q.Page) + "\x00" + strconv.Itoa(q.PageSize)
}
