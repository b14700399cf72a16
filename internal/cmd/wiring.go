package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/runger/discountpick/internal/catalog"
	"github.com/runger/discountpick/internal/config"
	dplog "github.com/runger/discountpick/internal/log"
	"github.com/runger/discountpick/internal/storage"
)

// configPath overrides the config file location (--config).
var configPath string

// loadConfig reads the config file, .env and environment.
func loadConfig() (*config.Config, *config.Paths, error) {
	paths := config.DefaultPaths()
	path := configPath
	if path == "" {
		path = paths.ConfigFile()
	}
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, paths, nil
}

// newLogger builds the JSON logger for cfg writing to w.
func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	level, err := dplog.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	return dplog.New(&dplog.Config{Output: w, Level: level}), nil
}

// openLogFile opens log.file, or the default log file after creating the
// application directories.
func openLogFile(cfg *config.Config, paths *config.Paths) (*os.File, error) {
	if cfg.Log.File != "" {
		return dplog.OpenFile(cfg.Log.File)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}
	return dplog.OpenFile(paths.LogFile())
}

// newSearcher builds the catalog searcher described by cfg: the HTTP
// client, fronted by the SQLite page cache when enabled. The returned
// close function releases the cache.
func newSearcher(ctx context.Context, cfg *config.Config, paths *config.Paths, logger *slog.Logger) (catalog.Searcher, func() error, error) {
	if cfg.Catalog.BaseURL == "" {
		return nil, nil, errors.New("catalog.base_url is not set (run: discountpick config catalog.base_url URL, or set DISCOUNTPICK_CATALOG_URL)")
	}

	httpSearcher, err := catalog.NewHTTPSearcher(catalog.HTTPConfig{
		BaseURL:      cfg.Catalog.BaseURL,
		APIKey:       cfg.Catalog.APIKey,
		RateLimitRPS: cfg.Catalog.RateLimitRPS,
		Logger:       logger,
	})
	if err != nil {
		return nil, nil, err
	}

	noop := func() error { return nil }
	if !cfg.Cache.Enabled {
		return httpSearcher, noop, nil
	}

	store, err := storage.NewSQLiteStore(cfg.CacheLocation(paths))
	if err != nil {
		// The cache only saves round trips; search without it.
		logger.Warn("page cache unavailable", "error", err)
		return httpSearcher, noop, nil
	}

	if !store.InMemory() {
		if n, err := store.PruneExpiredPages(ctx); err != nil {
			logger.Warn("failed to prune page cache", "error", err)
		} else if n > 0 {
			logger.Debug("pruned expired cache pages", "count", n)
		}
	}

	closeStore := func() error {
		logCacheStats(logger, store)
		return store.Close()
	}
	return catalog.NewCachedSearcher(httpSearcher, store, cfg.CacheTTL(), logger), closeStore, nil
}

// logCacheStats records how much the page cache saved this run.
func logCacheStats(logger *slog.Logger, store *storage.SQLiteStore) {
	stats, err := store.PageCacheStats(context.Background())
	if err != nil {
		logger.Warn("failed to read page cache stats", "error", err)
		return
	}
	logger.Debug("page cache stats",
		"pages", stats.TotalEntries,
		"hits", stats.TotalHits,
		"expired", stats.Expired,
	)
}

// logStartup records which command runs against which catalog.
func logStartup(logger *slog.Logger, command string, cfg *config.Config, paths *config.Paths) {
	path := configPath
	if path == "" {
		path = paths.ConfigFile()
	}
	dplog.LogStartup(logger, dplog.StartupInfo{
		Command:    command,
		Version:    Version,
		ConfigPath: path,
		CatalogURL: cfg.Catalog.BaseURL,
		CachePath:  cfg.CacheLocation(paths),
		CacheOn:    cfg.Cache.Enabled,
	})
}
