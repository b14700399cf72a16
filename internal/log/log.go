// Package log builds the structured loggers used across discountpick.
//
// Log format is JSON lines:
//
//	{"ts":"2026-01-15T10:30:00Z","level":"INFO","msg":"catalog page merged","term":"shirt","page":2}
//
// Levels:
//   - debug: every fetch, stale discard and list mutation (DISCOUNTPICK_DEBUG=1)
//   - info: startup, product assignments
//   - warn: failed fetches, unreadable cache entries, vanished picker targets
//   - error: failures that end the command
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Config configures the structured logger.
type Config struct {
	// Output is the writer for log output (default: os.Stderr)
	Output io.Writer

	// Level is the minimum log level (default: LevelInfo)
	Level slog.Level
}

// DefaultConfig returns the default logging configuration.
func DefaultConfig() *Config {
	return &Config{
		Output: os.Stderr,
		Level:  slog.LevelInfo,
	}
}

// New creates a JSON-lines structured logger.
func New(cfg *Config) *slog.Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level: cfg.Level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				a.Key = "ts"
			}
			return a
		},
	}

	return slog.New(slog.NewJSONHandler(output, opts))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ParseLevel maps a config level name (debug, info, warn, error) to a
// slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
}

// OpenFile opens path for appending, creating its directory. The TUI owns
// the terminal, so interactive commands log here instead of stderr.
func OpenFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

// StartupInfo holds information to log when a command starts.
type StartupInfo struct {
	Command    string
	Version    string
	ConfigPath string
	CatalogURL string
	CachePath  string // "" for the in-memory cache
	CacheOn    bool
}

// LogStartup logs command startup information. The API key is never logged.
func LogStartup(logger *slog.Logger, info StartupInfo) {
	cache := "disabled"
	switch {
	case info.CacheOn && info.CachePath == "":
		cache = "memory"
	case info.CacheOn:
		cache = info.CachePath
	}
	logger.Info("discountpick started",
		"command", info.Command,
		"version", info.Version,
		"config_path", info.ConfigPath,
		"catalog_url", info.CatalogURL,
		"cache", cache,
		"pid", os.Getpid(),
	)
}
