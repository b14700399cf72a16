package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// CacheOnDisk is the cache.path value selecting Paths.CacheFile.
const CacheOnDisk = "disk"

// Config represents the discountpick configuration.
type Config struct {
	Catalog CatalogConfig `yaml:"catalog"`
	Picker  PickerConfig  `yaml:"picker"`
	Cache   CacheConfig   `yaml:"cache"`
	Log     LogConfig     `yaml:"log"`
}

// CatalogConfig holds settings for the remote product catalog.
type CatalogConfig struct {
	BaseURL      string  `yaml:"base_url"`       // Catalog API root, e.g. https://api.example.com/api
	APIKey       string  `yaml:"api_key"`        // Sent as x-api-key; prefer DISCOUNTPICK_API_KEY
	TimeoutMs    int     `yaml:"timeout_ms"`     // Per-page fetch timeout (0 = none)
	RateLimitRPS float64 `yaml:"rate_limit_rps"` // Max requests per second (0 = unlimited)
}

// PickerConfig holds product picker settings.
type PickerConfig struct {
	DebounceMs int `yaml:"debounce_ms"` // Delay after the last keystroke before searching
}

// CacheConfig holds search page cache settings.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	TTLSecs int    `yaml:"ttl_secs"` // Page lifetime
	Path    string `yaml:"path"`     // "" = in-memory, "disk" = default cache file, else a file path
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`  // Log file path (overrides default)
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Catalog: CatalogConfig{
			BaseURL:      "",
			TimeoutMs:    10000,
			RateLimitRPS: 5,
		},
		Picker: PickerConfig{
			DebounceMs: 150,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTLSecs: 60,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads the configuration from the default path.
func Load() (*Config, error) {
	paths := DefaultPaths()
	return LoadFromFile(paths.ConfigFile())
}

// LoadFromFile loads configuration from path, then applies a .env file in
// the working directory and environment overrides.
func LoadFromFile(path string) (*Config, error) {
	cfg, err := LoadFileOnly(path)
	if err != nil {
		return nil, err
	}

	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// LoadFileOnly reads path over the defaults without consulting the
// environment. A missing file yields the defaults.
func LoadFileOnly(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	return cfg, nil
}

// LoadDotEnv loads variables from a dotenv file into the process
// environment. Variables already set are kept. A missing file is not an
// error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// SaveToFile saves the configuration to a specific file.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// The file may hold the API key.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// FetchTimeout returns catalog.timeout_ms as a duration.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Catalog.TimeoutMs) * time.Millisecond
}

// Debounce returns picker.debounce_ms as a duration.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Picker.DebounceMs) * time.Millisecond
}

// CacheTTL returns cache.ttl_secs as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSecs) * time.Second
}

// CacheLocation resolves cache.path against p. It returns "" for an
// in-memory cache.
func (c *Config) CacheLocation(p *Paths) string {
	switch c.Cache.Path {
	case "":
		return ""
	case CacheOnDisk:
		return p.CacheFile()
	default:
		return c.Cache.Path
	}
}

// Get retrieves a configuration value by key (e.g., "catalog.base_url").
func (c *Config) Get(key string) (string, error) {
	parts := strings.Split(key, ".")
	if len(parts) != 2 {
		return "", errors.New("key must be in format 'section.key'")
	}

	section, field := parts[0], parts[1]

	switch section {
	case "catalog":
		return c.getCatalogField(field)
	case "picker":
		return c.getPickerField(field)
	case "cache":
		return c.getCacheField(field)
	case "log":
		return c.getLogField(field)
	default:
		return "", fmt.Errorf("unknown section: %s", section)
	}
}

// Set sets a configuration value by key.
func (c *Config) Set(key, value string) error {
	parts := strings.Split(key, ".")
	if len(parts) != 2 {
		return errors.New("key must be in format 'section.key'")
	}

	section, field := parts[0], parts[1]

	switch section {
	case "catalog":
		return c.setCatalogField(field, value)
	case "picker":
		return c.setPickerField(field, value)
	case "cache":
		return c.setCacheField(field, value)
	case "log":
		return c.setLogField(field, value)
	default:
		return fmt.Errorf("unknown section: %s", section)
	}
}

func (c *Config) getCatalogField(field string) (string, error) {
	switch field {
	case "base_url":
		return c.Catalog.BaseURL, nil
	case "api_key":
		return c.Catalog.APIKey, nil
	case "timeout_ms":
		return strconv.Itoa(c.Catalog.TimeoutMs), nil
	case "rate_limit_rps":
		return strconv.FormatFloat(c.Catalog.RateLimitRPS, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("unknown field: catalog.%s", field)
	}
}

func (c *Config) setCatalogField(field, value string) error {
	switch field {
	case "base_url":
		if err := validateBaseURL(value); err != nil {
			return err
		}
		c.Catalog.BaseURL = value
	case "api_key":
		c.Catalog.APIKey = value
	case "timeout_ms":
		v, err := parseNonNegativeInt("timeout_ms", value)
		if err != nil {
			return err
		}
		c.Catalog.TimeoutMs = v
	case "rate_limit_rps":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid value for rate_limit_rps: %w", err)
		}
		if v < 0 {
			return errors.New("invalid rate_limit_rps: must be non-negative")
		}
		c.Catalog.RateLimitRPS = v
	default:
		return fmt.Errorf("unknown field: catalog.%s", field)
	}
	return nil
}

func (c *Config) getPickerField(field string) (string, error) {
	switch field {
	case "debounce_ms":
		return strconv.Itoa(c.Picker.DebounceMs), nil
	default:
		return "", fmt.Errorf("unknown field: picker.%s", field)
	}
}

func (c *Config) setPickerField(field, value string) error {
	switch field {
	case "debounce_ms":
		v, err := parseNonNegativeInt("debounce_ms", value)
		if err != nil {
			return err
		}
		c.Picker.DebounceMs = v
	default:
		return fmt.Errorf("unknown field: picker.%s", field)
	}
	return nil
}

func (c *Config) getCacheField(field string) (string, error) {
	switch field {
	case "enabled":
		return strconv.FormatBool(c.Cache.Enabled), nil
	case "ttl_secs":
		return strconv.Itoa(c.Cache.TTLSecs), nil
	case "path":
		return c.Cache.Path, nil
	default:
		return "", fmt.Errorf("unknown field: cache.%s", field)
	}
}

func (c *Config) setCacheField(field, value string) error {
	switch field {
	case "enabled":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for enabled: %w", err)
		}
		c.Cache.Enabled = v
	case "ttl_secs":
		v, err := parseNonNegativeInt("ttl_secs", value)
		if err != nil {
			return err
		}
		c.Cache.TTLSecs = v
	case "path":
		c.Cache.Path = value
	default:
		return fmt.Errorf("unknown field: cache.%s", field)
	}
	return nil
}

func (c *Config) getLogField(field string) (string, error) {
	switch field {
	case "level":
		return c.Log.Level, nil
	case "file":
		return c.Log.File, nil
	default:
		return "", fmt.Errorf("unknown field: log.%s", field)
	}
}

func (c *Config) setLogField(field, value string) error {
	switch field {
	case "level":
		if !isValidLogLevel(value) {
			return fmt.Errorf("invalid level: %s (must be debug, info, warn, or error)", value)
		}
		c.Log.Level = value
	case "file":
		c.Log.File = value
	default:
		return fmt.Errorf("unknown field: log.%s", field)
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Catalog.BaseURL != "" {
		if err := validateBaseURL(c.Catalog.BaseURL); err != nil {
			return fmt.Errorf("catalog.base_url: %w", err)
		}
	}

	if c.Catalog.TimeoutMs < 0 {
		return errors.New("catalog.timeout_ms must be >= 0")
	}

	if c.Catalog.RateLimitRPS < 0 {
		return errors.New("catalog.rate_limit_rps must be >= 0")
	}

	if c.Picker.DebounceMs < 0 {
		return errors.New("picker.debounce_ms must be >= 0")
	}

	if c.Cache.TTLSecs < 0 {
		return errors.New("cache.ttl_secs must be >= 0")
	}

	if !isValidLogLevel(c.Log.Level) {
		return fmt.Errorf("log.level must be debug, info, warn, or error (got: %s)", c.Log.Level)
	}

	return nil
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid base_url: scheme must be http or https (got: %q)", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("invalid base_url: missing host")
	}
	return nil
}

func parseNonNegativeInt(name, value string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %w", name, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("invalid %s: must be non-negative", name)
	}
	return v, nil
}

// ApplyEnvOverrides applies environment variable overrides to the config.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("DISCOUNTPICK_API_KEY"); v != "" {
		c.Catalog.APIKey = v
	}
	if v := os.Getenv("DISCOUNTPICK_CATALOG_URL"); v != "" {
		c.Catalog.BaseURL = v
	}
	if v := os.Getenv("DISCOUNTPICK_LOG_LEVEL"); v != "" {
		if isValidLogLevel(v) {
			c.Log.Level = v
		}
	}
	if v := os.Getenv("DISCOUNTPICK_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil && b {
			c.Log.Level = "debug"
		}
	}
}

// ListKeys returns user-facing configuration keys.
func ListKeys() []string {
	return []string{
		"catalog.base_url",
		"catalog.api_key",
		"catalog.timeout_ms",
		"catalog.rate_limit_rps",
		"picker.debounce_ms",
		"cache.enabled",
		"cache.ttl_secs",
		"cache.path",
		"log.level",
		"log.file",
	}
}
