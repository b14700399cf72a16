package cmd

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/runger/discountpick/internal/catalog"
	"github.com/runger/discountpick/internal/config"
	"github.com/runger/discountpick/internal/entries"
	dplog "github.com/runger/discountpick/internal/log"
)

// isolateConfig points --config at a fresh file and clears every source
// that could leak settings into the test.
func isolateConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	for _, name := range []string{
		"DISCOUNTPICK_API_KEY",
		"DISCOUNTPICK_CATALOG_URL",
		"DISCOUNTPICK_LOG_LEVEL",
		"DISCOUNTPICK_DEBUG",
	} {
		t.Setenv(name, "")
	}

	orig := configPath
	configPath = filepath.Join(dir, "config.yaml")
	t.Cleanup(func() { configPath = orig })
	withoutColors(t)
	return configPath
}

func runCommand(t *testing.T, run func(*bytes.Buffer) error) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, run(&buf))
	return buf.String()
}

func TestVersionCmd(t *testing.T) {
	out := runCommand(t, func(buf *bytes.Buffer) error {
		versionCmd.SetOut(buf)
		t.Cleanup(func() { versionCmd.SetOut(nil) })
		versionCmd.Run(versionCmd, nil)
		return nil
	})

	assert.True(t, strings.HasPrefix(out, "discountpick "+Version+"\n"))
	assert.Contains(t, out, "commit: "+GitCommit)
}

func TestConfigCmd_SetGetList(t *testing.T) {
	path := isolateConfig(t)
	configCmd.SetOut(io.Discard)
	t.Cleanup(func() { configCmd.SetOut(nil) })

	require.NoError(t, runConfig(configCmd, []string{"catalog.base_url", "https://catalog.example.com/api"}))
	require.NoError(t, runConfig(configCmd, []string{"catalog.api_key", "secret"}))

	saved, err := config.LoadFileOnly(path)
	require.NoError(t, err)
	assert.Equal(t, "https://catalog.example.com/api", saved.Catalog.BaseURL)

	out := runCommand(t, func(buf *bytes.Buffer) error {
		configCmd.SetOut(buf)
		return runConfig(configCmd, []string{"catalog.base_url"})
	})
	assert.Equal(t, "https://catalog.example.com/api\n", out)

	out = runCommand(t, func(buf *bytes.Buffer) error {
		configCmd.SetOut(buf)
		return runConfig(configCmd, nil)
	})
	for _, key := range config.ListKeys() {
		assert.Contains(t, out, key)
	}
	assert.Contains(t, out, "catalog.api_key = (set, hidden)")
	assert.NotContains(t, out, "secret")
	assert.Contains(t, out, "log.file = (not set)")
	assert.Contains(t, out, "Config file: "+path)
}

func TestConfigCmd_SetRejectsInvalid(t *testing.T) {
	path := isolateConfig(t)
	configCmd.SetOut(io.Discard)
	t.Cleanup(func() { configCmd.SetOut(nil) })

	assert.Error(t, runConfig(configCmd, []string{"catalog.base_url", "ftp://catalog"}))
	assert.Error(t, runConfig(configCmd, []string{"picker.debounce_ms", "-1"}))
	assert.Error(t, runConfig(configCmd, []string{"nope.key", "1"}))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "rejected values must not create the file")
}

func TestConfigCmd_SetDoesNotPersistEnvironment(t *testing.T) {
	path := isolateConfig(t)
	t.Setenv("DISCOUNTPICK_API_KEY", "from-env")
	configCmd.SetOut(io.Discard)
	t.Cleanup(func() { configCmd.SetOut(nil) })

	require.NoError(t, runConfig(configCmd, []string{"picker.debounce_ms", "300"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "from-env")
	assert.Contains(t, string(data), "debounce_ms: 300")
}

func TestNewSearcher_RequiresBaseURL(t *testing.T) {
	cfg := config.DefaultConfig()
	_, _, err := newSearcher(context.Background(), cfg, &config.Paths{}, dplog.Discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog.base_url is not set")
}

func TestNewSearcher_Cached(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Catalog.BaseURL = "https://catalog.example.com/api"

	s, closeFn, err := newSearcher(context.Background(), cfg, &config.Paths{}, dplog.Discard())
	require.NoError(t, err)
	defer closeFn()

	_, ok := s.(*catalog.CachedSearcher)
	assert.True(t, ok, "expected cached searcher, got %T", s)
}

func TestNewSearcher_DiskCache(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Catalog.BaseURL = "https://catalog.example.com/api"
	cfg.Cache.Path = config.CacheOnDisk
	paths := &config.Paths{CacheDir: t.TempDir()}

	_, closeFn, err := newSearcher(context.Background(), cfg, paths, dplog.Discard())
	require.NoError(t, err)
	require.NoError(t, closeFn())

	_, err = os.Stat(paths.CacheFile())
	assert.NoError(t, err)
}

func TestNewSearcher_CacheDisabled(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Catalog.BaseURL = "https://catalog.example.com/api"
	cfg.Cache.Enabled = false

	s, closeFn, err := newSearcher(context.Background(), cfg, &config.Paths{}, dplog.Discard())
	require.NoError(t, err)
	assert.NoError(t, closeFn())

	_, ok := s.(*catalog.HTTPSearcher)
	assert.True(t, ok, "expected plain HTTP searcher, got %T", s)
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Log.Level = "chatty"
	_, err := newLogger(cfg, io.Discard)
	assert.Error(t, err)
}

func TestWriteEntries(t *testing.T) {
	id := uuid.MustParse("6f1c2b1e-8a47-4c1e-9f51-2c7d9d1e0a11")
	list := []entries.Entry{
		{
			ID:       id,
			Ordinal:  1,
			Product:  &catalog.Product{ID: 7, Title: "Linen Shirt", Variants: []catalog.Variant{{ID: 101}}},
			Discount: "10%",
			Variants: []catalog.Variant{{ID: 101, ProductID: 7, Title: "S", SKU: "LS-S", Price: 27.5}},
		},
		{ID: uuid.New(), Ordinal: 2},
	}

	var buf bytes.Buffer
	require.NoError(t, writeEntries(&buf, list))

	var doc struct {
		Entries []map[string]any `yaml:"entries"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc.Entries, 2)

	first := doc.Entries[0]
	assert.Equal(t, id.String(), first["id"])
	assert.Equal(t, "10%", first["discount"])
	product := first["product"].(map[string]any)
	assert.Equal(t, "Linen Shirt", product["title"])
	assert.NotContains(t, product, "variants")
	variants := first["variants"].([]any)
	require.Len(t, variants, 1)
	assert.Equal(t, "LS-S", variants[0].(map[string]any)["sku"])

	second := doc.Entries[1]
	assert.NotContains(t, second, "product")
	assert.Equal(t, "", second["discount"])
}

func TestWriteEntries_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeEntries(&buf, nil))
	assert.Equal(t, "entries: []\n", buf.String())
}

func TestNewSearcher_CloseLogsCacheStats(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Catalog.BaseURL = "https://catalog.example.com/api"

	var buf bytes.Buffer
	logger := dplog.New(&dplog.Config{Output: &buf, Level: slog.LevelDebug})

	_, closeFn, err := newSearcher(context.Background(), cfg, &config.Paths{}, logger)
	require.NoError(t, err)
	require.NoError(t, closeFn())

	assert.Contains(t, buf.String(), `"msg":"page cache stats"`)
	assert.Contains(t, buf.String(), `"pages":0`)
}

func TestOpenLogFile_DefaultCreatesDirectories(t *testing.T) {
	root := t.TempDir()
	paths := &config.Paths{
		ConfigDir: filepath.Join(root, "config"),
		DataDir:   filepath.Join(root, "data"),
		CacheDir:  filepath.Join(root, "cache"),
	}

	f, err := openLogFile(config.DefaultConfig(), paths)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, paths.LogFile(), f.Name())
	for _, dir := range []string{paths.ConfigDir, paths.CacheDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestOpenLogFile_Configured(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Log.File = filepath.Join(t.TempDir(), "logs", "edit.log")
	paths := &config.Paths{ConfigDir: filepath.Join(t.TempDir(), "unused")}

	f, err := openLogFile(cfg, paths)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, cfg.Log.File, f.Name())
	_, err = os.Stat(paths.ConfigDir)
	assert.True(t, os.IsNotExist(err), "an explicit log file skips directory setup")
}
