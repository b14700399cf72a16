package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/runger/discountpick/internal/config"
)

var configCmd = &cobra.Command{
	Use:     "config [key] [value]",
	Short:   "Get or set configuration values",
	GroupID: groupSetup,
	Long: `Get or set discountpick configuration values.

Without arguments, lists all configuration keys.
With one argument, shows the value of that key.
With two arguments, sets the key to the value.

Configuration is stored in ~/.config/discountpick/config.yaml (XDG compliant).
A .env file in the working directory and DISCOUNTPICK_* environment
variables override it.

Keys are in the format: section.key
Sections: catalog, picker, cache, log

Examples:
  discountpick config                                   # List all keys
  discountpick config catalog.base_url https://api.example.com/api
  discountpick config picker.debounce_ms 250
  discountpick config cache.path disk                   # Keep pages between runs`,
	Args: cobra.MaximumNArgs(2),
	RunE: runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, paths, err := loadConfig()
	if err != nil {
		return err
	}

	path := configPath
	if path == "" {
		path = paths.ConfigFile()
	}
	out := cmd.OutOrStdout()

	switch len(args) {
	case 0:
		return listConfig(out, cfg, path)
	case 1:
		return getConfig(out, cfg, args[0])
	case 2:
		return setConfig(out, path, args[0], args[1])
	}

	return nil
}

func listConfig(w io.Writer, cfg *config.Config, path string) error {
	fmt.Fprintf(w, "%sConfiguration Keys%s\n", colorBold, colorReset)
	fmt.Fprintln(w, strings.Repeat("-", 40))
	fmt.Fprintln(w)

	var failedKeys []string
	for _, key := range config.ListKeys() {
		value, err := cfg.Get(key)
		if err != nil {
			failedKeys = append(failedKeys, key)
			continue
		}
		fmt.Fprintf(w, "  %s%s%s = %s\n", colorCyan, key, colorReset, displayValue(key, value))
	}

	if len(failedKeys) > 0 {
		fmt.Fprintf(w, "\n%sWarning:%s Failed to retrieve keys: %s\n", colorYellow, colorReset, strings.Join(failedKeys, ", "))
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Config file: %s\n", path)

	return nil
}

func getConfig(w io.Writer, cfg *config.Config, key string) error {
	value, err := cfg.Get(key)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, displayValue(key, value))
	return nil
}

// setConfig edits the file itself, so values that only come from .env or
// the environment are not written back.
func setConfig(w io.Writer, path, key, value string) error {
	cfg, err := config.LoadFileOnly(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Set(key, value); err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := cfg.SaveToFile(path); err != nil {
		return err
	}

	fmt.Fprintf(w, "%s%s%s = %s\n", colorCyan, key, colorReset, displayValue(key, value))
	fmt.Fprintf(w, "Saved to: %s\n", path)

	return nil
}

// displayValue masks secrets and marks empty values.
func displayValue(key, value string) string {
	switch {
	case value == "":
		return colorDim + "(not set)" + colorReset
	case key == "catalog.api_key":
		return colorDim + "(set, hidden)" + colorReset
	default:
		return value
	}
}
