//go:build windows

package cmd

import "os"

// openTTY returns stdout; the console is always the controlling terminal.
func openTTY() (*os.File, error) {
	return os.Stdout, nil
}

// termWidth returns 0 on Windows; width detection falls back to $COLUMNS.
func termWidth(*os.File) int {
	return 0
}
