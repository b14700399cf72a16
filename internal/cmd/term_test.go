package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// notATerminal returns a regular file, for which termWidth reports 0.
func notATerminal(t *testing.T) *os.File {
	t.Helper()
	f, err := os.Create(filepath.Join(t.TempDir(), "tty"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func TestCheckTerminal(t *testing.T) {
	f := notATerminal(t)

	tests := []struct {
		name    string
		term    string
		columns string
		wantErr string
	}{
		{"unknown width", "xterm-256color", "", ""},
		{"wide enough", "xterm-256color", "80", ""},
		{"exactly minimum", "xterm", "40", ""},
		{"too narrow", "xterm", "39", "too narrow"},
		{"invalid columns", "xterm", "wide", ""},
		{"dumb", "dumb", "120", "TERM=dumb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TERM", tt.term)
			t.Setenv("COLUMNS", tt.columns)

			err := checkTerminal(f)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("checkTerminal() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("checkTerminal() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}
