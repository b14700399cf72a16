package picker

import (
	"strings"
	"unicode"

	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
)

const ellipsis = "…"

// DisplayText makes catalog text safe for a single terminal row: invalid
// UTF-8 is replaced, escape sequences are removed, control characters
// become spaces, and the result is cut to width display columns (width <= 0
// means no limit).
func DisplayText(s string, width int) string {
	s = strings.ToValidUTF8(s, "�")
	s = ansi.Strip(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
	s = strings.TrimSpace(s)

	if width > 0 && runewidth.StringWidth(s) > width {
		s = runewidth.Truncate(s, width, ellipsis)
	}
	return s
}
