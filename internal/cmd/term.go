package cmd

import (
	"fmt"
	"os"
	"strconv"
)

// minTermWidth is the narrowest terminal the list and picker render in.
const minTermWidth = 40

// checkTerminal verifies tty can host the TUI.
func checkTerminal(tty *os.File) error {
	if os.Getenv("TERM") == "dumb" {
		return fmt.Errorf("TERM=dumb is not supported")
	}

	width := termWidth(tty)
	if width == 0 {
		width, _ = strconv.Atoi(os.Getenv("COLUMNS"))
	}
	if width > 0 && width < minTermWidth {
		return fmt.Errorf("terminal too narrow (%d columns, need at least %d)", width, minTermWidth)
	}
	return nil
}
