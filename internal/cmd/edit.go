package cmd

import (
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/runger/discountpick/internal/entries"
	"github.com/runger/discountpick/internal/picker"
	"github.com/runger/discountpick/internal/ui"
)

var editCmd = &cobra.Command{
	Use:     "edit",
	Short:   "Build a discount list interactively",
	GroupID: groupWork,
	Long: `Open the entry list. Add entries, pick a product and its variants for
each one from the catalog, and type a discount.

When you quit, the entries are written to stdout as YAML, so

  discountpick edit > discounts.yaml

captures the list while the interface stays on the terminal.

Keys:
  a        add an entry
  enter    pick the product of the selected entry
  e        edit the discount of the selected entry
  d        remove the selected entry
  q        quit`,
	Args: cobra.NoArgs,
	RunE: runEdit,
}

func runEdit(cmd *cobra.Command, args []string) error {
	tty, err := openTTY()
	if err != nil {
		return err
	}
	if tty != os.Stdout {
		defer tty.Close()
	}
	if err := checkTerminal(tty); err != nil {
		return err
	}

	cfg, paths, err := loadConfig()
	if err != nil {
		return err
	}

	logFile, err := openLogFile(cfg, paths)
	if err != nil {
		return err
	}
	defer logFile.Close()

	logger, err := newLogger(cfg, logFile)
	if err != nil {
		return err
	}
	logStartup(logger, "edit", cfg, paths)

	searcher, closeSearcher, err := newSearcher(cmd.Context(), cfg, paths, logger)
	if err != nil {
		return err
	}
	defer closeSearcher()

	app := ui.NewApp(entries.NewManager(logger), ui.Options{
		Searcher: searcher,
		Picker: picker.Options{
			Debounce:     cfg.Debounce(),
			FetchTimeout: cfg.FetchTimeout(),
			Logger:       logger,
		},
		Logger: logger,
	})

	// Styles follow the terminal, not stdout, which is often redirected.
	lipgloss.SetColorProfile(termenv.NewOutput(tty).ColorProfile())

	p := tea.NewProgram(app,
		tea.WithAltScreen(),
		tea.WithInput(tty),
		tea.WithOutput(tty),
	)
	final, err := p.Run()
	if err != nil {
		logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}

	a, ok := final.(ui.App)
	if !ok {
		return fmt.Errorf("unexpected model type %T", final)
	}
	return writeEntries(cmd.OutOrStdout(), a.Manager().Entries())
}

// entriesDocument is the YAML shape printed when the editor exits.
type entriesDocument struct {
	Entries []entries.Entry `yaml:"entries"`
}

// writeEntries prints list as YAML.
func writeEntries(w io.Writer, list []entries.Entry) error {
	if list == nil {
		list = []entries.Entry{}
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(entriesDocument{Entries: list}); err != nil {
		return fmt.Errorf("failed to write entries: %w", err)
	}
	return enc.Close()
}
