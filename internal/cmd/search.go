package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/runger/discountpick/internal/catalog"
	"github.com/runger/discountpick/internal/picker"
)

var (
	searchJSON     bool
	searchPages    int
	searchVariants bool
)

var searchCmd = &cobra.Command{
	Use:     "search <term>",
	Short:   "Search the catalog without the interface",
	GroupID: groupWork,
	Long: `Search the product catalog the way the picker does and print the
accumulated results. Pages are fetched in order and merged, so a product
returned on several pages is listed once.

Examples:
  discountpick search shirt              # First page
  discountpick search --pages 3 shirt    # Up to three pages
  discountpick search --json "linen"     # Output as JSON`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().IntVarP(&searchPages, "pages", "p", 1, "maximum number of pages to fetch")
	searchCmd.Flags().BoolVarP(&searchVariants, "variants", "v", false, "list each product's variants")
	searchCmd.Flags().StringVar(&colorMode, "color", "auto", "color output: auto, always, or never")
}

type searchResponse struct {
	Term     string            `json:"term"`
	Pages    int               `json:"pages"`
	HasMore  bool              `json:"has_more"`
	Products []catalog.Product `json:"products"`
	Error    string            `json:"error,omitempty"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	applyColorMode()

	if searchPages < 1 {
		return errors.New("--pages must be at least 1")
	}

	cfg, paths, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	logStartup(logger, "search", cfg, paths)

	searcher, closeSearcher, err := newSearcher(cmd.Context(), cfg, paths, logger)
	if err != nil {
		return err
	}
	defer closeSearcher()

	term := strings.Join(args, " ")
	session, fetchErr := collectPages(cmd.Context(), searcher, term, searchPages, cfg.FetchTimeout())

	out := cmd.OutOrStdout()
	if searchJSON {
		if err := writeSearchJSON(out, session, fetchErr); err != nil {
			return err
		}
	} else {
		writeSearchText(out, session, searchVariants)
	}

	if fetchErr != nil {
		return fmt.Errorf("failed to load products: %w", fetchErr)
	}
	return nil
}

// collectPages drives a picker through up to maxPages pages of term and
// returns its final session. A failed page stops collection; results
// merged before it are kept.
func collectPages(ctx context.Context, s catalog.Searcher, term string, maxPages int, timeout time.Duration) (picker.Session, error) {
	p := picker.New(picker.Callbacks{})

	req, ok := p.SetTerm(term)
	if !ok {
		return p.Session(), catalog.ErrBlankTerm
	}

	for fetched := 0; ok && fetched < maxPages; fetched++ {
		resp := picker.Fetch(ctx, s, req, timeout)
		p.Receive(resp)
		if resp.Err != nil {
			return p.Session(), resp.Err
		}
		req, ok = p.LoadMore()
	}
	return p.Session(), nil
}

func writeSearchText(w io.Writer, s picker.Session, variants bool) {
	if len(s.Results) == 0 {
		fmt.Fprintln(w, "No products found")
		return
	}

	for i, p := range s.Results {
		fmt.Fprintf(w, "%s%3d.%s %s %s(#%d)%s\n",
			colorDim, i+1, colorReset,
			picker.DisplayText(p.Title, 0),
			colorDim, p.ID, colorReset)

		if !variants {
			continue
		}
		if src := p.ImageSrc(); src != "" {
			fmt.Fprintf(w, "       %simage: %s%s\n", colorDim, src, colorReset)
		}
		if len(p.Variants) == 0 {
			fmt.Fprintf(w, "       %sNo Variants%s\n", colorDim, colorReset)
		}
		for _, v := range p.Variants {
			fmt.Fprintf(w, "       - %s %s(SKU: %s)%s %s$%s%s\n",
				picker.DisplayText(v.Title, 0),
				colorDim, v.SKU, colorReset,
				colorGreen, v.Price, colorReset)
		}
	}

	fmt.Fprintln(w)
	summary := fmt.Sprintf("%d products from %d pages", len(s.Results), s.Page)
	if s.HasMore {
		summary += " (more available, use --pages)"
	}
	fmt.Fprintf(w, "%s%s%s\n", colorCyan, summary, colorReset)
}

func writeSearchJSON(w io.Writer, s picker.Session, fetchErr error) error {
	resp := searchResponse{
		Term:     s.Term,
		Pages:    s.Page,
		HasMore:  s.HasMore,
		Products: s.Results,
	}
	if resp.Products == nil {
		resp.Products = []catalog.Product{}
	}
	if fetchErr != nil {
		resp.Error = fetchErr.Error()
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
