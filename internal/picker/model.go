package picker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/runger/discountpick/internal/catalog"
)

// DefaultDebounce is the delay after the last keystroke before a search
// is sent.
const DefaultDebounce = 150 * time.Millisecond

// Options tunes a Model.
type Options struct {
	Debounce     time.Duration // 0 sends every edit immediately
	FetchTimeout time.Duration // 0 waits indefinitely
	Logger       *slog.Logger
}

// fetchDoneMsg is sent when an async Fetch completes.
type fetchDoneMsg struct {
	resp Response
}

// debounceMsg fires after the debounce timer expires.
type debounceMsg struct {
	req Request // Only dispatched if still the pending request
}

type rowKind int

const (
	rowProduct rowKind = iota
	rowVariant
	rowLoadMore
)

// row is one selectable line of the result list.
type row struct {
	kind    rowKind
	product catalog.Product
	variant catalog.Variant
}

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Select   key.Binding
	Toggle   key.Binding
	LoadMore key.Binding
	Commit   key.Binding
	Cancel   key.Binding
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Select, k.LoadMore, k.Commit, k.Cancel}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Up, k.Down, k.Select, k.Toggle}, {k.LoadMore, k.Commit, k.Cancel}}
}

var keys = keyMap{
	Up:       key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "up")),
	Down:     key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "down")),
	Select:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "expand/toggle")),
	Toggle:   key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle")),
	LoadMore: key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "load more")),
	Commit:   key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "add product")),
	Cancel:   key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "cancel")),
}

// Model is the Bubble Tea front end of a Picker. It owns the search input,
// schedules fetches, and renders results; all state transitions go
// through the Picker.
type Model struct {
	picker   *Picker
	searcher catalog.Searcher
	opts     Options
	logger   *slog.Logger

	input   textinput.Model
	spinner spinner.Model
	help    help.Model

	cursor int // Index into rows(); -1 while the search input has focus

	width  int
	height int

	// cancelFetch cancels the in-flight Fetch context.
	cancelFetch context.CancelFunc
}

// NewModel wraps p. Fetches go through s.
func NewModel(p *Picker, s catalog.Searcher, opts Options) Model {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	ti := textinput.New()
	ti.Placeholder = "Search for a product"
	ti.Prompt = "Search: "
	ti.CharLimit = 256
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		picker:   p,
		searcher: s,
		opts:     opts,
		logger:   logger,
		input:    ti,
		spinner:  sp,
		help:     help.New(),
		cursor:   -1,
	}
}

// Picker returns the underlying state machine.
func (m Model) Picker() *Picker {
	return m.picker
}

// Done reports whether the picker has committed or been cancelled.
func (m Model) Done() bool {
	return m.picker.Done()
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case fetchDoneMsg:
		return m.handleFetchDone(msg)

	case debounceMsg:
		return m.handleDebounce(msg)

	case spinner.TickMsg:
		if !m.picker.Session().Loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	// Cursor blink and other input housekeeping.
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.picker.Done() {
		return m, nil
	}

	switch {
	case key.Matches(msg, keys.Cancel):
		m.cancelInflight()
		m.picker.Cancel()
		m.logger.Debug("picker cancelled")
		return m, nil

	case key.Matches(msg, keys.Commit):
		return m.commit()

	case key.Matches(msg, keys.LoadMore):
		return m.loadMore()

	case key.Matches(msg, keys.Up):
		m.moveCursor(-1)
		return m, nil

	case key.Matches(msg, keys.Down):
		m.moveCursor(1)
		return m, nil
	}

	if m.cursor < 0 {
		if key.Matches(msg, keys.Select) {
			m.moveCursor(1)
			return m, nil
		}
		return m.updateInput(msg)
	}

	if key.Matches(msg, keys.Select, keys.Toggle) {
		return m.activate()
	}

	// Any other key goes back to the search box.
	m.cursor = -1
	m.input.Focus()
	return m.updateInput(msg)
}

// updateInput forwards msg to the search box and reacts to term edits.
func (m Model) updateInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	before := m.input.Value()

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)

	if m.input.Value() == before {
		return m, cmd
	}
	return m, tea.Batch(cmd, m.termChanged(m.input.Value()))
}

// termChanged invalidates the session immediately and schedules the
// page-1 fetch for a non-blank term.
func (m *Model) termChanged(term string) tea.Cmd {
	m.cancelInflight()
	req, ok := m.picker.SetTerm(term)
	if !ok {
		return nil
	}
	if m.opts.Debounce <= 0 {
		return m.startFetch(req)
	}
	return tea.Tick(m.opts.Debounce, func(time.Time) tea.Msg {
		return debounceMsg{req: req}
	})
}

// handleDebounce fires the fetch if the request is still pending.
func (m Model) handleDebounce(msg debounceMsg) (tea.Model, tea.Cmd) {
	pending, ok := m.picker.Session().Pending()
	if !ok || pending != msg.req {
		return m, nil // Superseded while waiting; ignore.
	}
	return m, m.startFetch(msg.req)
}

// startFetch cancels any in-flight fetch and returns a command that runs
// req against the searcher.
func (m *Model) startFetch(req Request) tea.Cmd {
	m.cancelInflight()

	ctx, cancel := context.WithCancel(context.Background())
	m.cancelFetch = cancel

	m.logger.Debug("fetching catalog page", "term", req.Term, "page", req.Page, "seq", req.Seq)

	s := m.searcher
	timeout := m.opts.FetchTimeout
	fetch := func() tea.Msg {
		return fetchDoneMsg{resp: Fetch(ctx, s, req, timeout)}
	}
	return tea.Batch(fetch, m.spinner.Tick)
}

// handleFetchDone applies a fetch outcome; stale ones are dropped.
func (m Model) handleFetchDone(msg fetchDoneMsg) (tea.Model, tea.Cmd) {
	req := msg.resp.Request
	if !m.picker.Receive(msg.resp) {
		m.logger.Debug("discarding stale catalog response", "term", req.Term, "page", req.Page, "seq", req.Seq)
		return m, nil
	}
	m.cancelInflight()

	if msg.resp.Err != nil {
		m.logger.Warn("catalog search failed", "term", req.Term, "page", req.Page, "error", msg.resp.Err)
	} else {
		m.logger.Debug("catalog page merged",
			"term", req.Term,
			"page", req.Page,
			"received", len(msg.resp.Products),
			"total", len(m.picker.Session().Results),
		)
	}

	m.clampCursor()
	return m, nil
}

func (m Model) loadMore() (tea.Model, tea.Cmd) {
	req, ok := m.picker.LoadMore()
	if !ok {
		return m, nil
	}
	return m, m.startFetch(req)
}

// activate expands the product under the cursor, toggles the variant under
// it, or loads more.
func (m Model) activate() (tea.Model, tea.Cmd) {
	rows := m.rows()
	if m.cursor < 0 || m.cursor >= len(rows) {
		return m, nil
	}

	r := rows[m.cursor]
	switch r.kind {
	case rowProduct:
		if err := m.picker.Expand(r.product.ID); err != nil {
			m.logger.Warn("expand failed", "product", r.product.ID, "error", err)
			return m, nil
		}
		m.cursor = m.productRow(r.product.ID)
	case rowVariant:
		if err := m.picker.Toggle(r.variant.ID); err != nil {
			m.logger.Warn("toggle failed", "variant", r.variant.ID, "error", err)
		}
	case rowLoadMore:
		return m.loadMore()
	}
	return m, nil
}

func (m Model) commit() (tea.Model, tea.Cmd) {
	if !m.picker.CanCommit() {
		return m, nil
	}
	m.cancelInflight()
	m.picker.Commit()
	m.input.Reset()
	m.cursor = -1
	return m, nil
}

// cancelInflight cancels any in-progress fetch context.
func (m *Model) cancelInflight() {
	if m.cancelFetch != nil {
		m.cancelFetch()
		m.cancelFetch = nil
	}
}

// rows flattens results, the expanded product's variants, and the
// load-more action into selectable lines.
func (m Model) rows() []row {
	s := m.picker.Session()
	expanded, hasExpanded := m.picker.Expanded()

	rows := make([]row, 0, len(s.Results)+1)
	for _, p := range s.Results {
		rows = append(rows, row{kind: rowProduct, product: p})
		if hasExpanded && expanded.ID == p.ID {
			for _, v := range p.Variants {
				rows = append(rows, row{kind: rowVariant, product: p, variant: v})
			}
		}
	}
	if s.HasMore && !s.Loading && s.Term != "" {
		rows = append(rows, row{kind: rowLoadMore})
	}
	return rows
}

func (m Model) productRow(id catalog.ProductID) int {
	for i, r := range m.rows() {
		if r.kind == rowProduct && r.product.ID == id {
			return i
		}
	}
	return -1
}

func (m *Model) moveCursor(delta int) {
	n := len(m.rows())
	c := m.cursor + delta
	if c >= n {
		c = n - 1
	}
	if c < -1 {
		c = -1
	}
	m.cursor = c
	if m.cursor < 0 {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
}

// clampCursor keeps the cursor on an existing row.
func (m *Model) clampCursor() {
	if n := len(m.rows()); m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = -1
		m.input.Focus()
	}
}

// listHeight returns the number of visible list rows.
func (m Model) listHeight() int {
	// search line, status line, blank, footer, help
	const chrome = 5
	h := m.height - chrome
	if h < 1 {
		h = 15 // Sensible default before first WindowSizeMsg
	}
	return h
}

func (m Model) contentWidth() int {
	if m.width > 8 {
		return m.width - 8
	}
	return 72
}

// --- View rendering ---

var (
	selectedStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	normalStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	variantStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	actionStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	buttonStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62")).Padding(0, 1)
	disabledButton = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Background(lipgloss.Color("236")).Padding(0, 1)
)

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.input.View())
	b.WriteRune('\n')
	b.WriteString(m.viewStatus())
	b.WriteRune('\n')

	if list := m.viewList(); list != "" {
		b.WriteString(list)
		b.WriteRune('\n')
	}

	b.WriteRune('\n')
	b.WriteString(m.viewFooter())
	b.WriteRune('\n')
	b.WriteString(m.help.View(keys))

	return b.String()
}

// viewStatus renders the one-line search status.
func (m Model) viewStatus() string {
	s := m.picker.Session()
	switch m.picker.State() {
	case StateIdle:
		return dimStyle.Render("Type to search the catalog")
	case StateLoading:
		return m.spinner.View() + dimStyle.Render(" Loading products...")
	case StateEmpty:
		return dimStyle.Render("No products found")
	case StateError:
		msg := "Failed to load products"
		if s.Err != nil {
			msg += ": " + DisplayText(s.Err.Error(), m.contentWidth()-len(msg))
		}
		return errorStyle.Render(msg)
	case StateLoaded:
		return dimStyle.Render(fmt.Sprintf("%d products", len(s.Results)))
	default:
		return ""
	}
}

// viewList renders the visible window of rows with a cursor marker.
func (m Model) viewList() string {
	rows := m.rows()
	if len(rows) == 0 {
		return ""
	}

	h := m.listHeight()
	start := 0
	if m.cursor >= h {
		start = m.cursor - h + 1
	}
	end := start + h
	if end > len(rows) {
		end = len(rows)
	}

	width := m.contentWidth()
	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		line := m.renderRow(rows[i], width)
		if i == m.cursor {
			lines = append(lines, selectedStyle.Render("> "+line))
			continue
		}
		style := normalStyle
		switch rows[i].kind {
		case rowVariant:
			style = variantStyle
		case rowLoadMore:
			style = actionStyle
		}
		lines = append(lines, style.Render("  "+line))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderRow(r row, width int) string {
	switch r.kind {
	case rowProduct:
		marker := "▸"
		if exp, ok := m.picker.Expanded(); ok && exp.ID == r.product.ID {
			marker = "▾"
		}
		title := DisplayText(r.product.Title, width-2)
		if title == "" {
			title = fmt.Sprintf("Product %d", r.product.ID)
		}
		return marker + " " + title
	case rowVariant:
		box := "[ ]"
		if m.picker.IsSelected(r.variant.ID) {
			box = "[x]"
		}
		label := fmt.Sprintf("%s - $%s", r.variant.Title, r.variant.Price)
		return "    " + box + " " + DisplayText(label, width-8)
	case rowLoadMore:
		return "Load More"
	default:
		return ""
	}
}

// viewFooter renders the commit button, disabled until a product is
// expanded and at least one variant ticked.
func (m Model) viewFooter() string {
	label := "Add Product"
	if n := len(m.picker.Selected()); n > 0 {
		label = fmt.Sprintf("Add Product (%d)", n)
	}
	if m.picker.CanCommit() {
		return buttonStyle.Render(label) + "  " + dimStyle.Render("esc Cancel")
	}
	return disabledButton.Render(label) + "  " + dimStyle.Render("esc Cancel")
}
