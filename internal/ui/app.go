// Package ui is the terminal front end: the entry list with the product
// picker shown as a modal on top of it.
package ui

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/runger/discountpick/internal/catalog"
	"github.com/runger/discountpick/internal/entries"
	"github.com/runger/discountpick/internal/picker"
)

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Add      key.Binding
	Remove   key.Binding
	Pick     key.Binding
	Discount key.Binding
	Quit     key.Binding
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Add, k.Pick, k.Discount, k.Remove, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Up, k.Down}, k.ShortHelp()}
}

var keys = keyMap{
	Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Add:      key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add entry")),
	Remove:   key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "remove")),
	Pick:     key.NewBinding(key.WithKeys("enter", "p"), key.WithHelp("enter", "select product")),
	Discount: key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit discount")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// Options configures an App.
type Options struct {
	Searcher catalog.Searcher
	Picker   picker.Options
	Logger   *slog.Logger
}

// App is the root Bubble Tea model.
type App struct {
	manager    *entries.Manager
	searcher   catalog.Searcher
	pickerOpts picker.Options
	logger     *slog.Logger

	picker       picker.Model
	pickerActive bool

	discount textinput.Model
	editing  bool

	help   help.Model
	cursor int
	status string

	width    int
	height   int
	quitting bool
}

// NewApp creates the app over m.
func NewApp(m *entries.Manager, opts Options) App {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	ti := textinput.New()
	ti.Placeholder = "Enter Discount"
	ti.CharLimit = 64

	return App{
		manager:    m,
		searcher:   opts.Searcher,
		pickerOpts: opts.Picker,
		logger:     logger,
		discount:   ti,
		help:       help.New(),
	}
}

// Manager returns the entry list.
func (a App) Manager() *entries.Manager {
	return a.manager
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if size, ok := msg.(tea.WindowSizeMsg); ok {
		a.width = size.Width
		a.height = size.Height
		a.help.Width = size.Width
		if a.pickerActive {
			return a.updatePicker(a.pickerSize())
		}
		return a, nil
	}

	// While the picker is open it receives every message.
	if a.pickerActive {
		return a.updatePicker(msg)
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		if a.editing {
			var cmd tea.Cmd
			a.discount, cmd = a.discount.Update(msg)
			return a, cmd
		}
		return a, nil
	}

	if a.editing {
		return a.updateDiscount(keyMsg)
	}
	return a.handleKey(keyMsg)
}

func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a.status = ""

	switch {
	case key.Matches(msg, keys.Quit):
		a.quitting = true
		return a, tea.Quit

	case key.Matches(msg, keys.Up):
		if a.cursor > 0 {
			a.cursor--
		}

	case key.Matches(msg, keys.Down):
		if a.cursor < a.manager.Len()-1 {
			a.cursor++
		}

	case key.Matches(msg, keys.Add):
		if _, err := a.manager.Add(); err != nil {
			a.setError("add", err)
			break
		}
		a.cursor = a.manager.Len() - 1

	case key.Matches(msg, keys.Remove):
		if err := a.manager.Remove(a.cursor); err != nil {
			a.setError("remove", err)
			break
		}
		if a.cursor >= a.manager.Len() && a.cursor > 0 {
			a.cursor--
		}

	case key.Matches(msg, keys.Discount):
		list := a.manager.Entries()
		if a.cursor >= len(list) {
			break
		}
		a.editing = true
		a.discount.SetValue(list[a.cursor].Discount)
		a.discount.CursorEnd()
		return a, a.discount.Focus()

	case key.Matches(msg, keys.Pick):
		return a.openPicker()
	}

	return a, nil
}

func (a App) updateDiscount(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		a.editing = false
		a.discount.Blur()
		return a, nil
	case tea.KeyEnter:
		a.editing = false
		a.discount.Blur()
		if err := a.manager.SetDiscount(a.cursor, a.discount.Value()); err != nil {
			a.setError("set discount", err)
		}
		return a, nil
	}

	var cmd tea.Cmd
	a.discount, cmd = a.discount.Update(msg)
	return a, cmd
}

func (a App) openPicker() (tea.Model, tea.Cmd) {
	if a.searcher == nil {
		a.status = "No catalog configured"
		return a, nil
	}

	cb, err := a.manager.OpenPicker(a.cursor)
	if err != nil {
		a.setError("open picker", err)
		return a, nil
	}

	a.picker = picker.NewModel(picker.New(cb), a.searcher, a.pickerOpts)
	a.pickerActive = true

	updated, _ := a.picker.Update(a.pickerSize())
	a.picker = updated.(picker.Model)
	return a, a.picker.Init()
}

func (a App) updatePicker(msg tea.Msg) (tea.Model, tea.Cmd) {
	updated, cmd := a.picker.Update(msg)
	a.picker = updated.(picker.Model)

	if !a.picker.Done() {
		return a, cmd
	}

	// The picker's callbacks have already updated the manager.
	a.pickerActive = false
	if a.picker.Picker().State() == picker.StateCommitted {
		if e := a.manager.Entries(); a.cursor < len(e) {
			a.status = fmt.Sprintf("Selected %s (%d variants)", e[a.cursor].Title(), len(e[a.cursor].Variants))
		}
	}
	return a, nil
}

// pickerSize is the window size handed to the picker inside its frame.
func (a App) pickerSize() tea.WindowSizeMsg {
	w, h := a.width-4, a.height-4
	if a.width == 0 {
		w, h = 76, 20
	}
	return tea.WindowSizeMsg{Width: w, Height: h}
}

func (a *App) setError(op string, err error) {
	switch {
	case errors.Is(err, entries.ErrNoSuchEntry):
		a.status = "No entry selected"
	case errors.Is(err, entries.ErrPickerOpen):
		a.status = "Close the product picker first"
	default:
		a.status = fmt.Sprintf("%s failed: %v", op, err)
	}
	a.logger.Debug("entry operation rejected", "op", op, "error", err)
}

// --- View rendering ---

var (
	titleStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	headerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Underline(true)
	cursorStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	placeholderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
	variantItemStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	statusStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	frameStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("62")).Padding(0, 1)
)

// View implements tea.Model.
func (a App) View() string {
	if a.quitting {
		return ""
	}

	if a.pickerActive {
		box := frameStyle.Render(titleStyle.Render("Select Product") + "\n\n" + a.picker.View())
		if a.width == 0 || a.height == 0 {
			return box
		}
		return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, box)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Product Management"))
	b.WriteString("\n\n")
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-4s%-40s%s", "", "Product", "Discount")))
	b.WriteString("\n")

	list := a.manager.Entries()
	if len(list) == 0 {
		b.WriteString(placeholderStyle.Render("No entries. Press a to add one."))
		b.WriteString("\n")
	}
	for i, e := range list {
		b.WriteString(a.renderEntry(i, e))
	}

	b.WriteString("\n")
	if a.status != "" {
		b.WriteString(statusStyle.Render(a.status))
		b.WriteString("\n")
	}
	b.WriteString(a.help.View(keys))
	return b.String()
}

func (a App) renderEntry(i int, e entries.Entry) string {
	marker := "  "
	if i == a.cursor {
		marker = cursorStyle.Render("> ")
	}

	product := placeholderStyle.Render(fmt.Sprintf("%-38s", "Select Product"))
	if title := e.Title(); title != "" {
		product = fmt.Sprintf("%-38s", picker.DisplayText(title, 38))
	}

	var discount string
	switch {
	case a.editing && i == a.cursor:
		discount = a.discount.View()
	case e.Discount == "":
		discount = placeholderStyle.Render("Enter Discount")
	default:
		discount = picker.DisplayText(e.Discount, 24)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s%d. %s  %s\n", marker, i+1, product, discount)

	if len(e.Variants) == 0 {
		b.WriteString("      " + placeholderStyle.Render("No Variants") + "\n")
		return b.String()
	}
	for _, v := range e.Variants {
		line := fmt.Sprintf("%s (SKU: %s)", v.Title, v.SKU)
		b.WriteString("      " + variantItemStyle.Render(picker.DisplayText(line, 60)) + "\n")
	}
	return b.String()
}
