// Package entries manages the ordered list of discount entries an operator
// builds. Each entry pairs one catalog product and a subset of its variants
// with a free-text discount. Products are chosen through the picker, which
// the manager opens for a single target entry at a time.
package entries

import (
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/runger/discountpick/internal/catalog"
	"github.com/runger/discountpick/internal/picker"
)

var (
	// ErrNoSuchEntry is returned for an index outside the list.
	ErrNoSuchEntry = errors.New("no such entry")
	// ErrPickerOpen is returned for list mutations while the picker is visible.
	ErrPickerOpen = errors.New("picker is open")
)

// Entry is one row of the list.
type Entry struct {
	ID       uuid.UUID         `yaml:"id"`
	Ordinal  int               `yaml:"ordinal"`
	Product  *catalog.Product  `yaml:"product,omitempty"`
	Discount string            `yaml:"discount"`
	Variants []catalog.Variant `yaml:"variants,omitempty"`
}

// Title returns the chosen product's title, or "" while none is chosen.
func (e Entry) Title() string {
	if e.Product == nil {
		return ""
	}
	return e.Product.Title
}

// clone returns a copy that shares nothing mutable with e.
func (e Entry) clone() Entry {
	if e.Product != nil {
		p := *e.Product
		p.Variants = slices.Clone(p.Variants)
		e.Product = &p
	}
	e.Variants = slices.Clone(e.Variants)
	return e
}

// Manager owns the entry list and the picker target. It is safe for
// concurrent use.
type Manager struct {
	mu          sync.Mutex
	entries     []Entry
	nextOrdinal int
	pickerOpen  bool
	target      uuid.UUID // uuid.Nil when no picker is open
	logger      *slog.Logger
}

// NewManager creates an empty list. A nil logger discards output.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Manager{nextOrdinal: 1, logger: logger}
}

// Add appends an empty entry and returns it.
func (m *Manager) Add() (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pickerOpen {
		return Entry{}, ErrPickerOpen
	}

	e := Entry{ID: uuid.New(), Ordinal: m.nextOrdinal}
	m.nextOrdinal++
	m.entries = append(m.entries, e)
	m.logger.Debug("entry added", "id", e.ID, "ordinal", e.Ordinal)
	return e, nil
}

// Remove deletes the entry at index. Later entries shift up.
func (m *Manager) Remove(index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pickerOpen {
		return ErrPickerOpen
	}
	if !m.inRange(index) {
		return ErrNoSuchEntry
	}

	id := m.entries[index].ID
	m.entries = slices.Delete(m.entries, index, index+1)
	m.logger.Debug("entry removed", "id", id, "index", index)
	return nil
}

// SetDiscount stores value verbatim as the discount of the entry at index.
func (m *Manager) SetDiscount(index int, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pickerOpen {
		return ErrPickerOpen
	}
	if !m.inRange(index) {
		return ErrNoSuchEntry
	}

	m.entries[index].Discount = value
	return nil
}

// OpenPicker records the entry at index as the picker target and returns
// the callbacks the picker must be created with.
func (m *Manager) OpenPicker(index int) (picker.Callbacks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pickerOpen {
		return picker.Callbacks{}, ErrPickerOpen
	}
	if !m.inRange(index) {
		return picker.Callbacks{}, ErrNoSuchEntry
	}

	m.pickerOpen = true
	m.target = m.entries[index].ID
	m.logger.Debug("picker opened", "target", m.target, "index", index)

	return picker.Callbacks{
		OnCommit: m.commit,
		OnCancel: m.cancel,
	}, nil
}

// commit writes the picked product into the target entry and closes the
// picker.
func (m *Manager) commit(product catalog.Product, variants []catalog.Variant) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.pickerOpen {
		return
	}
	target := m.target
	m.pickerOpen = false
	m.target = uuid.Nil

	i := m.indexOf(target)
	if i < 0 {
		m.logger.Warn("picker target vanished, discarding selection", "target", target, "product", product.ID)
		return
	}

	p := product
	p.Variants = slices.Clone(product.Variants)
	m.entries[i].Product = &p
	m.entries[i].Variants = slices.Clone(variants)
	m.logger.Info("product assigned",
		"ordinal", m.entries[i].Ordinal,
		"product", product.ID,
		"variants", len(variants),
	)
}

// cancel closes the picker without touching the target entry.
func (m *Manager) cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.pickerOpen {
		return
	}
	m.logger.Debug("picker cancelled", "target", m.target)
	m.pickerOpen = false
	m.target = uuid.Nil
}

// Entries returns a copy of the list.
func (m *Manager) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Entry, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.clone()
	}
	return out
}

// Len returns the number of entries.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// PickerOpen reports whether the picker is visible.
func (m *Manager) PickerOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pickerOpen
}

// Target returns the index of the entry the picker writes to.
func (m *Manager) Target() (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.pickerOpen {
		return -1, false
	}
	i := m.indexOf(m.target)
	return i, i >= 0
}

func (m *Manager) inRange(index int) bool {
	return index >= 0 && index < len(m.entries)
}

func (m *Manager) indexOf(id uuid.UUID) int {
	return slices.IndexFunc(m.entries, func(e Entry) bool { return e.ID == id })
}
