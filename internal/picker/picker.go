// Package picker implements the catalog product/variant picker: an
// incremental search over a paginated catalog with a single expanded
// product and a multi-select set of its variants.
//
// The state machine lives in Picker and is driven by plain method calls,
// so it can be tested without a terminal or network. Model wraps it for
// Bubble Tea.
package picker

import (
	"errors"

	"github.com/runger/discountpick/internal/catalog"
)

var (
	// ErrNotInResults is returned when expanding a product that is not in
	// the current results.
	ErrNotInResults = errors.New("product is not in the current results")
	// ErrNotExpanded is returned when toggling with no product expanded.
	ErrNotExpanded = errors.New("no product is expanded")
	// ErrUnknownVariant is returned when toggling a variant of another product.
	ErrUnknownVariant = errors.New("variant does not belong to the expanded product")
	// ErrClosed is returned once the picker has committed or been cancelled.
	ErrClosed = errors.New("picker is closed")
)

// State is the picker's externally visible state.
type State int

const (
	StateIdle      State = iota // No search term
	StateLoading                // Fetch in progress
	StateLoaded                 // Results present
	StateEmpty                  // Search succeeded with no results
	StateError                  // Last fetch failed; earlier results retained
	StateCommitted              // Selection handed to the host
	StateCancelled              // User cancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateEmpty:
		return "empty"
	case StateError:
		return "error"
	case StateCommitted:
		return "committed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Callbacks connect the picker to its host. Each fires at most once per
// picker, and never both.
type Callbacks struct {
	OnCommit func(product catalog.Product, variants []catalog.Variant)
	OnCancel func()
}

// Picker is the search-and-select state machine. It is not safe for
// concurrent use; the host serializes calls the way a Bubble Tea Update
// loop does.
type Picker struct {
	callbacks Callbacks
	session   Session
	selection Selection
	closed    State // StateCommitted or StateCancelled once done
}

// New creates an idle picker.
func New(cb Callbacks) *Picker {
	return &Picker{callbacks: cb}
}

// SetTerm handles an edit of the search input. It always discards the
// current results and selection. For a non-blank term it returns the
// request for page 1, which the caller must execute.
func (p *Picker) SetTerm(term string) (Request, bool) {
	if p.Done() {
		return Request{}, false
	}
	var (
		req Request
		ok  bool
	)
	p.session, req, ok = p.session.Begin(term)
	p.selection = Selection{}
	return req, ok
}

// LoadMore returns the request for the next page when one is actionable.
func (p *Picker) LoadMore() (Request, bool) {
	if p.Done() {
		return Request{}, false
	}
	var (
		req Request
		ok  bool
	)
	p.session, req, ok = p.session.Next()
	return req, ok
}

// Receive applies a fetch outcome. It reports false for stale responses,
// which are dropped.
func (p *Picker) Receive(resp Response) bool {
	if p.Done() {
		return false
	}
	var ok bool
	p.session, ok = p.session.Apply(resp)
	return ok
}

// Expand opens a product from the current results and clears the variant
// selection.
func (p *Picker) Expand(id catalog.ProductID) error {
	if p.Done() {
		return ErrClosed
	}
	product, ok := p.session.Find(id)
	if !ok {
		return ErrNotInResults
	}
	p.selection = p.selection.Expand(product)
	return nil
}

// Toggle flips a variant of the expanded product in or out of the selection.
func (p *Picker) Toggle(id catalog.VariantID) error {
	if p.Done() {
		return ErrClosed
	}
	sel, err := p.selection.Toggle(id)
	if err != nil {
		return err
	}
	p.selection = sel
	return nil
}

// CanCommit reports whether Commit would succeed.
func (p *Picker) CanCommit() bool {
	return !p.Done() && p.selection.Ready()
}

// Commit hands the expanded product and its ticked variants, in product
// order, to OnCommit and resets the picker. It does nothing unless
// CanCommit is true.
func (p *Picker) Commit() bool {
	if !p.CanCommit() {
		return false
	}

	product, _ := p.selection.Expanded()
	variants := p.selection.Variants()

	p.reset()
	p.closed = StateCommitted

	if p.callbacks.OnCommit != nil {
		p.callbacks.OnCommit(product, variants)
	}
	return true
}

// Cancel notifies OnCancel. Resetting the picker is left to the host,
// which normally discards it.
func (p *Picker) Cancel() bool {
	if p.Done() {
		return false
	}
	p.closed = StateCancelled
	if p.callbacks.OnCancel != nil {
		p.callbacks.OnCancel()
	}
	return true
}

// Done reports whether the picker has committed or been cancelled.
func (p *Picker) Done() bool {
	return p.closed != StateIdle
}

// State derives the current state.
func (p *Picker) State() State {
	switch {
	case p.Done():
		return p.closed
	case p.session.Loading:
		return StateLoading
	case p.session.Err != nil:
		return StateError
	case p.session.Term == "":
		return StateIdle
	case len(p.session.Results) == 0:
		return StateEmpty
	default:
		return StateLoaded
	}
}

// Session returns a copy of the search session.
func (p *Picker) Session() Session {
	return p.session
}

// Expanded returns the expanded product, if any.
func (p *Picker) Expanded() (catalog.Product, bool) {
	return p.selection.Expanded()
}

// IsSelected reports whether a variant of the expanded product is ticked.
func (p *Picker) IsSelected(id catalog.VariantID) bool {
	return p.selection.IsSelected(id)
}

// Selected returns the ticked variants in product order.
func (p *Picker) Selected() []catalog.Variant {
	return p.selection.Variants()
}

// reset returns search and selection to their initial state. The request
// sequence survives so that any response still in flight is stale.
func (p *Picker) reset() {
	p.session = Session{seq: p.session.seq}
	p.selection = Selection{}
}
