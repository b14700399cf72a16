package picker

import (
	"github.com/runger/discountpick/internal/catalog"
)

// Selection is the expanded product and the set of its variants the user
// has ticked. The set is scoped to the expanded product and is never kept
// across products.
type Selection struct {
	expanded *catalog.Product
	selected map[catalog.VariantID]struct{}
}

// Expand returns a selection with p expanded and nothing ticked, even when
// p was already expanded.
func (s Selection) Expand(p catalog.Product) Selection {
	return Selection{expanded: &p}
}

// Toggle flips membership of id. The id must belong to the expanded product.
func (s Selection) Toggle(id catalog.VariantID) (Selection, error) {
	if s.expanded == nil {
		return s, ErrNotExpanded
	}
	if _, ok := s.expanded.Variant(id); !ok {
		return s, ErrUnknownVariant
	}

	next := make(map[catalog.VariantID]struct{}, len(s.selected)+1)
	for k := range s.selected {
		next[k] = struct{}{}
	}
	if _, on := next[id]; on {
		delete(next, id)
	} else {
		next[id] = struct{}{}
	}
	return Selection{expanded: s.expanded, selected: next}, nil
}

// Expanded returns the expanded product.
func (s Selection) Expanded() (catalog.Product, bool) {
	if s.expanded == nil {
		return catalog.Product{}, false
	}
	return *s.expanded, true
}

// IsSelected reports whether id is ticked.
func (s Selection) IsSelected(id catalog.VariantID) bool {
	_, ok := s.selected[id]
	return ok
}

// Len returns the number of ticked variants.
func (s Selection) Len() int {
	return len(s.selected)
}

// Ready reports whether the selection can be committed.
func (s Selection) Ready() bool {
	return s.expanded != nil && len(s.selected) > 0
}

// Variants returns the ticked variants in the product's own order.
func (s Selection) Variants() []catalog.Variant {
	if s.expanded == nil {
		return nil
	}
	out := make([]catalog.Variant, 0, len(s.selected))
	for _, v := range s.expanded.Variants {
		if _, ok := s.selected[v.ID]; ok {
			out = append(out, v)
		}
	}
	return out
}
