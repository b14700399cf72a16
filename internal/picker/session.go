package picker

import (
	"strings"

	"github.com/runger/discountpick/internal/catalog"
)

// Request identifies one page fetch. A response is only accepted when its
// Request equals the session's pending request field for field.
type Request struct {
	Seq  uint64 // Monotonically increasing, for stale response detection
	Term string
	Page int
}

// Query converts r into a catalog query with the fixed page size.
func (r Request) Query() catalog.Query {
	return catalog.Query{Term: r.Term, Page: r.Page, PageSize: catalog.PageSize}
}

// Response carries the outcome of a Request back to the session.
type Response struct {
	Request  Request
	Products []catalog.Product
	AtEnd    bool
	Err      error
}

// Session is the accumulated state of one search term. Its methods are
// pure: they return a new Session and never touch the network.
type Session struct {
	Term    string            // Trimmed search term; "" when idle
	Page    int               // Last page merged; 0 until the first page arrives
	Results []catalog.Product // Unique by ID, in first-seen order
	HasMore bool
	Loading bool
	Err     error // Last fetch failure, cleared by the next success

	seq      uint64
	pending  Request
	inflight bool
}

// Begin starts a new search for term. A blank term yields an idle session
// and no request.
func (s Session) Begin(term string) (Session, Request, bool) {
	next := Session{seq: s.seq}

	term = strings.TrimSpace(term)
	if term == "" {
		return next, Request{}, false
	}

	next.seq++
	req := Request{Seq: next.seq, Term: term, Page: 1}
	next.Term = term
	next.HasMore = true
	next.Loading = true
	next.pending = req
	next.inflight = true
	return next, req, true
}

// Next requests the page after the last merged one. It is only actionable
// when more results may exist and nothing is loading. A failed page is
// requested again because Page only advances on success.
func (s Session) Next() (Session, Request, bool) {
	if s.Term == "" || !s.HasMore || s.Loading {
		return s, Request{}, false
	}

	s.seq++
	req := Request{Seq: s.seq, Term: s.Term, Page: s.Page + 1}
	s.Loading = true
	s.Err = nil
	s.pending = req
	s.inflight = true
	return s, req, true
}

// Apply folds resp into the session. It reports false, leaving the session
// untouched, when resp does not answer the pending request.
func (s Session) Apply(resp Response) (Session, bool) {
	if !s.inflight || resp.Request != s.pending {
		return s, false
	}

	s.inflight = false
	s.pending = Request{}
	s.Loading = false

	if resp.Err != nil {
		s.Err = resp.Err
		return s, true
	}

	s.Results = Merge(s.Results, resp.Products)
	s.Page = resp.Request.Page
	s.HasMore = len(resp.Products) > 0 && !resp.AtEnd
	s.Err = nil
	return s, true
}

// Pending returns the request awaiting a response, if any.
func (s Session) Pending() (Request, bool) {
	return s.pending, s.inflight
}

// Find returns the result with the given id.
func (s Session) Find(id catalog.ProductID) (catalog.Product, bool) {
	for _, p := range s.Results {
		if p.ID == id {
			return p, true
		}
	}
	return catalog.Product{}, false
}

// Merge appends the products of incoming whose IDs are not already present,
// preserving server order. existing is not modified.
func Merge(existing, incoming []catalog.Product) []catalog.Product {
	out := make([]catalog.Product, len(existing), len(existing)+len(incoming))
	copy(out, existing)

	seen := make(map[catalog.ProductID]struct{}, len(existing)+len(incoming))
	for _, p := range existing {
		seen[p.ID] = struct{}{}
	}
	for _, p := range incoming {
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	return out
}
