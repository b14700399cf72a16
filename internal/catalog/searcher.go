package catalog

import (
	"context"
	"errors"
	"fmt"
)

// PageSize is the fixed number of products requested per page.
const PageSize = 10

// ErrBlankTerm is returned by searchers asked to search for an empty term.
var ErrBlankTerm = errors.New("search term is blank")

// Query describes one page of a catalog search.
type Query struct {
	Term     string
	Page     int // 1-based
	PageSize int
}

// Page is the result of a single Query.
type Page struct {
	Products []Product
	// AtEnd reports that the catalog knows there are no further pages.
	// Searchers that cannot tell leave it false; an empty page always
	// means the end of results.
	AtEnd bool
}

// Searcher is the capability the picker depends on. Implementations might
// query an HTTP API, a cache, or an in-memory fixture.
type Searcher interface {
	Search(ctx context.Context, q Query) (Page, error)
}

// SearcherFunc adapts a plain function to the Searcher interface.
type SearcherFunc func(ctx context.Context, q Query) (Page, error)

// Search calls f.
func (f SearcherFunc) Search(ctx context.Context, q Query) (Page, error) {
	return f(ctx, q)
}

// FetchError reports a failed catalog search. StatusCode is set when the
// remote answered with a non-success HTTP status.
type FetchError struct {
	Query      Query
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("catalog search %q page %d: status %d: %v", e.Query.Term, e.Query.Page, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("catalog search %q page %d: %v", e.Query.Term, e.Query.Page, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
