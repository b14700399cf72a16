package picker

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/discountpick/internal/catalog"
)

// products returns products with IDs from..to inclusive.
func products(from, to int) []catalog.Product {
	out := make([]catalog.Product, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, catalog.Product{ID: catalog.ProductID(i), Title: fmt.Sprintf("Product %d", i)})
	}
	return out
}

func ids(ps []catalog.Product) []catalog.ProductID {
	out := make([]catalog.ProductID, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}

func TestMerge_DedupsInFirstSeenOrder(t *testing.T) {
	got := Merge(products(1, 10), products(6, 15))
	require.Len(t, got, 15)
	for i, p := range got {
		assert.Equal(t, catalog.ProductID(i+1), p.ID)
	}
}

func TestMerge_DedupsWithinIncoming(t *testing.T) {
	in := []catalog.Product{{ID: 3}, {ID: 1}, {ID: 3}}
	assert.Equal(t, []catalog.ProductID{3, 1}, ids(Merge(nil, in)))
}

func TestMerge_DoesNotModifyExisting(t *testing.T) {
	existing := products(1, 2)
	_ = Merge(existing, products(3, 4))
	assert.Equal(t, []catalog.ProductID{1, 2}, ids(existing))
}

func TestSession_BeginBlankTerm(t *testing.T) {
	for _, term := range []string{"", "   ", "\t"} {
		s, _, ok := Session{}.Begin(term)
		assert.False(t, ok, "term %q", term)
		assert.Empty(t, s.Term)
		assert.False(t, s.Loading)
		assert.False(t, s.HasMore)
	}
}

func TestSession_BeginTrimsAndRequestsFirstPage(t *testing.T) {
	s, req, ok := Session{}.Begin("  shirt ")
	require.True(t, ok)
	assert.Equal(t, "shirt", req.Term)
	assert.Equal(t, 1, req.Page)
	assert.Equal(t, "shirt", s.Term)
	assert.True(t, s.Loading)
	assert.Equal(t, 0, s.Page)

	pending, ok := s.Pending()
	require.True(t, ok)
	assert.Equal(t, req, pending)
}

func TestSession_BeginAdvancesSequence(t *testing.T) {
	s, first, _ := Session{}.Begin("a")
	_, second, _ := s.Begin("a")
	assert.Greater(t, second.Seq, first.Seq)
	assert.NotEqual(t, first, second)
}

func TestSession_ApplySuccess(t *testing.T) {
	s, req, _ := Session{}.Begin("shirt")
	s, ok := s.Apply(Response{Request: req, Products: products(1, 10)})
	require.True(t, ok)
	assert.False(t, s.Loading)
	assert.True(t, s.HasMore)
	assert.Equal(t, 1, s.Page)
	assert.Len(t, s.Results, 10)
	_, inflight := s.Pending()
	assert.False(t, inflight)
}

func TestSession_ApplyEmptyPageEndsPagination(t *testing.T) {
	s, req, _ := Session{}.Begin("nothing")
	s, ok := s.Apply(Response{Request: req})
	require.True(t, ok)
	assert.False(t, s.HasMore)
	assert.Empty(t, s.Results)

	_, _, ok = s.Next()
	assert.False(t, ok)
}

func TestSession_ApplyAtEndEndsPagination(t *testing.T) {
	s, req, _ := Session{}.Begin("shirt")
	s, _ = s.Apply(Response{Request: req, Products: products(1, 3), AtEnd: true})
	assert.False(t, s.HasMore)
	assert.Len(t, s.Results, 3)
}

func TestSession_ApplyRejectsStale(t *testing.T) {
	s, old, _ := Session{}.Begin("shi")
	s, cur, _ := s.Begin("shirt")

	next, ok := s.Apply(Response{Request: old, Products: products(1, 5)})
	assert.False(t, ok)
	assert.Empty(t, next.Results)
	assert.True(t, next.Loading)

	_, ok = s.Apply(Response{Request: Request{Seq: cur.Seq, Term: cur.Term, Page: 2}})
	assert.False(t, ok, "page mismatch")

	_, ok = s.Apply(Response{Request: Request{Seq: cur.Seq, Term: "shirts", Page: 1}})
	assert.False(t, ok, "term mismatch")
}

func TestSession_ApplyRejectsUnsolicited(t *testing.T) {
	_, ok := Session{}.Apply(Response{Request: Request{Term: "", Page: 0}})
	assert.False(t, ok)
}

func TestSession_ApplyRejectsDuplicate(t *testing.T) {
	s, req, _ := Session{}.Begin("shirt")
	s, ok := s.Apply(Response{Request: req, Products: products(1, 2)})
	require.True(t, ok)
	_, ok = s.Apply(Response{Request: req, Products: products(3, 4)})
	assert.False(t, ok)
}

func TestSession_ErrorKeepsResultsAndRetriesSamePage(t *testing.T) {
	s, req, _ := Session{}.Begin("shirt")
	s, _ = s.Apply(Response{Request: req, Products: products(1, 10)})

	s, req2, ok := s.Next()
	require.True(t, ok)
	assert.Equal(t, 2, req2.Page)

	boom := errors.New("boom")
	s, ok = s.Apply(Response{Request: req2, Err: boom})
	require.True(t, ok)
	assert.ErrorIs(t, s.Err, boom)
	assert.Len(t, s.Results, 10)
	assert.Equal(t, 1, s.Page)
	assert.True(t, s.HasMore)

	s, retry, ok := s.Next()
	require.True(t, ok)
	assert.Equal(t, 2, retry.Page)
	assert.NoError(t, s.Err)
}

func TestSession_NextNotActionableWhileLoading(t *testing.T) {
	s, _, _ := Session{}.Begin("shirt")
	_, _, ok := s.Next()
	assert.False(t, ok)
}

func TestSession_Find(t *testing.T) {
	s, req, _ := Session{}.Begin("x")
	s, _ = s.Apply(Response{Request: req, Products: products(1, 3)})

	p, ok := s.Find(2)
	require.True(t, ok)
	assert.Equal(t, catalog.ProductID(2), p.ID)

	_, ok = s.Find(99)
	assert.False(t, ok)
}
