package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/discountpick/internal/catalog"
	"github.com/runger/discountpick/internal/picker"
)

// pagedSearcher serves products from..to split into pages of
// catalog.PageSize, shifted back by overlap products per page.
func pagedSearcher(total, overlap int, calls *[]catalog.Query) catalog.Searcher {
	return catalog.SearcherFunc(func(_ context.Context, q catalog.Query) (catalog.Page, error) {
		*calls = append(*calls, q)
		start := (q.Page-1)*(q.PageSize-overlap) + 1
		var out []catalog.Product
		for id := start; id < start+q.PageSize && id <= total; id++ {
			out = append(out, catalog.Product{
				ID:    catalog.ProductID(id),
				Title: fmt.Sprintf("%s %d", q.Term, id),
			})
		}
		return catalog.Page{Products: out}, nil
	})
}

func TestCollectPages_SinglePage(t *testing.T) {
	var calls []catalog.Query
	s, err := collectPages(context.Background(), pagedSearcher(100, 0, &calls), "  shirt ", 1, 0)
	require.NoError(t, err)

	require.Len(t, calls, 1)
	assert.Equal(t, catalog.Query{Term: "shirt", Page: 1, PageSize: catalog.PageSize}, calls[0])
	assert.Equal(t, "shirt", s.Term)
	assert.Equal(t, 1, s.Page)
	assert.Len(t, s.Results, 10)
	assert.True(t, s.HasMore)
}

func TestCollectPages_MergesOverlappingPages(t *testing.T) {
	var calls []catalog.Query
	s, err := collectPages(context.Background(), pagedSearcher(100, 5, &calls), "shirt", 2, 0)
	require.NoError(t, err)

	require.Len(t, calls, 2)
	assert.Equal(t, 2, calls[1].Page)
	assert.Equal(t, 2, s.Page)
	require.Len(t, s.Results, 15)
	for i, p := range s.Results {
		assert.Equal(t, catalog.ProductID(i+1), p.ID)
	}
}

func TestCollectPages_StopsAtEmptyPage(t *testing.T) {
	var calls []catalog.Query
	s, err := collectPages(context.Background(), pagedSearcher(12, 0, &calls), "shirt", 5, 0)
	require.NoError(t, err)

	// Pages 1 and 2 carry products; page 3 is empty and ends the search.
	assert.Len(t, calls, 3)
	assert.Len(t, s.Results, 12)
	assert.False(t, s.HasMore)
}

func TestCollectPages_ErrorKeepsEarlierPages(t *testing.T) {
	boom := errors.New("boom")
	var calls []catalog.Query
	ok := pagedSearcher(100, 0, &calls)
	s := catalog.SearcherFunc(func(ctx context.Context, q catalog.Query) (catalog.Page, error) {
		if q.Page == 2 {
			return catalog.Page{}, boom
		}
		return ok.Search(ctx, q)
	})

	session, err := collectPages(context.Background(), s, "shirt", 3, 0)
	require.ErrorIs(t, err, boom)

	var fe *catalog.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 2, fe.Query.Page)
	assert.Len(t, session.Results, 10)
	assert.Equal(t, 1, session.Page)
	assert.ErrorIs(t, session.Err, boom)
}

func TestCollectPages_BlankTerm(t *testing.T) {
	var calls []catalog.Query
	s, err := collectPages(context.Background(), pagedSearcher(100, 0, &calls), "   ", 3, 0)
	require.ErrorIs(t, err, catalog.ErrBlankTerm)
	assert.Empty(t, calls)
	assert.Empty(t, s.Results)
}

func TestCollectPages_Timeout(t *testing.T) {
	slow := catalog.SearcherFunc(func(ctx context.Context, _ catalog.Query) (catalog.Page, error) {
		<-ctx.Done()
		return catalog.Page{}, ctx.Err()
	})

	_, err := collectPages(context.Background(), slow, "shirt", 1, 20*time.Millisecond)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func sampleSession() picker.Session {
	return picker.Session{
		Term:    "shirt",
		Page:    1,
		HasMore: true,
		Results: []catalog.Product{
			{ID: 7, Title: "Linen Shirt", Image: &catalog.Image{ID: 1, ProductID: 7, Src: "https://cdn.example.com/7.png"}, Variants: []catalog.Variant{
				{ID: 101, ProductID: 7, Title: "S", SKU: "LS-S", Price: 27.5},
			}},
			{ID: 8, Title: "Oxford Shirt"},
		},
	}
}

func TestWriteSearchText(t *testing.T) {
	withoutColors(t)

	var buf bytes.Buffer
	writeSearchText(&buf, sampleSession(), false)
	out := buf.String()

	assert.Contains(t, out, "  1. Linen Shirt (#7)")
	assert.Contains(t, out, "  2. Oxford Shirt (#8)")
	assert.NotContains(t, out, "SKU")
	assert.NotContains(t, out, "image:")
	assert.Contains(t, out, "2 products from 1 pages (more available, use --pages)")
}

func TestWriteSearchText_Variants(t *testing.T) {
	withoutColors(t)

	var buf bytes.Buffer
	writeSearchText(&buf, sampleSession(), true)
	out := buf.String()

	assert.Contains(t, out, "- S (SKU: LS-S) $27.50")
	assert.Contains(t, out, "image: https://cdn.example.com/7.png")
	assert.Equal(t, 1, strings.Count(out, "image:"), "products without an image print no image line")
	assert.Contains(t, out, "No Variants")
}

func TestWriteSearchText_Empty(t *testing.T) {
	var buf bytes.Buffer
	writeSearchText(&buf, picker.Session{Term: "zzz"}, false)
	assert.Equal(t, "No products found\n", buf.String())
}

func TestWriteSearchJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeSearchJSON(&buf, sampleSession(), nil))

	var got searchResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "shirt", got.Term)
	assert.Equal(t, 1, got.Pages)
	assert.True(t, got.HasMore)
	require.Len(t, got.Products, 2)
	assert.Equal(t, catalog.Price(27.5), got.Products[0].Variants[0].Price)
	assert.Empty(t, got.Error)
}

func TestWriteSearchJSON_ErrorAndNoProducts(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeSearchJSON(&buf, picker.Session{Term: "shirt"}, errors.New("status 500")))

	var raw map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &raw))
	assert.Equal(t, []any{}, raw["products"])
	assert.Equal(t, "status 500", raw["error"])
}
