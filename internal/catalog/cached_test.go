package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/discountpick/internal/storage"
)

type countingSearcher struct {
	calls int
	page  Page
	err   error
}

func (s *countingSearcher) Search(ctx context.Context, q Query) (Page, error) {
	s.calls++
	if s.err != nil {
		return Page{}, s.err
	}
	return s.page, nil
}

func newMemoryStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	store, err := storage.NewSQLiteStore(storage.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCachedSearcher_HitSkipsUpstream(t *testing.T) {
	upstream := &countingSearcher{page: Page{Products: []Product{
		{ID: 1, Title: "Tee", Variants: []Variant{{ID: 11, ProductID: 1, Title: "S", Price: 9.5}}},
	}}}
	c := NewCachedSearcher(upstream, newMemoryStore(t), time.Minute, nil)

	q := Query{Term: "tee", Page: 1, PageSize: PageSize}
	first, err := c.Search(context.Background(), q)
	require.NoError(t, err)
	second, err := c.Search(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, 1, upstream.calls)
	assert.Equal(t, first, second)
	assert.Equal(t, Price(9.5), second.Products[0].Variants[0].Price)
}

func TestCachedSearcher_KeyIncludesPage(t *testing.T) {
	upstream := &countingSearcher{page: Page{Products: []Product{{ID: 1}}}}
	c := NewCachedSearcher(upstream, newMemoryStore(t), time.Minute, nil)

	_, err := c.Search(context.Background(), Query{Term: "tee", Page: 1, PageSize: PageSize})
	require.NoError(t, err)
	_, err = c.Search(context.Background(), Query{Term: "tee", Page: 2, PageSize: PageSize})
	require.NoError(t, err)
	_, err = c.Search(context.Background(), Query{Term: "Tee", Page: 1, PageSize: PageSize})
	require.NoError(t, err)

	assert.Equal(t, 3, upstream.calls)
}

func TestCachedSearcher_ErrorsAreNotCached(t *testing.T) {
	upstream := &countingSearcher{err: errors.New("503")}
	c := NewCachedSearcher(upstream, newMemoryStore(t), time.Minute, nil)

	q := Query{Term: "tee", Page: 1, PageSize: PageSize}
	_, err := c.Search(context.Background(), q)
	require.Error(t, err)

	upstream.err = nil
	upstream.page = Page{Products: []Product{{ID: 5}}}
	page, err := c.Search(context.Background(), q)
	require.NoError(t, err)
	assert.Len(t, page.Products, 1)
	assert.Equal(t, 2, upstream.calls)
}

func TestCachedSearcher_ExpiredEntryRefetches(t *testing.T) {
	store := newMemoryStore(t)
	upstream := &countingSearcher{page: Page{Products: []Product{{ID: 1}}}}
	c := NewCachedSearcher(upstream, store, time.Minute, nil)

	q := Query{Term: "tee", Page: 1, PageSize: PageSize}
	require.NoError(t, store.SetCachedPage(context.Background(), &storage.CachedPage{
		CacheKey:        cacheKey(q),
		Term:            q.Term,
		Page:            q.Page,
		PageSize:        q.PageSize,
		ResponseJSON:    `{"Products":[{"id":99}]}`,
		CreatedAtUnixMs: time.Now().Add(-time.Hour).UnixMilli(),
		ExpiresAtUnixMs: time.Now().Add(-time.Minute).UnixMilli(),
	}))

	page, err := c.Search(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, ProductID(1), page.Products[0].ID)
	assert.Equal(t, 1, upstream.calls)
}
