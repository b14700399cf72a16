package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	searchPath = "/products/search"

	// maxBodyBytes caps how much of a search response is read.
	maxBodyBytes = 8 << 20

	apiKeyHeader = "x-api-key"
)

// HTTPConfig configures an HTTPSearcher.
type HTTPConfig struct {
	BaseURL      string
	APIKey       string
	Timeout      time.Duration // per request; 0 leaves it to the caller's context
	RateLimitRPS float64       // 0 disables client-side limiting
	Logger       *slog.Logger
}

// HTTPSearcher implements Searcher against the catalog's REST search
// endpoint: GET {base}/products/search?search=&page=&limit=.
type HTTPSearcher struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *RateLimiter
	logger     *slog.Logger
}

// Compile-time check that HTTPSearcher implements Searcher.
var _ Searcher = (*HTTPSearcher)(nil)

// NewHTTPSearcher validates cfg and returns a searcher.
func NewHTTPSearcher(cfg HTTPConfig) (*HTTPSearcher, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("catalog base URL is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid catalog base URL: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &HTTPSearcher{
		baseURL:    base,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    NewRateLimiter(cfg.RateLimitRPS),
		logger:     logger,
	}, nil
}

// Search fetches one page of products matching q.Term.
func (s *HTTPSearcher) Search(ctx context.Context, q Query) (Page, error) {
	if strings.TrimSpace(q.Term) == "" {
		return Page{}, &FetchError{Query: q, Err: ErrBlankTerm}
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = PageSize
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return Page{}, &FetchError{Query: q, Err: err}
	}

	u, err := url.Parse(s.baseURL + searchPath)
	if err != nil {
		return Page{}, &FetchError{Query: q, Err: err}
	}
	params := u.Query()
	params.Set("search", q.Term)
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("limit", strconv.Itoa(q.PageSize))
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Page{}, &FetchError{Query: q, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set(apiKeyHeader, s.apiKey)
	}

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return Page{}, &FetchError{Query: q, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Page{}, &FetchError{Query: q, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	s.logger.Debug("catalog search",
		"term", q.Term,
		"page", q.Page,
		"status", resp.StatusCode,
		"bytes", len(body),
		"elapsed", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Page{}, &FetchError{
			Query:      q,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected response: %s", snippet(body)),
		}
	}

	products, err := decodeProducts(body)
	if err != nil {
		return Page{}, &FetchError{Query: q, StatusCode: resp.StatusCode, Err: err}
	}

	return Page{Products: products, AtEnd: len(products) == 0}, nil
}

// decodeProducts parses a search body. An empty body or JSON null is an
// empty page.
func decodeProducts(body []byte) ([]Product, error) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}
	var products []Product
	if err := json.Unmarshal(body, &products); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	return products, nil
}

// snippet shortens a response body for error messages.
func snippet(body []byte) string {
	const maxLen = 200
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		s = s[:maxLen] + "..."
	}
	if s == "" {
		return "(empty body)"
	}
	return s
}
