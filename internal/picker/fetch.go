package picker

import (
	"context"
	"errors"
	"time"

	"github.com/runger/discountpick/internal/catalog"
)

// Fetch executes req against s and packages the outcome for Receive.
// A positive timeout bounds the call; expiry surfaces as a fetch error.
func Fetch(ctx context.Context, s catalog.Searcher, req Request, timeout time.Duration) Response {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	page, err := s.Search(ctx, req.Query())
	if err != nil {
		var fe *catalog.FetchError
		if !errors.As(err, &fe) {
			err = &catalog.FetchError{Query: req.Query(), Err: err}
		}
		return Response{Request: req, Err: err}
	}

	return Response{
		Request:  req,
		Products: page.Products,
		AtEnd:    page.AtEnd,
	}
}
