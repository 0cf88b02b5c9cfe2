package fetcher

import (
	"context"
	"errors"
	"time"

	"rssreader/models"

	"github.com/antchfx/xmlquery"
)

// FetchWithin calls f.Fetch and gives up once timeout elapses or ctx is done,
// even if the fetcher ignores its context. An abandoned call keeps running in
// the background until the fetcher returns. Errors are always FeedErrors.
func FetchWithin(ctx context.Context, f Fetcher, url string, timeout time.Duration) (*xmlquery.Node, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		doc *xmlquery.Node
		err error
	}
	done := make(chan result, 1)
	go func() {
		doc, err := f.Fetch(ctx, url)
		done <- result{doc: doc, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, asFeedError(r.err, url)
		}
		return r.doc, nil
	case <-ctx.Done():
		return nil, &models.FeedError{Kind: models.KindFetch, URL: url, Cause: ctx.Err()}
	}
}

func asFeedError(err error, url string) error {
	var fe *models.FeedError
	if errors.As(err, &fe) {
		return err
	}
	return &models.FeedError{Kind: models.KindFetch, URL: url, Cause: err}
}

// AttemptTimeout splits the overall budget of one fetch evenly across the
// first attempt and its retries
func AttemptTimeout(total time.Duration, retries int) time.Duration {
	if total <= 0 {
		return 0
	}
	if retries < 0 {
		retries = 0
	}
	return total / time.Duration(retries+1)
}
