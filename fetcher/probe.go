package fetcher

import (
	"bytes"
	"context"

	"rssreader/models"

	"github.com/mmcdole/gofeed"
)

// ProbeResult summarizes a feed as seen by a full feed parser
type ProbeResult struct {
	Title       string `json:"title"`
	FeedType    string `json:"feed_type"`
	FeedVersion string `json:"feed_version"`
	Items       int    `json:"items"`
}

// Probe downloads url and checks that it is a feed gofeed understands. It
// shares retries, decoding and limits with Fetch.
func (f *HTTPFetcher) Probe(ctx context.Context, url string) (*ProbeResult, error) {
	body, err := f.fetchBody(ctx, url)
	if err != nil {
		return nil, err
	}

	parser := gofeed.NewParser()
	parser.UserAgent = f.config.UserAgent
	feed, err := parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, &models.FeedError{Kind: models.KindParse, URL: url, Cause: err}
	}

	return &ProbeResult{
		Title:       feed.Title,
		FeedType:    feed.FeedType,
		FeedVersion: feed.FeedVersion,
		Items:       len(feed.Items),
	}, nil
}
