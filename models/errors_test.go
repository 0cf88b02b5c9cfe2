package models_test

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"rssreader/models"

	"github.com/stretchr/testify/assert"
)

func TestFeedErrorTemporary(t *testing.T) {
	tests := []struct {
		name     string
		err      *models.FeedError
		expected bool
	}{
		{"network failure", &models.FeedError{Kind: models.KindFetch, Cause: io.ErrUnexpectedEOF}, true},
		{"rate limited", &models.FeedError{Kind: models.KindFetch, StatusCode: 429}, true},
		{"server error", &models.FeedError{Kind: models.KindFetch, StatusCode: 503}, true},
		{"not found", &models.FeedError{Kind: models.KindFetch, StatusCode: 404}, false},
		{"parse error", &models.FeedError{Kind: models.KindParse, Cause: io.ErrUnexpectedEOF}, false},
		{"extraction error", &models.FeedError{Kind: models.KindExtraction}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Temporary())
		})
	}
}

func TestFeedErrorWrapping(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("fetching: %w", &models.FeedError{Kind: models.KindParse, URL: "http://x", Cause: cause})

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, models.KindParse, models.Kind(err))
	assert.Equal(t, models.KindFetch, models.Kind(errors.New("plain")))

	tagged := models.WithFeed(err, "npr")
	var fe *models.FeedError
	assert.ErrorAs(t, tagged, &fe)
	assert.Equal(t, "npr", fe.Feed)
	assert.Equal(t, "parse error for feed npr: boom", tagged.Error())
}

func TestNewFailure(t *testing.T) {
	src := models.Source{Name: "inv", URL: "http://myNewsFeed"}
	f := models.NewFailure(src, &models.FeedError{Kind: models.KindFetch, Feed: "inv", StatusCode: 404})

	assert.Equal(t, models.Failure{
		Feed:  "inv",
		URL:   "http://myNewsFeed",
		Kind:  "fetch",
		Error: "fetch error for feed inv: HTTP 404",
	}, f)
}
