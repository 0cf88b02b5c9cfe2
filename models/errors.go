package models

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies why a feed produced no articles
type ErrorKind string

const (
	KindFetch      ErrorKind = "fetch"
	KindParse      ErrorKind = "parse"
	KindExtraction ErrorKind = "extraction"
)

// FeedError is the error type attached to a failed Outcome
type FeedError struct {
	Kind       ErrorKind
	Feed       string
	URL        string
	StatusCode int
	Cause      error
}

func (e *FeedError) Error() string {
	prefix := fmt.Sprintf("%s error", e.Kind)
	if e.Feed != "" {
		prefix = fmt.Sprintf("%s error for feed %s", e.Kind, e.Feed)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: HTTP %d", prefix, e.StatusCode)
	}
	if e.Cause == nil {
		return prefix
	}
	return fmt.Sprintf("%s: %v", prefix, e.Cause)
}

func (e *FeedError) Unwrap() error {
	return e.Cause
}

// Temporary reports whether retrying the same request might succeed.
// Network failures, rate limiting and server errors are temporary,
// everything else is not.
func (e *FeedError) Temporary() bool {
	if e.Kind != KindFetch {
		return false
	}
	switch {
	case e.StatusCode == 0:
		return true
	case e.StatusCode == http.StatusTooManyRequests:
		return true
	case e.StatusCode >= 500:
		return true
	}
	return false
}

// WithFeed returns a copy of err tagged with the feed name when err is a FeedError
func WithFeed(err error, feed string) error {
	var fe *FeedError
	if !errors.As(err, &fe) {
		return err
	}
	tagged := *fe
	tagged.Feed = feed
	return &tagged
}

// Kind returns the classification of err, defaulting to fetch for unknown errors
func Kind(err error) ErrorKind {
	var fe *FeedError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindFetch
}

// NewFailure converts a failed outcome into its reportable form
func NewFailure(source Source, err error) Failure {
	return Failure{
		Feed:  source.Name,
		URL:   source.URL,
		Kind:  string(Kind(err)),
		Error: err.Error(),
	}
}
