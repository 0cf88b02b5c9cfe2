// Package fetchertest provides an in-memory Fetcher and feed fixtures for tests.
package fetchertest

import (
	"context"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"rssreader/fetcher"
	"rssreader/models"

	"github.com/antchfx/xmlquery"
)

// Item is a fixture feed item
type Item struct {
	Title       string
	Description string
}

// RSS renders items as an RSS 2.0 document
func RSS(items ...Item) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><rss version="2.0"><channel><title>fixture</title>`)
	for _, item := range items {
		fmt.Fprintf(&b, "<item><title>%s</title><description>%s</description></item>",
			html.EscapeString(item.Title), html.EscapeString(item.Description))
	}
	b.WriteString(`</channel></rss>`)
	return b.String()
}

// Fake serves documents from memory. URLs without a document fail like an
// unreachable host.
type Fake struct {
	mu      sync.Mutex
	docs    map[string]string
	errs    map[string]error
	hang    map[string]bool
	delay   map[string]time.Duration
	calls   map[string]int
	release chan struct{}
	once    sync.Once
}

var _ fetcher.Fetcher = (*Fake)(nil)

func NewFake() *Fake {
	return &Fake{
		docs:    map[string]string{},
		errs:    map[string]error{},
		hang:    map[string]bool{},
		delay:   map[string]time.Duration{},
		calls:   map[string]int{},
		release: make(chan struct{}),
	}
}

// Serve registers doc for url
func (f *Fake) Serve(url string, doc string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[url] = doc
	return f
}

// Fail makes every fetch of url return err
func (f *Fake) Fail(url string, err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[url] = err
	return f
}

// Hang makes fetches of url block until Release, ignoring their context
func (f *Fake) Hang(url string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hang[url] = true
	return f
}

// Delay makes fetches of url wait d before answering
func (f *Fake) Delay(url string, d time.Duration) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay[url] = d
	return f
}

// Release unblocks every hanging fetch
func (f *Fake) Release() {
	f.once.Do(func() { close(f.release) })
}

// Calls returns how many times url was fetched
func (f *Fake) Calls(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

// TotalCalls returns the number of fetches across all urls
func (f *Fake) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

func (f *Fake) Fetch(ctx context.Context, url string) (*xmlquery.Node, error) {
	f.mu.Lock()
	f.calls[url]++
	doc, ok := f.docs[url]
	err := f.errs[url]
	hang := f.hang[url]
	delay := f.delay[url]
	f.mu.Unlock()

	if hang {
		<-f.release
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &models.FeedError{Kind: models.KindFetch, URL: url, Cause: fmt.Errorf("dial tcp: lookup %s: no such host", url)}
	}
	node, err := fetcher.Parse(strings.NewReader(doc))
	if err != nil {
		return nil, &models.FeedError{Kind: models.KindParse, URL: url, Cause: err}
	}
	return node, nil
}
