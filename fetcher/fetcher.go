package fetcher

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"rssreader/models"

	"github.com/antchfx/xmlquery"
	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
)

var (
	fetchTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rssreader_fetch_total",
		Help: "The total number of feed fetches",
	})

	fetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rssreader_fetch_errors_total",
		Help: "The total number of failed feed fetches by error kind",
	}, []string{"kind"})

	fetchRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rssreader_fetch_retries_total",
		Help: "The total number of retried feed requests",
	})

	fetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rssreader_fetch_duration_seconds",
		Help:    "Duration of feed fetches including retries",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // Start at 50ms, double each bucket, 10 buckets
	})
)

const (
	defaultTimeout       = 20 * time.Second
	defaultMaxBodySize   = 10 << 20 // 10MB
	defaultUserAgent     = "rssreader/1.0"
	defaultRetryInterval = 250 * time.Millisecond
	maxRetryInterval     = 5 * time.Second
)

// Fetcher retrieves a feed document as a parsed XML tree
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*xmlquery.Node, error)
}

// Config holds configuration for the HTTP fetcher
type Config struct {
	// Timeout bounds a single request attempt
	Timeout     time.Duration
	UserAgent   string
	MaxBodySize int64
	// Retries is the number of extra attempts for temporary failures
	Retries       int
	RetryInterval time.Duration
	Client        *http.Client
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	if c.MaxBodySize <= 0 {
		c.MaxBodySize = defaultMaxBodySize
	}
	if c.Retries < 0 {
		c.Retries = 0
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = defaultRetryInterval
	}
	if c.Client == nil {
		c.Client = &http.Client{}
	}
}

// HTTPFetcher fetches feeds over plain HTTP(S) GET
type HTTPFetcher struct {
	config Config
}

func New(config Config) *HTTPFetcher {
	config.defaults()
	return &HTTPFetcher{config: config}
}

// Fetch downloads url and parses it into an XML tree
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*xmlquery.Node, error) {
	start := time.Now()
	fetchTotal.Inc()

	doc, err := f.fetch(ctx, url)
	fetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		fetchErrors.WithLabelValues(string(models.Kind(err))).Inc()
		return nil, err
	}
	return doc, nil
}

func (f *HTTPFetcher) fetch(ctx context.Context, url string) (*xmlquery.Node, error) {
	body, err := f.fetchBody(ctx, url)
	if err != nil {
		return nil, err
	}

	doc, err := Parse(bytes.NewReader(body))
	if err != nil {
		return nil, &models.FeedError{Kind: models.KindParse, URL: url, Cause: err}
	}
	return doc, nil
}

// fetchBody performs the GET with retries and returns the decoded body
func (f *HTTPFetcher) fetchBody(ctx context.Context, url string) ([]byte, error) {
	b := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(f.config.RetryInterval),
		backoff.WithMaxInterval(maxRetryInterval),
		backoff.WithMultiplier(1.5),
		backoff.WithMaxElapsedTime(0),
	)

	operation := func() ([]byte, error) {
		body, err := f.get(ctx, url)
		if err == nil {
			return body, nil
		}
		var fe *models.FeedError
		if errors.As(err, &fe) && fe.Temporary() {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}

	notify := func(err error, next time.Duration) {
		fetchRetries.Inc()
		log.WithFields(log.Fields{
			"url":   url,
			"error": err,
			"retry": next,
		}).Warn("Fetch failed, retrying")
	}

	body, err := backoff.RetryNotifyWithData(operation,
		backoff.WithContext(backoff.WithMaxRetries(b, uint64(f.config.Retries)), ctx), notify)
	if err != nil {
		var fe *models.FeedError
		if !errors.As(err, &fe) {
			// The context ended between attempts
			err = &models.FeedError{Kind: models.KindFetch, URL: url, Cause: err}
		}
		return nil, err
	}
	return body, nil
}

// get performs a single request attempt. The whole body is read while the
// attempt deadline is active so a stalled transfer counts as a fetch error.
func (f *HTTPFetcher) get(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(&models.FeedError{Kind: models.KindFetch, URL: url, Cause: err})
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Accept", "application/rss+xml, application/xml;q=0.9, text/xml;q=0.9, */*;q=0.8")
	req.Header.Set("Accept-Encoding", acceptEncoding)

	resp, err := f.config.Client.Do(req)
	if err != nil {
		return nil, &models.FeedError{Kind: models.KindFetch, URL: url, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &models.FeedError{Kind: models.KindFetch, URL: url, StatusCode: resp.StatusCode}
	}

	return readBody(resp, url, f.config.MaxBodySize)
}
