package search

import (
	"context"
	"sync"
	"time"

	"rssreader/extract"
	"rssreader/fetcher"
	"rssreader/models"
	"rssreader/workers"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
)

var (
	searchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rssreader_searches_total",
		Help: "The total number of searches started",
	})

	searchMatches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rssreader_search_matches_total",
		Help: "The total number of articles emitted by searches",
	})

	activeStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rssreader_search_active_streams",
		Help: "The current number of open search streams",
	})
)

const (
	DefaultWorkers      = 3
	DefaultBuffer       = 15
	DefaultFetchTimeout = 20 * time.Second
)

// Config holds configuration for a Searcher
type Config struct {
	Workers int
	// Buffer is the capacity of each stream's article channel
	Buffer       int
	FetchTimeout time.Duration
}

func (c *Config) defaults() {
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.Buffer <= 0 {
		c.Buffer = DefaultBuffer
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = DefaultFetchTimeout
	}
}

// Searcher streams matching articles from many feeds as they are found
type Searcher struct {
	fetcher fetcher.Fetcher
	pool    *workers.Pool
	config  Config
	ctx     context.Context
	cancel  context.CancelFunc
}

// New creates a searcher with its own worker pool. Close cancels every
// stream it started.
func New(ctx context.Context, f fetcher.Fetcher, config Config) *Searcher {
	config.defaults()
	ctx, cancel := context.WithCancel(ctx)
	return &Searcher{
		fetcher: f,
		pool:    workers.New(ctx, "search", config.Workers, config.Workers),
		config:  config,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Search starts one job per source and returns immediately. Matches are
// sent on the stream as soon as they are found. The stream is closed once
// every job finished, whether it matched, failed or was cancelled.
func (s *Searcher) Search(ctx context.Context, sources []models.Source, query string) *Stream {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)

	st := &Stream{
		id:       uuid.New().String(),
		query:    query,
		articles: make(chan models.Article, s.config.Buffer),
		done:     make(chan struct{}),
		cancel:   cancel,
	}

	logger := log.WithFields(log.Fields{
		"stream": st.id,
		"query":  query,
		"feeds":  len(sources),
	})
	logger.Info("Starting search")
	searchesTotal.Inc()
	activeStreams.Inc()

	go func() {
		var wg sync.WaitGroup
		for _, source := range sources {
			wg.Add(1)
			err := s.pool.Submit(ctx, func(jobCtx context.Context) {
				defer wg.Done()
				matches := st.searchFeed(jobCtx, s.fetcher, source, s.config.FetchTimeout)
				if len(matches) == 0 {
					return
				}
				// Sending waits for the consumer, so it runs outside the pool
				// on the stream's context
				wg.Add(1)
				go func() {
					defer wg.Done()
					st.send(ctx, source.Name, matches)
				}()
			})
			if err != nil {
				wg.Done()
				st.fail(source, &models.FeedError{Kind: models.KindFetch, Feed: source.Name, URL: source.URL, Cause: err})
			}
		}
		wg.Wait()

		close(st.articles)
		close(st.done)
		stop()
		cancel()
		activeStreams.Dec()

		logger.WithFields(log.Fields{
			"matches":  st.Matches(),
			"failures": len(st.Failures()),
		}).Info("Search complete")
	}()

	return st
}

// Close cancels every running search and stops the worker pool
func (s *Searcher) Close() {
	s.cancel()
	s.pool.Close()
}

// Stream is the consumer handle of one search
type Stream struct {
	id       string
	query    string
	articles chan models.Article
	done     chan struct{}
	cancel   context.CancelFunc

	mu       sync.Mutex
	matches  int
	failures []models.Failure
}

func (st *Stream) ID() string {
	return st.id
}

func (st *Stream) Query() string {
	return st.query
}

// Articles returns the result channel. It is closed exactly once.
func (st *Stream) Articles() <-chan models.Article {
	return st.articles
}

// Next blocks until the next article arrives. It returns false once the
// stream is exhausted or ctx is done.
func (st *Stream) Next(ctx context.Context) (models.Article, bool) {
	select {
	case article, ok := <-st.articles:
		return article, ok
	case <-ctx.Done():
		return models.Article{}, false
	}
}

// Cancel stops the search. Producers blocked on a full channel return and
// the channel is closed shortly after.
func (st *Stream) Cancel() {
	st.cancel()
}

// Done is closed after the article channel was closed
func (st *Stream) Done() <-chan struct{} {
	return st.done
}

// Matches returns the number of articles sent so far
func (st *Stream) Matches() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.matches
}

// Failures returns the feeds that failed so far. After Done it is complete.
func (st *Stream) Failures() []models.Failure {
	st.mu.Lock()
	defer st.mu.Unlock()
	return append([]models.Failure{}, st.failures...)
}

func (st *Stream) fail(source models.Source, err error) {
	st.mu.Lock()
	st.failures = append(st.failures, models.NewFailure(source, err))
	st.mu.Unlock()
}

// searchFeed fetches one feed and returns its matching articles in
// document order
func (st *Stream) searchFeed(ctx context.Context, f fetcher.Fetcher, source models.Source, timeout time.Duration) []models.Article {
	items, err := st.fetchItems(ctx, f, source, timeout)
	if err != nil {
		st.fail(source, err)
		logger := log.WithFields(log.Fields{
			"stream": st.id,
			"feed":   source.Name,
		})
		if ctx.Err() != nil {
			logger.WithError(err).Debug("Search of feed cancelled")
		} else {
			logger.WithError(err).Warn("Failed to search feed")
		}
		return nil
	}

	matches := []models.Article{}
	for _, item := range items {
		if item.Matches(st.query) {
			matches = append(matches, item.Article(source.Name))
		}
	}
	return matches
}

// send delivers the matches of one feed in order, blocking while the
// channel is full
func (st *Stream) send(ctx context.Context, feed string, matches []models.Article) {
	for _, article := range matches {
		select {
		case st.articles <- article:
			searchMatches.Inc()
			st.mu.Lock()
			st.matches++
			st.mu.Unlock()
		case <-ctx.Done():
			log.WithFields(log.Fields{
				"stream": st.id,
				"feed":   feed,
			}).Debug("Search of feed cancelled")
			return
		}
	}
}

func (st *Stream) fetchItems(ctx context.Context, f fetcher.Fetcher, source models.Source, timeout time.Duration) ([]extract.Item, error) {
	doc, err := fetcher.FetchWithin(ctx, f, source.URL, timeout)
	if err != nil {
		return nil, models.WithFeed(err, source.Name)
	}
	items, err := extract.Items(doc)
	if err != nil {
		return nil, models.WithFeed(err, source.Name)
	}
	return items, nil
}
