package aggregate

import (
	"context"
	"sync"
	"time"

	"rssreader/extract"
	"rssreader/fetcher"
	"rssreader/models"
	"rssreader/sink"
	"rssreader/workers"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

var (
	aggregationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rssreader_aggregations_total",
		Help: "The total number of completed aggregation runs",
	})

	feedOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rssreader_feed_outcomes_total",
		Help: "Feed outcomes by status",
	}, []string{"status"})
)

const (
	DefaultWorkers      = 2
	DefaultFetchTimeout = 20 * time.Second
)

// Config holds configuration for an Aggregator
type Config struct {
	Workers int
	// FetchTimeout bounds each feed, after which it counts as failed
	FetchTimeout time.Duration
}

func (c *Config) defaults() {
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = DefaultFetchTimeout
	}
}

// Aggregator fetches many feeds concurrently and merges them in source order
type Aggregator struct {
	fetcher fetcher.Fetcher
	pool    *workers.Pool
	timeout time.Duration
}

// New creates an aggregator with its own worker pool. Close releases it.
func New(ctx context.Context, f fetcher.Fetcher, config Config) *Aggregator {
	config.defaults()
	return &Aggregator{
		fetcher: f,
		pool:    workers.New(ctx, "aggregate", config.Workers, config.Workers),
		timeout: config.FetchTimeout,
	}
}

// AggregateAll fetches every source and returns once each has an outcome.
// A failing source never affects the others.
func (a *Aggregator) AggregateAll(ctx context.Context, sources []models.Source) models.Result {
	start := time.Now()
	outcomes := make([]models.Outcome, len(sources))

	var wg sync.WaitGroup
	for i, source := range sources {
		wg.Add(1)
		err := a.pool.Submit(ctx, func(ctx context.Context) {
			defer wg.Done()
			outcomes[i] = load(ctx, a.fetcher, source, a.timeout)
		})
		if err != nil {
			wg.Done()
			outcomes[i] = models.Outcome{
				Source: source,
				Err:    &models.FeedError{Kind: models.KindFetch, Feed: source.Name, URL: source.URL, Cause: err},
			}
		}
	}
	wg.Wait()

	result := Merge(outcomes)
	aggregationsTotal.Inc()

	log.WithFields(log.Fields{
		"articles":  len(result.Articles),
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
		"duration":  time.Since(start),
	}).Info("Aggregation complete")

	return result
}

// Run aggregates sources and hands the result to s once everything finished
func (a *Aggregator) Run(ctx context.Context, sources []models.Source, s sink.ListSink) models.Result {
	result := a.AggregateAll(ctx, sources)
	s.ShowArticles(result)
	return result
}

func (a *Aggregator) Close() {
	a.pool.Close()
}

// Merge concatenates the articles of successful outcomes in order and counts failures
func Merge(outcomes []models.Outcome) models.Result {
	failed := lo.Filter(outcomes, func(o models.Outcome, _ int) bool {
		return !o.Succeeded()
	})

	articles := lo.FlatMap(outcomes, func(o models.Outcome, _ int) []models.Article {
		return o.Articles
	})

	return models.Result{
		Articles:  articles,
		Succeeded: len(outcomes) - len(failed),
		Failed:    len(failed),
		Failures: lo.Map(failed, func(o models.Outcome, _ int) models.Failure {
			return models.NewFailure(o.Source, o.Err)
		}),
	}
}

// load fetches and extracts a single source
func load(ctx context.Context, f fetcher.Fetcher, source models.Source, timeout time.Duration) models.Outcome {
	logger := log.WithFields(log.Fields{
		"feed": source.Name,
		"url":  source.URL,
	})

	articles, err := fetchArticles(ctx, f, source, timeout)
	if err != nil {
		feedOutcomes.WithLabelValues("failure").Inc()
		logger.WithError(err).Warn("Failed to load feed")
		return models.Outcome{Source: source, Err: err}
	}

	feedOutcomes.WithLabelValues("success").Inc()
	logger.WithField("articles", len(articles)).Debug("Fetched feed")
	return models.Outcome{Source: source, Articles: articles}
}

func fetchArticles(ctx context.Context, f fetcher.Fetcher, source models.Source, timeout time.Duration) ([]models.Article, error) {
	doc, err := fetcher.FetchWithin(ctx, f, source.URL, timeout)
	if err != nil {
		return nil, models.WithFeed(err, source.Name)
	}
	return extract.Articles(doc, source.Name)
}
