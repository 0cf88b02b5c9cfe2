package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"rssreader/models"
	"rssreader/search"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cache"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

// Aggregator collects all articles of a set of sources
type Aggregator interface {
	AggregateAll(ctx context.Context, sources []models.Source) models.Result
}

// Searcher streams articles matching a query
type Searcher interface {
	Search(ctx context.Context, sources []models.Source, query string) *search.Stream
}

type ServerConfig struct {

	// The sources served by every endpoint
	Sources []models.Source

	Aggregator Aggregator

	Searcher Searcher

	// Open SSE search streams
	Streams *Streams

	// How long aggregated headlines are cached
	HeadlinesTTL time.Duration

	// Interval between SSE keep-alive pings
	PingInterval time.Duration

	// Origins allowed by CORS, comma separated
	AllowOrigins string
}

func (c *ServerConfig) defaults() {
	if c.Streams == nil {
		c.Streams = NewStreams()
	}
	if c.HeadlinesTTL <= 0 {
		c.HeadlinesTTL = time.Minute
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 5 * time.Second
	}
	if c.AllowOrigins == "" {
		c.AllowOrigins = "*"
	}
}

func isStream(c *fiber.Ctx) bool {
	return strings.HasSuffix(c.Path(), "/sse")
}

// Returns a fiber.App instance serving headlines, search streams and metrics
func Server(config *ServerConfig) *fiber.App {
	config.defaults()
	streams := config.Streams

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	// Middleware to track the latency of each request
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		log.WithFields(log.Fields{
			"method":  c.Method(),
			"route":   c.Route().Path,
			"status":  c.Response().StatusCode(),
			"latency": time.Since(start),
		}).Info("Request")
		return err
	})

	app.Use(requestid.New(requestid.ConfigDefault))
	app.Use(compress.New(compress.Config{
		Next: isStream,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: config.AllowOrigins,
		AllowHeaders: "Cache-Control",
	}))

	// Aggregation is expensive, keep the last result for a short while
	app.Use(cache.New(cache.Config{
		Next: func(c *fiber.Ctx) bool {
			if c.Method() != fiber.MethodGet {
				return true
			}
			return c.Path() != "/api/headlines"
		},
		Expiration: config.HeadlinesTTL,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.Request().URI().String()
		},
	}))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")

	api.Get("/sources", func(c *fiber.Ctx) error {
		return c.JSON(config.Sources)
	})

	api.Get("/headlines", func(c *fiber.Ctx) error {
		result := config.Aggregator.AggregateAll(c.UserContext(), config.Sources)

		log.WithFields(log.Fields{
			"articles": len(result.Articles),
			"failed":   result.Failed,
		}).Info("Serve headlines")

		return c.JSON(result)
	})

	api.Delete("/search/sse", func(c *fiber.Ctx) error {
		key := c.Query("key", "")
		if !streams.Remove(key) {
			return c.Status(fiber.StatusNotFound).SendString("Unknown stream")
		}
		return c.Status(fiber.StatusOK).SendString("OK")
	})

	api.Get("/search/sse", func(c *fiber.Ctx) error {
		query := c.Query("q", "")

		c.Set("Content-Type", "text/event-stream")
		c.Set("Cache-Control", "no-cache")
		c.Set("Connection", "keep-alive")

		// Use StreamWriter to manage SSE streaming. The search lives only as
		// long as the writer.
		c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
			stream := config.Searcher.Search(context.Background(), config.Sources, query)
			key := stream.ID()
			streams.Add(stream)
			aliveChan := time.NewTicker(config.PingInterval)

			defer func() {
				aliveChan.Stop()
				log.Infof("Cleaning up SSE stream for client: %s", key)
				streams.Remove(key)
				stream.Cancel()
			}()

			if err := writeEvent(w, "init", models.SearchInitEvent{
				Stream: key,
				Query:  query,
				Feeds:  len(config.Sources),
			}); err != nil {
				log.Errorf("Failed to send init event: %v", err)
				return
			}

			for {
				select {
				case <-aliveChan.C:
					// Send keep-alive pings
					if _, err := fmt.Fprintf(w, "event: ping\ndata: \n\n"); err != nil {
						log.Warnf("Failed to send ping to client %s: %v", key, err)
						return
					}
					if err := w.Flush(); err != nil {
						log.Warnf("Failed to flush ping for client %s: %v", key, err)
						return
					}

				case article, ok := <-stream.Articles():
					if !ok {
						finish(w, stream)
						return
					}
					if err := writeEvent(w, "article", article); err != nil {
						log.Warnf("Failed to send article to client %s: %v", key, err)
						return
					}
				}
			}
		}))

		return nil
	})

	return app
}

// finish sends a failure event per failed feed followed by the end event
func finish(w *bufio.Writer, stream *search.Stream) {
	failures := stream.Failures()
	for _, failure := range failures {
		if err := writeEvent(w, "failure", failure); err != nil {
			log.Warnf("Failed to send failure event to client %s: %v", stream.ID(), err)
			return
		}
	}
	if err := writeEvent(w, "end", models.SearchEndEvent{
		Stream:   stream.ID(),
		Matches:  stream.Matches(),
		Failures: failures,
	}); err != nil {
		log.Warnf("Failed to send end event to client %s: %v", stream.ID(), err)
	}
}

func writeEvent(w *bufio.Writer, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("error marshalling %s event: %w", event, err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	return w.Flush()
}
