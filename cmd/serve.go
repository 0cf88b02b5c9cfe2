/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"time"

	"rssreader/aggregate"
	"rssreader/search"
	"rssreader/server"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve headlines and search streams over HTTP",
		Description: `Starts an HTTP server exposing the configured feeds:

GET /api/sources          the configured feeds
GET /api/headlines        merged headlines of all feeds as JSON
GET /api/search/sse?q=    server-sent events for each match of the query
DELETE /api/search/sse?key=  stop a running search stream
GET /metrics              Prometheus metrics`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "hostname",
				Aliases: []string{"n"},
				Value:   "",
				Usage:   "The hostname to listen on, all interfaces when empty",
				EnvVars: []string{"RSSREADER_HOSTNAME"},
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Value:   3000,
				Usage:   "Port to listen on",
				EnvVars: []string{"RSSREADER_PORT"},
			},
			&cli.DurationFlag{
				Name:    "headlines-ttl",
				Value:   time.Minute,
				Usage:   "How long merged headlines are cached",
				EnvVars: []string{"RSSREADER_HEADLINES_TTL"},
			},
			&cli.StringFlag{
				Name:    "allow-origins",
				Value:   "*",
				Usage:   "Comma separated origins allowed by CORS",
				EnvVars: []string{"RSSREADER_ALLOW_ORIGINS"},
			},
		},
		Action: func(ctx *cli.Context) error {
			opts, err := loadOptions(ctx)
			if err != nil {
				return err
			}

			agg := aggregate.New(ctx.Context, opts.fetcher, aggregate.Config{
				Workers:      ctx.Int("workers"),
				FetchTimeout: ctx.Duration("fetch-timeout"),
			})
			defer agg.Close()

			searcher := search.New(ctx.Context, opts.fetcher, search.Config{
				Workers:      ctx.Int("search-workers"),
				Buffer:       ctx.Int("buffer"),
				FetchTimeout: ctx.Duration("fetch-timeout"),
			})
			defer searcher.Close()

			streams := server.NewStreams()
			app := server.Server(&server.ServerConfig{
				Sources:      opts.sources,
				Aggregator:   agg,
				Searcher:     searcher,
				Streams:      streams,
				HeadlinesTTL: ctx.Duration("headlines-ttl"),
				AllowOrigins: ctx.String("allow-origins"),
			})

			g, gctx := errgroup.WithContext(ctx.Context)

			g.Go(func() error {
				addr := fmt.Sprintf("%s:%d", ctx.String("hostname"), ctx.Int("port"))
				log.Infof("Starting server on %s", addr)
				return app.Listen(addr)
			})

			g.Go(func() error {
				<-gctx.Done()
				log.Info("Gracefully shutting down...")
				streams.Shutdown()
				searcher.Close()
				return app.ShutdownWithTimeout(60 * time.Second)
			})

			return g.Wait()
		},
	}
}
