/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"rssreader/config"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func RootApp() *cli.App {
	return &cli.App{
		Name:  "rssreader",
		Usage: "Fetch, merge and search news feeds concurrently",
		Description: `Reads a set of RSS feeds concurrently.

		Headlines from all feeds can be merged into one list, searched as a
		stream where matches show up as soon as a feed delivers them, or paged
		through one feed at a time. The same functionality is available over
		HTTP with the serve command.

		Without a config file the built-in feeds npr, cnn and fox are used,
		together with an unreachable feed to show failure handling.

		Flags can generally be set via environment variables, e.g.:

		--config => RSSREADER_CONFIG=config/feeds.toml
		--port => RSSREADER_PORT=8080
		`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to feeds configuration file, built-in feeds are used when empty",
				EnvVars: []string{"RSSREADER_CONFIG"},
			},
			&cli.IntFlag{
				Name:    "workers",
				Value:   config.DefaultWorkers,
				Usage:   "Number of concurrent fetches when aggregating",
				EnvVars: []string{"RSSREADER_WORKERS"},
			},
			&cli.IntFlag{
				Name:    "search-workers",
				Value:   config.DefaultSearchWorkers,
				Usage:   "Number of concurrent fetches when searching",
				EnvVars: []string{"RSSREADER_SEARCH_WORKERS"},
			},
			&cli.IntFlag{
				Name:    "buffer",
				Value:   config.DefaultBuffer,
				Usage:   "Number of search results buffered before feeds wait for the reader",
				EnvVars: []string{"RSSREADER_BUFFER"},
			},
			&cli.DurationFlag{
				Name:    "fetch-timeout",
				Value:   config.DefaultFetchTimeout,
				Usage:   "Time after which a feed counts as failed, shared by the first attempt and its retries",
				EnvVars: []string{"RSSREADER_FETCH_TIMEOUT"},
			},
			&cli.IntFlag{
				Name:    "retries",
				Value:   config.DefaultRetries,
				Usage:   "Retries for network errors, rate limiting and server errors",
				EnvVars: []string{"RSSREADER_RETRIES"},
			},
			&cli.StringFlag{
				Name:    "user-agent",
				Value:   config.DefaultUserAgent,
				Usage:   "User-Agent header sent to feeds",
				EnvVars: []string{"RSSREADER_USER_AGENT"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				Usage:   "Log level (trace, debug, info, warn, error)",
				EnvVars: []string{"RSSREADER_LOG_LEVEL"},
			},
		},
		Before: func(ctx *cli.Context) error {
			// Keep stdout for results
			log.SetOutput(os.Stderr)

			level, err := log.ParseLevel(ctx.String("log-level"))
			if err != nil {
				return fmt.Errorf("invalid log level: %w", err)
			}
			log.SetLevel(level)
			return nil
		},
		Commands: []*cli.Command{
			headlinesCmd(),
			searchCmd(),
			pagesCmd(),
			checkCmd(),
			serveCmd(),
		},
		Action: func(ctx *cli.Context) error {
			// Show help if no command is specified
			return ctx.App.Run([]string{"", "help"})
		},
	}
}

// Execute runs the app until it finishes or the process is interrupted
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := RootApp().RunContext(ctx, os.Args); err != nil {
		log.Error(err)
		stop()
		os.Exit(1)
	}
}
