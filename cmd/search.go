/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"rssreader/models"
	"rssreader/search"
	"rssreader/sink"

	"github.com/cqroot/prompt"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// jsonLines prints each match as a JSON object on its own line
type jsonLines struct{}

func (jsonLines) Add(article models.Article) {
	printStdout(&article)
}

func (jsonLines) End(failures []models.Failure) {
	for _, failure := range failures {
		log.WithFields(log.Fields{
			"feed":  failure.Feed,
			"kind":  failure.Kind,
			"error": failure.Error,
		}).Warn("Feed failed")
	}
}

func searchCmd() *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Stream articles matching a query",
		Description: `Searches all feeds concurrently and prints every article whose title
or summary contains the query as soon as its feed delivers it. Matching
is case-sensitive.

Asks for the query when --query is not given.

With --json each article is printed as a JSON object on a single line.
Use a tool like jq to process the output. All other log messages go
to stderr.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "query",
				Aliases: []string{"q"},
				Usage:   "Text to search for",
			},
			&cli.BoolFlag{
				Name:    "summary",
				Aliases: []string{"s"},
				Usage:   "Print the summary below each headline",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print matches as JSON lines",
			},
		},
		Action: func(ctx *cli.Context) error {
			opts, err := loadOptions(ctx)
			if err != nil {
				return err
			}

			query := ctx.String("query")
			if !ctx.IsSet("query") {
				query, err = prompt.New().Ask("Search:").Input("politics")
				if err != nil {
					return err
				}
			}

			searcher := search.New(ctx.Context, opts.fetcher, search.Config{
				Workers:      ctx.Int("search-workers"),
				Buffer:       ctx.Int("buffer"),
				FetchTimeout: ctx.Duration("fetch-timeout"),
			})
			defer searcher.Close()

			var s sink.StreamSink = sink.NewPrinter(os.Stdout, ctx.Bool("summary"))
			if ctx.Bool("json") {
				s = jsonLines{}
			}

			stream := searcher.Search(ctx.Context, opts.sources, query)
			sink.Forward(ctx.Context, stream, s)
			return nil
		},
	}
}
