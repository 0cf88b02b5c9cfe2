/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"rssreader/aggregate"
	"rssreader/models"
	"rssreader/sink"

	"github.com/urfave/cli/v2"
)

func headlinesCmd() *cli.Command {
	return &cli.Command{
		Name:  "headlines",
		Usage: "Print the merged headlines of all feeds",
		Description: `Fetches all feeds concurrently and prints their articles once every
feed has either delivered or failed. Articles keep the order of the feeds
in the configuration. A feed that fails does not affect the others, the
number of succeeded and failed feeds is printed at the end.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "summary",
				Aliases: []string{"s"},
				Usage:   "Print the summary below each headline",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the result as a single JSON object",
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

			var s sink.ListSink = sink.NewPrinter(os.Stdout, ctx.Bool("summary"))
			if ctx.Bool("json") {
				s = sink.ListFunc(func(result models.Result) {
					printStdout(result)
				})
			}

			agg.Run(ctx.Context, opts.sources, s)
			return nil
		},
	}
}
