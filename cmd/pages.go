/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"rssreader/aggregate"
	"rssreader/sink"

	"github.com/cqroot/prompt"
	"github.com/urfave/cli/v2"
)

func pagesCmd() *cli.Command {
	return &cli.Command{
		Name:  "pages",
		Usage: "Print the feeds one at a time",
		Description: `Fetches the feeds one after another in configuration order and prints
each as a page. The next feed is only fetched once the previous page
was printed, with --interactive only after pressing enter.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "interactive",
				Aliases: []string{"i"},
				Usage:   "Wait for enter before fetching the next feed",
			},
			&cli.BoolFlag{
				Name:    "summary",
				Aliases: []string{"s"},
				Usage:   "Print the summary below each headline",
			},
		},
		Action: func(ctx *cli.Context) error {
			opts, err := loadOptions(ctx)
			if err != nil {
				return err
			}

			printer := sink.NewPrinter(os.Stdout, ctx.Bool("summary"))
			producer := aggregate.NewProducer(opts.fetcher, ctx.Duration("fetch-timeout"))

			page := 0
			for outcome := range producer.Produce(ctx.Context, opts.sources) {
				page++
				printer.Page(outcome)

				if ctx.Bool("interactive") && page < len(opts.sources) {
					if _, err := prompt.New().Ask("Next feed").Input(""); err != nil {
						return err
					}
				}
			}
			return ctx.Context.Err()
		},
	}
}
