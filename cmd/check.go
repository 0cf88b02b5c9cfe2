/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"rssreader/fetcher"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

func checkCmd() *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "Check that every configured feed is reachable and parseable",
		Description: `Downloads every feed and parses it with a full feed parser. Prints the
feed title, type and number of items, or why the feed could not be read.

Exits with an error when at least one feed failed.`,
		Action: func(ctx *cli.Context) error {
			opts, err := loadOptions(ctx)
			if err != nil {
				return err
			}

			results := make([]*fetcher.ProbeResult, len(opts.sources))
			errs := make([]error, len(opts.sources))

			g, gctx := errgroup.WithContext(ctx.Context)
			g.SetLimit(ctx.Int("workers"))
			for i, source := range opts.sources {
				g.Go(func() error {
					results[i], errs[i] = opts.fetcher.Probe(gctx, source.URL)
					return nil
				})
			}
			g.Wait()

			failed := 0
			for i, source := range opts.sources {
				if errs[i] != nil {
					failed++
					fmt.Printf("%-10s FAIL  %v\n", source.Name, errs[i])
					continue
				}
				r := results[i]
				fmt.Printf("%-10s OK    %s %s, %d items, %q\n", source.Name, r.FeedType, r.FeedVersion, r.Items, r.Title)
			}

			if failed > 0 {
				return cli.Exit(fmt.Sprintf("%d of %d feeds failed", failed, len(opts.sources)), 1)
			}
			return nil
		},
	}
}
