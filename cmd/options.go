/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/json"
	"fmt"

	"rssreader/config"
	"rssreader/fetcher"
	"rssreader/models"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// options are the settings shared by every command
type options struct {
	sources []models.Source
	fetcher *fetcher.HTTPFetcher
}

func loadOptions(ctx *cli.Context) (*options, error) {
	sources, err := config.LoadSources(ctx.String("config"))
	if err != nil {
		return nil, err
	}
	if ctx.Int("workers") < 1 || ctx.Int("search-workers") < 1 {
		return nil, fmt.Errorf("worker counts must be at least 1")
	}

	log.WithFields(log.Fields{
		"feeds":  len(sources),
		"config": ctx.String("config"),
	}).Info("Loaded feeds")

	f := fetcher.New(fetcher.Config{
		Timeout:   fetcher.AttemptTimeout(ctx.Duration("fetch-timeout"), ctx.Int("retries")),
		UserAgent: ctx.String("user-agent"),
		Retries:   ctx.Int("retries"),
	})

	return &options{sources: sources, fetcher: f}, nil
}

func printStdout(v any) {
	// Print as single JSON string on a single line
	data, err := json.Marshal(v)
	if err == nil {
		fmt.Println(string(data))
	}
}
