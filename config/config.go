package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"rssreader/models"

	"github.com/BurntSushi/toml"
	"github.com/samber/lo"
)

const (
	DefaultWorkers       = 2
	DefaultSearchWorkers = 3
	DefaultBuffer        = 15
	DefaultFetchTimeout  = 20 * time.Second
	DefaultRetries       = 2
	DefaultUserAgent     = "rssreader/1.0"
)

// DefaultSources are used when no config file is given. The last entry is
// intentionally unreachable.
var DefaultSources = []models.Source{
	{Name: "npr", URL: "https://www.npr.org/rss/rss.php?id=1001"},
	{Name: "cnn", URL: "http://rss.cnn.com/rss/cnn_topstories.rss"},
	{Name: "fox", URL: "http://feeds.foxnews.com/foxnews/politics?format=xml"},
	{Name: "inv", URL: "http://myNewsFeed"},
}

// TomlFeed represents a feed entry in the config file
type TomlFeed struct {
	Name string `toml:"name"`
	URL  string `toml:"url"`
}

// TomlConfig represents the top-level configuration
type TomlConfig struct {
	Feeds []TomlFeed `toml:"feeds"`
}

// Sources converts the configured feeds into sources
func (c *TomlConfig) Sources() []models.Source {
	return lo.Map(c.Feeds, func(f TomlFeed, _ int) models.Source {
		return models.Source{Name: f.Name, URL: f.URL}
	})
}

// Validate checks that every feed has a name, an http(s) URL and that names are unique
func (c *TomlConfig) Validate() error {
	if len(c.Feeds) == 0 {
		return errors.New("no feeds configured")
	}
	for i, f := range c.Feeds {
		if f.Name == "" {
			return fmt.Errorf("feed %d: missing name", i)
		}
		u, err := url.Parse(f.URL)
		if err != nil {
			return fmt.Errorf("feed %s: invalid url: %w", f.Name, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("feed %s: url must be http or https, got %q", f.Name, f.URL)
		}
	}
	dups := lo.FindDuplicatesBy(c.Feeds, func(f TomlFeed) string { return f.Name })
	if len(dups) > 0 {
		return fmt.Errorf("duplicate feed name %q", dups[0].Name)
	}
	return nil
}

func LoadConfig(path string) (*TomlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config TomlConfig
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file: %w", err)
	}

	return &config, nil
}

// LoadSources returns the sources from path, or the defaults when path is empty
func LoadSources(path string) ([]models.Source, error) {
	if path == "" {
		return append([]models.Source(nil), DefaultSources...), nil
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return cfg.Sources(), nil
}
