package extract

import (
	"errors"
	"fmt"
	"strings"

	"rssreader/models"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

// Marker starts the embedded markup that is cut off from summaries
const Marker = "<div"

var (
	ErrNoItems      = errors.New("document has no channel element")
	ErrMissingField = errors.New("item is missing a required field")
)

var (
	channelExpr     = xpath.MustCompile("//channel")
	titleExpr       = xpath.MustCompile(".//title")
	descriptionExpr = xpath.MustCompile(".//description")
)

// Item is a feed item before truncation
type Item struct {
	Title       string
	Description string
}

// Matches reports whether query is a case-sensitive substring of the title
// or of the untruncated description. An empty query matches everything.
func (i Item) Matches(query string) bool {
	return strings.Contains(i.Title, query) || strings.Contains(i.Description, query)
}

// Article converts the item into an article for feed
func (i Item) Article(feed string) models.Article {
	return models.Article{
		Feed:    feed,
		Title:   i.Title,
		Summary: Truncate(i.Description),
	}
}

// Truncate cuts text at the first Marker. Text that starts with the marker
// is returned unchanged.
func Truncate(text string) string {
	if idx := strings.Index(text, Marker); idx > 0 {
		return text[:idx]
	}
	return text
}

// Items returns the item elements directly under the first channel of doc,
// in document order
func Items(doc *xmlquery.Node) ([]Item, error) {
	if doc == nil {
		return nil, &models.FeedError{Kind: models.KindParse, Cause: ErrNoItems}
	}

	channel := xmlquery.QuerySelector(doc, channelExpr)
	if channel == nil {
		return nil, &models.FeedError{Kind: models.KindParse, Cause: ErrNoItems}
	}

	items := []Item{}
	for node := channel.FirstChild; node != nil; node = node.NextSibling {
		if node.Type != xmlquery.ElementNode || node.Data != "item" {
			continue
		}

		title, ok := field(node, titleExpr)
		if !ok {
			return nil, missing(len(items), "title")
		}
		description, ok := field(node, descriptionExpr)
		if !ok {
			return nil, missing(len(items), "description")
		}

		items = append(items, Item{Title: title, Description: description})
	}

	return items, nil
}

func field(item *xmlquery.Node, expr *xpath.Expr) (string, bool) {
	node := xmlquery.QuerySelector(item, expr)
	if node == nil {
		return "", false
	}
	return node.InnerText(), true
}

func missing(index int, name string) error {
	return &models.FeedError{
		Kind:  models.KindExtraction,
		Cause: fmt.Errorf("item %d: %w: %s", index, ErrMissingField, name),
	}
}

// Articles extracts every item of doc as an article of feed
func Articles(doc *xmlquery.Node, feed string) ([]models.Article, error) {
	items, err := Items(doc)
	if err != nil {
		return nil, models.WithFeed(err, feed)
	}

	articles := make([]models.Article, 0, len(items))
	for _, item := range items {
		articles = append(articles, item.Article(feed))
	}
	return articles, nil
}

// Matching extracts the items of doc that match query as articles of feed
func Matching(doc *xmlquery.Node, feed string, query string) ([]models.Article, error) {
	items, err := Items(doc)
	if err != nil {
		return nil, models.WithFeed(err, feed)
	}

	articles := []models.Article{}
	for _, item := range items {
		if item.Matches(query) {
			articles = append(articles, item.Article(feed))
		}
	}
	return articles, nil
}
