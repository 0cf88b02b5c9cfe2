package sink

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"rssreader/models"
)

// Printer writes numbered headlines to a terminal. It implements both
// ListSink and StreamSink.
type Printer struct {
	mu      sync.Mutex
	w       io.Writer
	count   int
	summary bool
}

func NewPrinter(w io.Writer, withSummary bool) *Printer {
	return &Printer{w: w, summary: withSummary}
}

func (p *Printer) ShowArticles(result models.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, article := range result.Articles {
		p.write(article)
	}
	fmt.Fprintf(p.w, "\n%d succeeded / %d failed\n", result.Succeeded, result.Failed)
	p.writeFailures(result.Failures)
}

func (p *Printer) Add(article models.Article) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.write(article)
}

func (p *Printer) End(failures []models.Failure) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.w, "\n%d found\n", p.count)
	p.writeFailures(failures)
}

// Page prints the articles of a single feed as one page
func (p *Printer) Page(outcome models.Outcome) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.w, "== %s ==\n", outcome.Source.Name)
	if outcome.Err != nil {
		fmt.Fprintf(p.w, "   unavailable: %v\n", outcome.Err)
		return
	}
	for _, article := range outcome.Articles {
		p.write(article)
	}
}

func (p *Printer) write(article models.Article) {
	p.count++
	fmt.Fprintf(p.w, "%3d. [%s] %s\n", p.count, article.Feed, oneLine(article.Title))
	if p.summary {
		if summary := oneLine(article.Summary); summary != "" {
			fmt.Fprintf(p.w, "     %s\n", summary)
		}
	}
}

func (p *Printer) writeFailures(failures []models.Failure) {
	for _, f := range failures {
		fmt.Fprintf(p.w, "  ! %s (%s): %s\n", f.Feed, f.Kind, f.Error)
	}
}

func oneLine(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
