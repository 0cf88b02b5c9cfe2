package sink_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"rssreader/models"
	"rssreader/sink"

	"github.com/stretchr/testify/assert"
)

// sliceStream replays a fixed list of articles
type sliceStream struct {
	articles []models.Article
	failures []models.Failure
}

func (s *sliceStream) Next(ctx context.Context) (models.Article, bool) {
	if ctx.Err() != nil || len(s.articles) == 0 {
		return models.Article{}, false
	}
	next := s.articles[0]
	s.articles = s.articles[1:]
	return next, true
}

func (s *sliceStream) Failures() []models.Failure {
	return s.failures
}

type recorder struct {
	added    []models.Article
	ended    int
	failures []models.Failure
}

func (r *recorder) Add(article models.Article) {
	r.added = append(r.added, article)
}

func (r *recorder) End(failures []models.Failure) {
	r.ended++
	r.failures = failures
}

func TestForwardPreservesOrder(t *testing.T) {
	stream := &sliceStream{
		articles: []models.Article{{Title: "1"}, {Title: "2"}, {Title: "3"}},
		failures: []models.Failure{{Feed: "inv"}},
	}
	r := &recorder{}

	n := sink.Forward(context.Background(), stream, r)

	assert.Equal(t, 3, n)
	assert.Equal(t, []models.Article{{Title: "1"}, {Title: "2"}, {Title: "3"}}, r.added)
	assert.Equal(t, 1, r.ended)
	assert.Equal(t, []models.Failure{{Feed: "inv"}}, r.failures)
}

func TestForwardStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &recorder{}

	n := sink.Forward(ctx, &sliceStream{articles: []models.Article{{Title: "1"}}}, r)

	assert.Equal(t, 0, n)
	assert.Empty(t, r.added)
	assert.Equal(t, 1, r.ended)
}

func TestPrinterShowArticles(t *testing.T) {
	var buf bytes.Buffer
	p := sink.NewPrinter(&buf, true)

	p.ShowArticles(models.Result{
		Articles: []models.Article{
			{Feed: "npr", Title: "Politics\n today", Summary: "  Latest   news "},
			{Feed: "cnn", Title: "Sports", Summary: ""},
		},
		Succeeded: 2,
		Failed:    1,
		Failures:  []models.Failure{{Feed: "inv", Kind: "fetch", Error: "no such host"}},
	})

	assert.Equal(t, "  1. [npr] Politics today\n"+
		"     Latest news\n"+
		"  2. [cnn] Sports\n"+
		"\n2 succeeded / 1 failed\n"+
		"  ! inv (fetch): no such host\n", buf.String())
}

func TestPrinterStream(t *testing.T) {
	var buf bytes.Buffer
	p := sink.NewPrinter(&buf, false)

	p.Add(models.Article{Feed: "npr", Title: "One", Summary: "hidden"})
	p.Add(models.Article{Feed: "fox", Title: "Two"})
	p.End(nil)

	assert.Equal(t, "  1. [npr] One\n  2. [fox] Two\n\n2 found\n", buf.String())
}

func TestPrinterPage(t *testing.T) {
	var buf bytes.Buffer
	p := sink.NewPrinter(&buf, false)

	p.Page(models.Outcome{Source: models.Source{Name: "npr"}, Articles: []models.Article{{Feed: "npr", Title: "One"}}})
	p.Page(models.Outcome{Source: models.Source{Name: "inv"}, Err: errors.New("no such host")})

	assert.Equal(t, "== npr ==\n  1. [npr] One\n== inv ==\n   unavailable: no such host\n", buf.String())
}

func TestListFunc(t *testing.T) {
	var got models.Result
	var s sink.ListSink = sink.ListFunc(func(result models.Result) { got = result })

	s.ShowArticles(models.Result{Succeeded: 3})
	assert.Equal(t, 3, got.Succeeded)
}
