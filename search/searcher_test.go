package search_test

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"rssreader/fetcher/fetchertest"
	"rssreader/models"
	"rssreader/search"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	npr = models.Source{Name: "npr", URL: "http://npr.test/rss"}
	cnn = models.Source{Name: "cnn", URL: "http://cnn.test/rss"}
	inv = models.Source{Name: "inv", URL: "http://myNewsFeed"}
)

func newSearcher(t *testing.T, f *fetchertest.Fake, config search.Config) *search.Searcher {
	t.Helper()
	s := search.New(context.Background(), f, config)
	t.Cleanup(func() {
		f.Release()
		s.Close()
	})
	return s
}

// collect reads the stream until it is closed
func collect(t *testing.T, stream *search.Stream) []models.Article {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	articles := []models.Article{}
	for {
		article, ok := stream.Next(ctx)
		if !ok {
			break
		}
		articles = append(articles, article)
	}
	require.NoError(t, ctx.Err(), "stream was not closed in time")
	return articles
}

func TestSearchMatchesQuery(t *testing.T) {
	f := fetchertest.NewFake().
		Serve(npr.URL, fetchertest.RSS(
			fetchertest.Item{Title: "Politics today", Description: "The latest politics news"},
			fetchertest.Item{Title: "Sports", Description: "Scores and results"},
		))

	stream := newSearcher(t, f, search.Config{}).Search(context.Background(), []models.Source{npr}, "politics")
	articles := collect(t, stream)

	assert.Equal(t, []models.Article{
		{Feed: "npr", Title: "Politics today", Summary: "The latest politics news"},
	}, articles)
	assert.Empty(t, stream.Failures())
	assert.Equal(t, 1, stream.Matches())
}

func TestSearchIsCaseSensitive(t *testing.T) {
	f := fetchertest.NewFake().
		Serve(npr.URL, fetchertest.RSS(fetchertest.Item{Title: "Politics", Description: "Elections"}))

	articles := collect(t, newSearcher(t, f, search.Config{}).Search(context.Background(), []models.Source{npr}, "politics"))
	assert.Empty(t, articles)
}

func TestSearchMatchesRawDescriptionAndTruncates(t *testing.T) {
	f := fetchertest.NewFake().
		Serve(npr.URL, fetchertest.RSS(
			fetchertest.Item{Title: "Story", Description: "Summary<div>hidden keyword</div>"},
		))

	articles := collect(t, newSearcher(t, f, search.Config{}).Search(context.Background(), []models.Source{npr}, "keyword"))
	require.Len(t, articles, 1)
	assert.Equal(t, "Summary", articles[0].Summary)
}

func TestSearchEmptyQueryMatchesAll(t *testing.T) {
	f := fetchertest.NewFake().
		Serve(npr.URL, fetchertest.RSS(
			fetchertest.Item{Title: "A", Description: "a"},
			fetchertest.Item{Title: "B", Description: "b"},
		))

	articles := collect(t, newSearcher(t, f, search.Config{}).Search(context.Background(), []models.Source{npr}, ""))
	assert.Len(t, articles, 2)
}

func TestSearchKeepsFeedOrder(t *testing.T) {
	items := []fetchertest.Item{}
	for i := 0; i < 40; i++ {
		items = append(items, fetchertest.Item{Title: fmt.Sprintf("npr %02d", i), Description: "x"})
	}
	f := fetchertest.NewFake().
		Serve(npr.URL, fetchertest.RSS(items...)).
		Serve(cnn.URL, fetchertest.RSS(fetchertest.Item{Title: "cnn 00", Description: "x"}))

	articles := collect(t, newSearcher(t, f, search.Config{Buffer: 2}).Search(context.Background(), []models.Source{npr, cnn}, "x"))
	require.Len(t, articles, 41)

	fromNpr := []string{}
	for _, a := range articles {
		if a.Feed == "npr" {
			fromNpr = append(fromNpr, a.Title)
		}
	}
	assert.True(t, sort.StringsAreSorted(fromNpr), "articles of one feed arrive in document order")
}

func TestSearchClosesWhenAllFeedsFail(t *testing.T) {
	f := fetchertest.NewFake().
		Serve(cnn.URL, `not a feed`)

	stream := newSearcher(t, f, search.Config{}).Search(context.Background(), []models.Source{inv, cnn}, "x")
	articles := collect(t, stream)

	assert.Empty(t, articles)
	select {
	case <-stream.Done():
	case <-time.After(time.Second):
		t.Fatal("done was not closed")
	}

	failures := stream.Failures()
	require.Len(t, failures, 2)
	kinds := map[string]string{}
	for _, failure := range failures {
		kinds[failure.Feed] = failure.Kind
	}
	assert.Equal(t, map[string]string{"inv": "fetch", "cnn": "parse"}, kinds)

	// A closed stream stays closed
	_, ok := <-stream.Articles()
	assert.False(t, ok)
}

func TestSearchStalledFeedDoesNotBlockClosure(t *testing.T) {
	f := fetchertest.NewFake().
		Serve(npr.URL, fetchertest.RSS(fetchertest.Item{Title: "x", Description: "x"})).
		Serve(cnn.URL, fetchertest.RSS()).
		Hang(cnn.URL)

	stream := newSearcher(t, f, search.Config{FetchTimeout: 100 * time.Millisecond}).
		Search(context.Background(), []models.Source{npr, cnn}, "x")

	articles := collect(t, stream)
	assert.Len(t, articles, 1)
	require.Len(t, stream.Failures(), 1)
	assert.Equal(t, "cnn", stream.Failures()[0].Feed)
}

func TestSearchIsRepeatable(t *testing.T) {
	f := fetchertest.NewFake().
		Serve(npr.URL, fetchertest.RSS(
			fetchertest.Item{Title: "x1", Description: "a"},
			fetchertest.Item{Title: "x2", Description: "b"},
		)).
		Serve(cnn.URL, fetchertest.RSS(fetchertest.Item{Title: "x3", Description: "c"}))

	s := newSearcher(t, f, search.Config{})
	first := collect(t, s.Search(context.Background(), []models.Source{npr, cnn}, "x"))
	second := collect(t, s.Search(context.Background(), []models.Source{npr, cnn}, "x"))

	assert.ElementsMatch(t, first, second)
	assert.Len(t, first, 3)
}

func TestSearchCancelUnblocksProducers(t *testing.T) {
	items := []fetchertest.Item{}
	for i := 0; i < 50; i++ {
		items = append(items, fetchertest.Item{Title: "match", Description: "x"})
	}
	f := fetchertest.NewFake().
		Serve(npr.URL, fetchertest.RSS(items...)).
		Serve(cnn.URL, fetchertest.RSS(items...))

	stream := newSearcher(t, f, search.Config{Buffer: 1}).
		Search(context.Background(), []models.Source{npr, cnn}, "match")

	// Take one article, leave the producers stuck on the full channel
	_, ok := stream.Next(context.Background())
	require.True(t, ok)
	stream.Cancel()

	select {
	case <-stream.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("cancel did not unblock producers")
	}
	assert.Less(t, stream.Matches(), 100)
}

func TestIdleStreamDoesNotBlockOtherSearches(t *testing.T) {
	items := []fetchertest.Item{}
	for i := 0; i < 50; i++ {
		items = append(items, fetchertest.Item{Title: "match", Description: "x"})
	}
	fox := models.Source{Name: "fox", URL: "http://fox.test/rss"}
	bbc := models.Source{Name: "bbc", URL: "http://bbc.test/rss"}
	f := fetchertest.NewFake().
		Serve(npr.URL, fetchertest.RSS(items...)).
		Serve(cnn.URL, fetchertest.RSS(items...)).
		Serve(fox.URL, fetchertest.RSS(items...)).
		Serve(bbc.URL, fetchertest.RSS(fetchertest.Item{Title: "Weather", Description: "sunny"}))

	s := newSearcher(t, f, search.Config{Workers: 3, Buffer: 1})

	// Nobody reads this stream, its channel stays full
	idle := s.Search(context.Background(), []models.Source{npr, cnn, fox}, "match")
	t.Cleanup(idle.Cancel)
	require.Eventually(t, func() bool {
		return f.Calls(npr.URL) == 1 && f.Calls(cnn.URL) == 1 && f.Calls(fox.URL) == 1
	}, 2*time.Second, 10*time.Millisecond)

	other := s.Search(context.Background(), []models.Source{bbc}, "Weather")
	articles := collect(t, other)

	assert.Equal(t, []models.Article{{Feed: "bbc", Title: "Weather", Summary: "sunny"}}, articles)
	assert.Empty(t, other.Failures())

	select {
	case <-idle.Done():
		t.Fatal("idle stream ended without being read")
	default:
	}
}

func TestSearcherCloseEndsStreams(t *testing.T) {
	f := fetchertest.NewFake().
		Serve(npr.URL, fetchertest.RSS()).
		Delay(npr.URL, time.Minute)

	s := search.New(context.Background(), f, search.Config{})
	stream := s.Search(context.Background(), []models.Source{npr}, "x")
	s.Close()

	select {
	case <-stream.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("closing the searcher did not end the stream")
	}
	assert.Empty(t, collect(t, stream))
}

func TestSearchReturnsImmediately(t *testing.T) {
	f := fetchertest.NewFake().
		Serve(npr.URL, fetchertest.RSS(fetchertest.Item{Title: "late", Description: "x"})).
		Delay(npr.URL, 200*time.Millisecond)

	start := time.Now()
	stream := newSearcher(t, f, search.Config{}).Search(context.Background(), []models.Source{npr}, "late")
	assert.Less(t, time.Since(start), 100*time.Millisecond)
	assert.NotEmpty(t, stream.ID())
	assert.Equal(t, "late", stream.Query())

	assert.Len(t, collect(t, stream), 1)
}
