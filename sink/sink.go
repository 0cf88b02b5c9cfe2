package sink

import (
	"context"

	"rssreader/models"
)

// ListSink receives the merged result of an aggregation exactly once
type ListSink interface {
	ShowArticles(result models.Result)
}

// StreamSink receives search matches one at a time, then End once
type StreamSink interface {
	Add(article models.Article)
	End(failures []models.Failure)
}

// Stream is the consuming side of a search
type Stream interface {
	Next(ctx context.Context) (models.Article, bool)
	Failures() []models.Failure
}

// Forward drains stream into s from a single loop, so s sees articles one at
// a time in arrival order. It returns the number of articles forwarded.
func Forward(ctx context.Context, stream Stream, s StreamSink) int {
	count := 0
	for {
		article, ok := stream.Next(ctx)
		if !ok {
			break
		}
		s.Add(article)
		count++
	}
	s.End(stream.Failures())
	return count
}

// ListFunc adapts a function to a ListSink
type ListFunc func(result models.Result)

func (f ListFunc) ShowArticles(result models.Result) {
	f(result)
}
