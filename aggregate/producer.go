package aggregate

import (
	"context"
	"time"

	"rssreader/fetcher"
	"rssreader/models"
)

// Producer pages through feeds one at a time
type Producer struct {
	fetcher fetcher.Fetcher
	timeout time.Duration
}

func NewProducer(f fetcher.Fetcher, timeout time.Duration) *Producer {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &Producer{fetcher: f, timeout: timeout}
}

// Produce fetches sources sequentially in order. The returned channel is
// unbuffered, so a feed is only fetched after the previous one was received.
// The channel is closed after the last source or when ctx is done.
func (p *Producer) Produce(ctx context.Context, sources []models.Source) <-chan models.Outcome {
	out := make(chan models.Outcome)

	go func() {
		defer close(out)
		for _, source := range sources {
			if ctx.Err() != nil {
				return
			}
			outcome := load(ctx, p.fetcher, source, p.timeout)
			select {
			case out <- outcome:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
