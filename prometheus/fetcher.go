package prometheus

import (
	"context"
	"time"

	"github.com/fwojciec/siterag"
)

var _ siterag.Fetcher = (*Fetcher)(nil)

// Fetcher counts and times the fetches of the wrapped Fetcher. Successful
// fetches are labelled "ok"; failures carry their error code.
type Fetcher struct {
	next    siterag.Fetcher
	metrics *Metrics
}

// NewFetcher creates a new Fetcher.
func NewFetcher(next siterag.Fetcher, m *Metrics) *Fetcher {
	return &Fetcher{next: next, metrics: m}
}

func (f *Fetcher) Fetch(ctx context.Context, url string) (res *siterag.FetchResult, err error) {
	defer func(begin time.Time) {
		code := "ok"
		if err != nil {
			code = siterag.ErrorCode(err)
		}
		f.metrics.Fetches.WithLabelValues(code).Inc()
		f.metrics.FetchTime.WithLabelValues(code).Observe(time.Since(begin).Seconds())
	}(time.Now())
	return f.next.Fetch(ctx, url)
}

func (f *Fetcher) Close() error {
	return f.next.Close()
}
