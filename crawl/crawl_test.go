package crawl_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fwojciec/siterag"
	"github.com/fwojciec/siterag/crawl"
	"github.com/fwojciec/siterag/goquery"
	shttp "github.com/fwojciec/siterag/http"
	"github.com/fwojciec/siterag/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// site is an in-memory website served through a mock fetcher.
type site struct {
	mu     sync.Mutex
	pages  map[string]string
	errs   map[string]error
	calls  map[string]int
	order  []string
	delay  time.Duration
	onCall func(url string)
}

func newSite(pages map[string]string) *site {
	return &site{pages: pages, errs: map[string]error{}, calls: map[string]int{}}
}

func (s *site) fetcher() *mock.Fetcher {
	return &mock.Fetcher{
		FetchFn: func(ctx context.Context, url string) (*siterag.FetchResult, error) {
			s.mu.Lock()
			s.calls[url]++
			s.order = append(s.order, url)
			html, ok := s.pages[url]
			err := s.errs[url]
			onCall := s.onCall
			s.mu.Unlock()

			if onCall != nil {
				onCall(url)
			}
			if s.delay > 0 {
				select {
				case <-time.After(s.delay):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, siterag.Errorf(siterag.EPERMANENT, "HTTP 404 for %s", url)
			}
			return &siterag.FetchResult{URL: url, FinalURL: url, StatusCode: 200, HTML: html}, nil
		},
		CloseFn: func() error { return nil },
	}
}

func (s *site) callCount(url string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[url]
}

func (s *site) fetched() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

func page(title string, links ...string) string {
	var b strings.Builder
	b.WriteString("<html><head><title>" + title + "</title></head><body><p>" + title + " content.</p>")
	for _, l := range links {
		b.WriteString(`<a href="` + l + `">link</a>`)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func newJob(id, start string) *siterag.Job {
	return &siterag.Job{
		ID:          id,
		StartURL:    start,
		Strategy:    siterag.StrategyLightweight,
		MaxDepth:    3,
		MaxPages:    100,
		Concurrency: 2,
	}
}

// pageCollector records saved pages.
type pageCollector struct {
	mu    sync.Mutex
	pages []*siterag.PageRecord
}

func (c *pageCollector) sink() *mock.PageSink {
	return &mock.PageSink{SavePageFn: func(_ context.Context, p *siterag.PageRecord) error {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.pages = append(c.pages, p)
		return nil
	}}
}

func (c *pageCollector) all() []*siterag.PageRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*siterag.PageRecord(nil), c.pages...)
}

func TestCrawler_Run_MaxDepthOneEndToEnd(t *testing.T) {
	t.Parallel()

	var fetches sync.Map
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Store(r.URL.Path, true)
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(page("Home", "/docs/intro", "/docs/guide", "https://other.example.org/x")))
	}))
	defer srv.Close()

	fetcher := shttp.NewFetcher(shttp.WithTimeout(time.Second))
	defer fetcher.Close()
	var pages pageCollector
	crawler := &crawl.Crawler{
		Fetcher: fetcher,
		Parser:  goquery.NewParser(),
		Pages:   pages.sink(),
	}
	job := newJob("job-1", srv.URL)
	job.MaxDepth = 1
	job.MaxPages = 10

	stats, err := crawler.Run(context.Background(), job)

	require.NoError(t, err)
	assert.Equal(t, siterag.JobCompleted, job.Status)
	assert.Equal(t, 1, stats.Scraped)
	assert.Equal(t, 0, stats.Failed)
	assert.Equal(t, 4, stats.Discovered)

	records := pages.all()
	require.Len(t, records, 1)
	assert.Equal(t, siterag.PageSuccess, records[0].Status)
	assert.Equal(t, "Home", records[0].Title)
	assert.Equal(t, []string{srv.URL + "/docs/intro", srv.URL + "/docs/guide", "https://other.example.org/x"}, records[0].Links)

	_, introFetched := fetches.Load("/docs/intro")
	assert.False(t, introFetched, "links beyond max depth must not be fetched")
}

func TestCrawler_Run_TransientFailureCountsOnce(t *testing.T) {
	t.Parallel()

	s := newSite(nil)
	s.errs["https://example.com/"] = siterag.Errorf(siterag.ETRANSIENT, "timeout fetching https://example.com/")
	var pages pageCollector
	crawler := &crawl.Crawler{
		Fetcher:     s.fetcher(),
		Parser:      goquery.NewParser(),
		Pages:       pages.sink(),
		RetryDelays: []time.Duration{time.Millisecond, time.Millisecond},
	}

	stats, err := crawler.Run(context.Background(), newJob("job-1", "https://example.com"))

	require.NoError(t, err)
	assert.Equal(t, 3, s.callCount("https://example.com/"))
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 0, stats.Scraped)
	records := pages.all()
	require.Len(t, records, 1)
	assert.Equal(t, siterag.PageFailed, records[0].Status)
	assert.Equal(t, siterag.ETRANSIENT, records[0].ErrorKind)
	assert.Contains(t, records[0].Error, "timeout")
}

func TestCrawler_Run_VisitsEachURLOnce(t *testing.T) {
	t.Parallel()

	s := newSite(map[string]string{
		"https://example.com/":  page("Home", "/a", "/b", "/a#top", "/"),
		"https://example.com/a": page("A", "/b", "/", "/a/"),
		"https://example.com/b": page("B", "/a", "/c"),
		"https://example.com/c": page("C", "/", "/a", "/b"),
	})
	crawler := &crawl.Crawler{Fetcher: s.fetcher(), Parser: goquery.NewParser()}
	job := newJob("job-1", "https://example.com/")
	job.MaxDepth = 10
	job.Concurrency = 4

	stats, err := crawler.Run(context.Background(), job)

	require.NoError(t, err)
	assert.Equal(t, 4, stats.Scraped)
	for url := range s.pages {
		assert.Equal(t, 1, s.callCount(url), url)
	}
}

func TestCrawler_Run_LevelOrder(t *testing.T) {
	t.Parallel()

	s := newSite(map[string]string{
		"https://example.com/":    page("Home", "/a", "/b", "/c"),
		"https://example.com/a":   page("A", "/a/1", "/a/2"),
		"https://example.com/b":   page("B", "/b/1"),
		"https://example.com/c":   page("C"),
		"https://example.com/a/1": page("A1"),
		"https://example.com/a/2": page("A2"),
		"https://example.com/b/1": page("B1"),
	})
	s.delay = 5 * time.Millisecond
	crawler := &crawl.Crawler{Fetcher: s.fetcher(), Parser: goquery.NewParser()}
	job := newJob("job-1", "https://example.com/")
	job.Concurrency = 5

	_, err := crawler.Run(context.Background(), job)
	require.NoError(t, err)

	depth := map[string]int{"https://example.com/": 0}
	for _, u := range []string{"/a", "/b", "/c"} {
		depth["https://example.com"+u] = 1
	}
	for _, u := range []string{"/a/1", "/a/2", "/b/1"} {
		depth["https://example.com"+u] = 2
	}
	order := s.fetched()
	require.Len(t, order, 7)
	for i := 1; i < len(order); i++ {
		assert.LessOrEqual(t, depth[order[i-1]], depth[order[i]], "fetch order %v is not level by level", order)
	}
}

func TestCrawler_Run_Scope(t *testing.T) {
	t.Parallel()

	pages := map[string]string{
		"https://docs.example.com/":      page("Docs", "/guide", "https://www.example.com/blog", "https://other.org/"),
		"https://docs.example.com/guide": page("Guide"),
		"https://www.example.com/blog":   page("Blog"),
		"https://other.org/":             page("Other"),
	}

	t.Run("host scope stays on the seed host", func(t *testing.T) {
		t.Parallel()

		s := newSite(pages)
		crawler := &crawl.Crawler{Fetcher: s.fetcher(), Parser: goquery.NewParser()}

		stats, err := crawler.Run(context.Background(), newJob("job-1", "https://docs.example.com/"))

		require.NoError(t, err)
		assert.Equal(t, 2, stats.Scraped)
		assert.Equal(t, 4, stats.Discovered)
		assert.Zero(t, s.callCount("https://www.example.com/blog"))
		assert.Zero(t, s.callCount("https://other.org/"))
	})

	t.Run("registrable domain scope follows sibling hosts", func(t *testing.T) {
		t.Parallel()

		s := newSite(pages)
		crawler := &crawl.Crawler{Fetcher: s.fetcher(), Parser: goquery.NewParser(), Scope: crawl.ScopeRegistrableDomain}

		stats, err := crawler.Run(context.Background(), newJob("job-1", "https://docs.example.com/"))

		require.NoError(t, err)
		assert.Equal(t, 3, stats.Scraped)
		assert.Equal(t, 1, s.callCount("https://www.example.com/blog"))
		assert.Zero(t, s.callCount("https://other.org/"))
	})
}

func TestCrawler_Run_PageLimit(t *testing.T) {
	t.Parallel()

	pages := map[string]string{}
	var links []string
	for i := range 20 {
		links = append(links, fmt.Sprintf("/p%d", i))
		pages[fmt.Sprintf("https://example.com/p%d", i)] = page("P")
	}
	pages["https://example.com/"] = page("Home", links...)
	s := newSite(pages)
	crawler := &crawl.Crawler{Fetcher: s.fetcher(), Parser: goquery.NewParser()}
	job := newJob("job-1", "https://example.com/")
	job.MaxPages = 5
	job.Concurrency = 4

	stats, err := crawler.Run(context.Background(), job)

	require.NoError(t, err)
	assert.Equal(t, siterag.JobCompleted, job.Status)
	assert.Equal(t, 5, stats.Scraped)
	assert.Len(t, s.fetched(), 5)
	assert.Equal(t, 21, stats.Discovered)
}

func TestCrawler_Run_FailedPagesHaveNoChildren(t *testing.T) {
	t.Parallel()

	s := newSite(map[string]string{
		"https://example.com/":   page("Home", "/missing", "/ok"),
		"https://example.com/ok": page("OK"),
	})
	crawler := &crawl.Crawler{Fetcher: s.fetcher(), Parser: goquery.NewParser()}

	stats, err := crawler.Run(context.Background(), newJob("job-1", "https://example.com/"))

	require.NoError(t, err)
	assert.Equal(t, 2, stats.Scraped)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, s.callCount("https://example.com/missing"), "permanent failures are not retried")
}

func TestCrawler_Run_RobotsDisallowed(t *testing.T) {
	t.Parallel()

	s := newSite(map[string]string{
		"https://example.com/":          page("Home", "/private/x"),
		"https://example.com/private/x": page("Secret"),
	})
	var pages pageCollector
	crawler := &crawl.Crawler{
		Fetcher: s.fetcher(),
		Parser:  goquery.NewParser(),
		Pages:   pages.sink(),
		Robots: &mock.RobotsPolicy{AllowedFn: func(_ context.Context, url string) bool {
			return !strings.Contains(url, "/private/")
		}},
	}

	stats, err := crawler.Run(context.Background(), newJob("job-1", "https://example.com/"))

	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)
	assert.Zero(t, s.callCount("https://example.com/private/x"))
	for _, p := range pages.all() {
		if p.URL == "https://example.com/private/x" {
			assert.Equal(t, siterag.EPERMANENT, p.ErrorKind)
		}
	}
}

func TestCrawler_Run_LimiterWaitsBeforeEveryAttempt(t *testing.T) {
	t.Parallel()

	s := newSite(nil)
	s.errs["https://example.com/"] = siterag.Errorf(siterag.ETRANSIENT, "reset")
	var mu sync.Mutex
	var waits []string
	crawler := &crawl.Crawler{
		Fetcher: s.fetcher(),
		Parser:  goquery.NewParser(),
		Limiter: &mock.DomainLimiter{WaitFn: func(_ context.Context, domain string) error {
			mu.Lock()
			defer mu.Unlock()
			waits = append(waits, domain)
			return nil
		}},
		RetryDelays: []time.Duration{time.Millisecond, time.Millisecond},
	}

	_, err := crawler.Run(context.Background(), newJob("job-1", "https://example.com/"))

	require.NoError(t, err)
	assert.Equal(t, []string{"example.com", "example.com", "example.com"}, waits)
}

func TestCrawler_Run_DocumentLinks(t *testing.T) {
	t.Parallel()

	s := newSite(map[string]string{
		"https://example.com/":  page("Home", "/manual.pdf", "/a"),
		"https://example.com/a": page("A", "/manual.pdf", "https://cdn.example.net/slides.pptx"),
	})
	var mu sync.Mutex
	var docs []siterag.DocumentLink
	crawler := &crawl.Crawler{
		Fetcher: s.fetcher(),
		Parser:  goquery.NewParser(),
		Documents: &mock.DocumentSink{HandleDocumentFn: func(_ context.Context, d siterag.DocumentLink) error {
			mu.Lock()
			defer mu.Unlock()
			docs = append(docs, d)
			return nil
		}},
	}
	job := newJob("job-1", "https://example.com/")
	job.Concurrency = 1

	stats, err := crawler.Run(context.Background(), job)

	require.NoError(t, err)
	assert.Equal(t, 2, stats.Documents)
	require.Len(t, docs, 2)
	assert.Equal(t, siterag.DocumentLink{JobID: "job-1", URL: "https://example.com/manual.pdf", SourceURL: "https://example.com/", Depth: 1}, docs[0])
	assert.Equal(t, "https://cdn.example.net/slides.pptx", docs[1].URL)
	assert.Zero(t, s.callCount("https://example.com/manual.pdf"), "documents are handed off, not crawled")
}

func TestCrawler_Run_FetcherLinksAreMerged(t *testing.T) {
	t.Parallel()

	fetcher := &mock.Fetcher{FetchFn: func(_ context.Context, url string) (*siterag.FetchResult, error) {
		if url != "https://example.com/" {
			return &siterag.FetchResult{URL: url, StatusCode: 200, HTML: page("Generated")}, nil
		}
		return &siterag.FetchResult{
			URL:        url,
			StatusCode: 200,
			HTML:       page("Home"),
			Links:      []string{"https://example.com/generated", "https://example.com/spec.pdf"},
		}, nil
	}}
	var pages pageCollector
	crawler := &crawl.Crawler{Fetcher: fetcher, Parser: goquery.NewParser(), Pages: pages.sink()}
	job := newJob("job-1", "https://example.com/")
	job.Concurrency = 1

	stats, err := crawler.Run(context.Background(), job)

	require.NoError(t, err)
	assert.Equal(t, 2, stats.Scraped)
	home := pages.all()[0]
	assert.Equal(t, []string{"https://example.com/generated"}, home.Links)
	assert.Equal(t, []string{"https://example.com/spec.pdf"}, home.DocumentLinks)
}

func TestCrawler_Run_ParsesAgainstFinalURL(t *testing.T) {
	t.Parallel()

	fetcher := &mock.Fetcher{FetchFn: func(_ context.Context, url string) (*siterag.FetchResult, error) {
		return &siterag.FetchResult{URL: url, FinalURL: "https://example.com/docs/", StatusCode: 200, HTML: "<p>hi</p>"}, nil
	}}
	var bases []string
	parser := &mock.Parser{ParseFn: func(html, baseURL string) *siterag.PageRecord {
		bases = append(bases, baseURL)
		return &siterag.PageRecord{Title: "Docs", Text: "hi"}
	}}
	var pages pageCollector
	crawler := &crawl.Crawler{Fetcher: fetcher, Parser: parser, Pages: pages.sink()}
	job := newJob("job-1", "https://example.com/")
	job.Concurrency = 1

	stats, err := crawler.Run(context.Background(), job)

	require.NoError(t, err)
	assert.Equal(t, 1, stats.Scraped)
	assert.Equal(t, []string{"https://example.com/docs/"}, bases)
	rec := pages.all()[0]
	assert.Equal(t, "https://example.com/", rec.URL)
	assert.Equal(t, "Docs", rec.Title)
	assert.Equal(t, siterag.PageSuccess, rec.Status)
}

func TestCrawler_Run_ConfigurationErrors(t *testing.T) {
	t.Parallel()

	validIndexer := func() *crawl.Indexer {
		return &crawl.Indexer{
			Chunker:  &mock.Chunker{ChunkFn: func(string, string) ([]*siterag.Chunk, error) { return nil, nil }},
			Embedder: &mock.Embedder{DimensionsFn: func() int { return 768 }},
			Index:    &mock.VectorIndex{DimensionsFn: func() int { return 768 }},
		}
	}

	tests := []struct {
		name    string
		job     func() *siterag.Job
		indexer func() *crawl.Indexer
	}{
		{
			name: "max depth zero",
			job: func() *siterag.Job {
				j := newJob("job-1", "https://example.com/")
				j.MaxDepth = 0
				return j
			},
		},
		{
			name: "missing start URL",
			job:  func() *siterag.Job { return newJob("job-1", "") },
		},
		{
			name: "unknown strategy",
			job: func() *siterag.Job {
				j := newJob("job-1", "https://example.com/")
				j.Strategy = "teleport"
				return j
			},
		},
		{
			name: "dimension mismatch",
			job:  func() *siterag.Job { return newJob("job-1", "https://example.com/") },
			indexer: func() *crawl.Indexer {
				ix := validIndexer()
				ix.Index = &mock.VectorIndex{DimensionsFn: func() int { return 1536 }}
				return ix
			},
		},
		{
			name:    "invalid namespace",
			job:     func() *siterag.Job { return newJob("job 1!", "https://example.com/") },
			indexer: validIndexer,
		},
		{
			name: "overlap not below chunk size",
			job:  func() *siterag.Job { return newJob("job-1", "https://example.com/") },
			indexer: func() *crawl.Indexer {
				ix := validIndexer()
				ix.Chunker = &invalidChunker{}
				return ix
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var mu sync.Mutex
			var statuses []siterag.JobStatus
			var completion siterag.Completion
			fetches := 0
			crawler := &crawl.Crawler{
				Fetcher: &mock.Fetcher{FetchFn: func(context.Context, string) (*siterag.FetchResult, error) {
					fetches++
					return nil, nil
				}},
				Parser: goquery.NewParser(),
				Jobs: &mock.JobService{UpdateJobFn: func(_ context.Context, id string, upd siterag.JobUpdate) (*siterag.Job, error) {
					mu.Lock()
					defer mu.Unlock()
					statuses = append(statuses, *upd.Status)
					return &siterag.Job{ID: id}, nil
				}},
				Progress: &mock.ProgressSink{OnCompletionFn: func(_ context.Context, c siterag.Completion) {
					completion = c
				}},
			}
			if tt.indexer != nil {
				crawler.Indexer = tt.indexer()
			}
			job := tt.job()

			_, err := crawler.Run(context.Background(), job)

			require.Error(t, err)
			assert.Equal(t, siterag.EINVALID, siterag.ErrorCode(err))
			assert.Equal(t, siterag.JobFailed, job.Status)
			assert.NotEmpty(t, job.Error)
			assert.True(t, job.StartedAt.IsZero(), "job must never start running")
			assert.NotContains(t, statuses, siterag.JobRunning)
			assert.Zero(t, fetches)
			assert.Equal(t, siterag.JobFailed, completion.Status)
		})
	}
}

// invalidChunker reports a configuration with overlap equal to size.
type invalidChunker struct{}

func (invalidChunker) Chunk(string, string) ([]*siterag.Chunk, error) { return nil, nil }

func (invalidChunker) Validate() error {
	return siterag.Errorf(siterag.EINVALID, "overlap 500 must be smaller than size 500")
}

func TestCrawler_Run_StatusTransitions(t *testing.T) {
	t.Parallel()

	s := newSite(map[string]string{"https://example.com/": page("Home")})
	var statuses []siterag.JobStatus
	crawler := &crawl.Crawler{
		Fetcher: s.fetcher(),
		Parser:  goquery.NewParser(),
		Jobs: &mock.JobService{UpdateJobFn: func(_ context.Context, id string, upd siterag.JobUpdate) (*siterag.Job, error) {
			statuses = append(statuses, *upd.Status)
			return &siterag.Job{ID: id}, nil
		}},
	}
	job := newJob("job-1", "https://example.com/")

	_, err := crawler.Run(context.Background(), job)

	require.NoError(t, err)
	assert.Equal(t, []siterag.JobStatus{siterag.JobRunning, siterag.JobCompleted}, statuses)
	assert.False(t, job.StartedAt.IsZero())
	assert.False(t, job.FinishedAt.IsZero())
}

func TestCrawler_Run_Cancellation(t *testing.T) {
	t.Parallel()

	pages := map[string]string{}
	var links []string
	for i := range 50 {
		links = append(links, fmt.Sprintf("/p%d", i))
		pages[fmt.Sprintf("https://example.com/p%d", i)] = page("P")
	}
	pages["https://example.com/"] = page("Home", links...)
	s := newSite(pages)
	s.delay = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var progressed int
	var completion siterag.Completion
	aborted := false
	crawler := &crawl.Crawler{
		Fetcher: s.fetcher(),
		Parser:  goquery.NewParser(),
		Progress: &mock.ProgressSink{
			OnProgressFn: func(_ context.Context, e siterag.ProgressEvent) {
				progressed++
				if e.Scraped == 3 {
					cancel()
				}
			},
			OnCompletionFn: func(_ context.Context, c siterag.Completion) { completion = c },
		},
		Archive: &mock.PageArchive{
			SavePageFn: func(context.Context, *siterag.PageRecord) error { return nil },
			CommitFn:   func() error { t.Error("cancelled job must not commit its archive"); return nil },
			AbortFn:    func() error { aborted = true; return nil },
		},
	}
	job := newJob("job-1", "https://example.com/")

	stats, err := crawler.Run(ctx, job)

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, siterag.JobCancelled, job.Status)
	assert.Equal(t, siterag.JobCancelled, completion.Status)
	assert.Equal(t, 3, stats.Scraped)
	assert.Equal(t, 3, progressed)
	assert.True(t, aborted)
	assert.Less(t, len(s.fetched()), 51)
}

func TestCrawler_Run_ArchiveCommittedOnCompletion(t *testing.T) {
	t.Parallel()

	s := newSite(map[string]string{"https://example.com/": page("Home", "/gone")})
	var archived []string
	committed := false
	crawler := &crawl.Crawler{
		Fetcher: s.fetcher(),
		Parser:  goquery.NewParser(),
		Archive: &mock.PageArchive{
			SavePageFn: func(_ context.Context, p *siterag.PageRecord) error {
				archived = append(archived, p.URL)
				return nil
			},
			CommitFn: func() error { committed = true; return nil },
			AbortFn:  func() error { t.Error("completed job must not abort its archive"); return nil },
		},
	}
	job := newJob("job-1", "https://example.com/")
	job.Concurrency = 1

	_, err := crawler.Run(context.Background(), job)

	require.NoError(t, err)
	assert.True(t, committed)
	assert.Equal(t, []string{"https://example.com/"}, archived, "failed pages are not archived")
}

func TestCrawler_Run_Indexing(t *testing.T) {
	t.Parallel()

	s := newSite(map[string]string{
		"https://example.com/":  page("Home", "/a"),
		"https://example.com/a": page("A"),
	})
	var mu sync.Mutex
	stored := map[string]*siterag.EmbeddedVector{}
	index := &mock.VectorIndex{
		DimensionsFn: func() int { return 3 },
		UpsertFn: func(_ context.Context, ns string, vecs []*siterag.EmbeddedVector) (int, error) {
			mu.Lock()
			defer mu.Unlock()
			for _, v := range vecs {
				stored[ns+"/"+v.ID] = v
			}
			return len(vecs), nil
		},
	}
	crawler := &crawl.Crawler{
		Fetcher: s.fetcher(),
		Parser:  goquery.NewParser(),
		Indexer: &crawl.Indexer{
			Chunker:  mustChunker(t),
			Embedder: constantEmbedder(3),
			Index:    index,
		},
	}

	stats, err := crawler.Run(context.Background(), newJob("job-1", "https://example.com/"))

	require.NoError(t, err)
	assert.Equal(t, 2, stats.Chunks)
	assert.Equal(t, 2, stats.Vectors)
	require.Len(t, stored, 2)
	for _, v := range stored {
		assert.Equal(t, "job-1", v.Namespace)
		assert.NotEmpty(t, v.Title)
		assert.Equal(t, "example.com", v.Domain)
	}
}

func TestCrawler_Run_BackendFailureFailsJob(t *testing.T) {
	t.Parallel()

	s := newSite(map[string]string{
		"https://example.com/":  page("Home", "/a"),
		"https://example.com/a": page("A"),
	})
	upserts := 0
	crawler := &crawl.Crawler{
		Fetcher: s.fetcher(),
		Parser:  goquery.NewParser(),
		Indexer: &crawl.Indexer{
			Chunker:  mustChunker(t),
			Embedder: constantEmbedder(3),
			Index: &mock.VectorIndex{
				DimensionsFn: func() int { return 3 },
				UpsertFn: func(_ context.Context, _ string, vecs []*siterag.EmbeddedVector) (int, error) {
					upserts++
					if upserts > 1 {
						return 0, siterag.Errorf(siterag.EUNAVAILABLE, "index unavailable")
					}
					return len(vecs), nil
				},
			},
		},
	}
	job := newJob("job-1", "https://example.com/")
	job.Concurrency = 1

	stats, err := crawler.Run(context.Background(), job)

	require.Error(t, err)
	assert.Equal(t, siterag.EUNAVAILABLE, siterag.ErrorCode(err))
	assert.Equal(t, siterag.JobFailed, job.Status)
	assert.Equal(t, "index unavailable", job.Error)
	assert.Equal(t, 1, stats.Vectors, "vectors committed before the failure are kept")
}

func TestCrawler_Run_PageSinkFailureFailsJob(t *testing.T) {
	t.Parallel()

	s := newSite(map[string]string{"https://example.com/": page("Home")})
	crawler := &crawl.Crawler{
		Fetcher: s.fetcher(),
		Parser:  goquery.NewParser(),
		Pages: &mock.PageSink{SavePageFn: func(context.Context, *siterag.PageRecord) error {
			return siterag.Errorf(siterag.EUNAVAILABLE, "database is locked")
		}},
	}
	job := newJob("job-1", "https://example.com/")

	_, err := crawler.Run(context.Background(), job)

	require.Error(t, err)
	assert.Equal(t, siterag.JobFailed, job.Status)
}

func TestCrawler_Run_DiscoveryModeSeeds(t *testing.T) {
	t.Parallel()

	s := newSite(map[string]string{
		"https://example.com/docs/a": page("A", "/docs/c"),
		"https://example.com/docs/b": page("B"),
		"https://example.com/docs/c": page("C"),
	})
	crawler := &crawl.Crawler{Fetcher: s.fetcher(), Parser: goquery.NewParser()}
	job := newJob("job-1", "")
	job.SeedURLs = []string{"https://example.com/docs/a", "https://example.com/docs/b", "https://example.com/docs/a"}
	job.MaxDepth = 1

	stats, err := crawler.Run(context.Background(), job)

	require.NoError(t, err)
	assert.Equal(t, 2, stats.Scraped)
	assert.Zero(t, s.callCount("https://example.com/docs/c"))
	assert.Equal(t, 3, stats.Discovered)
}
