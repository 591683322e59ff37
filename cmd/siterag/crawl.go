package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fwojciec/siterag"
	"github.com/fwojciec/siterag/crawl"
	"github.com/fwojciec/siterag/fs"
	"github.com/fwojciec/siterag/goquery"
	ragprom "github.com/fwojciec/siterag/prometheus"
	ragslog "github.com/fwojciec/siterag/slog"
)

// strategyAuto probes the start URL with both fetchers before the job starts.
const strategyAuto = "auto"

// Run executes the crawl command.
func (c *CrawlCmd) Run(deps *Dependencies) error {
	job, err := c.job(deps)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", siterag.ErrorMessage(err))
		return err
	}

	fetcher, err := c.fetcher(deps, job)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", siterag.ErrorMessage(err))
		return err
	}
	defer fetcher.Close()

	if err := deps.Jobs.CreateJob(deps.Ctx, job); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", siterag.ErrorMessage(err))
		return err
	}
	fmt.Fprintf(deps.Stdout, "Started job %s (%s, %d seed URLs)\n", job.ID, job.Strategy, len(job.Seeds()))

	if c.MetricsAddr != "" && deps.Metrics != nil {
		stop := serveMetrics(deps, c.MetricsAddr)
		defer stop()
	}

	crawler := c.crawler(deps, job, fetcher)
	stats, err := deps.Controller.Run(deps.Ctx, crawler, job)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, crawl.ErrJobCancelled) {
			fmt.Fprintf(deps.Stderr, "job %s cancelled\n", job.ID)
		} else {
			fmt.Fprintf(deps.Stderr, "error crawling: %s\n", siterag.ErrorMessage(err))
		}
		return err
	}

	fmt.Fprintf(deps.Stdout, "Finished job %s: %s\n", job.ID, crawl.Summary(*stats))
	if c.Archive != "" {
		fmt.Fprintf(deps.Stdout, "  Archived pages under %s/%s\n", c.Archive, job.ID)
	}
	return nil
}

// job builds the job from flags and config defaults.
func (c *CrawlCmd) job(deps *Dependencies) (*siterag.Job, error) {
	cfg := deps.Config.Crawl
	job := &siterag.Job{
		ID:          c.ID,
		StartURL:    c.URL,
		SeedURLs:    c.Seeds,
		Query:       c.Query,
		Strategy:    siterag.Strategy(c.Strategy),
		MaxDepth:    orDefault(c.MaxDepth, cfg.MaxDepth),
		MaxPages:    orDefault(c.MaxPages, cfg.MaxPages),
		Concurrency: orDefault(c.Concurrency, cfg.Concurrency),
	}
	if job.StartURL == "" && len(job.SeedURLs) == 0 {
		return nil, siterag.Errorf(siterag.EINVALID, "a start URL or at least one --seed is required")
	}

	if c.Sitemap {
		if job.StartURL == "" {
			return nil, siterag.Errorf(siterag.EINVALID, "--sitemap requires a start URL")
		}
		filter, err := siterag.CompileURLFilter(c.Filter, c.Exclude)
		if err != nil {
			return nil, err
		}
		urls, err := deps.Sitemaps.DiscoverURLs(deps.Ctx, job.StartURL, filter)
		if err != nil {
			return nil, err
		}
		if len(urls) == 0 {
			return nil, siterag.Errorf(siterag.ENOTFOUND, "no sitemap URLs found for %s", job.StartURL)
		}
		fmt.Fprintf(deps.Stdout, "Found %d sitemap URLs\n", len(urls))
		job.SeedURLs = urls
	}
	return job, nil
}

// fetcher opens the fetcher for the job's strategy, resolving the auto
// strategy by probing the first seed URL.
func (c *CrawlCmd) fetcher(deps *Dependencies, job *siterag.Job) (siterag.Fetcher, error) {
	if c.Strategy != strategyAuto {
		return deps.NewFetcher(job.Strategy)
	}

	light, err := deps.NewFetcher(siterag.StrategyLightweight)
	if err != nil {
		return nil, err
	}
	rendered, err := deps.NewFetcher(siterag.StrategyRendered)
	if err != nil {
		fmt.Fprintln(deps.Stderr, "Hint: Chrome or Chromium is needed to probe rendering; using lightweight")
		job.Strategy = siterag.StrategyLightweight
		return light, nil
	}

	strategy, err := crawl.ChooseStrategy(deps.Ctx, job.Seeds()[0], light, rendered, deps.Extractor)
	if err != nil {
		light.Close()
		rendered.Close()
		return nil, err
	}
	job.Strategy = strategy
	fmt.Fprintf(deps.Stdout, "Selected %s strategy\n", strategy)
	if strategy == siterag.StrategyRendered {
		light.Close()
		return rendered, nil
	}
	rendered.Close()
	return light, nil
}

func (c *CrawlCmd) crawler(deps *Dependencies, job *siterag.Job, fetcher siterag.Fetcher) *crawl.Crawler {
	if deps.Metrics != nil {
		fetcher = ragprom.NewFetcher(fetcher, deps.Metrics)
	}
	fetcher = ragslog.NewLoggingFetcher(fetcher, deps.Logger)

	progress := append(siterag.ProgressSinks{&progressPrinter{stdout: deps.Stdout, stderr: deps.Stderr}}, deps.Progress...)
	if deps.Metrics != nil {
		progress = append(progress, ragprom.NewProgressSink(deps.Metrics))
	}

	crawler := &crawl.Crawler{
		Fetcher:   fetcher,
		Parser:    goquery.NewParser(goquery.WithExtractor(deps.Extractor)),
		Limiter:   crawl.NewDomainLimiter(deps.Config.Crawl.RequestsPerSecond),
		Robots:    deps.Robots,
		Pages:     deps.Pages,
		Documents: deps.Documents,
		Progress:  progress,
		Jobs:      deps.Jobs,
		Scope:     crawl.Scope(c.Scope),
		OnRetry: func(url string, attempt int, err error) {
			deps.Logger.Debug("retrying fetch", "url", url, "attempt", attempt, "err", err)
		},
	}
	if c.Archive != "" {
		crawler.Archive = fs.NewArchive(c.Archive, job.ID, deps.Converter)
	}
	if !c.NoIndex {
		crawler.Indexer = &crawl.Indexer{
			Chunker:      deps.Chunker,
			Embedder:     deps.Embedder,
			Index:        deps.Index,
			TokenCounter: deps.Tokens,
		}
	}
	return crawler
}

// serveMetrics exposes deps.Metrics on addr until the returned func is
// called.
func serveMetrics(deps *Dependencies, addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", deps.Metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			deps.Logger.Error("metrics server", "addr", addr, "err", err)
		}
	}()
	fmt.Fprintf(deps.Stdout, "Serving metrics on http://%s/metrics\n", addr)
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

// progressPrinter reports crawl progress on the terminal.
type progressPrinter struct {
	stdout io.Writer
	stderr io.Writer
}

func (p *progressPrinter) OnProgress(_ context.Context, e siterag.ProgressEvent) {
	if e.Status == siterag.PageFailed {
		fmt.Fprintf(p.stderr, "  skip %s: %s\n", crawl.TruncateURL(e.URL, 80), e.Error)
		return
	}
	fmt.Fprintf(p.stdout, "  [%d/%d] %s\n", e.Scraped+e.Failed, e.Discovered, crawl.TruncateURL(e.URL, 80))
}

func (p *progressPrinter) OnCompletion(_ context.Context, c siterag.Completion) {
	if c.Status == siterag.JobFailed && c.Error != "" {
		fmt.Fprintf(p.stderr, "  job failed: %s\n", c.Error)
	}
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
