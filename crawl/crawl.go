// Package crawl provides crawl orchestration: a breadth-first, level-aware
// walk over a bounded worker pool that fetches, parses and optionally
// indexes every page it reaches.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fwojciec/siterag"
	"github.com/fwojciec/siterag/bloom"
	"golang.org/x/sync/errgroup"
)

// Discovered-URL counter sizing.
const (
	discoveredExpectedURLs  = 100000
	discoveredFalsePositive = 0.001
)

// Crawler runs crawl jobs. Fetcher and Parser are required; every other
// collaborator is optional.
type Crawler struct {
	Fetcher siterag.Fetcher
	Parser  siterag.Parser

	// Limiter spaces requests per host before every fetch attempt.
	Limiter siterag.DomainLimiter
	// Robots rejects URLs the site's crawl policy disallows.
	Robots siterag.RobotsPolicy

	// Pages receives one record per processed URL. A sink error fails the job.
	Pages siterag.PageSink
	// Archive receives successful pages and is committed only when the job
	// completes.
	Archive siterag.PageArchive
	// Documents receives each document link once per job.
	Documents siterag.DocumentSink
	// Progress receives an event after every processed URL and one
	// completion.
	Progress siterag.ProgressSink
	// Jobs persists job status transitions.
	Jobs siterag.JobService

	// Indexer chunks, embeds and upserts page text into the job's namespace.
	Indexer *Indexer

	Scope       Scope
	RetryDelays []time.Duration
	OnRetry     RetryFunc

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// pageResult is the outcome of processing one URL on a worker.
type pageResult struct {
	entry   siterag.FrontierEntry
	record  *siterag.PageRecord
	indexed IndexResult
	// fatal is set when a backend failure must end the job.
	fatal error
}

// Validate checks the crawler's collaborators for job. Problems return
// EINVALID.
func (c *Crawler) Validate(job *siterag.Job) error {
	if c.Fetcher == nil || c.Parser == nil {
		return siterag.Errorf(siterag.EINVALID, "crawler requires a fetcher and a parser")
	}
	if !c.Scope.Valid() {
		return siterag.Errorf(siterag.EINVALID, "unknown scope %q", c.Scope)
	}
	if err := job.Validate(); err != nil {
		return err
	}
	if c.Indexer != nil {
		if err := c.Indexer.Validate(job.ID); err != nil {
			return err
		}
	}
	return nil
}

// Run executes job to a terminal state and returns its final statistics.
// The job moves from pending to running, then to completed, failed or
// cancelled. Configuration errors fail the job before it starts running.
// Per-URL failures are recorded and counted without failing the job.
// Run returns the failure cause for failed jobs and ctx.Err() for cancelled
// ones. The job is updated in place.
func (c *Crawler) Run(ctx context.Context, job *siterag.Job) (*siterag.JobStats, error) {
	if job.Status == "" {
		job.Status = siterag.JobPending
	}
	if job.Concurrency == 0 {
		job.Concurrency = siterag.DefaultConcurrency
	}

	if err := c.Validate(job); err != nil {
		return &job.Stats, c.finish(ctx, job, siterag.JobFailed, err)
	}

	if err := c.transition(ctx, job, siterag.JobRunning, nil); err != nil {
		return &job.Stats, c.finish(ctx, job, siterag.JobFailed, err)
	}

	err := c.walk(ctx, job)
	switch {
	case err != nil:
		return &job.Stats, c.finish(ctx, job, siterag.JobFailed, err)
	case ctx.Err() != nil:
		return &job.Stats, c.finish(ctx, job, siterag.JobCancelled, ctx.Err())
	}
	return &job.Stats, c.finish(ctx, job, siterag.JobCompleted, nil)
}

// walk drains the frontier with a bounded worker pool. The coordinator owns
// all job state; workers only fetch, parse and index.
func (c *Crawler) walk(ctx context.Context, job *siterag.Job) error {
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	frontier := NewFrontier()
	discovered := bloom.NewSet(discoveredExpectedURLs, discoveredFalsePositive)
	scope := newScopeSet(c.Scope, job.Seeds())
	documents := make(map[string]bool)

	for _, seed := range job.Seeds() {
		if frontier.Push(siterag.FrontierEntry{URL: seed, Depth: 0}) {
			discovered.Add(seed)
		}
	}
	job.Stats.Discovered = discovered.Len()

	workCh := make(chan siterag.FrontierEntry)
	resultCh := make(chan pageResult)
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.runWorkers(wctx, job, workCh, resultCh)
	}()

	var (
		inflight int
		level    int
		fatal    error
	)

	handle := func(res pageResult) {
		inflight--
		if fatal != nil || ctx.Err() != nil {
			// In-flight results are discarded once the job stops.
			return
		}
		if res.fatal != nil {
			fatal = res.fatal
			cancel()
			return
		}
		if err := c.record(ctx, job, res, frontier, scope, discovered, documents); err != nil {
			fatal = err
			cancel()
		}
	}

loop:
	for {
		if fatal != nil || ctx.Err() != nil {
			break
		}

		// Level-aware dispatch: a deeper URL waits until the current level
		// has no URL in flight.
		var send chan siterag.FrontierEntry
		next, ok := frontier.Peek()
		limited := job.Stats.Scraped+job.Stats.Failed+inflight >= job.MaxPages
		if ok && !limited && (inflight == 0 || next.Depth == level) {
			send = workCh
		}
		if send == nil && inflight == 0 {
			break
		}

		select {
		case <-ctx.Done():
			break loop
		case send <- next:
			frontier.Pop()
			inflight++
			level = next.Depth
		case res := <-resultCh:
			handle(res)
		}
	}

	close(workCh)
	for inflight > 0 {
		select {
		case res := <-resultCh:
			handle(res)
		case <-done:
			inflight = 0
		}
	}
	<-done
	return fatal
}

// runWorkers processes entries from workCh until it is closed.
func (c *Crawler) runWorkers(ctx context.Context, job *siterag.Job, workCh <-chan siterag.FrontierEntry, resultCh chan<- pageResult) {
	var g errgroup.Group
	for range job.Concurrency {
		g.Go(func() error {
			for entry := range workCh {
				res := c.process(ctx, job, entry)
				select {
				case resultCh <- res:
				case <-ctx.Done():
				}
			}
			return nil
		})
	}
	_ = g.Wait()
}

// process fetches, parses and indexes one URL.
func (c *Crawler) process(ctx context.Context, job *siterag.Job, entry siterag.FrontierEntry) pageResult {
	res := pageResult{entry: entry}

	if c.Robots != nil && !c.Robots.Allowed(ctx, entry.URL) {
		res.record = siterag.Failed(job.ID, entry.URL, entry.Depth,
			siterag.Errorf(siterag.EPERMANENT, "disallowed by robots.txt: %s", entry.URL))
		return res
	}

	host := siterag.Hostname(entry.URL)
	fetch := func(ctx context.Context, url string) (*siterag.FetchResult, error) {
		if c.Limiter != nil {
			if err := c.Limiter.Wait(ctx, host); err != nil {
				return nil, err
			}
		}
		return c.Fetcher.Fetch(ctx, url)
	}
	delays := c.RetryDelays
	if delays == nil {
		delays = DefaultRetryDelays()
	}

	fetched, err := FetchWithRetry(ctx, entry.URL, fetch, delays, c.OnRetry)
	if err != nil {
		res.record = siterag.Failed(job.ID, entry.URL, entry.Depth, err)
		return res
	}

	base := fetched.FinalURL
	if base == "" {
		base = entry.URL
	}
	rec := c.Parser.Parse(fetched.HTML, base)
	rec.JobID = job.ID
	rec.URL = entry.URL
	rec.Domain = siterag.Hostname(entry.URL)
	rec.Depth = entry.Depth
	rec.Status = siterag.PageSuccess
	rec.StatusCode = fetched.StatusCode
	rec.ContentHash = ComputeHash(rec.Text)
	rec.FetchedAt = c.now()
	mergeLinks(rec, fetched.Links)
	res.record = rec

	if c.Indexer != nil && rec.Text != "" {
		indexed, err := c.Indexer.IndexPage(ctx, job.ID, rec)
		res.indexed = indexed
		if err != nil && ctx.Err() == nil {
			res.fatal = err
		}
	}
	return res
}

// mergeLinks adds fetcher-observed links missing from the parsed record,
// such as anchors created by scripts.
func mergeLinks(rec *siterag.PageRecord, links []string) {
	seen := make(map[string]bool, len(rec.Links)+len(rec.DocumentLinks))
	for _, l := range rec.Links {
		seen[l] = true
	}
	for _, l := range rec.DocumentLinks {
		seen[l] = true
	}
	for _, l := range links {
		u, err := siterag.NormalizeURL(l)
		if err != nil || seen[u] || u == rec.URL {
			continue
		}
		seen[u] = true
		if siterag.IsDocumentURL(u) {
			rec.DocumentLinks = append(rec.DocumentLinks, u)
		} else {
			rec.Links = append(rec.Links, u)
		}
	}
}

// record applies a worker result to the job on the coordinator goroutine.
func (c *Crawler) record(
	ctx context.Context,
	job *siterag.Job,
	res pageResult,
	frontier *Frontier,
	scope *scopeSet,
	discovered *bloom.Set,
	documents map[string]bool,
) error {
	rec := res.record
	stats := &job.Stats

	if err := c.savePage(ctx, rec); err != nil {
		return err
	}

	if rec.Status == siterag.PageSuccess {
		stats.Scraped++
		stats.Bytes += rec.ContentLength
		stats.Chunks += res.indexed.Chunks
		stats.Vectors += res.indexed.Vectors
		stats.Tokens += res.indexed.Tokens

		for _, link := range rec.Links {
			discovered.Add(link)
			if res.entry.Depth+1 < job.MaxDepth && scope.Contains(link) {
				frontier.Push(siterag.FrontierEntry{URL: link, Depth: res.entry.Depth + 1})
			}
		}
		for _, link := range rec.DocumentLinks {
			discovered.Add(link)
			if documents[link] {
				continue
			}
			documents[link] = true
			stats.Documents++
			if c.Documents != nil {
				doc := siterag.DocumentLink{JobID: job.ID, URL: link, SourceURL: rec.URL, Depth: res.entry.Depth + 1}
				if err := c.Documents.HandleDocument(ctx, doc); err != nil {
					return fmt.Errorf("document handoff: %w", err)
				}
			}
		}
	} else {
		stats.Failed++
	}
	stats.Discovered = discovered.Len()

	if c.Progress != nil {
		c.Progress.OnProgress(ctx, siterag.ProgressEvent{
			JobID:      job.ID,
			URL:        rec.URL,
			Depth:      rec.Depth,
			Status:     rec.Status,
			Error:      rec.Error,
			Scraped:    stats.Scraped,
			Failed:     stats.Failed,
			Discovered: stats.Discovered,
			Queued:     frontier.Len(),
			Time:       c.now(),
		})
	}
	return nil
}

func (c *Crawler) savePage(ctx context.Context, rec *siterag.PageRecord) error {
	if c.Pages != nil {
		if err := c.Pages.SavePage(ctx, rec); err != nil {
			return fmt.Errorf("saving page %s: %w", rec.URL, err)
		}
	}
	if c.Archive != nil && rec.Status == siterag.PageSuccess {
		if err := c.Archive.SavePage(ctx, rec); err != nil {
			return fmt.Errorf("archiving page %s: %w", rec.URL, err)
		}
	}
	return nil
}

// transition moves job to status and persists the change.
func (c *Crawler) transition(ctx context.Context, job *siterag.Job, status siterag.JobStatus, cause error) error {
	now := c.now()
	job.Status = status
	if status == siterag.JobRunning {
		job.StartedAt = now
	}
	if status.Terminal() {
		job.FinishedAt = now
	}
	if cause != nil {
		job.Error = cause.Error()
		var e *siterag.Error
		if errors.As(cause, &e) {
			job.Error = e.Message
		}
	}

	if c.Jobs == nil || job.ID == "" {
		return nil
	}
	upd := siterag.JobUpdate{Status: &job.Status, Stats: &job.Stats}
	if !job.StartedAt.IsZero() {
		upd.StartedAt = &job.StartedAt
	}
	if !job.FinishedAt.IsZero() {
		upd.FinishedAt = &job.FinishedAt
	}
	if job.Error != "" {
		upd.Error = &job.Error
	}
	if _, err := c.Jobs.UpdateJob(ctx, job.ID, upd); err != nil {
		return fmt.Errorf("updating job %s: %w", job.ID, err)
	}
	return nil
}

// finish moves job to its terminal status, settles the archive and notifies
// progress sinks. It returns cause joined with any bookkeeping failure.
func (c *Crawler) finish(ctx context.Context, job *siterag.Job, status siterag.JobStatus, cause error) error {
	// Terminal bookkeeping must happen even when the job was cancelled.
	ctx = context.WithoutCancel(ctx)

	var errs []error
	if cause != nil {
		errs = append(errs, cause)
	}
	if err := c.transition(ctx, job, status, cause); err != nil {
		errs = append(errs, err)
	}
	if c.Archive != nil {
		settle := c.Archive.Abort
		if status == siterag.JobCompleted {
			settle = c.Archive.Commit
		}
		if err := settle(); err != nil {
			errs = append(errs, fmt.Errorf("settling archive: %w", err))
		}
	}
	if c.Progress != nil {
		c.Progress.OnCompletion(ctx, siterag.Completion{
			JobID:  job.ID,
			Status: job.Status,
			Stats:  job.Stats,
			Error:  job.Error,
			Time:   c.now(),
		})
	}
	if len(errs) == 1 {
		return errs[0]
	}
	return errors.Join(errs...)
}

func (c *Crawler) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now().UTC()
}
