package crawl

import (
	"context"
	"sort"
	"sync"

	"github.com/fwojciec/siterag"
)

// ErrJobCancelled is the cancellation cause recorded when a job is stopped
// through Controller.Cancel.
var ErrJobCancelled = siterag.Errorf(siterag.ECONFLICT, "job cancelled")

// Controller runs crawl jobs keyed by job ID and lets callers cancel them by
// ID. Controller is safe for concurrent use.
type Controller struct {
	mu      sync.Mutex
	running map[string]context.CancelCauseFunc
}

// NewController creates an idle Controller.
func NewController() *Controller {
	return &Controller{running: make(map[string]context.CancelCauseFunc)}
}

// Run executes job with crawler and blocks until it reaches a terminal
// state. Returns ECONFLICT if a job with the same ID is already running.
func (c *Controller) Run(ctx context.Context, crawler *Crawler, job *siterag.Job) (*siterag.JobStats, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	c.mu.Lock()
	if _, ok := c.running[job.ID]; ok {
		c.mu.Unlock()
		return nil, siterag.Errorf(siterag.ECONFLICT, "job %q is already running", job.ID)
	}
	c.running[job.ID] = cancel
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.running, job.ID)
		c.mu.Unlock()
	}()

	return crawler.Run(ctx, job)
}

// Cancel stops the job with the given ID. It reports whether such a job was
// running.
func (c *Controller) Cancel(jobID string) bool {
	c.mu.Lock()
	cancel, ok := c.running[jobID]
	c.mu.Unlock()
	if ok {
		cancel(ErrJobCancelled)
	}
	return ok
}

// CancelAll stops every running job.
func (c *Controller) CancelAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, cancel := range c.running {
		cancel(ErrJobCancelled)
	}
}

// Running returns the IDs of running jobs in sorted order.
func (c *Controller) Running() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.running))
	for id := range c.running {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
