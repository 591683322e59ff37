package siterag

import (
	"context"
	"net/url"
	"time"
)

// Default crawl limits applied when a job leaves them unset.
const (
	DefaultMaxDepth    = 3
	DefaultMaxPages    = 100
	DefaultConcurrency = 5
)

// Strategy selects how pages are fetched for a job.
type Strategy string

const (
	// StrategyLightweight issues a single HTTP request per page and sees
	// only the links present in the initial markup.
	StrategyLightweight Strategy = "lightweight"

	// StrategyRendered loads each page in a shared headless browser session
	// and sees links materialized by scripts.
	StrategyRendered Strategy = "rendered"
)

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool {
	return s == StrategyLightweight || s == StrategyRendered
}

// JobStatus is the lifecycle state of a crawl job.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s JobStatus) Valid() bool {
	return s == JobPending || s == JobRunning || s.Terminal()
}

// Terminal reports whether no further transitions are possible.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed || s == JobCancelled
}

// JobStats holds the counters a crawl accumulates.
type JobStats struct {
	Discovered int `json:"discovered"`
	Scraped    int `json:"scraped"`
	Failed     int `json:"failed"`
	Documents  int `json:"documents"`
	Chunks     int `json:"chunks"`
	Vectors    int `json:"vectors"`
	Tokens     int `json:"tokens"`
	Bytes      int `json:"bytes"`
}

// Job represents one crawl run. The job ID doubles as the vector index
// namespace for everything the crawl indexes.
type Job struct {
	ID string `json:"id"`

	// StartURL is crawled at depth 0 in direct mode.
	StartURL string `json:"startUrl"`

	// SeedURLs replace StartURL in discovery mode. All seeds start at depth 0.
	SeedURLs []string `json:"seedUrls,omitempty"`

	// Query is the discovery query that produced SeedURLs, if any.
	Query string `json:"query,omitempty"`

	Strategy    Strategy `json:"strategy"`
	MaxDepth    int      `json:"maxDepth"`
	MaxPages    int      `json:"maxPages"`
	Concurrency int      `json:"concurrency"`

	Status JobStatus `json:"status"`
	Stats  JobStats  `json:"stats"`

	// Error is the human-readable cause of a failed job.
	Error string `json:"error,omitempty"`

	CreatedAt  time.Time `json:"createdAt"`
	StartedAt  time.Time `json:"startedAt,omitzero"`
	FinishedAt time.Time `json:"finishedAt,omitzero"`
}

// Seeds returns the URLs the crawl starts from.
func (j *Job) Seeds() []string {
	if len(j.SeedURLs) > 0 {
		return j.SeedURLs
	}
	if j.StartURL == "" {
		return nil
	}
	return []string{j.StartURL}
}

// Validate returns an error if the job contains invalid fields.
func (j *Job) Validate() error {
	seeds := j.Seeds()
	if len(seeds) == 0 {
		return Errorf(EINVALID, "job start URL or seed URLs required")
	}
	for _, s := range seeds {
		u, err := url.Parse(s)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return Errorf(EINVALID, "invalid job URL %q", s)
		}
	}
	if !j.Strategy.Valid() {
		return Errorf(EINVALID, "unknown strategy %q", j.Strategy)
	}
	if j.MaxDepth < 1 {
		return Errorf(EINVALID, "max depth must be at least 1")
	}
	if j.MaxPages < 1 {
		return Errorf(EINVALID, "max pages must be at least 1")
	}
	if j.Concurrency < 0 {
		return Errorf(EINVALID, "concurrency must not be negative")
	}
	return nil
}

// JobService represents a service for managing crawl jobs.
type JobService interface {
	// CreateJob creates a new job in the pending state.
	CreateJob(ctx context.Context, job *Job) error

	// FindJobByID retrieves a job by ID.
	// Returns ENOTFOUND if job does not exist.
	FindJobByID(ctx context.Context, id string) (*Job, error)

	// FindJobs retrieves jobs matching the filter, newest first.
	FindJobs(ctx context.Context, filter JobFilter) ([]*Job, error)

	// UpdateJob updates an existing job.
	// Returns ENOTFOUND if job does not exist.
	UpdateJob(ctx context.Context, id string, upd JobUpdate) (*Job, error)
}

// JobFilter represents a filter for FindJobs.
type JobFilter struct {
	ID     *string    `json:"id"`
	Status *JobStatus `json:"status"`

	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// JobUpdate represents fields that can be updated on a job.
type JobUpdate struct {
	Status     *JobStatus `json:"status"`
	Stats      *JobStats  `json:"stats"`
	Error      *string    `json:"error"`
	StartedAt  *time.Time `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt"`
}
