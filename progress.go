package siterag

import (
	"context"
	"time"
)

// ProgressEvent reports the state of a job after one URL was processed.
// Events are values: sinks may keep them without copying.
type ProgressEvent struct {
	JobID      string     `json:"jobId"`
	URL        string     `json:"url"`
	Depth      int        `json:"depth"`
	Status     PageStatus `json:"status"`
	Error      string     `json:"error,omitempty"`
	Scraped    int        `json:"scraped"`
	Failed     int        `json:"failed"`
	Discovered int        `json:"discovered"`
	Queued     int        `json:"queued"`
	Time       time.Time  `json:"time"`
}

// Completion reports the final state of a job.
type Completion struct {
	JobID  string    `json:"jobId"`
	Status JobStatus `json:"status"`
	Stats  JobStats  `json:"stats"`
	Error  string    `json:"error,omitempty"`
	Time   time.Time `json:"time"`
}

// ProgressSink receives job progress. It is the only coupling between a
// crawl and whatever presents its progress.
type ProgressSink interface {
	OnProgress(ctx context.Context, event ProgressEvent)
	OnCompletion(ctx context.Context, completion Completion)
}

// ProgressSinks fans events out to several sinks in order.
type ProgressSinks []ProgressSink

func (s ProgressSinks) OnProgress(ctx context.Context, event ProgressEvent) {
	for _, sink := range s {
		sink.OnProgress(ctx, event)
	}
}

func (s ProgressSinks) OnCompletion(ctx context.Context, completion Completion) {
	for _, sink := range s {
		sink.OnCompletion(ctx, completion)
	}
}
