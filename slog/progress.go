package slog

import (
	"context"
	"log/slog"

	"github.com/fwojciec/siterag"
)

// Ensure ProgressSink implements siterag.ProgressSink.
var _ siterag.ProgressSink = (*ProgressSink)(nil)

// ProgressSink writes crawl progress as log records. Failed pages log at
// warning level and failed jobs at error level.
type ProgressSink struct {
	logger *slog.Logger
}

// NewProgressSink creates a new ProgressSink.
func NewProgressSink(logger *slog.Logger) *ProgressSink {
	return &ProgressSink{logger: logger}
}

// OnProgress logs one processed URL.
func (s *ProgressSink) OnProgress(ctx context.Context, e siterag.ProgressEvent) {
	level := slog.LevelInfo
	attrs := []any{
		"job", e.JobID,
		"url", e.URL,
		"depth", e.Depth,
		"status", e.Status,
		"scraped", e.Scraped,
		"failed", e.Failed,
		"discovered", e.Discovered,
		"queued", e.Queued,
	}
	if e.Status == siterag.PageFailed {
		level = slog.LevelWarn
		attrs = append(attrs, "err", e.Error)
	}
	s.logger.Log(ctx, level, "page", attrs...)
}

// OnCompletion logs the final state of a job.
func (s *ProgressSink) OnCompletion(ctx context.Context, c siterag.Completion) {
	level := slog.LevelInfo
	attrs := []any{
		"job", c.JobID,
		"status", c.Status,
		"discovered", c.Stats.Discovered,
		"scraped", c.Stats.Scraped,
		"failed", c.Stats.Failed,
		"documents", c.Stats.Documents,
		"chunks", c.Stats.Chunks,
		"vectors", c.Stats.Vectors,
	}
	if c.Status == siterag.JobFailed {
		level = slog.LevelError
		attrs = append(attrs, "err", c.Error)
	}
	s.logger.Log(ctx, level, "job finished", attrs...)
}
