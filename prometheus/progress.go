package prometheus

import (
	"context"

	"github.com/fwojciec/siterag"
)

var _ siterag.ProgressSink = (*ProgressSink)(nil)

// ProgressSink counts processed pages and finished jobs.
type ProgressSink struct {
	metrics *Metrics
}

// NewProgressSink creates a new ProgressSink.
func NewProgressSink(m *Metrics) *ProgressSink {
	return &ProgressSink{metrics: m}
}

func (s *ProgressSink) OnProgress(_ context.Context, event siterag.ProgressEvent) {
	s.metrics.Pages.WithLabelValues(string(event.Status)).Inc()
}

func (s *ProgressSink) OnCompletion(_ context.Context, completion siterag.Completion) {
	s.metrics.Jobs.WithLabelValues(string(completion.Status)).Inc()
	s.metrics.Vectors.Add(float64(completion.Stats.Vectors))
}
