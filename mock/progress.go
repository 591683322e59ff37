package mock

import (
	"context"

	"github.com/fwojciec/siterag"
)

var _ siterag.ProgressSink = (*ProgressSink)(nil)

// ProgressSink is a mock implementation of siterag.ProgressSink.
// Nil functions are ignored so tests only set what they observe.
type ProgressSink struct {
	OnProgressFn   func(ctx context.Context, event siterag.ProgressEvent)
	OnCompletionFn func(ctx context.Context, completion siterag.Completion)
}

func (s *ProgressSink) OnProgress(ctx context.Context, event siterag.ProgressEvent) {
	if s.OnProgressFn != nil {
		s.OnProgressFn(ctx, event)
	}
}

func (s *ProgressSink) OnCompletion(ctx context.Context, completion siterag.Completion) {
	if s.OnCompletionFn != nil {
		s.OnCompletionFn(ctx, completion)
	}
}
