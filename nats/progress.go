package nats

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/fwojciec/siterag"
	"github.com/nats-io/nats.go"
)

var _ siterag.ProgressSink = (*ProgressSink)(nil)

// ProgressSink publishes progress events and completions as JSON. Publish
// failures are logged and never interrupt the crawl.
type ProgressSink struct {
	conn   *nats.Conn
	logger *slog.Logger
}

// NewProgressSink creates a new ProgressSink.
func NewProgressSink(conn *nats.Conn, logger *slog.Logger) *ProgressSink {
	return &ProgressSink{conn: conn, logger: logger}
}

// OnProgress publishes event to the job's progress subject.
func (s *ProgressSink) OnProgress(_ context.Context, event siterag.ProgressEvent) {
	s.publish(ProgressSubject(event.JobID), event)
}

// OnCompletion publishes completion to the job's completed subject and
// flushes the connection so it is delivered before the process exits.
func (s *ProgressSink) OnCompletion(_ context.Context, completion siterag.Completion) {
	s.publish(CompletedSubject(completion.JobID), completion)
	if err := s.conn.Flush(); err != nil {
		s.logger.Warn("flush progress", "job", completion.JobID, "err", err)
	}
}

func (s *ProgressSink) publish(subject string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("encode progress", "subject", subject, "err", err)
		return
	}
	if err := s.conn.Publish(subject, data); err != nil {
		s.logger.Warn("publish progress", "subject", subject, "err", err)
	}
}
