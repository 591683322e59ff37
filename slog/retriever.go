package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/siterag"
)

// Ensure LoggingRetriever implements siterag.Retriever.
var _ siterag.Retriever = (*LoggingRetriever)(nil)

// LoggingRetriever wraps a Retriever with logging.
type LoggingRetriever struct {
	next   siterag.Retriever
	logger *slog.Logger
}

// NewLoggingRetriever creates a new LoggingRetriever.
func NewLoggingRetriever(next siterag.Retriever, logger *slog.Logger) *LoggingRetriever {
	return &LoggingRetriever{next: next, logger: logger}
}

// Retrieve delegates to the wrapped retriever and logs the query.
func (r *LoggingRetriever) Retrieve(ctx context.Context, query, namespace string, topK int) (results []*siterag.SearchResult, err error) {
	defer func(begin time.Time) {
		r.logger.Info("retrieve",
			"query", query,
			"namespace", namespace,
			"top_k", topK,
			"results", len(results),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return r.next.Retrieve(ctx, query, namespace, topK)
}
