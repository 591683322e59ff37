package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/siterag"
)

// Ensure LoggingVectorIndex implements siterag.VectorIndex.
var _ siterag.VectorIndex = (*LoggingVectorIndex)(nil)

// LoggingVectorIndex wraps a VectorIndex with logging.
type LoggingVectorIndex struct {
	next   siterag.VectorIndex
	logger *slog.Logger
}

// NewLoggingVectorIndex creates a new LoggingVectorIndex.
func NewLoggingVectorIndex(next siterag.VectorIndex, logger *slog.Logger) *LoggingVectorIndex {
	return &LoggingVectorIndex{next: next, logger: logger}
}

// Upsert delegates to the wrapped index and logs the committed count.
func (v *LoggingVectorIndex) Upsert(ctx context.Context, namespace string, vectors []*siterag.EmbeddedVector) (n int, err error) {
	defer func(begin time.Time) {
		v.logger.Info("vector upsert",
			"namespace", namespace,
			"vectors", len(vectors),
			"committed", n,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return v.next.Upsert(ctx, namespace, vectors)
}

// Query delegates to the wrapped index and logs the match count.
func (v *LoggingVectorIndex) Query(ctx context.Context, namespace string, vector []float32, topK int) (matches []*siterag.VectorMatch, err error) {
	defer func(begin time.Time) {
		v.logger.Info("vector query",
			"namespace", namespace,
			"top_k", topK,
			"matches", len(matches),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return v.next.Query(ctx, namespace, vector, topK)
}

// Stats delegates to the wrapped index.
func (v *LoggingVectorIndex) Stats(ctx context.Context, namespace string) (*siterag.IndexStats, error) {
	return v.next.Stats(ctx, namespace)
}

// Dimensions delegates to the wrapped index.
func (v *LoggingVectorIndex) Dimensions() int {
	return v.next.Dimensions()
}
