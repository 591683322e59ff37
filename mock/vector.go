package mock

import (
	"context"

	"github.com/fwojciec/siterag"
)

var _ siterag.VectorIndex = (*VectorIndex)(nil)

// VectorIndex is a mock implementation of siterag.VectorIndex.
type VectorIndex struct {
	UpsertFn     func(ctx context.Context, namespace string, vectors []*siterag.EmbeddedVector) (int, error)
	QueryFn      func(ctx context.Context, namespace string, vector []float32, topK int) ([]*siterag.VectorMatch, error)
	StatsFn      func(ctx context.Context, namespace string) (*siterag.IndexStats, error)
	DimensionsFn func() int
}

func (v *VectorIndex) Upsert(ctx context.Context, namespace string, vectors []*siterag.EmbeddedVector) (int, error) {
	return v.UpsertFn(ctx, namespace, vectors)
}

func (v *VectorIndex) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]*siterag.VectorMatch, error) {
	return v.QueryFn(ctx, namespace, vector, topK)
}

func (v *VectorIndex) Stats(ctx context.Context, namespace string) (*siterag.IndexStats, error) {
	return v.StatsFn(ctx, namespace)
}

func (v *VectorIndex) Dimensions() int {
	return v.DimensionsFn()
}
