package mock

import (
	"context"

	"github.com/fwojciec/siterag"
)

var _ siterag.Embedder = (*Embedder)(nil)

// Embedder is a mock implementation of siterag.Embedder.
type Embedder struct {
	EmbedFn      func(ctx context.Context, texts []string) ([][]float32, error)
	DimensionsFn func() int
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return e.EmbedFn(ctx, texts)
}

func (e *Embedder) Dimensions() int {
	return e.DimensionsFn()
}
