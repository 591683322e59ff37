package mock

import (
	"context"

	"github.com/fwojciec/siterag"
)

var (
	_ siterag.Chunker      = (*Chunker)(nil)
	_ siterag.TokenCounter = (*TokenCounter)(nil)
)

// Chunker is a mock implementation of siterag.Chunker.
type Chunker struct {
	ChunkFn func(url, text string) ([]*siterag.Chunk, error)
}

func (c *Chunker) Chunk(url, text string) ([]*siterag.Chunk, error) {
	return c.ChunkFn(url, text)
}

// TokenCounter is a mock implementation of siterag.TokenCounter.
type TokenCounter struct {
	CountTokensFn func(ctx context.Context, text string) (int, error)
}

func (tc *TokenCounter) CountTokens(ctx context.Context, text string) (int, error) {
	return tc.CountTokensFn(ctx, text)
}
