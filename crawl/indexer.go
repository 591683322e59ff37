package crawl

import (
	"context"
	"fmt"

	"github.com/fwojciec/siterag"
)

// IndexResult counts what indexing one page produced.
type IndexResult struct {
	Chunks  int
	Vectors int
	Tokens  int
}

// Indexer turns page text into vectors in a namespace: chunk, count tokens,
// embed, upsert. Each page is processed strictly in that order.
type Indexer struct {
	Chunker  siterag.Chunker
	Embedder siterag.Embedder
	Index    siterag.VectorIndex

	// TokenCounter is optional. Counting failures leave Tokens at zero.
	TokenCounter siterag.TokenCounter

	// BatchSize bounds the vectors per embed and upsert call.
	// Defaults to siterag.DefaultUpsertBatchSize.
	BatchSize int
}

// Validate checks the indexer configuration for namespace. Configuration
// problems return EINVALID.
func (ix *Indexer) Validate(namespace string) error {
	if ix.Chunker == nil || ix.Embedder == nil || ix.Index == nil {
		return siterag.Errorf(siterag.EINVALID, "indexer requires a chunker, an embedder and a vector index")
	}
	if v, ok := ix.Chunker.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	if err := siterag.CheckDimensions(ix.Embedder, ix.Index); err != nil {
		return err
	}
	if ix.BatchSize < 0 {
		return siterag.Errorf(siterag.EINVALID, "batch size must not be negative")
	}
	return siterag.ValidateNamespace(namespace, false)
}

// IndexPage chunks page.Text and upserts one vector per chunk into namespace.
// On failure the returned result still counts the vectors committed by
// earlier batches.
func (ix *Indexer) IndexPage(ctx context.Context, namespace string, page *siterag.PageRecord) (IndexResult, error) {
	var res IndexResult

	chunks, err := ix.Chunker.Chunk(page.URL, page.Text)
	if err != nil {
		return res, err
	}
	res.Chunks = len(chunks)

	if ix.TokenCounter != nil {
		for _, c := range chunks {
			if n, err := ix.TokenCounter.CountTokens(ctx, c.Text); err == nil {
				c.Tokens = n
				res.Tokens += n
			}
		}
	}

	size := ix.BatchSize
	if size <= 0 {
		size = siterag.DefaultUpsertBatchSize
	}
	for start := 0; start < len(chunks); start += size {
		batch := chunks[start:min(start+size, len(chunks))]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}
		values, err := ix.Embedder.Embed(ctx, texts)
		if err != nil {
			return res, fmt.Errorf("embedding %s: %w", page.URL, err)
		}
		if len(values) != len(batch) {
			return res, siterag.Errorf(siterag.EINTERNAL, "embedder returned %d vectors for %d texts", len(values), len(batch))
		}

		vecs := make([]*siterag.EmbeddedVector, len(batch))
		for i, c := range batch {
			vecs[i] = &siterag.EmbeddedVector{
				ID:         c.ID,
				Namespace:  namespace,
				Values:     values[i],
				URL:        page.URL,
				Domain:     page.Domain,
				Title:      page.Title,
				ChunkIndex: c.Index,
				Text:       c.Text,
			}
		}
		n, err := ix.Index.Upsert(ctx, namespace, vecs)
		res.Vectors += n
		if err != nil {
			return res, fmt.Errorf("upserting %s: %w", page.URL, err)
		}
	}
	return res, nil
}
