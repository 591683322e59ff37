package mock

import (
	"context"

	"github.com/fwojciec/siterag"
)

var (
	_ siterag.Retriever = (*Retriever)(nil)
	_ siterag.Reranker  = (*Reranker)(nil)
)

// Retriever is a mock implementation of siterag.Retriever.
type Retriever struct {
	RetrieveFn func(ctx context.Context, query, namespace string, topK int) ([]*siterag.SearchResult, error)
}

func (r *Retriever) Retrieve(ctx context.Context, query, namespace string, topK int) ([]*siterag.SearchResult, error) {
	return r.RetrieveFn(ctx, query, namespace, topK)
}

// Reranker is a mock implementation of siterag.Reranker.
type Reranker struct {
	RerankFn func(query string, results []*siterag.SearchResult) []*siterag.SearchResult
}

func (r *Reranker) Rerank(query string, results []*siterag.SearchResult) []*siterag.SearchResult {
	return r.RerankFn(query, results)
}
