package siterag

import "context"

// DefaultTopK is the number of results returned when a query does not say.
const DefaultTopK = 10

// MaxTopK bounds the number of results a single query may request.
const MaxTopK = 100

// SearchResult is a retrieved chunk with its similarity score and source
// attribution.
type SearchResult struct {
	Rank       int     `json:"rank"`
	Score      float32 `json:"score"`
	Namespace  string  `json:"namespace"`
	URL        string  `json:"url"`
	Domain     string  `json:"domain"`
	Title      string  `json:"title"`
	ChunkIndex int     `json:"chunkIndex"`
	Snippet    string  `json:"snippet"`
	Text       string  `json:"text"`
}

// Retriever answers text queries against a namespace of the vector index.
type Retriever interface {
	Retrieve(ctx context.Context, query, namespace string, topK int) ([]*SearchResult, error)
}

// Reranker reorders a candidate set using a secondary signal. It must return
// a permutation of its input: no results may be added.
type Reranker interface {
	Rerank(query string, results []*SearchResult) []*SearchResult
}
