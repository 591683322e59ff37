// Package retrieve answers text queries against the vector index with
// source attribution and optional re-ranking.
package retrieve

import (
	"context"
	"strings"
	"unicode"

	"github.com/fwojciec/siterag"
)

// SnippetLength is the maximum rune length of a result snippet, excluding
// the trailing ellipsis.
const SnippetLength = 200

// DefaultCandidateFactor multiplies topK to size the candidate set handed to
// a reranker.
const DefaultCandidateFactor = 3

var _ siterag.Retriever = (*Retriever)(nil)

// Retriever embeds a query once, searches a namespace and maps matches back
// to their source pages.
type Retriever struct {
	embedder siterag.Embedder
	index    siterag.VectorIndex

	// reranker is optional.
	reranker        siterag.Reranker
	candidateFactor int
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithReranker reorders the candidate set before it is cut to topK.
func WithReranker(r siterag.Reranker) Option {
	return func(rt *Retriever) { rt.reranker = r }
}

// WithCandidateFactor sets how many candidates per requested result are
// fetched when a reranker is configured.
func WithCandidateFactor(n int) Option {
	return func(rt *Retriever) {
		if n > 0 {
			rt.candidateFactor = n
		}
	}
}

// New creates a Retriever.
func New(embedder siterag.Embedder, index siterag.VectorIndex, opts ...Option) *Retriever {
	r := &Retriever{embedder: embedder, index: index, candidateFactor: DefaultCandidateFactor}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Validate returns EINVALID if the embedder and index disagree on
// dimensionality.
func (r *Retriever) Validate() error {
	return siterag.CheckDimensions(r.embedder, r.index)
}

// Retrieve returns up to topK results for query from namespace, best first.
// A topK of zero means siterag.DefaultTopK; larger values are capped at
// siterag.MaxTopK. An empty namespace yields an empty slice.
func (r *Retriever) Retrieve(ctx context.Context, query, namespace string, topK int) ([]*siterag.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, siterag.Errorf(siterag.EINVALID, "query required")
	}
	if topK < 0 {
		return nil, siterag.Errorf(siterag.EINVALID, "topK must not be negative, got %d", topK)
	}
	if topK == 0 {
		topK = siterag.DefaultTopK
	}
	topK = min(topK, siterag.MaxTopK)
	if err := siterag.ValidateNamespace(namespace, true); err != nil {
		return nil, err
	}

	vecs, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, siterag.Errorf(siterag.EINTERNAL, "embedder returned %d vectors for 1 query", len(vecs))
	}

	candidates := topK
	if r.reranker != nil {
		candidates = min(topK*r.candidateFactor, siterag.MaxTopK)
	}
	matches, err := r.index.Query(ctx, namespace, vecs[0], candidates)
	if err != nil {
		return nil, err
	}

	results := make([]*siterag.SearchResult, len(matches))
	for i, m := range matches {
		results[i] = &siterag.SearchResult{
			Score:      m.Score,
			Namespace:  m.Namespace,
			URL:        m.URL,
			Domain:     m.Domain,
			Title:      m.Title,
			ChunkIndex: m.ChunkIndex,
			Snippet:    Snippet(m.Text, SnippetLength),
			Text:       m.Text,
		}
	}

	if r.reranker != nil && len(results) > 1 {
		results = r.reranker.Rerank(query, results)
	}
	if len(results) > topK {
		results = results[:topK]
	}
	for i, res := range results {
		res.Rank = i + 1
	}
	return results, nil
}

// Snippet collapses whitespace in text and truncates it to at most n runes,
// cutting on a word boundary and appending an ellipsis when shortened.
func Snippet(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	cut := n
	for i := n; i > n/2; i-- {
		if unicode.IsSpace(runes[i]) {
			cut = i
			break
		}
	}
	return strings.TrimRightFunc(string(runes[:cut]), unicode.IsSpace) + "…"
}
