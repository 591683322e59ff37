package siterag

import (
	"context"
	"regexp"
)

// AllNamespaces queries every namespace of an index at once.
const AllNamespaces = "*"

// DefaultUpsertBatchSize bounds the number of vectors sent in one upsert call.
const DefaultUpsertBatchSize = 100

var namespaceRe = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidateNamespace returns EINVALID unless ns is a usable namespace name.
// AllNamespaces is accepted only when allowAll is set.
func ValidateNamespace(ns string, allowAll bool) error {
	if ns == AllNamespaces && allowAll {
		return nil
	}
	if !namespaceRe.MatchString(ns) {
		return Errorf(EINVALID, "invalid namespace %q", ns)
	}
	return nil
}

// EmbeddedVector is a chunk's embedding plus the attribution needed to trace
// it back to its source page.
type EmbeddedVector struct {
	// ID is the chunk ID. Upserting the same ID into a namespace replaces
	// the stored vector.
	ID        string    `json:"id"`
	Namespace string    `json:"namespace"`
	Values    []float32 `json:"values"`

	URL        string `json:"url"`
	Domain     string `json:"domain"`
	Title      string `json:"title"`
	ChunkIndex int    `json:"chunkIndex"`
	Text       string `json:"text"`
}

// VectorMatch is a stored vector returned by a query with its similarity.
type VectorMatch struct {
	EmbeddedVector
	Score float32 `json:"score"`
}

// IndexStats summarizes the contents of one namespace, or of the whole index
// for AllNamespaces.
type IndexStats struct {
	Namespace  string `json:"namespace"`
	Vectors    int    `json:"vectors"`
	Dimensions int    `json:"dimensions"`

	// Namespaces holds per-namespace vector counts for AllNamespaces when
	// the backend can report them.
	Namespaces map[string]int `json:"namespaces,omitempty"`
}

// VectorIndex persists vectors under namespaces and answers nearest-neighbor
// queries.
type VectorIndex interface {
	// Upsert stores vectors under the namespace in bounded batches and
	// returns how many were committed. On failure the count reports the
	// vectors committed by earlier batches, which remain stored.
	// Returns EINVALID on dimension mismatch or bad namespace, and
	// EUNAVAILABLE if the backend cannot be reached.
	Upsert(ctx context.Context, namespace string, vectors []*EmbeddedVector) (int, error)

	// Query returns up to topK matches ordered by descending score, ties in
	// insertion order. An empty namespace yields an empty result.
	Query(ctx context.Context, namespace string, vector []float32, topK int) ([]*VectorMatch, error)

	// Stats reports the number of vectors stored under namespace.
	Stats(ctx context.Context, namespace string) (*IndexStats, error)

	// Dimensions returns the fixed vector dimensionality of the index.
	Dimensions() int
}
