package siterag

import "context"

// Embedder converts texts into fixed-dimension vectors.
// Embedding the same text with the same model yields the same vector.
type Embedder interface {
	// Embed returns one vector per text, in input order. Implementations
	// batch requests to the embedding service.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the model's output dimensionality.
	Dimensions() int
}

// CheckDimensions returns EINVALID if the embedder's dimensionality does not
// match the index's.
func CheckDimensions(e Embedder, idx VectorIndex) error {
	if e.Dimensions() != idx.Dimensions() {
		return Errorf(EINVALID, "embedding dimension %d does not match index dimension %d", e.Dimensions(), idx.Dimensions())
	}
	return nil
}
