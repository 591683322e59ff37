// Package gemini implements siterag embedding and token counting on Google
// Gemini models.
package gemini

import (
	"context"
	"errors"

	"github.com/fwojciec/siterag"
	"google.golang.org/genai"
)

// Embedding defaults.
const (
	DefaultEmbeddingModel = "gemini-embedding-001"
	DefaultDimensions     = 768

	// MaxBatchSize is the largest number of texts sent in one request.
	MaxBatchSize = 100
)

// Task types sent with embedding requests.
const (
	TaskRetrievalDocument = "RETRIEVAL_DOCUMENT"
	TaskRetrievalQuery    = "RETRIEVAL_QUERY"
)

var _ siterag.Embedder = (*Embedder)(nil)

// Embedder implements siterag.Embedder using the Gemini embedding API.
type Embedder struct {
	client     *genai.Client
	model      string
	dimensions int
	taskType   string
	batchSize  int
}

// EmbedderOption configures an Embedder.
type EmbedderOption func(*Embedder)

// WithModel sets the embedding model.
func WithModel(model string) EmbedderOption {
	return func(e *Embedder) { e.model = model }
}

// WithDimensions sets the requested output dimensionality.
func WithDimensions(n int) EmbedderOption {
	return func(e *Embedder) { e.dimensions = n }
}

// WithTaskType sets the task type hint, TaskRetrievalDocument by default.
func WithTaskType(taskType string) EmbedderOption {
	return func(e *Embedder) { e.taskType = taskType }
}

// WithBatchSize sets the number of texts per request, capped at MaxBatchSize.
func WithBatchSize(n int) EmbedderOption {
	return func(e *Embedder) {
		if n > 0 {
			e.batchSize = min(n, MaxBatchSize)
		}
	}
}

// NewEmbedder creates a new Embedder.
func NewEmbedder(client *genai.Client, opts ...EmbedderOption) *Embedder {
	e := &Embedder{
		client:     client,
		model:      DefaultEmbeddingModel,
		dimensions: DefaultDimensions,
		taskType:   TaskRetrievalDocument,
		batchSize:  MaxBatchSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Dimensions returns the embedding dimensionality.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}

// Embed returns one vector per text in input order.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	dims := int32(e.dimensions)
	config := &genai.EmbedContentConfig{TaskType: e.taskType, OutputDimensionality: &dims}

	for start := 0; start < len(texts); start += e.batchSize {
		batch := texts[start:min(start+e.batchSize, len(texts))]

		contents := make([]*genai.Content, len(batch))
		for i, text := range batch {
			contents[i] = genai.NewContentFromText(text, "user")
		}

		resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, config)
		if err != nil {
			return nil, classify(ctx, err)
		}
		if resp == nil || len(resp.Embeddings) != len(batch) {
			return nil, siterag.Errorf(siterag.EINTERNAL, "gemini returned %d embeddings for %d texts", embeddingCount(resp), len(batch))
		}
		for _, emb := range resp.Embeddings {
			if len(emb.Values) != e.dimensions {
				return nil, siterag.Errorf(siterag.EINVALID, "gemini returned %d dimensions, expected %d", len(emb.Values), e.dimensions)
			}
			out = append(out, emb.Values)
		}
	}
	return out, nil
}

func embeddingCount(resp *genai.EmbedContentResponse) int {
	if resp == nil {
		return 0
	}
	return len(resp.Embeddings)
}

// classify maps Gemini client errors onto siterag error codes. Rejected
// requests are configuration problems; everything else is the service being
// unreachable or overloaded.
func classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 429 || apiErr.Code >= 500:
			return siterag.Errorf(siterag.EUNAVAILABLE, "gemini: %s", apiErr.Message)
		default:
			return siterag.Errorf(siterag.EINVALID, "gemini: %s", apiErr.Message)
		}
	}
	return siterag.Errorf(siterag.EUNAVAILABLE, "gemini: %v", err)
}
