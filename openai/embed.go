// Package openai implements siterag.Embedder on the OpenAI embeddings API
// and compatible servers.
package openai

import (
	"context"
	"errors"
	"sort"

	"github.com/fwojciec/siterag"
	"github.com/sashabaranov/go-openai"
)

// Embedding defaults.
const (
	DefaultModel      = string(openai.SmallEmbedding3)
	DefaultDimensions = 1536

	// MaxBatchSize is the largest number of inputs sent in one request.
	MaxBatchSize = 2048
)

var _ siterag.Embedder = (*Embedder)(nil)

// Embedder implements siterag.Embedder using an OpenAI-compatible API.
type Embedder struct {
	client     *openai.Client
	model      string
	dimensions int
	batchSize  int
}

// Option configures an Embedder.
type Option func(*Embedder)

// WithModel sets the embedding model.
func WithModel(model string) Option {
	return func(e *Embedder) { e.model = model }
}

// WithDimensions sets the requested output dimensionality.
func WithDimensions(n int) Option {
	return func(e *Embedder) { e.dimensions = n }
}

// WithBatchSize sets the number of inputs per request, capped at MaxBatchSize.
func WithBatchSize(n int) Option {
	return func(e *Embedder) {
		if n > 0 {
			e.batchSize = min(n, MaxBatchSize)
		}
	}
}

// NewClient creates an API client. An empty baseURL uses the OpenAI API.
func NewClient(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg)
}

// NewEmbedder creates a new Embedder.
func NewEmbedder(client *openai.Client, opts ...Option) *Embedder {
	e := &Embedder{
		client:     client,
		model:      DefaultModel,
		dimensions: DefaultDimensions,
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
	for start := 0; start < len(texts); start += e.batchSize {
		batch := texts[start:min(start+e.batchSize, len(texts))]

		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input:      batch,
			Model:      openai.EmbeddingModel(e.model),
			Dimensions: e.dimensions,
		})
		if err != nil {
			return nil, classify(ctx, err)
		}
		if len(resp.Data) != len(batch) {
			return nil, siterag.Errorf(siterag.EINTERNAL, "openai returned %d embeddings for %d texts", len(resp.Data), len(batch))
		}

		// Results carry their input position and need not arrive in order.
		sort.SliceStable(resp.Data, func(i, j int) bool { return resp.Data[i].Index < resp.Data[j].Index })
		for _, d := range resp.Data {
			if len(d.Embedding) != e.dimensions {
				return nil, siterag.Errorf(siterag.EINVALID, "openai returned %d dimensions, expected %d", len(d.Embedding), e.dimensions)
			}
			out = append(out, d.Embedding)
		}
	}
	return out, nil
}

// classify maps client errors onto siterag error codes.
func classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500 {
			return siterag.Errorf(siterag.EUNAVAILABLE, "openai: %s", apiErr.Message)
		}
		return siterag.Errorf(siterag.EINVALID, "openai: %s", apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode >= 400 && reqErr.HTTPStatusCode < 500 && reqErr.HTTPStatusCode != 429 {
		return siterag.Errorf(siterag.EINVALID, "openai: %v", reqErr.Err)
	}
	return siterag.Errorf(siterag.EUNAVAILABLE, "openai: %v", err)
}
