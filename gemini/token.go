package gemini

import (
	"context"

	"github.com/fwojciec/siterag"
	"google.golang.org/genai"
	"google.golang.org/genai/tokenizer"
)

// DefaultTokenizerModel is the model whose local tokenizer counts chunk
// tokens. Counts are informational, so it serves every embedding provider.
const DefaultTokenizerModel = "gemini-2.5-flash"

var _ siterag.TokenCounter = (*TokenCounter)(nil)

// TokenCounter counts chunk tokens offline with a model's local tokenizer.
type TokenCounter struct {
	model string
	local *tokenizer.LocalTokenizer
}

// NewTokenCounter loads the local tokenizer for model. An unsupported model
// returns EINVALID.
func NewTokenCounter(model string) (*TokenCounter, error) {
	if model == "" {
		model = DefaultTokenizerModel
	}
	local, err := tokenizer.NewLocalTokenizer(model)
	if err != nil {
		return nil, siterag.Errorf(siterag.EINVALID, "tokenizer for %s: %v", model, err)
	}
	return &TokenCounter{model: model, local: local}, nil
}

// Model returns the tokenizer's model name.
func (tc *TokenCounter) Model() string {
	return tc.model
}

// CountTokens returns the number of tokens in a chunk of text.
func (tc *TokenCounter) CountTokens(ctx context.Context, text string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if text == "" {
		return 0, nil
	}

	res, err := tc.local.CountTokens([]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}, nil)
	if err != nil {
		return 0, siterag.Errorf(siterag.EINTERNAL, "count tokens: %v", err)
	}
	return int(res.TotalTokens), nil
}
