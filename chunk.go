package siterag

import "context"

// Chunk is a contiguous span of a page's text plus the overlap repeated from
// the previous chunk.
type Chunk struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Index int    `json:"index"`
	Text  string `json:"text"`

	// Start and End are rune offsets of the chunk's fresh portion in the
	// page text. Text[Overlap:] covers exactly [Start, End).
	Start int `json:"start"`
	End   int `json:"end"`

	// Overlap is the number of leading runes repeated from the previous chunk.
	Overlap int `json:"overlap"`

	// Length is the rune length of Text.
	Length int `json:"length"`

	// Tokens is filled in when a TokenCounter is configured.
	Tokens int `json:"tokens,omitempty"`
}

// Chunker splits page text into overlapping chunks in document order.
type Chunker interface {
	Chunk(url, text string) ([]*Chunk, error)
}

// TokenCounter counts tokens in text for a specific model.
type TokenCounter interface {
	CountTokens(ctx context.Context, text string) (int, error)
}
