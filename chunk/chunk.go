// Package chunk splits page text into overlapping, sentence-aware chunks.
package chunk

import (
	"fmt"
	"sort"
	"unicode"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/siterag"
)

// Default chunk configuration, measured in characters.
const (
	DefaultSize    = 500
	DefaultOverlap = 50
)

// Config holds chunking configuration. Sizes count characters (runes).
type Config struct {
	// Size is the nominal chunk length including overlap.
	Size int

	// Overlap is the number of trailing characters of a chunk repeated at
	// the start of the next one. Must be less than Size.
	Overlap int
}

// DefaultConfig returns the default 500/50 configuration.
func DefaultConfig() Config {
	return Config{Size: DefaultSize, Overlap: DefaultOverlap}
}

// Validate returns EINVALID for configurations that cannot make progress.
func (c Config) Validate() error {
	if c.Size < 1 {
		return siterag.Errorf(siterag.EINVALID, "chunk size must be positive, got %d", c.Size)
	}
	if c.Overlap < 0 {
		return siterag.Errorf(siterag.EINVALID, "chunk overlap must not be negative, got %d", c.Overlap)
	}
	if c.Overlap >= c.Size {
		return siterag.Errorf(siterag.EINVALID, "chunk overlap (%d) must be less than chunk size (%d)", c.Overlap, c.Size)
	}
	return nil
}

var _ siterag.Chunker = (*Chunker)(nil)

// Chunker splits text into chunks of Config.Size characters, each starting
// with the last Config.Overlap characters of its predecessor.
//
// A chunk prefers to end on a sentence or paragraph boundary, provided the
// boundary keeps at least half of the chunk's fresh text; otherwise it is
// filled to the full size. Only the final chunk of a text may be shorter
// than that.
type Chunker struct {
	config Config
}

// New creates a new Chunker with the given configuration.
// Returns an error if the configuration is invalid.
func New(cfg Config) (*Chunker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Chunker{config: cfg}, nil
}

// Config returns the chunker's configuration.
func (c *Chunker) Config() Config {
	return c.config
}

// Validate reports whether the chunker's configuration is usable.
func (c *Chunker) Validate() error {
	return c.config.Validate()
}

// Chunk splits text into chunks in document order. Empty text yields no
// chunks. Concatenating Text[Overlap:] of every chunk reproduces text.
func (c *Chunker) Chunk(url, text string) ([]*siterag.Chunk, error) {
	if err := c.config.Validate(); err != nil {
		return nil, err
	}
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil, nil
	}

	bounds := boundaries(runes)

	var chunks []*siterag.Chunk
	pos := 0
	for pos < n {
		overlap := 0
		if len(chunks) > 0 {
			overlap = min(c.config.Overlap, pos)
		}
		fresh := c.config.Size - overlap

		end := pos + fresh
		if end >= n {
			end = n
		} else if b, ok := lastBoundary(bounds, pos, end); ok && b-pos >= (fresh+1)/2 {
			end = b
		}

		chunkText := string(runes[pos-overlap : end])
		chunks = append(chunks, &siterag.Chunk{
			ID:      ID(url, len(chunks)),
			URL:     url,
			Index:   len(chunks),
			Text:    chunkText,
			Start:   pos,
			End:     end,
			Overlap: overlap,
			Length:  end - pos + overlap,
		})
		pos = end
	}
	return chunks, nil
}

// ID returns the stable identifier of the chunk at index of the page at url.
func ID(url string, index int) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(fmt.Sprintf("%s#%d", url, index)))
}

// boundaries returns the sorted rune offsets at which a sentence or
// paragraph ends. A boundary sits after the terminating punctuation and
// the whitespace that follows it, so the whitespace stays with the
// preceding sentence.
func boundaries(runes []rune) []int {
	var out []int
	n := len(runes)
	for i := 0; i < n; i++ {
		r := runes[i]
		switch {
		case r == '.' || r == '!' || r == '?':
			j := i + 1
			for j < n && unicode.IsSpace(runes[j]) {
				j++
			}
			if j > i+1 && j < n {
				out = append(out, j)
				i = j - 1
			}
		case r == '\n' && i+1 < n && runes[i+1] == '\n':
			j := i + 1
			for j < n && unicode.IsSpace(runes[j]) {
				j++
			}
			if j < n {
				out = append(out, j)
				i = j - 1
			}
		}
	}
	return out
}

// lastBoundary returns the largest boundary b with lo < b <= hi.
func lastBoundary(bounds []int, lo, hi int) (int, bool) {
	i := sort.SearchInts(bounds, hi+1) - 1
	if i < 0 || bounds[i] <= lo {
		return 0, false
	}
	return bounds[i], true
}
