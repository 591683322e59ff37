package chunk_test

import (
	"strings"
	"testing"

	"github.com/fwojciec/siterag"
	"github.com/fwojciec/siterag/chunk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// reconstruct concatenates the fresh portion of every chunk.
func reconstruct(chunks []*siterag.Chunk) string {
	var b strings.Builder
	for _, c := range chunks {
		b.WriteString(string([]rune(c.Text)[c.Overlap:]))
	}
	return b.String()
}

func newChunker(t *testing.T, size, overlap int) *chunk.Chunker {
	t.Helper()
	c, err := chunk.New(chunk.Config{Size: size, Overlap: overlap})
	require.NoError(t, err)
	return c
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  chunk.Config
		ok   bool
	}{
		{"default", chunk.DefaultConfig(), true},
		{"zero overlap", chunk.Config{Size: 10, Overlap: 0}, true},
		{"overlap one less than size", chunk.Config{Size: 10, Overlap: 9}, true},
		{"overlap equal to size", chunk.Config{Size: 10, Overlap: 10}, false},
		{"overlap larger than size", chunk.Config{Size: 10, Overlap: 50}, false},
		{"zero size", chunk.Config{Size: 0}, false},
		{"negative overlap", chunk.Config{Size: 10, Overlap: -1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, siterag.EINVALID, siterag.ErrorCode(err))
		})
	}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	_, err := chunk.New(chunk.Config{Size: 50, Overlap: 50})

	require.Error(t, err)
	assert.Equal(t, siterag.EINVALID, siterag.ErrorCode(err))
	assert.Contains(t, siterag.ErrorMessage(err), "must be less than")
}

func TestChunker_Chunk(t *testing.T) {
	t.Parallel()

	t.Run("500/50 over 1200 characters yields three chunks", func(t *testing.T) {
		t.Parallel()

		text := strings.Repeat("abcdefghij", 120)
		c := newChunker(t, 500, 50)

		chunks, err := c.Chunk("https://example.com/", text)

		require.NoError(t, err)
		require.Len(t, chunks, 3)

		assert.Equal(t, text[:500], chunks[0].Text)
		assert.Equal(t, 0, chunks[0].Overlap)

		// Fresh portions are disjoint and contiguous.
		assert.Equal(t, text[450:500], chunks[1].Text[:50])
		assert.Equal(t, text[500:950], chunks[1].Text[50:])
		assert.Equal(t, text[900:950], chunks[2].Text[:50])
		assert.Equal(t, text[950:], chunks[2].Text[50:])

		assert.Equal(t, 500, chunks[0].Length)
		assert.Equal(t, 500, chunks[1].Length)
		assert.Equal(t, 300, chunks[2].Length)
		assert.Equal(t, text, reconstruct(chunks))
	})

	t.Run("empty text yields no chunks", func(t *testing.T) {
		t.Parallel()

		chunks, err := newChunker(t, 100, 10).Chunk("https://example.com/", "")

		require.NoError(t, err)
		assert.Empty(t, chunks)
	})

	t.Run("short text yields one chunk", func(t *testing.T) {
		t.Parallel()

		chunks, err := newChunker(t, 100, 10).Chunk("https://example.com/", "Hello world.")

		require.NoError(t, err)
		require.Len(t, chunks, 1)
		assert.Equal(t, "Hello world.", chunks[0].Text)
		assert.Equal(t, 0, chunks[0].Start)
		assert.Equal(t, 12, chunks[0].End)
	})

	t.Run("prefers sentence boundaries", func(t *testing.T) {
		t.Parallel()

		text := "The quick brown fox jumps. Over the lazy dog it went. Then it slept soundly."
		chunks, err := newChunker(t, 40, 5).Chunk("https://example.com/", text)

		require.NoError(t, err)
		require.GreaterOrEqual(t, len(chunks), 2)
		assert.Equal(t, "The quick brown fox jumps. ", chunks[0].Text)
		assert.Equal(t, text, reconstruct(chunks))
	})

	t.Run("splits at paragraph separators", func(t *testing.T) {
		t.Parallel()

		text := "First paragraph without stop\n\nSecond paragraph text here"
		chunks, err := newChunker(t, 40, 4).Chunk("https://example.com/", text)

		require.NoError(t, err)
		require.Len(t, chunks, 2)
		assert.Equal(t, "First paragraph without stop\n\n", chunks[0].Text)
		assert.Equal(t, text, reconstruct(chunks))
	})

	t.Run("assigns sequential indexes and stable IDs", func(t *testing.T) {
		t.Parallel()

		text := strings.Repeat("word ", 100)
		c := newChunker(t, 60, 10)

		first, err := c.Chunk("https://example.com/a", text)
		require.NoError(t, err)
		second, err := c.Chunk("https://example.com/a", text)
		require.NoError(t, err)

		ids := map[string]bool{}
		for i, ch := range first {
			assert.Equal(t, i, ch.Index)
			assert.Equal(t, "https://example.com/a", ch.URL)
			assert.Equal(t, second[i].ID, ch.ID)
			assert.Equal(t, chunk.ID("https://example.com/a", i), ch.ID)
			ids[ch.ID] = true
		}
		assert.Len(t, ids, len(first))
	})

	t.Run("counts characters not bytes", func(t *testing.T) {
		t.Parallel()

		text := strings.Repeat("żółw", 30) // 120 runes, 240+ bytes
		chunks, err := newChunker(t, 50, 5).Chunk("https://example.com/", text)

		require.NoError(t, err)
		for _, ch := range chunks {
			assert.LessOrEqual(t, len([]rune(ch.Text)), 50)
			assert.Equal(t, len([]rune(ch.Text)), ch.Length)
		}
		assert.Equal(t, text, reconstruct(chunks))
	})
}

func TestChunker_Invariants(t *testing.T) {
	t.Parallel()

	texts := []string{
		"One sentence.",
		strings.Repeat("No punctuation at all here ", 40),
		strings.Repeat("Short. ", 200),
		strings.Repeat("A much longer sentence that keeps going for a while! Really? Yes.\n\n", 25),
		"Trailing whitespace.   \n\n  ",
		strings.Repeat("x", 1001),
	}
	configs := []chunk.Config{
		{Size: 500, Overlap: 50},
		{Size: 100, Overlap: 99},
		{Size: 37, Overlap: 0},
		{Size: 2, Overlap: 1},
	}

	for _, cfg := range configs {
		c, err := chunk.New(cfg)
		require.NoError(t, err)
		for _, text := range texts {
			chunks, err := c.Chunk("https://example.com/", text)
			require.NoError(t, err)
			require.NotEmpty(t, chunks)

			assert.Equal(t, text, reconstruct(chunks), "reconstruction with %+v", cfg)

			for i, ch := range chunks {
				assert.Less(t, ch.Overlap, ch.Length, "overlap must be shorter than the chunk")
				assert.LessOrEqual(t, ch.Length, cfg.Size)
				assert.Equal(t, ch.End-ch.Start+ch.Overlap, ch.Length)
				if i == 0 {
					continue
				}
				prev := []rune(chunks[i-1].Text)
				head := string([]rune(ch.Text)[:ch.Overlap])
				assert.Equal(t, string(prev[len(prev)-ch.Overlap:]), head, "overlap repeats the previous tail")
				assert.Equal(t, chunks[i-1].End, ch.Start)
			}
			for _, ch := range chunks[:len(chunks)-1] {
				fresh := cfg.Size - ch.Overlap
				assert.GreaterOrEqual(t, ch.End-ch.Start, (fresh+1)/2, "non-final chunks keep at least half their budget")
			}
		}
	}
}
