package crawl_test

import (
	"testing"

	"github.com/fwojciec/siterag"
	"github.com/fwojciec/siterag/crawl"
	"github.com/stretchr/testify/assert"
)

func TestComputeHash(t *testing.T) {
	t.Parallel()

	a := crawl.ComputeHash("Getting started")

	assert.Len(t, a, 16)
	assert.Equal(t, a, crawl.ComputeHash("Getting started"))
	assert.NotEqual(t, a, crawl.ComputeHash("Getting started."))
}

func TestTruncateURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		url    string
		maxLen int
		want   string
	}{
		{"fits", "https://x.com", 50, "https://x.com"},
		{"exact fit", "https://example.com", 19, "https://example.com"},
		{"keeps the tail", "https://example.com/very/long/path/to/documentation", 20, ".../to/documentation"},
		{"no room for ellipsis", "https://example.com", 3, "htt"},
		{"zero width", "https://example.com", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, crawl.TruncateURL(tt.url, tt.maxLen))
		})
	}
}

func TestFormatBytes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "512 B", crawl.FormatBytes(512))
	assert.Equal(t, "1.5 KB", crawl.FormatBytes(1536))
	assert.Equal(t, "2.0 MB", crawl.FormatBytes(2<<20))
	assert.Equal(t, "3.0 GB", crawl.FormatBytes(3<<30))
}

func TestFormatTokens(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "~999 tokens", crawl.FormatTokens(999))
	assert.Equal(t, "~2k tokens", crawl.FormatTokens(1500))
}

func TestSummary(t *testing.T) {
	t.Parallel()

	t.Run("crawl only", func(t *testing.T) {
		t.Parallel()

		got := crawl.Summary(siterag.JobStats{Scraped: 3, Failed: 1, Discovered: 9})

		assert.Equal(t, "3 scraped, 1 failed, 9 discovered", got)
	})

	t.Run("indexed with documents", func(t *testing.T) {
		t.Parallel()

		got := crawl.Summary(siterag.JobStats{Scraped: 2, Discovered: 4, Vectors: 5, Bytes: 2048, Tokens: 1200, Documents: 1})

		assert.Equal(t, "2 scraped, 0 failed, 4 discovered; 5 chunks indexed (2.0 KB, ~1k tokens); 1 document links", got)
	})
}
