package crawl

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/siterag"
)

// ComputeHash returns the hex xxhash of a page's text. Pages whose text is
// identical share a hash, which lets listings spot mirrored URLs.
func ComputeHash(text string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(text))
}

// TruncateURL shortens rawURL to at most maxLen bytes for progress lines.
// The tail of a URL tells pages apart, so the head is dropped.
func TruncateURL(rawURL string, maxLen int) string {
	switch {
	case maxLen <= 0:
		return ""
	case len(rawURL) <= maxLen:
		return rawURL
	case maxLen < 4:
		return rawURL[:maxLen]
	}
	return "..." + rawURL[len(rawURL)-maxLen+3:]
}

// FormatBytes renders a byte count with a binary unit.
func FormatBytes(n int) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	value, exp := float64(n)/unit, 0
	for value >= unit && exp < 2 {
		value /= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", value, "KMG"[exp])
}

// FormatTokens renders an approximate token count.
func FormatTokens(tokens int) string {
	if tokens < 1000 {
		return fmt.Sprintf("~%d tokens", tokens)
	}
	return fmt.Sprintf("~%dk tokens", (tokens+500)/1000)
}

// Summary renders the counters of a finished job on one line.
func Summary(stats siterag.JobStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d scraped, %d failed, %d discovered", stats.Scraped, stats.Failed, stats.Discovered)
	if stats.Vectors > 0 {
		fmt.Fprintf(&b, "; %d chunks indexed (%s, %s)", stats.Vectors, FormatBytes(stats.Bytes), FormatTokens(stats.Tokens))
	}
	if stats.Documents > 0 {
		fmt.Fprintf(&b, "; %d document links", stats.Documents)
	}
	return b.String()
}
