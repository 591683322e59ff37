package trafilatura_test

import (
	"strings"
	"testing"

	"github.com/fwojciec/siterag"
	"github.com/fwojciec/siterag/goquery"
	"github.com/fwojciec/siterag/trafilatura"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const articlePage = `<!DOCTYPE html>
<html>
<head>
	<title>Crawling Politely</title>
	<meta name="description" content="Why crawlers wait between requests.">
</head>
<body>
	<nav><a href="/">Home</a> <a href="/blog">Blog</a> <a href="/about">About us</a></nav>
	<article>
		<h1>Crawling Politely</h1>
		<p>A polite crawler spaces out its requests to the same host so that it never
		overwhelms a small server. Most sites publish a robots.txt file describing which
		paths automated clients may visit and how often they should come back.</p>
		<p>Respecting those rules keeps the crawler welcome. It also avoids getting the
		client address blocked, which would end the crawl long before the frontier is
		empty and leave the index with only a fraction of the site.</p>
		<p>Rate limits are usually expressed per host. A token bucket with a burst of one
		gives a simple minimum spacing between consecutive requests.</p>
	</article>
	<footer>Copyright 2025 Example Corp. All rights reserved.</footer>
</body>
</html>`

func TestExtractor_Extract(t *testing.T) {
	t.Parallel()

	t.Run("extracts main content and metadata", func(t *testing.T) {
		t.Parallel()

		res, err := trafilatura.NewExtractor().Extract(articlePage)

		require.NoError(t, err)
		assert.Equal(t, "Crawling Politely", res.Title)
		assert.Equal(t, "Why crawlers wait between requests.", res.Description)
		assert.Contains(t, res.ContentHTML, "token bucket")
		assert.NotContains(t, res.ContentHTML, "All rights reserved")
	})

	t.Run("rejects empty input", func(t *testing.T) {
		t.Parallel()

		_, err := trafilatura.NewExtractor().Extract("   ")

		assert.Equal(t, siterag.EINVALID, siterag.ErrorCode(err))
	})

	t.Run("feeds the parser main-content text", func(t *testing.T) {
		t.Parallel()

		p := goquery.NewParser(goquery.WithExtractor(trafilatura.NewExtractor()))

		rec := p.Parse(articlePage, "https://example.com/blog/polite")

		assert.Contains(t, rec.Text, "A polite crawler spaces out its requests")
		assert.NotContains(t, rec.Text, "About us")
		assert.True(t, strings.Contains(rec.Text, goquery.ParagraphSeparator))
	})
}
