package goquery

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/siterag"
)

// Links holds the outbound links of a page, split by kind.
type Links struct {
	Pages     []string
	Documents []string
}

// ExtractLinks returns the normalized, deduplicated anchor targets of doc in
// document order. Fragment-only, self-referential and non-HTTP(S) links are
// dropped; links to document files are returned separately.
func ExtractLinks(doc *goquery.Document, baseURL string) Links {
	var links Links

	base, err := url.Parse(baseURL)
	if err != nil {
		return links
	}
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if b, err := url.Parse(strings.TrimSpace(href)); err == nil {
			base = base.ResolveReference(b)
		}
	}
	self, _ := siterag.NormalizeURL(baseURL)

	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") || isNonHTTPLink(href) {
			return
		}

		resolved := resolveURL(base, href)
		if resolved == "" || resolved == self || seen[resolved] {
			return
		}
		seen[resolved] = true

		if siterag.IsDocumentURL(resolved) {
			links.Documents = append(links.Documents, resolved)
			return
		}
		links.Pages = append(links.Pages, resolved)
	})
	return links
}

// resolveURL resolves href against base and returns its normalized form, or
// the empty string if the result is not an absolute HTTP(S) URL.
func resolveURL(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	normalized, err := siterag.NormalizeURL(base.ResolveReference(ref).String())
	if err != nil {
		return ""
	}
	return normalized
}

// isNonHTTPLink checks if a href is a non-HTTP link that should be skipped.
func isNonHTTPLink(href string) bool {
	href = strings.ToLower(strings.TrimSpace(href))
	return strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") ||
		strings.HasPrefix(href, "data:")
}
