// Package goquery implements siterag.Parser using goquery.
package goquery

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/siterag"
	"golang.org/x/net/html"
)

// boilerplateSelector matches elements whose content is never page text.
const boilerplateSelector = "script, style, meta, link, noscript, header, footer, nav, aside, svg, iframe, form, template"

// blockElements break the surrounding text into separate paragraphs.
var blockElements = map[string]bool{
	"address": true, "article": true, "blockquote": true, "body": true,
	"br": true, "dd": true, "details": true, "div": true, "dl": true,
	"dt": true, "figcaption": true, "figure": true, "h1": true, "h2": true,
	"h3": true, "h4": true, "h5": true, "h6": true, "hr": true, "li": true,
	"main": true, "ol": true, "p": true, "pre": true, "section": true,
	"summary": true, "table": true, "td": true, "th": true, "tr": true,
	"ul": true,
}

// ParagraphSeparator separates paragraphs in extracted text.
const ParagraphSeparator = "\n\n"

var _ siterag.Parser = (*Parser)(nil)

// Parser extracts text, links and metadata from HTML.
type Parser struct {
	extractor siterag.Extractor
}

// Option configures a Parser.
type Option func(*Parser)

// WithExtractor narrows the text source to the main content found by e.
// When e fails or finds nothing, the whole page body is used.
func WithExtractor(e siterag.Extractor) Option {
	return func(p *Parser) {
		p.extractor = e
	}
}

// NewParser creates a new Parser.
func NewParser(opts ...Option) *Parser {
	p := &Parser{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse processes raw HTML into a PageRecord. It never fails; malformed or
// empty markup produces a record with empty fields.
func (p *Parser) Parse(rawHTML, baseURL string) *siterag.PageRecord {
	rec := &siterag.PageRecord{
		URL:    baseURL,
		Domain: siterag.Hostname(baseURL),
	}
	if normalized, err := siterag.NormalizeURL(baseURL); err == nil {
		rec.URL = normalized
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return rec
	}

	links := ExtractLinks(doc, baseURL)
	rec.Links = links.Pages
	rec.DocumentLinks = links.Documents

	rec.Title = title(doc)
	rec.Description = metaContent(doc, `meta[name="description"]`, `meta[property="og:description"]`)
	rec.Metadata = metadata(doc)

	rec.Text = p.mainText(rawHTML, doc, rec)
	rec.ContentLength = len(rec.Text)
	return rec
}

// mainText returns the extractor's content when available, else the text of
// the whole document.
func (p *Parser) mainText(rawHTML string, doc *goquery.Document, rec *siterag.PageRecord) string {
	if p.extractor != nil {
		if res, err := p.extractor.Extract(rawHTML); err == nil && strings.TrimSpace(res.ContentHTML) != "" {
			if rec.Title == "" {
				rec.Title = strings.TrimSpace(res.Title)
			}
			if rec.Description == "" {
				rec.Description = strings.TrimSpace(res.Description)
			}
			if content, err := goquery.NewDocumentFromReader(strings.NewReader(res.ContentHTML)); err == nil {
				if text := Text(content.Selection); text != "" {
					rec.ContentHTML = res.ContentHTML
					return text
				}
			}
		}
	}
	body := Clean(doc.Find("body"))
	rec.ContentHTML, _ = body.Html()
	return Text(doc.Selection)
}

// Clean returns a copy of sel without boilerplate elements.
func Clean(sel *goquery.Selection) *goquery.Selection {
	sel = sel.Clone()
	sel.Find(boilerplateSelector).Remove()
	sel.Find("head").Remove()
	return sel
}

// Text returns the visible text of sel with boilerplate removed, whitespace
// collapsed and paragraphs separated by ParagraphSeparator.
func Text(sel *goquery.Selection) string {
	sel = Clean(sel)

	var paragraphs []string
	var current strings.Builder
	flush := func() {
		if s := strings.Join(strings.Fields(current.String()), " "); s != "" {
			paragraphs = append(paragraphs, s)
		}
		current.Reset()
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			current.WriteString(n.Data)
			return
		case html.CommentNode:
			return
		case html.ElementNode:
			if blockElements[n.Data] {
				flush()
				defer flush()
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	flush()

	return strings.Join(paragraphs, ParagraphSeparator)
}

func title(doc *goquery.Document) string {
	if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
		return strings.Join(strings.Fields(t), " ")
	}
	if t := metaContent(doc, `meta[property="og:title"]`); t != "" {
		return t
	}
	return strings.Join(strings.Fields(doc.Find("h1").First().Text()), " ")
}

// metaContent returns the content attribute of the first selector that has one.
func metaContent(doc *goquery.Document, selectors ...string) string {
	for _, s := range selectors {
		if v, ok := doc.Find(s).First().Attr("content"); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

// metadata collects keywords, author and Open Graph properties.
func metadata(doc *goquery.Document) map[string]string {
	md := make(map[string]string)
	doc.Find("meta").Each(func(_ int, sel *goquery.Selection) {
		content, ok := sel.Attr("content")
		if !ok || strings.TrimSpace(content) == "" {
			return
		}
		name := strings.ToLower(sel.AttrOr("name", sel.AttrOr("property", "")))
		switch {
		case name == "keywords", name == "author", name == "description":
			md[name] = strings.TrimSpace(content)
		case strings.HasPrefix(name, "og:"):
			md[name] = strings.TrimSpace(content)
		}
	})
	if len(md) == 0 {
		return nil
	}
	return md
}
