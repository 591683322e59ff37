// Package htmltomarkdown implements siterag.Converter with html-to-markdown.
package htmltomarkdown

import (
	"net/url"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/fwojciec/siterag"
)

var _ siterag.Converter = (*Converter)(nil)

// Converter renders boilerplate-free page HTML as Markdown for the page
// archive.
type Converter struct {
	conv *converter.Converter
}

// NewConverter creates a new Converter with CommonMark and table support.
func NewConverter() *Converter {
	return &Converter{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

// Convert renders html as Markdown. Relative links are kept as written.
func (c *Converter) Convert(html string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", siterag.Errorf(siterag.EINVALID, "empty HTML input")
	}
	return result(c.conv.ConvertString(html))
}

// ConvertPage renders html taken from pageURL as Markdown, rewriting
// root-relative links and images to absolute URLs on the page's origin so
// archived pages stay navigable outside the site.
func (c *Converter) ConvertPage(html, pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return c.Convert(html)
	}
	if strings.TrimSpace(html) == "" {
		return "", siterag.Errorf(siterag.EINVALID, "empty HTML input")
	}
	return result(c.conv.ConvertString(html, converter.WithDomain(u.Scheme+"://"+u.Host)))
}

func result(md string, err error) (string, error) {
	if err != nil {
		return "", siterag.Errorf(siterag.EINTERNAL, "convert to markdown: %v", err)
	}
	return strings.TrimSpace(md), nil
}
