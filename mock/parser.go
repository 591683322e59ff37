package mock

import "github.com/fwojciec/siterag"

var (
	_ siterag.Parser    = (*Parser)(nil)
	_ siterag.Extractor = (*Extractor)(nil)
	_ siterag.Converter = (*Converter)(nil)
)

// Parser is a mock implementation of siterag.Parser.
type Parser struct {
	ParseFn func(html, baseURL string) *siterag.PageRecord
}

func (p *Parser) Parse(html, baseURL string) *siterag.PageRecord {
	return p.ParseFn(html, baseURL)
}

// Extractor is a mock implementation of siterag.Extractor.
type Extractor struct {
	ExtractFn func(html string) (*siterag.ExtractResult, error)
}

func (e *Extractor) Extract(html string) (*siterag.ExtractResult, error) {
	return e.ExtractFn(html)
}

// Converter is a mock implementation of siterag.Converter.
type Converter struct {
	ConvertFn func(html string) (string, error)
}

func (c *Converter) Convert(html string) (string, error) {
	return c.ConvertFn(html)
}
