// Package readability implements siterag.Extractor with go-readability.
package readability

import (
	"strings"

	"github.com/fwojciec/siterag"
	"github.com/go-shiori/go-readability"
)

var _ siterag.Extractor = (*Extractor)(nil)

// Extractor isolates the main content of a page with Mozilla's Readability
// heuristics.
type Extractor struct{}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the readable article content. The description is the
// article excerpt.
func (e *Extractor) Extract(rawHTML string) (*siterag.ExtractResult, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return nil, siterag.Errorf(siterag.EINVALID, "empty HTML input")
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), nil)
	if err != nil {
		return nil, err
	}

	return &siterag.ExtractResult{
		Title:       article.Title,
		Description: article.Excerpt,
		ContentHTML: article.Content,
	}, nil
}
