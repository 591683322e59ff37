// Package trafilatura implements siterag.Extractor with go-trafilatura.
package trafilatura

import (
	"bytes"
	"strings"

	"github.com/fwojciec/siterag"
	"github.com/markusmobius/go-trafilatura"
	"golang.org/x/net/html"
)

var _ siterag.Extractor = (*Extractor)(nil)

// Extractor isolates the main content of a page with go-trafilatura,
// falling back to its readability and dom-distiller heuristics.
type Extractor struct {
	opts trafilatura.Options
}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{
		opts: trafilatura.Options{
			EnableFallback: true,
		},
	}
}

// Extract returns the main content HTML with title and description taken
// from the page metadata.
func (e *Extractor) Extract(rawHTML string) (*siterag.ExtractResult, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return nil, siterag.Errorf(siterag.EINVALID, "empty HTML input")
	}

	result, err := trafilatura.Extract(strings.NewReader(rawHTML), e.opts)
	if err != nil {
		return nil, err
	}

	res := &siterag.ExtractResult{
		Title:       result.Metadata.Title,
		Description: result.Metadata.Description,
	}
	if result.ContentNode != nil {
		var buf bytes.Buffer
		if err := html.Render(&buf, result.ContentNode); err != nil {
			return nil, err
		}
		res.ContentHTML = buf.String()
	}
	return res, nil
}
