package siterag

// Parser converts raw HTML into a PageRecord holding clean text, normalized
// outbound links and page metadata.
type Parser interface {
	// Parse never fails: malformed markup degrades to a best-effort record
	// and empty text is a valid result. The returned record carries Title,
	// Description, Text, Metadata, Links and DocumentLinks; the caller fills
	// in crawl-specific fields.
	Parse(html, baseURL string) *PageRecord
}

// ExtractResult holds the extracted content from an HTML page.
type ExtractResult struct {
	// Title is the page title extracted from metadata.
	Title string

	// Description is the page summary from metadata, if any.
	Description string

	// ContentHTML is the main content as clean HTML.
	// Boilerplate (nav, footer, sidebar, ads) has been removed.
	ContentHTML string
}

// Extractor isolates the main content of an HTML page.
type Extractor interface {
	Extract(html string) (*ExtractResult, error)
}

// Converter converts HTML to Markdown.
type Converter interface {
	Convert(html string) (string, error)
}
