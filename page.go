package siterag

import (
	"context"
	"time"
)

// PageStatus records whether a URL was fetched and parsed.
type PageStatus string

const (
	PageSuccess PageStatus = "success"
	PageFailed  PageStatus = "failed"
)

// PageRecord is the result of processing one URL. It is created once by the
// Parser (or by the Crawler for a failed fetch) and not modified afterwards.
type PageRecord struct {
	JobID      string     `json:"jobId"`
	URL        string     `json:"url"`
	Domain     string     `json:"domain"`
	Depth      int        `json:"depth"`
	Status     PageStatus `json:"status"`
	StatusCode int        `json:"statusCode"`

	Title       string            `json:"title"`
	Description string            `json:"description"`
	Text        string            `json:"text"`
	Metadata    map[string]string `json:"metadata,omitempty"`

	// ContentHTML is the boilerplate-free HTML the text was taken from.
	// It is handed to archives and not persisted with the record.
	ContentHTML string `json:"-"`

	// Links holds every outbound page link found on the page, including
	// links to other domains that are never crawled.
	Links []string `json:"links"`

	// DocumentLinks holds links to document files (PDF and similar)
	// routed to a DocumentSink instead of the frontier.
	DocumentLinks []string `json:"documentLinks"`

	ContentLength int    `json:"contentLength"`
	ContentHash   string `json:"contentHash"`

	// Error is the human-readable failure cause and ErrorKind its code
	// (ETRANSIENT, EPERMANENT or EINTERNAL).
	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"errorKind,omitempty"`

	FetchedAt time.Time `json:"fetchedAt"`
}

// Failed returns a failed PageRecord for rawURL carrying err as its cause.
func Failed(jobID, rawURL string, depth int, err error) *PageRecord {
	return &PageRecord{
		JobID:     jobID,
		URL:       rawURL,
		Domain:    Hostname(rawURL),
		Depth:     depth,
		Status:    PageFailed,
		Error:     ErrorMessage(err),
		ErrorKind: ErrorCode(err),
		FetchedAt: time.Now().UTC(),
	}
}

// PageSink receives one PageRecord per processed URL.
type PageSink interface {
	SavePage(ctx context.Context, page *PageRecord) error
}

// PageSinks fans a PageRecord out to several sinks in order.
// The first error stops delivery.
type PageSinks []PageSink

func (s PageSinks) SavePage(ctx context.Context, page *PageRecord) error {
	for _, sink := range s {
		if err := sink.SavePage(ctx, page); err != nil {
			return err
		}
	}
	return nil
}

// PageService represents a service for storing and listing page records.
type PageService interface {
	PageSink

	// FindPages retrieves page records matching the filter in crawl order.
	FindPages(ctx context.Context, filter PageFilter) ([]*PageRecord, error)
}

// PageFilter represents a filter for FindPages.
type PageFilter struct {
	JobID  *string     `json:"jobId"`
	URL    *string     `json:"url"`
	Status *PageStatus `json:"status"`

	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// PageArchive persists pages with atomic semantics. SavePage writes to a
// temporary location; Commit makes the pages permanent; Abort discards them.
type PageArchive interface {
	PageSink
	Commit() error
	Abort() error
}

// DocumentLink is a link to a document file discovered during a crawl.
type DocumentLink struct {
	JobID     string `json:"jobId"`
	URL       string `json:"url"`
	SourceURL string `json:"sourceUrl"`
	Depth     int    `json:"depth"`
}

// DocumentSink receives document links for processing outside the crawl.
type DocumentSink interface {
	HandleDocument(ctx context.Context, link DocumentLink) error
}

// DocumentSinks fans a DocumentLink out to several sinks in order.
// The first error stops delivery.
type DocumentSinks []DocumentSink

func (s DocumentSinks) HandleDocument(ctx context.Context, link DocumentLink) error {
	for _, sink := range s {
		if err := sink.HandleDocument(ctx, link); err != nil {
			return err
		}
	}
	return nil
}
