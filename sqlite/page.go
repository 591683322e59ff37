package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/fwojciec/siterag"
)

// Compile-time interface verification.
var _ siterag.PageService = (*PageService)(nil)

// PageService implements siterag.PageService using SQLite. Records are
// keyed by job and URL; saving a URL twice replaces the record but keeps its
// position in crawl order.
type PageService struct {
	db *DB
}

// NewPageService creates a new PageService.
func NewPageService(db *DB) *PageService {
	return &PageService{db: db}
}

// SavePage stores page under its job.
func (s *PageService) SavePage(ctx context.Context, page *siterag.PageRecord) error {
	if page.JobID == "" || page.URL == "" {
		return siterag.Errorf(siterag.EINVALID, "page record requires a job ID and URL")
	}
	if page.FetchedAt.IsZero() {
		page.FetchedAt = time.Now().UTC()
	}

	metadata, err := marshalJSON(page.Metadata, "metadata")
	if err != nil {
		return err
	}
	links, err := marshalJSON(nonNil(page.Links), "links")
	if err != nil {
		return err
	}
	docs, err := marshalJSON(nonNil(page.DocumentLinks), "document_links")
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO pages (job_id, url, domain, depth, status, status_code, title, description, text,
			metadata, links, document_links, content_length, content_hash, error, error_kind, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (job_id, url) DO UPDATE SET
			domain = excluded.domain,
			depth = excluded.depth,
			status = excluded.status,
			status_code = excluded.status_code,
			title = excluded.title,
			description = excluded.description,
			text = excluded.text,
			metadata = excluded.metadata,
			links = excluded.links,
			document_links = excluded.document_links,
			content_length = excluded.content_length,
			content_hash = excluded.content_hash,
			error = excluded.error,
			error_kind = excluded.error_kind,
			fetched_at = excluded.fetched_at
	`, page.JobID, page.URL, page.Domain, page.Depth, string(page.Status), page.StatusCode, page.Title,
		page.Description, page.Text, metadata, links, docs, page.ContentLength, page.ContentHash,
		page.Error, page.ErrorKind, formatTime(page.FetchedAt))
	return err
}

// FindPages retrieves page records matching the filter in crawl order.
func (s *PageService) FindPages(ctx context.Context, filter siterag.PageFilter) ([]*siterag.PageRecord, error) {
	var query strings.Builder
	var args []any

	query.WriteString(`SELECT job_id, url, domain, depth, status, status_code, title, description, text,
		metadata, links, document_links, content_length, content_hash, error, error_kind, fetched_at
		FROM pages WHERE 1=1`)

	if filter.JobID != nil {
		query.WriteString(" AND job_id = ?")
		args = append(args, *filter.JobID)
	}
	if filter.URL != nil {
		query.WriteString(" AND url = ?")
		args = append(args, *filter.URL)
	}
	if filter.Status != nil {
		query.WriteString(" AND status = ?")
		args = append(args, string(*filter.Status))
	}

	query.WriteString(" ORDER BY seq ASC")
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pages []*siterag.PageRecord
	for rows.Next() {
		var p siterag.PageRecord
		var metadata, links, docs, fetchedAt string

		if err := rows.Scan(&p.JobID, &p.URL, &p.Domain, &p.Depth, &p.Status, &p.StatusCode, &p.Title,
			&p.Description, &p.Text, &metadata, &links, &docs, &p.ContentLength, &p.ContentHash,
			&p.Error, &p.ErrorKind, &fetchedAt); err != nil {
			return nil, err
		}
		if err := unmarshalJSON(metadata, &p.Metadata, "metadata"); err != nil {
			return nil, err
		}
		if err := unmarshalJSON(links, &p.Links, "links"); err != nil {
			return nil, err
		}
		if err := unmarshalJSON(docs, &p.DocumentLinks, "document_links"); err != nil {
			return nil, err
		}
		var err error
		if p.FetchedAt, err = parseRFC3339(fetchedAt, "fetched_at"); err != nil {
			return nil, err
		}
		pages = append(pages, &p)
	}
	return pages, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
