package sqlite

import (
	"context"

	"github.com/fwojciec/siterag"
)

// Compile-time interface verification.
var _ siterag.DocumentSink = (*DocumentLinkService)(nil)

// DocumentLinkService records document links discovered during crawls so
// they can be processed later. A link is stored once per job.
type DocumentLinkService struct {
	db *DB
}

// NewDocumentLinkService creates a new DocumentLinkService.
func NewDocumentLinkService(db *DB) *DocumentLinkService {
	return &DocumentLinkService{db: db}
}

// HandleDocument stores link. Storing a link already recorded for the job
// is a no-op.
func (s *DocumentLinkService) HandleDocument(ctx context.Context, link siterag.DocumentLink) error {
	if link.JobID == "" || link.URL == "" {
		return siterag.Errorf(siterag.EINVALID, "document link requires a job ID and URL")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO document_links (job_id, url, source_url, depth)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (job_id, url) DO NOTHING
	`, link.JobID, link.URL, link.SourceURL, link.Depth)
	return err
}

// FindDocumentLinks returns the document links recorded for jobID in
// discovery order.
func (s *DocumentLinkService) FindDocumentLinks(ctx context.Context, jobID string) ([]siterag.DocumentLink, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT job_id, url, source_url, depth
		FROM document_links
		WHERE job_id = ?
		ORDER BY seq ASC
	`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []siterag.DocumentLink
	for rows.Next() {
		var l siterag.DocumentLink
		if err := rows.Scan(&l.JobID, &l.URL, &l.SourceURL, &l.Depth); err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	return links, rows.Err()
}
