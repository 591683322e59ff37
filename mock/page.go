package mock

import (
	"context"

	"github.com/fwojciec/siterag"
)

var (
	_ siterag.PageSink     = (*PageSink)(nil)
	_ siterag.PageService  = (*PageService)(nil)
	_ siterag.PageArchive  = (*PageArchive)(nil)
	_ siterag.DocumentSink = (*DocumentSink)(nil)
)

// PageSink is a mock implementation of siterag.PageSink.
type PageSink struct {
	SavePageFn func(ctx context.Context, page *siterag.PageRecord) error
}

func (s *PageSink) SavePage(ctx context.Context, page *siterag.PageRecord) error {
	return s.SavePageFn(ctx, page)
}

// PageService is a mock implementation of siterag.PageService.
type PageService struct {
	SavePageFn  func(ctx context.Context, page *siterag.PageRecord) error
	FindPagesFn func(ctx context.Context, filter siterag.PageFilter) ([]*siterag.PageRecord, error)
}

func (s *PageService) SavePage(ctx context.Context, page *siterag.PageRecord) error {
	return s.SavePageFn(ctx, page)
}

func (s *PageService) FindPages(ctx context.Context, filter siterag.PageFilter) ([]*siterag.PageRecord, error) {
	return s.FindPagesFn(ctx, filter)
}

// PageArchive is a mock implementation of siterag.PageArchive.
type PageArchive struct {
	SavePageFn func(ctx context.Context, page *siterag.PageRecord) error
	CommitFn   func() error
	AbortFn    func() error
}

func (a *PageArchive) SavePage(ctx context.Context, page *siterag.PageRecord) error {
	return a.SavePageFn(ctx, page)
}

func (a *PageArchive) Commit() error {
	return a.CommitFn()
}

func (a *PageArchive) Abort() error {
	return a.AbortFn()
}

// DocumentSink is a mock implementation of siterag.DocumentSink.
type DocumentSink struct {
	HandleDocumentFn func(ctx context.Context, link siterag.DocumentLink) error
}

func (s *DocumentSink) HandleDocument(ctx context.Context, link siterag.DocumentLink) error {
	return s.HandleDocumentFn(ctx, link)
}
