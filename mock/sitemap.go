package mock

import (
	"context"

	"github.com/fwojciec/siterag"
)

var _ siterag.SitemapService = (*SitemapService)(nil)

// SitemapService is a mock implementation of siterag.SitemapService.
type SitemapService struct {
	DiscoverURLsFn func(ctx context.Context, baseURL string, filter *siterag.URLFilter) ([]string, error)
}

func (s *SitemapService) DiscoverURLs(ctx context.Context, baseURL string, filter *siterag.URLFilter) ([]string, error) {
	return s.DiscoverURLsFn(ctx, baseURL, filter)
}
