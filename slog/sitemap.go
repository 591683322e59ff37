package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/siterag"
)

var _ siterag.SitemapService = (*LoggingSitemapService)(nil)

// LoggingSitemapService logs every sitemap seeding of a discovery-mode job.
type LoggingSitemapService struct {
	next   siterag.SitemapService
	logger *slog.Logger
}

// NewLoggingSitemapService creates a new LoggingSitemapService.
func NewLoggingSitemapService(next siterag.SitemapService, logger *slog.Logger) *LoggingSitemapService {
	return &LoggingSitemapService{next: next, logger: logger}
}

// DiscoverURLs logs how many seed URLs the site's sitemaps yielded. Failures
// are logged at warn level with their error code.
func (s *LoggingSitemapService) DiscoverURLs(ctx context.Context, baseURL string, filter *siterag.URLFilter) (urls []string, err error) {
	defer func(begin time.Time) {
		level := slog.LevelInfo
		attrs := []any{"url", baseURL, "seeds", len(urls), "filtered", filter != nil, "duration", time.Since(begin)}
		if err != nil {
			level = slog.LevelWarn
			attrs = append(attrs, "code", siterag.ErrorCode(err), "err", err)
		}
		s.logger.Log(ctx, level, "sitemap seeds", attrs...)
	}(time.Now())
	return s.next.DiscoverURLs(ctx, baseURL, filter)
}
