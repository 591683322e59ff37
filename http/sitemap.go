package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/beevik/etree"
	"github.com/fwojciec/siterag"
)

// MaxSitemaps bounds the number of sitemap documents read per discovery,
// including those referenced from sitemap indexes.
const MaxSitemaps = 50

// Ensure SitemapService implements siterag.SitemapService.
var _ siterag.SitemapService = (*SitemapService)(nil)

// SitemapService discovers seed URLs from sitemaps published in robots.txt,
// falling back to /sitemap.xml.
type SitemapService struct {
	client *http.Client
	robots *RobotsPolicy
}

// NewSitemapService creates a new SitemapService. If client is nil,
// http.DefaultClient is used. If robots is nil, a policy sharing client is
// created.
func NewSitemapService(client *http.Client, robots *RobotsPolicy) *SitemapService {
	if client == nil {
		client = http.DefaultClient
	}
	if robots == nil {
		robots = NewRobotsPolicy(client, "")
	}
	return &SitemapService{client: client, robots: robots}
}

// DiscoverURLs returns the normalized, deduplicated page URLs listed in the
// site's sitemaps, or an empty slice if none are published.
//
// When baseURL has a non-root path (e.g., https://example.com/docs/), only
// URLs under that path are returned.
func (s *SitemapService) DiscoverURLs(ctx context.Context, baseURL string, filter *siterag.URLFilter) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	base, err := url.Parse(baseURL)
	if err != nil || base.Host == "" {
		return nil, siterag.Errorf(siterag.EINVALID, "invalid base URL %q", baseURL)
	}
	root := base.Scheme + "://" + base.Host

	sitemaps := s.robots.Sitemaps(ctx, root+"/")
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(sitemaps) == 0 {
		sitemaps = []string{root + "/sitemap.xml"}
	}

	w := &sitemapWalk{
		svc:     s,
		visited: make(map[string]bool),
		seen:    make(map[string]bool),
		prefix:  pathPrefix(base.Path),
		filter:  filter,
		urls:    []string{},
	}
	for _, sm := range sitemaps {
		if err := w.visit(ctx, sm, true); err != nil {
			return nil, err
		}
	}
	return w.urls, nil
}

// sitemapWalk accumulates URLs across the sitemaps of one discovery.
type sitemapWalk struct {
	svc     *SitemapService
	visited map[string]bool
	seen    map[string]bool
	prefix  string
	filter  *siterag.URLFilter
	urls    []string
}

// visit reads one sitemap. Top-level sitemaps that do not exist are skipped;
// every other failure aborts discovery.
func (w *sitemapWalk) visit(ctx context.Context, sitemapURL string, topLevel bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if w.visited[sitemapURL] || len(w.visited) >= MaxSitemaps {
		return nil
	}
	w.visited[sitemapURL] = true

	doc, err := w.svc.fetchXML(ctx, sitemapURL)
	if err != nil {
		if topLevel && siterag.ErrorCode(err) == siterag.ENOTFOUND {
			return nil
		}
		return err
	}

	root := doc.Root()
	if root == nil {
		return siterag.Errorf(siterag.EINVALID, "empty sitemap %s", sitemapURL)
	}
	if root.Tag == "sitemapindex" {
		for _, child := range locs(root, "sitemap") {
			if err := w.visit(ctx, child, false); err != nil {
				return err
			}
		}
		return nil
	}

	for _, loc := range locs(root, "url") {
		u, err := siterag.NormalizeURL(loc)
		if err != nil || w.seen[u] {
			continue
		}
		w.seen[u] = true
		if !underPrefix(u, w.prefix) || !w.filter.Match(u) {
			continue
		}
		w.urls = append(w.urls, u)
	}
	return nil
}

// locs returns the trimmed <loc> values of root's children named tag.
func locs(root *etree.Element, tag string) []string {
	var out []string
	for _, el := range root.SelectElements(tag) {
		loc := el.SelectElement("loc")
		if loc == nil {
			continue
		}
		if v := strings.TrimSpace(loc.Text()); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func (s *SitemapService) fetchXML(ctx context.Context, target string) (*etree.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, siterag.Errorf(siterag.EINVALID, "invalid sitemap URL %q", target)
	}
	req.Header.Set("User-Agent", s.robots.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("fetching sitemap %s: %w", target, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, siterag.Errorf(siterag.ENOTFOUND, "sitemap %s not found", target)
	case resp.StatusCode != http.StatusOK:
		return nil, siterag.StatusError(target, resp.StatusCode)
	}

	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(io.LimitReader(resp.Body, MaxBodySize)); err != nil {
		return nil, siterag.Errorf(siterag.EINVALID, "parsing sitemap %s: %v", target, err)
	}
	return doc, nil
}

// pathPrefix returns the directory prefix URLs must share with the base
// path, or the empty string for the site root.
func pathPrefix(p string) string {
	if p == "" || p == "/" {
		return ""
	}
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p
}

// underPrefix reports whether rawURL's path lies under prefix, respecting
// segment boundaries: /docs/ matches /docs and /docs/intro but not
// /documentation.
func underPrefix(rawURL, prefix string) bool {
	if prefix == "" {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.HasPrefix(u.Path+"/", prefix)
}
