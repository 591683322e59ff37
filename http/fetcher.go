// Package http provides the lightweight siterag.Fetcher, which retrieves the
// initial markup of a page without executing scripts, together with the
// robots.txt policy and sitemap discovery that share its HTTP client.
package http

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/siterag"
	sgoquery "github.com/fwojciec/siterag/goquery"
)

const (
	// DefaultFetchTimeout is the default timeout for one request.
	DefaultFetchTimeout = 30 * time.Second

	// DefaultUserAgent identifies the crawler to servers.
	DefaultUserAgent = "siterag/1.0"

	// MaxBodySize caps the number of bytes read from a response.
	MaxBodySize = 10 << 20
)

// Ensure Fetcher implements siterag.Fetcher at compile time.
var _ siterag.Fetcher = (*Fetcher)(nil)

// Fetcher retrieves HTML content with a single GET request.
// Unlike rod.Fetcher it does not execute JavaScript, so Links only contains
// anchors present in the initial markup.
type Fetcher struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the timeout for HTTP requests.
// Defaults to DefaultFetchTimeout if not specified.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithClient replaces the underlying HTTP client. The client's Timeout is
// overwritten by the fetcher timeout.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.client = c
	}
}

// NewFetcher creates a new HTTP-based Fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		timeout:   DefaultFetchTimeout,
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(f)
	}

	if f.client == nil {
		f.client = &http.Client{}
	}
	f.client.Timeout = f.timeout

	return f
}

// Client returns the HTTP client used by the fetcher so robots and sitemap
// lookups can share its transport.
func (f *Fetcher) Client() *http.Client {
	return f.client
}

// UserAgent returns the User-Agent header the fetcher sends.
func (f *Fetcher) UserAgent() string {
	return f.userAgent
}

// Fetch retrieves url. Non-2xx responses return EPERMANENT for client errors
// other than 408 and 429, and ETRANSIENT otherwise. Timeouts and connection
// failures return ETRANSIENT.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*siterag.FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, siterag.Errorf(siterag.EPERMANENT, "invalid request for %s: %v", url, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(ctx, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, siterag.StatusError(url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize))
	if err != nil {
		return nil, classifyTransportError(ctx, url, err)
	}

	finalURL := resp.Request.URL.String()
	result := &siterag.FetchResult{
		URL:        url,
		FinalURL:   finalURL,
		StatusCode: resp.StatusCode,
		HTML:       string(body),
	}
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(result.HTML)); err == nil {
		links := sgoquery.ExtractLinks(doc, finalURL)
		result.Links = append(links.Pages, links.Documents...)
	}
	return result, nil
}

// Close releases idle connections.
func (f *Fetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}

func classifyTransportError(ctx context.Context, url string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return siterag.Errorf(siterag.ETRANSIENT, "timeout fetching %s", url)
	}
	return siterag.Errorf(siterag.ETRANSIENT, "fetching %s: %v", url, err)
}
