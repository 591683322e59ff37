package http

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/fwojciec/siterag"
	"github.com/temoto/robotstxt"
)

// maxRobotsSize caps the number of robots.txt bytes read.
const maxRobotsSize = 512 << 10

// Ensure RobotsPolicy implements siterag.RobotsPolicy at compile time.
var _ siterag.RobotsPolicy = (*RobotsPolicy)(nil)

// RobotsPolicy answers robots.txt questions for a crawler user agent.
// Each host's robots.txt is fetched once and cached for the lifetime of the
// policy. A host whose robots.txt cannot be retrieved, or answers with a
// server error, allows everything.
type RobotsPolicy struct {
	client    *http.Client
	userAgent string

	mu    sync.Mutex
	hosts map[string]*robotsEntry
}

type robotsEntry struct {
	mu     sync.Mutex
	loaded bool
	data   *robotstxt.RobotsData // nil allows all
}

// NewRobotsPolicy creates a RobotsPolicy. If client is nil,
// http.DefaultClient is used.
func NewRobotsPolicy(client *http.Client, userAgent string) *RobotsPolicy {
	if client == nil {
		client = http.DefaultClient
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &RobotsPolicy{
		client:    client,
		userAgent: userAgent,
		hosts:     make(map[string]*robotsEntry),
	}
}

// Allowed reports whether the user agent may fetch rawURL.
func (p *RobotsPolicy) Allowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return true
	}
	data := p.lookup(ctx, u)
	if data == nil {
		return true
	}
	return data.TestAgent(u.RequestURI(), p.userAgent)
}

// Sitemaps returns the Sitemap directives published by the host of rawURL.
func (p *RobotsPolicy) Sitemaps(ctx context.Context, rawURL string) []string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil
	}
	data := p.lookup(ctx, u)
	if data == nil {
		return nil
	}
	return data.Sitemaps
}

func (p *RobotsPolicy) lookup(ctx context.Context, u *url.URL) *robotstxt.RobotsData {
	key := u.Scheme + "://" + u.Host

	p.mu.Lock()
	entry, ok := p.hosts[key]
	if !ok {
		entry = &robotsEntry{}
		p.hosts[key] = entry
	}
	p.mu.Unlock()

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.loaded {
		return entry.data
	}

	data, err := p.fetch(ctx, key+"/robots.txt")
	if ctx.Err() != nil {
		// Not cached: a cancelled lookup says nothing about the host.
		return nil
	}
	entry.loaded = true
	if err == nil {
		entry.data = data
	}
	return entry.data
}

func (p *RobotsPolicy) fetch(ctx context.Context, robotsURL string) (*robotstxt.RobotsData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, siterag.Errorf(siterag.ETRANSIENT, "HTTP %d for %s", resp.StatusCode, robotsURL)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsSize))
	if err != nil {
		return nil, err
	}
	return robotstxt.FromStatusAndBytes(resp.StatusCode, body)
}
