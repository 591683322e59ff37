// Package rod provides the rendered siterag.Fetcher, which loads pages in a
// headless Chrome session so script-generated content and links are visible.
package rod

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fwojciec/siterag"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

const (
	// DefaultFetchTimeout bounds navigation plus the network-idle wait.
	DefaultFetchTimeout = 30 * time.Second

	// DefaultIdleTime is how long the network must stay quiet before the
	// page counts as rendered.
	DefaultIdleTime = 500 * time.Millisecond
)

// linksScript returns the resolved href of every anchor, including anchors
// inserted by scripts and anchors inside open shadow roots.
const linksScript = `() => {
  const out = [];
  const walk = (root) => {
    root.querySelectorAll('a[href]').forEach((a) => out.push(a.href));
    root.querySelectorAll('*').forEach((el) => { if (el.shadowRoot) walk(el.shadowRoot); });
  };
  walk(document);
  return out;
}`

// Ensure Fetcher implements siterag.Fetcher at compile time.
var _ siterag.Fetcher = (*Fetcher)(nil)

// Fetcher retrieves rendered HTML using the browser session of a
// BrowserManager. A fetch that exceeds the timeout fails with ETRANSIENT for
// that URL only; the session stays up.
//
// Fetcher is safe for concurrent use by multiple goroutines.
type Fetcher struct {
	manager  *BrowserManager
	timeout  time.Duration
	idle     time.Duration
	maxPages int

	closeOnce sync.Once
	closeErr  error
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithFetchTimeout sets the per-URL timeout. Defaults to DefaultFetchTimeout.
func WithFetchTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithIdleTime sets the network quiet period that ends rendering.
func WithIdleTime(d time.Duration) Option {
	return func(f *Fetcher) {
		f.idle = d
	}
}

// WithRecycleAfter sets how many pages the browser serves before it is
// replaced. Defaults to DefaultMaxPages.
func WithRecycleAfter(n int) Option {
	return func(f *Fetcher) {
		f.maxPages = n
	}
}

// NewFetcher launches a browser session for one job.
// Close must be called when the Fetcher is no longer needed.
//
// Returns an error if Chrome/Chromium cannot be found or launched.
func NewFetcher(opts ...Option) (*Fetcher, error) {
	f := &Fetcher{
		timeout:  DefaultFetchTimeout,
		idle:     DefaultIdleTime,
		maxPages: DefaultMaxPages,
	}
	for _, opt := range opts {
		opt(f)
	}

	manager, err := NewBrowserManager(WithMaxPages(f.maxPages))
	if err != nil {
		return nil, err
	}
	f.manager = manager
	return f, nil
}

// Fetch navigates to url, waits for the network to go idle and returns the
// rendered HTML with every anchor target in the final DOM.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*siterag.FetchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	page, release, err := f.manager.NewPage()
	if err != nil {
		return nil, err
	}
	defer release()

	tctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	p := page.Context(tctx)

	var (
		mu     sync.Mutex
		status int
	)
	go p.EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if e.Type != proto.NetworkResourceTypeDocument {
			return false
		}
		mu.Lock()
		if status == 0 {
			status = int(e.Response.Status)
		}
		mu.Unlock()
		return true
	})()

	waitIdle := p.WaitRequestIdle(f.idle, nil, nil, nil)
	if err := p.Navigate(url); err != nil {
		return nil, f.classify(ctx, tctx, url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return nil, f.classify(ctx, tctx, url, err)
	}
	waitIdle()
	if tctx.Err() != nil {
		return nil, f.classify(ctx, tctx, url, tctx.Err())
	}

	mu.Lock()
	code := status
	mu.Unlock()
	if code != 0 && (code < 200 || code > 299) {
		return nil, siterag.StatusError(url, code)
	}

	html, err := p.HTML()
	if err != nil {
		return nil, f.classify(ctx, tctx, url, err)
	}

	result := &siterag.FetchResult{
		URL:        url,
		FinalURL:   url,
		StatusCode: code,
		HTML:       html,
		Links:      f.links(p),
	}
	if info, err := p.Info(); err == nil && info.URL != "" {
		result.FinalURL = info.URL
	}
	if result.StatusCode == 0 {
		result.StatusCode = 200
	}
	return result, nil
}

// links returns the normalized, deduplicated anchor targets of the rendered
// page. Evaluation failures yield no links rather than failing the fetch.
func (f *Fetcher) links(p *rod.Page) []string {
	res, err := p.Eval(linksScript)
	if err != nil {
		return nil
	}
	var hrefs []string
	if err := res.Value.Unmarshal(&hrefs); err != nil {
		return nil
	}
	return NormalizeLinks(hrefs)
}

// classify maps a browser error to a fetch error. Caller cancellation is
// returned unchanged; the fetch timeout and navigation failures are
// ETRANSIENT.
func (f *Fetcher) classify(ctx, tctx context.Context, url string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if tctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		return siterag.Errorf(siterag.ETRANSIENT, "rendering %s timed out after %s", url, f.timeout)
	}
	var navErr *rod.NavigationError
	if errors.As(err, &navErr) {
		return siterag.Errorf(siterag.ETRANSIENT, "navigating to %s: %s", url, navErr.Reason)
	}
	return siterag.Errorf(siterag.ETRANSIENT, "rendering %s: %v", url, err)
}

// Close shuts down the browser session. Close is safe to call multiple times.
func (f *Fetcher) Close() error {
	f.closeOnce.Do(func() {
		f.closeErr = f.manager.Close()
	})
	return f.closeErr
}

// LauncherPID returns the process ID of the browser launcher.
func (f *Fetcher) LauncherPID() int {
	return f.manager.LauncherPID()
}

// NormalizeLinks normalizes hrefs, dropping non-HTTP(S) targets and
// duplicates while keeping document order.
func NormalizeLinks(hrefs []string) []string {
	seen := make(map[string]bool, len(hrefs))
	var out []string
	for _, h := range hrefs {
		u, err := siterag.NormalizeURL(h)
		if err != nil || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}
