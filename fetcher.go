package siterag

import "context"

// FetchResult holds what a Fetcher retrieved for one URL.
type FetchResult struct {
	// URL is the requested URL and FinalURL the URL after redirects.
	URL      string
	FinalURL string

	StatusCode int
	HTML       string

	// Links are the anchor targets the fetcher observed, resolved to
	// absolute form. A rendered fetch includes anchors created by scripts.
	Links []string
}

// Fetcher retrieves page content for a URL.
// Two implementations share this contract: a lightweight HTTP fetcher and a
// rendered fetcher backed by a headless browser session. The strategy is
// chosen once per job by constructing one or the other.
type Fetcher interface {
	// Fetch retrieves the URL. Failures carry ETRANSIENT (worth retrying)
	// or EPERMANENT codes.
	// The context controls timeout and cancellation.
	Fetch(ctx context.Context, url string) (*FetchResult, error)

	// Close releases fetcher resources.
	// Must be called when the Fetcher is no longer needed.
	Close() error
}

// StatusError classifies a non-2xx HTTP status returned for rawURL.
// Request timeouts, rate limiting and server errors are ETRANSIENT; any other
// status is EPERMANENT.
func StatusError(rawURL string, code int) error {
	switch {
	case code == 408, code == 429, code >= 500:
		return Errorf(ETRANSIENT, "HTTP %d for %s", code, rawURL)
	default:
		return Errorf(EPERMANENT, "HTTP %d for %s", code, rawURL)
	}
}
