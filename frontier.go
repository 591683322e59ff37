package siterag

import "context"

// FrontierEntry is a URL awaiting processing and the depth it was found at.
type FrontierEntry struct {
	URL   string
	Depth int
}

// URLFrontier manages a crawl queue with deduplication.
type URLFrontier interface {
	// Push adds an entry to the frontier.
	// Returns false if the URL has already been seen. The check and the
	// insert happen atomically.
	Push(entry FrontierEntry) bool

	// Pop returns the next entry in FIFO order.
	// Returns false if the frontier is empty.
	Pop() (FrontierEntry, bool)

	// Peek returns the next entry without removing it.
	Peek() (FrontierEntry, bool)

	// Len returns the number of URLs in the queue.
	Len() int

	// Seen returns true if the URL has been processed or queued.
	Seen(url string) bool
}

// DomainLimiter enforces a politeness delay between requests to one host.
type DomainLimiter interface {
	// Wait blocks until the rate limit allows a request to the domain.
	// Returns an error if the context is canceled.
	Wait(ctx context.Context, domain string) error
}

// RobotsPolicy reports whether a site's published crawl policy allows a URL.
// Failure to retrieve the policy is treated as allowing everything.
type RobotsPolicy interface {
	Allowed(ctx context.Context, url string) bool
}
