package crawl

import (
	"sync"

	"github.com/fwojciec/siterag"
)

// Compile-time interface verification.
var _ siterag.URLFrontier = (*Frontier)(nil)

// Frontier is an in-memory FIFO crawl queue with an exact visited set.
// A URL is accepted at most once for the lifetime of the frontier, so a URL
// that was dequeued is never queued again. Pushing entries in discovery
// order keeps the queue breadth-first.
//
// Frontier is safe for concurrent use by multiple goroutines.
type Frontier struct {
	mu    sync.Mutex
	seen  map[string]struct{}
	queue []siterag.FrontierEntry
	head  int
}

// NewFrontier creates an empty Frontier.
func NewFrontier() *Frontier {
	return &Frontier{
		seen: make(map[string]struct{}),
	}
}

// Push adds entry to the back of the queue. The URL is normalized first;
// Push returns false if it is invalid or has already been seen.
func (f *Frontier) Push(entry siterag.FrontierEntry) bool {
	u, err := siterag.NormalizeURL(entry.URL)
	if err != nil {
		return false
	}
	entry.URL = u

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.seen[u]; ok {
		return false
	}
	f.seen[u] = struct{}{}
	f.queue = append(f.queue, entry)
	return true
}

// Pop removes and returns the oldest entry.
// The bool result is false if the frontier is empty.
func (f *Frontier) Pop() (siterag.FrontierEntry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.head == len(f.queue) {
		return siterag.FrontierEntry{}, false
	}
	entry := f.queue[f.head]
	f.queue[f.head] = siterag.FrontierEntry{}
	f.head++
	if f.head == len(f.queue) {
		f.queue, f.head = f.queue[:0], 0
	}
	return entry, true
}

// Peek returns the oldest entry without removing it.
func (f *Frontier) Peek() (siterag.FrontierEntry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.head == len(f.queue) {
		return siterag.FrontierEntry{}, false
	}
	return f.queue[f.head], true
}

// Len returns the number of URLs in the queue.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue) - f.head
}

// Seen returns true if the URL has been processed or queued.
func (f *Frontier) Seen(rawURL string) bool {
	u, err := siterag.NormalizeURL(rawURL)
	if err != nil {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.seen[u]
	return ok
}
