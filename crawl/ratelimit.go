package crawl

import (
	"context"
	"sync"

	"github.com/fwojciec/siterag"
	"golang.org/x/time/rate"
)

// DefaultRequestsPerSecond is the default politeness rate per host.
const DefaultRequestsPerSecond = 1.0

var _ siterag.DomainLimiter = (*DomainLimiter)(nil)

// DomainLimiter spaces requests to each host using one token bucket per
// host with a burst of 1, so concurrent workers hitting the same host are
// serialized while different hosts proceed independently.
type DomainLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
}

// NewDomainLimiter creates a DomainLimiter allowing rps requests per second
// to each host. A non-positive rps disables limiting.
func NewDomainLimiter(rps float64) *DomainLimiter {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	return &DomainLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
	}
}

// Wait blocks until the rate limit allows a request to the domain.
// Returns an error if the context is canceled before the wait completes.
func (d *DomainLimiter) Wait(ctx context.Context, domain string) error {
	d.mu.Lock()
	limiter, ok := d.limiters[domain]
	if !ok {
		limiter = rate.NewLimiter(d.limit, 1)
		d.limiters[domain] = limiter
	}
	d.mu.Unlock()

	return limiter.Wait(ctx)
}
