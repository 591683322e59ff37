package mock

import (
	"context"

	"github.com/fwojciec/siterag"
)

var (
	_ siterag.DomainLimiter = (*DomainLimiter)(nil)
	_ siterag.RobotsPolicy  = (*RobotsPolicy)(nil)
)

// DomainLimiter is a mock implementation of siterag.DomainLimiter.
type DomainLimiter struct {
	WaitFn func(ctx context.Context, domain string) error
}

func (d *DomainLimiter) Wait(ctx context.Context, domain string) error {
	return d.WaitFn(ctx, domain)
}

// RobotsPolicy is a mock implementation of siterag.RobotsPolicy.
type RobotsPolicy struct {
	AllowedFn func(ctx context.Context, url string) bool
}

func (r *RobotsPolicy) Allowed(ctx context.Context, url string) bool {
	return r.AllowedFn(ctx, url)
}
