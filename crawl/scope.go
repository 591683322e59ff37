package crawl

import (
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Scope decides which discovered links a crawl may follow.
type Scope string

const (
	// ScopeHost follows links on the exact host of a seed URL.
	ScopeHost Scope = "host"

	// ScopeRegistrableDomain follows links anywhere under the registrable
	// domain of a seed URL, so docs.example.com may reach www.example.com.
	ScopeRegistrableDomain Scope = "domain"
)

// Valid reports whether s is a known scope. The empty scope means ScopeHost.
func (s Scope) Valid() bool {
	return s == "" || s == ScopeHost || s == ScopeRegistrableDomain
}

// scopeSet holds the keys links must match to be followed.
type scopeSet struct {
	scope Scope
	keys  map[string]bool
}

func newScopeSet(scope Scope, seeds []string) *scopeSet {
	s := &scopeSet{scope: scope, keys: make(map[string]bool)}
	for _, seed := range seeds {
		if k := s.key(seed); k != "" {
			s.keys[k] = true
		}
	}
	return s
}

// Contains reports whether rawURL may be followed.
func (s *scopeSet) Contains(rawURL string) bool {
	k := s.key(rawURL)
	return k != "" && s.keys[k]
}

func (s *scopeSet) key(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if s.scope != ScopeRegistrableDomain {
		return host
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		// IP addresses and bare public suffixes scope to the host itself.
		return host
	}
	return domain
}
