// Package bloom provides approximate URL sets backed by Bloom filters.
package bloom

import "github.com/bits-and-blooms/bloom/v3"

// Set is an approximate set of URLs with a running count of distinct
// additions. A false positive makes Add report an unseen URL as known, so
// Len may undercount by roughly the false positive rate.
//
// Set is not safe for concurrent use.
type Set struct {
	f *bloom.BloomFilter
	n int
}

// NewSet creates a Set sized for n expected URLs with the given false
// positive rate.
func NewSet(n uint, fpRate float64) *Set {
	return &Set{f: bloom.NewWithEstimates(n, fpRate)}
}

// Add inserts url and reports whether it was new.
func (s *Set) Add(url string) bool {
	if s.f.TestAndAddString(url) {
		return false
	}
	s.n++
	return true
}

// Has reports whether url might be in the set.
func (s *Set) Has(url string) bool {
	return s.f.TestString(url)
}

// Len returns the number of distinct URLs added.
func (s *Set) Len() int {
	return s.n
}

// EstimatedLen returns the filter's own cardinality estimate.
func (s *Set) EstimatedLen() uint {
	return uint(s.f.ApproximatedSize())
}
