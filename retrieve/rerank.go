package retrieve

import (
	"sort"
	"strings"
	"unicode"

	"github.com/fwojciec/siterag"
)

// DefaultAlpha weights semantic similarity against lexical overlap.
const DefaultAlpha = 0.7

var _ siterag.Reranker = (*LexicalReranker)(nil)

// LexicalReranker blends each result's semantic score with the share of
// query terms found in its title and text:
//
//	score = Alpha*semantic + (1-Alpha)*lexical
//
// Results are reordered by the blended score. Equal scores keep their
// original order.
type LexicalReranker struct {
	Alpha float64
}

// NewLexicalReranker creates a reranker with DefaultAlpha.
func NewLexicalReranker() *LexicalReranker {
	return &LexicalReranker{Alpha: DefaultAlpha}
}

// Rerank returns copies of results in blended-score order with Score set to
// the blended score. The input slice is not modified.
func (r *LexicalReranker) Rerank(query string, results []*siterag.SearchResult) []*siterag.SearchResult {
	terms := uniqueTerms(query)

	out := make([]*siterag.SearchResult, len(results))
	for i, res := range results {
		c := *res
		lexical := 0.0
		if len(terms) > 0 {
			lexical = overlap(terms, c.Title+" "+c.Text)
		}
		c.Score = float32(r.Alpha*float64(res.Score) + (1-r.Alpha)*lexical)
		out[i] = &c
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// overlap returns the fraction of terms present in text.
func overlap(terms map[string]struct{}, text string) float64 {
	found := 0
	seen := make(map[string]struct{}, len(terms))
	for _, tok := range tokenize(text) {
		if _, ok := terms[tok]; !ok {
			continue
		}
		if _, dup := seen[tok]; !dup {
			seen[tok] = struct{}{}
			found++
		}
	}
	return float64(found) / float64(len(terms))
}

func uniqueTerms(s string) map[string]struct{} {
	terms := make(map[string]struct{})
	for _, tok := range tokenize(s) {
		terms[tok] = struct{}{}
	}
	return terms
}

// tokenize lowercases s and splits it on anything that is not a letter or
// digit. Single-rune tokens are dropped.
func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	toks := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) > 1 {
			toks = append(toks, f)
		}
	}
	return toks
}
