package main

import (
	"fmt"

	"github.com/fwojciec/siterag"
	"github.com/fwojciec/siterag/retrieve"
	ragslog "github.com/fwojciec/siterag/slog"
)

// Run executes the search command.
func (c *SearchCmd) Run(deps *Dependencies) error {
	var opts []retrieve.Option
	if c.Rerank {
		opts = append(opts, retrieve.WithReranker(retrieve.NewLexicalReranker()))
	}
	r := retrieve.New(deps.Embedder, deps.Index, opts...)
	if err := r.Validate(); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", siterag.ErrorMessage(err))
		return err
	}

	results, err := ragslog.NewLoggingRetriever(r, deps.Logger).Retrieve(deps.Ctx, c.Query, c.Namespace, c.TopK)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", siterag.ErrorMessage(err))
		return err
	}

	if len(results) == 0 {
		fmt.Fprintln(deps.Stdout, "No results found. Use 'siterag crawl' to index a site first.")
		return nil
	}

	for _, res := range results {
		title := res.Title
		if title == "" {
			title = res.URL
		}
		fmt.Fprintf(deps.Stdout, "%d. %s (%.3f)\n   %s#chunk-%d [%s]\n", res.Rank, title, res.Score, res.URL, res.ChunkIndex, res.Namespace)
		text := res.Snippet
		if c.Full {
			text = res.Text
		}
		fmt.Fprintf(deps.Stdout, "   %s\n\n", text)
	}
	return nil
}
