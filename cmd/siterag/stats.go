package main

import (
	"fmt"
	"maps"
	"slices"

	"github.com/fwojciec/siterag"
)

// Run executes the stats command.
func (c *StatsCmd) Run(deps *Dependencies) error {
	stats, err := deps.Index.Stats(deps.Ctx, c.Namespace)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", siterag.ErrorMessage(err))
		return err
	}

	name := stats.Namespace
	if name == siterag.AllNamespaces {
		name = "all namespaces"
	}
	fmt.Fprintf(deps.Stdout, "%s: %d vectors, %d dimensions\n", name, stats.Vectors, stats.Dimensions)
	for _, ns := range slices.Sorted(maps.Keys(stats.Namespaces)) {
		fmt.Fprintf(deps.Stdout, "  %s: %d vectors\n", ns, stats.Namespaces[ns])
	}
	return nil
}
