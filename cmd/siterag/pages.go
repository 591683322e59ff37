package main

import (
	"fmt"

	"github.com/fwojciec/siterag"
)

// Run executes the pages command.
func (c *PagesCmd) Run(deps *Dependencies) error {
	filter := siterag.PageFilter{JobID: &c.JobID, Limit: c.Limit}
	if c.Failed {
		status := siterag.PageFailed
		filter.Status = &status
	}

	pages, err := deps.Pages.FindPages(deps.Ctx, filter)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", siterag.ErrorMessage(err))
		return err
	}

	if len(pages) == 0 {
		fmt.Fprintf(deps.Stdout, "No pages found for job %s.\n", c.JobID)
		return nil
	}

	for _, p := range pages {
		detail := p.Title
		if p.Status == siterag.PageFailed {
			detail = fmt.Sprintf("%s: %s", p.ErrorKind, p.Error)
		}
		fmt.Fprintf(deps.Stdout, "%-7s  %d  %s  %s\n", p.Status, p.Depth, p.URL, detail)
	}
	return nil
}
