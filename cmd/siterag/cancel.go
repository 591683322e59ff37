package main

import (
	"fmt"

	"github.com/fwojciec/siterag"
)

// Run executes the cancel command.
func (c *CancelCmd) Run(deps *Dependencies) error {
	if deps.CancelJob == nil {
		err := siterag.Errorf(siterag.EINVALID, "cancel requires nats.url to be configured")
		fmt.Fprintf(deps.Stderr, "error: %s\n", siterag.ErrorMessage(err))
		return err
	}

	ok, err := deps.CancelJob(deps.Ctx, c.JobID)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", siterag.ErrorMessage(err))
		return err
	}
	if !ok {
		fmt.Fprintf(deps.Stdout, "Job %s is not running.\n", c.JobID)
		return nil
	}
	fmt.Fprintf(deps.Stdout, "Cancelled job %s.\n", c.JobID)
	return nil
}
