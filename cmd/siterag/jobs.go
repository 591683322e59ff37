package main

import (
	"fmt"
	"time"

	"github.com/fwojciec/siterag"
)

// Run executes the jobs command.
func (c *JobsCmd) Run(deps *Dependencies) error {
	if c.ID != "" {
		return c.show(deps)
	}

	filter := siterag.JobFilter{Limit: c.Limit}
	if c.Status != "" {
		status := siterag.JobStatus(c.Status)
		if !status.Valid() {
			err := siterag.Errorf(siterag.EINVALID, "unknown job status %q", c.Status)
			fmt.Fprintf(deps.Stderr, "error: %s\n", siterag.ErrorMessage(err))
			return err
		}
		filter.Status = &status
	}

	jobs, err := deps.Jobs.FindJobs(deps.Ctx, filter)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", siterag.ErrorMessage(err))
		return err
	}

	if len(jobs) == 0 {
		fmt.Fprintln(deps.Stdout, "No jobs found. Use 'siterag crawl' to start one.")
		return nil
	}

	for _, j := range jobs {
		fmt.Fprintf(deps.Stdout, "%s  %-9s  %s  %s  %d scraped, %d failed\n",
			j.ID, j.Status, j.CreatedAt.Local().Format(time.DateTime), startOf(j), j.Stats.Scraped, j.Stats.Failed)
	}
	return nil
}

func (c *JobsCmd) show(deps *Dependencies) error {
	job, err := deps.Jobs.FindJobByID(deps.Ctx, c.ID)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", siterag.ErrorMessage(err))
		return err
	}

	w := deps.Stdout
	fmt.Fprintf(w, "Job:         %s\n", job.ID)
	fmt.Fprintf(w, "Status:      %s\n", job.Status)
	if job.Error != "" {
		fmt.Fprintf(w, "Error:       %s\n", job.Error)
	}
	fmt.Fprintf(w, "Start:       %s\n", startOf(job))
	if job.Query != "" {
		fmt.Fprintf(w, "Query:       %s\n", job.Query)
	}
	fmt.Fprintf(w, "Strategy:    %s\n", job.Strategy)
	fmt.Fprintf(w, "Limits:      depth %d, pages %d, concurrency %d\n", job.MaxDepth, job.MaxPages, job.Concurrency)
	fmt.Fprintf(w, "Pages:       %d scraped, %d failed, %d discovered\n", job.Stats.Scraped, job.Stats.Failed, job.Stats.Discovered)
	fmt.Fprintf(w, "Index:       %d chunks, %d vectors\n", job.Stats.Chunks, job.Stats.Vectors)
	if !job.StartedAt.IsZero() && !job.FinishedAt.IsZero() {
		fmt.Fprintf(w, "Duration:    %s\n", job.FinishedAt.Sub(job.StartedAt).Round(time.Millisecond))
	}

	if deps.DocumentLinks == nil {
		return nil
	}
	links, err := deps.DocumentLinks.FindDocumentLinks(deps.Ctx, job.ID)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", siterag.ErrorMessage(err))
		return err
	}
	if len(links) > 0 {
		fmt.Fprintf(w, "Documents:   %d\n", len(links))
		for _, l := range links {
			fmt.Fprintf(w, "  %s (from %s)\n", l.URL, l.SourceURL)
		}
	}
	return nil
}

// startOf describes where a job started.
func startOf(j *siterag.Job) string {
	if j.StartURL != "" {
		return j.StartURL
	}
	return fmt.Sprintf("%d seed URLs", len(j.SeedURLs))
}
