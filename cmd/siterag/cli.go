package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/fwojciec/siterag"
	"github.com/fwojciec/siterag/config"
	"github.com/fwojciec/siterag/crawl"
	ragprom "github.com/fwojciec/siterag/prometheus"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx    context.Context
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
	Config *config.Config

	Jobs          siterag.JobService
	Pages         siterag.PageService
	DocumentLinks DocumentLinkFinder

	// Crawl dependencies.
	Controller *crawl.Controller
	NewFetcher func(strategy siterag.Strategy) (siterag.Fetcher, error)
	Robots     siterag.RobotsPolicy
	Sitemaps   siterag.SitemapService
	Extractor  siterag.Extractor
	Converter  siterag.Converter
	Chunker    siterag.Chunker
	Tokens     siterag.TokenCounter
	Progress   siterag.ProgressSinks
	Documents  siterag.DocumentSinks
	Metrics    *ragprom.Metrics

	// Index and search dependencies.
	Embedder siterag.Embedder
	Index    siterag.VectorIndex

	// CancelJob asks the process running a job to stop it.
	CancelJob func(ctx context.Context, jobID string) (bool, error)
}

// DocumentLinkFinder lists the document links recorded for a job.
type DocumentLinkFinder interface {
	FindDocumentLinks(ctx context.Context, jobID string) ([]siterag.DocumentLink, error)
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Config  string `short:"C" type:"path" help:"Config file (default: ./siterag.yaml or ~/.siterag/siterag.yaml)"`
	DB      string `type:"path" help:"SQLite database path (overrides config)"`
	Verbose bool   `short:"v" help:"Log debug output"`

	Crawl  CrawlCmd  `cmd:"" help:"Crawl a site and index its content"`
	Search SearchCmd `cmd:"" help:"Search indexed content"`
	Stats  StatsCmd  `cmd:"" help:"Show vector index statistics"`
	Jobs   JobsCmd   `cmd:"" help:"List crawl jobs or show one job"`
	Pages  PagesCmd  `cmd:"" help:"List pages recorded for a job"`
	Cancel CancelCmd `cmd:"" help:"Cancel a job running in another process (requires NATS)"`
}

// CrawlCmd is the "crawl" subcommand.
type CrawlCmd struct {
	URL         string   `arg:"" optional:"" help:"Start URL"`
	Seeds       []string `name:"seed" help:"Seed URL for discovery mode (repeatable)"`
	Query       string   `help:"Discovery query that produced the seeds"`
	Sitemap     bool     `help:"Seed the crawl from the site's sitemap"`
	Filter      []string `short:"F" help:"Keep only sitemap URLs matching regex (repeatable)"`
	Exclude     []string `help:"Drop sitemap URLs matching regex (repeatable)"`
	ID          string   `help:"Job ID, also used as the vector namespace (default: generated)"`
	Strategy    string   `short:"s" enum:"lightweight,rendered,auto" default:"lightweight" help:"Fetch strategy: lightweight, rendered or auto"`
	Scope       string   `enum:"host,domain" default:"host" help:"Follow links on the same host or the same registrable domain"`
	MaxDepth    int      `short:"d" help:"Maximum crawl depth (default from config)"`
	MaxPages    int      `short:"n" help:"Maximum pages to process (default from config)"`
	Concurrency int      `short:"c" help:"Concurrent fetch limit (default from config)"`
	Archive     string   `type:"path" help:"Write a markdown archive of crawled pages under DIR"`
	MetricsAddr string   `help:"Serve Prometheus metrics on this address while crawling"`
	NoIndex     bool     `help:"Store pages without embedding them"`
}

// SearchCmd is the "search" subcommand.
type SearchCmd struct {
	Query     string `arg:"" help:"Search query"`
	Namespace string `short:"n" default:"*" help:"Job ID to search, or * for all jobs"`
	TopK      int    `short:"k" default:"10" help:"Number of results"`
	Rerank    bool   `help:"Re-rank results by lexical overlap with the query"`
	Full      bool   `help:"Print full chunk text instead of snippets"`
}

// StatsCmd is the "stats" subcommand.
type StatsCmd struct {
	Namespace string `arg:"" optional:"" default:"*" help:"Job ID, or * for the whole index"`
}

// JobsCmd is the "jobs" subcommand.
type JobsCmd struct {
	ID     string `arg:"" optional:"" help:"Show details for this job"`
	Status string `help:"Only list jobs in this status (pending, running, completed, failed or cancelled)"`
	Limit  int    `default:"20" help:"Maximum jobs to list"`
}

// PagesCmd is the "pages" subcommand.
type PagesCmd struct {
	JobID  string `arg:"" help:"Job ID"`
	Failed bool   `help:"Only list failed pages"`
	Limit  int    `default:"0" help:"Maximum pages to list (0 for all)"`
}

// CancelCmd is the "cancel" subcommand.
type CancelCmd struct {
	JobID string `arg:"" help:"Job ID"`
}
