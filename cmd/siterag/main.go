package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/siterag"
	"github.com/fwojciec/siterag/chunk"
	"github.com/fwojciec/siterag/config"
	"github.com/fwojciec/siterag/crawl"
	"github.com/fwojciec/siterag/gemini"
	"github.com/fwojciec/siterag/htmltomarkdown"
	raghttp "github.com/fwojciec/siterag/http"
	ragnats "github.com/fwojciec/siterag/nats"
	"github.com/fwojciec/siterag/openai"
	ragprom "github.com/fwojciec/siterag/prometheus"
	"github.com/fwojciec/siterag/qdrant"
	"github.com/fwojciec/siterag/readability"
	"github.com/fwojciec/siterag/rod"
	ragslog "github.com/fwojciec/siterag/slog"
	"github.com/fwojciec/siterag/sqlite"
	"github.com/fwojciec/siterag/trafilatura"
	"github.com/nats-io/nats.go"
	"google.golang.org/genai"
)

func main() {
	ctx := context.Background()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Config is loaded from file and environment when nil.
	Config *config.Config

	// SQLite database used by SQLite service implementations.
	DB *sqlite.DB

	closers []func() error
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{}
}

// Close gracefully stops the program, releasing resources in reverse order
// of acquisition.
func (m *Main) Close() error {
	var errs []error
	for i := len(m.closers) - 1; i >= 0; i-- {
		if err := m.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	m.closers = nil
	if m.DB != nil {
		if err := m.DB.Close(); err != nil {
			errs = append(errs, err)
		}
		m.DB = nil
	}
	return errors.Join(errs...)
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("siterag"),
		kong.Description("Crawl websites into a searchable vector index"),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}),
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'siterag --help' to see available commands")
	}

	cmd := args[0]
	if cmd == "help" || cmd == "--help" || cmd == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	var command string
	if node := kongCtx.Selected(); node != nil {
		command = node.Name
	}

	cfg := m.Config
	if cfg == nil {
		if cfg, err = config.Load(cli.Config); err != nil {
			fmt.Fprintln(stderr, "Hint: Check siterag.yaml and SITERAG_* environment variables")
			return err
		}
	}
	if cli.DB != "" {
		cfg.DB = cli.DB
	}
	deps.Config = cfg
	deps.Logger = newLogger(stderr, cfg.Log.Level, cli.Verbose)

	if err := os.MkdirAll(filepath.Dir(cfg.DB), 0o755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	m.DB = sqlite.NewDB(cfg.DB)
	if err := m.DB.Open(); err != nil {
		fmt.Fprintf(stderr, "Hint: Set SITERAG_DB or --db to use a different database path\n")
		return fmt.Errorf("failed to open database at %q: %w", cfg.DB, err)
	}
	defer m.Close()

	documentLinks := sqlite.NewDocumentLinkService(m.DB)
	deps.Jobs = sqlite.NewJobService(m.DB)
	deps.Pages = sqlite.NewPageService(m.DB)
	deps.DocumentLinks = documentLinks

	var conn *nats.Conn
	if cfg.NATS.URL != "" && (command == "crawl" || command == "cancel") {
		if conn, err = ragnats.Connect(cfg.NATS.URL); err != nil {
			fmt.Fprintln(stderr, "Hint: Unset nats.url to run without NATS")
			return err
		}
		m.closers = append(m.closers, func() error { return conn.Drain() })
		deps.CancelJob = func(ctx context.Context, jobID string) (bool, error) {
			return ragnats.RequestCancel(ctx, conn, jobID)
		}
	}

	switch command {
	case "crawl":
		if err := m.wireCrawl(ctx, deps, cli, conn, documentLinks); err != nil {
			return err
		}
		// Interrupts stop running jobs through the controller so they end
		// as cancelled rather than failed.
		sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		go func() {
			<-sigCtx.Done()
			deps.Controller.CancelAll()
		}()
	case "search":
		if err := m.wireIndex(ctx, deps, gemini.TaskRetrievalQuery); err != nil {
			return err
		}
	case "stats":
		if err := m.wireIndex(ctx, deps, ""); err != nil {
			return err
		}
	}

	return kongCtx.Run(deps)
}

// wireCrawl adds the fetch, parse, index and progress collaborators used by
// the crawl command.
func (m *Main) wireCrawl(ctx context.Context, deps *Dependencies, cli *CLI, conn *nats.Conn, documentLinks *sqlite.DocumentLinkService) error {
	cfg := deps.Config
	deps.Controller = crawl.NewController()

	light := raghttp.NewFetcher(
		raghttp.WithTimeout(cfg.Crawl.Timeout),
		raghttp.WithUserAgent(cfg.Crawl.UserAgent),
	)
	robots := raghttp.NewRobotsPolicy(light.Client(), cfg.Crawl.UserAgent)
	deps.Robots = robots
	deps.Sitemaps = ragslog.NewLoggingSitemapService(raghttp.NewSitemapService(light.Client(), robots), deps.Logger)
	deps.NewFetcher = func(strategy siterag.Strategy) (siterag.Fetcher, error) {
		switch strategy {
		case siterag.StrategyLightweight:
			return raghttp.NewFetcher(
				raghttp.WithTimeout(cfg.Crawl.Timeout),
				raghttp.WithUserAgent(cfg.Crawl.UserAgent),
			), nil
		case siterag.StrategyRendered:
			f, err := rod.NewFetcher(
				rod.WithFetchTimeout(cfg.Crawl.Timeout),
				rod.WithRecycleAfter(cfg.Crawl.RecycleAfter),
			)
			if err != nil {
				fmt.Fprintln(deps.Stderr, "Hint: Chrome or Chromium must be installed")
				return nil, siterag.Errorf(siterag.EUNAVAILABLE, "failed to start browser: %v", err)
			}
			return f, nil
		}
		return nil, siterag.Errorf(siterag.EINVALID, "unknown strategy %q", strategy)
	}
	deps.Extractor = newExtractor(cfg.Crawl.Extractor)
	deps.Converter = htmltomarkdown.NewConverter()
	deps.Documents = siterag.DocumentSinks{documentLinks}
	deps.Progress = siterag.ProgressSinks{ragslog.NewProgressSink(deps.Logger)}

	if conn != nil {
		deps.Progress = append(deps.Progress, ragnats.NewProgressSink(conn, deps.Logger))
		deps.Documents = append(deps.Documents, ragnats.NewDocumentSink(conn))
		listener := ragnats.NewCancelListener(conn, deps.Controller.Cancel, deps.Logger)
		if err := listener.Start(); err != nil {
			return err
		}
		m.closers = append(m.closers, listener.Close)
	}
	if cli.Crawl.MetricsAddr != "" {
		deps.Metrics = ragprom.NewMetrics()
	}

	if cli.Crawl.NoIndex {
		return nil
	}
	chunker, err := chunk.New(cfg.Crawl.ChunkConfig())
	if err != nil {
		return err
	}
	deps.Chunker = chunker
	if tokens, err := gemini.NewTokenCounter(gemini.DefaultTokenizerModel); err == nil {
		deps.Tokens = tokens
	} else {
		deps.Logger.Warn("token counting disabled", "err", err)
	}
	return m.wireIndex(ctx, deps, gemini.TaskRetrievalDocument)
}

// wireIndex adds the embedder and vector index. taskType selects the
// Gemini task hint and is ignored by other providers.
func (m *Main) wireIndex(ctx context.Context, deps *Dependencies, taskType string) error {
	cfg := deps.Config

	embedder, err := newEmbedder(ctx, cfg.Embedding, taskType)
	if err != nil {
		return err
	}
	deps.Embedder = ragslog.NewLoggingEmbedder(embedder, deps.Logger)

	var index siterag.VectorIndex
	switch cfg.Index.Backend {
	case config.BackendQdrant:
		conn, err := qdrant.Dial(cfg.Index.QdrantAddr, cfg.Index.APIKey)
		if err != nil {
			return err
		}
		m.closers = append(m.closers, conn.Close)
		ix := qdrant.NewIndex(conn, cfg.Embedding.Dimensions, qdrant.WithCollection(cfg.Index.Collection))
		if err := ix.EnsureCollection(ctx); err != nil {
			fmt.Fprintf(deps.Stderr, "Hint: Check that Qdrant is reachable at %s\n", cfg.Index.QdrantAddr)
			return err
		}
		index = ix
	default:
		ix := sqlite.NewVectorIndex(m.DB, cfg.Embedding.Dimensions)
		if err := ix.Ensure(ctx); err != nil {
			fmt.Fprintln(deps.Stderr, "Hint: embedding.dimensions must match the vectors already in the database")
			return err
		}
		index = ix
	}
	deps.Index = ragslog.NewLoggingVectorIndex(index, deps.Logger)
	return nil
}

func newEmbedder(ctx context.Context, cfg config.EmbeddingConfig, taskType string) (siterag.Embedder, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			return nil, siterag.Errorf(siterag.EINVALID, "OpenAI API key not set. Set SITERAG_EMBEDDING_API_KEY or OPENAI_API_KEY")
		}
		opts := []openai.Option{openai.WithDimensions(cfg.Dimensions)}
		if cfg.Model != "" {
			opts = append(opts, openai.WithModel(cfg.Model))
		}
		return openai.NewEmbedder(openai.NewClient(apiKey, cfg.BaseURL), opts...), nil
	default:
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			return nil, siterag.Errorf(siterag.EINVALID, "Gemini API key not set. Get a key at https://aistudio.google.com/apikey and set GEMINI_API_KEY")
		}
		clientCfg := &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI}
		if cfg.BaseURL != "" {
			clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
		}
		client, err := genai.NewClient(ctx, clientCfg)
		if err != nil {
			return nil, siterag.Errorf(siterag.EUNAVAILABLE, "failed to connect to Gemini API: %v", err)
		}
		opts := []gemini.EmbedderOption{gemini.WithDimensions(cfg.Dimensions)}
		if cfg.Model != "" {
			opts = append(opts, gemini.WithModel(cfg.Model))
		}
		if taskType != "" {
			opts = append(opts, gemini.WithTaskType(taskType))
		}
		return gemini.NewEmbedder(client, opts...), nil
	}
}

// newLogger writes text logs to w. verbose forces debug level.
func newLogger(w io.Writer, level string, verbose bool) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

func newExtractor(name string) siterag.Extractor {
	if name == config.ExtractorReadability {
		return readability.NewExtractor()
	}
	return trafilatura.NewExtractor()
}
