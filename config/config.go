// Package config loads siterag settings from an optional YAML file and
// SITERAG_* environment variables.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fwojciec/siterag"
	"github.com/fwojciec/siterag/chunk"
	"github.com/spf13/viper"
)

// Embedding providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Main-content extractors.
const (
	ExtractorTrafilatura = "trafilatura"
	ExtractorReadability = "readability"
)

// Vector index backends.
const (
	BackendSQLite = "sqlite"
	BackendQdrant = "qdrant"
)

// Config holds all application configuration.
type Config struct {
	DB        string          `mapstructure:"db"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Index     IndexConfig     `mapstructure:"index"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Crawl     CrawlConfig     `mapstructure:"crawl"`
	Log       LogConfig       `mapstructure:"log"`
}

type EmbeddingConfig struct {
	Provider   string `mapstructure:"provider"`
	Model      string `mapstructure:"model"`
	Dimensions int    `mapstructure:"dimensions"`
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
}

type IndexConfig struct {
	Backend    string `mapstructure:"backend"`
	QdrantAddr string `mapstructure:"qdrant_addr"`
	APIKey     string `mapstructure:"api_key"`
	Collection string `mapstructure:"collection"`
}

// NATSConfig configures progress publishing. An empty URL disables NATS.
type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type CrawlConfig struct {
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Timeout           time.Duration `mapstructure:"timeout"`
	UserAgent         string        `mapstructure:"user_agent"`
	MaxDepth          int           `mapstructure:"max_depth"`
	MaxPages          int           `mapstructure:"max_pages"`
	Concurrency       int           `mapstructure:"concurrency"`
	ChunkSize         int           `mapstructure:"chunk_size"`
	ChunkOverlap      int           `mapstructure:"chunk_overlap"`
	RecycleAfter      int           `mapstructure:"recycle_after"`
	Extractor         string        `mapstructure:"extractor"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// ChunkConfig returns the chunker configuration.
func (c CrawlConfig) ChunkConfig() chunk.Config {
	return chunk.Config{Size: c.ChunkSize, Overlap: c.ChunkOverlap}
}

// Validate returns EINVALID for settings no component can run with.
func (c *Config) Validate() error {
	if c.DB == "" {
		return siterag.Errorf(siterag.EINVALID, "db path required")
	}
	switch c.Embedding.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return siterag.Errorf(siterag.EINVALID, "unknown embedding provider %q", c.Embedding.Provider)
	}
	if c.Embedding.Dimensions < 1 {
		return siterag.Errorf(siterag.EINVALID, "embedding dimensions must be positive")
	}
	switch c.Index.Backend {
	case BackendSQLite:
	case BackendQdrant:
		if c.Index.QdrantAddr == "" {
			return siterag.Errorf(siterag.EINVALID, "qdrant address required")
		}
	default:
		return siterag.Errorf(siterag.EINVALID, "unknown index backend %q", c.Index.Backend)
	}
	if c.Crawl.RequestsPerSecond <= 0 {
		return siterag.Errorf(siterag.EINVALID, "requests per second must be positive")
	}
	if c.Crawl.Timeout <= 0 {
		return siterag.Errorf(siterag.EINVALID, "crawl timeout must be positive")
	}
	if c.Crawl.MaxDepth < 1 || c.Crawl.MaxPages < 1 {
		return siterag.Errorf(siterag.EINVALID, "max depth and max pages must be at least 1")
	}
	if c.Crawl.Concurrency < 1 {
		return siterag.Errorf(siterag.EINVALID, "concurrency must be at least 1")
	}
	switch c.Crawl.Extractor {
	case ExtractorTrafilatura, ExtractorReadability:
	default:
		return siterag.Errorf(siterag.EINVALID, "unknown extractor %q", c.Crawl.Extractor)
	}
	return c.Crawl.ChunkConfig().Validate()
}

// SetDefaults registers the default value of every setting on v.
func SetDefaults(v *viper.Viper) {
	chunks := chunk.DefaultConfig()

	v.SetDefault("db", defaultDBPath())
	v.SetDefault("embedding.provider", ProviderGemini)
	v.SetDefault("embedding.model", "")
	v.SetDefault("embedding.dimensions", 768)
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.base_url", "")
	v.SetDefault("index.backend", BackendSQLite)
	v.SetDefault("index.qdrant_addr", "localhost:6334")
	v.SetDefault("index.api_key", "")
	v.SetDefault("index.collection", "siterag")
	v.SetDefault("nats.url", "")
	v.SetDefault("crawl.requests_per_second", 1.0)
	v.SetDefault("crawl.timeout", 30*time.Second)
	v.SetDefault("crawl.user_agent", "siterag/1.0")
	v.SetDefault("crawl.max_depth", siterag.DefaultMaxDepth)
	v.SetDefault("crawl.max_pages", siterag.DefaultMaxPages)
	v.SetDefault("crawl.concurrency", siterag.DefaultConcurrency)
	v.SetDefault("crawl.chunk_size", chunks.Size)
	v.SetDefault("crawl.chunk_overlap", chunks.Overlap)
	v.SetDefault("crawl.recycle_after", 50)
	v.SetDefault("crawl.extractor", ExtractorTrafilatura)
	v.SetDefault("log.level", "warn")
}

// Load reads configuration from path, or from siterag.yaml in the working
// directory or $HOME/.siterag when path is empty, then applies SITERAG_*
// environment variables. A missing default config file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix("SITERAG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("siterag")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".siterag"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, siterag.Errorf(siterag.EINVALID, "reading config: %v", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, siterag.Errorf(siterag.EINVALID, "unmarshalling config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "siterag.db"
	}
	return filepath.Join(home, ".siterag", "siterag.db")
}
