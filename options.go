package acervo

import (
	"log/slog"
	"net/http"

	"github.com/acervolabs/acervo/domain/search"
	"github.com/acervolabs/acervo/internal/config"
)

// clientConfig holds configuration for Client construction.
// Use newClientConfig() to create with defaults from internal/config.
type clientConfig struct {
	dbURL      string
	embedding  config.EmbeddingConfig
	hasAPIKey  bool
	embedder   search.Embedder
	indexing   config.IndexingConfig
	storage    config.StorageConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// newClientConfig creates a clientConfig with defaults from internal/config.
func newClientConfig() *clientConfig {
	return &clientConfig{
		indexing: config.NewIndexingConfig(),
	}
}

// Option configures the Client.
type Option func(*clientConfig)

// WithSQLite configures SQLite as the database. Vectors are stored as JSON
// and ranked in process.
func WithSQLite(path string) Option {
	return func(c *clientConfig) {
		c.dbURL = "sqlite:///" + path
	}
}

// WithPostgres configures PostgreSQL with the pgvector extension.
func WithPostgres(dsn string) Option {
	return func(c *clientConfig) {
		c.dbURL = dsn
	}
}

// WithDatabaseURL configures the database from a URL (sqlite:// or
// postgres://).
func WithDatabaseURL(url string) Option {
	return func(c *clientConfig) {
		c.dbURL = url
	}
}

// WithOpenAI sets OpenAI as the embedding provider.
func WithOpenAI(apiKey string) Option {
	return func(c *clientConfig) {
		c.embedding = config.NewEmbeddingConfig(apiKey)
		c.hasAPIKey = apiKey != ""
	}
}

// WithOpenAIConfig sets OpenAI with custom configuration.
func WithOpenAIConfig(cfg config.EmbeddingConfig) Option {
	return func(c *clientConfig) {
		c.embedding = cfg
		c.hasAPIKey = cfg.APIKey() != ""
	}
}

// WithEmbedder sets a custom embedding provider, bypassing OpenAI.
func WithEmbedder(e search.Embedder) Option {
	return func(c *clientConfig) {
		c.embedder = e
	}
}

// WithIndexingConfig sets the indexing pipeline configuration.
func WithIndexingConfig(cfg config.IndexingConfig) Option {
	return func(c *clientConfig) {
		c.indexing = cfg
	}
}

// WithStorageConfig configures the object storage providers documents are
// downloaded from.
func WithStorageConfig(cfg config.StorageConfig) Option {
	return func(c *clientConfig) {
		c.storage = cfg
	}
}

// WithHTTPClient sets the HTTP client used for storage downloads.
func WithHTTPClient(client *http.Client) Option {
	return func(c *clientConfig) {
		c.httpClient = client
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *clientConfig) {
		c.logger = l
	}
}
