// Package acervo provides document indexing and semantic search for legal
// case records.
//
// Acervo downloads documents from object storage, extracts their text,
// splits it into overlapping chunks, embeds the chunks and stores the
// vectors for similarity search.
//
// Basic usage:
//
//	client, err := acervo.New(
//	    acervo.WithSQLite(".acervo/data.db"),
//	    acervo.WithOpenAI(os.Getenv("ACERVO_OPENAI_API_KEY")),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Index a document
//	result, err := client.Indexer.IndexDocument(ctx,
//	    service.NewIndexRequest(embedding.EntityTypeDocument, 42),
//	    service.NewDocumentSource(storage.ProviderSupabase, "cases/42/contract.pdf", ""),
//	)
//
//	// Semantic search
//	matches, err := client.Search.Search(ctx, search.NewRequest("notice period",
//	    search.WithEntityType(embedding.EntityTypeContract),
//	))
package acervo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/acervolabs/acervo/application/service"
	"github.com/acervolabs/acervo/domain/embedding"
	"github.com/acervolabs/acervo/infrastructure/chunking"
	"github.com/acervolabs/acervo/infrastructure/extract"
	"github.com/acervolabs/acervo/infrastructure/persistence"
	"github.com/acervolabs/acervo/infrastructure/provider"
	"github.com/acervolabs/acervo/infrastructure/storage"
	"github.com/acervolabs/acervo/internal/config"
	"github.com/acervolabs/acervo/internal/database"
	"github.com/acervolabs/acervo/internal/log"
)

// Client errors.
var (
	ErrNoDatabase = errors.New("no database configured")
	ErrNoEmbedder = errors.New("no embedding provider configured")

	// ErrClientClosed is returned by Close when the client is already closed.
	ErrClientClosed = errors.New("client already closed")
)

// Client is the main entry point for the acervo library.
//
// Access the services via struct fields:
//
//	client.Indexer.IndexDocument(ctx, req, src)
//	client.Search.Search(ctx, search.NewRequest("query"))
type Client struct {
	// Public service fields (direct service access)
	Indexer *service.Indexer
	Search  *service.Search

	db       database.Database
	store    embedding.Store
	resolver storage.Resolver

	logger *slog.Logger
	closed atomic.Bool
}

// New creates a new Client with the given options.
func New(opts ...Option) (*Client, error) {
	cfg := newClientConfig()

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.dbURL == "" {
		return nil, ErrNoDatabase
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	embedder := cfg.embedder
	if embedder == nil {
		if !cfg.hasAPIKey {
			return nil, ErrNoEmbedder
		}
		embedder = provider.NewOpenAIEmbedderFromConfig(cfg.embedding)
	}

	chunker, err := chunking.NewChunker(chunking.Params{
		Size:               cfg.indexing.ChunkSize(),
		Overlap:            cfg.indexing.ChunkOverlap(),
		PreserveParagraphs: cfg.indexing.PreserveParagraphs(),
	})
	if err != nil {
		return nil, fmt.Errorf("chunker: %w", err)
	}

	ctx := context.Background()
	db, err := database.NewDatabase(ctx, cfg.dbURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store, err := persistence.NewStore(ctx, db, cfg.embedding.Dimensions(), cfg.indexing.SaveBatchSize(), logger)
	if err != nil {
		errClose := db.Close()
		return nil, errors.Join(fmt.Errorf("embedding store: %w", err), errClose)
	}

	extractor := extract.NewExtractor()
	resolver := storage.NewResolverFromConfig(cfg.storage, cfg.httpClient)

	client := &Client{
		db:       db,
		store:    store,
		resolver: resolver,
		logger:   logger,
	}

	client.Indexer = service.NewIndexer(store, embedder, extractor, resolver, chunker, cfg.indexing, logger)
	client.Search = service.NewSearch(store, embedder, logger)

	return client, nil
}

// NewFromConfig creates a Client from a resolved application configuration,
// as loaded from the environment by config.Load.
func NewFromConfig(appCfg config.AppConfig, opts ...Option) (*Client, error) {
	logger := log.Configure(appCfg.LogFormat(), appCfg.LogLevel()).Slog()

	base := []Option{
		WithDatabaseURL(appCfg.DBURL()),
		WithOpenAIConfig(appCfg.Embedding()),
		WithIndexingConfig(appCfg.Indexing()),
		WithStorageConfig(appCfg.Storage()),
		WithLogger(logger),
	}
	return New(append(base, opts...)...)
}

// Close releases the database connection.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClientClosed
	}

	if err := c.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}

	c.logger.Info("acervo client closed")
	return nil
}

// Logger returns the client's logger.
func (c *Client) Logger() *slog.Logger {
	return c.logger
}

// Store returns the embedding store, for callers that need direct query
// access.
func (c *Client) Store() embedding.Store {
	return c.store
}

// StorageProviders returns the configured object storage providers.
func (c *Client) StorageProviders() []storage.Provider {
	return c.resolver.Providers()
}
