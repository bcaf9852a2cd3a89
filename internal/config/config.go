// Package config provides application configuration.
package config

import (
	"time"
)

// Default configuration values.
const (
	DefaultHost             = "0.0.0.0"
	DefaultPort             = 8080
	DefaultLogLevel         = "INFO"
	DefaultLogFormat        = "pretty"
	DefaultEmbeddingModel   = "text-embedding-3-small"
	DefaultEmbeddingDim     = 1536
	DefaultEmbeddingTimeout = 60 * time.Second
	DefaultMaxRetries       = 5
	DefaultInitialDelay     = 2 * time.Second
	DefaultBackoffFactor    = 2.0
	DefaultChunkSize        = 1000
	DefaultChunkOverlap     = 200
	DefaultMinTextLength    = 50
	DefaultSaveBatchSize    = 100
	DefaultBackfillDelay    = 500 * time.Millisecond
)

// AppConfig is the resolved application configuration.
type AppConfig struct {
	host      string
	port      int
	dbURL     string
	logLevel  string
	logFormat string
	embedding EmbeddingConfig
	indexing  IndexingConfig
	storage   StorageConfig
}

// Host returns the server bind host.
func (c AppConfig) Host() string { return c.host }

// Port returns the server port.
func (c AppConfig) Port() int { return c.port }

// DBURL returns the database connection URL.
func (c AppConfig) DBURL() string { return c.dbURL }

// LogLevel returns the log verbosity level.
func (c AppConfig) LogLevel() string { return c.logLevel }

// LogFormat returns the log output format (pretty or json).
func (c AppConfig) LogFormat() string { return c.logFormat }

// Embedding returns the embedding provider configuration.
func (c AppConfig) Embedding() EmbeddingConfig { return c.embedding }

// Indexing returns the indexing pipeline configuration.
func (c AppConfig) Indexing() IndexingConfig { return c.indexing }

// Storage returns the storage provider configuration.
func (c AppConfig) Storage() StorageConfig { return c.storage }

// EmbeddingConfig configures the embedding provider endpoint.
type EmbeddingConfig struct {
	apiKey        string
	baseURL       string
	model         string
	dimensions    int
	timeout       time.Duration
	maxRetries    int
	initialDelay  time.Duration
	backoffFactor float64
}

// NewEmbeddingConfig creates an EmbeddingConfig with defaults.
func NewEmbeddingConfig(apiKey string) EmbeddingConfig {
	return EmbeddingConfig{
		apiKey:        apiKey,
		model:         DefaultEmbeddingModel,
		dimensions:    DefaultEmbeddingDim,
		timeout:       DefaultEmbeddingTimeout,
		maxRetries:    DefaultMaxRetries,
		initialDelay:  DefaultInitialDelay,
		backoffFactor: DefaultBackoffFactor,
	}
}

// APIKey returns the provider API key.
func (c EmbeddingConfig) APIKey() string { return c.apiKey }

// BaseURL returns the provider base URL ("" means the provider default).
func (c EmbeddingConfig) BaseURL() string { return c.baseURL }

// Model returns the embedding model identifier.
func (c EmbeddingConfig) Model() string { return c.model }

// Dimensions returns the fixed vector dimensionality for the model.
func (c EmbeddingConfig) Dimensions() int { return c.dimensions }

// Timeout returns the request timeout.
func (c EmbeddingConfig) Timeout() time.Duration { return c.timeout }

// MaxRetries returns the maximum retry count.
func (c EmbeddingConfig) MaxRetries() int { return c.maxRetries }

// InitialDelay returns the initial retry delay.
func (c EmbeddingConfig) InitialDelay() time.Duration { return c.initialDelay }

// BackoffFactor returns the retry backoff multiplier.
func (c EmbeddingConfig) BackoffFactor() float64 { return c.backoffFactor }

// WithBaseURL returns a copy with the base URL set.
func (c EmbeddingConfig) WithBaseURL(url string) EmbeddingConfig {
	c.baseURL = url
	return c
}

// WithModel returns a copy with the model set.
func (c EmbeddingConfig) WithModel(model string) EmbeddingConfig {
	c.model = model
	return c
}

// WithDimensions returns a copy with the dimensionality set.
func (c EmbeddingConfig) WithDimensions(d int) EmbeddingConfig {
	c.dimensions = d
	return c
}

// WithTimeout returns a copy with the request timeout set.
func (c EmbeddingConfig) WithTimeout(d time.Duration) EmbeddingConfig {
	c.timeout = d
	return c
}

// IndexingConfig configures the indexing pipeline.
type IndexingConfig struct {
	chunkSize          int
	chunkOverlap       int
	preserveParagraphs bool
	minTextLength      int
	saveBatchSize      int
	backfillDelay      time.Duration
}

// NewIndexingConfig creates an IndexingConfig with defaults.
func NewIndexingConfig() IndexingConfig {
	return IndexingConfig{
		chunkSize:          DefaultChunkSize,
		chunkOverlap:       DefaultChunkOverlap,
		preserveParagraphs: true,
		minTextLength:      DefaultMinTextLength,
		saveBatchSize:      DefaultSaveBatchSize,
		backfillDelay:      DefaultBackfillDelay,
	}
}

// ChunkSize returns the maximum chunk length in characters.
func (c IndexingConfig) ChunkSize() int { return c.chunkSize }

// ChunkOverlap returns the sliding-window overlap in characters.
func (c IndexingConfig) ChunkOverlap() int { return c.chunkOverlap }

// PreserveParagraphs reports whether chunking respects paragraph boundaries.
func (c IndexingConfig) PreserveParagraphs() bool { return c.preserveParagraphs }

// MinTextLength returns the minimum extracted text length worth indexing.
func (c IndexingConfig) MinTextLength() int { return c.minTextLength }

// SaveBatchSize returns the number of rows per insert batch.
func (c IndexingConfig) SaveBatchSize() int { return c.saveBatchSize }

// BackfillDelay returns the pause between entities during bulk re-indexing.
func (c IndexingConfig) BackfillDelay() time.Duration { return c.backfillDelay }

// WithChunkSize returns a copy with the chunk size set.
func (c IndexingConfig) WithChunkSize(n int) IndexingConfig {
	c.chunkSize = n
	return c
}

// WithChunkOverlap returns a copy with the chunk overlap set.
func (c IndexingConfig) WithChunkOverlap(n int) IndexingConfig {
	c.chunkOverlap = n
	return c
}

// WithPreserveParagraphs returns a copy with paragraph preservation set.
func (c IndexingConfig) WithPreserveParagraphs(preserve bool) IndexingConfig {
	c.preserveParagraphs = preserve
	return c
}

// WithMinTextLength returns a copy with the minimum text length set.
func (c IndexingConfig) WithMinTextLength(n int) IndexingConfig {
	c.minTextLength = n
	return c
}

// WithSaveBatchSize returns a copy with the insert batch size set.
func (c IndexingConfig) WithSaveBatchSize(n int) IndexingConfig {
	c.saveBatchSize = n
	return c
}

// WithBackfillDelay returns a copy with the backfill inter-entity delay set.
func (c IndexingConfig) WithBackfillDelay(d time.Duration) IndexingConfig {
	c.backfillDelay = d
	return c
}

// StorageConfig configures the blob storage providers.
type StorageConfig struct {
	backblaze   BackblazeConfig
	supabase    SupabaseConfig
	googleDrive GoogleDriveConfig
}

// Backblaze returns the Backblaze B2 configuration.
func (c StorageConfig) Backblaze() BackblazeConfig { return c.backblaze }

// Supabase returns the Supabase storage configuration.
func (c StorageConfig) Supabase() SupabaseConfig { return c.supabase }

// GoogleDrive returns the Google Drive configuration.
func (c StorageConfig) GoogleDrive() GoogleDriveConfig { return c.googleDrive }

// BackblazeConfig configures Backblaze B2 downloads.
type BackblazeConfig struct {
	downloadURL string
	bucket      string
	authToken   string
}

// NewBackblazeConfig creates a BackblazeConfig.
func NewBackblazeConfig(downloadURL, bucket, authToken string) BackblazeConfig {
	return BackblazeConfig{downloadURL: downloadURL, bucket: bucket, authToken: authToken}
}

// DownloadURL returns the account download base URL.
func (c BackblazeConfig) DownloadURL() string { return c.downloadURL }

// Bucket returns the bucket name.
func (c BackblazeConfig) Bucket() string { return c.bucket }

// AuthToken returns the download authorization token.
func (c BackblazeConfig) AuthToken() string { return c.authToken }

// IsConfigured reports whether the provider can be used.
func (c BackblazeConfig) IsConfigured() bool { return c.downloadURL != "" && c.bucket != "" }

// SupabaseConfig configures Supabase storage downloads.
type SupabaseConfig struct {
	projectURL string
	bucket     string
	serviceKey string
}

// NewSupabaseConfig creates a SupabaseConfig.
func NewSupabaseConfig(projectURL, bucket, serviceKey string) SupabaseConfig {
	return SupabaseConfig{projectURL: projectURL, bucket: bucket, serviceKey: serviceKey}
}

// ProjectURL returns the Supabase project base URL.
func (c SupabaseConfig) ProjectURL() string { return c.projectURL }

// Bucket returns the storage bucket name.
func (c SupabaseConfig) Bucket() string { return c.bucket }

// ServiceKey returns the service role key.
func (c SupabaseConfig) ServiceKey() string { return c.serviceKey }

// IsConfigured reports whether the provider can be used.
func (c SupabaseConfig) IsConfigured() bool { return c.projectURL != "" && c.bucket != "" }

// GoogleDriveConfig configures Google Drive downloads.
type GoogleDriveConfig struct {
	accessToken string
}

// NewGoogleDriveConfig creates a GoogleDriveConfig.
func NewGoogleDriveConfig(accessToken string) GoogleDriveConfig {
	return GoogleDriveConfig{accessToken: accessToken}
}

// AccessToken returns the OAuth access token.
func (c GoogleDriveConfig) AccessToken() string { return c.accessToken }

// IsConfigured reports whether the provider can be used.
func (c GoogleDriveConfig) IsConfigured() bool { return c.accessToken != "" }
