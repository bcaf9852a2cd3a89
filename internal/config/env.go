package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// envSpec is the raw environment variable schema, processed with the
// ACERVO prefix (e.g. ACERVO_DB_URL, ACERVO_OPENAI_API_KEY).
type envSpec struct {
	Host      string `envconfig:"HOST"`
	Port      int    `envconfig:"PORT"`
	DBURL     string `envconfig:"DB_URL"`
	LogLevel  string `envconfig:"LOG_LEVEL"`
	LogFormat string `envconfig:"LOG_FORMAT"`

	OpenAIAPIKey   string        `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL  string        `envconfig:"OPENAI_BASE_URL"`
	EmbeddingModel string        `envconfig:"EMBEDDING_MODEL"`
	EmbeddingDim   int           `envconfig:"EMBEDDING_DIMENSIONS"`
	RequestTimeout time.Duration `envconfig:"EMBEDDING_TIMEOUT"`

	ChunkSize          int           `envconfig:"CHUNK_SIZE"`
	ChunkOverlap       int           `envconfig:"CHUNK_OVERLAP"`
	PreserveParagraphs *bool         `envconfig:"PRESERVE_PARAGRAPHS"`
	MinTextLength      int           `envconfig:"MIN_TEXT_LENGTH"`
	SaveBatchSize      int           `envconfig:"SAVE_BATCH_SIZE"`
	BackfillDelay      time.Duration `envconfig:"BACKFILL_DELAY"`

	B2DownloadURL string `envconfig:"B2_DOWNLOAD_URL"`
	B2Bucket      string `envconfig:"B2_BUCKET"`
	B2AuthToken   string `envconfig:"B2_AUTH_TOKEN"`

	SupabaseURL        string `envconfig:"SUPABASE_URL"`
	SupabaseBucket     string `envconfig:"SUPABASE_BUCKET"`
	SupabaseServiceKey string `envconfig:"SUPABASE_SERVICE_KEY"`

	GDriveAccessToken string `envconfig:"GDRIVE_ACCESS_TOKEN"`
}

// Load reads configuration from the environment, applying defaults for
// anything unset. A .env file in the working directory is honoured first.
func Load() (AppConfig, error) {
	LoadDotEnv()

	var env envSpec
	if err := envconfig.Process("acervo", &env); err != nil {
		return AppConfig{}, fmt.Errorf("failed to process environment: %w", err)
	}

	return fromEnv(env), nil
}

func fromEnv(env envSpec) AppConfig {
	cfg := AppConfig{
		host:      DefaultHost,
		port:      DefaultPort,
		dbURL:     env.DBURL,
		logLevel:  DefaultLogLevel,
		logFormat: DefaultLogFormat,
		embedding: NewEmbeddingConfig(env.OpenAIAPIKey),
		indexing:  NewIndexingConfig(),
		storage: StorageConfig{
			backblaze:   NewBackblazeConfig(env.B2DownloadURL, env.B2Bucket, env.B2AuthToken),
			supabase:    NewSupabaseConfig(env.SupabaseURL, env.SupabaseBucket, env.SupabaseServiceKey),
			googleDrive: NewGoogleDriveConfig(env.GDriveAccessToken),
		},
	}

	if env.Host != "" {
		cfg.host = env.Host
	}
	if env.Port != 0 {
		cfg.port = env.Port
	}
	if env.LogLevel != "" {
		cfg.logLevel = env.LogLevel
	}
	if env.LogFormat != "" {
		cfg.logFormat = env.LogFormat
	}

	if env.OpenAIBaseURL != "" {
		cfg.embedding = cfg.embedding.WithBaseURL(env.OpenAIBaseURL)
	}
	if env.EmbeddingModel != "" {
		cfg.embedding = cfg.embedding.WithModel(env.EmbeddingModel)
	}
	if env.EmbeddingDim > 0 {
		cfg.embedding = cfg.embedding.WithDimensions(env.EmbeddingDim)
	}
	if env.RequestTimeout > 0 {
		cfg.embedding = cfg.embedding.WithTimeout(env.RequestTimeout)
	}

	if env.ChunkSize > 0 {
		cfg.indexing = cfg.indexing.WithChunkSize(env.ChunkSize)
	}
	if env.ChunkOverlap > 0 {
		cfg.indexing = cfg.indexing.WithChunkOverlap(env.ChunkOverlap)
	}
	if env.PreserveParagraphs != nil {
		cfg.indexing = cfg.indexing.WithPreserveParagraphs(*env.PreserveParagraphs)
	}
	if env.MinTextLength > 0 {
		cfg.indexing = cfg.indexing.WithMinTextLength(env.MinTextLength)
	}
	if env.SaveBatchSize > 0 {
		cfg.indexing = cfg.indexing.WithSaveBatchSize(env.SaveBatchSize)
	}
	if env.BackfillDelay > 0 {
		cfg.indexing = cfg.indexing.WithBackfillDelay(env.BackfillDelay)
	}

	return cfg
}
