package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/acervolabs/acervo/domain/embedding"
	"github.com/acervolabs/acervo/domain/record"
	"github.com/acervolabs/acervo/internal/database"
	"gorm.io/gorm"
)

// SQL specific to pgvector (extension, schema, indexes, catalog).
const (
	pgvCreateExtension = `CREATE EXTENSION IF NOT EXISTS vector`

	pgvCreateTableTemplate = `
CREATE TABLE IF NOT EXISTS %s (
    id BIGSERIAL PRIMARY KEY,
    content TEXT NOT NULL,
    embedding VECTOR(%d) NOT NULL,
    entity_type VARCHAR(32) NOT NULL,
    entity_id BIGINT NOT NULL,
    parent_id BIGINT,
    metadata JSONB,
    generation VARCHAR(64) NOT NULL DEFAULT '',
    indexed_by BIGINT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

	pgvCreateVectorIndexTemplate = `
CREATE INDEX IF NOT EXISTS %s_embedding_idx
ON %s
USING ivfflat (embedding vector_cosine_ops)
WITH (lists = 100)`

	pgvCreateEntityIndexTemplate = `
CREATE INDEX IF NOT EXISTS %s_entity_idx ON %s (entity_type, entity_id)`

	pgvCreateMetadataIndexTemplate = `
CREATE INDEX IF NOT EXISTS %s_metadata_idx ON %s USING GIN (metadata)`

	pgvCheckDimensionTemplate = `
SELECT a.atttypmod as dimension
FROM pg_attribute a
JOIN pg_class c ON a.attrelid = c.oid
WHERE c.relname = '%s'
AND a.attname = 'embedding'`
)

// ErrPgvectorInitializationFailed indicates pgvector initialization failed.
var ErrPgvectorInitializationFailed = errors.New("failed to initialize pgvector store")

// PgvectorStore implements embedding.Store using the PostgreSQL pgvector
// extension. Similarity search and threshold filtering run inside the
// database.
type PgvectorStore struct {
	db        database.Database
	repo      database.Repository[embedding.Record, PgEmbeddingModel]
	batchSize int
	logger    *slog.Logger
}

// NewPgvectorStore creates a PgvectorStore, eagerly initializing the
// extension, table and indexes and verifying the vector dimensionality.
func NewPgvectorStore(ctx context.Context, db database.Database, dimension, batchSize int, logger *slog.Logger) (*PgvectorStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if batchSize <= 0 {
		batchSize = 100
	}

	s := &PgvectorStore{
		db:        db,
		repo:      database.NewRepository[embedding.Record, PgEmbeddingModel](db, pgEmbeddingMapper{}, "embedding"),
		batchSize: batchSize,
		logger:    logger,
	}

	rawDB := db.Session(ctx)

	if err := rawDB.Exec(pgvCreateExtension).Error; err != nil {
		return nil, errors.Join(ErrPgvectorInitializationFailed, fmt.Errorf("create extension: %w", err))
	}

	// Dynamic dimension requires raw SQL.
	createTableSQL := fmt.Sprintf(pgvCreateTableTemplate, embeddingsTable, dimension)
	if err := rawDB.Exec(createTableSQL).Error; err != nil {
		return nil, errors.Join(ErrPgvectorInitializationFailed, fmt.Errorf("create table: %w", err))
	}

	for _, tmpl := range []string{
		pgvCreateVectorIndexTemplate,
		pgvCreateEntityIndexTemplate,
		pgvCreateMetadataIndexTemplate,
	} {
		indexSQL := fmt.Sprintf(tmpl, embeddingsTable, embeddingsTable)
		if err := rawDB.Exec(indexSQL).Error; err != nil {
			logger.Warn("failed to create index (may already exist)", "error", err)
		}
	}

	var dbDimension int
	checkDimensionSQL := fmt.Sprintf(pgvCheckDimensionTemplate, embeddingsTable)
	result := rawDB.Raw(checkDimensionSQL).Scan(&dbDimension)
	if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, errors.Join(ErrPgvectorInitializationFailed, fmt.Errorf("check dimension: %w", result.Error))
	}
	if result.RowsAffected > 0 && dbDimension != dimension {
		return nil, fmt.Errorf("%w: database has %d, provider has %d", ErrDimensionMismatch, dbDimension, dimension)
	}

	return s, nil
}

// SaveAll inserts records in batches inside one transaction, so a failing
// batch leaves no rows of the run behind. Records are never updated in
// place; re-indexing inserts a new generation and deletes the stale one.
func (s *PgvectorStore) SaveAll(ctx context.Context, records []embedding.Record) error {
	if len(records) == 0 {
		return nil
	}

	models := make([]PgEmbeddingModel, len(records))
	for i, r := range records {
		models[i] = s.repo.Mapper().ToModel(r)
	}

	err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		return tx.CreateInBatches(&models, s.batchSize).Error
	})
	if err != nil {
		return fmt.Errorf("save embeddings: %w", err)
	}
	return nil
}

// DeleteBy removes records matching the given options.
func (s *PgvectorStore) DeleteBy(ctx context.Context, options ...record.Option) error {
	return s.repo.DeleteBy(ctx, options...)
}

// Count returns the number of records matching the given options.
func (s *PgvectorStore) Count(ctx context.Context, options ...record.Option) (int64, error) {
	return s.repo.Count(ctx, options...)
}

// pgMatchRow carries a model row plus its computed cosine distance.
type pgMatchRow struct {
	PgEmbeddingModel `gorm:"embedded"`
	Distance         float64 `gorm:"column:distance"`
}

// Search runs cosine similarity search in SQL. The match threshold is
// enforced here, in the distance domain, so only qualifying rows leave the
// database.
func (s *PgvectorStore) Search(ctx context.Context, options ...record.Option) ([]embedding.Match, error) {
	q := record.Build(options...)

	vector, ok := embedding.QueryVectorFrom(q)
	if !ok || len(vector) == 0 {
		return []embedding.Match{}, nil
	}

	limit := q.LimitValue()
	if limit <= 0 {
		limit = defaultMatchCount
	}

	queryVector := database.NewPgVector(vector).String()

	tx := s.repo.DB(ctx).Table(embeddingsTable).
		Select("*, (embedding <=> ?) AS distance", queryVector)
	tx = database.ApplyConditions(tx, options...)

	if threshold, ok := embedding.MatchThresholdFrom(q); ok {
		// similarity = 1 - distance, so the threshold bounds the distance.
		tx = tx.Where("(embedding <=> ?) <= ?", queryVector, 1-threshold)
	}

	if filter, ok := embedding.MetadataFilterFrom(q); ok && len(filter) > 0 {
		filterJSON, err := json.Marshal(filter)
		if err != nil {
			return nil, fmt.Errorf("marshal metadata filter: %w", err)
		}
		tx = tx.Where("metadata @> ?", string(filterJSON))
	}

	var rows []pgMatchRow
	if err := tx.Order("distance ASC").Limit(limit).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("search embeddings: %w", err)
	}

	matches := make([]embedding.Match, len(rows))
	for i, row := range rows {
		matches[i] = embedding.NewMatch(
			s.repo.Mapper().ToDomain(row.PgEmbeddingModel),
			1-row.Distance,
		)
	}
	return matches, nil
}

var _ embedding.Store = (*PgvectorStore)(nil)
