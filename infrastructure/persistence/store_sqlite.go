package persistence

import (
	"context"
	"fmt"

	"github.com/acervolabs/acervo/domain/embedding"
	"github.com/acervolabs/acervo/domain/record"
	"github.com/acervolabs/acervo/internal/database"
	"gorm.io/gorm"
)

// SQLiteStore implements embedding.Store on SQLite. Vectors are stored as
// JSON and similarity is computed in process, which is fine for the local
// development datasets SQLite is used for.
type SQLiteStore struct {
	db        database.Database
	repo      database.Repository[embedding.Record, SQLiteEmbeddingModel]
	batchSize int
}

// NewSQLiteStore creates a SQLiteStore and migrates its table.
func NewSQLiteStore(ctx context.Context, db database.Database, batchSize int) (*SQLiteStore, error) {
	if batchSize <= 0 {
		batchSize = 100
	}

	if err := db.Session(ctx).AutoMigrate(&SQLiteEmbeddingModel{}); err != nil {
		return nil, fmt.Errorf("migrate embeddings table: %w", err)
	}

	return &SQLiteStore{
		db:        db,
		repo:      database.NewRepository[embedding.Record, SQLiteEmbeddingModel](db, sqliteEmbeddingMapper{}, "embedding"),
		batchSize: batchSize,
	}, nil
}

// SaveAll inserts records in batches inside one transaction, so a failing
// batch leaves no rows of the run behind.
func (s *SQLiteStore) SaveAll(ctx context.Context, records []embedding.Record) error {
	if len(records) == 0 {
		return nil
	}

	models := make([]SQLiteEmbeddingModel, len(records))
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
func (s *SQLiteStore) DeleteBy(ctx context.Context, options ...record.Option) error {
	return s.repo.DeleteBy(ctx, options...)
}

// Count returns the number of records matching the given options.
func (s *SQLiteStore) Count(ctx context.Context, options ...record.Option) (int64, error) {
	return s.repo.Count(ctx, options...)
}

// Search loads candidate rows by their SQL-filterable conditions, then
// computes cosine similarity, metadata filtering, threshold and ranking in
// process.
func (s *SQLiteStore) Search(ctx context.Context, options ...record.Option) ([]embedding.Match, error) {
	q := record.Build(options...)

	vector, ok := embedding.QueryVectorFrom(q)
	if !ok || len(vector) == 0 {
		return []embedding.Match{}, nil
	}

	limit := q.LimitValue()
	if limit <= 0 {
		limit = defaultMatchCount
	}

	threshold, _ := embedding.MatchThresholdFrom(q)
	filter, _ := embedding.MetadataFilterFrom(q)

	// The limit applies after ranking, so candidates are loaded with the
	// SQL-filterable conditions only.
	candidates, err := s.repo.Find(ctx, conditionsOnly(q)...)
	if err != nil {
		return nil, fmt.Errorf("search embeddings: %w", err)
	}

	matches := make([]embedding.Match, 0, len(candidates))
	for _, rec := range candidates {
		if len(filter) > 0 && !matchesMetadata(rec.Metadata(), filter) {
			continue
		}
		matches = append(matches, embedding.NewMatch(rec, CosineSimilarity(vector, rec.Vector())))
	}

	return rankMatches(matches, threshold, limit), nil
}

// conditionsOnly rebuilds a query's WHERE conditions as options, dropping
// ordering, pagination and params.
func conditionsOnly(q record.Query) []record.Option {
	conds := q.Conditions()
	options := make([]record.Option, 0, len(conds))
	for _, c := range conds {
		switch {
		case c.In():
			options = append(options, record.WithConditionIn(c.Field(), c.Value()))
		case c.Negated():
			options = append(options, record.WithConditionNot(c.Field(), c.Value()))
		default:
			options = append(options, record.WithCondition(c.Field(), c.Value()))
		}
	}
	return options
}

var _ embedding.Store = (*SQLiteStore)(nil)
