// Package persistence implements the embedding store on PostgreSQL with
// pgvector and on SQLite with JSON vectors.
package persistence

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/acervolabs/acervo/domain/embedding"
	"github.com/acervolabs/acervo/internal/database"
)

// embeddingsTable is the shared table name for both dialects.
const embeddingsTable = "embeddings"

// JSONMap stores a metadata map as a JSON column.
type JSONMap map[string]any

// Scan implements sql.Scanner.
func (m *JSONMap) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into JSONMap", value)
	}

	return json.Unmarshal(data, m)
}

// Value implements driver.Valuer.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Float64Slice stores a []float64 as a JSON column for SQLite.
type Float64Slice []float64

// Scan implements sql.Scanner.
func (f *Float64Slice) Scan(value any) error {
	if value == nil {
		*f = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Float64Slice", value)
	}

	return json.Unmarshal(data, f)
}

// Value implements driver.Valuer.
func (f Float64Slice) Value() (driver.Value, error) {
	if f == nil {
		return nil, nil
	}
	return json.Marshal(f)
}

// PgEmbeddingModel is the GORM model for the pgvector embeddings table.
type PgEmbeddingModel struct {
	ID         int64             `gorm:"column:id;primaryKey;autoIncrement"`
	Content    string            `gorm:"column:content"`
	Embedding  database.PgVector `gorm:"column:embedding;type:vector"`
	EntityType string            `gorm:"column:entity_type;index:idx_embeddings_entity"`
	EntityID   int64             `gorm:"column:entity_id;index:idx_embeddings_entity"`
	ParentID   *int64            `gorm:"column:parent_id;index"`
	Metadata   JSONMap           `gorm:"column:metadata;type:jsonb"`
	Generation string            `gorm:"column:generation;index"`
	IndexedBy  *int64            `gorm:"column:indexed_by"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
}

// TableName implements gorm's Tabler.
func (PgEmbeddingModel) TableName() string { return embeddingsTable }

// SQLiteEmbeddingModel is the GORM model for the SQLite embeddings table.
type SQLiteEmbeddingModel struct {
	ID         int64        `gorm:"column:id;primaryKey;autoIncrement"`
	Content    string       `gorm:"column:content"`
	Embedding  Float64Slice `gorm:"column:embedding;type:json"`
	EntityType string       `gorm:"column:entity_type;index:idx_embeddings_entity"`
	EntityID   int64        `gorm:"column:entity_id;index:idx_embeddings_entity"`
	ParentID   *int64       `gorm:"column:parent_id;index"`
	Metadata   JSONMap      `gorm:"column:metadata;type:json"`
	Generation string       `gorm:"column:generation;index"`
	IndexedBy  *int64       `gorm:"column:indexed_by"`
	CreatedAt  time.Time    `gorm:"column:created_at;autoCreateTime"`
}

// TableName implements gorm's Tabler.
func (SQLiteEmbeddingModel) TableName() string { return embeddingsTable }

func optionalID(v int64) *int64 {
	if v == 0 {
		return nil
	}
	return &v
}

func fromOptionalID(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

// pgEmbeddingMapper maps between embedding.Record and PgEmbeddingModel.
type pgEmbeddingMapper struct{}

func (pgEmbeddingMapper) ToDomain(entity PgEmbeddingModel) embedding.Record {
	return embedding.NewRecord(
		embedding.EntityType(entity.EntityType),
		entity.EntityID,
		entity.Content,
		entity.Embedding.Floats(),
	).
		WithID(entity.ID).
		WithParent(fromOptionalID(entity.ParentID)).
		WithMetadata(entity.Metadata).
		WithGeneration(entity.Generation).
		WithIndexedBy(fromOptionalID(entity.IndexedBy)).
		WithCreatedAt(entity.CreatedAt)
}

func (pgEmbeddingMapper) ToModel(domain embedding.Record) PgEmbeddingModel {
	return PgEmbeddingModel{
		ID:         domain.ID(),
		Content:    domain.Content(),
		Embedding:  database.NewPgVector(domain.Vector()),
		EntityType: string(domain.EntityType()),
		EntityID:   domain.EntityID(),
		ParentID:   optionalID(domain.ParentID()),
		Metadata:   JSONMap(domain.Metadata()),
		Generation: domain.Generation(),
		IndexedBy:  optionalID(domain.IndexedBy()),
		CreatedAt:  domain.CreatedAt(),
	}
}

// sqliteEmbeddingMapper maps between embedding.Record and SQLiteEmbeddingModel.
type sqliteEmbeddingMapper struct{}

func (sqliteEmbeddingMapper) ToDomain(entity SQLiteEmbeddingModel) embedding.Record {
	return embedding.NewRecord(
		embedding.EntityType(entity.EntityType),
		entity.EntityID,
		entity.Content,
		entity.Embedding,
	).
		WithID(entity.ID).
		WithParent(fromOptionalID(entity.ParentID)).
		WithMetadata(entity.Metadata).
		WithGeneration(entity.Generation).
		WithIndexedBy(fromOptionalID(entity.IndexedBy)).
		WithCreatedAt(entity.CreatedAt)
}

func (sqliteEmbeddingMapper) ToModel(domain embedding.Record) SQLiteEmbeddingModel {
	return SQLiteEmbeddingModel{
		ID:         domain.ID(),
		Content:    domain.Content(),
		Embedding:  Float64Slice(domain.Vector()),
		EntityType: string(domain.EntityType()),
		EntityID:   domain.EntityID(),
		ParentID:   optionalID(domain.ParentID()),
		Metadata:   JSONMap(domain.Metadata()),
		Generation: domain.Generation(),
		IndexedBy:  optionalID(domain.IndexedBy()),
		CreatedAt:  domain.CreatedAt(),
	}
}
