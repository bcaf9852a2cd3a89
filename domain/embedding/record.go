// Package embedding defines the persisted embedding record, its store
// contract, and the typed query options used against it.
package embedding

import (
	"time"
)

// Metadata keys written by the indexing pipeline. Caller-supplied tags are
// merged around them; the pipeline keys win on collision so chunk provenance
// can always be trusted.
const (
	MetaChunkIndex = "chunk_index"
	MetaStartChar  = "start_char"
	MetaEndChar    = "end_char"
)

// Record is the unit of persistence: one chunk of one source snapshot with
// its vector. Records are immutable once written; an update is always a
// full replacement of the entity's row set.
type Record struct {
	id         int64
	content    string
	vector     []float64
	entityType EntityType
	entityID   int64
	parentID   int64
	metadata   map[string]any
	generation string
	indexedBy  int64
	createdAt  time.Time
}

// NewRecord creates a Record for the given entity with its chunk content and
// vector. The vector and metadata are defensively copied.
func NewRecord(entityType EntityType, entityID int64, content string, vector []float64) Record {
	vec := make([]float64, len(vector))
	copy(vec, vector)
	return Record{
		content:    content,
		vector:     vec,
		entityType: entityType,
		entityID:   entityID,
	}
}

// WithID returns a copy with the store-assigned identifier set.
func (r Record) WithID(id int64) Record {
	r.id = id
	return r
}

// WithParent returns a copy owned by the given parent record.
func (r Record) WithParent(parentID int64) Record {
	r.parentID = parentID
	return r
}

// WithMetadata returns a copy carrying the given metadata map.
func (r Record) WithMetadata(metadata map[string]any) Record {
	if metadata == nil {
		r.metadata = nil
		return r
	}
	cp := make(map[string]any, len(metadata))
	for k, v := range metadata {
		cp[k] = v
	}
	r.metadata = cp
	return r
}

// WithGeneration returns a copy tagged with an indexing-run generation.
func (r Record) WithGeneration(generation string) Record {
	r.generation = generation
	return r
}

// WithIndexedBy returns a copy carrying the indexing user's identifier.
func (r Record) WithIndexedBy(userID int64) Record {
	r.indexedBy = userID
	return r
}

// WithCreatedAt returns a copy with the creation timestamp set.
func (r Record) WithCreatedAt(t time.Time) Record {
	r.createdAt = t
	return r
}

// ID returns the store-assigned identifier (0 before the row is written).
func (r Record) ID() int64 { return r.id }

// Content returns the chunk text.
func (r Record) Content() string { return r.content }

// Vector returns a defensive copy of the embedding vector.
func (r Record) Vector() []float64 {
	cp := make([]float64, len(r.vector))
	copy(cp, r.vector)
	return cp
}

// Dimension returns the vector length.
func (r Record) Dimension() int { return len(r.vector) }

// EntityType returns the source record type discriminator.
func (r Record) EntityType() EntityType { return r.entityType }

// EntityID returns the source record identifier within its type.
func (r Record) EntityID() int64 { return r.entityID }

// ParentID returns the coarser-grained owner identifier, or 0 when unowned.
func (r Record) ParentID() int64 { return r.parentID }

// HasParent reports whether the record belongs to a parent.
func (r Record) HasParent() bool { return r.parentID != 0 }

// Metadata returns a defensive copy of the metadata map.
func (r Record) Metadata() map[string]any {
	if r.metadata == nil {
		return nil
	}
	cp := make(map[string]any, len(r.metadata))
	for k, v := range r.metadata {
		cp[k] = v
	}
	return cp
}

// Generation returns the indexing-run generation tag.
func (r Record) Generation() string { return r.generation }

// IndexedBy returns the indexing user's identifier, or 0 when unknown.
func (r Record) IndexedBy() int64 { return r.indexedBy }

// CreatedAt returns the creation timestamp.
func (r Record) CreatedAt() time.Time { return r.createdAt }

// Match is a search hit: a stored record with its similarity to the query.
type Match struct {
	record     Record
	similarity float64
}

// NewMatch creates a Match.
func NewMatch(record Record, similarity float64) Match {
	return Match{record: record, similarity: similarity}
}

// Record returns the matched record.
func (m Match) Record() Record { return m.record }

// Similarity returns the cosine similarity to the query vector.
func (m Match) Similarity() float64 { return m.similarity }
