package embedding

import "github.com/acervolabs/acervo/domain/record"

// Query parameter keys carried on record.Query for search operations.
const (
	paramQueryVector    = "query_vector"
	paramMatchThreshold = "match_threshold"
	paramMetadataFilter = "metadata_filter"
)

// WithEntityType filters by the "entity_type" column.
func WithEntityType(t EntityType) record.Option {
	return record.WithCondition("entity_type", string(t))
}

// WithEntityID filters by the "entity_id" column.
func WithEntityID(id int64) record.Option {
	return record.WithCondition("entity_id", id)
}

// WithEntity filters by both entity columns, identifying one source record.
func WithEntity(t EntityType, id int64) record.Option {
	return func(q record.Query) record.Query {
		q = record.WithCondition("entity_type", string(t))(q)
		return record.WithCondition("entity_id", id)(q)
	}
}

// WithParentID filters by the "parent_id" column.
func WithParentID(id int64) record.Option {
	return record.WithCondition("parent_id", id)
}

// WithGeneration filters by the "generation" column.
func WithGeneration(generation string) record.Option {
	return record.WithCondition("generation", generation)
}

// WithGenerationNot filters rows whose generation differs, the stale rows
// left behind by earlier indexing runs.
func WithGenerationNot(generation string) record.Option {
	return record.WithConditionNot("generation", generation)
}

// WithQueryVector carries the embedded query for a Search call.
func WithQueryVector(vector []float64) record.Option {
	cp := make([]float64, len(vector))
	copy(cp, vector)
	return record.WithParam(paramQueryVector, cp)
}

// WithMatchThreshold sets the minimum similarity a Search hit must reach.
func WithMatchThreshold(threshold float64) record.Option {
	return record.WithParam(paramMatchThreshold, threshold)
}

// WithMetadataFilter restricts Search hits to rows whose metadata contains
// all the given key-value pairs.
func WithMetadataFilter(filter map[string]any) record.Option {
	cp := make(map[string]any, len(filter))
	for k, v := range filter {
		cp[k] = v
	}
	return record.WithParam(paramMetadataFilter, cp)
}

// QueryVectorFrom extracts the query vector from a built query.
func QueryVectorFrom(q record.Query) ([]float64, bool) {
	v, ok := q.Param(paramQueryVector)
	if !ok {
		return nil, false
	}
	vec, ok := v.([]float64)
	return vec, ok
}

// MatchThresholdFrom extracts the match threshold from a built query.
func MatchThresholdFrom(q record.Query) (float64, bool) {
	v, ok := q.Param(paramMatchThreshold)
	if !ok {
		return 0, false
	}
	t, ok := v.(float64)
	return t, ok
}

// MetadataFilterFrom extracts the metadata filter from a built query.
func MetadataFilterFrom(q record.Query) (map[string]any, bool) {
	v, ok := q.Param(paramMetadataFilter)
	if !ok {
		return nil, false
	}
	m, ok := v.(map[string]any)
	return m, ok
}
