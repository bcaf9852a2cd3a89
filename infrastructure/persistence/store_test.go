package persistence

import (
	"testing"
	"time"

	"github.com/acervolabs/acervo/domain/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float64{1, 0}, []float64{1, 0}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float64{1, 0}, []float64{-1, 0}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float64{1, 0}, []float64{0, 1}), 1e-9)

	// Scale invariance.
	assert.InDelta(t, 1.0, CosineSimilarity([]float64{1, 2, 3}, []float64{2, 4, 6}), 1e-9)

	// Degenerate inputs.
	assert.Zero(t, CosineSimilarity([]float64{0, 0}, []float64{1, 1}))
	assert.Zero(t, CosineSimilarity([]float64{1, 2}, []float64{1, 2, 3}))
	assert.Zero(t, CosineSimilarity(nil, nil))
}

func match(similarity float64) embedding.Match {
	return embedding.NewMatch(
		embedding.NewRecord(embedding.EntityTypeDocument, 1, "text", []float64{1}),
		similarity,
	)
}

func TestRankMatchesFiltersAndSorts(t *testing.T) {
	matches := []embedding.Match{match(0.5), match(0.9), match(0.69), match(0.75)}

	ranked := rankMatches(matches, 0.7, 10)
	require.Len(t, ranked, 2)
	assert.Equal(t, 0.9, ranked[0].Similarity())
	assert.Equal(t, 0.75, ranked[1].Similarity())
}

func TestRankMatchesTruncatesToLimit(t *testing.T) {
	matches := []embedding.Match{match(0.8), match(0.9), match(0.85)}

	ranked := rankMatches(matches, 0, 2)
	require.Len(t, ranked, 2)
	assert.Equal(t, 0.9, ranked[0].Similarity())
	assert.Equal(t, 0.85, ranked[1].Similarity())
}

func TestRankMatchesThresholdIsInclusive(t *testing.T) {
	ranked := rankMatches([]embedding.Match{match(0.7)}, 0.7, 5)
	assert.Len(t, ranked, 1)
}

func TestMatchesMetadata(t *testing.T) {
	metadata := map[string]any{
		"chunk_index": float64(3),
		"source":      "petition",
		"signed":      true,
	}

	assert.True(t, matchesMetadata(metadata, nil))
	assert.True(t, matchesMetadata(metadata, map[string]any{"source": "petition"}))
	// JSON decoding yields float64; int filters still match.
	assert.True(t, matchesMetadata(metadata, map[string]any{"chunk_index": 3}))
	assert.True(t, matchesMetadata(metadata, map[string]any{"signed": true, "source": "petition"}))

	assert.False(t, matchesMetadata(metadata, map[string]any{"source": "contract"}))
	assert.False(t, matchesMetadata(metadata, map[string]any{"missing": 1}))
	assert.False(t, matchesMetadata(nil, map[string]any{"source": "petition"}))
}

func TestJSONMapRoundTrip(t *testing.T) {
	m := JSONMap{"chunk_index": 2, "source": "docket"}

	val, err := m.Value()
	require.NoError(t, err)

	var scanned JSONMap
	require.NoError(t, scanned.Scan(val))
	assert.Equal(t, "docket", scanned["source"])
	assert.Equal(t, float64(2), scanned["chunk_index"])
}

func TestJSONMapNil(t *testing.T) {
	var m JSONMap
	val, err := m.Value()
	require.NoError(t, err)
	assert.Nil(t, val)

	var scanned JSONMap
	require.NoError(t, scanned.Scan(nil))
	assert.Nil(t, scanned)
}

func TestFloat64SliceRoundTrip(t *testing.T) {
	f := Float64Slice{0.25, -1, 3}

	val, err := f.Value()
	require.NoError(t, err)

	var scanned Float64Slice
	require.NoError(t, scanned.Scan(val))
	assert.Equal(t, f, scanned)

	assert.Error(t, scanned.Scan(42))
}

func TestPgMapperRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	rec := embedding.NewRecord(embedding.EntityTypeContract, 7, "clause text", []float64{0.1, 0.2}).
		WithID(11).
		WithParent(3).
		WithMetadata(map[string]any{"chunk_index": 0}).
		WithGeneration("gen-1").
		WithIndexedBy(99).
		WithCreatedAt(now)

	mapper := pgEmbeddingMapper{}
	model := mapper.ToModel(rec)

	assert.Equal(t, int64(11), model.ID)
	assert.Equal(t, "contract", model.EntityType)
	require.NotNil(t, model.ParentID)
	assert.Equal(t, int64(3), *model.ParentID)
	require.NotNil(t, model.IndexedBy)
	assert.Equal(t, int64(99), *model.IndexedBy)

	back := mapper.ToDomain(model)
	assert.Equal(t, rec.ID(), back.ID())
	assert.Equal(t, rec.Content(), back.Content())
	assert.Equal(t, rec.Vector(), back.Vector())
	assert.Equal(t, rec.EntityType(), back.EntityType())
	assert.Equal(t, rec.ParentID(), back.ParentID())
	assert.Equal(t, rec.Generation(), back.Generation())
	assert.Equal(t, rec.IndexedBy(), back.IndexedBy())
}

func TestSQLiteMapperUnsetParent(t *testing.T) {
	mapper := sqliteEmbeddingMapper{}
	rec := embedding.NewRecord(embedding.EntityTypeDocument, 1, "text", []float64{1})

	model := mapper.ToModel(rec)
	assert.Nil(t, model.ParentID)
	assert.Nil(t, model.IndexedBy)

	back := mapper.ToDomain(model)
	assert.False(t, back.HasParent())
	assert.Zero(t, back.IndexedBy())
}
