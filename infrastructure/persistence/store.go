package persistence

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sort"

	"github.com/acervolabs/acervo/domain/embedding"
	"github.com/acervolabs/acervo/internal/database"
)

// ErrDimensionMismatch indicates the database vector column dimensionality
// differs from the provider's.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// defaultMatchCount bounds a search when the caller sets no limit.
const defaultMatchCount = 10

// NewStore creates the embedding store matching the database dialect:
// pgvector on PostgreSQL, JSON vectors with in-process similarity on SQLite.
func NewStore(ctx context.Context, db database.Database, dimension, batchSize int, logger *slog.Logger) (embedding.Store, error) {
	if db.IsPostgres() {
		return NewPgvectorStore(ctx, db, dimension, batchSize, logger)
	}
	return NewSQLiteStore(ctx, db, batchSize)
}

// CosineSimilarity computes the cosine similarity between two vectors.
// Returns a value between -1 (opposite) and 1 (identical), or 0 when either
// vector has zero magnitude or the lengths differ.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, magA, magB float64
	for i := range a {
		dot += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}

	if magA == 0 || magB == 0 {
		return 0
	}

	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

// rankMatches filters candidates by threshold, sorts by similarity descending
// and truncates to limit.
func rankMatches(matches []embedding.Match, threshold float64, limit int) []embedding.Match {
	ranked := make([]embedding.Match, 0, len(matches))
	for _, m := range matches {
		if m.Similarity() >= threshold {
			ranked = append(ranked, m)
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Similarity() > ranked[j].Similarity()
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// matchesMetadata reports whether the row metadata contains every filter
// key with an equal value. Numbers compare by value, so an int filter
// matches the float64 that JSON decoding produces.
func matchesMetadata(metadata map[string]any, filter map[string]any) bool {
	for k, want := range filter {
		got, ok := metadata[k]
		if !ok || !looselyEqual(got, want) {
			return false
		}
	}
	return true
}

func looselyEqual(a, b any) bool {
	if af, aok := asFloat(a); aok {
		bf, bok := asFloat(b)
		return bok && af == bf
	}
	return a == b
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
