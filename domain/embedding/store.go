package embedding

import (
	"context"

	"github.com/acervolabs/acervo/domain/record"
)

// Store defines persistence operations for embedding records.
//
// SaveAll writes in fixed-size batches within one transaction; a failing
// batch rolls back the whole call. Search requires a query vector passed via
// WithQueryVector; the store enforces the match threshold (callers do not
// re-filter by similarity).
type Store interface {
	// SaveAll persists records in insertion order, assigning row IDs.
	SaveAll(ctx context.Context, records []Record) error

	// DeleteBy removes records matching the given options.
	DeleteBy(ctx context.Context, options ...record.Option) error

	// Count returns the number of records matching the given options.
	Count(ctx context.Context, options ...record.Option) (int64, error)

	// Search performs nearest-neighbor search, returning matches ordered by
	// descending similarity and truncated to the match count.
	Search(ctx context.Context, options ...record.Option) ([]Match, error)
}
