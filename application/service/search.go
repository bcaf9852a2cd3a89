package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/acervolabs/acervo/domain/embedding"
	"github.com/acervolabs/acervo/domain/record"
	"github.com/acervolabs/acervo/domain/search"
)

// Search answers natural-language queries against the embedding store.
type Search struct {
	store    embedding.Store
	embedder search.Embedder
	logger   *slog.Logger
}

// NewSearch creates a Search service.
func NewSearch(store embedding.Store, embedder search.Embedder, logger *slog.Logger) *Search {
	if logger == nil {
		logger = slog.Default()
	}
	return &Search{store: store, embedder: embedder, logger: logger}
}

// Search embeds the query and returns matches ordered by descending
// similarity. The store enforces the match threshold and count.
func (s *Search) Search(ctx context.Context, req search.Request) ([]embedding.Match, error) {
	if strings.TrimSpace(req.Query()) == "" {
		return nil, ErrEmptyQuery
	}

	vector, err := s.embedder.Embed(ctx, req.Query())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingProvider, err)
	}

	options := []record.Option{
		embedding.WithQueryVector(vector),
		embedding.WithMatchThreshold(req.MatchThreshold()),
		record.WithLimit(req.MatchCount()),
	}
	if req.EntityType() != "" {
		options = append(options, embedding.WithEntityType(req.EntityType()))
	}
	if req.ParentID() != 0 {
		options = append(options, embedding.WithParentID(req.ParentID()))
	}
	if filter := req.Metadata(); len(filter) > 0 {
		options = append(options, embedding.WithMetadataFilter(filter))
	}

	matches, err := s.store.Search(ctx, options...)
	if err != nil {
		return nil, fmt.Errorf("search embeddings: %w", err)
	}

	s.logger.Debug("search completed",
		"query_length", len(req.Query()),
		"matches", len(matches),
		"threshold", req.MatchThreshold(),
	)
	return matches, nil
}
