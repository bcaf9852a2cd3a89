package v1

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/acervolabs/acervo/application/service"
	"github.com/acervolabs/acervo/domain/embedding"
	"github.com/acervolabs/acervo/domain/search"
	"github.com/acervolabs/acervo/infrastructure/api/middleware"
)

// SearchRouter serves the search endpoint.
type SearchRouter struct {
	searcher *service.Search
	logger   *slog.Logger
}

// NewSearchRouter creates a SearchRouter.
func NewSearchRouter(searcher *service.Search, logger *slog.Logger) *SearchRouter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchRouter{searcher: searcher, logger: logger}
}

// Routes returns the search routes.
func (sr *SearchRouter) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", sr.search)
	return r
}

func (sr *SearchRouter) search(w http.ResponseWriter, r *http.Request) {
	var body SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		middleware.WriteValidationError(w, r, "invalid request body")
		return
	}

	opts := make([]search.RequestOption, 0, 5)
	if body.MatchThreshold != nil {
		opts = append(opts, search.WithMatchThreshold(*body.MatchThreshold))
	}
	if body.MatchCount != nil {
		opts = append(opts, search.WithMatchCount(*body.MatchCount))
	}
	if body.EntityType != "" {
		entityType, err := embedding.ParseEntityType(body.EntityType)
		if err != nil {
			middleware.WriteValidationError(w, r, err.Error())
			return
		}
		opts = append(opts, search.WithEntityType(entityType))
	}
	if body.ParentID != 0 {
		opts = append(opts, search.WithParentID(body.ParentID))
	}
	if len(body.Metadata) > 0 {
		opts = append(opts, search.WithMetadata(body.Metadata))
	}

	matches, err := sr.searcher.Search(r.Context(), search.NewRequest(body.Query, opts...))
	if err != nil {
		middleware.WriteError(w, r, err, sr.logger)
		return
	}

	resp := SearchResponse{Matches: make([]SearchMatch, len(matches))}
	for i, m := range matches {
		rec := m.Record()
		resp.Matches[i] = SearchMatch{
			ID:         rec.ID(),
			EntityType: rec.EntityType().String(),
			EntityID:   rec.EntityID(),
			ParentID:   rec.ParentID(),
			Content:    rec.Content(),
			Metadata:   rec.Metadata(),
			Similarity: m.Similarity(),
		}
	}

	middleware.WriteJSON(w, http.StatusOK, resp)
}
