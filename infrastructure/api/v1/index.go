package v1

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/acervolabs/acervo/application/service"
	"github.com/acervolabs/acervo/domain/embedding"
	"github.com/acervolabs/acervo/infrastructure/api/middleware"
	"github.com/acervolabs/acervo/infrastructure/storage"
)

// IndexRouter serves the indexing endpoints.
type IndexRouter struct {
	indexer *service.Indexer
	logger  *slog.Logger
}

// NewIndexRouter creates an IndexRouter.
func NewIndexRouter(indexer *service.Indexer, logger *slog.Logger) *IndexRouter {
	if logger == nil {
		logger = slog.Default()
	}
	return &IndexRouter{indexer: indexer, logger: logger}
}

// Routes returns the indexing routes.
func (ir *IndexRouter) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/documents", ir.indexDocument)
	r.Post("/text", ir.indexText)
	r.Post("/backfill", ir.backfill)
	r.Get("/{entityType}/{entityID}", ir.status)
	r.Delete("/{entityType}/{entityID}", ir.deleteEntity)
	r.Delete("/parents/{parentID}", ir.deleteParent)
	return r
}

func (ir *IndexRouter) indexDocument(w http.ResponseWriter, r *http.Request) {
	var body IndexDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		middleware.WriteValidationError(w, r, "invalid request body")
		return
	}

	req, src, ok := ir.documentRequest(w, r, body)
	if !ok {
		return
	}

	result, err := ir.indexer.IndexDocument(r.Context(), req, src)
	if err != nil {
		middleware.WriteError(w, r, err, ir.logger)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, indexResponse(result))
}

func (ir *IndexRouter) indexText(w http.ResponseWriter, r *http.Request) {
	var body IndexTextRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		middleware.WriteValidationError(w, r, "invalid request body")
		return
	}

	entityType, err := embedding.ParseEntityType(body.EntityType)
	if err != nil {
		middleware.WriteValidationError(w, r, err.Error())
		return
	}
	if body.EntityID == 0 {
		middleware.WriteValidationError(w, r, "entity_id is required")
		return
	}

	req := service.NewIndexRequest(entityType, body.EntityID,
		service.WithParent(body.ParentID),
		service.WithIndexedBy(body.IndexedBy),
		service.WithTags(body.Metadata),
	)

	result, err := ir.indexer.IndexText(r.Context(), req, body.Text)
	if err != nil {
		middleware.WriteError(w, r, err, ir.logger)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, indexResponse(result))
}

func (ir *IndexRouter) backfill(w http.ResponseWriter, r *http.Request) {
	var body BackfillRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		middleware.WriteValidationError(w, r, "invalid request body")
		return
	}

	items := make([]service.BackfillItem, 0, len(body.Items))
	for _, item := range body.Items {
		req, src, ok := ir.documentRequest(w, r, item)
		if !ok {
			return
		}
		items = append(items, service.NewBackfillItem(req, src))
	}

	report, err := ir.indexer.Backfill(r.Context(), items)
	if err != nil {
		middleware.WriteError(w, r, err, ir.logger)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, BackfillResponse{
		Indexed: report.Indexed(),
		Skipped: report.Skipped(),
		Failed:  report.Failed(),
		Total:   report.Total(),
	})
}

func (ir *IndexRouter) status(w http.ResponseWriter, r *http.Request) {
	entityType, entityID, ok := ir.entityParams(w, r)
	if !ok {
		return
	}

	indexed, err := ir.indexer.IsIndexed(r.Context(), entityType, entityID)
	if err != nil {
		middleware.WriteError(w, r, err, ir.logger)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, IndexStatusResponse{
		EntityType: entityType.String(),
		EntityID:   entityID,
		Indexed:    indexed,
	})
}

func (ir *IndexRouter) deleteEntity(w http.ResponseWriter, r *http.Request) {
	entityType, entityID, ok := ir.entityParams(w, r)
	if !ok {
		return
	}

	if err := ir.indexer.DeleteEntity(r.Context(), entityType, entityID); err != nil {
		middleware.WriteError(w, r, err, ir.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (ir *IndexRouter) deleteParent(w http.ResponseWriter, r *http.Request) {
	parentID, err := strconv.ParseInt(chi.URLParam(r, "parentID"), 10, 64)
	if err != nil || parentID <= 0 {
		middleware.WriteValidationError(w, r, "invalid parent id")
		return
	}

	if err := ir.indexer.DeleteParent(r.Context(), parentID); err != nil {
		middleware.WriteError(w, r, err, ir.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// documentRequest validates an IndexDocumentRequest body. On failure it
// writes the error response and returns ok=false.
func (ir *IndexRouter) documentRequest(w http.ResponseWriter, r *http.Request, body IndexDocumentRequest) (service.IndexRequest, service.DocumentSource, bool) {
	entityType, err := embedding.ParseEntityType(body.EntityType)
	if err != nil {
		middleware.WriteValidationError(w, r, err.Error())
		return service.IndexRequest{}, service.DocumentSource{}, false
	}
	if body.EntityID == 0 {
		middleware.WriteValidationError(w, r, "entity_id is required")
		return service.IndexRequest{}, service.DocumentSource{}, false
	}
	provider, err := storage.ParseProvider(body.Provider)
	if err != nil {
		middleware.WriteValidationError(w, r, err.Error())
		return service.IndexRequest{}, service.DocumentSource{}, false
	}
	if body.Key == "" {
		middleware.WriteValidationError(w, r, "key is required")
		return service.IndexRequest{}, service.DocumentSource{}, false
	}

	req := service.NewIndexRequest(entityType, body.EntityID,
		service.WithParent(body.ParentID),
		service.WithIndexedBy(body.IndexedBy),
		service.WithTags(body.Metadata),
	)
	src := service.NewDocumentSource(provider, body.Key, body.MimeType)
	return req, src, true
}

func (ir *IndexRouter) entityParams(w http.ResponseWriter, r *http.Request) (embedding.EntityType, int64, bool) {
	entityType, err := embedding.ParseEntityType(chi.URLParam(r, "entityType"))
	if err != nil {
		middleware.WriteValidationError(w, r, err.Error())
		return "", 0, false
	}
	entityID, err := strconv.ParseInt(chi.URLParam(r, "entityID"), 10, 64)
	if err != nil || entityID <= 0 {
		middleware.WriteValidationError(w, r, "invalid entity id")
		return "", 0, false
	}
	return entityType, entityID, true
}

func indexResponse(result service.Result) IndexResponse {
	return IndexResponse{
		Outcome:    string(result.Outcome()),
		Chunks:     result.Chunks(),
		Generation: result.Generation(),
	}
}
