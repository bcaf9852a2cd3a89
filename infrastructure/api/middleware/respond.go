package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/acervolabs/acervo/application/service"
	"github.com/acervolabs/acervo/infrastructure/storage"
)

// APIError is an error response body.
type APIError struct {
	Status string `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail,omitempty"`
	ID     string `json:"id,omitempty"`
}

// APIErrorResponse wraps one or more errors.
type APIErrorResponse struct {
	Errors []APIError `json:"errors"`
}

// WriteError maps an error to an HTTP status and writes the error body.
func WriteError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	status := http.StatusInternalServerError
	title := "Internal Server Error"

	switch {
	case errors.Is(err, service.ErrEmptyQuery):
		status = http.StatusBadRequest
		title = "Validation Error"
	case errors.Is(err, storage.ErrUnknownProvider):
		status = http.StatusBadRequest
		title = "Validation Error"
	case errors.Is(err, storage.ErrObjectNotFound):
		status = http.StatusNotFound
		title = "Not Found"
	case errors.Is(err, storage.ErrNotConfigured):
		status = http.StatusBadRequest
		title = "Storage Not Configured"
	case errors.Is(err, service.ErrDownload):
		status = http.StatusBadGateway
		title = "Download Failed"
	case errors.Is(err, service.ErrEmbeddingProvider):
		status = http.StatusBadGateway
		title = "Embedding Provider Failed"
	case errors.Is(err, service.ErrExtraction):
		status = http.StatusUnprocessableEntity
		title = "Extraction Failed"
	}

	requestID := chimiddleware.GetReqID(r.Context())

	if logger != nil {
		logger.Error("request error",
			"request_id", requestID,
			"status", status,
			"error", err.Error(),
			"path", r.URL.Path,
		)
	}

	WriteJSON(w, status, APIErrorResponse{
		Errors: []APIError{{
			Status: http.StatusText(status),
			Title:  title,
			Detail: err.Error(),
			ID:     requestID,
		}},
	})
}

// WriteValidationError writes a 400 with the given detail.
func WriteValidationError(w http.ResponseWriter, r *http.Request, detail string) {
	WriteJSON(w, http.StatusBadRequest, APIErrorResponse{
		Errors: []APIError{{
			Status: http.StatusText(http.StatusBadRequest),
			Title:  "Validation Error",
			Detail: detail,
			ID:     chimiddleware.GetReqID(r.Context()),
		}},
	})
}

// WriteJSON writes a JSON response.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
