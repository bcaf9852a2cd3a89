package api

import (
	"log/slog"
	"net/http"

	"github.com/acervolabs/acervo/application/service"
	"github.com/acervolabs/acervo/infrastructure/api/middleware"
	v1 "github.com/acervolabs/acervo/infrastructure/api/v1"
)

// RegisterRoutes mounts the health check and the versioned API onto the
// server's router.
func RegisterRoutes(s *Server, indexer *service.Indexer, searcher *service.Search, logger *slog.Logger) {
	router := s.Router()

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	router.Mount("/api/v1/search", v1.NewSearchRouter(searcher, logger).Routes())
	router.Mount("/api/v1/index", v1.NewIndexRouter(indexer, logger).Routes())
}
