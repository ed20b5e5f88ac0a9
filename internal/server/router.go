package server

import (
	"net/http"

	"github.com/cortexnotes/cortex/internal/api"
	"github.com/cortexnotes/cortex/internal/api/handlers"
	"github.com/cortexnotes/cortex/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

type RouterConfig struct {
	AuthValidator   middleware.AuthValidator
	QueryHandler    *handlers.QueryHandler
	IngestHandler   *handlers.IngestHandler
	NotebookHandler *handlers.NotebookHandler
	AuthHandler     *handlers.AuthHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Uploads carry whole source documents, so the cap is generous.
	const maxBodyBytes int64 = 32 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.Sentry)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.AuthValidator))

		r.Post("/query", cfg.QueryHandler.Query)

		r.Route("/ingest", func(r chi.Router) {
			r.Post("/text", cfg.IngestHandler.IngestText)
			r.Post("/document", cfg.IngestHandler.IngestDocument)
			r.Post("/image", cfg.IngestHandler.IngestImage)
		})

		r.Route("/notebooks", func(r chi.Router) {
			r.Post("/", cfg.NotebookHandler.Create)
			r.Get("/", cfg.NotebookHandler.List)
			r.Get("/{id}", cfg.NotebookHandler.Get)
			r.Delete("/{id}", cfg.NotebookHandler.Delete)
			r.Get("/{id}/documents", cfg.NotebookHandler.ListDocuments)
		})

		r.Route("/documents", func(r chi.Router) {
			r.Get("/{id}", cfg.NotebookHandler.GetDocument)
			r.Get("/{id}/download", cfg.NotebookHandler.DownloadDocument)
			r.Delete("/{id}", cfg.NotebookHandler.DeleteDocument)
		})

		r.Get("/apikeys", cfg.AuthHandler.ListAPIKeys)
		r.Delete("/apikeys/{id}", cfg.AuthHandler.RevokeAPIKey)
	})

	r.Post("/users", cfg.AuthHandler.CreateUser)
	r.Post("/apikeys", cfg.AuthHandler.CreateAPIKey)

	return r
}
