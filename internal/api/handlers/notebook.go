package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cortexnotes/cortex/internal/api"
	"github.com/cortexnotes/cortex/internal/api/middleware"
	"github.com/cortexnotes/cortex/internal/domain"
	"github.com/go-chi/chi/v5"
)

type NotebookService interface {
	CreateNotebook(ctx context.Context, userID, name string) (*domain.Notebook, error)
	GetNotebook(ctx context.Context, userID, id string) (*domain.Notebook, error)
	ListNotebooks(ctx context.Context, userID string) ([]*domain.Notebook, error)
	DeleteNotebook(ctx context.Context, userID, id string) error
	GetDocument(ctx context.Context, userID, id string) (*domain.Document, error)
	GetDocumentDownloadURL(ctx context.Context, userID, id string) (string, error)
	ListDocuments(ctx context.Context, userID, notebookID string) ([]*domain.Document, error)
	DeleteDocument(ctx context.Context, userID, id string) error
}

type NotebookHandler struct {
	svc NotebookService
}

func NewNotebookHandler(svc NotebookService) *NotebookHandler {
	return &NotebookHandler{svc: svc}
}

type CreateNotebookRequest struct {
	Name string `json:"name"`
}

type NotebookResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type DocumentResponse struct {
	ID         string `json:"id"`
	NotebookID string `json:"notebook_id,omitempty"`
	Filename   string `json:"filename"`
	SourceType string `json:"source_type"`
	Status     string `json:"status"`
	ChunkCount int    `json:"chunk_count"`
	Error      string `json:"error,omitempty"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

func notebookToResponse(n *domain.Notebook) *NotebookResponse {
	return &NotebookResponse{
		ID:        n.ID,
		Name:      n.Name,
		CreatedAt: n.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt: n.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func documentToResponse(d *domain.Document) *DocumentResponse {
	return &DocumentResponse{
		ID:         d.ID,
		NotebookID: d.NotebookID,
		Filename:   d.Filename,
		SourceType: string(d.SourceType),
		Status:     string(d.Status),
		ChunkCount: d.ChunkCount,
		Error:      d.Error,
		CreatedAt:  d.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:  d.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func (h *NotebookHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateNotebookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" {
		api.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	notebook, err := h.svc.CreateNotebook(r.Context(), userID, req.Name)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, notebookToResponse(notebook))
}

func (h *NotebookHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	notebook, err := h.svc.GetNotebook(r.Context(), userID, id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, notebookToResponse(notebook))
}

func (h *NotebookHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	notebooks, err := h.svc.ListNotebooks(r.Context(), userID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*NotebookResponse, len(notebooks))
	for i, n := range notebooks {
		responses[i] = notebookToResponse(n)
	}

	api.Success(w, http.StatusOK, responses)
}

func (h *NotebookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.svc.DeleteNotebook(r.Context(), userID, id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func (h *NotebookHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	notebookID := chi.URLParam(r, "id")
	if notebookID == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	documents, err := h.svc.ListDocuments(r.Context(), userID, notebookID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*DocumentResponse, len(documents))
	for i, d := range documents {
		responses[i] = documentToResponse(d)
	}

	api.Success(w, http.StatusOK, responses)
}

func (h *NotebookHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	document, err := h.svc.GetDocument(r.Context(), userID, id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, documentToResponse(document))
}

// DownloadDocument returns a presigned URL for the document's retained
// original. The client follows the URL directly against object storage.
func (h *NotebookHandler) DownloadDocument(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	url, err := h.svc.GetDocumentDownloadURL(r.Context(), userID, id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"id": id, "url": url})
}

func (h *NotebookHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.svc.DeleteDocument(r.Context(), userID, id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}
