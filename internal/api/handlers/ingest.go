package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/cortexnotes/cortex/internal/api"
	"github.com/cortexnotes/cortex/internal/api/middleware"
	"github.com/cortexnotes/cortex/internal/domain"
	"github.com/cortexnotes/cortex/internal/extract"
	"github.com/cortexnotes/cortex/internal/service"
)

type IngestService interface {
	IngestText(ctx context.Context, scope domain.Scope, filename, text string) (*service.IngestResult, error)
	IngestPages(ctx context.Context, scope domain.Scope, filename string, sourceType domain.SourceType, pages []extract.Page, raw []byte) (*service.IngestResult, error)
	IngestImage(ctx context.Context, scope domain.Scope, filename string, image []byte) (*service.IngestResult, error)
}

type IngestHandler struct {
	svc        IngestService
	extractors map[domain.SourceType]extract.Extractor
}

func NewIngestHandler(svc IngestService) *IngestHandler {
	return &IngestHandler{
		svc: svc,
		extractors: map[domain.SourceType]extract.Extractor{
			domain.SourceTypeText: extract.TextExtractor{},
		},
	}
}

// WithExtractor registers an extractor for a source type, replacing any
// existing one. Used to plug PDF extraction in without touching the handler.
func (h *IngestHandler) WithExtractor(sourceType domain.SourceType, ex extract.Extractor) *IngestHandler {
	h.extractors[sourceType] = ex
	return h
}

type IngestTextRequest struct {
	NotebookID string `json:"notebook_id"`
	Filename   string `json:"filename"`
	Text       string `json:"text"`
}

func (h *IngestHandler) IngestText(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req IngestTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Text == "" {
		api.Error(w, http.StatusBadRequest, "text is required")
		return
	}
	if req.Filename == "" {
		req.Filename = "untitled.txt"
	}

	scope := domain.Scope{UserID: userID, NotebookID: req.NotebookID}

	result, err := h.svc.IngestText(r.Context(), scope, req.Filename, req.Text)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, result)
}

func (h *IngestHandler) IngestDocument(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	filename, data, notebookID, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	sourceType := sourceTypeForFilename(filename)
	scope := domain.Scope{UserID: userID, NotebookID: notebookID}

	if sourceType == domain.SourceTypeImage {
		result, err := h.svc.IngestImage(r.Context(), scope, filename, data)
		if err != nil {
			api.HandleError(w, err)
			return
		}
		api.Success(w, http.StatusCreated, result)
		return
	}

	extractor, found := h.extractors[sourceType]
	if !found {
		api.HandleError(w, domain.ErrUnsupportedSource)
		return
	}

	pages, err := extractor.Extract(r.Context(), data)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	result, err := h.svc.IngestPages(r.Context(), scope, filename, sourceType, pages, data)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, result)
}

func (h *IngestHandler) IngestImage(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	filename, data, notebookID, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	scope := domain.Scope{UserID: userID, NotebookID: notebookID}

	result, err := h.svc.IngestImage(r.Context(), scope, filename, data)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, result)
}

// readUpload reads the "file" part and optional "notebook_id" field from a
// multipart request. On failure it writes the error response and returns
// ok=false.
func (h *IngestHandler) readUpload(w http.ResponseWriter, r *http.Request) (filename string, data []byte, notebookID string, ok bool) {
	file, header, err := r.FormFile("file")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "file is required")
		return "", nil, "", false
	}
	defer file.Close()

	data, err = io.ReadAll(file)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "failed to read file")
		return "", nil, "", false
	}
	if len(data) == 0 {
		api.HandleError(w, domain.ErrEmptySource)
		return "", nil, "", false
	}

	return header.Filename, data, r.FormValue("notebook_id"), true
}

func sourceTypeForFilename(filename string) domain.SourceType {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return domain.SourceTypePDF
	case ".png", ".jpg", ".jpeg", ".gif":
		return domain.SourceTypeImage
	default:
		return domain.SourceTypeText
	}
}
