package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cortexnotes/cortex/internal/api"
	"github.com/cortexnotes/cortex/internal/api/middleware"
	"github.com/cortexnotes/cortex/internal/domain"
	"github.com/cortexnotes/cortex/internal/service"
)

type QueryService interface {
	Query(ctx context.Context, question string, scope domain.Scope, topK int) (*service.QueryResult, error)
}

type QueryHandler struct {
	svc QueryService
}

func NewQueryHandler(svc QueryService) *QueryHandler {
	return &QueryHandler{svc: svc}
}

type QueryRequest struct {
	Question   string `json:"question"`
	NotebookID string `json:"notebook_id"`
	DocumentID string `json:"document_id"`
	TopK       int    `json:"top_k"`
}

type ChunkMatchResponse struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id,omitempty"`
	NotebookID string  `json:"notebook_id,omitempty"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
	SourceType string  `json:"source_type,omitempty"`
	Page       string  `json:"page,omitempty"`
}

type QueryResponse struct {
	Answer              string                `json:"answer"`
	Chunks              []*ChunkMatchResponse `json:"chunks"`
	IsMultihop          bool                  `json:"is_multihop"`
	DecompositionMethod string                `json:"decomposition_method,omitempty"`
	Steps               []*service.StepTrace  `json:"steps,omitempty"`
	ProcessingTimeMs    int64                 `json:"processing_time_ms"`
}

func chunkMatchToResponse(sc *service.ScoredChunk) *ChunkMatchResponse {
	return &ChunkMatchResponse{
		ChunkID:    sc.Chunk.ID,
		DocumentID: sc.Chunk.DocumentID,
		NotebookID: sc.Chunk.NotebookID,
		Content:    sc.Chunk.Content,
		Similarity: sc.Similarity,
		SourceType: string(sc.Chunk.SourceType()),
		Page:       sc.Chunk.Page(),
	}
}

func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Question == "" {
		api.Error(w, http.StatusBadRequest, "question is required")
		return
	}

	scope := domain.Scope{
		UserID:     userID,
		NotebookID: req.NotebookID,
		DocumentID: req.DocumentID,
	}

	result, err := h.svc.Query(r.Context(), req.Question, scope, req.TopK)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	chunks := make([]*ChunkMatchResponse, len(result.Chunks))
	for i, sc := range result.Chunks {
		chunks[i] = chunkMatchToResponse(sc)
	}

	api.Success(w, http.StatusOK, QueryResponse{
		Answer:              result.Answer,
		Chunks:              chunks,
		IsMultihop:          result.IsMultihop,
		DecompositionMethod: result.DecompositionMethod,
		Steps:               result.Steps,
		ProcessingTimeMs:    result.ProcessingTimeMs,
	})
}
