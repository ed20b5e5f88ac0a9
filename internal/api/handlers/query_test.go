package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cortexnotes/cortex/internal/api/middleware"
	"github.com/cortexnotes/cortex/internal/domain"
	"github.com/cortexnotes/cortex/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockQueryService struct {
	mock.Mock
}

func (m *MockQueryService) Query(ctx context.Context, question string, scope domain.Scope, topK int) (*service.QueryResult, error) {
	args := m.Called(ctx, question, scope, topK)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.QueryResult), args.Error(1)
}

func requestWithUserID(method, url string, body []byte) *http.Request {
	req := httptest.NewRequest(method, url, bytes.NewReader(body))
	ctx := context.WithValue(req.Context(), middleware.UserIDKey, "user-456")
	return req.WithContext(ctx)
}

func newTestScoredChunk() *service.ScoredChunk {
	return &service.ScoredChunk{
		Chunk: &domain.Chunk{
			ID:         "chunk-1",
			UserID:     "user-456",
			NotebookID: "nb-1",
			DocumentID: "doc-1",
			Content:    "Grommets are installed with a flange press.",
			Tokens:     8,
			Metadata: map[string]string{
				domain.MetaSourceType: "pdf",
				domain.MetaPage:       "3",
			},
			CreatedAt: time.Now().UTC(),
		},
		Similarity: 0.87,
	}
}

func TestChunkMatchToResponse_ConvertsMetadataFields(t *testing.T) {
	sc := newTestScoredChunk()
	sc.Chunk.Metadata[domain.MetaSourceType] = string(domain.SourceTypeImage)

	resp := chunkMatchToResponse(sc)

	assert.Equal(t, "chunk-1", resp.ChunkID)
	assert.Equal(t, "image", resp.SourceType)
	assert.Equal(t, "3", resp.Page)
	assert.InDelta(t, 0.87, resp.Similarity, 1e-9)
}

func TestQueryHandler_Success(t *testing.T) {
	mockSvc := new(MockQueryService)
	handler := NewQueryHandler(mockSvc)

	expected := &service.QueryResult{
		Answer:           "Use a flange press.",
		Chunks:           []*service.ScoredChunk{newTestScoredChunk()},
		ProcessingTimeMs: 12,
	}
	mockSvc.On("Query", mock.Anything, "How are grommets installed?", domain.Scope{
		UserID:     "user-456",
		NotebookID: "nb-1",
	}, 3).Return(expected, nil)

	body := `{"question":"How are grommets installed?","notebook_id":"nb-1","top_k":3}`
	req := requestWithUserID(http.MethodPost, "/query", []byte(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	handler.Query(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "Use a flange press.", data["answer"])
	chunks := data["chunks"].([]interface{})
	require.Len(t, chunks, 1)
	first := chunks[0].(map[string]interface{})
	assert.Equal(t, "chunk-1", first["chunk_id"])
	assert.Equal(t, "pdf", first["source_type"])
	assert.Equal(t, "3", first["page"])
	assert.InDelta(t, 0.87, first["similarity"].(float64), 1e-9)
	mockSvc.AssertExpectations(t)
}

func TestQueryHandler_MultihopResponseCarriesSteps(t *testing.T) {
	mockSvc := new(MockQueryService)
	handler := NewQueryHandler(mockSvc)

	expected := &service.QueryResult{
		Answer:              "Combined answer.",
		Chunks:              []*service.ScoredChunk{},
		IsMultihop:          true,
		DecompositionMethod: service.DecompositionHeuristic,
		Steps: []*service.StepTrace{
			{Step: 1, SubQuestion: "What is X?", Answer: "X is a thing.", ChunksFound: 2},
			{Step: 2, SubQuestion: "How does X work?", Answer: "Via Y.", ChunksFound: 1},
		},
		ProcessingTimeMs: 40,
	}
	mockSvc.On("Query", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(expected, nil)

	body := `{"question":"What is X and how does it work?"}`
	req := requestWithUserID(http.MethodPost, "/query", []byte(body))
	w := httptest.NewRecorder()

	handler.Query(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, true, data["is_multihop"])
	assert.Equal(t, "heuristic", data["decomposition_method"])
	assert.Len(t, data["steps"].([]interface{}), 2)
	mockSvc.AssertExpectations(t)
}

func TestQueryHandler_Unauthorized(t *testing.T) {
	mockSvc := new(MockQueryService)
	handler := NewQueryHandler(mockSvc)

	body := `{"question":"anything"}`
	req := httptest.NewRequest(http.MethodPost, "/query", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()

	handler.Query(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestQueryHandler_InvalidJSON(t *testing.T) {
	mockSvc := new(MockQueryService)
	handler := NewQueryHandler(mockSvc)

	req := requestWithUserID(http.MethodPost, "/query", []byte(`{invalid`))
	w := httptest.NewRecorder()

	handler.Query(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request body")
}

func TestQueryHandler_MissingQuestion(t *testing.T) {
	mockSvc := new(MockQueryService)
	handler := NewQueryHandler(mockSvc)

	req := requestWithUserID(http.MethodPost, "/query", []byte(`{"top_k":5}`))
	w := httptest.NewRecorder()

	handler.Query(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "question is required")
}

func TestQueryHandler_ServiceError(t *testing.T) {
	mockSvc := new(MockQueryService)
	handler := NewQueryHandler(mockSvc)

	mockSvc.On("Query", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, domain.ErrMissingScope)

	req := requestWithUserID(http.MethodPost, "/query", []byte(`{"question":"q"}`))
	w := httptest.NewRecorder()

	handler.Query(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockSvc.AssertExpectations(t)
}
