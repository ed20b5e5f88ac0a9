package service

import (
	"context"
	"strconv"

	"github.com/cortexnotes/cortex/internal/domain"
	"github.com/stretchr/testify/mock"
)

// MockChunkRepository is a mock implementation of ChunkRepositoryInterface
type MockChunkRepository struct {
	mock.Mock
}

func (m *MockChunkRepository) Store(ctx context.Context, chunks []*domain.Chunk) error {
	args := m.Called(ctx, chunks)
	return args.Error(0)
}

func (m *MockChunkRepository) Scan(ctx context.Context, scope domain.Scope) ([]*domain.Chunk, error) {
	args := m.Called(ctx, scope)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Chunk), args.Error(1)
}

func (m *MockChunkRepository) SearchNative(ctx context.Context, embedding []float32, scope domain.Scope, topK int, threshold float64) ([]*ScoredChunk, error) {
	args := m.Called(ctx, embedding, scope, topK, threshold)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ScoredChunk), args.Error(1)
}

func (m *MockChunkRepository) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	args := m.Called(ctx, id, embedding)
	return args.Error(0)
}

func (m *MockChunkRepository) LinkDocument(ctx context.Context, scope domain.Scope, documentID string) (int64, error) {
	args := m.Called(ctx, scope, documentID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockChunkRepository) DeleteByDocument(ctx context.Context, userID, documentID string) (int64, error) {
	args := m.Called(ctx, userID, documentID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockChunkRepository) DeleteByNotebook(ctx context.Context, userID, notebookID string) (int64, error) {
	args := m.Called(ctx, userID, notebookID)
	return args.Get(0).(int64), args.Error(1)
}

// MockDocumentRepository is a mock implementation of DocumentRepositoryInterface
type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) Create(ctx context.Context, d *domain.Document) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDocumentRepository) GetByID(ctx context.Context, userID, id string) (*domain.Document, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentRepository) ListByNotebook(ctx context.Context, userID, notebookID string) ([]*domain.Document, error) {
	args := m.Called(ctx, userID, notebookID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Document), args.Error(1)
}

func (m *MockDocumentRepository) MarkReady(ctx context.Context, id string, chunkCount int) error {
	args := m.Called(ctx, id, chunkCount)
	return args.Error(0)
}

func (m *MockDocumentRepository) MarkFailed(ctx context.Context, id string, reason string) error {
	args := m.Called(ctx, id, reason)
	return args.Error(0)
}

func (m *MockDocumentRepository) Delete(ctx context.Context, userID, id string) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

// MockNotebookRepository is a mock implementation of NotebookRepositoryInterface
type MockNotebookRepository struct {
	mock.Mock
}

func (m *MockNotebookRepository) Create(ctx context.Context, n *domain.Notebook) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *MockNotebookRepository) GetByID(ctx context.Context, userID, id string) (*domain.Notebook, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Notebook), args.Error(1)
}

func (m *MockNotebookRepository) GetByName(ctx context.Context, userID, name string) (*domain.Notebook, error) {
	args := m.Called(ctx, userID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Notebook), args.Error(1)
}

func (m *MockNotebookRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Notebook, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Notebook), args.Error(1)
}

func (m *MockNotebookRepository) Delete(ctx context.Context, userID, id string) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, u *domain.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

// MockAPIKeyRepository is a mock implementation of APIKeyRepository
type MockAPIKeyRepository struct {
	mock.Mock
}

func (m *MockAPIKeyRepository) Create(ctx context.Context, key *domain.APIKey) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockAPIKeyRepository) GetByHash(ctx context.Context, hash string) (*domain.APIKey, error) {
	args := m.Called(ctx, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.APIKey), args.Error(1)
}

func (m *MockAPIKeyRepository) ListByUser(ctx context.Context, userID string) ([]*domain.APIKey, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.APIKey), args.Error(1)
}

func (m *MockAPIKeyRepository) Revoke(ctx context.Context, userID, id string) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

// MockEmbedder is a mock implementation of EmbedderInterface
type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

// MockGenerator is a mock implementation of Generator
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

// MockCaptioner is a mock implementation of Captioner
type MockCaptioner struct {
	mock.Mock
}

func (m *MockCaptioner) Caption(ctx context.Context, image []byte) (string, error) {
	args := m.Called(ctx, image)
	return args.String(0), args.Error(1)
}

// MockObjectStorage is a mock implementation of ObjectStorage
type MockObjectStorage struct {
	mock.Mock
}

func (m *MockObjectStorage) PutObject(ctx context.Context, key, contentType string, body []byte) error {
	args := m.Called(ctx, key, contentType, body)
	return args.Error(0)
}

func (m *MockObjectStorage) DeleteObject(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockObjectStorage) GenerateDownloadURL(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

// MockRetriever is a mock implementation of RetrieverInterface
type MockRetriever struct {
	mock.Mock
}

func (m *MockRetriever) Retrieve(ctx context.Context, question string, scope domain.Scope, topK int, threshold float64) ([]*ScoredChunk, error) {
	args := m.Called(ctx, question, scope, topK, threshold)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ScoredChunk), args.Error(1)
}

// MockAnswerer is a mock implementation of AnswererInterface
type MockAnswerer struct {
	mock.Mock
}

func (m *MockAnswerer) Answer(ctx context.Context, question string, scope domain.Scope, topK int) (*QueryResult, error) {
	args := m.Called(ctx, question, scope, topK)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*QueryResult), args.Error(1)
}

// stubTxRunner runs the function against the given repositories without a
// real transaction.
type stubTxRunner struct {
	chunks    ChunkRepositoryInterface
	documents DocumentRepositoryInterface
}

func (s *stubTxRunner) WithTx(ctx context.Context, fn func(repos TxRepositories) error) error {
	return fn(s)
}

func (s *stubTxRunner) Chunks() ChunkRepositoryInterface { return s.chunks }

func (s *stubTxRunner) Documents() DocumentRepositoryInterface { return s.documents }

// stubUUIDGen returns predictable IDs.
type stubUUIDGen struct {
	n int
}

func (g *stubUUIDGen) NewString() string {
	g.n++
	return "id-" + strconv.Itoa(g.n)
}
