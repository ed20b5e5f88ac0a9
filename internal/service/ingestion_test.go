package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/cortexnotes/cortex/internal/chunker"
	"github.com/cortexnotes/cortex/internal/domain"
	"github.com/cortexnotes/cortex/internal/extract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newIngestionService(chunkRepo *MockChunkRepository, docRepo *MockDocumentRepository, embedder *MockEmbedder, captioner Captioner, storage ObjectStorage) *IngestionService {
	tx := &stubTxRunner{chunks: chunkRepo, documents: docRepo}
	return NewIngestionService(tx, docRepo, chunkRepo, embedder, captioner, storage, chunker.New(chunker.DefaultMaxTokens)).
		WithUUIDGen(&stubUUIDGen{})
}

// texturedPNG produces an image that passes the ingestion gate: large enough
// and with visible luminance variance.
func texturedPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 120, 120))
	for y := 0; y < 120; y++ {
		for x := 0; x < 120; x++ {
			v := uint8((x*7 + y*13) % 256)
			img.Set(x, y, color.RGBA{R: v, G: 255 - v, B: v / 2, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestIngestText_StoresEmbeddedChunks(t *testing.T) {
	chunkRepo := new(MockChunkRepository)
	docRepo := new(MockDocumentRepository)
	embedder := new(MockEmbedder)
	scope := domain.Scope{UserID: "user-1", NotebookID: "nb-1"}
	text := "Cats are mammals. Dogs are mammals too. Birds are not mammals."

	docRepo.On("Create", mock.Anything, mock.MatchedBy(func(d *domain.Document) bool {
		return d.UserID == "user-1" && d.NotebookID == "nb-1" &&
			d.Status == domain.DocumentStatusProcessing && d.SourceType == domain.SourceTypeText
	})).Return(nil)
	embedder.On("EmbedBatch", mock.Anything, mock.Anything).Return([][]float32{{0.1, 0.2}}, nil)
	chunkRepo.On("Store", mock.Anything, mock.MatchedBy(func(chunks []*domain.Chunk) bool {
		return len(chunks) == 1 && chunks[0].Embedding != nil &&
			chunks[0].Metadata[domain.MetaSourceType] == string(domain.SourceTypeText) &&
			chunks[0].Page() == ""
	})).Return(nil)
	docRepo.On("MarkReady", mock.Anything, mock.Anything, 1).Return(nil)

	s := newIngestionService(chunkRepo, docRepo, embedder, nil, nil)
	result, err := s.IngestText(context.Background(), scope, "notes.txt", text)

	require.NoError(t, err)
	assert.Equal(t, 1, result.ChunkCount)
	assert.Zero(t, result.SkippedChunks)
	chunkRepo.AssertExpectations(t)
	docRepo.AssertExpectations(t)
}

func TestIngestText_EmptySourceRejected(t *testing.T) {
	s := newIngestionService(new(MockChunkRepository), new(MockDocumentRepository), new(MockEmbedder), nil, nil)

	_, err := s.IngestText(context.Background(), domain.Scope{UserID: "user-1"}, "empty.txt", "   \n  ")

	assert.ErrorIs(t, err, domain.ErrEmptySource)
}

func TestIngestText_MissingScope(t *testing.T) {
	s := newIngestionService(new(MockChunkRepository), new(MockDocumentRepository), new(MockEmbedder), nil, nil)

	_, err := s.IngestText(context.Background(), domain.Scope{}, "notes.txt", "some text")

	assert.ErrorIs(t, err, domain.ErrMissingScope)
}

func TestIngestText_BatchFailureRetriesPerChunk(t *testing.T) {
	chunkRepo := new(MockChunkRepository)
	docRepo := new(MockDocumentRepository)
	embedder := new(MockEmbedder)
	scope := domain.Scope{UserID: "user-1"}
	text := "First sentence about one topic. Second sentence about another topic."

	docRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	embedder.On("EmbedBatch", mock.Anything, mock.Anything).Return(nil, errors.New("tier outage"))
	embedder.On("Embed", mock.Anything, mock.Anything).Return([]float32{0.5}, nil)
	chunkRepo.On("Store", mock.Anything, mock.Anything).Return(nil)
	docRepo.On("MarkReady", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	s := newIngestionService(chunkRepo, docRepo, embedder, nil, nil)
	result, err := s.IngestText(context.Background(), scope, "notes.txt", text)

	require.NoError(t, err)
	assert.Equal(t, 1, result.ChunkCount)
	assert.Zero(t, result.SkippedChunks)
}

func TestIngestPages_MarksFailedOnStoreError(t *testing.T) {
	chunkRepo := new(MockChunkRepository)
	docRepo := new(MockDocumentRepository)
	embedder := new(MockEmbedder)
	scope := domain.Scope{UserID: "user-1"}

	docRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	embedder.On("EmbedBatch", mock.Anything, mock.Anything).Return([][]float32{{0.1}}, nil)
	chunkRepo.On("Store", mock.Anything, mock.Anything).Return(errors.New("insert failed"))
	docRepo.On("MarkFailed", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	s := newIngestionService(chunkRepo, docRepo, embedder, nil, nil)
	pages := []extract.Page{{Number: 0, Text: "some page text"}}
	_, err := s.IngestPages(context.Background(), scope, "doc.pdf", domain.SourceTypePDF, pages, nil)

	assert.Error(t, err)
	docRepo.AssertCalled(t, "MarkFailed", mock.Anything, mock.Anything, mock.Anything)
}

func TestIngestPages_SkipsUnusableImages(t *testing.T) {
	chunkRepo := new(MockChunkRepository)
	docRepo := new(MockDocumentRepository)
	embedder := new(MockEmbedder)
	captioner := new(MockCaptioner)
	scope := domain.Scope{UserID: "user-1"}

	docRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	embedder.On("EmbedBatch", mock.Anything, mock.Anything).Return([][]float32{{0.1}}, nil)
	chunkRepo.On("Store", mock.Anything, mock.Anything).Return(nil)
	docRepo.On("MarkReady", mock.Anything, mock.Anything, 1).Return(nil)

	s := newIngestionService(chunkRepo, docRepo, embedder, captioner, nil)
	pages := []extract.Page{{Number: 0, Text: "page text", Images: [][]byte{[]byte("not an image")}}}
	result, err := s.IngestPages(context.Background(), scope, "doc.pdf", domain.SourceTypePDF, pages, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, result.ChunkCount)
	assert.Equal(t, 1, result.SkippedImages)
	captioner.AssertNotCalled(t, "Caption", mock.Anything, mock.Anything)
}

func TestIngestPages_CaptionsEmbeddedImages(t *testing.T) {
	chunkRepo := new(MockChunkRepository)
	docRepo := new(MockDocumentRepository)
	embedder := new(MockEmbedder)
	captioner := new(MockCaptioner)
	scope := domain.Scope{UserID: "user-1"}
	img := texturedPNG(t)

	docRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	captioner.On("Caption", mock.Anything, img).Return("a colorful gradient", nil)
	embedder.On("EmbedBatch", mock.Anything, mock.Anything).Return([][]float32{{0.1}, {0.2}}, nil)
	chunkRepo.On("Store", mock.Anything, mock.MatchedBy(func(chunks []*domain.Chunk) bool {
		if len(chunks) != 2 {
			return false
		}
		caption := chunks[1]
		return caption.Content == "a colorful gradient" &&
			caption.Metadata[domain.MetaSourceType] == string(domain.SourceTypeImage)
	})).Return(nil)
	docRepo.On("MarkReady", mock.Anything, mock.Anything, 2).Return(nil)

	s := newIngestionService(chunkRepo, docRepo, embedder, captioner, nil)
	pages := []extract.Page{{Number: 0, Text: "page text", Images: [][]byte{img}}}
	result, err := s.IngestPages(context.Background(), scope, "doc.pdf", domain.SourceTypePDF, pages, nil)

	require.NoError(t, err)
	assert.Equal(t, 2, result.ChunkCount)
	assert.Zero(t, result.SkippedImages)
}

func TestIngestImage_RejectsWithoutCaptioner(t *testing.T) {
	s := newIngestionService(new(MockChunkRepository), new(MockDocumentRepository), new(MockEmbedder), nil, nil)

	_, err := s.IngestImage(context.Background(), domain.Scope{UserID: "user-1"}, "figure.png", texturedPNG(t))

	assert.ErrorIs(t, err, domain.ErrImageRejected)
}

func TestIngestImage_StoresCaptionChunk(t *testing.T) {
	chunkRepo := new(MockChunkRepository)
	docRepo := new(MockDocumentRepository)
	embedder := new(MockEmbedder)
	captioner := new(MockCaptioner)
	storage := new(MockObjectStorage)
	scope := domain.Scope{UserID: "user-1", NotebookID: "nb-1"}
	img := texturedPNG(t)

	captioner.On("Caption", mock.Anything, img).Return("a colorful gradient", nil)
	storage.On("PutObject", mock.Anything, mock.Anything, mock.Anything, img).Return(nil)
	docRepo.On("Create", mock.Anything, mock.MatchedBy(func(d *domain.Document) bool {
		return d.SourceType == domain.SourceTypeImage && d.StorageKey != ""
	})).Return(nil)
	embedder.On("EmbedBatch", mock.Anything, []string{"a colorful gradient"}).Return([][]float32{{0.3}}, nil)
	chunkRepo.On("Store", mock.Anything, mock.MatchedBy(func(chunks []*domain.Chunk) bool {
		return len(chunks) == 1 && chunks[0].Metadata[domain.MetaAnalyzer] == "vision"
	})).Return(nil)
	docRepo.On("MarkReady", mock.Anything, mock.Anything, 1).Return(nil)

	s := newIngestionService(chunkRepo, docRepo, embedder, captioner, storage)
	result, err := s.IngestImage(context.Background(), scope, "figure.png", img)

	require.NoError(t, err)
	assert.Equal(t, 1, result.ChunkCount)
	chunkRepo.AssertExpectations(t)
}

func TestLinkPendingChunks(t *testing.T) {
	chunkRepo := new(MockChunkRepository)
	scope := domain.Scope{UserID: "user-1", NotebookID: "nb-1"}

	chunkRepo.On("LinkDocument", mock.Anything, scope, "doc-1").Return(int64(3), nil)

	s := newIngestionService(chunkRepo, new(MockDocumentRepository), new(MockEmbedder), nil, nil)
	linked, err := s.LinkPendingChunks(context.Background(), scope, "doc-1")

	require.NoError(t, err)
	assert.Equal(t, int64(3), linked)
}
