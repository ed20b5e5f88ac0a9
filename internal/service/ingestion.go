package service

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/cortexnotes/cortex/internal/chunker"
	"github.com/cortexnotes/cortex/internal/domain"
	"github.com/cortexnotes/cortex/internal/extract"
	"github.com/cortexnotes/cortex/internal/telemetry"
	"github.com/cortexnotes/cortex/internal/token"
)

// DocumentRepositoryInterface defines the repository interface for document persistence
type DocumentRepositoryInterface interface {
	Create(ctx context.Context, d *domain.Document) error
	GetByID(ctx context.Context, userID, id string) (*domain.Document, error)
	ListByNotebook(ctx context.Context, userID, notebookID string) ([]*domain.Document, error)
	MarkReady(ctx context.Context, id string, chunkCount int) error
	MarkFailed(ctx context.Context, id string, reason string) error
	Delete(ctx context.Context, userID, id string) error
}

// Captioner defines the vision collaborator that turns an image into a
// describable caption. It may be unavailable.
type Captioner interface {
	Caption(ctx context.Context, image []byte) (string, error)
}

// ObjectStorage retains original document bytes in object storage.
type ObjectStorage interface {
	PutObject(ctx context.Context, key, contentType string, body []byte) error
	DeleteObject(ctx context.Context, key string) error
	GenerateDownloadURL(ctx context.Context, key string) (string, error)
}

// IngestResult reports what one ingestion call produced.
type IngestResult struct {
	DocumentID    string `json:"document_id"`
	ChunkCount    int    `json:"chunk_count"`
	SkippedChunks int    `json:"skipped_chunks"`
	SkippedImages int    `json:"skipped_images"`
}

// IngestionService turns source material into embedded chunks: extract,
// chunk, embed, store. A failed chunk is skipped, never fatal to the batch.
type IngestionService struct {
	txRunner  TxRunner
	docRepo   DocumentRepositoryInterface
	chunkRepo ChunkRepositoryInterface
	embedder  EmbedderInterface
	captioner Captioner
	storage   ObjectStorage
	chunker   *chunker.Chunker
	uuidGen   UUIDGenerator
}

// NewIngestionService creates a new IngestionService instance. The captioner
// and storage are optional; pass nil to disable image analysis and original
// retention respectively.
func NewIngestionService(
	txRunner TxRunner,
	docRepo DocumentRepositoryInterface,
	chunkRepo ChunkRepositoryInterface,
	embedder EmbedderInterface,
	captioner Captioner,
	storage ObjectStorage,
	ck *chunker.Chunker,
) *IngestionService {
	return &IngestionService{
		txRunner:  txRunner,
		docRepo:   docRepo,
		chunkRepo: chunkRepo,
		embedder:  embedder,
		captioner: captioner,
		storage:   storage,
		chunker:   ck,
		uuidGen:   &DefaultUUIDGenerator{},
	}
}

// WithUUIDGen overrides the UUID generator (for testing).
func (s *IngestionService) WithUUIDGen(gen UUIDGenerator) *IngestionService {
	s.uuidGen = gen
	return s
}

// IngestText ingests plain prose into the scope as one document.
func (s *IngestionService) IngestText(ctx context.Context, scope domain.Scope, filename, text string) (*IngestResult, error) {
	pages, err := extract.TextExtractor{}.Extract(ctx, []byte(text))
	if err != nil {
		return nil, err
	}
	return s.IngestPages(ctx, scope, filename, domain.SourceTypeText, pages, []byte(text))
}

// IngestPages ingests extracted pages (text plus any embedded images) as one
// document. The original bytes are retained in object storage when a storage
// client is configured and raw is non-nil.
func (s *IngestionService) IngestPages(ctx context.Context, scope domain.Scope, filename string, sourceType domain.SourceType, pages []extract.Page, raw []byte) (*IngestResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestionService.IngestPages", telemetry.SpanAttributes{
		UserID:     scope.UserID,
		NotebookID: scope.NotebookID,
		Operation:  "ingest",
	})
	defer span.End()

	if err := scope.Validate(); err != nil {
		return nil, err
	}

	doc := &domain.Document{
		ID:         s.uuidGen.NewString(),
		UserID:     scope.UserID,
		NotebookID: scope.NotebookID,
		Filename:   filename,
		SourceType: sourceType,
		Status:     domain.DocumentStatusProcessing,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}

	if s.storage != nil && raw != nil {
		key := fmt.Sprintf("documents/%s/%s/%s", scope.UserID, doc.ID, filename)
		if err := s.storage.PutObject(ctx, key, contentTypeFor(sourceType), raw); err != nil {
			log.Printf("ingestion: retaining original for document %s failed: %v", doc.ID, err)
		} else {
			doc.StorageKey = key
		}
	}

	if err := s.docRepo.Create(ctx, doc); err != nil {
		return nil, err
	}

	result, err := s.ingestChunks(ctx, scope, doc, pages)
	if err != nil {
		if markErr := s.docRepo.MarkFailed(ctx, doc.ID, err.Error()); markErr != nil {
			log.Printf("ingestion: marking document %s failed errored: %v", doc.ID, markErr)
		}
		return nil, err
	}
	return result, nil
}

// IngestImage ingests a standalone image: gate, caption, and store the
// caption as a single chunk.
func (s *IngestionService) IngestImage(ctx context.Context, scope domain.Scope, filename string, image []byte) (*IngestResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestionService.IngestImage", telemetry.SpanAttributes{
		UserID:     scope.UserID,
		NotebookID: scope.NotebookID,
		Operation:  "ingest_image",
	})
	defer span.End()

	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if s.captioner == nil {
		return nil, domain.ErrImageRejected
	}
	if !extract.ValidImage(image) {
		return nil, domain.ErrImageRejected
	}

	caption, err := s.captioner.Caption(ctx, image)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "image analysis failed", err)
	}

	doc := &domain.Document{
		ID:         s.uuidGen.NewString(),
		UserID:     scope.UserID,
		NotebookID: scope.NotebookID,
		Filename:   filename,
		SourceType: domain.SourceTypeImage,
		Status:     domain.DocumentStatusProcessing,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}

	if s.storage != nil {
		key := fmt.Sprintf("documents/%s/%s/%s", scope.UserID, doc.ID, filename)
		if err := s.storage.PutObject(ctx, key, "application/octet-stream", image); err != nil {
			log.Printf("ingestion: retaining original for document %s failed: %v", doc.ID, err)
		} else {
			doc.StorageKey = key
		}
	}

	if err := s.docRepo.Create(ctx, doc); err != nil {
		return nil, err
	}

	chunk := s.captionChunk(scope, doc.ID, filename, caption, 0)
	embeddings, skipped := s.embedAll(ctx, []string{chunk.Content})
	if skipped > 0 {
		reason := "embedding failed for image caption"
		if markErr := s.docRepo.MarkFailed(ctx, doc.ID, reason); markErr != nil {
			log.Printf("ingestion: marking document %s failed errored: %v", doc.ID, markErr)
		}
		return nil, domain.NewDomainError(domain.ErrCodeInternalError, reason)
	}
	chunk.Embedding = embeddings[0]

	if err := s.storeAndFinish(ctx, doc.ID, []*domain.Chunk{chunk}); err != nil {
		return nil, err
	}
	return &IngestResult{DocumentID: doc.ID, ChunkCount: 1}, nil
}

// LinkPendingChunks back-fills document ownership on chunks written before
// their document record existed. Returns the number of chunks linked.
func (s *IngestionService) LinkPendingChunks(ctx context.Context, scope domain.Scope, documentID string) (int64, error) {
	if err := scope.Validate(); err != nil {
		return 0, err
	}
	return s.chunkRepo.LinkDocument(ctx, scope, documentID)
}

func (s *IngestionService) ingestChunks(ctx context.Context, scope domain.Scope, doc *domain.Document, pages []extract.Page) (*IngestResult, error) {
	segments := s.chunker.SplitPages(toChunkerPages(pages))

	chunks := make([]*domain.Chunk, 0, len(segments))
	for _, seg := range segments {
		meta := map[string]string{
			domain.MetaSourceType: string(doc.SourceType),
			domain.MetaFilename:   doc.Filename,
		}
		// Unpaginated sources carry no page key at all.
		if seg.Page > 0 {
			meta[domain.MetaPage] = strconv.Itoa(seg.Page)
		}
		chunks = append(chunks, &domain.Chunk{
			ID:         s.uuidGen.NewString(),
			UserID:     scope.UserID,
			NotebookID: scope.NotebookID,
			DocumentID: doc.ID,
			Content:    seg.Text,
			Tokens:     seg.Tokens,
			Metadata:   meta,
			CreatedAt:  time.Now().UTC(),
		})
	}

	skippedImages := 0
	for _, page := range pages {
		for _, img := range page.Images {
			chunk, ok := s.analyzeImage(ctx, scope, doc, img, page.Number)
			if !ok {
				skippedImages++
				continue
			}
			chunks = append(chunks, chunk)
		}
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	embeddings, skippedChunks := s.embedAll(ctx, texts)

	stored := make([]*domain.Chunk, 0, len(chunks))
	for i, c := range chunks {
		if embeddings[i] == nil {
			continue
		}
		c.Embedding = embeddings[i]
		stored = append(stored, c)
	}

	if err := s.storeAndFinish(ctx, doc.ID, stored); err != nil {
		return nil, err
	}

	return &IngestResult{
		DocumentID:    doc.ID,
		ChunkCount:    len(stored),
		SkippedChunks: skippedChunks,
		SkippedImages: skippedImages,
	}, nil
}

// storeAndFinish writes the chunks and marks the document ready in one
// transaction, so a ready document always reflects its stored chunk count.
func (s *IngestionService) storeAndFinish(ctx context.Context, documentID string, chunks []*domain.Chunk) error {
	return s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Chunks().Store(ctx, chunks); err != nil {
			return err
		}
		return repos.Documents().MarkReady(ctx, documentID, len(chunks))
	})
}

// embedAll embeds every text, batch first, falling back to one-by-one so a
// single bad chunk is skipped instead of failing the batch. The returned
// slice keeps input order; a nil entry marks a skipped text.
func (s *IngestionService) embedAll(ctx context.Context, texts []string) ([][]float32, int) {
	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err == nil {
		return embeddings, 0
	}
	log.Printf("ingestion: batch embedding failed, retrying per chunk: %v", err)

	embeddings = make([][]float32, len(texts))
	skipped := 0
	for i, text := range texts {
		vec, err := s.embedder.Embed(ctx, text)
		if err != nil {
			log.Printf("ingestion: embedding chunk %d failed, skipping: %v", i, err)
			skipped++
			continue
		}
		embeddings[i] = vec
	}
	return embeddings, skipped
}

// analyzeImage routes an embedded figure through the gate and captioning
// path. Failures skip the image without failing the surrounding document.
func (s *IngestionService) analyzeImage(ctx context.Context, scope domain.Scope, doc *domain.Document, image []byte, page int) (*domain.Chunk, bool) {
	if s.captioner == nil || !extract.ValidImage(image) {
		return nil, false
	}
	caption, err := s.captioner.Caption(ctx, image)
	if err != nil {
		log.Printf("ingestion: captioning image on page %d of document %s failed, skipping: %v", page, doc.ID, err)
		return nil, false
	}
	return s.captionChunk(scope, doc.ID, doc.Filename, caption, page), true
}

func (s *IngestionService) captionChunk(scope domain.Scope, documentID, filename, caption string, page int) *domain.Chunk {
	meta := map[string]string{
		domain.MetaSourceType: string(domain.SourceTypeImage),
		domain.MetaAnalyzer:   "vision",
		domain.MetaFilename:   filename,
	}
	if page > 0 {
		meta[domain.MetaPage] = strconv.Itoa(page)
	}
	return &domain.Chunk{
		ID:         s.uuidGen.NewString(),
		UserID:     scope.UserID,
		NotebookID: scope.NotebookID,
		DocumentID: documentID,
		Content:    caption,
		Tokens:     token.Count(caption),
		Metadata:   meta,
		CreatedAt:  time.Now().UTC(),
	}
}

func toChunkerPages(pages []extract.Page) []chunker.Page {
	out := make([]chunker.Page, len(pages))
	for i, p := range pages {
		out[i] = chunker.Page{Number: p.Number, Text: p.Text}
	}
	return out
}

func contentTypeFor(t domain.SourceType) string {
	switch t {
	case domain.SourceTypePDF:
		return "application/pdf"
	case domain.SourceTypeText:
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
