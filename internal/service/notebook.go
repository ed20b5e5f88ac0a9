package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/cortexnotes/cortex/internal/domain"
)

// NotebookRepositoryInterface defines the repository interface for notebook persistence
type NotebookRepositoryInterface interface {
	Create(ctx context.Context, n *domain.Notebook) error
	GetByID(ctx context.Context, userID, id string) (*domain.Notebook, error)
	GetByName(ctx context.Context, userID, name string) (*domain.Notebook, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Notebook, error)
	Delete(ctx context.Context, userID, id string) error
}

// NotebookService handles notebook and document lifecycle. Deletions cascade
// to the chunks they own.
type NotebookService struct {
	notebookRepo NotebookRepositoryInterface
	docRepo      DocumentRepositoryInterface
	chunkRepo    ChunkRepositoryInterface
	storage      ObjectStorage
	uuidGen      UUIDGenerator
}

// NewNotebookService creates a new NotebookService instance
func NewNotebookService(
	notebookRepo NotebookRepositoryInterface,
	docRepo DocumentRepositoryInterface,
	chunkRepo ChunkRepositoryInterface,
	storage ObjectStorage,
) *NotebookService {
	return &NotebookService{
		notebookRepo: notebookRepo,
		docRepo:      docRepo,
		chunkRepo:    chunkRepo,
		storage:      storage,
		uuidGen:      &DefaultUUIDGenerator{},
	}
}

// WithUUIDGen overrides the UUID generator (for testing).
func (s *NotebookService) WithUUIDGen(gen UUIDGenerator) *NotebookService {
	s.uuidGen = gen
	return s
}

func (s *NotebookService) CreateNotebook(ctx context.Context, userID, name string) (*domain.Notebook, error) {
	if name == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "notebook name is required")
	}

	if _, err := s.notebookRepo.GetByName(ctx, userID, name); err == nil {
		return nil, domain.ErrNotebookAlreadyExists
	} else if !errors.Is(err, domain.ErrNotebookNotFound) {
		return nil, err
	}

	notebook := domain.NewNotebook(s.uuidGen.NewString(), userID, name, time.Now().UTC())
	if err := domain.ValidateNotebook(notebook); err != nil {
		return nil, err
	}

	if err := s.notebookRepo.Create(ctx, notebook); err != nil {
		return nil, err
	}
	return notebook, nil
}

func (s *NotebookService) GetNotebook(ctx context.Context, userID, id string) (*domain.Notebook, error) {
	return s.notebookRepo.GetByID(ctx, userID, id)
}

func (s *NotebookService) ListNotebooks(ctx context.Context, userID string) ([]*domain.Notebook, error) {
	return s.notebookRepo.ListByUser(ctx, userID)
}

// DeleteNotebook removes a notebook with its documents and chunks.
func (s *NotebookService) DeleteNotebook(ctx context.Context, userID, id string) error {
	docs, err := s.docRepo.ListByNotebook(ctx, userID, id)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		if err := s.deleteDocument(ctx, doc); err != nil {
			return err
		}
	}

	if _, err := s.chunkRepo.DeleteByNotebook(ctx, userID, id); err != nil {
		return err
	}
	return s.notebookRepo.Delete(ctx, userID, id)
}

func (s *NotebookService) GetDocument(ctx context.Context, userID, id string) (*domain.Document, error) {
	return s.docRepo.GetByID(ctx, userID, id)
}

func (s *NotebookService) ListDocuments(ctx context.Context, userID, notebookID string) ([]*domain.Document, error) {
	return s.docRepo.ListByNotebook(ctx, userID, notebookID)
}

// GetDocumentDownloadURL returns a presigned URL for the document's retained
// original. Documents without a retained object (plain-text ingestion) have
// nothing to download.
func (s *NotebookService) GetDocumentDownloadURL(ctx context.Context, userID, id string) (string, error) {
	doc, err := s.docRepo.GetByID(ctx, userID, id)
	if err != nil {
		return "", err
	}
	if s.storage == nil || doc.StorageKey == "" {
		return "", domain.NewDomainError(domain.ErrCodeInvalidOperation, "document has no retained source")
	}
	return s.storage.GenerateDownloadURL(ctx, doc.StorageKey)
}

// DeleteDocument removes a document with its chunks and retained original.
func (s *NotebookService) DeleteDocument(ctx context.Context, userID, id string) error {
	doc, err := s.docRepo.GetByID(ctx, userID, id)
	if err != nil {
		return err
	}
	return s.deleteDocument(ctx, doc)
}

func (s *NotebookService) deleteDocument(ctx context.Context, doc *domain.Document) error {
	if _, err := s.chunkRepo.DeleteByDocument(ctx, doc.UserID, doc.ID); err != nil {
		return err
	}
	if s.storage != nil && doc.StorageKey != "" {
		if err := s.storage.DeleteObject(ctx, doc.StorageKey); err != nil {
			// Orphaned objects are cleaned up out of band.
			log.Printf("notebook: deleting object %s failed: %v", doc.StorageKey, err)
		}
	}
	return s.docRepo.Delete(ctx, doc.UserID, doc.ID)
}
