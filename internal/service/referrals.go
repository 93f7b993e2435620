package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dictatemed/dictatemed/internal/domain"
	"github.com/dictatemed/dictatemed/internal/errs"
	"github.com/dictatemed/dictatemed/internal/ingest"
	"github.com/dictatemed/dictatemed/internal/lib/llm"
	"github.com/dictatemed/dictatemed/internal/lib/storage"
	"github.com/dictatemed/dictatemed/internal/repository"
	"github.com/dictatemed/dictatemed/internal/server"
)

const defaultMaxFileSizeMB = 25

// allowedDocumentMimeTypes are the referral formats the extractor can read.
var allowedDocumentMimeTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
	"image/tiff":      true,
	"text/plain":      true,
}

// ReferralsService manages referral document registration and ingestion.
type ReferralsService struct {
	server   *server.Server
	repos    *repository.Repositories
	pipeline *ingest.Pipeline

	maxFileSize int64
}

func NewReferralsService(s *server.Server, repos *repository.Repositories, queue *JobQueue) *ReferralsService {
	extractor := &llmExtractor{
		objects:   s.Storage,
		generator: s.LLM,
	}

	pipeline := ingest.New(
		s.Storage,
		extractor,
		queue,
		repos.Documents,
		ingest.Options{
			Window:      s.Config.Ingest.Window,
			MaxAttempts: s.Config.Ingest.MaxAttempts,
		},
		s.Logger,
	)

	maxMB := s.Config.Ingest.MaxFileSizeMB
	if maxMB <= 0 {
		maxMB = defaultMaxFileSizeMB
	}

	return &ReferralsService{
		server:      s,
		repos:       repos,
		pipeline:    pipeline,
		maxFileSize: int64(maxMB) * 1024 * 1024,
	}
}

// llmExtractor adapts object storage plus the LLM client to the pipeline's
// Extractor interface.
type llmExtractor struct {
	objects   *storage.Client
	generator llm.Generator
}

func (e *llmExtractor) ExtractText(ctx context.Context, storageKey, mimeType string) (string, error) {
	data, err := e.objects.Get(ctx, storageKey)
	if err != nil {
		return "", err
	}
	return e.generator.ExtractDocument(ctx, data, mimeType)
}

// RegisterDocumentInput describes one file the client wants to upload.
type RegisterDocumentInput struct {
	Filename  string
	MimeType  string
	SizeBytes int64
}

// RegisteredDocument pairs a created document with its presigned upload URL.
type RegisteredDocument struct {
	Document  domain.Document
	UploadURL string
}

// RegisterBatch validates and registers a batch of referral documents and
// returns presigned PUT URLs for the client to upload against. LetterID
// optionally attaches the batch to a letter.
func (s *ReferralsService) RegisterBatch(ctx context.Context, user *domain.User, letterID *uuid.UUID, files []RegisterDocumentInput) (uuid.UUID, []RegisteredDocument, error) {
	if len(files) == 0 {
		return uuid.Nil, nil, errs.NewBadRequestError("No files to register", true, nil, nil, nil)
	}

	for _, f := range files {
		if !allowedDocumentMimeTypes[f.MimeType] {
			return uuid.Nil, nil, errs.NewBadRequestError(
				fmt.Sprintf("Unsupported file type %q for %s", f.MimeType, f.Filename),
				true, nil, nil, nil)
		}
		if f.SizeBytes > s.maxFileSize {
			return uuid.Nil, nil, errs.NewBadRequestError(
				fmt.Sprintf("%s exceeds the maximum file size", f.Filename),
				true, nil, nil, nil)
		}
	}

	if letterID != nil {
		letter, err := s.repos.Letters.GetByID(ctx, *letterID)
		if err != nil || letter.UserID != user.ID {
			return uuid.Nil, nil, errs.NewNotFoundError("Letter not found", true, nil)
		}
	}

	batchID := uuid.New()
	registered := make([]RegisteredDocument, 0, len(files))

	for _, f := range files {
		key := fmt.Sprintf("referrals/%s/%s/%s", user.ID, batchID, uuid.New())

		doc, err := s.repos.Documents.Create(ctx, &domain.Document{
			UserID:     user.ID,
			LetterID:   letterID,
			BatchID:    batchID,
			Filename:   f.Filename,
			MimeType:   f.MimeType,
			SizeBytes:  f.SizeBytes,
			StorageKey: key,
		})
		if err != nil {
			return uuid.Nil, nil, err
		}

		uploadURL, err := s.server.Storage.PresignedPut(ctx, key)
		if err != nil {
			return uuid.Nil, nil, err
		}

		registered = append(registered, RegisteredDocument{
			Document:  *doc,
			UploadURL: uploadURL,
		})
	}

	return batchID, registered, nil
}

// Ingest runs the extraction pipeline over a batch once the client has
// finished its uploads. Documents that already extracted are skipped;
// failed ones are retried. Blocks until the batch settles.
func (s *ReferralsService) Ingest(ctx context.Context, user *domain.User, batchID uuid.UUID) ([]ingest.Report, error) {
	docs, err := s.ownedBatch(ctx, user, batchID)
	if err != nil {
		return nil, err
	}

	var pending []domain.Document
	for _, d := range docs {
		if d.Status != domain.DocumentExtracted {
			pending = append(pending, d)
		}
	}
	if len(pending) == 0 {
		return nil, nil
	}

	return s.pipeline.Run(ctx, pending), nil
}

// CancelDocument aborts one in-flight document. Returns false when the
// document is not currently processing.
func (s *ReferralsService) CancelDocument(ctx context.Context, user *domain.User, documentID uuid.UUID) (bool, error) {
	if _, err := s.ownedDocument(ctx, user, documentID); err != nil {
		return false, err
	}
	return s.pipeline.Cancel(documentID), nil
}

// BatchStatus returns the batch's documents with their pipeline state.
func (s *ReferralsService) BatchStatus(ctx context.Context, user *domain.User, batchID uuid.UUID) ([]domain.Document, error) {
	return s.ownedBatch(ctx, user, batchID)
}

// GetDocument fetches one of the user's documents.
func (s *ReferralsService) GetDocument(ctx context.Context, user *domain.User, documentID uuid.UUID) (*domain.Document, error) {
	return s.ownedDocument(ctx, user, documentID)
}

// DownloadURL returns a presigned GET URL for the original file.
func (s *ReferralsService) DownloadURL(ctx context.Context, user *domain.User, documentID uuid.UUID) (string, error) {
	doc, err := s.ownedDocument(ctx, user, documentID)
	if err != nil {
		return "", err
	}
	return s.server.Storage.PresignedGet(ctx, doc.StorageKey, doc.Filename)
}

// DeleteDocument soft-deletes a document and removes the stored object.
func (s *ReferralsService) DeleteDocument(ctx context.Context, user *domain.User, documentID uuid.UUID) error {
	doc, err := s.ownedDocument(ctx, user, documentID)
	if err != nil {
		return err
	}

	if err := s.repos.Documents.SoftDelete(ctx, documentID); err != nil {
		return err
	}

	// The row is the system of record; a stray object is only storage cost.
	if err := s.server.Storage.Remove(ctx, doc.StorageKey); err != nil {
		s.server.Logger.Error().Err(err).
			Str("document_id", documentID.String()).
			Msg("failed to remove document object")
	}

	return nil
}

func (s *ReferralsService) ownedBatch(ctx context.Context, user *domain.User, batchID uuid.UUID) ([]domain.Document, error) {
	docs, err := s.repos.Documents.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 || docs[0].UserID != user.ID {
		return nil, errs.NewNotFoundError("Batch not found", true, nil)
	}
	return docs, nil
}

func (s *ReferralsService) ownedDocument(ctx context.Context, user *domain.User, documentID uuid.UUID) (*domain.Document, error) {
	doc, err := s.repos.Documents.GetByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errs.NewNotFoundError("Document not found", true, nil)
		}
		return nil, err
	}
	if doc.UserID != user.ID || doc.DeletedAt != nil {
		return nil, errs.NewNotFoundError("Document not found", true, nil)
	}
	return doc, nil
}
