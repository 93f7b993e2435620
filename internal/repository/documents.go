package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dictatemed/dictatemed/internal/domain"
	"github.com/dictatemed/dictatemed/internal/ingest"
)

const documentColumns = `id, user_id, letter_id, batch_id, filename, mime_type,
	size_bytes, storage_key, status, extracted_text, extraction_error,
	created_at, updated_at, deleted_at`

// DocumentsRepository persists referral documents. It doubles as the
// ingestion pipeline's state tracker.
type DocumentsRepository struct {
	pool *pgxpool.Pool
}

var _ ingest.Tracker = (*DocumentsRepository)(nil)

func scanDocument(row pgx.Row) (*domain.Document, error) {
	var d domain.Document
	err := row.Scan(
		&d.ID, &d.UserID, &d.LetterID, &d.BatchID, &d.Filename, &d.MimeType,
		&d.SizeBytes, &d.StorageKey, &d.Status, &d.ExtractedText,
		&d.ExtractionError, &d.CreatedAt, &d.UpdatedAt, &d.DeletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Create registers a document in REGISTERED state.
func (r *DocumentsRepository) Create(ctx context.Context, d *domain.Document) (*domain.Document, error) {
	query := `INSERT INTO documents (user_id, letter_id, batch_id, filename, mime_type, size_bytes, storage_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + documentColumns

	return scanDocument(r.pool.QueryRow(ctx, query,
		d.UserID, d.LetterID, d.BatchID, d.Filename, d.MimeType, d.SizeBytes, d.StorageKey))
}

// GetByID fetches a document, deleted or not. Callers that must hide deleted
// documents check DeletedAt themselves; the background extractor needs to
// see deleted rows to skip them cleanly.
func (r *DocumentsRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	return scanDocument(r.pool.QueryRow(ctx, query, id))
}

// ListByBatch returns a batch's documents in registration order.
func (r *DocumentsRepository) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]domain.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents
		WHERE batch_id = $1 AND deleted_at IS NULL
		ORDER BY created_at`
	return r.list(ctx, query, batchID)
}

// ListByLetter returns the documents attached to a letter.
func (r *DocumentsRepository) ListByLetter(ctx context.Context, letterID uuid.UUID) ([]domain.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents
		WHERE letter_id = $1 AND deleted_at IS NULL
		ORDER BY created_at`
	return r.list(ctx, query, letterID)
}

func (r *DocumentsRepository) list(ctx context.Context, query string, arg any) ([]domain.Document, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *d)
	}
	return docs, rows.Err()
}

// MarkUploaded records that the object landed in storage. Clears any stale
// failure so re-runs start clean.
func (r *DocumentsRepository) MarkUploaded(ctx context.Context, id uuid.UUID, sizeBytes int64) error {
	return r.exec(ctx,
		`UPDATE documents SET status = 'UPLOADED', size_bytes = $2, extraction_error = '', updated_at = now()
		 WHERE id = $1 AND deleted_at IS NULL`,
		id, sizeBytes)
}

// MarkExtracting records that text extraction started.
func (r *DocumentsRepository) MarkExtracting(ctx context.Context, id uuid.UUID) error {
	return r.exec(ctx,
		`UPDATE documents SET status = 'EXTRACTING', updated_at = now()
		 WHERE id = $1 AND deleted_at IS NULL`,
		id)
}

// MarkExtracted stores the fast-pass text and completes the pipeline step.
func (r *DocumentsRepository) MarkExtracted(ctx context.Context, id uuid.UUID, text string) error {
	return r.exec(ctx,
		`UPDATE documents SET status = 'EXTRACTED', extracted_text = $2, updated_at = now()
		 WHERE id = $1 AND deleted_at IS NULL`,
		id, text)
}

// MarkFailed records a terminal ingestion failure.
func (r *DocumentsRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return r.exec(ctx,
		`UPDATE documents SET status = 'FAILED', extraction_error = $2, updated_at = now()
		 WHERE id = $1 AND deleted_at IS NULL`,
		id, reason)
}

// ReplaceExtractedText swaps in the deep-extraction result.
func (r *DocumentsRepository) ReplaceExtractedText(ctx context.Context, id uuid.UUID, text string) error {
	return r.exec(ctx,
		`UPDATE documents SET extracted_text = $2, updated_at = now()
		 WHERE id = $1 AND deleted_at IS NULL`,
		id, text)
}

// SoftDelete hides a document.
func (r *DocumentsRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.exec(ctx,
		`UPDATE documents SET deleted_at = now(), updated_at = now()
		 WHERE id = $1 AND deleted_at IS NULL`,
		id)
}

func (r *DocumentsRepository) exec(ctx context.Context, query string, args ...any) error {
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
