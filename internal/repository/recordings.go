package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dictatemed/dictatemed/internal/domain"
)

const recordingColumns = `id, user_id, letter_id, storage_key, mime_type,
	duration_seconds, status, transcript, created_at, updated_at, deleted_at`

// RecordingsRepository persists dictation recordings.
type RecordingsRepository struct {
	pool *pgxpool.Pool
}

func scanRecording(row pgx.Row) (*domain.Recording, error) {
	var rec domain.Recording
	err := row.Scan(
		&rec.ID, &rec.UserID, &rec.LetterID, &rec.StorageKey, &rec.MimeType,
		&rec.DurationSeconds, &rec.Status, &rec.Transcript,
		&rec.CreatedAt, &rec.UpdatedAt, &rec.DeletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Create registers a recording in UPLOADING state.
func (r *RecordingsRepository) Create(ctx context.Context, rec *domain.Recording) (*domain.Recording, error) {
	query := `INSERT INTO recordings (user_id, letter_id, storage_key, mime_type, duration_seconds)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + recordingColumns

	return scanRecording(r.pool.QueryRow(ctx, query,
		rec.UserID, rec.LetterID, rec.StorageKey, rec.MimeType, rec.DurationSeconds))
}

// GetByID fetches a recording that has not been deleted.
func (r *RecordingsRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Recording, error) {
	query := `SELECT ` + recordingColumns + ` FROM recordings
		WHERE id = $1 AND deleted_at IS NULL`
	return scanRecording(r.pool.QueryRow(ctx, query, id))
}

// ListByUser returns the user's recordings, newest first.
func (r *RecordingsRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Recording, error) {
	query := `SELECT ` + recordingColumns + ` FROM recordings
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []domain.Recording
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}

// ListByLetter returns the recordings dictated for a letter, oldest first.
func (r *RecordingsRepository) ListByLetter(ctx context.Context, letterID uuid.UUID) ([]domain.Recording, error) {
	query := `SELECT ` + recordingColumns + ` FROM recordings
		WHERE letter_id = $1 AND deleted_at IS NULL
		ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, letterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []domain.Recording
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}

// SetStatus moves a recording to a new status.
func (r *RecordingsRepository) SetStatus(ctx context.Context, id uuid.UUID, status domain.RecordingStatus) (*domain.Recording, error) {
	query := `UPDATE recordings SET status = $2, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING ` + recordingColumns

	return scanRecording(r.pool.QueryRow(ctx, query, id, status))
}

// SetTranscript stores the transcript and marks the recording TRANSCRIBED.
func (r *RecordingsRepository) SetTranscript(ctx context.Context, id uuid.UUID, transcript string) (*domain.Recording, error) {
	query := `UPDATE recordings SET transcript = $2, status = 'TRANSCRIBED', updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING ` + recordingColumns

	return scanRecording(r.pool.QueryRow(ctx, query, id, transcript))
}

// AttachToLetter links a recording to the letter it was dictated for.
func (r *RecordingsRepository) AttachToLetter(ctx context.Context, id, letterID uuid.UUID) (*domain.Recording, error) {
	query := `UPDATE recordings SET letter_id = $2, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING ` + recordingColumns

	return scanRecording(r.pool.QueryRow(ctx, query, id, letterID))
}

// SoftDelete hides a recording.
func (r *RecordingsRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE recordings SET deleted_at = now(), updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
