package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dictatemed/dictatemed/internal/domain"
)

const letterColumns = `id, user_id, patient_name, patient_dob, subspecialty, status,
	draft_content, final_content, generation_model, approved_at,
	created_at, updated_at, deleted_at`

const flagColumns = `id, letter_id, claim, span_start, span_end, severity,
	resolved, resolution, created_at`

// LettersRepository persists letters and their hallucination flags.
type LettersRepository struct {
	pool *pgxpool.Pool
}

func scanLetter(row pgx.Row) (*domain.Letter, error) {
	var l domain.Letter
	err := row.Scan(
		&l.ID, &l.UserID, &l.PatientName, &l.PatientDOB, &l.Subspecialty,
		&l.Status, &l.DraftContent, &l.FinalContent, &l.GenerationModel,
		&l.ApprovedAt, &l.CreatedAt, &l.UpdatedAt, &l.DeletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func scanFlag(row pgx.Row) (*domain.HallucinationFlag, error) {
	var f domain.HallucinationFlag
	err := row.Scan(
		&f.ID, &f.LetterID, &f.Claim, &f.SpanStart, &f.SpanEnd,
		&f.Severity, &f.Resolved, &f.Resolution, &f.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// CreateTx inserts a draft letter inside a transaction so the audit entry
// commits with it.
func (r *LettersRepository) CreateTx(ctx context.Context, tx pgx.Tx, l *domain.Letter) (*domain.Letter, error) {
	query := `INSERT INTO letters (user_id, patient_name, patient_dob, subspecialty, draft_content)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + letterColumns

	return scanLetter(tx.QueryRow(ctx, query,
		l.UserID, l.PatientName, l.PatientDOB, l.Subspecialty, l.DraftContent))
}

// GetByID fetches a letter that has not been deleted.
func (r *LettersRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Letter, error) {
	query := `SELECT ` + letterColumns + ` FROM letters
		WHERE id = $1 AND deleted_at IS NULL`
	return scanLetter(r.pool.QueryRow(ctx, query, id))
}

// ListByUser returns the user's letters, newest first.
func (r *LettersRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Letter, error) {
	query := `SELECT ` + letterColumns + ` FROM letters
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var letters []domain.Letter
	for rows.Next() {
		l, err := scanLetter(rows)
		if err != nil {
			return nil, err
		}
		letters = append(letters, *l)
	}
	return letters, rows.Err()
}

// UpdateDraftTx replaces the editable fields of a non-approved letter. The
// status guard in SQL makes approval immutability hold even under
// concurrent requests.
func (r *LettersRepository) UpdateDraftTx(ctx context.Context, tx pgx.Tx, l *domain.Letter) (*domain.Letter, error) {
	query := `UPDATE letters SET
			patient_name = $2, patient_dob = $3, subspecialty = $4,
			draft_content = $5, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL AND status <> 'APPROVED'
		RETURNING ` + letterColumns

	return scanLetter(tx.QueryRow(ctx, query,
		l.ID, l.PatientName, l.PatientDOB, l.Subspecialty, l.DraftContent))
}

// SetGeneratedTx stores generated content and moves the letter to REVIEW.
func (r *LettersRepository) SetGeneratedTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, content, model string) (*domain.Letter, error) {
	query := `UPDATE letters SET
			draft_content = $2, generation_model = $3, status = 'REVIEW',
			updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL AND status <> 'APPROVED'
		RETURNING ` + letterColumns

	return scanLetter(tx.QueryRow(ctx, query, id, content, model))
}

// ApproveTx freezes the letter: final content is copied from the draft and
// the status becomes APPROVED. Only REVIEW letters can be approved.
func (r *LettersRepository) ApproveTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, approvedAt time.Time) (*domain.Letter, error) {
	query := `UPDATE letters SET
			final_content = draft_content, status = 'APPROVED',
			approved_at = $2, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL AND status = 'REVIEW'
		RETURNING ` + letterColumns

	return scanLetter(tx.QueryRow(ctx, query, id, approvedAt))
}

// SoftDeleteTx hides a non-approved letter.
func (r *LettersRepository) SoftDeleteTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	query := `UPDATE letters SET deleted_at = now(), updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL AND status <> 'APPROVED'`

	tag, err := tx.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceFlagsTx drops a letter's unresolved flags and inserts the flags
// from the latest verification pass. Resolved flags are kept for audit.
func (r *LettersRepository) ReplaceFlagsTx(ctx context.Context, tx pgx.Tx, letterID uuid.UUID, flags []domain.HallucinationFlag) error {
	if _, err := tx.Exec(ctx,
		`DELETE FROM hallucination_flags WHERE letter_id = $1 AND resolved = false`,
		letterID); err != nil {
		return err
	}

	for _, f := range flags {
		_, err := tx.Exec(ctx,
			`INSERT INTO hallucination_flags (letter_id, claim, span_start, span_end, severity)
			 VALUES ($1, $2, $3, $4, $5)`,
			letterID, f.Claim, f.SpanStart, f.SpanEnd, f.Severity)
		if err != nil {
			return err
		}
	}
	return nil
}

// ListFlags returns all flags for a letter, unresolved first.
func (r *LettersRepository) ListFlags(ctx context.Context, letterID uuid.UUID) ([]domain.HallucinationFlag, error) {
	query := `SELECT ` + flagColumns + ` FROM hallucination_flags
		WHERE letter_id = $1
		ORDER BY resolved, span_start`

	rows, err := r.pool.Query(ctx, query, letterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var flags []domain.HallucinationFlag
	for rows.Next() {
		f, err := scanFlag(rows)
		if err != nil {
			return nil, err
		}
		flags = append(flags, *f)
	}
	return flags, rows.Err()
}

// GetFlag fetches one flag.
func (r *LettersRepository) GetFlag(ctx context.Context, flagID uuid.UUID) (*domain.HallucinationFlag, error) {
	query := `SELECT ` + flagColumns + ` FROM hallucination_flags WHERE id = $1`
	return scanFlag(r.pool.QueryRow(ctx, query, flagID))
}

// ResolveFlagTx marks a flag resolved with the clinician's resolution.
func (r *LettersRepository) ResolveFlagTx(ctx context.Context, tx pgx.Tx, flagID uuid.UUID, resolution domain.FlagResolution) (*domain.HallucinationFlag, error) {
	query := `UPDATE hallucination_flags SET resolved = true, resolution = $2
		WHERE id = $1
		RETURNING ` + flagColumns

	return scanFlag(tx.QueryRow(ctx, query, flagID, resolution))
}

// CountUnresolvedFlags returns how many flags still block approval.
func (r *LettersRepository) CountUnresolvedFlags(ctx context.Context, letterID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM hallucination_flags WHERE letter_id = $1 AND resolved = false`,
		letterID).Scan(&n)
	return n, err
}
