package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dictatemed/dictatemed/internal/domain"
)

const styleProfileColumns = `id, user_id, subspecialty, analyzed_edits, confidence,
	greeting, closing, signoff, formality, verbosity, section_order, vocabulary,
	enabled, created_at, updated_at`

// StyleProfilesRepository persists learned writing-style profiles.
type StyleProfilesRepository struct {
	pool *pgxpool.Pool
}

func scanStyleProfile(row pgx.Row) (*domain.StyleProfile, error) {
	var p domain.StyleProfile
	err := row.Scan(
		&p.ID, &p.UserID, &p.Subspecialty, &p.AnalyzedEdits, &p.Confidence,
		&p.Greeting, &p.Closing, &p.Signoff, &p.Formality, &p.Verbosity,
		&p.SectionOrder, &p.Vocabulary, &p.Enabled, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Upsert creates or replaces the profile for (user, subspecialty). A nil
// subspecialty targets the user's global profile; the two partial unique
// indexes need separate conflict targets, hence the branch.
func (r *StyleProfilesRepository) Upsert(ctx context.Context, p *domain.StyleProfile) (*domain.StyleProfile, error) {
	conflict := `(user_id, subspecialty) WHERE subspecialty IS NOT NULL`
	if p.Subspecialty == nil {
		conflict = `(user_id) WHERE subspecialty IS NULL`
	}

	query := `INSERT INTO style_profiles
			(user_id, subspecialty, analyzed_edits, confidence, greeting, closing,
			 signoff, formality, verbosity, section_order, vocabulary, enabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT ` + conflict + ` DO UPDATE SET
			analyzed_edits = EXCLUDED.analyzed_edits,
			confidence = EXCLUDED.confidence,
			greeting = EXCLUDED.greeting,
			closing = EXCLUDED.closing,
			signoff = EXCLUDED.signoff,
			formality = EXCLUDED.formality,
			verbosity = EXCLUDED.verbosity,
			section_order = EXCLUDED.section_order,
			vocabulary = EXCLUDED.vocabulary,
			enabled = EXCLUDED.enabled,
			updated_at = now()
		RETURNING ` + styleProfileColumns

	confidence := p.Confidence
	if confidence == nil {
		confidence = map[string]float64{}
	}
	vocabulary := p.Vocabulary
	if vocabulary == nil {
		vocabulary = map[string]string{}
	}
	sectionOrder := p.SectionOrder
	if sectionOrder == nil {
		sectionOrder = []string{}
	}

	return scanStyleProfile(r.pool.QueryRow(ctx, query,
		p.UserID, p.Subspecialty, p.AnalyzedEdits, confidence,
		p.Greeting, p.Closing, p.Signoff, p.Formality, p.Verbosity,
		sectionOrder, vocabulary, p.Enabled))
}

// GetGlobal fetches the user's subspecialty-agnostic profile.
func (r *StyleProfilesRepository) GetGlobal(ctx context.Context, userID uuid.UUID) (*domain.StyleProfile, error) {
	query := `SELECT ` + styleProfileColumns + ` FROM style_profiles
		WHERE user_id = $1 AND subspecialty IS NULL`
	return scanStyleProfile(r.pool.QueryRow(ctx, query, userID))
}

// GetBySubspecialty fetches the user's profile for one subspecialty.
func (r *StyleProfilesRepository) GetBySubspecialty(ctx context.Context, userID uuid.UUID, subspecialty string) (*domain.StyleProfile, error) {
	query := `SELECT ` + styleProfileColumns + ` FROM style_profiles
		WHERE user_id = $1 AND subspecialty = $2`
	return scanStyleProfile(r.pool.QueryRow(ctx, query, userID, subspecialty))
}

// List returns all of the user's profiles, global first.
func (r *StyleProfilesRepository) List(ctx context.Context, userID uuid.UUID) ([]domain.StyleProfile, error) {
	query := `SELECT ` + styleProfileColumns + ` FROM style_profiles
		WHERE user_id = $1
		ORDER BY subspecialty NULLS FIRST`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []domain.StyleProfile
	for rows.Next() {
		p, err := scanStyleProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *p)
	}
	return profiles, rows.Err()
}

// SetEnabled toggles a profile without touching its learned content.
func (r *StyleProfilesRepository) SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) (*domain.StyleProfile, error) {
	query := `UPDATE style_profiles SET enabled = $2, updated_at = now()
		WHERE id = $1
		RETURNING ` + styleProfileColumns

	return scanStyleProfile(r.pool.QueryRow(ctx, query, id, enabled))
}

// GetByID fetches a profile by primary key.
func (r *StyleProfilesRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.StyleProfile, error) {
	query := `SELECT ` + styleProfileColumns + ` FROM style_profiles WHERE id = $1`
	return scanStyleProfile(r.pool.QueryRow(ctx, query, id))
}
