package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dictatemed/dictatemed/internal/domain"
)

const userColumns = `id, clerk_id, email, name, role, practice_id, subspecialty,
	learning_strength, settings, created_at, updated_at`

// UsersRepository persists clinician accounts.
type UsersRepository struct {
	pool *pgxpool.Pool
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.ClerkID, &u.Email, &u.Name, &u.Role, &u.PracticeID,
		&u.Subspecialty, &u.LearningStrength, &u.Settings,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UpsertByClerkID creates the local row for a Clerk identity on first
// contact and refreshes email/name on subsequent logins.
func (r *UsersRepository) UpsertByClerkID(ctx context.Context, clerkID, email, name string) (*domain.User, error) {
	query := `INSERT INTO users (clerk_id, email, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (clerk_id) DO UPDATE SET
			email = EXCLUDED.email,
			name = EXCLUDED.name,
			updated_at = now()
		RETURNING ` + userColumns

	return scanUser(r.pool.QueryRow(ctx, query, clerkID, email, name))
}

// GetByClerkID fetches the user behind a Clerk identity.
func (r *UsersRepository) GetByClerkID(ctx context.Context, clerkID string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE clerk_id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, clerkID))
}

// GetByID fetches a user by primary key.
func (r *UsersRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

// UpdateProfile updates the user's editable profile fields.
func (r *UsersRepository) UpdateProfile(ctx context.Context, id uuid.UUID, name, subspecialty string) (*domain.User, error) {
	query := `UPDATE users SET name = $2, subspecialty = $3, updated_at = now()
		WHERE id = $1
		RETURNING ` + userColumns

	return scanUser(r.pool.QueryRow(ctx, query, id, name, subspecialty))
}

// UpdateLearningStrength sets how strongly learned style preferences apply.
func (r *UsersRepository) UpdateLearningStrength(ctx context.Context, id uuid.UUID, strength float64) (*domain.User, error) {
	query := `UPDATE users SET learning_strength = $2, updated_at = now()
		WHERE id = $1
		RETURNING ` + userColumns

	return scanUser(r.pool.QueryRow(ctx, query, id, strength))
}

// UpdateSettings replaces the user's settings document.
func (r *UsersRepository) UpdateSettings(ctx context.Context, id uuid.UUID, settings map[string]any) (*domain.User, error) {
	query := `UPDATE users SET settings = $2, updated_at = now()
		WHERE id = $1
		RETURNING ` + userColumns

	return scanUser(r.pool.QueryRow(ctx, query, id, settings))
}

// SetPractice attaches a user to a practice.
func (r *UsersRepository) SetPractice(ctx context.Context, id uuid.UUID, practiceID uuid.UUID) (*domain.User, error) {
	query := `UPDATE users SET practice_id = $2, updated_at = now()
		WHERE id = $1
		RETURNING ` + userColumns

	return scanUser(r.pool.QueryRow(ctx, query, id, practiceID))
}

// ListByPractice returns every member of a practice.
func (r *UsersRepository) ListByPractice(ctx context.Context, practiceID uuid.UUID) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE practice_id = $1 ORDER BY name`

	rows, err := r.pool.Query(ctx, query, practiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}
