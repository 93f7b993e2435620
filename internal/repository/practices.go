package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dictatemed/dictatemed/internal/domain"
)

const practiceColumns = `id, name, street, city, postal_code, phone, letterhead,
	created_at, updated_at`

// PracticesRepository persists practices.
type PracticesRepository struct {
	pool *pgxpool.Pool
}

func scanPractice(row pgx.Row) (*domain.Practice, error) {
	var p domain.Practice
	err := row.Scan(
		&p.ID, &p.Name, &p.Street, &p.City, &p.PostalCode, &p.Phone,
		&p.Letterhead, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a practice.
func (r *PracticesRepository) Create(ctx context.Context, p *domain.Practice) (*domain.Practice, error) {
	query := `INSERT INTO practices (name, street, city, postal_code, phone, letterhead)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + practiceColumns

	letterhead := p.Letterhead
	if letterhead == nil {
		letterhead = map[string]any{}
	}

	return scanPractice(r.pool.QueryRow(ctx, query,
		p.Name, p.Street, p.City, p.PostalCode, p.Phone, letterhead))
}

// GetByID fetches a practice by primary key.
func (r *PracticesRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Practice, error) {
	query := `SELECT ` + practiceColumns + ` FROM practices WHERE id = $1`
	return scanPractice(r.pool.QueryRow(ctx, query, id))
}

// Update replaces the practice's editable fields.
func (r *PracticesRepository) Update(ctx context.Context, p *domain.Practice) (*domain.Practice, error) {
	query := `UPDATE practices SET
			name = $2, street = $3, city = $4, postal_code = $5, phone = $6,
			letterhead = $7, updated_at = now()
		WHERE id = $1
		RETURNING ` + practiceColumns

	letterhead := p.Letterhead
	if letterhead == nil {
		letterhead = map[string]any{}
	}

	return scanPractice(r.pool.QueryRow(ctx, query,
		p.ID, p.Name, p.Street, p.City, p.PostalCode, p.Phone, letterhead))
}
