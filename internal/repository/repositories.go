package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dictatemed/dictatemed/internal/server"
)

// Repositories is the container for all repository instances.
type Repositories struct {
	pool *pgxpool.Pool

	Users         *UsersRepository
	Practices     *PracticesRepository
	Letters       *LettersRepository
	Recordings    *RecordingsRepository
	Documents     *DocumentsRepository
	StyleProfiles *StyleProfilesRepository
	Audit         *AuditRepository
}

// NewRepositories constructs the repository container from the application
// container's database pool.
func NewRepositories(s *server.Server) *Repositories {
	pool := s.DB.Pool

	return &Repositories{
		pool:          pool,
		Users:         &UsersRepository{pool: pool},
		Practices:     &PracticesRepository{pool: pool},
		Letters:       &LettersRepository{pool: pool},
		Recordings:    &RecordingsRepository{pool: pool},
		Documents:     &DocumentsRepository{pool: pool},
		StyleProfiles: &StyleProfilesRepository{pool: pool},
		Audit:         &AuditRepository{pool: pool},
	}
}

// WithTx runs fn inside a transaction, committing on nil and rolling back on
// error. Services use it to pair a mutation with its audit entry.
func (r *Repositories) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return pgx.BeginFunc(ctx, r.pool, fn)
}
