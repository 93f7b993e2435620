package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dictatemed/dictatemed/internal/domain"
)

// AuditRepository persists the compliance audit trail.
type AuditRepository struct {
	pool *pgxpool.Pool
}

// InsertTx writes an audit entry inside the transaction of the mutation it
// describes, so the trail can never drift from the data.
func (r *AuditRepository) InsertTx(ctx context.Context, tx pgx.Tx, e *domain.AuditEntry) error {
	detail := e.Detail
	if detail == nil {
		detail = map[string]any{}
	}

	_, err := tx.Exec(ctx,
		`INSERT INTO audit_log (user_id, entity_type, entity_id, action, detail)
		 VALUES ($1, $2, $3, $4, $5)`,
		e.UserID, e.EntityType, e.EntityID, e.Action, detail)
	return err
}

// ListByEntity returns the audit trail for one entity, newest first.
func (r *AuditRepository) ListByEntity(ctx context.Context, entityType string, entityID uuid.UUID, limit int) ([]domain.AuditEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, entity_type, entity_id, action, detail, created_at
		 FROM audit_log
		 WHERE entity_type = $1 AND entity_id = $2
		 ORDER BY created_at DESC
		 LIMIT $3`,
		entityType, entityID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.EntityType, &e.EntityID,
			&e.Action, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
