package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditEntry records a mutation for compliance review. Entries are written
// in the same transaction as the mutation they describe.
type AuditEntry struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	EntityType string
	EntityID   uuid.UUID
	Action     string
	Detail     map[string]any
	CreatedAt  time.Time
}
