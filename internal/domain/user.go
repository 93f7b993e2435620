package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is a clinician account. ClerkID links the row to the Clerk identity
// that authenticates requests; everything else is owned locally.
type User struct {
	ID           uuid.UUID
	ClerkID      string
	Email        string
	Name         string
	Role         string
	PracticeID   *uuid.UUID
	Subspecialty string

	// LearningStrength scales how aggressively learned style preferences are
	// applied during letter generation. Clamped to [0, 1] by the service.
	LearningStrength float64

	Settings  map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Practice groups clinicians that share letterhead and address details.
type Practice struct {
	ID         uuid.UUID
	Name       string
	Street     string
	City       string
	PostalCode string
	Phone      string
	Letterhead map[string]any
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
