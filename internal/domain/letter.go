package domain

import (
	"time"

	"github.com/google/uuid"
)

// LetterStatus tracks a letter through its approval workflow.
type LetterStatus string

const (
	// LetterDraft is the initial state; content is freely editable.
	LetterDraft LetterStatus = "DRAFT"

	// LetterReview means generated content exists and any hallucination
	// flags must be resolved before approval.
	LetterReview LetterStatus = "REVIEW"

	// LetterApproved letters are immutable.
	LetterApproved LetterStatus = "APPROVED"
)

// Letter is a generated clinical consultation document.
type Letter struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	PatientName  string
	PatientDOB   *time.Time
	Subspecialty string
	Status       LetterStatus

	// DraftContent is the working text; FinalContent is frozen at approval.
	DraftContent string
	FinalContent string

	GenerationModel string
	ApprovedAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeletedAt       *time.Time
}

// FlagResolution records how a clinician dealt with a flagged claim.
type FlagResolution string

const (
	FlagConfirmed FlagResolution = "CONFIRMED"
	FlagRemoved   FlagResolution = "REMOVED"
	FlagEdited    FlagResolution = "EDITED"
)

// HallucinationFlag marks a claim in generated text that the verification
// pass could not ground in the source material. Every flag on a letter must
// be resolved before the letter can be approved.
type HallucinationFlag struct {
	ID         uuid.UUID
	LetterID   uuid.UUID
	Claim      string
	SpanStart  int
	SpanEnd    int
	Severity   string
	Resolved   bool
	Resolution *FlagResolution
	CreatedAt  time.Time
}
