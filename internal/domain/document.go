package domain

import (
	"time"

	"github.com/google/uuid"
)

// DocumentStatus tracks a referral document through the ingestion pipeline.
// Transitions are monotonic: REGISTERED -> UPLOADED -> EXTRACTING ->
// EXTRACTED, with FAILED reachable from any non-terminal state.
type DocumentStatus string

const (
	DocumentRegistered DocumentStatus = "REGISTERED"
	DocumentUploaded   DocumentStatus = "UPLOADED"
	DocumentExtracting DocumentStatus = "EXTRACTING"
	DocumentExtracted  DocumentStatus = "EXTRACTED"
	DocumentFailed     DocumentStatus = "FAILED"
)

// Document is a referral document registered for ingestion. BatchID groups
// documents registered together so the pipeline can report per-batch status.
type Document struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	LetterID        *uuid.UUID
	BatchID         uuid.UUID
	Filename        string
	MimeType        string
	SizeBytes       int64
	StorageKey      string
	Status          DocumentStatus
	ExtractedText   string
	ExtractionError string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeletedAt       *time.Time
}
