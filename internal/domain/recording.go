package domain

import (
	"time"

	"github.com/google/uuid"
)

// RecordingStatus tracks a dictation through upload and transcription.
type RecordingStatus string

const (
	RecordingUploading   RecordingStatus = "UPLOADING"
	RecordingReady       RecordingStatus = "READY"
	RecordingTranscribed RecordingStatus = "TRANSCRIBED"
	RecordingFailed      RecordingStatus = "FAILED"
)

// Recording is a dictation captured by a clinician. The audio itself lives
// in object storage under StorageKey; the row carries metadata and, once
// transcription completes, the transcript text.
type Recording struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	LetterID        *uuid.UUID
	StorageKey      string
	MimeType        string
	DurationSeconds int
	Status          RecordingStatus
	Transcript      string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeletedAt       *time.Time
}
