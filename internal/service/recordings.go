package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dictatemed/dictatemed/internal/domain"
	"github.com/dictatemed/dictatemed/internal/errs"
	"github.com/dictatemed/dictatemed/internal/repository"
	"github.com/dictatemed/dictatemed/internal/server"
)

// allowedAudioMimeTypes are the dictation formats accepted for upload.
var allowedAudioMimeTypes = map[string]bool{
	"audio/webm": true,
	"audio/mpeg": true,
	"audio/mp4":  true,
	"audio/wav":  true,
	"audio/ogg":  true,
}

// RecordingsService manages dictation recordings.
type RecordingsService struct {
	server *server.Server
	repos  *repository.Repositories
}

func NewRecordingsService(s *server.Server, repos *repository.Repositories) *RecordingsService {
	return &RecordingsService{
		server: s,
		repos:  repos,
	}
}

// CreatedRecording pairs a registered recording with its upload URL.
type CreatedRecording struct {
	Recording domain.Recording
	UploadURL string
}

// Create registers a recording in UPLOADING state and returns a presigned
// PUT URL for the audio.
func (s *RecordingsService) Create(ctx context.Context, user *domain.User, mimeType string, durationSeconds int, letterID *uuid.UUID) (*CreatedRecording, error) {
	if !allowedAudioMimeTypes[mimeType] {
		return nil, errs.NewBadRequestError(
			fmt.Sprintf("Unsupported audio type %q", mimeType), true, nil, nil, nil)
	}

	if letterID != nil {
		letter, err := s.repos.Letters.GetByID(ctx, *letterID)
		if err != nil || letter.UserID != user.ID {
			return nil, errs.NewNotFoundError("Letter not found", true, nil)
		}
	}

	key := fmt.Sprintf("recordings/%s/%s", user.ID, uuid.New())

	rec, err := s.repos.Recordings.Create(ctx, &domain.Recording{
		UserID:          user.ID,
		LetterID:        letterID,
		StorageKey:      key,
		MimeType:        mimeType,
		DurationSeconds: durationSeconds,
	})
	if err != nil {
		return nil, err
	}

	uploadURL, err := s.server.Storage.PresignedPut(ctx, key)
	if err != nil {
		return nil, err
	}

	return &CreatedRecording{Recording: *rec, UploadURL: uploadURL}, nil
}

// ConfirmUpload checks the audio landed in object storage and marks the
// recording READY for transcription.
func (s *RecordingsService) ConfirmUpload(ctx context.Context, user *domain.User, id uuid.UUID) (*domain.Recording, error) {
	rec, err := s.owned(ctx, user, id)
	if err != nil {
		return nil, err
	}

	if _, err := s.server.Storage.Confirm(ctx, rec.StorageKey); err != nil {
		return nil, errs.NewBadRequestError("Recording has not been uploaded", true, nil, nil, nil)
	}

	return s.repos.Recordings.SetStatus(ctx, id, domain.RecordingReady)
}

// SetTranscript stores the transcript produced by the client's speech
// recognizer and marks the recording TRANSCRIBED.
func (s *RecordingsService) SetTranscript(ctx context.Context, user *domain.User, id uuid.UUID, transcript string) (*domain.Recording, error) {
	if _, err := s.owned(ctx, user, id); err != nil {
		return nil, err
	}
	return s.repos.Recordings.SetTranscript(ctx, id, transcript)
}

// AttachToLetter links a recording to one of the user's letters.
func (s *RecordingsService) AttachToLetter(ctx context.Context, user *domain.User, id, letterID uuid.UUID) (*domain.Recording, error) {
	if _, err := s.owned(ctx, user, id); err != nil {
		return nil, err
	}

	letter, err := s.repos.Letters.GetByID(ctx, letterID)
	if err != nil || letter.UserID != user.ID {
		return nil, errs.NewNotFoundError("Letter not found", true, nil)
	}

	return s.repos.Recordings.AttachToLetter(ctx, id, letterID)
}

// List returns the user's recordings, newest first.
func (s *RecordingsService) List(ctx context.Context, user *domain.User, limit, offset int) ([]domain.Recording, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repos.Recordings.ListByUser(ctx, user.ID, limit, offset)
}

// Get fetches one of the user's recordings.
func (s *RecordingsService) Get(ctx context.Context, user *domain.User, id uuid.UUID) (*domain.Recording, error) {
	return s.owned(ctx, user, id)
}

// DownloadURL returns a presigned GET URL for the stored audio.
func (s *RecordingsService) DownloadURL(ctx context.Context, user *domain.User, id uuid.UUID) (string, error) {
	rec, err := s.owned(ctx, user, id)
	if err != nil {
		return "", err
	}

	filename := fmt.Sprintf("recording-%s%s", rec.ID, audioExtension(rec.MimeType))
	return s.server.Storage.PresignedGet(ctx, rec.StorageKey, filename)
}

func audioExtension(mimeType string) string {
	switch mimeType {
	case "audio/webm":
		return ".webm"
	case "audio/mpeg":
		return ".mp3"
	case "audio/mp4":
		return ".m4a"
	case "audio/wav":
		return ".wav"
	case "audio/ogg":
		return ".ogg"
	}
	return ""
}

// Delete soft-deletes a recording and removes the stored audio.
func (s *RecordingsService) Delete(ctx context.Context, user *domain.User, id uuid.UUID) error {
	rec, err := s.owned(ctx, user, id)
	if err != nil {
		return err
	}

	if err := s.repos.Recordings.SoftDelete(ctx, id); err != nil {
		return err
	}

	if err := s.server.Storage.Remove(ctx, rec.StorageKey); err != nil {
		s.server.Logger.Error().Err(err).
			Str("recording_id", id.String()).
			Msg("failed to remove recording object")
	}

	return nil
}

func (s *RecordingsService) owned(ctx context.Context, user *domain.User, id uuid.UUID) (*domain.Recording, error) {
	rec, err := s.repos.Recordings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errs.NewNotFoundError("Recording not found", true, nil)
		}
		return nil, err
	}
	if rec.UserID != user.ID {
		return nil, errs.NewNotFoundError("Recording not found", true, nil)
	}
	return rec, nil
}
