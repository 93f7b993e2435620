package job

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/dictatemed/dictatemed/internal/domain"
	"github.com/google/uuid"
)

// Deps are the collaborators job handlers need. They are interfaces so the
// package does not import the repository layer, which sits above it in the
// dependency graph.
type Deps struct {
	Documents DocumentStore
	Objects   ObjectStore
	Extractor Extractor
	Mailer    Mailer
}

// DocumentStore is the slice of the documents repository handlers use.
type DocumentStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Document, error)
	ReplaceExtractedText(ctx context.Context, id uuid.UUID, text string) error
}

// ObjectStore fetches stored file bytes.
type ObjectStore interface {
	Get(ctx context.Context, storageKey string) ([]byte, error)
}

// Extractor runs the deep text extraction.
type Extractor interface {
	ExtractDocument(ctx context.Context, data []byte, mimeType string) (string, error)
}

// Mailer sends the notification emails handlers produce.
type Mailer interface {
	SendPracticeInvite(to, practiceName, inviterName, acceptLink string) error
	SendLetterApprovedNotice(to, patientName, specialistName, downloadLink string) error
}

// handleFullExtractTask re-extracts a referral document at full fidelity and
// replaces the fast-pass text. Returning an error lets Asynq retry.
func (j *JobService) handleFullExtractTask(ctx context.Context, t *asynq.Task) error {
	var p FullExtractPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("failed to unmarshal full extract payload: %w", err)
	}

	log := j.logger.With().
		Str("type", TaskReferralFullExtract).
		Str("document_id", p.DocumentID.String()).
		Logger()

	doc, err := j.deps.Documents.GetByID(ctx, p.DocumentID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load document for full extraction")
		return err
	}

	// Deleted between enqueue and execution. Nothing to do.
	if doc.DeletedAt != nil {
		log.Info().Msg("Document deleted, skipping full extraction")
		return nil
	}

	data, err := j.deps.Objects.Get(ctx, doc.StorageKey)
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch document from object store")
		return err
	}

	text, err := j.deps.Extractor.ExtractDocument(ctx, data, doc.MimeType)
	if err != nil {
		log.Error().Err(err).Msg("Full extraction failed")
		return err
	}

	if err := j.deps.Documents.ReplaceExtractedText(ctx, doc.ID, text); err != nil {
		log.Error().Err(err).Msg("Failed to store full extraction result")
		return err
	}

	log.Info().Int("text_len", len(text)).Msg("Full extraction complete")
	return nil
}

// handlePracticeInviteTask sends a practice invitation email.
func (j *JobService) handlePracticeInviteTask(ctx context.Context, t *asynq.Task) error {
	var p PracticeInvitePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("failed to unmarshal practice invite payload: %w", err)
	}

	log := j.logger.With().
		Str("type", TaskPracticeInvite).
		Str("to", p.To).
		Logger()

	if err := j.deps.Mailer.SendPracticeInvite(p.To, p.PracticeName, p.InviterName, p.AcceptLink); err != nil {
		log.Error().Err(err).Msg("Failed to send practice invite")
		return err
	}

	log.Info().Msg("Practice invite sent")
	return nil
}

// handleLetterApprovedTask notifies the referrer that a letter is final.
func (j *JobService) handleLetterApprovedTask(ctx context.Context, t *asynq.Task) error {
	var p LetterApprovedPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("failed to unmarshal letter approved payload: %w", err)
	}

	log := j.logger.With().
		Str("type", TaskLetterApprovedNotice).
		Str("to", p.To).
		Logger()

	if err := j.deps.Mailer.SendLetterApprovedNotice(p.To, p.PatientName, p.SpecialistName, p.DownloadLink); err != nil {
		log.Error().Err(err).Msg("Failed to send letter approved notice")
		return err
	}

	log.Info().Msg("Letter approved notice sent")
	return nil
}
