package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/dictatemed/dictatemed/internal/domain"
	"github.com/dictatemed/dictatemed/internal/errs"
	"github.com/dictatemed/dictatemed/internal/lib/job"
	"github.com/dictatemed/dictatemed/internal/lib/llm"
	"github.com/dictatemed/dictatemed/internal/repository"
	"github.com/dictatemed/dictatemed/internal/server"
	"github.com/dictatemed/dictatemed/internal/style"
)

// Workflow refusal codes clients branch on.
var (
	codeLetterApproved = "LETTER_APPROVED"
	codeUnresolved     = "UNRESOLVED_HALLUCINATIONS"
	codeNotInReview    = "LETTER_NOT_IN_REVIEW"
)

// txRunner runs a function inside a database transaction.
type txRunner interface {
	WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// lettersStore is the slice of the letters repository this service uses.
type lettersStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, l *domain.Letter) (*domain.Letter, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Letter, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Letter, error)
	UpdateDraftTx(ctx context.Context, tx pgx.Tx, l *domain.Letter) (*domain.Letter, error)
	SetGeneratedTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, content, model string) (*domain.Letter, error)
	ApproveTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, approvedAt time.Time) (*domain.Letter, error)
	SoftDeleteTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
	ReplaceFlagsTx(ctx context.Context, tx pgx.Tx, letterID uuid.UUID, flags []domain.HallucinationFlag) error
	ListFlags(ctx context.Context, letterID uuid.UUID) ([]domain.HallucinationFlag, error)
	GetFlag(ctx context.Context, flagID uuid.UUID) (*domain.HallucinationFlag, error)
	ResolveFlagTx(ctx context.Context, tx pgx.Tx, flagID uuid.UUID, resolution domain.FlagResolution) (*domain.HallucinationFlag, error)
	CountUnresolvedFlags(ctx context.Context, letterID uuid.UUID) (int, error)
}

type auditStore interface {
	InsertTx(ctx context.Context, tx pgx.Tx, e *domain.AuditEntry) error
}

type auditTrail interface {
	ListByEntity(ctx context.Context, entityType string, entityID uuid.UUID, limit int) ([]domain.AuditEntry, error)
}

type recordingsByLetter interface {
	ListByLetter(ctx context.Context, letterID uuid.UUID) ([]domain.Recording, error)
}

type documentsByLetter interface {
	ListByLetter(ctx context.Context, letterID uuid.UUID) ([]domain.Document, error)
}

// conditioner renders the user's style preferences into prompt conditioning.
type conditioner interface {
	Condition(ctx context.Context, user *domain.User, subspecialty string) (style.Conditioning, error)
}

type approvedNoticeQueue interface {
	EnqueueLetterApproved(ctx context.Context, p job.LetterApprovedPayload) error
}

// LettersService owns the letter workflow: drafting, AI generation with
// hallucination verification, flag resolution, and approval.
type LettersService struct {
	logger *zerolog.Logger

	tx         txRunner
	letters    lettersStore
	recordings recordingsByLetter
	documents  documentsByLetter
	audit      auditStore
	trail      auditTrail
	styles     conditioner
	generator  llm.Generator
	queue      approvedNoticeQueue
}

func NewLettersService(s *server.Server, repos *repository.Repositories, styles *StyleService, queue *JobQueue) *LettersService {
	return &LettersService{
		logger:     s.Logger,
		tx:         repos,
		letters:    repos.Letters,
		recordings: repos.Recordings,
		documents:  repos.Documents,
		audit:      repos.Audit,
		trail:      repos.Audit,
		styles:     styles,
		generator:  s.LLM,
		queue:      queue,
	}
}

// CreateLetterInput is the validated input for creating a draft.
type CreateLetterInput struct {
	PatientName  string
	PatientDOB   *time.Time
	Subspecialty string
	DraftContent string
}

// Create inserts a draft letter and its audit entry.
func (s *LettersService) Create(ctx context.Context, user *domain.User, in CreateLetterInput) (*domain.Letter, error) {
	subspecialty := in.Subspecialty
	if subspecialty == "" {
		subspecialty = user.Subspecialty
	}

	var created *domain.Letter
	err := s.tx.WithTx(ctx, func(tx pgx.Tx) error {
		l, err := s.letters.CreateTx(ctx, tx, &domain.Letter{
			UserID:       user.ID,
			PatientName:  in.PatientName,
			PatientDOB:   in.PatientDOB,
			Subspecialty: subspecialty,
			DraftContent: in.DraftContent,
		})
		if err != nil {
			return err
		}
		created = l

		return s.audit.InsertTx(ctx, tx, &domain.AuditEntry{
			UserID:     user.ID,
			EntityType: "letter",
			EntityID:   l.ID,
			Action:     "created",
		})
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// List returns the user's letters, newest first.
func (s *LettersService) List(ctx context.Context, user *domain.User, limit, offset int) ([]domain.Letter, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.letters.ListByUser(ctx, user.ID, limit, offset)
}

// Get fetches one of the user's letters. Letters belonging to other users
// are reported as not found, never as forbidden, so IDs cannot be probed.
func (s *LettersService) Get(ctx context.Context, user *domain.User, id uuid.UUID) (*domain.Letter, error) {
	return s.getOwned(ctx, user, id)
}

// History returns a letter's audit trail, newest first.
func (s *LettersService) History(ctx context.Context, user *domain.User, letterID uuid.UUID) ([]domain.AuditEntry, error) {
	if _, err := s.getOwned(ctx, user, letterID); err != nil {
		return nil, err
	}
	return s.trail.ListByEntity(ctx, "letter", letterID, 100)
}

// Flags returns a letter's hallucination flags.
func (s *LettersService) Flags(ctx context.Context, user *domain.User, letterID uuid.UUID) ([]domain.HallucinationFlag, error) {
	if _, err := s.getOwned(ctx, user, letterID); err != nil {
		return nil, err
	}
	return s.letters.ListFlags(ctx, letterID)
}

// UpdateLetterInput is the validated input for editing a draft.
type UpdateLetterInput struct {
	PatientName  string
	PatientDOB   *time.Time
	Subspecialty string
	DraftContent string
}

// Update edits a letter's patient details and draft content. Approved
// letters are immutable.
func (s *LettersService) Update(ctx context.Context, user *domain.User, id uuid.UUID, in UpdateLetterInput) (*domain.Letter, error) {
	letter, err := s.getOwned(ctx, user, id)
	if err != nil {
		return nil, err
	}
	if letter.Status == domain.LetterApproved {
		return nil, errs.NewForbiddenError("Approved letters cannot be modified", true, &codeLetterApproved)
	}

	var updated *domain.Letter
	err = s.tx.WithTx(ctx, func(tx pgx.Tx) error {
		l, err := s.letters.UpdateDraftTx(ctx, tx, &domain.Letter{
			ID:           id,
			PatientName:  in.PatientName,
			PatientDOB:   in.PatientDOB,
			Subspecialty: in.Subspecialty,
			DraftContent: in.DraftContent,
		})
		if err != nil {
			return err
		}
		updated = l

		return s.audit.InsertTx(ctx, tx, &domain.AuditEntry{
			UserID:     user.ID,
			EntityType: "letter",
			EntityID:   id,
			Action:     "updated",
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete soft-deletes a non-approved letter.
func (s *LettersService) Delete(ctx context.Context, user *domain.User, id uuid.UUID) error {
	letter, err := s.getOwned(ctx, user, id)
	if err != nil {
		return err
	}
	if letter.Status == domain.LetterApproved {
		return errs.NewForbiddenError("Approved letters cannot be deleted", true, &codeLetterApproved)
	}

	return s.tx.WithTx(ctx, func(tx pgx.Tx) error {
		if err := s.letters.SoftDeleteTx(ctx, tx, id); err != nil {
			return err
		}
		return s.audit.InsertTx(ctx, tx, &domain.AuditEntry{
			UserID:     user.ID,
			EntityType: "letter",
			EntityID:   id,
			Action:     "deleted",
		})
	})
}

// GenerationResult is a generated draft plus the flags raised by the
// verification pass.
type GenerationResult struct {
	Letter *domain.Letter
	Flags  []domain.HallucinationFlag
}

// Generate drafts the letter with the LLM from the attached dictation
// transcripts and referral documents, runs the hallucination audit against
// the same sources, and moves the letter to REVIEW with fresh flags.
func (s *LettersService) Generate(ctx context.Context, user *domain.User, letterID uuid.UUID) (*GenerationResult, error) {
	letter, err := s.getOwned(ctx, user, letterID)
	if err != nil {
		return nil, err
	}
	if letter.Status == domain.LetterApproved {
		return nil, errs.NewForbiddenError("Approved letters cannot be regenerated", true, &codeLetterApproved)
	}

	transcript, sources, err := s.collectSources(ctx, letter)
	if err != nil {
		return nil, err
	}
	if transcript == "" && letter.DraftContent == "" {
		return nil, errs.NewBadRequestError(
			"Letter has no transcribed dictation to generate from", true, nil, nil, nil)
	}

	cond, err := s.styles.Condition(ctx, user, letter.Subspecialty)
	if err != nil {
		return nil, err
	}

	var dob string
	if letter.PatientDOB != nil {
		dob = letter.PatientDOB.Format("2006-01-02")
	}

	result, err := s.generator.GenerateLetter(ctx, llm.LetterRequest{
		PatientName:  letter.PatientName,
		PatientDOB:   dob,
		Subspecialty: letter.Subspecialty,
		Transcript:   transcript,
		ReferralText: sources,
		StyleSection: cond.PromptSection(),
	})
	if err != nil {
		return nil, err
	}

	auditSources := sources
	if transcript != "" {
		auditSources = append([]string{transcript}, sources...)
	}

	claims, err := s.generator.AuditLetter(ctx, result.Content, auditSources)
	if err != nil {
		return nil, err
	}

	flags := make([]domain.HallucinationFlag, 0, len(claims))
	for _, c := range claims {
		flags = append(flags, domain.HallucinationFlag{
			LetterID:  letterID,
			Claim:     c.Claim,
			SpanStart: c.SpanStart,
			SpanEnd:   c.SpanEnd,
			Severity:  c.Severity,
		})
	}

	var generated *domain.Letter
	err = s.tx.WithTx(ctx, func(tx pgx.Tx) error {
		l, err := s.letters.SetGeneratedTx(ctx, tx, letterID, result.Content, result.Model)
		if err != nil {
			return err
		}
		generated = l

		if err := s.letters.ReplaceFlagsTx(ctx, tx, letterID, flags); err != nil {
			return err
		}

		return s.audit.InsertTx(ctx, tx, &domain.AuditEntry{
			UserID:     user.ID,
			EntityType: "letter",
			EntityID:   letterID,
			Action:     "generated",
			Detail: map[string]any{
				"model":        result.Model,
				"style_source": string(cond.Source),
				"flag_count":   len(flags),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	allFlags, err := s.letters.ListFlags(ctx, letterID)
	if err != nil {
		return nil, err
	}

	return &GenerationResult{Letter: generated, Flags: allFlags}, nil
}

// ResolveFlag records how the clinician dealt with a flagged claim.
func (s *LettersService) ResolveFlag(ctx context.Context, user *domain.User, letterID, flagID uuid.UUID, resolution domain.FlagResolution) (*domain.HallucinationFlag, error) {
	letter, err := s.getOwned(ctx, user, letterID)
	if err != nil {
		return nil, err
	}
	if letter.Status == domain.LetterApproved {
		return nil, errs.NewForbiddenError("Approved letters cannot be modified", true, &codeLetterApproved)
	}

	flag, err := s.letters.GetFlag(ctx, flagID)
	if err != nil {
		return nil, s.notFoundOr(err, "Flag not found")
	}
	if flag.LetterID != letterID {
		return nil, errs.NewNotFoundError("Flag not found", true, nil)
	}

	var resolved *domain.HallucinationFlag
	err = s.tx.WithTx(ctx, func(tx pgx.Tx) error {
		f, err := s.letters.ResolveFlagTx(ctx, tx, flagID, resolution)
		if err != nil {
			return err
		}
		resolved = f

		return s.audit.InsertTx(ctx, tx, &domain.AuditEntry{
			UserID:     user.ID,
			EntityType: "letter",
			EntityID:   letterID,
			Action:     "flag_resolved",
			Detail: map[string]any{
				"flag_id":    flagID.String(),
				"resolution": string(resolution),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return resolved, nil
}

// Approve freezes the letter. It must be in REVIEW and every hallucination
// flag must be resolved.
func (s *LettersService) Approve(ctx context.Context, user *domain.User, letterID uuid.UUID) (*domain.Letter, error) {
	letter, err := s.getOwned(ctx, user, letterID)
	if err != nil {
		return nil, err
	}
	if letter.Status == domain.LetterApproved {
		return nil, errs.NewForbiddenError("Letter is already approved", true, &codeLetterApproved)
	}
	if letter.Status != domain.LetterReview {
		return nil, errs.NewConflictError("Letter must be generated before it can be approved", &codeNotInReview)
	}

	unresolved, err := s.letters.CountUnresolvedFlags(ctx, letterID)
	if err != nil {
		return nil, err
	}
	if unresolved > 0 {
		return nil, errs.NewBadRequestError(
			"All hallucination flags must be resolved before approval",
			true, &codeUnresolved, nil, nil)
	}

	var approved *domain.Letter
	err = s.tx.WithTx(ctx, func(tx pgx.Tx) error {
		l, err := s.letters.ApproveTx(ctx, tx, letterID, time.Now().UTC())
		if err != nil {
			return err
		}
		approved = l

		return s.audit.InsertTx(ctx, tx, &domain.AuditEntry{
			UserID:     user.ID,
			EntityType: "letter",
			EntityID:   letterID,
			Action:     "approved",
		})
	})
	if err != nil {
		return nil, err
	}

	// Notification is best effort; approval already committed.
	if s.queue != nil {
		notice := job.LetterApprovedPayload{
			To:             user.Email,
			PatientName:    approved.PatientName,
			SpecialistName: user.Name,
			DownloadLink:   fmt.Sprintf("https://app.dictatemed.com/letters/%s", letterID),
		}
		if err := s.queue.EnqueueLetterApproved(ctx, notice); err != nil {
			s.logger.Error().Err(err).
				Str("letter_id", letterID.String()).
				Msg("failed to enqueue letter approved notice")
		}
	}

	return approved, nil
}

// collectSources gathers the transcript text and referral document texts
// used for both generation and the hallucination audit.
func (s *LettersService) collectSources(ctx context.Context, letter *domain.Letter) (string, []string, error) {
	recs, err := s.recordings.ListByLetter(ctx, letter.ID)
	if err != nil {
		return "", nil, err
	}

	var parts []string
	for _, rec := range recs {
		if rec.Status == domain.RecordingTranscribed && rec.Transcript != "" {
			parts = append(parts, rec.Transcript)
		}
	}
	transcript := strings.Join(parts, "\n\n")

	docs, err := s.documents.ListByLetter(ctx, letter.ID)
	if err != nil {
		return "", nil, err
	}

	var sources []string
	for _, d := range docs {
		if d.Status == domain.DocumentExtracted && d.ExtractedText != "" {
			sources = append(sources, d.ExtractedText)
		}
	}

	return transcript, sources, nil
}

func (s *LettersService) getOwned(ctx context.Context, user *domain.User, id uuid.UUID) (*domain.Letter, error) {
	letter, err := s.letters.GetByID(ctx, id)
	if err != nil {
		return nil, s.notFoundOr(err, "Letter not found")
	}
	if letter.UserID != user.ID {
		return nil, errs.NewNotFoundError("Letter not found", true, nil)
	}
	return letter, nil
}

func (s *LettersService) notFoundOr(err error, message string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return errs.NewNotFoundError(message, true, nil)
	}
	return err
}
