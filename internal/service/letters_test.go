package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dictatemed/dictatemed/internal/domain"
	"github.com/dictatemed/dictatemed/internal/errs"
	"github.com/dictatemed/dictatemed/internal/lib/job"
	"github.com/dictatemed/dictatemed/internal/lib/llm"
	"github.com/dictatemed/dictatemed/internal/repository"
	"github.com/dictatemed/dictatemed/internal/style"
)

// stubTx runs the closure without a real transaction; the stub stores
// ignore their tx argument.
type stubTx struct{}

func (stubTx) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return fn(nil)
}

type stubLetters struct {
	letters map[uuid.UUID]*domain.Letter
	flags   map[uuid.UUID]*domain.HallucinationFlag
}

func newStubLetters() *stubLetters {
	return &stubLetters{
		letters: make(map[uuid.UUID]*domain.Letter),
		flags:   make(map[uuid.UUID]*domain.HallucinationFlag),
	}
}

func (s *stubLetters) add(l domain.Letter) *domain.Letter {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	s.letters[l.ID] = &l
	return &l
}

func (s *stubLetters) addFlag(f domain.HallucinationFlag) *domain.HallucinationFlag {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	s.flags[f.ID] = &f
	return &f
}

func (s *stubLetters) CreateTx(ctx context.Context, tx pgx.Tx, l *domain.Letter) (*domain.Letter, error) {
	created := *l
	created.ID = uuid.New()
	created.Status = domain.LetterDraft
	s.letters[created.ID] = &created
	return &created, nil
}

func (s *stubLetters) GetByID(ctx context.Context, id uuid.UUID) (*domain.Letter, error) {
	l, ok := s.letters[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *l
	return &copied, nil
}

func (s *stubLetters) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Letter, error) {
	var out []domain.Letter
	for _, l := range s.letters {
		if l.UserID == userID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (s *stubLetters) UpdateDraftTx(ctx context.Context, tx pgx.Tx, l *domain.Letter) (*domain.Letter, error) {
	cur, ok := s.letters[l.ID]
	if !ok || cur.Status == domain.LetterApproved {
		return nil, repository.ErrNotFound
	}
	cur.PatientName = l.PatientName
	cur.PatientDOB = l.PatientDOB
	cur.Subspecialty = l.Subspecialty
	cur.DraftContent = l.DraftContent
	copied := *cur
	return &copied, nil
}

func (s *stubLetters) SetGeneratedTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, content, model string) (*domain.Letter, error) {
	cur, ok := s.letters[id]
	if !ok || cur.Status == domain.LetterApproved {
		return nil, repository.ErrNotFound
	}
	cur.DraftContent = content
	cur.GenerationModel = model
	cur.Status = domain.LetterReview
	copied := *cur
	return &copied, nil
}

func (s *stubLetters) ApproveTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, approvedAt time.Time) (*domain.Letter, error) {
	cur, ok := s.letters[id]
	if !ok || cur.Status != domain.LetterReview {
		return nil, repository.ErrNotFound
	}
	cur.FinalContent = cur.DraftContent
	cur.Status = domain.LetterApproved
	cur.ApprovedAt = &approvedAt
	copied := *cur
	return &copied, nil
}

func (s *stubLetters) SoftDeleteTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	cur, ok := s.letters[id]
	if !ok || cur.Status == domain.LetterApproved {
		return repository.ErrNotFound
	}
	delete(s.letters, id)
	return nil
}

func (s *stubLetters) ReplaceFlagsTx(ctx context.Context, tx pgx.Tx, letterID uuid.UUID, flags []domain.HallucinationFlag) error {
	for id, f := range s.flags {
		if f.LetterID == letterID && !f.Resolved {
			delete(s.flags, id)
		}
	}
	for _, f := range flags {
		s.addFlag(f)
	}
	return nil
}

func (s *stubLetters) ListFlags(ctx context.Context, letterID uuid.UUID) ([]domain.HallucinationFlag, error) {
	var out []domain.HallucinationFlag
	for _, f := range s.flags {
		if f.LetterID == letterID {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (s *stubLetters) GetFlag(ctx context.Context, flagID uuid.UUID) (*domain.HallucinationFlag, error) {
	f, ok := s.flags[flagID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *f
	return &copied, nil
}

func (s *stubLetters) ResolveFlagTx(ctx context.Context, tx pgx.Tx, flagID uuid.UUID, resolution domain.FlagResolution) (*domain.HallucinationFlag, error) {
	f, ok := s.flags[flagID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	f.Resolved = true
	f.Resolution = &resolution
	copied := *f
	return &copied, nil
}

func (s *stubLetters) CountUnresolvedFlags(ctx context.Context, letterID uuid.UUID) (int, error) {
	n := 0
	for _, f := range s.flags {
		if f.LetterID == letterID && !f.Resolved {
			n++
		}
	}
	return n, nil
}

type stubAudit struct {
	entries []domain.AuditEntry
}

func (s *stubAudit) InsertTx(ctx context.Context, tx pgx.Tx, e *domain.AuditEntry) error {
	s.entries = append(s.entries, *e)
	return nil
}

type stubRecordings struct {
	byLetter map[uuid.UUID][]domain.Recording
}

func (s *stubRecordings) ListByLetter(ctx context.Context, letterID uuid.UUID) ([]domain.Recording, error) {
	return s.byLetter[letterID], nil
}

type stubDocuments struct {
	byLetter map[uuid.UUID][]domain.Document
}

func (s *stubDocuments) ListByLetter(ctx context.Context, letterID uuid.UUID) ([]domain.Document, error) {
	return s.byLetter[letterID], nil
}

type stubConditioner struct {
	cond style.Conditioning
}

func (s *stubConditioner) Condition(ctx context.Context, user *domain.User, subspecialty string) (style.Conditioning, error) {
	return s.cond, nil
}

type fakeGenerator struct {
	lastRequest llm.LetterRequest
	claims      []llm.Claim
}

func (g *fakeGenerator) GenerateLetter(ctx context.Context, req llm.LetterRequest) (llm.LetterResult, error) {
	g.lastRequest = req
	return llm.LetterResult{Content: "Dear Doctor,\nGenerated letter body.", Model: "test-model"}, nil
}

func (g *fakeGenerator) ExtractDocument(ctx context.Context, data []byte, mimeType string) (string, error) {
	return "extracted", nil
}

func (g *fakeGenerator) AuditLetter(ctx context.Context, letter string, sources []string) ([]llm.Claim, error) {
	return g.claims, nil
}

type stubQueue struct {
	notices []job.LetterApprovedPayload
}

func (s *stubQueue) EnqueueLetterApproved(ctx context.Context, p job.LetterApprovedPayload) error {
	s.notices = append(s.notices, p)
	return nil
}

type lettersFixture struct {
	svc        *LettersService
	letters    *stubLetters
	audit      *stubAudit
	recordings *stubRecordings
	documents  *stubDocuments
	generator  *fakeGenerator
	queue      *stubQueue
	user       *domain.User
}

func newLettersFixture() *lettersFixture {
	log := zerolog.Nop()
	letters := newStubLetters()
	audit := &stubAudit{}
	recordings := &stubRecordings{byLetter: make(map[uuid.UUID][]domain.Recording)}
	documents := &stubDocuments{byLetter: make(map[uuid.UUID][]domain.Document)}
	generator := &fakeGenerator{}
	queue := &stubQueue{}

	svc := &LettersService{
		logger:     &log,
		tx:         stubTx{},
		letters:    letters,
		recordings: recordings,
		documents:  documents,
		audit:      audit,
		styles:     &stubConditioner{},
		generator:  generator,
		queue:      queue,
	}

	return &lettersFixture{
		svc:        svc,
		letters:    letters,
		audit:      audit,
		recordings: recordings,
		documents:  documents,
		generator:  generator,
		queue:      queue,
		user: &domain.User{
			ID:               uuid.New(),
			Email:            "dr@example.com",
			Name:             "Dr. Example",
			LearningStrength: 1.0,
		},
	}
}

func httpStatus(t *testing.T, err error) (int, string) {
	t.Helper()
	httpErr, ok := err.(*errs.HTTPError)
	require.True(t, ok, "expected *errs.HTTPError, got %T: %v", err, err)
	return httpErr.Status, httpErr.Code
}

func TestGetHidesOtherUsersLetters(t *testing.T) {
	f := newLettersFixture()
	other := f.letters.add(domain.Letter{UserID: uuid.New(), Status: domain.LetterDraft})

	_, err := f.svc.Get(context.Background(), f.user, other.ID)

	status, _ := httpStatus(t, err)
	assert.Equal(t, 404, status, "cross-user access must look like a missing letter")
}

func TestUpdateApprovedLetterIsForbidden(t *testing.T) {
	f := newLettersFixture()
	approved := f.letters.add(domain.Letter{UserID: f.user.ID, Status: domain.LetterApproved})

	_, err := f.svc.Update(context.Background(), f.user, approved.ID, UpdateLetterInput{PatientName: "X"})

	status, code := httpStatus(t, err)
	assert.Equal(t, 403, status)
	assert.Equal(t, "LETTER_APPROVED", code)
}

func TestDeleteApprovedLetterIsForbidden(t *testing.T) {
	f := newLettersFixture()
	approved := f.letters.add(domain.Letter{UserID: f.user.ID, Status: domain.LetterApproved})

	err := f.svc.Delete(context.Background(), f.user, approved.ID)

	status, code := httpStatus(t, err)
	assert.Equal(t, 403, status)
	assert.Equal(t, "LETTER_APPROVED", code)
}

func TestGenerateMovesLetterToReviewWithFlags(t *testing.T) {
	f := newLettersFixture()
	letter := f.letters.add(domain.Letter{UserID: f.user.ID, Status: domain.LetterDraft, Subspecialty: "electrophysiology"})
	f.recordings.byLetter[letter.ID] = []domain.Recording{
		{Status: domain.RecordingTranscribed, Transcript: "Patient reports palpitations."},
	}
	f.documents.byLetter[letter.ID] = []domain.Document{
		{Status: domain.DocumentExtracted, ExtractedText: "GP referral noting AF."},
	}
	f.generator.claims = []llm.Claim{
		{Claim: "on 5mg bisoprolol", SpanStart: 10, SpanEnd: 28, Severity: "high"},
	}

	result, err := f.svc.Generate(context.Background(), f.user, letter.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.LetterReview, result.Letter.Status)
	assert.Equal(t, "test-model", result.Letter.GenerationModel)
	require.Len(t, result.Flags, 1)
	assert.Equal(t, "on 5mg bisoprolol", result.Flags[0].Claim)
	assert.False(t, result.Flags[0].Resolved)

	assert.Equal(t, "Patient reports palpitations.", f.generator.lastRequest.Transcript)
	assert.Equal(t, []string{"GP referral noting AF."}, f.generator.lastRequest.ReferralText)
}

func TestGenerateWithNothingToGenerateFrom(t *testing.T) {
	f := newLettersFixture()
	letter := f.letters.add(domain.Letter{UserID: f.user.ID, Status: domain.LetterDraft})

	_, err := f.svc.Generate(context.Background(), f.user, letter.ID)

	status, _ := httpStatus(t, err)
	assert.Equal(t, 400, status)
}

func TestGenerateApprovedLetterIsForbidden(t *testing.T) {
	f := newLettersFixture()
	approved := f.letters.add(domain.Letter{UserID: f.user.ID, Status: domain.LetterApproved})

	_, err := f.svc.Generate(context.Background(), f.user, approved.ID)

	status, code := httpStatus(t, err)
	assert.Equal(t, 403, status)
	assert.Equal(t, "LETTER_APPROVED", code)
}

func TestApproveRequiresReviewStatus(t *testing.T) {
	f := newLettersFixture()
	draft := f.letters.add(domain.Letter{UserID: f.user.ID, Status: domain.LetterDraft})

	_, err := f.svc.Approve(context.Background(), f.user, draft.ID)

	status, code := httpStatus(t, err)
	assert.Equal(t, 409, status)
	assert.Equal(t, "LETTER_NOT_IN_REVIEW", code)
}

func TestApproveBlockedByUnresolvedFlags(t *testing.T) {
	f := newLettersFixture()
	letter := f.letters.add(domain.Letter{UserID: f.user.ID, Status: domain.LetterReview})
	f.letters.addFlag(domain.HallucinationFlag{LetterID: letter.ID, Claim: "unsupported dose"})

	_, err := f.svc.Approve(context.Background(), f.user, letter.ID)

	status, code := httpStatus(t, err)
	assert.Equal(t, 400, status)
	assert.Equal(t, "UNRESOLVED_HALLUCINATIONS", code)
	assert.Empty(t, f.queue.notices)
}

func TestApproveFreezesLetterAndNotifies(t *testing.T) {
	f := newLettersFixture()
	letter := f.letters.add(domain.Letter{
		UserID:       f.user.ID,
		Status:       domain.LetterReview,
		PatientName:  "Jane Citizen",
		DraftContent: "Final draft text.",
	})
	flag := f.letters.addFlag(domain.HallucinationFlag{LetterID: letter.ID, Claim: "x"})
	_, err := f.svc.ResolveFlag(context.Background(), f.user, letter.ID, flag.ID, domain.FlagConfirmed)
	require.NoError(t, err)

	approved, err := f.svc.Approve(context.Background(), f.user, letter.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.LetterApproved, approved.Status)
	assert.Equal(t, "Final draft text.", approved.FinalContent)
	require.NotNil(t, approved.ApprovedAt)

	require.Len(t, f.queue.notices, 1)
	assert.Equal(t, "dr@example.com", f.queue.notices[0].To)
	assert.Equal(t, "Jane Citizen", f.queue.notices[0].PatientName)

	// Approval is immutable from here on.
	_, err = f.svc.Update(context.Background(), f.user, letter.ID, UpdateLetterInput{PatientName: "Y"})
	status, code := httpStatus(t, err)
	assert.Equal(t, 403, status)
	assert.Equal(t, "LETTER_APPROVED", code)
}

func TestResolveFlagFromAnotherLetter(t *testing.T) {
	f := newLettersFixture()
	letter := f.letters.add(domain.Letter{UserID: f.user.ID, Status: domain.LetterReview})
	otherLetter := f.letters.add(domain.Letter{UserID: f.user.ID, Status: domain.LetterReview})
	flag := f.letters.addFlag(domain.HallucinationFlag{LetterID: otherLetter.ID, Claim: "x"})

	_, err := f.svc.ResolveFlag(context.Background(), f.user, letter.ID, flag.ID, domain.FlagRemoved)

	status, _ := httpStatus(t, err)
	assert.Equal(t, 404, status)
}

func TestCreateWritesAuditEntry(t *testing.T) {
	f := newLettersFixture()

	letter, err := f.svc.Create(context.Background(), f.user, CreateLetterInput{
		PatientName: "Jane Citizen",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.LetterDraft, letter.Status)
	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, "created", f.audit.entries[0].Action)
	assert.Equal(t, letter.ID, f.audit.entries[0].EntityID)
}

func TestCreateInheritsUserSubspecialty(t *testing.T) {
	f := newLettersFixture()
	f.user.Subspecialty = "imaging"

	letter, err := f.svc.Create(context.Background(), f.user, CreateLetterInput{PatientName: "J"})
	require.NoError(t, err)
	assert.Equal(t, "imaging", letter.Subspecialty)
}
