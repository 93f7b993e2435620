package handler

import (
	"time"

	"github.com/google/uuid"

	"github.com/dictatemed/dictatemed/internal/domain"
	"github.com/dictatemed/dictatemed/internal/ingest"
)

const dateLayout = "2006-01-02"

// UserResponse is the clinician's own account as returned to the client.
type UserResponse struct {
	ID               uuid.UUID      `json:"id"`
	Email            string         `json:"email"`
	Name             string         `json:"name"`
	PracticeID       *uuid.UUID     `json:"practice_id,omitempty"`
	Subspecialty     string         `json:"subspecialty,omitempty"`
	LearningStrength float64        `json:"learning_strength"`
	Settings         map[string]any `json:"settings"`
	CreatedAt        time.Time      `json:"created_at"`
}

func newUserResponse(u *domain.User) *UserResponse {
	settings := u.Settings
	if settings == nil {
		settings = map[string]any{}
	}
	return &UserResponse{
		ID:               u.ID,
		Email:            u.Email,
		Name:             u.Name,
		PracticeID:       u.PracticeID,
		Subspecialty:     u.Subspecialty,
		LearningStrength: u.LearningStrength,
		Settings:         settings,
		CreatedAt:        u.CreatedAt,
	}
}

// PracticeResponse is a practice as returned to the client.
type PracticeResponse struct {
	ID         uuid.UUID      `json:"id"`
	Name       string         `json:"name"`
	Street     string         `json:"street,omitempty"`
	City       string         `json:"city,omitempty"`
	PostalCode string         `json:"postal_code,omitempty"`
	Phone      string         `json:"phone,omitempty"`
	Letterhead map[string]any `json:"letterhead"`
	CreatedAt  time.Time      `json:"created_at"`
}

func newPracticeResponse(p *domain.Practice) *PracticeResponse {
	letterhead := p.Letterhead
	if letterhead == nil {
		letterhead = map[string]any{}
	}
	return &PracticeResponse{
		ID:         p.ID,
		Name:       p.Name,
		Street:     p.Street,
		City:       p.City,
		PostalCode: p.PostalCode,
		Phone:      p.Phone,
		Letterhead: letterhead,
		CreatedAt:  p.CreatedAt,
	}
}

// LetterResponse is a letter as returned to the client. PatientDOB is
// rendered as a bare date; timestamps keep RFC 3339.
type LetterResponse struct {
	ID              uuid.UUID           `json:"id"`
	PatientName     string              `json:"patient_name"`
	PatientDOB      *string             `json:"patient_dob,omitempty"`
	Subspecialty    string              `json:"subspecialty,omitempty"`
	Status          domain.LetterStatus `json:"status"`
	DraftContent    string              `json:"draft_content"`
	FinalContent    string              `json:"final_content,omitempty"`
	GenerationModel string              `json:"generation_model,omitempty"`
	ApprovedAt      *time.Time          `json:"approved_at,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

func newLetterResponse(l *domain.Letter) *LetterResponse {
	resp := &LetterResponse{
		ID:              l.ID,
		PatientName:     l.PatientName,
		Subspecialty:    l.Subspecialty,
		Status:          l.Status,
		DraftContent:    l.DraftContent,
		FinalContent:    l.FinalContent,
		GenerationModel: l.GenerationModel,
		ApprovedAt:      l.ApprovedAt,
		CreatedAt:       l.CreatedAt,
		UpdatedAt:       l.UpdatedAt,
	}
	if l.PatientDOB != nil {
		dob := l.PatientDOB.Format(dateLayout)
		resp.PatientDOB = &dob
	}
	return resp
}

func newLetterResponses(letters []domain.Letter) []LetterResponse {
	out := make([]LetterResponse, 0, len(letters))
	for i := range letters {
		out = append(out, *newLetterResponse(&letters[i]))
	}
	return out
}

// FlagResponse is a hallucination flag as returned to the client.
type FlagResponse struct {
	ID         uuid.UUID              `json:"id"`
	LetterID   uuid.UUID              `json:"letter_id"`
	Claim      string                 `json:"claim"`
	SpanStart  int                    `json:"span_start"`
	SpanEnd    int                    `json:"span_end"`
	Severity   string                 `json:"severity"`
	Resolved   bool                   `json:"resolved"`
	Resolution *domain.FlagResolution `json:"resolution,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}

func newFlagResponse(f *domain.HallucinationFlag) *FlagResponse {
	return &FlagResponse{
		ID:         f.ID,
		LetterID:   f.LetterID,
		Claim:      f.Claim,
		SpanStart:  f.SpanStart,
		SpanEnd:    f.SpanEnd,
		Severity:   f.Severity,
		Resolved:   f.Resolved,
		Resolution: f.Resolution,
		CreatedAt:  f.CreatedAt,
	}
}

func newFlagResponses(flags []domain.HallucinationFlag) []FlagResponse {
	out := make([]FlagResponse, 0, len(flags))
	for i := range flags {
		out = append(out, *newFlagResponse(&flags[i]))
	}
	return out
}

// AuditEntryResponse is one line of an entity's audit trail.
type AuditEntryResponse struct {
	ID        uuid.UUID      `json:"id"`
	UserID    uuid.UUID      `json:"user_id"`
	Action    string         `json:"action"`
	Detail    map[string]any `json:"detail,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

func newAuditEntryResponses(entries []domain.AuditEntry) []AuditEntryResponse {
	out := make([]AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, AuditEntryResponse{
			ID:        e.ID,
			UserID:    e.UserID,
			Action:    e.Action,
			Detail:    e.Detail,
			CreatedAt: e.CreatedAt,
		})
	}
	return out
}

// RecordingResponse is a dictation recording as returned to the client.
type RecordingResponse struct {
	ID              uuid.UUID              `json:"id"`
	LetterID        *uuid.UUID             `json:"letter_id,omitempty"`
	MimeType        string                 `json:"mime_type"`
	DurationSeconds int                    `json:"duration_seconds"`
	Status          domain.RecordingStatus `json:"status"`
	Transcript      string                 `json:"transcript,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

func newRecordingResponse(r *domain.Recording) *RecordingResponse {
	return &RecordingResponse{
		ID:              r.ID,
		LetterID:        r.LetterID,
		MimeType:        r.MimeType,
		DurationSeconds: r.DurationSeconds,
		Status:          r.Status,
		Transcript:      r.Transcript,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func newRecordingResponses(recs []domain.Recording) []RecordingResponse {
	out := make([]RecordingResponse, 0, len(recs))
	for i := range recs {
		out = append(out, *newRecordingResponse(&recs[i]))
	}
	return out
}

// DocumentResponse is a referral document as returned to the client. The
// extracted text is included so the review screen can show the sources
// alongside the generated letter.
type DocumentResponse struct {
	ID              uuid.UUID             `json:"id"`
	LetterID        *uuid.UUID            `json:"letter_id,omitempty"`
	BatchID         uuid.UUID             `json:"batch_id"`
	Filename        string                `json:"filename"`
	MimeType        string                `json:"mime_type"`
	SizeBytes       int64                 `json:"size_bytes"`
	Status          domain.DocumentStatus `json:"status"`
	ExtractedText   string                `json:"extracted_text,omitempty"`
	ExtractionError string                `json:"extraction_error,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

func newDocumentResponse(d *domain.Document) *DocumentResponse {
	return &DocumentResponse{
		ID:              d.ID,
		LetterID:        d.LetterID,
		BatchID:         d.BatchID,
		Filename:        d.Filename,
		MimeType:        d.MimeType,
		SizeBytes:       d.SizeBytes,
		Status:          d.Status,
		ExtractedText:   d.ExtractedText,
		ExtractionError: d.ExtractionError,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

func newDocumentResponses(docs []domain.Document) []DocumentResponse {
	out := make([]DocumentResponse, 0, len(docs))
	for i := range docs {
		out = append(out, *newDocumentResponse(&docs[i]))
	}
	return out
}

// IngestReportResponse is the settled outcome of one document's extraction.
type IngestReportResponse struct {
	DocumentID uuid.UUID             `json:"document_id"`
	Status     domain.DocumentStatus `json:"status"`
	Error      string                `json:"error,omitempty"`
}

func newIngestReportResponses(reports []ingest.Report) []IngestReportResponse {
	out := make([]IngestReportResponse, 0, len(reports))
	for _, r := range reports {
		resp := IngestReportResponse{
			DocumentID: r.DocumentID,
			Status:     r.Status,
		}
		if r.Err != nil {
			resp.Error = r.Err.Error()
		}
		out = append(out, resp)
	}
	return out
}

// StyleProfileResponse is a style profile as returned to the client.
type StyleProfileResponse struct {
	ID            uuid.UUID          `json:"id"`
	Subspecialty  *string            `json:"subspecialty,omitempty"`
	AnalyzedEdits int                `json:"analyzed_edits"`
	Confidence    map[string]float64 `json:"confidence"`
	Greeting      string             `json:"greeting,omitempty"`
	Closing       string             `json:"closing,omitempty"`
	Signoff       string             `json:"signoff,omitempty"`
	Formality     string             `json:"formality,omitempty"`
	Verbosity     string             `json:"verbosity,omitempty"`
	SectionOrder  []string           `json:"section_order,omitempty"`
	Vocabulary    map[string]string  `json:"vocabulary,omitempty"`
	Enabled       bool               `json:"enabled"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

func newStyleProfileResponse(p *domain.StyleProfile) *StyleProfileResponse {
	confidence := p.Confidence
	if confidence == nil {
		confidence = map[string]float64{}
	}
	return &StyleProfileResponse{
		ID:            p.ID,
		Subspecialty:  p.Subspecialty,
		AnalyzedEdits: p.AnalyzedEdits,
		Confidence:    confidence,
		Greeting:      p.Greeting,
		Closing:       p.Closing,
		Signoff:       p.Signoff,
		Formality:     p.Formality,
		Verbosity:     p.Verbosity,
		SectionOrder:  p.SectionOrder,
		Vocabulary:    p.Vocabulary,
		Enabled:       p.Enabled,
		UpdatedAt:     p.UpdatedAt,
	}
}

func newStyleProfileResponses(profiles []domain.StyleProfile) []StyleProfileResponse {
	out := make([]StyleProfileResponse, 0, len(profiles))
	for i := range profiles {
		out = append(out, *newStyleProfileResponse(&profiles[i]))
	}
	return out
}
