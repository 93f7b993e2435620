package domain

import (
	"time"

	"github.com/google/uuid"
)

// Style profile field keys used in the Confidence map. Confidence values are
// in [0, 1] and come from the edit-history analyzer; a missing key means the
// analyzer has no signal for that field yet.
const (
	StyleFieldGreeting     = "greeting"
	StyleFieldClosing      = "closing"
	StyleFieldSignoff      = "signoff"
	StyleFieldFormality    = "formality"
	StyleFieldVerbosity    = "verbosity"
	StyleFieldSectionOrder = "section_order"
	StyleFieldVocabulary   = "vocabulary"
)

// StyleProfile holds writing-style preferences inferred from a clinician's
// edit history. Subspecialty is nil for the user's global profile and set
// for a subspecialty-scoped one; (UserID, Subspecialty) is unique.
type StyleProfile struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	Subspecialty *string

	// AnalyzedEdits counts the edits the analyzer has processed. A profile
	// with zero analyzed edits carries no usable signal.
	AnalyzedEdits int

	// Confidence maps style field keys to analyzer confidence in [0, 1].
	Confidence map[string]float64

	Greeting     string
	Closing      string
	Signoff      string
	Formality    string
	Verbosity    string
	SectionOrder []string

	// Vocabulary maps phrases the model tends to produce to the phrasing the
	// clinician prefers.
	Vocabulary map[string]string

	Enabled   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsGlobal reports whether the profile is the user's subspecialty-agnostic
// fallback profile.
func (p *StyleProfile) IsGlobal() bool {
	return p.Subspecialty == nil
}
