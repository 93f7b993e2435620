package handler

import (
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/dictatemed/dictatemed/internal/domain"
	"github.com/dictatemed/dictatemed/internal/errs"
	"github.com/dictatemed/dictatemed/internal/service"
	"github.com/dictatemed/dictatemed/internal/validation"
)

// LettersHandler exposes the letter workflow: drafting, generation with
// hallucination verification, flag resolution, approval, and export.
type LettersHandler struct {
	Handler
	letters *service.LettersService
}

func NewLettersHandler(h Handler, letters *service.LettersService) *LettersHandler {
	return &LettersHandler{Handler: h, letters: letters}
}

type CreateLetterRequest struct {
	PatientName  string  `json:"patient_name" validate:"required,max=200"`
	PatientDOB   *string `json:"patient_dob" validate:"omitempty,datetime=2006-01-02"`
	Subspecialty string  `json:"subspecialty" validate:"omitempty,max=100"`
	DraftContent string  `json:"draft_content"`
}

func (r *CreateLetterRequest) Validate() error {
	return validation.Struct(r)
}

// Create registers a new draft letter.
func (h *LettersHandler) Create(c echo.Context, req *CreateLetterRequest) (*LetterResponse, error) {
	user, err := h.currentUser(c)
	if err != nil {
		return nil, err
	}

	dob, err := parseOptionalDate(req.PatientDOB)
	if err != nil {
		return nil, err
	}

	letter, err := h.letters.Create(c.Request().Context(), user, service.CreateLetterInput{
		PatientName:  req.PatientName,
		PatientDOB:   dob,
		Subspecialty: req.Subspecialty,
		DraftContent: req.DraftContent,
	})
	if err != nil {
		return nil, err
	}
	return newLetterResponse(letter), nil
}

type ListLettersRequest struct {
	Limit  int `query:"limit" validate:"omitempty,gte=0,lte=100"`
	Offset int `query:"offset" validate:"omitempty,gte=0"`
}

func (r *ListLettersRequest) Validate() error {
	return validation.Struct(r)
}

type ListLettersResponse struct {
	Letters []LetterResponse `json:"letters"`
}

// List returns the clinician's letters, newest first.
func (h *LettersHandler) List(c echo.Context, req *ListLettersRequest) (*ListLettersResponse, error) {
	user, err := h.currentUser(c)
	if err != nil {
		return nil, err
	}

	letters, err := h.letters.List(c.Request().Context(), user, req.Limit, req.Offset)
	if err != nil {
		return nil, err
	}
	return &ListLettersResponse{Letters: newLetterResponses(letters)}, nil
}

type LetterIDRequest struct {
	ID string `param:"id" validate:"required,uuid"`
}

func (r *LetterIDRequest) Validate() error {
	return validation.Struct(r)
}

// Get returns a single letter.
func (h *LettersHandler) Get(c echo.Context, req *LetterIDRequest) (*LetterResponse, error) {
	user, err := h.currentUser(c)
	if err != nil {
		return nil, err
	}

	id, err := parseUUID(req.ID)
	if err != nil {
		return nil, err
	}

	letter, err := h.letters.Get(c.Request().Context(), user, id)
	if err != nil {
		return nil, err
	}
	return newLetterResponse(letter), nil
}

type UpdateLetterRequest struct {
	ID           string  `param:"id" validate:"required,uuid"`
	PatientName  string  `json:"patient_name" validate:"required,max=200"`
	PatientDOB   *string `json:"patient_dob" validate:"omitempty,datetime=2006-01-02"`
	Subspecialty string  `json:"subspecialty" validate:"omitempty,max=100"`
	DraftContent string  `json:"draft_content"`
}

func (r *UpdateLetterRequest) Validate() error {
	return validation.Struct(r)
}

// Update edits a draft or in-review letter. Approved letters refuse edits.
func (h *LettersHandler) Update(c echo.Context, req *UpdateLetterRequest) (*LetterResponse, error) {
	user, err := h.currentUser(c)
	if err != nil {
		return nil, err
	}

	id, err := parseUUID(req.ID)
	if err != nil {
		return nil, err
	}

	dob, err := parseOptionalDate(req.PatientDOB)
	if err != nil {
		return nil, err
	}

	letter, err := h.letters.Update(c.Request().Context(), user, id, service.UpdateLetterInput{
		PatientName:  req.PatientName,
		PatientDOB:   dob,
		Subspecialty: req.Subspecialty,
		DraftContent: req.DraftContent,
	})
	if err != nil {
		return nil, err
	}
	return newLetterResponse(letter), nil
}

// Delete soft-deletes a non-approved letter.
func (h *LettersHandler) Delete(c echo.Context, req *LetterIDRequest) error {
	user, err := h.currentUser(c)
	if err != nil {
		return err
	}

	id, err := parseUUID(req.ID)
	if err != nil {
		return err
	}
	return h.letters.Delete(c.Request().Context(), user, id)
}

type GenerationResponse struct {
	Letter *LetterResponse `json:"letter"`
	Flags  []FlagResponse  `json:"flags"`
}

// Generate drafts the letter with the language model and runs the
// hallucination audit. The letter moves to REVIEW with fresh flags.
func (h *LettersHandler) Generate(c echo.Context, req *LetterIDRequest) (*GenerationResponse, error) {
	user, err := h.currentUser(c)
	if err != nil {
		return nil, err
	}

	id, err := parseUUID(req.ID)
	if err != nil {
		return nil, err
	}

	result, err := h.letters.Generate(c.Request().Context(), user, id)
	if err != nil {
		return nil, err
	}
	return &GenerationResponse{
		Letter: newLetterResponse(result.Letter),
		Flags:  newFlagResponses(result.Flags),
	}, nil
}

type ListFlagsResponse struct {
	Flags []FlagResponse `json:"flags"`
}

// Flags returns the letter's hallucination flags.
func (h *LettersHandler) Flags(c echo.Context, req *LetterIDRequest) (*ListFlagsResponse, error) {
	user, err := h.currentUser(c)
	if err != nil {
		return nil, err
	}

	id, err := parseUUID(req.ID)
	if err != nil {
		return nil, err
	}

	flags, err := h.letters.Flags(c.Request().Context(), user, id)
	if err != nil {
		return nil, err
	}
	return &ListFlagsResponse{Flags: newFlagResponses(flags)}, nil
}

type ResolveFlagRequest struct {
	ID         string `param:"id" validate:"required,uuid"`
	FlagID     string `param:"flag_id" validate:"required,uuid"`
	Resolution string `json:"resolution" validate:"required,oneof=CONFIRMED REMOVED EDITED"`
}

func (r *ResolveFlagRequest) Validate() error {
	return validation.Struct(r)
}

// ResolveFlag records how the clinician dealt with a flagged claim.
func (h *LettersHandler) ResolveFlag(c echo.Context, req *ResolveFlagRequest) (*FlagResponse, error) {
	user, err := h.currentUser(c)
	if err != nil {
		return nil, err
	}

	letterID, err := parseUUID(req.ID)
	if err != nil {
		return nil, err
	}
	flagID, err := parseUUID(req.FlagID)
	if err != nil {
		return nil, err
	}

	flag, err := h.letters.ResolveFlag(c.Request().Context(), user, letterID, flagID,
		domain.FlagResolution(req.Resolution))
	if err != nil {
		return nil, err
	}
	return newFlagResponse(flag), nil
}

// Approve freezes the letter. Every hallucination flag must be resolved.
func (h *LettersHandler) Approve(c echo.Context, req *LetterIDRequest) (*LetterResponse, error) {
	user, err := h.currentUser(c)
	if err != nil {
		return nil, err
	}

	id, err := parseUUID(req.ID)
	if err != nil {
		return nil, err
	}

	letter, err := h.letters.Approve(c.Request().Context(), user, id)
	if err != nil {
		return nil, err
	}
	return newLetterResponse(letter), nil
}

type ListAuditResponse struct {
	Entries []AuditEntryResponse `json:"entries"`
}

// History returns the letter's audit trail.
func (h *LettersHandler) History(c echo.Context, req *LetterIDRequest) (*ListAuditResponse, error) {
	user, err := h.currentUser(c)
	if err != nil {
		return nil, err
	}

	id, err := parseUUID(req.ID)
	if err != nil {
		return nil, err
	}

	entries, err := h.letters.History(c.Request().Context(), user, id)
	if err != nil {
		return nil, err
	}
	return &ListAuditResponse{Entries: newAuditEntryResponses(entries)}, nil
}

// Download exports an approved letter as a plain-text attachment named after
// the patient.
func (h *LettersHandler) Download(c echo.Context, req *LetterIDRequest) (*File, error) {
	user, err := h.currentUser(c)
	if err != nil {
		return nil, err
	}

	id, err := parseUUID(req.ID)
	if err != nil {
		return nil, err
	}

	letter, err := h.letters.Get(c.Request().Context(), user, id)
	if err != nil {
		return nil, err
	}
	if letter.Status != domain.LetterApproved {
		return nil, errs.NewConflictError("Only approved letters can be downloaded", nil)
	}

	name := strings.ReplaceAll(strings.ToLower(letter.PatientName), " ", "-")
	return &File{
		Name:        fmt.Sprintf("letter-%s.txt", name),
		ContentType: "text/plain; charset=utf-8",
		Data:        []byte(letter.FinalContent),
	}, nil
}
