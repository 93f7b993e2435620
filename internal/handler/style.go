package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/dictatemed/dictatemed/internal/service"
	"github.com/dictatemed/dictatemed/internal/validation"
)

// StyleHandler exposes the clinician's learned writing-style profiles.
type StyleHandler struct {
	Handler
	style *service.StyleService
}

func NewStyleHandler(h Handler, style *service.StyleService) *StyleHandler {
	return &StyleHandler{Handler: h, style: style}
}

type ListStyleProfilesResponse struct {
	Profiles []StyleProfileResponse `json:"profiles"`
}

// List returns the clinician's style profiles, global profile first.
func (h *StyleHandler) List(c echo.Context, _ *emptyRequest) (*ListStyleProfilesResponse, error) {
	user, err := h.currentUser(c)
	if err != nil {
		return nil, err
	}

	profiles, err := h.style.List(c.Request().Context(), user)
	if err != nil {
		return nil, err
	}
	return &ListStyleProfilesResponse{Profiles: newStyleProfileResponses(profiles)}, nil
}

type UpsertStyleProfileRequest struct {
	Subspecialty  *string            `json:"subspecialty" validate:"omitempty,max=100"`
	AnalyzedEdits int                `json:"analyzed_edits" validate:"omitempty,gte=0"`
	Confidence    map[string]float64 `json:"confidence"`
	Greeting      string             `json:"greeting" validate:"omitempty,max=500"`
	Closing       string             `json:"closing" validate:"omitempty,max=500"`
	Signoff       string             `json:"signoff" validate:"omitempty,max=500"`
	Formality     string             `json:"formality" validate:"omitempty,max=100"`
	Verbosity     string             `json:"verbosity" validate:"omitempty,max=100"`
	SectionOrder  []string           `json:"section_order"`
	Vocabulary    map[string]string  `json:"vocabulary"`
	Enabled       bool               `json:"enabled"`
}

func (r *UpsertStyleProfileRequest) Validate() error {
	return validation.Struct(r)
}

// Upsert creates or replaces the profile for (user, subspecialty). A null
// subspecialty targets the global fallback profile.
func (h *StyleHandler) Upsert(c echo.Context, req *UpsertStyleProfileRequest) (*StyleProfileResponse, error) {
	user, err := h.currentUser(c)
	if err != nil {
		return nil, err
	}

	profile, err := h.style.Upsert(c.Request().Context(), user, service.UpsertProfileInput{
		Subspecialty:  req.Subspecialty,
		AnalyzedEdits: req.AnalyzedEdits,
		Confidence:    req.Confidence,
		Greeting:      req.Greeting,
		Closing:       req.Closing,
		Signoff:       req.Signoff,
		Formality:     req.Formality,
		Verbosity:     req.Verbosity,
		SectionOrder:  req.SectionOrder,
		Vocabulary:    req.Vocabulary,
		Enabled:       req.Enabled,
	})
	if err != nil {
		return nil, err
	}
	return newStyleProfileResponse(profile), nil
}

type SetProfileEnabledRequest struct {
	ID      string `param:"id" validate:"required,uuid"`
	Enabled *bool  `json:"enabled" validate:"required"`
}

func (r *SetProfileEnabledRequest) Validate() error {
	return validation.Struct(r)
}

// SetEnabled toggles a profile without discarding what was learned.
func (h *StyleHandler) SetEnabled(c echo.Context, req *SetProfileEnabledRequest) (*StyleProfileResponse, error) {
	user, err := h.currentUser(c)
	if err != nil {
		return nil, err
	}

	id, err := parseUUID(req.ID)
	if err != nil {
		return nil, err
	}

	profile, err := h.style.SetEnabled(c.Request().Context(), user, id, *req.Enabled)
	if err != nil {
		return nil, err
	}
	return newStyleProfileResponse(profile), nil
}

type PreviewConditioningRequest struct {
	Subspecialty string `query:"subspecialty" validate:"omitempty,max=100"`
}

func (r *PreviewConditioningRequest) Validate() error {
	return validation.Struct(r)
}

type PreviewConditioningResponse struct {
	Source    string   `json:"source"`
	ProfileID *string  `json:"profile_id,omitempty"`
	Fragments []string `json:"fragments"`
}

// Preview shows which profile a subspecialty resolves to and the fragments
// that would reach the generation prompt.
func (h *StyleHandler) Preview(c echo.Context, req *PreviewConditioningRequest) (*PreviewConditioningResponse, error) {
	user, err := h.currentUser(c)
	if err != nil {
		return nil, err
	}

	preview, err := h.style.PreviewConditioning(c.Request().Context(), user, req.Subspecialty)
	if err != nil {
		return nil, err
	}

	resp := &PreviewConditioningResponse{
		Source:    string(preview.Source),
		Fragments: preview.Fragments,
	}
	if resp.Fragments == nil {
		resp.Fragments = []string{}
	}
	if preview.ProfileID != nil {
		id := preview.ProfileID.String()
		resp.ProfileID = &id
	}
	return resp, nil
}
