package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/dictatemed/dictatemed/internal/service"
	"github.com/dictatemed/dictatemed/internal/validation"
)

// PracticesHandler exposes practice management endpoints.
type PracticesHandler struct {
	Handler
	practices *service.PracticesService
}

func NewPracticesHandler(h Handler, practices *service.PracticesService) *PracticesHandler {
	return &PracticesHandler{Handler: h, practices: practices}
}

type PracticeRequest struct {
	Name       string         `json:"name" validate:"required,max=200"`
	Street     string         `json:"street" validate:"omitempty,max=200"`
	City       string         `json:"city" validate:"omitempty,max=100"`
	PostalCode string         `json:"postal_code" validate:"omitempty,max=20"`
	Phone      string         `json:"phone" validate:"omitempty,max=30"`
	Letterhead map[string]any `json:"letterhead"`
}

func (r *PracticeRequest) Validate() error {
	return validation.Struct(r)
}

func (r *PracticeRequest) input() service.PracticeInput {
	return service.PracticeInput{
		Name:       r.Name,
		Street:     r.Street,
		City:       r.City,
		PostalCode: r.PostalCode,
		Phone:      r.Phone,
		Letterhead: r.Letterhead,
	}
}

// Create creates a practice and attaches the clinician to it.
func (h *PracticesHandler) Create(c echo.Context, req *PracticeRequest) (*PracticeResponse, error) {
	user, err := h.currentUser(c)
	if err != nil {
		return nil, err
	}

	practice, err := h.practices.Create(c.Request().Context(), user, req.input())
	if err != nil {
		return nil, err
	}
	return newPracticeResponse(practice), nil
}

// Get returns the clinician's practice.
func (h *PracticesHandler) Get(c echo.Context, _ *emptyRequest) (*PracticeResponse, error) {
	user, err := h.currentUser(c)
	if err != nil {
		return nil, err
	}

	practice, err := h.practices.Get(c.Request().Context(), user)
	if err != nil {
		return nil, err
	}
	return newPracticeResponse(practice), nil
}

// Update replaces the practice's details.
func (h *PracticesHandler) Update(c echo.Context, req *PracticeRequest) (*PracticeResponse, error) {
	user, err := h.currentUser(c)
	if err != nil {
		return nil, err
	}

	practice, err := h.practices.Update(c.Request().Context(), user, req.input())
	if err != nil {
		return nil, err
	}
	return newPracticeResponse(practice), nil
}

type ListMembersResponse struct {
	Members []UserResponse `json:"members"`
}

// Members lists the practice's clinicians.
func (h *PracticesHandler) Members(c echo.Context, _ *emptyRequest) (*ListMembersResponse, error) {
	user, err := h.currentUser(c)
	if err != nil {
		return nil, err
	}

	members, err := h.practices.Members(c.Request().Context(), user)
	if err != nil {
		return nil, err
	}

	out := make([]UserResponse, 0, len(members))
	for i := range members {
		out = append(out, *newUserResponse(&members[i]))
	}
	return &ListMembersResponse{Members: out}, nil
}

type InviteRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (r *InviteRequest) Validate() error {
	return validation.Struct(r)
}

// Invite queues an invitation email to join the clinician's practice.
func (h *PracticesHandler) Invite(c echo.Context, req *InviteRequest) error {
	user, err := h.currentUser(c)
	if err != nil {
		return err
	}
	return h.practices.Invite(c.Request().Context(), user, req.Email)
}
