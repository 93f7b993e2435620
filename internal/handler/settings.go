package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/dictatemed/dictatemed/internal/service"
	"github.com/dictatemed/dictatemed/internal/validation"
)

// SettingsHandler exposes the clinician's own account and settings.
type SettingsHandler struct {
	Handler
	users *service.UsersService
}

func NewSettingsHandler(h Handler, users *service.UsersService) *SettingsHandler {
	return &SettingsHandler{Handler: h, users: users}
}

// Me returns the authenticated clinician's account.
func (h *SettingsHandler) Me(c echo.Context, _ *emptyRequest) (*UserResponse, error) {
	user, err := h.currentUser(c)
	if err != nil {
		return nil, err
	}
	return newUserResponse(user), nil
}

type UpdateProfileRequest struct {
	Name         string `json:"name" validate:"required,max=200"`
	Subspecialty string `json:"subspecialty" validate:"omitempty,max=100"`
}

func (r *UpdateProfileRequest) Validate() error {
	return validation.Struct(r)
}

// UpdateProfile changes the display name and default subspecialty.
func (h *SettingsHandler) UpdateProfile(c echo.Context, req *UpdateProfileRequest) (*UserResponse, error) {
	user, err := h.currentUser(c)
	if err != nil {
		return nil, err
	}

	updated, err := h.users.UpdateProfile(c.Request().Context(), user, req.Name, req.Subspecialty)
	if err != nil {
		return nil, err
	}
	return newUserResponse(updated), nil
}

type UpdateLearningStrengthRequest struct {
	// Pointer so an explicit 0 survives required validation.
	Strength *float64 `json:"strength" validate:"required"`
}

func (r *UpdateLearningStrengthRequest) Validate() error {
	return validation.Struct(r)
}

// UpdateLearningStrength sets how strongly learned style preferences apply
// during generation, from 0 (off) to 1 (full).
func (h *SettingsHandler) UpdateLearningStrength(c echo.Context, req *UpdateLearningStrengthRequest) (*UserResponse, error) {
	user, err := h.currentUser(c)
	if err != nil {
		return nil, err
	}

	updated, err := h.users.UpdateLearningStrength(c.Request().Context(), user, *req.Strength)
	if err != nil {
		return nil, err
	}
	return newUserResponse(updated), nil
}

type UpdateSettingsRequest struct {
	Settings map[string]any `json:"settings" validate:"required"`
}

func (r *UpdateSettingsRequest) Validate() error {
	return validation.Struct(r)
}

// UpdateSettings replaces the settings document.
func (h *SettingsHandler) UpdateSettings(c echo.Context, req *UpdateSettingsRequest) (*UserResponse, error) {
	user, err := h.currentUser(c)
	if err != nil {
		return nil, err
	}

	updated, err := h.users.UpdateSettings(c.Request().Context(), user, req.Settings)
	if err != nil {
		return nil, err
	}
	return newUserResponse(updated), nil
}
