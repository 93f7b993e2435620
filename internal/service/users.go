package service

import (
	"context"

	"github.com/dictatemed/dictatemed/internal/domain"
	"github.com/dictatemed/dictatemed/internal/errs"
	"github.com/dictatemed/dictatemed/internal/repository"
	"github.com/dictatemed/dictatemed/internal/server"
	"github.com/dictatemed/dictatemed/internal/style"
)

// UsersService manages the clinician's own account settings.
type UsersService struct {
	server *server.Server
	repos  *repository.Repositories
}

func NewUsersService(s *server.Server, repos *repository.Repositories) *UsersService {
	return &UsersService{
		server: s,
		repos:  repos,
	}
}

// UpdateProfile changes the user's display name and default subspecialty.
func (s *UsersService) UpdateProfile(ctx context.Context, user *domain.User, name, subspecialty string) (*domain.User, error) {
	return s.repos.Users.UpdateProfile(ctx, user.ID, name, subspecialty)
}

// UpdateLearningStrength sets how strongly learned style preferences apply
// during generation. Values outside [0, 1] are rejected rather than clamped
// so the client learns about the mistake.
func (s *UsersService) UpdateLearningStrength(ctx context.Context, user *domain.User, strength float64) (*domain.User, error) {
	if strength != style.ClampStrength(strength) {
		return nil, errs.NewBadRequestError(
			"Learning strength must be between 0 and 1", true, nil, nil, nil)
	}
	return s.repos.Users.UpdateLearningStrength(ctx, user.ID, strength)
}

// UpdateSettings replaces the user's settings document.
func (s *UsersService) UpdateSettings(ctx context.Context, user *domain.User, settings map[string]any) (*domain.User, error) {
	if settings == nil {
		settings = map[string]any{}
	}
	return s.repos.Users.UpdateSettings(ctx, user.ID, settings)
}
