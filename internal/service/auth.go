package service

import (
	"context"
	"errors"
	"strings"

	"github.com/clerk/clerk-sdk-go/v2"
	clerkuser "github.com/clerk/clerk-sdk-go/v2/user"

	"github.com/dictatemed/dictatemed/internal/domain"
	"github.com/dictatemed/dictatemed/internal/errs"
	"github.com/dictatemed/dictatemed/internal/repository"
	"github.com/dictatemed/dictatemed/internal/server"
)

// AuthService bridges Clerk identities to local user rows.
type AuthService struct {
	server *server.Server
	repos  *repository.Repositories
}

// NewAuthService configures the Clerk SDK and returns the service.
func NewAuthService(s *server.Server, repos *repository.Repositories) *AuthService {
	clerk.SetKey(s.Config.Auth.SecretKey)
	return &AuthService{
		server: s,
		repos:  repos,
	}
}

// EnsureUser resolves a Clerk user ID to the local user row, creating it on
// first contact from the Clerk profile.
func (s *AuthService) EnsureUser(ctx context.Context, clerkID string) (*domain.User, error) {
	u, err := s.repos.Users.GetByClerkID(ctx, clerkID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	profile, err := clerkuser.Get(ctx, clerkID)
	if err != nil {
		s.server.Logger.Error().Err(err).Str("clerk_id", clerkID).
			Msg("failed to fetch Clerk profile")
		return nil, errs.NewUnauthorizedError("Unauthorized", false)
	}

	email := primaryEmail(profile)
	if email == "" {
		return nil, errs.NewUnauthorizedError("Account has no email address", true)
	}

	return s.repos.Users.UpsertByClerkID(ctx, clerkID, email, fullName(profile))
}

func primaryEmail(u *clerk.User) string {
	if u == nil {
		return ""
	}
	for _, addr := range u.EmailAddresses {
		if addr == nil {
			continue
		}
		if u.PrimaryEmailAddressID != nil && addr.ID == *u.PrimaryEmailAddressID {
			return addr.EmailAddress
		}
	}
	if len(u.EmailAddresses) > 0 && u.EmailAddresses[0] != nil {
		return u.EmailAddresses[0].EmailAddress
	}
	return ""
}

func fullName(u *clerk.User) string {
	if u == nil {
		return ""
	}
	var parts []string
	if u.FirstName != nil && *u.FirstName != "" {
		parts = append(parts, *u.FirstName)
	}
	if u.LastName != nil && *u.LastName != "" {
		parts = append(parts, *u.LastName)
	}
	return strings.Join(parts, " ")
}
