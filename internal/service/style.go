package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/dictatemed/dictatemed/internal/domain"
	"github.com/dictatemed/dictatemed/internal/errs"
	"github.com/dictatemed/dictatemed/internal/repository"
	"github.com/dictatemed/dictatemed/internal/server"
	"github.com/dictatemed/dictatemed/internal/style"
)

// StyleService manages learned writing-style profiles and turns them into
// prompt conditioning for letter generation.
type StyleService struct {
	server *server.Server
	repos  *repository.Repositories
}

func NewStyleService(s *server.Server, repos *repository.Repositories) *StyleService {
	return &StyleService{
		server: s,
		repos:  repos,
	}
}

// List returns the user's style profiles, global first.
func (s *StyleService) List(ctx context.Context, user *domain.User) ([]domain.StyleProfile, error) {
	return s.repos.StyleProfiles.List(ctx, user.ID)
}

// UpsertProfileInput is the validated input for writing a profile. A nil
// Subspecialty targets the user's global profile.
type UpsertProfileInput struct {
	Subspecialty  *string
	AnalyzedEdits int
	Confidence    map[string]float64
	Greeting      string
	Closing       string
	Signoff       string
	Formality     string
	Verbosity     string
	SectionOrder  []string
	Vocabulary    map[string]string
	Enabled       bool
}

// Upsert creates or replaces the profile for (user, subspecialty).
func (s *StyleService) Upsert(ctx context.Context, user *domain.User, in UpsertProfileInput) (*domain.StyleProfile, error) {
	for field, c := range in.Confidence {
		if c < 0 || c > 1 {
			return nil, errs.NewBadRequestError(
				"Confidence for "+field+" must be between 0 and 1", true, nil, nil, nil)
		}
	}

	return s.repos.StyleProfiles.Upsert(ctx, &domain.StyleProfile{
		UserID:        user.ID,
		Subspecialty:  in.Subspecialty,
		AnalyzedEdits: in.AnalyzedEdits,
		Confidence:    in.Confidence,
		Greeting:      in.Greeting,
		Closing:       in.Closing,
		Signoff:       in.Signoff,
		Formality:     in.Formality,
		Verbosity:     in.Verbosity,
		SectionOrder:  in.SectionOrder,
		Vocabulary:    in.Vocabulary,
		Enabled:       in.Enabled,
	})
}

// SetEnabled toggles one of the user's profiles.
func (s *StyleService) SetEnabled(ctx context.Context, user *domain.User, profileID uuid.UUID, enabled bool) (*domain.StyleProfile, error) {
	profile, err := s.repos.StyleProfiles.GetByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errs.NewNotFoundError("Style profile not found", true, nil)
		}
		return nil, err
	}
	if profile.UserID != user.ID {
		return nil, errs.NewNotFoundError("Style profile not found", true, nil)
	}

	return s.repos.StyleProfiles.SetEnabled(ctx, profileID, enabled)
}

// Resolve runs profile fallback for a subspecialty without rendering.
func (s *StyleService) Resolve(ctx context.Context, user *domain.User, subspecialty string) (style.Resolution, error) {
	var sub *domain.StyleProfile
	if subspecialty != "" {
		p, err := s.repos.StyleProfiles.GetBySubspecialty(ctx, user.ID, subspecialty)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return style.Resolution{}, err
		}
		sub = p
	}

	global, err := s.repos.StyleProfiles.GetGlobal(ctx, user.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return style.Resolution{}, err
	}

	return style.Resolve(sub, global), nil
}

// Condition resolves the effective profile and renders it into prompt
// conditioning, scaled by the user's learning strength.
func (s *StyleService) Condition(ctx context.Context, user *domain.User, subspecialty string) (style.Conditioning, error) {
	res, err := s.Resolve(ctx, user, subspecialty)
	if err != nil {
		return style.Conditioning{}, err
	}
	return style.Render(res, user.LearningStrength), nil
}

// Preview shows which profile level a subspecialty resolves to and the
// fragments that would reach the prompt, so clinicians can see what the
// system learned before it affects a letter.
type Preview struct {
	Source    style.Source
	ProfileID *uuid.UUID
	Fragments []string
}

func (s *StyleService) PreviewConditioning(ctx context.Context, user *domain.User, subspecialty string) (*Preview, error) {
	res, err := s.Resolve(ctx, user, subspecialty)
	if err != nil {
		return nil, err
	}

	cond := style.Render(res, user.LearningStrength)

	preview := &Preview{
		Source:    cond.Source,
		Fragments: cond.Fragments,
	}
	if res.Profile != nil {
		preview.ProfileID = &res.Profile.ID
	}
	return preview, nil
}
