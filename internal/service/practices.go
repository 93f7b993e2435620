package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dictatemed/dictatemed/internal/domain"
	"github.com/dictatemed/dictatemed/internal/errs"
	"github.com/dictatemed/dictatemed/internal/lib/job"
	"github.com/dictatemed/dictatemed/internal/repository"
	"github.com/dictatemed/dictatemed/internal/server"
)

// PracticesService manages practices and membership.
type PracticesService struct {
	server *server.Server
	repos  *repository.Repositories
	queue  *JobQueue
}

func NewPracticesService(s *server.Server, repos *repository.Repositories, queue *JobQueue) *PracticesService {
	return &PracticesService{
		server: s,
		repos:  repos,
		queue:  queue,
	}
}

// PracticeInput is the validated input for creating or updating a practice.
type PracticeInput struct {
	Name       string
	Street     string
	City       string
	PostalCode string
	Phone      string
	Letterhead map[string]any
}

// Create creates a practice and attaches the creator to it.
func (s *PracticesService) Create(ctx context.Context, user *domain.User, in PracticeInput) (*domain.Practice, error) {
	if user.PracticeID != nil {
		return nil, errs.NewConflictError("You already belong to a practice", nil)
	}

	practice, err := s.repos.Practices.Create(ctx, &domain.Practice{
		Name:       in.Name,
		Street:     in.Street,
		City:       in.City,
		PostalCode: in.PostalCode,
		Phone:      in.Phone,
		Letterhead: in.Letterhead,
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.repos.Users.SetPractice(ctx, user.ID, practice.ID); err != nil {
		return nil, err
	}

	return practice, nil
}

// Get returns the user's practice.
func (s *PracticesService) Get(ctx context.Context, user *domain.User) (*domain.Practice, error) {
	if user.PracticeID == nil {
		return nil, errs.NewNotFoundError("You do not belong to a practice", true, nil)
	}

	practice, err := s.repos.Practices.GetByID(ctx, *user.PracticeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errs.NewNotFoundError("Practice not found", true, nil)
		}
		return nil, err
	}
	return practice, nil
}

// Update replaces the practice's details.
func (s *PracticesService) Update(ctx context.Context, user *domain.User, in PracticeInput) (*domain.Practice, error) {
	practice, err := s.Get(ctx, user)
	if err != nil {
		return nil, err
	}

	practice.Name = in.Name
	practice.Street = in.Street
	practice.City = in.City
	practice.PostalCode = in.PostalCode
	practice.Phone = in.Phone
	practice.Letterhead = in.Letterhead

	return s.repos.Practices.Update(ctx, practice)
}

// Members lists the practice's clinicians.
func (s *PracticesService) Members(ctx context.Context, user *domain.User) ([]domain.User, error) {
	if user.PracticeID == nil {
		return nil, errs.NewNotFoundError("You do not belong to a practice", true, nil)
	}
	return s.repos.Users.ListByPractice(ctx, *user.PracticeID)
}

// Invite emails an invitation to join the user's practice. Delivery runs in
// the background; the request returns once the task is enqueued.
func (s *PracticesService) Invite(ctx context.Context, user *domain.User, email string) error {
	practice, err := s.Get(ctx, user)
	if err != nil {
		return err
	}

	return s.queue.EnqueuePracticeInvite(ctx, job.PracticeInvitePayload{
		To:           email,
		PracticeName: practice.Name,
		InviterName:  user.Name,
		AcceptLink:   fmt.Sprintf("https://app.dictatemed.com/practices/%s/join", practice.ID),
	})
}
