package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/dictatemed/dictatemed/internal/lib/job"
	"github.com/dictatemed/dictatemed/internal/repository"
	"github.com/dictatemed/dictatemed/internal/server"
)

// Services is the container for all service instances.
type Services struct {
	Auth       *AuthService
	Users      *UsersService
	Letters    *LettersService
	Recordings *RecordingsService
	Referrals  *ReferralsService
	Style      *StyleService
	Practices  *PracticesService
	Job        *job.JobService
}

// NewServices constructs the service container.
func NewServices(s *server.Server, repos *repository.Repositories) (*Services, error) {
	queue := NewJobQueue(s.Job.Client)

	styleService := NewStyleService(s, repos)

	return &Services{
		Auth:       NewAuthService(s, repos),
		Users:      NewUsersService(s, repos),
		Letters:    NewLettersService(s, repos, styleService, queue),
		Recordings: NewRecordingsService(s, repos),
		Referrals:  NewReferralsService(s, repos, queue),
		Style:      styleService,
		Practices:  NewPracticesService(s, repos, queue),
		Job:        s.Job,
	}, nil
}

// JobQueue adapts the asynq client to the narrow enqueue interfaces the
// services and the ingestion pipeline depend on.
type JobQueue struct {
	client *asynq.Client
}

func NewJobQueue(client *asynq.Client) *JobQueue {
	return &JobQueue{client: client}
}

// EnqueueFullExtract schedules the deep-extraction pass for a document.
func (q *JobQueue) EnqueueFullExtract(ctx context.Context, documentID uuid.UUID) error {
	task, err := job.NewFullExtractTask(documentID)
	if err != nil {
		return err
	}
	_, err = q.client.EnqueueContext(ctx, task)
	return err
}

// EnqueuePracticeInvite schedules a practice invitation email.
func (q *JobQueue) EnqueuePracticeInvite(ctx context.Context, p job.PracticeInvitePayload) error {
	task, err := job.NewPracticeInviteTask(p)
	if err != nil {
		return err
	}
	_, err = q.client.EnqueueContext(ctx, task)
	return err
}

// EnqueueLetterApproved schedules a letter-approved notification.
func (q *JobQueue) EnqueueLetterApproved(ctx context.Context, p job.LetterApprovedPayload) error {
	task, err := job.NewLetterApprovedTask(p)
	if err != nil {
		return err
	}
	_, err = q.client.EnqueueContext(ctx, task)
	return err
}
