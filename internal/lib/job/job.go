// Package job provides Redis-backed background processing with Asynq.
//
// The HTTP layer enqueues tasks through JobService.Client; a worker server in
// the same process pulls them back off Redis and runs the handlers.
package job

import (
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/dictatemed/dictatemed/internal/config"
)

// JobService holds the Asynq client (enqueue) and server (worker execution).
type JobService struct {
	// Client enqueues tasks into Redis.
	Client *asynq.Client

	server *asynq.Server
	logger *zerolog.Logger

	deps *Deps
}

// NewJobService creates a JobService wired to Redis from cfg.
//
// Queue weights split the worker pool: critical work (invites, notices that
// block a human) gets most of it, document extraction runs in default, and
// low holds anything that can wait.
func NewJobService(logger *zerolog.Logger, cfg *config.Config) *JobService {
	redisAddr := cfg.Redis.Address

	client := asynq.NewClient(asynq.RedisClientOpt{
		Addr: redisAddr,
	})

	server := asynq.NewServer(
		asynq.RedisClientOpt{Addr: redisAddr},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
		},
	)

	return &JobService{
		Client: client,
		server: server,
		logger: logger,
	}
}

// Start registers handlers and starts the worker server. Deps must be fully
// populated; Start is called from main once repositories and clients exist.
// asynq's Start returns once workers are running.
func (j *JobService) Start(deps *Deps) error {
	j.deps = deps

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskReferralFullExtract, j.handleFullExtractTask)
	mux.HandleFunc(TaskPracticeInvite, j.handlePracticeInviteTask)
	mux.HandleFunc(TaskLetterApprovedNotice, j.handleLetterApprovedTask)

	j.logger.Info().Msg("Starting background job server")

	if err := j.server.Start(mux); err != nil {
		return err
	}

	return nil
}

// Stop gracefully stops the worker server and closes the enqueue client.
func (j *JobService) Stop() {
	j.logger.Info().Msg("Stopping background job server")
	j.server.Shutdown()
	j.Client.Close()
}
