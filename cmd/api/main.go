package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dictatemed/dictatemed/internal/config"
	"github.com/dictatemed/dictatemed/internal/database"
	"github.com/dictatemed/dictatemed/internal/handler"
	"github.com/dictatemed/dictatemed/internal/lib/job"
	"github.com/dictatemed/dictatemed/internal/logger"
	"github.com/dictatemed/dictatemed/internal/repository"
	"github.com/dictatemed/dictatemed/internal/router"
	"github.com/dictatemed/dictatemed/internal/server"
	"github.com/dictatemed/dictatemed/internal/service"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, loggerService, err := logger.New(cfg)
	if err != nil {
		os.Stderr.WriteString("failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 2*time.Minute)
	if err := database.Migrate(migrateCtx, log, cfg); err != nil {
		cancelMigrate()
		log.Fatal().Err(err).Msg("failed to run database migrations")
	}
	cancelMigrate()

	s, err := server.New(cfg, log, loggerService)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize server")
	}

	repos := repository.NewRepositories(s)

	services, err := service.NewServices(s, repos)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize services")
	}

	// The job workers need repositories and integrations, so they start here
	// rather than inside server.New.
	if err := s.Job.Start(&job.Deps{
		Documents: repos.Documents,
		Objects:   s.Storage,
		Extractor: s.LLM,
		Mailer:    s.Email,
	}); err != nil {
		log.Fatal().Err(err).Msg("failed to start job workers")
	}

	handlers := handler.NewHandlers(s, services)
	e := router.New(s, handlers)

	s.SetupHTTPServer(e)

	go func() {
		if err := s.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped unexpectedly")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown did not complete cleanly")
	}

	if loggerService != nil {
		loggerService.Shutdown(10 * time.Second)
	}

	log.Info().Msg("server stopped")
}
