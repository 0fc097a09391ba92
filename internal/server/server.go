// Package server defines the Server container that composes the app's
// main dependencies and owns their lifecycle:
//   - configuration
//   - logger + optional New Relic service
//   - database pool
//   - redis client (optional)
//   - background job service (asynq, optional)
//   - photo store
//   - http.Server
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/newrelic/go-agent/v3/integrations/nrredis-v9"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/deppfellow/escuela/internal/config"
	"github.com/deppfellow/escuela/internal/database"
	"github.com/deppfellow/escuela/internal/lib/job"
	"github.com/deppfellow/escuela/internal/lib/storage"
	loggerPkg "github.com/deppfellow/escuela/internal/logger"
)

// Server is the application container. It is not the HTTP server itself.
type Server struct {
	Config        *config.Config
	Logger        *zerolog.Logger
	LoggerService *loggerPkg.LoggerService

	DB *database.Database

	// Redis is nil when no address is configured or it did not answer at
	// startup; login throttling and background jobs are skipped then.
	Redis *redis.Client

	// Job is nil whenever Redis is.
	Job *job.JobService

	Photos *storage.LocalStore

	httpServer *http.Server
}

// New connects every dependency. A missing database is fatal, a missing
// Redis is not.
func New(cfg *config.Config, logger *zerolog.Logger, loggerService *loggerPkg.LoggerService) (*Server, error) {
	db, err := database.New(cfg, logger, loggerService)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	photos, err := storage.NewLocalStore(cfg.Storage)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize photo store: %w", err)
	}

	server := &Server{
		Config:        cfg,
		Logger:        logger,
		LoggerService: loggerService,
		DB:            db,
		Photos:        photos,
	}

	if cfg.Redis.Address == "" {
		logger.Warn().Msg("no redis address configured, login throttling and photo cleanup jobs disabled")
		return server, nil
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Address,
	})

	if loggerService.GetApplication() != nil {
		redisClient.AddHook(nrredis.NewHook(redisClient.Options()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error().Err(err).Msg("failed to connect to redis, continuing without it")
		_ = redisClient.Close()
		return server, nil
	}

	jobService := job.NewJobService(logger, cfg, photos)
	if err := jobService.Start(); err != nil {
		_ = redisClient.Close()
		db.Close()
		return nil, err
	}

	server.Redis = redisClient
	server.Job = jobService

	return server, nil
}

// SetupHTTPServer configures the internal net/http server around handler.
func (s *Server) SetupHTTPServer(handler http.Handler) {
	s.httpServer = &http.Server{
		Addr:         ":" + s.Config.Server.Port,
		Handler:      handler,
		ReadTimeout:  time.Duration(s.Config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.Config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(s.Config.Server.IdleTimeout) * time.Second,
	}
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	if s.httpServer == nil {
		return errors.New("HTTP server not initialized")
	}

	s.Logger.Info().
		Str("port", s.Config.Server.Port).
		Str("env", s.Config.Primary.Env).
		Msg("starting server")

	return s.httpServer.ListenAndServe()
}

// Shutdown stops the HTTP server, then the job worker, Redis and the pool.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown HTTP server: %w", err)
		}
	}

	if s.Job != nil {
		s.Job.Stop()
	}

	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			s.Logger.Error().Err(err).Msg("failed to close redis client")
		}
	}

	if s.DB != nil {
		if err := s.DB.Close(); err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	s.LoggerService.Shutdown()

	return nil
}
