// Package job runs background work on asynq, backed by Redis.
package job

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/deppfellow/escuela/internal/config"
)

// PhotoRemover deletes stored photos by URL.
type PhotoRemover interface {
	Remove(url string) error
}

// JobService owns the asynq client used to enqueue and the worker server.
type JobService struct {
	Client *asynq.Client

	server *asynq.Server
	logger *zerolog.Logger
	photos PhotoRemover
}

func NewJobService(logger *zerolog.Logger, cfg *config.Config, photos PhotoRemover) *JobService {
	redisAddr := cfg.Redis.Address

	client := asynq.NewClient(asynq.RedisClientOpt{
		Addr: redisAddr,
	})

	server := asynq.NewServer(
		asynq.RedisClientOpt{Addr: redisAddr},
		asynq.Config{
			Concurrency: 4,
			Queues: map[string]int{
				"default": 3,
				"low":     1,
			},
		},
	)

	return &JobService{
		Client: client,
		server: server,
		logger: logger,
		photos: photos,
	}
}

// Start registers the task handlers and starts the worker. It does not block.
func (j *JobService) Start() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskRemovePhoto, j.handleRemovePhotoTask)

	j.logger.Info().Msg("Starting background job server")

	return j.server.Start(mux)
}

// EnqueuePhotoRemoval schedules deletion of a stored photo.
func (j *JobService) EnqueuePhotoRemoval(ctx context.Context, url string) error {
	task, err := NewRemovePhotoTask(url)
	if err != nil {
		return err
	}

	info, err := j.Client.EnqueueContext(ctx, task)
	if err != nil {
		return err
	}

	j.logger.Debug().
		Str("task_id", info.ID).
		Str("queue", info.Queue).
		Msg("enqueued photo removal")

	return nil
}

func (j *JobService) Stop() {
	j.logger.Info().Msg("Stopping background job server")
	j.server.Shutdown()
	j.Client.Close()
}
