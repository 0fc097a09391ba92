package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/deppfellow/escuela/internal/lib/storage"
)

func (j *JobService) handleRemovePhotoTask(ctx context.Context, t *asynq.Task) error {
	var p RemovePhotoPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("failed to unmarshal remove photo payload: %w", err)
	}

	j.logger.Info().
		Str("type", "remove_photo").
		Str("url", p.URL).
		Msg("Processing remove photo task")

	if err := j.photos.Remove(p.URL); err != nil {
		if errors.Is(err, storage.ErrForeignURL) {
			// Retrying cannot help.
			j.logger.Warn().Str("url", p.URL).Msg("Skipping photo outside the store")
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}

		j.logger.Error().
			Str("type", "remove_photo").
			Str("url", p.URL).
			Err(err).
			Msg("Failed to remove photo")
		return err
	}

	j.logger.Info().
		Str("type", "remove_photo").
		Str("url", p.URL).
		Msg("Successfully removed photo")

	return nil
}
