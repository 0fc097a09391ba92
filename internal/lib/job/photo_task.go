package job

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TaskRemovePhoto = "photo:remove"
)

// RemovePhotoPayload names the stored photo to delete.
type RemovePhotoPayload struct {
	URL string `json:"url"`
}

// NewRemovePhotoTask builds the task enqueued after a student or teacher
// with a photo is deleted.
func NewRemovePhotoTask(url string) (*asynq.Task, error) {
	payload, err := json.Marshal(RemovePhotoPayload{URL: url})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskRemovePhoto,
		payload,
		asynq.MaxRetry(3),
		asynq.Queue("low"),
		asynq.Timeout(30*time.Second),
	), nil
}
