// Package queue carries artifact notifications from the API (or any other
// producer) to the ingestion workers over asynq.
package queue

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/mlimaops/teagrade-backend/internal/services"
)

const (
	// TypeIngestArtifact is the task type for one inbound artifact notice.
	TypeIngestArtifact = "ingest:artifact"
)

// NewIngestTask builds the asynq task for a notice. The payload is the
// notice itself, JSON-encoded.
func NewIngestTask(notice services.Notice) (*asynq.Task, error) {
	data, err := json.Marshal(notice)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ingest payload: %w", err)
	}
	return asynq.NewTask(TypeIngestArtifact, data), nil
}

// ParseIngestTask decodes a task payload back into a notice.
func ParseIngestTask(task *asynq.Task) (services.Notice, error) {
	var notice services.Notice
	if err := json.Unmarshal(task.Payload(), &notice); err != nil {
		return services.Notice{}, fmt.Errorf("failed to unmarshal ingest payload: %w", err)
	}
	return notice, nil
}
