package queue

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/hibiken/asynq"

	"github.com/mlimaops/teagrade-backend/internal/platform/envutil"
	"github.com/mlimaops/teagrade-backend/internal/platform/logger"
	"github.com/mlimaops/teagrade-backend/internal/services"
)

// Client enqueues ingest tasks.
type Client struct {
	log    *logger.Logger
	client *asynq.Client
}

func NewClient(baseLog *logger.Logger) (*Client, error) {
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	client := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       envutil.Int("REDIS_DB", 0),
	})
	return &Client{
		log:    baseLog.With("service", "QueueClient"),
		client: client,
	}, nil
}

// EnqueueIngest schedules one artifact for ingestion.
func (c *Client) EnqueueIngest(ctx context.Context, notice services.Notice, opts ...asynq.Option) error {
	task, err := NewIngestTask(notice)
	if err != nil {
		return err
	}
	info, err := c.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return fmt.Errorf("failed to enqueue ingest task: %w", err)
	}
	c.log.Debug("ingest task enqueued",
		"task_id", info.ID,
		"queue", info.Queue,
		"source_id", notice.SourceID,
	)
	return nil
}

func (c *Client) Close() error {
	return c.client.Close()
}
