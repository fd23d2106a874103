package queue

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/mlimaops/teagrade-backend/internal/platform/envutil"
	"github.com/mlimaops/teagrade-backend/internal/platform/logger"
)

// Server wraps the asynq consumer. Retry delay is exponential, capped by
// QUEUE_MAX_RETRY_DELAY, and only transient failures ever reach it (the
// handler marks permanent ones SkipRetry).
type Server struct {
	log    *logger.Logger
	server *asynq.Server
}

func NewServer(baseLog *logger.Logger) (*Server, error) {
	serverLog := baseLog.With("service", "QueueServer")

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	concurrency := envutil.Int("QUEUE_CONCURRENCY", 10)
	maxDelay := time.Duration(envutil.Int("QUEUE_MAX_RETRY_DELAY_SECONDS", 300)) * time.Second

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:        addr,
			Password:    os.Getenv("REDIS_PASSWORD"),
			DB:          envutil.Int("REDIS_DB", 0),
			DialTimeout: 5 * time.Second,
		},
		asynq.Config{
			Concurrency: concurrency,
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				delay := time.Duration(1<<uint(n)) * time.Second
				if delay > maxDelay {
					delay = maxDelay
				}
				serverLog.Warn("task failed, retry scheduled",
					"task_type", task.Type(),
					"attempt", n,
					"delay", delay,
					"error", err,
				)
				return delay
			},
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
		},
	)

	return &Server{log: serverLog, server: srv}, nil
}

// Run blocks serving tasks until shutdown.
func (s *Server) Run(mux *asynq.ServeMux) error {
	s.log.Info("queue server starting")
	return s.server.Run(mux)
}

func (s *Server) Shutdown() {
	s.server.Shutdown()
}
