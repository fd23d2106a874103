package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/mlimaops/teagrade-backend/internal/events"
	"github.com/mlimaops/teagrade-backend/internal/platform/gcs"
	"github.com/mlimaops/teagrade-backend/internal/platform/logger"
	"github.com/mlimaops/teagrade-backend/internal/queue"
)

type Clients struct {
	Store     gcs.ObjectStore
	Publisher events.Publisher
	Queue     *queue.Client
}

func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")

	store, err := gcs.NewObjectStore(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init object store: %w", err)
	}

	var clients Clients
	clients.Store = store

	if strings.TrimSpace(os.Getenv("REDIS_ADDR")) == "" {
		log.Warn("REDIS_ADDR not set; events disabled, queue disabled")
		clients.Publisher = events.NopPublisher{}
		return clients, nil
	}

	publisher, err := events.NewRedisPublisher(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init event publisher: %w", err)
	}
	clients.Publisher = publisher

	queueClient, err := queue.NewClient(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init queue client: %w", err)
	}
	clients.Queue = queueClient

	return clients, nil
}
