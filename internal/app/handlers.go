package app

import (
	"github.com/mlimaops/teagrade-backend/internal/http/handlers"
	"github.com/mlimaops/teagrade-backend/internal/platform/logger"
)

type Handlers struct {
	Ingest       *handlers.IngestHandler
	Document     *handlers.DocumentHandler
	GradingModel *handlers.GradingModelHandler
	Health       *handlers.HealthHandler
}

func wireHandlers(log *logger.Logger, serviceset Services, clients Clients, reposet Repos) Handlers {
	log.Info("Wiring handlers...")

	// A typed nil must not end up behind the interface, the handler checks
	// for a missing queue by comparing against nil.
	var enqueuer handlers.IngestEnqueuer
	if clients.Queue != nil {
		enqueuer = clients.Queue
	}

	return Handlers{
		Ingest:       handlers.NewIngestHandler(log, serviceset.Ingest, enqueuer),
		Document:     handlers.NewDocumentHandler(log, reposet.Documents),
		GradingModel: handlers.NewGradingModelHandler(log, reposet.GradingModels),
		Health:       handlers.NewHealthHandler(),
	}
}
