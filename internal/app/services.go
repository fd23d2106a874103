package app

import (
	"github.com/mlimaops/teagrade-backend/internal/platform/logger"
	"github.com/mlimaops/teagrade-backend/internal/services"
)

type Services struct {
	Ingest services.IngestService
}

func wireServices(log *logger.Logger, cfg Config, clients Clients, reposet Repos) Services {
	log.Info("Wiring services...")
	return Services{
		Ingest: services.NewIngestService(
			log,
			cfg.Ingest,
			clients.Store,
			reposet.Sources,
			reposet.Documents,
			reposet.GradingModels,
			clients.Publisher,
		),
	}
}
