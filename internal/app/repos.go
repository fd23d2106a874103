package app

import (
	"gorm.io/gorm"

	"github.com/mlimaops/teagrade-backend/internal/data/repos"
	"github.com/mlimaops/teagrade-backend/internal/platform/logger"
)

type Repos struct {
	Documents     repos.DocumentRepo
	Sources       repos.SourceConfigRepo
	GradingModels repos.GradingModelRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Documents:     repos.NewDocumentRepo(db, log),
		Sources:       repos.NewSourceConfigRepo(db, log),
		GradingModels: repos.NewGradingModelRepo(db, log),
	}
}
