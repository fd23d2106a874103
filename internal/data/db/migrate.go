package db

import (
	types "github.com/mlimaops/teagrade-backend/internal/domain"
)

// AutoMigrateAll creates or updates the pipeline's tables, including the
// composite unique index on (fingerprint, batch_seq) that enforces dedup.
func (s *PostgresService) AutoMigrateAll() error {
	return s.db.AutoMigrate(
		&types.Document{},
		&types.SourceConfig{},
		&types.GradingModel{},
	)
}
