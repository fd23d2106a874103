package repos

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/mlimaops/teagrade-backend/internal/domain"
	pkgerrors "github.com/mlimaops/teagrade-backend/internal/pkg/errors"
	"github.com/mlimaops/teagrade-backend/internal/platform/dbctx"
	"github.com/mlimaops/teagrade-backend/internal/platform/logger"
)

// SourceConfigRepo is the read side of the source registry. The pipeline
// only calls GetBySourceID; Upsert exists for the seed loader.
type SourceConfigRepo interface {
	GetBySourceID(dbc dbctx.Context, sourceID string) (*types.SourceConfig, error)
	Upsert(dbc dbctx.Context, cfg *types.SourceConfig) error
}

type sourceConfigRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSourceConfigRepo(db *gorm.DB, baseLog *logger.Logger) SourceConfigRepo {
	repoLog := baseLog.With("repo", "SourceConfigRepo")
	return &sourceConfigRepo{db: db, log: repoLog}
}

func (r *sourceConfigRepo) GetBySourceID(dbc dbctx.Context, sourceID string) (*types.SourceConfig, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var cfg types.SourceConfig
	if err := transaction.WithContext(dbc.Ctx).
		Where("source_id = ?", sourceID).
		First(&cfg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrNotFound
		}
		return nil, err
	}
	return &cfg, nil
}

func (r *sourceConfigRepo) Upsert(dbc dbctx.Context, cfg *types.SourceConfig) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "source_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"processor", "enabled",
				"grading_model_id", "grading_model_version",
				"on_no_match", "required_attributes",
				"updated_at",
			}),
		}).
		Create(cfg).Error
}
