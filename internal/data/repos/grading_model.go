package repos

import (
	"errors"

	"gorm.io/gorm"

	types "github.com/mlimaops/teagrade-backend/internal/domain"
	pkgerrors "github.com/mlimaops/teagrade-backend/internal/pkg/errors"
	"github.com/mlimaops/teagrade-backend/internal/platform/dbctx"
	"github.com/mlimaops/teagrade-backend/internal/platform/logger"
)

// GradingModelRepo looks up grading models at an exact version. There is no
// "latest" accessor: documents must always be graded against the version
// their source config pins.
type GradingModelRepo interface {
	GetByIDVersion(dbc dbctx.Context, modelID string, version int) (*types.GradingModel, error)
	// Insert persists a new model version. Versions are immutable: inserting
	// an (model_id, version) pair that already exists returns ErrConflict.
	Insert(dbc dbctx.Context, model *types.GradingModel) error
}

type gradingModelRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGradingModelRepo(db *gorm.DB, baseLog *logger.Logger) GradingModelRepo {
	repoLog := baseLog.With("repo", "GradingModelRepo")
	return &gradingModelRepo{db: db, log: repoLog}
}

func (r *gradingModelRepo) GetByIDVersion(dbc dbctx.Context, modelID string, version int) (*types.GradingModel, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var model types.GradingModel
	if err := transaction.WithContext(dbc.Ctx).
		Where("model_id = ? AND version = ?", modelID, version).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrNotFound
		}
		return nil, err
	}
	return &model, nil
}

func (r *gradingModelRepo) Insert(dbc dbctx.Context, model *types.GradingModel) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(dbc.Ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err, "idx_grading_model_id_version") {
			return pkgerrors.ErrConflict
		}
		return err
	}
	return nil
}
