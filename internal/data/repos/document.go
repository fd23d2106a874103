package repos

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	types "github.com/mlimaops/teagrade-backend/internal/domain"
	pkgerrors "github.com/mlimaops/teagrade-backend/internal/pkg/errors"
	"github.com/mlimaops/teagrade-backend/internal/platform/dbctx"
	"github.com/mlimaops/teagrade-backend/internal/platform/logger"
)

// ErrDuplicateFingerprint reports that another batch with the same artifact
// fingerprint already committed. Correctness of dedup rests on the store's
// unique index, not on the optimistic ExistsByFingerprint check; concurrent
// ingestions of the same artifact race on the index and the loser sees this.
var ErrDuplicateFingerprint = errors.New("duplicate artifact fingerprint")

type DocumentRepo interface {
	// CommitBatch inserts every document of one artifact atomically: all
	// rows become visible together or none do.
	CommitBatch(dbc dbctx.Context, docs []*types.Document) error
	ExistsByFingerprint(dbc dbctx.Context, fingerprint string) (bool, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Document, error)
	ListBySourceID(dbc dbctx.Context, sourceID string, limit int) ([]*types.Document, error)
}

type documentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDocumentRepo(db *gorm.DB, baseLog *logger.Logger) DocumentRepo {
	repoLog := baseLog.With("repo", "DocumentRepo")
	return &documentRepo{db: db, log: repoLog}
}

func (r *documentRepo) CommitBatch(dbc dbctx.Context, docs []*types.Document) error {
	if len(docs) == 0 {
		return nil
	}

	commit := func(tx *gorm.DB) error {
		if err := tx.WithContext(dbc.Ctx).Create(&docs).Error; err != nil {
			if isUniqueViolation(err, "idx_document_fingerprint_seq") {
				return ErrDuplicateFingerprint
			}
			return err
		}
		return nil
	}

	// When the caller already owns a transaction, commit inside it;
	// otherwise the batch gets its own.
	if dbc.Tx != nil {
		return commit(dbc.Tx)
	}
	return r.db.WithContext(dbc.Ctx).Transaction(commit)
}

func (r *documentRepo) ExistsByFingerprint(dbc dbctx.Context, fingerprint string) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.Document{}).
		Where("fingerprint = ?", fingerprint).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *documentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Document, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var doc types.Document
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepo) ListBySourceID(dbc dbctx.Context, sourceID string, limit int) ([]*types.Document, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var results []*types.Document
	if err := transaction.WithContext(dbc.Ctx).
		Where("source_id = ?", sourceID).
		Order("ingested_at DESC, batch_seq ASC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// isUniqueViolation matches Postgres SQLSTATE 23505 on the named constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505" && strings.Contains(pgErr.ConstraintName, constraint)
}
