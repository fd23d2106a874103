package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/mlimaops/teagrade-backend/internal/data/repos"
	types "github.com/mlimaops/teagrade-backend/internal/domain"
	"github.com/mlimaops/teagrade-backend/internal/events"
	"github.com/mlimaops/teagrade-backend/internal/grading"
	"github.com/mlimaops/teagrade-backend/internal/ingestion/archive"
	"github.com/mlimaops/teagrade-backend/internal/ingestion/fingerprint"
	"github.com/mlimaops/teagrade-backend/internal/ingestion/ingesterr"
	"github.com/mlimaops/teagrade-backend/internal/ingestion/manifest"
	pkgerrors "github.com/mlimaops/teagrade-backend/internal/pkg/errors"
	"github.com/mlimaops/teagrade-backend/internal/platform/dbctx"
	"github.com/mlimaops/teagrade-backend/internal/platform/logger"
)

type IngestStatus string

const (
	StatusCreated   IngestStatus = "created"
	StatusDuplicate IngestStatus = "duplicate"
)

// Notice identifies one inbound artifact: which logical source produced it
// and where its bytes live in the artifact bucket.
type Notice struct {
	SourceID     string    `json:"source_id"`
	ContainerRef string    `json:"container_ref"`
	ArrivalTime  time.Time `json:"arrival_time"`
}

type Result struct {
	Status      IngestStatus `json:"status"`
	Fingerprint string       `json:"fingerprint"`
	DocumentIDs []uuid.UUID  `json:"document_ids,omitempty"`
}

// ArtifactStore is the slice of the object store the dispatcher needs.
type ArtifactStore interface {
	GetArtifact(ctx context.Context, key string) ([]byte, error)
	PutMember(dbc dbctx.Context, docID, name, contentType string, data []byte) (string, error)
}

type IngestConfig struct {
	MaxArchiveBytes      int64
	MaxDecompressedBytes int64
	RetrievalTimeout     time.Duration
	CommitTimeout        time.Duration
}

type IngestService interface {
	Ingest(ctx context.Context, notice Notice) (*Result, error)
}

type ingestService struct {
	log       *logger.Logger
	cfg       IngestConfig
	store     ArtifactStore
	extractor *archive.Extractor
	sources   repos.SourceConfigRepo
	documents repos.DocumentRepo
	models    repos.GradingModelRepo
	publisher events.Publisher
}

func NewIngestService(
	baseLog *logger.Logger,
	cfg IngestConfig,
	store ArtifactStore,
	sources repos.SourceConfigRepo,
	documents repos.DocumentRepo,
	models repos.GradingModelRepo,
	publisher events.Publisher,
) IngestService {
	serviceLog := baseLog.With("service", "IngestService")
	return &ingestService{
		log:       serviceLog,
		cfg:       cfg,
		store:     store,
		extractor: archive.NewExtractor(baseLog, cfg.MaxArchiveBytes, cfg.MaxDecompressedBytes),
		sources:   sources,
		documents: documents,
		models:    models,
		publisher: publisher,
	}
}

// candidate is one not-yet-committed Document produced by a processor.
type candidate struct {
	entryIndex int
	farmerRef  string
	attributes map[string]any
	gradeLabel *string // pre-assigned upstream (pre_extracted only)
	// set when the grading engine assigned the label; nil for upstream
	// labels, which carry no model reference
	modelID      *string
	modelVersion *int
	members      []archive.Member
}

// Ingest runs the full pipeline for one artifact: config lookup, retrieval,
// fingerprint dedup, processor-specific extraction, grading, one atomic
// commit, then events. The fingerprint check makes re-invocation after any
// pre-commit failure safe.
func (s *ingestService) Ingest(ctx context.Context, notice Notice) (*Result, error) {
	dbc := dbctx.Context{Ctx: ctx}

	cfg, err := s.sources.GetBySourceID(dbc, notice.SourceID)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrNotFound) {
			return nil, ingesterr.Newf(ingesterr.KindConfiguration, "unknown source %q", notice.SourceID)
		}
		return nil, ingesterr.Retryable(ingesterr.KindConfiguration, err)
	}
	if !cfg.Enabled {
		return nil, ingesterr.Newf(ingesterr.KindConfiguration, "source %q is disabled", notice.SourceID)
	}

	raw, err := s.retrieve(ctx, notice.ContainerRef)
	if err != nil {
		return nil, err
	}

	fp := fingerprint.Sum(raw)

	// Fast path only; the unique index on (fingerprint, batch_seq) is what
	// actually guarantees at-most-once under concurrency.
	exists, err := s.documents.ExistsByFingerprint(dbc, fp)
	if err != nil {
		return nil, ingesterr.Retryable(ingesterr.KindPersistence, err)
	}
	if exists {
		s.log.Info("duplicate artifact skipped", "source_id", notice.SourceID, "fingerprint", fp)
		return &Result{Status: StatusDuplicate, Fingerprint: fp}, nil
	}

	required, err := requiredAttributes(cfg)
	if err != nil {
		return nil, ingesterr.New(ingesterr.KindConfiguration, err)
	}

	var candidates []candidate
	switch cfg.Processor {
	case types.ProcessorDirect:
		candidates, err = s.processDirect(raw, required)
	case types.ProcessorArchive:
		candidates, err = s.processArchive(ctx, notice.SourceID, raw, required)
	case types.ProcessorPreExtracted:
		candidates, err = s.processPreExtracted(raw, required)
	default:
		err = ingesterr.Newf(ingesterr.KindConfiguration, "source %q has unknown processor %q", notice.SourceID, cfg.Processor)
	}
	if err != nil {
		return nil, err
	}

	if err := s.grade(dbc, cfg, candidates); err != nil {
		return nil, err
	}

	docs, err := s.materialize(dbc, notice, fp, candidates)
	if err != nil {
		return nil, err
	}

	if err := s.commit(ctx, docs); err != nil {
		if errors.Is(err, repos.ErrDuplicateFingerprint) {
			s.log.Info("lost duplicate race, treating as duplicate",
				"source_id", notice.SourceID, "fingerprint", fp)
			return &Result{Status: StatusDuplicate, Fingerprint: fp}, nil
		}
		return nil, ingesterr.Retryable(ingesterr.KindPersistence, err)
	}

	s.publish(ctx, notice.SourceID, fp, docs)

	ids := make([]uuid.UUID, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	s.log.Info("artifact ingested",
		"source_id", notice.SourceID,
		"fingerprint", fp,
		"documents", len(ids),
	)
	return &Result{Status: StatusCreated, Fingerprint: fp, DocumentIDs: ids}, nil
}

func (s *ingestService) retrieve(ctx context.Context, containerRef string) ([]byte, error) {
	timeout := s.cfg.RetrievalTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	ctx2, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now()
	raw, err := s.store.GetArtifact(ctx2, containerRef)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrNotFound) {
			return nil, ingesterr.New(ingesterr.KindRetrieval, err)
		}
		return nil, ingesterr.Retryable(ingesterr.KindRetrieval, err)
	}
	s.log.Debug("artifact retrieved",
		"container_ref", containerRef,
		"bytes", len(raw),
		"elapsed", time.Since(started),
	)
	return raw, nil
}

// record is the JSON shape shared by the direct and pre_extracted
// processors: one structured sample description.
type record struct {
	FarmerRef  string         `json:"farmer_ref,omitempty"`
	Attributes map[string]any `json:"attributes"`
	GradeLabel string         `json:"grade_label,omitempty"`
}

func parseRecord(raw []byte, required []string) (*record, error) {
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, ingesterr.Newf(ingesterr.KindValidation, "artifact is not a valid record: %v", err)
	}
	if rec.Attributes == nil {
		return nil, ingesterr.Newf(ingesterr.KindValidation, "record has no attributes")
	}
	for _, req := range required {
		if _, ok := rec.Attributes[req]; !ok {
			return nil, ingesterr.Newf(ingesterr.KindValidation, "missing required attribute %q", req)
		}
	}
	return &rec, nil
}

func (s *ingestService) processDirect(raw []byte, required []string) ([]candidate, error) {
	rec, err := parseRecord(raw, required)
	if err != nil {
		return nil, err
	}
	if rec.GradeLabel != "" {
		return nil, ingesterr.Newf(ingesterr.KindValidation, "direct records must not carry a grade_label")
	}
	return []candidate{{
		entryIndex: 0,
		farmerRef:  rec.FarmerRef,
		attributes: rec.Attributes,
	}}, nil
}

// processPreExtracted accepts a record an upstream structuring service has
// already finished. A grade assigned upstream is kept; grading is skipped
// for it.
func (s *ingestService) processPreExtracted(raw []byte, required []string) ([]candidate, error) {
	rec, err := parseRecord(raw, required)
	if err != nil {
		return nil, err
	}
	c := candidate{
		entryIndex: 0,
		farmerRef:  rec.FarmerRef,
		attributes: rec.Attributes,
	}
	if rec.GradeLabel != "" {
		label := rec.GradeLabel
		c.gradeLabel = &label
	}
	return []candidate{c}, nil
}

func (s *ingestService) processArchive(ctx context.Context, sourceID string, raw []byte, required []string) ([]candidate, error) {
	reader, err := s.extractor.Open(raw)
	if err != nil {
		return nil, err
	}
	manifestBytes, err := reader.ManifestBytes()
	if err != nil {
		return nil, err
	}
	m, err := manifest.Validate(manifestBytes, required)
	if err != nil {
		return nil, err
	}
	if m.SourceID != sourceID {
		return nil, ingesterr.Newf(ingesterr.KindManifest,
			"manifest source_id %q does not match notifying source %q", m.SourceID, sourceID)
	}

	members, err := reader.Extract(ctx, m)
	if err != nil {
		return nil, err
	}

	byEntry := make(map[int][]archive.Member, len(m.Entries))
	for _, mem := range members {
		byEntry[mem.EntryIndex] = append(byEntry[mem.EntryIndex], mem)
	}

	out := make([]candidate, len(m.Entries))
	for i := range m.Entries {
		e := &m.Entries[i]
		out[i] = candidate{
			entryIndex: i,
			farmerRef:  e.FarmerRef,
			attributes: e.Attributes,
			members:    byEntry[i],
		}
	}
	return out, nil
}

// grade assigns labels in place. The model is fetched once at the exact
// pinned version; no-match follows the source's explicit policy.
func (s *ingestService) grade(dbc dbctx.Context, cfg *types.SourceConfig, candidates []candidate) error {
	if !cfg.HasGrading() {
		return nil
	}
	if cfg.OnNoMatch != types.NoMatchFail && cfg.OnNoMatch != types.NoMatchUnclassified {
		return ingesterr.Newf(ingesterr.KindConfiguration,
			"source %q enables grading without a valid on_no_match policy", cfg.SourceID)
	}

	stored, err := s.models.GetByIDVersion(dbc, *cfg.GradingModelID, *cfg.GradingModelVersion)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrNotFound) {
			return ingesterr.Newf(ingesterr.KindConfiguration,
				"grading model %s v%d not found", *cfg.GradingModelID, *cfg.GradingModelVersion)
		}
		return ingesterr.Retryable(ingesterr.KindPersistence, err)
	}
	model, err := grading.ParseModelJSON(stored.ModelID, stored.Version, stored.Labels, stored.Rules)
	if err != nil {
		return ingesterr.New(ingesterr.KindConfiguration, err)
	}

	for i := range candidates {
		c := &candidates[i]
		if c.gradeLabel != nil {
			continue
		}
		label, err := grading.Evaluate(model, c.attributes)
		if err != nil {
			var noMatch *grading.NoMatchError
			if errors.As(err, &noMatch) && cfg.OnNoMatch == types.NoMatchUnclassified {
				label = grading.UnclassifiedLabel
			} else {
				return ingesterr.New(ingesterr.KindNoGradeMatch, err).WithEntry(c.entryIndex)
			}
		}
		c.gradeLabel = &label
		c.modelID = cfg.GradingModelID
		c.modelVersion = cfg.GradingModelVersion
	}
	return nil
}

// materialize turns candidates into Documents, uploading extracted members
// to the document bucket first. BatchSeq mirrors manifest declaration order.
// Member uploads precede the batch commit, so a failed or lost commit leaves
// objects under document ids that never become visible; reclaiming those is
// an external bucket sweep's job, atomicity lives in the record store alone.
func (s *ingestService) materialize(dbc dbctx.Context, notice Notice, fp string, candidates []candidate) ([]*types.Document, error) {
	ingestedAt := notice.ArrivalTime
	if ingestedAt.IsZero() {
		ingestedAt = time.Now().UTC()
	}

	docs := make([]*types.Document, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		docID := uuid.New()

		var refs []types.MemberRef
		for _, mem := range c.members {
			key, err := s.store.PutMember(dbc, docID.String(), mem.Path, mem.ContentType, mem.Data)
			if err != nil {
				return nil, ingesterr.Retryable(ingesterr.KindPersistence,
					fmt.Errorf("store member %q: %w", mem.Path, err))
			}
			refs = append(refs, types.MemberRef{
				Path:        mem.Path,
				ContentType: mem.ContentType,
				StorageKey:  key,
			})
		}

		attrs, err := json.Marshal(c.attributes)
		if err != nil {
			return nil, ingesterr.New(ingesterr.KindValidation, err).WithEntry(c.entryIndex)
		}
		doc := &types.Document{
			ID:          docID,
			SourceID:    notice.SourceID,
			Fingerprint: fp,
			BatchSeq:    c.entryIndex,
			FarmerRef:   c.farmerRef,
			Attributes:  datatypes.JSON(attrs),
			IngestedAt:  ingestedAt,
		}
		if len(refs) > 0 {
			memberRefs, err := json.Marshal(refs)
			if err != nil {
				return nil, ingesterr.New(ingesterr.KindValidation, err).WithEntry(c.entryIndex)
			}
			doc.MemberRefs = datatypes.JSON(memberRefs)
		}
		if c.gradeLabel != nil {
			doc.GradeLabel = c.gradeLabel
			doc.GradingModelID = c.modelID
			doc.GradingModelVersion = c.modelVersion
		}
		docs[i] = doc
	}
	return docs, nil
}

func (s *ingestService) commit(ctx context.Context, docs []*types.Document) error {
	timeout := s.cfg.CommitTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx2, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.documents.CommitBatch(dbctx.Context{Ctx: ctx2}, docs)
}

// publish is best-effort: a committed Document with a lost event is an
// acceptable, recoverable inconsistency. Failures are logged only.
func (s *ingestService) publish(ctx context.Context, sourceID, fp string, docs []*types.Document) {
	ids := make([]uuid.UUID, len(docs))
	for i, d := range docs {
		ids[i] = d.ID

		var attrs map[string]any
		_ = json.Unmarshal(d.Attributes, &attrs)
		ev := types.ContentReceivedEvent{
			DocumentID: d.ID,
			SourceID:   sourceID,
			FarmerRef:  d.FarmerRef,
			Attributes: attrs,
		}
		if d.GradeLabel != nil {
			ev.GradeLabel = *d.GradeLabel
		}
		if err := s.publisher.Publish(ctx, types.EventContentReceived, ev); err != nil {
			s.log.Warn("failed publishing content.received", "document_id", d.ID, "error", err)
		}
	}

	if len(docs) > 1 {
		ev := types.BatchCompletedEvent{
			SourceID:    sourceID,
			Fingerprint: fp,
			DocumentIDs: ids,
			Count:       len(ids),
		}
		if err := s.publisher.Publish(ctx, types.EventBatchCompleted, ev); err != nil {
			s.log.Warn("failed publishing batch.completed", "fingerprint", fp, "error", err)
		}
	}
}

// requiredAttributes decodes the source's required_attributes JSON column.
func requiredAttributes(cfg *types.SourceConfig) ([]string, error) {
	if len(cfg.RequiredAttributes) == 0 {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal(cfg.RequiredAttributes, &out); err != nil {
		return nil, fmt.Errorf("source %q: bad required_attributes: %w", cfg.SourceID, err)
	}
	for i, k := range out {
		out[i] = strings.TrimSpace(k)
	}
	return out, nil
}
