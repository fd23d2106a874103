package queue

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/mlimaops/teagrade-backend/internal/ingestion/ingesterr"
	"github.com/mlimaops/teagrade-backend/internal/platform/logger"
	"github.com/mlimaops/teagrade-backend/internal/services"
)

// Handler adapts the ingestion dispatcher to asynq. Permanent failures
// (bad input, configuration) are wrapped in asynq.SkipRetry so only
// transient faults get retried; retrying is safe because the fingerprint
// check makes re-ingestion idempotent.
type Handler struct {
	log    *logger.Logger
	ingest services.IngestService
}

func NewHandler(baseLog *logger.Logger, ingest services.IngestService) *Handler {
	return &Handler{
		log:    baseLog.With("handler", "QueueHandler"),
		ingest: ingest,
	}
}

// Mux returns the task router for this handler.
func (h *Handler) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeIngestArtifact, h.HandleIngestArtifact)
	return mux
}

func (h *Handler) HandleIngestArtifact(ctx context.Context, task *asynq.Task) error {
	notice, err := ParseIngestTask(task)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	res, err := h.ingest.Ingest(ctx, notice)
	if err != nil {
		if !ingesterr.IsRetryable(err) {
			h.log.Error("permanent ingestion failure",
				"source_id", notice.SourceID,
				"container_ref", notice.ContainerRef,
				"kind", ingesterr.KindOf(err),
				"error", err,
			)
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		h.log.Warn("transient ingestion failure, will retry",
			"source_id", notice.SourceID,
			"container_ref", notice.ContainerRef,
			"error", err,
		)
		return err
	}

	h.log.Info("ingest task done",
		"source_id", notice.SourceID,
		"status", res.Status,
		"documents", len(res.DocumentIDs),
	)
	return nil
}
