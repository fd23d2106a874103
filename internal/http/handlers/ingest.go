package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"github.com/mlimaops/teagrade-backend/internal/http/response"
	"github.com/mlimaops/teagrade-backend/internal/platform/logger"
	"github.com/mlimaops/teagrade-backend/internal/services"
)

// IngestEnqueuer is the queue client slice the handler needs.
type IngestEnqueuer interface {
	EnqueueIngest(ctx context.Context, notice services.Notice, opts ...asynq.Option) error
}

type IngestHandler struct {
	log      *logger.Logger
	ingest   services.IngestService
	enqueuer IngestEnqueuer
}

func NewIngestHandler(log *logger.Logger, ingest services.IngestService, enqueuer IngestEnqueuer) *IngestHandler {
	return &IngestHandler{
		log:      log.With("handler", "IngestHandler"),
		ingest:   ingest,
		enqueuer: enqueuer,
	}
}

type noticeRequest struct {
	SourceID     string     `json:"source_id"`
	ContainerRef string     `json:"container_ref"`
	ArrivalTime  *time.Time `json:"arrival_time,omitempty"`
}

func (r *noticeRequest) toNotice() (services.Notice, bool) {
	n := services.Notice{
		SourceID:     strings.TrimSpace(r.SourceID),
		ContainerRef: strings.TrimSpace(r.ContainerRef),
	}
	if r.ArrivalTime != nil {
		n.ArrivalTime = r.ArrivalTime.UTC()
	}
	return n, n.SourceID != "" && n.ContainerRef != ""
}

// POST /api/ingest/notify
func (h *IngestHandler) Notify(c *gin.Context) {
	var req noticeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request_body", err)
		return
	}
	notice, ok := req.toNotice()
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "missing_field", nil)
		return
	}

	if h.enqueuer == nil {
		response.RespondError(c, http.StatusServiceUnavailable, "queue_disabled", nil)
		return
	}
	if err := h.enqueuer.EnqueueIngest(c.Request.Context(), notice); err != nil {
		h.log.Error("Notify failed (enqueue)", "error", err, "source_id", notice.SourceID)
		response.RespondError(c, http.StatusInternalServerError, "enqueue_failed", err)
		return
	}
	response.RespondAccepted(c, gin.H{
		"status":        "queued",
		"source_id":     notice.SourceID,
		"container_ref": notice.ContainerRef,
	})
}

// POST /api/ingest/run
//
// Synchronous ingestion for deployments without the queue (single-station
// collection points talk straight to the API).
func (h *IngestHandler) Run(c *gin.Context) {
	var req noticeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request_body", err)
		return
	}
	notice, ok := req.toNotice()
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "missing_field", nil)
		return
	}

	res, err := h.ingest.Ingest(c.Request.Context(), notice)
	if err != nil {
		status, code := statusForIngestError(err)
		if status >= 500 {
			h.log.Error("Run failed", "error", err, "source_id", notice.SourceID)
		}
		response.RespondError(c, status, code, err)
		return
	}
	if res.Status == services.StatusCreated {
		response.RespondCreated(c, res)
		return
	}
	response.RespondOK(c, res)
}
