package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mlimaops/teagrade-backend/internal/data/repos"
	"github.com/mlimaops/teagrade-backend/internal/http/response"
	pkgerrors "github.com/mlimaops/teagrade-backend/internal/pkg/errors"
	"github.com/mlimaops/teagrade-backend/internal/platform/dbctx"
	"github.com/mlimaops/teagrade-backend/internal/platform/logger"
)

type DocumentHandler struct {
	log       *logger.Logger
	documents repos.DocumentRepo
}

func NewDocumentHandler(log *logger.Logger, documents repos.DocumentRepo) *DocumentHandler {
	return &DocumentHandler{
		log:       log.With("handler", "DocumentHandler"),
		documents: documents,
	}
}

// GET /api/documents/:id
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	documentID, err := uuid.Parse(c.Param("id"))
	if err != nil || documentID == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_document_id", err)
		return
	}

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	doc, err := h.documents.GetByID(dbc, documentID)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrNotFound) {
			response.RespondError(c, http.StatusNotFound, "document_not_found", nil)
			return
		}
		h.log.Error("GetDocument failed", "error", err, "document_id", documentID)
		response.RespondError(c, http.StatusInternalServerError, "load_document_failed", err)
		return
	}
	response.RespondOK(c, doc)
}

// GET /api/documents?source_id=&limit=
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	sourceID := strings.TrimSpace(c.Query("source_id"))
	if sourceID == "" {
		response.RespondError(c, http.StatusBadRequest, "missing_source_id", nil)
		return
	}
	limit := 100
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			response.RespondError(c, http.StatusBadRequest, "invalid_limit", err)
			return
		}
		limit = n
	}

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	docs, err := h.documents.ListBySourceID(dbc, sourceID, limit)
	if err != nil {
		h.log.Error("ListDocuments failed", "error", err, "source_id", sourceID)
		response.RespondError(c, http.StatusInternalServerError, "list_documents_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"documents": docs, "count": len(docs)})
}
