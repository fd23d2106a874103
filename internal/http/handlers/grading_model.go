package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mlimaops/teagrade-backend/internal/data/repos"
	"github.com/mlimaops/teagrade-backend/internal/http/response"
	pkgerrors "github.com/mlimaops/teagrade-backend/internal/pkg/errors"
	"github.com/mlimaops/teagrade-backend/internal/platform/dbctx"
	"github.com/mlimaops/teagrade-backend/internal/platform/logger"
)

type GradingModelHandler struct {
	log    *logger.Logger
	models repos.GradingModelRepo
}

func NewGradingModelHandler(log *logger.Logger, models repos.GradingModelRepo) *GradingModelHandler {
	return &GradingModelHandler{
		log:    log.With("handler", "GradingModelHandler"),
		models: models,
	}
}

// GET /api/grading-models/:id/versions/:version
func (h *GradingModelHandler) GetModelVersion(c *gin.Context) {
	modelID := c.Param("id")
	version, err := strconv.Atoi(c.Param("version"))
	if err != nil || version < 1 {
		response.RespondError(c, http.StatusBadRequest, "invalid_version", err)
		return
	}

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	model, err := h.models.GetByIDVersion(dbc, modelID, version)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrNotFound) {
			response.RespondError(c, http.StatusNotFound, "grading_model_not_found", nil)
			return
		}
		h.log.Error("GetModelVersion failed", "error", err, "model_id", modelID, "version", version)
		response.RespondError(c, http.StatusInternalServerError, "load_grading_model_failed", err)
		return
	}
	response.RespondOK(c, model)
}
