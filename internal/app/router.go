package app

import (
	"github.com/gin-gonic/gin"

	"github.com/mlimaops/teagrade-backend/internal/http/middleware"
	"github.com/mlimaops/teagrade-backend/internal/platform/logger"
)

func wireRouter(log *logger.Logger, handlerset Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.AttachRequestID())
	router.Use(middleware.RequestLogger(log))

	router.GET("/healthcheck", handlerset.Health.HealthCheck)

	api := router.Group("/api")
	{
		api.POST("/ingest/notify", handlerset.Ingest.Notify)
		api.POST("/ingest/run", handlerset.Ingest.Run)

		api.GET("/documents", handlerset.Document.ListDocuments)
		api.GET("/documents/:id", handlerset.Document.GetDocument)

		api.GET("/grading-models/:id/versions/:version", handlerset.GradingModel.GetModelVersion)
	}

	return router
}
