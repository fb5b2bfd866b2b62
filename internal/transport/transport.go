package transport

import (
	"github.com/ds124wfegd/image-transformer/config"
	"github.com/ds124wfegd/image-transformer/internal/pkg/metrics"
	"github.com/ds124wfegd/image-transformer/internal/transport/middleware"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// multipart parts above this size are spooled to temp files
const maxMultipartMemory = 8 << 20

func InitRoutes(imgHandler *ImageHandler, m *metrics.Metrics, cfg *config.Config, log *logrus.Logger) *gin.Engine {

	router := gin.New()
	router.MaxMultipartMemory = maxMultipartMemory

	// Middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.CORS())
	router.Use(middleware.Timeout(cfg.Server.Timeout))

	if cfg.Metrics.Enabled {
		router.Use(middleware.Metrics(m))
		router.GET(cfg.Metrics.Path, gin.WrapH(m.Handler()))
	}

	router.POST("/transform", imgHandler.TransformImage)

	// Health check
	router.GET("/healthz", imgHandler.HealthCheck)

	return router
}
