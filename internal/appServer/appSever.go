// launching the server, worker pool, kafka producer, metrics
package appServer

import (
	"context"
	"crypto/tls"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ds124wfegd/image-transformer/config"
	"github.com/ds124wfegd/image-transformer/internal/pkg/kafka"
	"github.com/ds124wfegd/image-transformer/internal/pkg/metrics"
	"github.com/ds124wfegd/image-transformer/internal/pkg/processor"
	"github.com/ds124wfegd/image-transformer/internal/service"
	"github.com/ds124wfegd/image-transformer/internal/transport"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	httpServer *http.Server
}

func (s *Server) Run(cfg *config.Config, handler http.Handler, logger *logrus.Logger) error {
	s.httpServer = &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           handler,
		MaxHeaderBytes:    1 << 20,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       cfg.Server.Idle_timeout,
		ReadHeaderTimeout: 3 * time.Second,
		TLSConfig:         &tls.Config{MinVersion: tls.VersionTLS12},
		ErrorLog:          log.New(logger.WriterLevel(logrus.ErrorLevel), "", 0),
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// NewHandler wires the transform pipeline and returns the router together
// with the service that owns the worker pool.
func NewHandler(cfg *config.Config, logger *logrus.Logger) (http.Handler, service.TransformService) {
	appMetrics := metrics.NewMetrics()
	producer := kafka.NewProducer(cfg.Kafka, logger)
	imgProcessor := processor.NewImageProcessor(processor.Options{
		ZeroDimension:   processor.ZeroDimensionPolicy(cfg.Transform.ZeroDimension),
		MaxDimension:    cfg.Transform.MaxDimension,
		MaxSourcePixels: cfg.Transform.MaxSourcePixels,
	}, logger)
	transformService := service.NewTransformService(imgProcessor, producer, appMetrics, cfg.Transform, logger)
	imgHandler := transport.NewImageHandler(transformService, cfg.Transform, logger)

	return transport.InitRoutes(imgHandler, appMetrics, cfg, logger), transformService
}

func NewServer(cfg *config.Config, logger *logrus.Logger) {

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	handler, transformService := NewHandler(cfg, logger)

	srv := new(Server)
	go func() {
		if err := srv.Run(cfg, handler, logger); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("error occured while running http server: %s", err.Error())
		}
	}()

	logger.WithField("addr", cfg.Server.Addr()).Print("App Started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logger.Print("App Shutting Down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("error occured on server shutting down: %s", err.Error())
	}
	transformService.Close()
}
