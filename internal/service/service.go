package service

import (
	"context"
	"runtime"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/ds124wfegd/image-transformer/config"
	"github.com/ds124wfegd/image-transformer/internal/entity"
	"github.com/ds124wfegd/image-transformer/internal/pkg/kafka"
	"github.com/ds124wfegd/image-transformer/internal/pkg/metrics"
	"github.com/ds124wfegd/image-transformer/internal/pkg/processor"
	"github.com/sirupsen/logrus"
)

type TransformService interface {
	// Transform runs the pipeline on the CPU worker pool and waits for it,
	// at most until the pipeline timeout or ctx expires.
	Transform(ctx context.Context, req *entity.TransformRequest) (*entity.TransformResult, error)
	// Close stops accepting work and waits for running transforms.
	Close()
}

type transformService struct {
	processor processor.ImageProcessor
	pool      pond.ResultPool[*entity.TransformResult]
	producer  kafka.Producer
	metrics   *metrics.Metrics
	timeout   time.Duration
	log       *logrus.Logger
}

func NewTransformService(
	proc processor.ImageProcessor,
	producer kafka.Producer,
	m *metrics.Metrics,
	cfg config.TransformConfig,
	log *logrus.Logger,
) TransformService {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	log.WithField("workers", workers).Info("transform worker pool started")

	return &transformService{
		processor: proc,
		pool:      pond.NewResultPool[*entity.TransformResult](workers),
		producer:  producer,
		metrics:   m,
		timeout:   cfg.PipelineTimeout,
		log:       log,
	}
}
