package transport

import (
	"github.com/ds124wfegd/image-transformer/config"
	"github.com/ds124wfegd/image-transformer/internal/pkg/params"
	"github.com/ds124wfegd/image-transformer/internal/service"
	"github.com/sirupsen/logrus"
)

type ImageHandler struct {
	service        service.TransformService
	maxUploadBytes int64
	qualityPolicy  params.QualityPolicy
	log            *logrus.Logger
}

func NewImageHandler(service service.TransformService, cfg config.TransformConfig, log *logrus.Logger) *ImageHandler {
	return &ImageHandler{
		service:        service,
		maxUploadBytes: cfg.MaxUploadBytes,
		qualityPolicy:  params.PolicyFromStrict(cfg.StrictQuality),
		log:            log,
	}
}
