package processor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/ds124wfegd/image-transformer/internal/entity"
	"github.com/ds124wfegd/image-transformer/internal/pkg/sniffer"
	"github.com/sirupsen/logrus"
	"golang.org/x/image/draw"
)

// WebPMaxDimension is the largest width or height libwebp can encode.
const WebPMaxDimension = 16383

// DefaultMaxSourcePixels bounds width*height of an input image before it is decoded.
const DefaultMaxSourcePixels = 50_000_000

type ZeroDimensionPolicy string

const (
	ZeroDimensionReject      ZeroDimensionPolicy = "reject"
	ZeroDimensionPassthrough ZeroDimensionPolicy = "passthrough"
)

type ImageProcessor interface {
	Process(ctx context.Context, req *entity.TransformRequest) (*entity.TransformResult, error)
}

type Options struct {
	ZeroDimension   ZeroDimensionPolicy
	MaxDimension    uint32
	MaxSourcePixels uint64
}

type imageProcessor struct {
	opts Options
	log  *logrus.Logger
}

func NewImageProcessor(opts Options, log *logrus.Logger) ImageProcessor {
	if opts.ZeroDimension == "" {
		opts.ZeroDimension = ZeroDimensionReject
	}
	if opts.MaxDimension == 0 {
		opts.MaxDimension = WebPMaxDimension
	}
	if opts.MaxSourcePixels == 0 {
		opts.MaxSourcePixels = DefaultMaxSourcePixels
	}
	return &imageProcessor{opts: opts, log: log}
}

// Process runs validate -> decode -> resample (only if a size was requested)
// -> encode. The first failing stage aborts the pipeline.
func (p *imageProcessor) Process(ctx context.Context, req *entity.TransformRequest) (*entity.TransformResult, error) {
	start := time.Now()
	entry := p.log.WithField("request_id", req.RequestID)

	if req.Size != nil {
		if err := p.checkSize(*req.Size); err != nil {
			return nil, err
		}
	}

	format, err := sniffer.Check(req.ImageBytes)
	if err != nil {
		return nil, err
	}

	if err := p.checkSource(req.ImageBytes); err != nil {
		return nil, err
	}

	if err := contextError(ctx); err != nil {
		return nil, err
	}

	img, err := Decode(req.ImageBytes)
	if err != nil {
		return nil, err
	}
	entry.WithFields(logrus.Fields{
		"format": format,
		"width":  img.Bounds().Dx(),
		"height": img.Bounds().Dy(),
	}).Debug("image decoded")

	if req.Size != nil {
		if err := contextError(ctx); err != nil {
			return nil, err
		}
		img = Resample(img, req.Size.Width, req.Size.Height)
	}

	if err := contextError(ctx); err != nil {
		return nil, err
	}

	data, err := Encode(img, req.QualityOrDefault())
	if err != nil {
		return nil, err
	}

	entry.WithFields(logrus.Fields{
		"output_bytes": len(data),
		"duration":     time.Since(start),
	}).Debug("image encoded")

	return &entity.TransformResult{
		Data:         data,
		ContentType:  entity.ContentTypeWebP,
		SourceFormat: string(format),
		Width:        img.Bounds().Dx(),
		Height:       img.Bounds().Dy(),
	}, nil
}

func (p *imageProcessor) checkSize(size entity.Size) error {
	if p.opts.ZeroDimension == ZeroDimensionReject && (size.Width == 0 || size.Height == 0) {
		return entity.NewError(entity.ErrInvalidValue, "Width and height must be greater than zero")
	}
	if size.Width > p.opts.MaxDimension || size.Height > p.opts.MaxDimension {
		return entity.NewError(entity.ErrDimensionTooLarge,
			fmt.Sprintf("Width and height must not exceed %d", p.opts.MaxDimension))
	}
	return nil
}

// checkSource reads only the image header, so the pixel buffer is never
// allocated for sources above the limit.
func (p *imageProcessor) checkSource(data []byte) error {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return entity.WrapError(entity.ErrDecode, fmt.Sprintf("Failed to decode image: %v", err), err)
	}
	if uint64(cfg.Width)*uint64(cfg.Height) > p.opts.MaxSourcePixels {
		return entity.NewError(entity.ErrDimensionTooLarge,
			fmt.Sprintf("Source image exceeds %d pixels", p.opts.MaxSourcePixels))
	}
	return nil
}

// Decode expects bytes that already passed sniffer.Check.
func Decode(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, entity.WrapError(entity.ErrDecode, fmt.Sprintf("Failed to decode image: %v", err), err)
	}
	return img, nil
}

// Resample scales img to exactly width x height with a 3-lobe Lanczos filter.
// A zero in one dimension keeps the aspect ratio, zero in both yields an
// empty image.
func Resample(img image.Image, width, height uint32) image.Image {
	return imaging.Resize(img, int(width), int(height), imaging.Lanczos)
}

// Encode converts img to 8-bit non-premultiplied RGBA and encodes it as
// lossy WebP. quality is 0 (smallest) to 100 (best).
func Encode(img image.Image, quality float32) ([]byte, error) {
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, entity.NewError(entity.ErrEncode, "Failed to encode image to WebP format")
	}

	rgba := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)

	data, err := webp.EncodeRGBA(rgba, quality)
	if err != nil {
		return nil, entity.WrapError(entity.ErrEncode, "Failed to encode image to WebP format", err)
	}
	if len(data) == 0 {
		return nil, entity.NewError(entity.ErrEncode, "Failed to encode image to WebP format")
	}
	return data, nil
}

func contextError(ctx context.Context) error {
	err := ctx.Err()
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return entity.WrapError(entity.ErrTimeout, "Image transformation timed out", err)
	default:
		return entity.WrapError(entity.ErrUnavailable, "Image transformation cancelled", err)
	}
}
