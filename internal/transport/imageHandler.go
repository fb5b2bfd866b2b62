package transport

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/ds124wfegd/image-transformer/internal/entity"
	"github.com/ds124wfegd/image-transformer/internal/pkg/params"
	"github.com/ds124wfegd/image-transformer/internal/transport/middleware"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	fieldImage   = "image"
	fieldSize    = "size"
	fieldQuality = "quality"
)

// TransformImage handles POST /transform (multipart/form-data with image,
// size and quality fields) and answers with the WebP bytes.
func (h *ImageHandler) TransformImage(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}

	req, err := h.parseRequest(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	req.RequestID = c.GetString(middleware.RequestIDKey)

	result, err := h.service.Transform(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.Data(http.StatusOK, result.ContentType, result.Data)
}

func (h *ImageHandler) HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// parseRequest checks for the image before touching size or quality, so a
// missing image is always reported as such.
func (h *ImageHandler) parseRequest(c *gin.Context) (*entity.TransformRequest, error) {
	form, err := c.MultipartForm()
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, entity.WrapError(entity.ErrPayloadTooLarge, "Upload exceeds the maximum allowed size", err)
		}
		return nil, entity.WrapError(entity.ErrMalformedRequest, "Request must be multipart/form-data", err)
	}

	imageBytes, err := readImageField(form)
	if err != nil {
		return nil, err
	}

	req := &entity.TransformRequest{ImageBytes: imageBytes}

	if text, ok := lastValue(form, fieldSize); ok {
		size, err := params.ParseSize(text)
		if err != nil {
			return nil, err
		}
		req.Size = &size
	}

	if text, ok := lastValue(form, fieldQuality); ok {
		quality, err := params.ParseQuality(text, h.qualityPolicy)
		if err != nil {
			return nil, err
		}
		req.Quality = quality
	}

	return req, nil
}

func (h *ImageHandler) fail(c *gin.Context, err error) {
	status := entity.StatusCode(err)

	entry := h.log.WithFields(logrus.Fields{
		"status":     status,
		"error":      err.Error(),
		"request_id": c.GetString(middleware.RequestIDKey),
	})
	if entity.CategoryOf(err) == entity.CategoryClient {
		entry.Warn("transform rejected")
	} else {
		entry.Error("transform failed")
	}

	c.String(status, entity.Message(err))
}

// readImageField accepts the image as a file part or as a plain value part.
// The last occurrence wins.
func readImageField(form *multipart.Form) ([]byte, error) {
	if files := form.File[fieldImage]; len(files) > 0 {
		file, err := files[len(files)-1].Open()
		if err != nil {
			return nil, entity.WrapError(entity.ErrMalformedRequest, "Could not read 'image' field", err)
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return nil, entity.WrapError(entity.ErrMalformedRequest, "Could not read 'image' field", err)
		}
		return data, nil
	}

	if text, ok := lastValue(form, fieldImage); ok {
		return []byte(text), nil
	}

	return nil, entity.NewError(entity.ErrMissingInput, "Image data not provided in 'image' field")
}

func lastValue(form *multipart.Form, key string) (string, bool) {
	values := form.Value[key]
	if len(values) == 0 {
		return "", false
	}
	return values[len(values)-1], true
}
