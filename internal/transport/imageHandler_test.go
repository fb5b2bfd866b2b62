package transport

import (
	"bytes"
	"context"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chai2010/webp"
	"github.com/ds124wfegd/image-transformer/config"
	"github.com/ds124wfegd/image-transformer/internal/entity"
	"github.com/ds124wfegd/image-transformer/internal/pkg/metrics"
	"github.com/ds124wfegd/image-transformer/internal/pkg/processor"
	"github.com/ds124wfegd/image-transformer/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type nopProducer struct{}

func (nopProducer) Publish(context.Context, entity.TransformEvent) error { return nil }
func (nopProducer) Close() error                                          { return nil }

type failingService struct {
	err error
}

func (s failingService) Transform(context.Context, *entity.TransformRequest) (*entity.TransformResult, error) {
	return nil, s.err
}

func (failingService) Close() {}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Timeout: time.Minute},
		Transform: config.TransformConfig{
			MaxUploadBytes:  1 << 20,
			PipelineTimeout: 10 * time.Second,
			Workers:         2,
		},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

func newTestRouter(t *testing.T, cfg *config.Config, svc service.TransformService) (*gin.Engine, *test.Hook) {
	t.Helper()
	log, hook := test.NewNullLogger()
	m := metrics.NewMetrics()

	if svc == nil {
		proc := processor.NewImageProcessor(processor.Options{}, log)
		svc = service.NewTransformService(proc, nopProducer{}, m, cfg.Transform, log)
		t.Cleanup(svc.Close)
	}

	handler := NewImageHandler(svc, cfg.Transform, log)
	return InitRoutes(handler, m, cfg, log), hook
}

type formPart struct {
	name     string
	filename string
	data     []byte
}

func multipartRequest(t *testing.T, parts ...formPart) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for _, p := range parts {
		if p.filename != "" {
			fw, err := w.CreateFormFile(p.name, p.filename)
			require.NoError(t, err)
			_, err = fw.Write(p.data)
			require.NoError(t, err)
			continue
		}
		require.NoError(t, w.WriteField(p.name, string(p.data)))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/transform", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func imagePart(data []byte) formPart {
	return formPart{name: "image", filename: "upload.png", data: data}
}

func field(name, value string) formPart {
	return formPart{name: name, data: []byte(value)}
}

func samplePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 3), G: uint8(y * 5), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// declaredPNG is a PNG header announcing width x height without any pixel data.
func declaredPNG(t *testing.T, width, height uint32) []byte {
	t.Helper()
	chunk := make([]byte, 4+13)
	copy(chunk, "IHDR")
	binary.BigEndian.PutUint32(chunk[4:], width)
	binary.BigEndian.PutUint32(chunk[8:], height)
	chunk[12] = 8 // bit depth, grayscale

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint32(13)))
	buf.Write(chunk)
	require.NoError(t, binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk)))
	return buf.Bytes()
}

func TestTransformImageSuccess(t *testing.T) {
	router, _ := newTestRouter(t, testConfig(), nil)
	pngData := samplePNG(t, 50, 40)

	tests := []struct {
		name       string
		parts      []formPart
		wantWidth  int
		wantHeight int
	}{
		{name: "no parameters", parts: []formPart{imagePart(pngData)}, wantWidth: 50, wantHeight: 40},
		{name: "resize", parts: []formPart{imagePart(pngData), field("size", "25x60")}, wantWidth: 25, wantHeight: 60},
		{name: "resize and quality", parts: []formPart{imagePart(pngData), field("size", "10x10"), field("quality", "42.5")}, wantWidth: 10, wantHeight: 10},
		{name: "unparseable quality falls back", parts: []formPart{imagePart(pngData), field("quality", "notanumber")}, wantWidth: 50, wantHeight: 40},
		{name: "image as value field", parts: []formPart{field("image", string(pngData))}, wantWidth: 50, wantHeight: 40},
		{name: "unknown fields ignored", parts: []formPart{field("extra", "1"), imagePart(pngData)}, wantWidth: 50, wantHeight: 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, multipartRequest(t, tt.parts...))

			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, "image/webp", rec.Header().Get("Content-Type"))
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

			out, err := webp.Decode(bytes.NewReader(rec.Body.Bytes()))
			require.NoError(t, err)
			assert.Equal(t, tt.wantWidth, out.Bounds().Dx())
			assert.Equal(t, tt.wantHeight, out.Bounds().Dy())
		})
	}
}

func TestTransformImageClientErrors(t *testing.T) {
	router, hook := newTestRouter(t, testConfig(), nil)
	pngData := samplePNG(t, 8, 8)

	tests := []struct {
		name        string
		parts       []formPart
		wantMessage string
	}{
		{
			name:        "missing image",
			parts:       []formPart{field("size", "10x10"), field("quality", "500")},
			wantMessage: "Image data not provided in 'image' field",
		},
		{
			name:        "quality above range",
			parts:       []formPart{imagePart(pngData), field("quality", "101")},
			wantMessage: "Quality must be between 0.0 and 100.0",
		},
		{
			name:        "quality below range",
			parts:       []formPart{imagePart(pngData), field("quality", "-1")},
			wantMessage: "Quality must be between 0.0 and 100.0",
		},
		{
			name:        "size without separator",
			parts:       []formPart{imagePart(pngData), field("size", "800")},
			wantMessage: "Invalid size format. Use 'WIDTHxHEIGHT'",
		},
		{
			name:        "size with letters",
			parts:       []formPart{imagePart(pngData), field("size", "ax10")},
			wantMessage: "Invalid width value",
		},
		{
			name:        "zero size",
			parts:       []formPart{imagePart(pngData), field("size", "0x10")},
			wantMessage: "Width and height must be greater than zero",
		},
		{
			name:        "text instead of image",
			parts:       []formPart{imagePart([]byte("this is not an image at all"))},
			wantMessage: "Could not determine image format",
		},
		{
			name:        "declared source too large",
			parts:       []formPart{imagePart(declaredPNG(t, 20000, 20000))},
			wantMessage: "Source image exceeds 50000000 pixels",
		},
		{
			name:        "gif",
			parts:       []formPart{imagePart([]byte("GIF89a\x01\x00\x01\x00"))},
			wantMessage: "Input image must be PNG, JPG, or WebP",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hook.Reset()
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, multipartRequest(t, tt.parts...))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.wantMessage, rec.Body.String())
			assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain"))

			entry := findEntry(hook, "transform rejected")
			require.NotNil(t, entry)
			assert.Equal(t, logrus.WarnLevel, entry.Level)
		})
	}
}

func TestTransformImageServerErrors(t *testing.T) {
	router, hook := newTestRouter(t, testConfig(), nil)
	pngData := samplePNG(t, 32, 32)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, multipartRequest(t, imagePart(pngData[:60])))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Failed to decode image"))

	entry := findEntry(hook, "transform failed")
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
}

func TestTransformImageErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "encode", err: entity.NewError(entity.ErrEncode, "Failed to encode image to WebP format"), wantStatus: http.StatusInternalServerError},
		{name: "timeout", err: entity.NewError(entity.ErrTimeout, "Image transformation timed out"), wantStatus: http.StatusGatewayTimeout},
		{name: "unavailable", err: entity.NewError(entity.ErrUnavailable, "Server is shutting down"), wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := newTestRouter(t, testConfig(), failingService{err: tt.err})

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, multipartRequest(t, imagePart(samplePNG(t, 2, 2))))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, entity.Message(tt.err), rec.Body.String())
		})
	}
}

func TestTransformImageRequestShape(t *testing.T) {
	cfg := testConfig()
	cfg.Transform.MaxUploadBytes = 1024
	router, _ := newTestRouter(t, cfg, nil)

	t.Run("payload too large", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, multipartRequest(t, imagePart(bytes.Repeat([]byte{0x89}, 4096))))
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("not multipart", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/transform", strings.NewReader(`{"image":"x"}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHealthAndMetrics(t *testing.T) {
	router, _ := newTestRouter(t, testConfig(), nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestMetricsDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.Enabled = false
	router, _ := newTestRouter(t, cfg, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func findEntry(hook *test.Hook, message string) *logrus.Entry {
	entries := hook.AllEntries()
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Message == message {
			return entries[i]
		}
	}
	return nil
}
