package entity

import "time"

const ContentTypeWebP = "image/webp"

const DefaultQuality float32 = 100

type Size struct {
	Width  uint32 `json:"width"`
	Height uint32 `json:"height"`
}

// TransformRequest is built once per upload and owned by the goroutine
// processing it. ImageBytes must not be modified while the pipeline runs.
type TransformRequest struct {
	RequestID  string
	ImageBytes []byte
	Size       *Size
	Quality    *float32
}

func (r *TransformRequest) QualityOrDefault() float32 {
	if r.Quality == nil {
		return DefaultQuality
	}
	return *r.Quality
}

type TransformResult struct {
	Data         []byte
	ContentType  string
	SourceFormat string
	Width        int
	Height       int
}

type TransformEvent struct {
	RequestID    string        `json:"request_id"`
	Status       string        `json:"status"`
	ErrorKind    string        `json:"error_kind,omitempty"`
	SourceFormat string        `json:"source_format,omitempty"`
	InputBytes   int           `json:"input_bytes"`
	OutputBytes  int           `json:"output_bytes,omitempty"`
	Width        int           `json:"width,omitempty"`
	Height       int           `json:"height,omitempty"`
	Quality      float32       `json:"quality"`
	Resized      bool          `json:"resized"`
	Duration     time.Duration `json:"duration_ns"`
	Time         time.Time     `json:"time"`
}
