package entity

import (
	"errors"
	"net/http"
)

var (
	// Client errors
	ErrMissingInput       = errors.New("missing input")
	ErrMalformedRequest   = errors.New("malformed request")
	ErrPayloadTooLarge    = errors.New("payload too large")
	ErrInvalidFormat      = errors.New("invalid format")
	ErrInvalidValue       = errors.New("invalid value")
	ErrOutOfRange         = errors.New("value out of range")
	ErrDimensionTooLarge  = errors.New("dimension too large")
	ErrUnrecognizedFormat = errors.New("unrecognized image format")
	ErrUnsupportedFormat  = errors.New("unsupported image format")

	// Server errors
	ErrDecode      = errors.New("decode error")
	ErrEncode      = errors.New("encode error")
	ErrTimeout     = errors.New("transform timed out")
	ErrUnavailable = errors.New("transform service unavailable")
	ErrInternal    = errors.New("internal error")
)

type Category int

const (
	CategoryServer Category = iota
	CategoryClient
)

func (c Category) String() string {
	if c == CategoryClient {
		return "client"
	}
	return "server"
}

// TransformError carries one of the sentinel kinds above, the text returned
// to the caller and the underlying cause, if any.
type TransformError struct {
	Kind    error
	Message string
	Err     error
}

func NewError(kind error, message string) *TransformError {
	return &TransformError{Kind: kind, Message: message}
}

func WrapError(kind error, message string, err error) *TransformError {
	return &TransformError{Kind: kind, Message: message, Err: err}
}

func (e *TransformError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *TransformError) Is(target error) bool {
	return e.Kind == target
}

func (e *TransformError) Unwrap() error {
	return e.Err
}

var clientKinds = []error{
	ErrMissingInput,
	ErrMalformedRequest,
	ErrPayloadTooLarge,
	ErrInvalidFormat,
	ErrInvalidValue,
	ErrOutOfRange,
	ErrDimensionTooLarge,
	ErrUnrecognizedFormat,
	ErrUnsupportedFormat,
}

func CategoryOf(err error) Category {
	for _, kind := range clientKinds {
		if errors.Is(err, kind) {
			return CategoryClient
		}
	}
	return CategoryServer
}

func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	case CategoryOf(err) == CategoryClient:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the text written to the response body.
func Message(err error) string {
	var te *TransformError
	if errors.As(err, &te) {
		return te.Message
	}
	return err.Error()
}

// KindName is a stable label for metrics and events.
func KindName(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrMissingInput):
		return "missing_input"
	case errors.Is(err, ErrMalformedRequest):
		return "malformed_request"
	case errors.Is(err, ErrPayloadTooLarge):
		return "payload_too_large"
	case errors.Is(err, ErrInvalidFormat):
		return "invalid_format"
	case errors.Is(err, ErrInvalidValue):
		return "invalid_value"
	case errors.Is(err, ErrOutOfRange):
		return "out_of_range"
	case errors.Is(err, ErrDimensionTooLarge):
		return "dimension_too_large"
	case errors.Is(err, ErrUnrecognizedFormat):
		return "unrecognized_format"
	case errors.Is(err, ErrUnsupportedFormat):
		return "unsupported_format"
	case errors.Is(err, ErrDecode):
		return "decode_error"
	case errors.Is(err, ErrEncode):
		return "encode_error"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	default:
		return "internal"
	}
}
