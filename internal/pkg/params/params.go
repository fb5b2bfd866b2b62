// Package params parses the textual size and quality form fields.
package params

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/ds124wfegd/image-transformer/internal/entity"
)

const (
	MinQuality = 0.0
	MaxQuality = 100.0
)

// QualityPolicy decides what happens to a quality value that is not a number.
type QualityPolicy int

const (
	// QualityLenient treats an unparseable quality as absent.
	QualityLenient QualityPolicy = iota
	// QualityStrict rejects an unparseable quality with ErrInvalidValue.
	QualityStrict
)

func PolicyFromStrict(strict bool) QualityPolicy {
	if strict {
		return QualityStrict
	}
	return QualityLenient
}

// ParseSize parses "WIDTHxHEIGHT". No upper bound is applied here.
func ParseSize(text string) (entity.Size, error) {
	parts := strings.Split(text, "x")
	if len(parts) != 2 {
		return entity.Size{}, entity.NewError(entity.ErrInvalidFormat, "Invalid size format. Use 'WIDTHxHEIGHT'")
	}

	width, err := parseDimension(parts[0])
	if err != nil {
		return entity.Size{}, entity.WrapError(entity.ErrInvalidValue, "Invalid width value", err)
	}

	height, err := parseDimension(parts[1])
	if err != nil {
		return entity.Size{}, entity.WrapError(entity.ErrInvalidValue, "Invalid height value", err)
	}

	return entity.Size{Width: uint32(width), Height: uint32(height)}, nil
}

// parseDimension accepts an optional single leading '+'.
func parseDimension(text string) (uint64, error) {
	return strconv.ParseUint(strings.TrimPrefix(text, "+"), 10, 32)
}

// ParseQuality returns nil when the quality is absent.
func ParseQuality(text string, policy QualityPolicy) (*float32, error) {
	v, err := strconv.ParseFloat(text, 32)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		if policy == QualityStrict {
			return nil, entity.WrapError(entity.ErrInvalidValue, "Invalid quality value", err)
		}
		return nil, nil
	}

	if math.IsNaN(v) || v < MinQuality || v > MaxQuality {
		return nil, entity.NewError(entity.ErrOutOfRange, "Quality must be between 0.0 and 100.0")
	}

	q := float32(v)
	return &q, nil
}
