// Package sniffer classifies uploads by their magic bytes before any decode work.
package sniffer

import (
	"strings"

	"github.com/ds124wfegd/image-transformer/internal/entity"
	"github.com/gabriel-vasile/mimetype"
)

type Format string

const (
	FormatUnknown Format = ""
	FormatPNG     Format = "png"
	FormatJPEG    Format = "jpeg"
	FormatWEBP    Format = "webp"
)

func (f Format) Supported() bool {
	switch f {
	case FormatPNG, FormatJPEG, FormatWEBP:
		return true
	}
	return false
}

// Sniff returns the container format of data. Images other than PNG, JPEG and
// WEBP are still reported (for example "gif") so Validate can reject them as
// unsupported rather than unrecognized.
func Sniff(data []byte) (Format, error) {
	detected := mimetype.Detect(data)

	// APNG and friends are detected as children of the base format.
	for mtype := detected; mtype != nil; mtype = mtype.Parent() {
		switch {
		case mtype.Is("image/png"):
			return FormatPNG, nil
		case mtype.Is("image/jpeg"):
			return FormatJPEG, nil
		case mtype.Is("image/webp"):
			return FormatWEBP, nil
		}
	}

	if name, ok := strings.CutPrefix(detected.String(), "image/"); ok {
		return Format(name), nil
	}

	return FormatUnknown, entity.NewError(entity.ErrUnrecognizedFormat, "Could not determine image format")
}

func Validate(format Format) error {
	if !format.Supported() {
		return entity.NewError(entity.ErrUnsupportedFormat, "Input image must be PNG, JPG, or WebP")
	}
	return nil
}

// Check runs Sniff and Validate.
func Check(data []byte) (Format, error) {
	format, err := Sniff(data)
	if err != nil {
		return format, err
	}
	return format, Validate(format)
}
