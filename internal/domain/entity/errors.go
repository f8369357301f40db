package entity

import "errors"

var (
	ErrNoReport         = errors.New("no report available")
	ErrEmptyImage       = errors.New("empty image")
	ErrUnsupportedImage = errors.New("unsupported image format")
	ErrNoDetectors      = errors.New("no detectors configured")
)
