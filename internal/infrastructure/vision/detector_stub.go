//go:build !gocv
// +build !gocv

package vision

import (
	"context"
	"errors"

	"port-vision/internal/domain/entity"
	"port-vision/internal/domain/port"
)

var errNoGoCV = errors.New("gocv build tag is not enabled")

type YOLODetector struct {
	InputSize      int
	ScoreThreshold float32
	NMSThreshold   float32

	name string
}

// NewYOLODetector возвращает ошибку, если сборка без тега gocv.
func NewYOLODetector(name, modelPath string, labels []string) (*YOLODetector, error) {
	_ = modelPath
	_ = labels
	return nil, errNoGoCV
}

// Name возвращает имя модели
func (d *YOLODetector) Name() string {
	return d.name
}

// Close ничего не делает без OpenCV.
func (d *YOLODetector) Close() error {
	return nil
}

// Detect возвращает ошибку, если сборка без тега gocv.
func (d *YOLODetector) Detect(ctx context.Context, imageData []byte) (*entity.DetectionResult, error) {
	_ = ctx
	_ = imageData
	return nil, errNoGoCV
}

var _ port.PortDetector = (*YOLODetector)(nil)
