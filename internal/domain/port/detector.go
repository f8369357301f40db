package port

import (
	"context"

	"port-vision/internal/domain/entity"
)

// PortDetector интерфейс одной модели детекции портов
type PortDetector interface {
	// Name возвращает имя модели для логов и отчётов
	Name() string

	// Detect прогоняет модель на изображении и возвращает размеченные области
	Detect(ctx context.Context, imageData []byte) (*entity.DetectionResult, error)
}
