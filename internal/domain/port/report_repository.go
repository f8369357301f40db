package port

import (
	"context"

	"port-vision/internal/domain/entity"
)

// ReportRepository интерфейс хранилища результатов проверки
type ReportRepository interface {
	// Save сохраняет результат проверки
	Save(ctx context.Context, inspection *entity.Inspection) error

	// Latest возвращает последний результат или entity.ErrNoReport
	Latest(ctx context.Context) (*entity.Inspection, error)

	// List возвращает до limit последних результатов, новые первыми
	List(ctx context.Context, limit int) ([]*entity.Inspection, error)
}
