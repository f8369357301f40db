package storage

import (
	"context"
	"sync"

	"port-vision/internal/domain/entity"
	"port-vision/internal/domain/port"
)

const defaultMemoryHistory = 50

// MemoryReportRepository in-memory хранилище отчётов: последний отчёт и короткая история
type MemoryReportRepository struct {
	mu      sync.RWMutex
	history []*entity.Inspection // новые в конце
	limit   int
}

// NewMemoryReportRepository создаёт хранилище, помнящее не больше limit отчётов
func NewMemoryReportRepository(limit int) *MemoryReportRepository {
	if limit <= 0 {
		limit = defaultMemoryHistory
	}
	return &MemoryReportRepository{limit: limit}
}

// Save добавляет отчёт и вытесняет самые старые
func (r *MemoryReportRepository) Save(ctx context.Context, inspection *entity.Inspection) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.history = append(r.history, inspection)
	if len(r.history) > r.limit {
		r.history = r.history[len(r.history)-r.limit:]
	}
	return nil
}

// Latest возвращает последний отчёт
func (r *MemoryReportRepository) Latest(ctx context.Context) (*entity.Inspection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.history) == 0 {
		return nil, entity.ErrNoReport
	}
	return r.history[len(r.history)-1], nil
}

// List возвращает до limit последних отчётов, новые первыми
func (r *MemoryReportRepository) List(ctx context.Context, limit int) ([]*entity.Inspection, error) {
	if limit <= 0 {
		return nil, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*entity.Inspection, 0, min(limit, len(r.history)))
	for i := len(r.history) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.history[i])
	}
	return out, nil
}

var _ port.ReportRepository = (*MemoryReportRepository)(nil)
