package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"port-vision/internal/domain/entity"
	"port-vision/internal/domain/port"
)

const (
	redisLatestKey  = "port-vision:inspections:latest"
	redisHistoryKey = "port-vision:inspections:history"
)

// RedisReportRepository хранит последний отчёт и ограниченную историю в Redis
type RedisReportRepository struct {
	client  *redis.Client
	history int64
}

// NewRedisReportRepository подключается к Redis и проверяет соединение
func NewRedisReportRepository(ctx context.Context, addr string, history int) (*RedisReportRepository, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	if history <= 0 {
		history = defaultMemoryHistory
	}
	return &RedisReportRepository{client: client, history: int64(history)}, nil
}

// Close закрывает клиент
func (r *RedisReportRepository) Close() error {
	return r.client.Close()
}

// Save атомарно обновляет последний отчёт и историю
func (r *RedisReportRepository) Save(ctx context.Context, inspection *entity.Inspection) error {
	data, err := json.Marshal(inspection)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, redisLatestKey, data, 0)
		pipe.LPush(ctx, redisHistoryKey, data)
		pipe.LTrim(ctx, redisHistoryKey, 0, r.history-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

// Latest возвращает последний отчёт
func (r *RedisReportRepository) Latest(ctx context.Context) (*entity.Inspection, error) {
	data, err := r.client.Get(ctx, redisLatestKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, entity.ErrNoReport
	}
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}

	var inspection entity.Inspection
	if err := json.Unmarshal(data, &inspection); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &inspection, nil
}

// List возвращает до limit последних отчётов
func (r *RedisReportRepository) List(ctx context.Context, limit int) ([]*entity.Inspection, error) {
	if limit <= 0 {
		return nil, nil
	}
	items, err := r.client.LRange(ctx, redisHistoryKey, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}

	out := make([]*entity.Inspection, 0, len(items))
	for _, item := range items {
		var inspection entity.Inspection
		if err := json.Unmarshal([]byte(item), &inspection); err != nil {
			return nil, fmt.Errorf("decode report: %w", err)
		}
		out = append(out, &inspection)
	}
	return out, nil
}

var _ port.ReportRepository = (*RedisReportRepository)(nil)
