package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"port-vision/internal/domain/entity"
	"port-vision/internal/domain/port"
)

// FileReportRepository хранит только последний отчёт в виде <имя изображения>.json в каталоге.
type FileReportRepository struct {
	dir string
	mu  sync.RWMutex
}

// NewFileReportRepository создаёт каталог для отчётов, если его нет
func NewFileReportRepository(dir string) (*FileReportRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &FileReportRepository{dir: dir}, nil
}

// Save удаляет старые JSON-файлы и записывает новый отчёт
func (r *FileReportRepository) Save(ctx context.Context, inspection *entity.Inspection) error {
	data, err := json.MarshalIndent(inspection, "", "    ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.clear(); err != nil {
		return err
	}

	stem := strings.TrimSuffix(inspection.Image, filepath.Ext(inspection.Image))
	if stem == "" || stem == "." {
		stem = inspection.ID
	}
	// Пишем во временный файл и переименовываем, чтобы читатель не увидел половину JSON.
	target := filepath.Join(r.dir, stem+".json")
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func (r *FileReportRepository) clear() error {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf("read output dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		if err := os.Remove(filepath.Join(r.dir, e.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove old report: %w", err)
		}
	}
	return nil
}

// Latest читает самый свежий JSON-файл каталога
func (r *FileReportRepository) Latest(ctx context.Context) (*entity.Inspection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	path, err := r.newest()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	var inspection entity.Inspection
	if err := json.Unmarshal(data, &inspection); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", filepath.Base(path), err)
	}
	return &inspection, nil
}

func (r *FileReportRepository) newest() (string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", entity.ErrNoReport
		}
		return "", fmt.Errorf("read output dir: %w", err)
	}

	var (
		newest string
		best   int64
	)
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if ts := info.ModTime().UnixNano(); newest == "" || ts > best {
			newest, best = e.Name(), ts
		}
	}
	if newest == "" {
		return "", entity.ErrNoReport
	}
	return filepath.Join(r.dir, newest), nil
}

// List возвращает единственный хранимый отчёт
func (r *FileReportRepository) List(ctx context.Context, limit int) ([]*entity.Inspection, error) {
	if limit <= 0 {
		return nil, nil
	}
	latest, err := r.Latest(ctx)
	if errors.Is(err, entity.ErrNoReport) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []*entity.Inspection{latest}, nil
}

var _ port.ReportRepository = (*FileReportRepository)(nil)
