package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"port-vision/internal/domain/port"
)

// FileImageArchive держит в каталоге только последнее загруженное изображение
type FileImageArchive struct {
	dir string
	mu  sync.Mutex
}

// NewFileImageArchive создаёт каталог для входящих изображений
func NewFileImageArchive(dir string) (*FileImageArchive, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create input dir: %w", err)
	}
	return &FileImageArchive{dir: dir}, nil
}

// Put очищает каталог и сохраняет изображение под его базовым именем
func (a *FileImageArchive) Put(ctx context.Context, name string, data []byte) error {
	name = filepath.Base(name)
	if name == "." || name == string(filepath.Separator) {
		return fmt.Errorf("invalid image name %q", name)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return fmt.Errorf("read input dir: %w", err)
	}
	for _, e := range entries {
		if e.Type().IsRegular() {
			if err := os.Remove(filepath.Join(a.dir, e.Name())); err != nil {
				return fmt.Errorf("clear input dir: %w", err)
			}
		}
	}

	if err := os.WriteFile(filepath.Join(a.dir, name), data, 0o644); err != nil {
		return fmt.Errorf("write image: %w", err)
	}
	return nil
}

var _ port.ImageArchive = (*FileImageArchive)(nil)
