package port

import "context"

// ImageArchive хранит последнее загруженное изображение
type ImageArchive interface {
	// Put заменяет сохранённое изображение новым
	Put(ctx context.Context, name string, data []byte) error
}
