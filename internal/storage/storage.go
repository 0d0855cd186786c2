package storage

import (
	"context"
	"io"
	"time"
)

// Storage — интерфейс хранилища шаблонов и готовых файлов.
type Storage interface {
	// Save сохраняет файл в хранилище.
	Save(ctx context.Context, key string, reader io.Reader) error

	// Get возвращает содержимое файла.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete удаляет файл.
	Delete(ctx context.Context, key string) error

	// Exists сообщает о наличии файла.
	Exists(ctx context.Context, key string) (bool, error)

	// JoinPath склеивает элементы пути ключа.
	JoinPath(elem ...string) string
}

// FileMetadata метаданные файла.
type FileMetadata struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
	ContentType  string    `json:"content_type"`
}
