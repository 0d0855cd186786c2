package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalStorage хранит файлы в директории на локальном диске.
type LocalStorage struct {
	basePath string
}

// NewLocalStorage создаёт локальное хранилище с корнем basePath.
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("создание директории хранилища %s: %w", basePath, err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

// Save сохраняет файл в хранилище.
func (s *LocalStorage) Save(ctx context.Context, key string, reader io.Reader) error {
	path := filepath.Join(s.basePath, key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("создание директории для %s: %w", key, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("создание файла %s: %w", key, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, reader); err != nil {
		return fmt.Errorf("запись файла %s: %w", key, err)
	}
	return nil
}

// Get возвращает содержимое файла.
func (s *LocalStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.basePath, key))
	if err != nil {
		return nil, fmt.Errorf("открытие файла %s: %w", key, err)
	}
	return f, nil
}

// Delete удаляет файл.
func (s *LocalStorage) Delete(ctx context.Context, key string) error {
	if err := os.Remove(filepath.Join(s.basePath, key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("удаление файла %s: %w", key, err)
	}
	return nil
}

// Exists сообщает о наличии файла.
func (s *LocalStorage) Exists(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(filepath.Join(s.basePath, key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// JoinPath склеивает элементы пути ключа.
func (s *LocalStorage) JoinPath(elem ...string) string {
	return filepath.Join(elem...)
}
