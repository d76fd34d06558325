package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalStorage хранит блобы на диске с шардированием по префиксу хеша
// (ab/cd/abcd... — ограничивает число записей в одном каталоге).
type LocalStorage struct {
	basePath string
}

var _ BlobStorage = (*LocalStorage)(nil)

func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

func (s *LocalStorage) path(hash string) string {
	return filepath.Join(s.basePath, hash[0:2], hash[2:4], hash)
}

func (s *LocalStorage) Save(ctx context.Context, r io.Reader, hash string) (string, error) {
	target := s.path(hash)
	if _, err := os.Stat(target); err == nil {
		// уже лежит — контент по одному хешу всегда одинаковый
		return target, nil
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", err
	}

	// пишем во временный файл и переименовываем, чтобы параллельный Save
	// того же хеша не увидел недописанный блоб
	tmp, err := os.CreateTemp(filepath.Dir(target), "."+hash+".*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.CopyBuffer(tmp, r, make([]byte, ChunkSize)); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", err
	}
	return target, nil
}

func (s *LocalStorage) Get(ctx context.Context, hash string) (io.ReadCloser, error) {
	f, err := os.Open(s.path(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBlobNotFound
		}
		return nil, err
	}
	return f, nil
}

func (s *LocalStorage) Exists(ctx context.Context, hash string) (bool, error) {
	_, err := os.Stat(s.path(hash))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (s *LocalStorage) Delete(ctx context.Context, hash string) error {
	err := os.Remove(s.path(hash))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
