package storage

import (
	"context"
	"errors"
	"io"
)

// ChunkSize — размер блока при потоковом чтении/записи блобов.
const ChunkSize = 1 << 20 // 1 MiB

// ErrBlobNotFound возвращается Get, если блоба с таким хешем нет физически.
var ErrBlobNotFound = errors.New("blob not found in storage")

// BlobStorage — контентно-адресуемое хранилище байтов. Ключ — sha256-хеш
// содержимого. Реализации (локальный диск, S3) взаимозаменяемы.
type BlobStorage interface {
	// Save пишет содержимое под ключом hash и возвращает путь/ключ хранения.
	// Повторный Save того же хеша — no-op.
	Save(ctx context.Context, r io.Reader, hash string) (string, error)

	// Get отдаёт содержимое ленивым потоком. Закрыть — обязанность вызывающего.
	Get(ctx context.Context, hash string) (io.ReadCloser, error)

	Exists(ctx context.Context, hash string) (bool, error)

	Delete(ctx context.Context, hash string) error
}
