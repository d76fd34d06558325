package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"DriveKeeper/internal/model"
	"DriveKeeper/internal/repo"
	"DriveKeeper/internal/storage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"
)

// newTestUoW поднимает in-memory SQLite (modernc.org/sqlite) и UnitOfWork
// поверх него. DSN уникален на тест.
func newTestUoW(t *testing.T) (repo.UnitOfWork, *gorm.DB) {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dial := gormsqlite.Dialector{DriverName: "sqlite", DSN: fmt.Sprintf("file:%s?mode=memory&cache=shared", name)}
	db, err := gorm.Open(dial, &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite (modernc): %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("failed to automigrate: %v", err)
	}
	return repo.NewUnitOfWork(db), db
}

// fakeStorage — блоб-хранилище в памяти для тестов сервисов.
type fakeStorage struct {
	mu    sync.Mutex
	blobs map[string][]byte
	saves int
}

var _ storage.BlobStorage = (*fakeStorage)(nil)

func newFakeStorage() *fakeStorage {
	return &fakeStorage{blobs: map[string][]byte{}}
}

func (f *fakeStorage) Save(ctx context.Context, r io.Reader, hash string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.blobs[hash]; !ok {
		f.blobs[hash] = data
		f.saves++
	}
	return "mem://" + hash, nil
}

func (f *fakeStorage) Get(ctx context.Context, hash string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.blobs[hash]
	if !ok {
		return nil, storage.ErrBlobNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeStorage) Exists(ctx context.Context, hash string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.blobs[hash]
	return ok, nil
}

func (f *fakeStorage) Delete(ctx context.Context, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.blobs, hash)
	return nil
}

// auditEntries достаёт записи журнала нужного вида для проверок.
func auditEntries(t *testing.T, db *gorm.DB, op model.OpType, userID *uuid.UUID) []model.LogEntry {
	t.Helper()
	entries, err := repo.NewLogbookRepository(db).ListByOp(context.Background(), op, userID)
	require.NoError(t, err)
	return entries
}

var testClient = ClientInfo{IP: "127.0.0.1", UserAgent: "go-test"}
