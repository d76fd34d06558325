package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hashOf(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func TestLocalStorage_SaveAndGet(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	data := []byte("hello blob")
	hash := hashOf(data)

	path, err := s.Save(ctx, bytes.NewReader(data), hash)
	require.NoError(t, err)
	// шардирование по префиксу хеша: ab/cd/abcd...
	assert.Equal(t, filepath.Join(hash[0:2], hash[2:4], hash), trimBase(t, s, path))

	rc, err := s.Get(ctx, hash)
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	exists, err := s.Exists(ctx, hash)
	require.NoError(t, err)
	assert.True(t, exists)
}

func trimBase(t *testing.T, s *LocalStorage, path string) string {
	t.Helper()
	rel, err := filepath.Rel(s.basePath, path)
	require.NoError(t, err)
	return rel
}

func TestLocalStorage_SaveIdempotent(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	data := []byte("same content")
	hash := hashOf(data)

	_, err = s.Save(ctx, bytes.NewReader(data), hash)
	require.NoError(t, err)

	// повторный Save того же хеша не перечитывает источник
	path, err := s.Save(ctx, bytes.NewReader(nil), hash)
	require.NoError(t, err)

	rc, err := s.Get(ctx, hash)
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.NotEmpty(t, path)
}

func TestLocalStorage_GetMissing(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = s.Get(context.Background(), hashOf([]byte("never saved")))
	assert.ErrorIs(t, err, ErrBlobNotFound)
}

func TestLocalStorage_Delete(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	data := []byte("to delete")
	hash := hashOf(data)
	_, err = s.Save(ctx, bytes.NewReader(data), hash)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, hash))
	exists, err := s.Exists(ctx, hash)
	require.NoError(t, err)
	assert.False(t, exists)

	// удаление отсутствующего — no-op
	assert.NoError(t, s.Delete(ctx, hash))
}
