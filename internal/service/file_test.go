package service

import (
	"bytes"
	"context"
	"io"
	"testing"

	"DriveKeeper/internal/apperrors"
	"DriveKeeper/internal/model"
	"DriveKeeper/internal/repo"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newFileService(t *testing.T, maxBytes int64) (*FileService, *fakeStorage, *gorm.DB) {
	t.Helper()
	uow, db := newTestUoW(t)
	fs := newFakeStorage()
	return NewFileService(uow, fs, NewLogbookService(), maxBytes, zap.NewNop().Sugar()), fs, db
}

func seedOwner(t *testing.T, db *gorm.DB) uuid.UUID {
	t.Helper()
	u := &model.User{ID: uuid.New(), Email: uuid.NewString() + "@example.com", DisplayName: "owner", PasswordHash: "h"}
	require.NoError(t, repo.NewUserRepository(db).Create(context.Background(), u))
	return u.ID
}

func upload(t *testing.T, s *FileService, owner uuid.UUID, name, content string, parent *uuid.UUID) *UploadResult {
	t.Helper()
	res, err := s.Upload(context.Background(), owner, bytes.NewReader([]byte(content)), name, "text/plain", parent, nil, testClient)
	require.NoError(t, err)
	return res
}

func TestFileService_UploadFirstVersion(t *testing.T) {
	s, fs, db := newFileService(t, 1<<20)
	owner := seedOwner(t, db)

	res := upload(t, s, owner, "report.txt", "hello world", nil)
	assert.Equal(t, 1, res.Version)
	assert.False(t, res.Deduplicated)
	assert.Equal(t, "report.txt", res.Name)
	assert.Equal(t, 1, fs.saves)

	// попытка и успех записаны в журнал
	attempts := auditEntries(t, db, model.OpFileUploadAttempt, &owner)
	require.Len(t, attempts, 1)
	uploads := auditEntries(t, db, model.OpUpload, &owner)
	require.Len(t, uploads, 1)
	assert.Equal(t, false, uploads[0].Details["deduplicated"])
}

func TestFileService_UploadSameNameBumpsVersion(t *testing.T) {
	s, fs, db := newFileService(t, 1<<20)
	owner := seedOwner(t, db)
	ctx := context.Background()

	first := upload(t, s, owner, "doc.txt", "version one", nil)
	second := upload(t, s, owner, "doc.txt", "version two", nil)

	// то же имя в той же папке — новая версия того же файла
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 2, second.Version)
	assert.Equal(t, 2, fs.saves)

	versions, err := s.ListVersions(ctx, owner, first.ID, nil, testClient)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, 1, versions[0].VersionNo)
	assert.Equal(t, 2, versions[1].VersionNo)

	// текущая версия — последняя
	dl, err := s.Download(ctx, owner, first.ID, nil, nil, testClient)
	require.NoError(t, err)
	defer dl.Content.Close()
	data, err := io.ReadAll(dl.Content)
	require.NoError(t, err)
	assert.Equal(t, "version two", string(data))

	// явный version_id достаёт историческую версию
	dl1, err := s.Download(ctx, owner, first.ID, &versions[0].ID, nil, testClient)
	require.NoError(t, err)
	defer dl1.Content.Close()
	data, err = io.ReadAll(dl1.Content)
	require.NoError(t, err)
	assert.Equal(t, "version one", string(data))
}

func TestFileService_UploadDeduplicatesContent(t *testing.T) {
	s, fs, db := newFileService(t, 1<<20)
	owner := seedOwner(t, db)

	upload(t, s, owner, "a.txt", "shared bytes", nil)
	res := upload(t, s, owner, "b.txt", "shared bytes", nil)

	// содержимое одинаковое — физическая запись одна
	assert.True(t, res.Deduplicated)
	assert.Equal(t, 1, fs.saves)

	uploads := auditEntries(t, db, model.OpUpload, &owner)
	require.Len(t, uploads, 2)
	assert.Equal(t, true, uploads[1].Details["deduplicated"])
}

func TestFileService_UploadTooLarge(t *testing.T) {
	s, _, db := newFileService(t, 10)
	owner := seedOwner(t, db)

	_, err := s.Upload(context.Background(), owner, bytes.NewReader(make([]byte, 11)), "big.bin", "application/octet-stream", nil, nil, testClient)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindTooLarge, apperrors.KindOf(err))
}

func TestFileService_UploadParentValidation(t *testing.T) {
	s, _, db := newFileService(t, 1<<20)
	owner := seedOwner(t, db)
	stranger := seedOwner(t, db)
	ctx := context.Background()

	folder, err := s.CreateFolder(ctx, owner, "docs", nil, nil, testClient)
	require.NoError(t, err)
	plain := upload(t, s, owner, "plain.txt", "x", nil)

	t.Run("nonexistent parent", func(t *testing.T) {
		missing := uuid.New()
		_, err := s.Upload(ctx, owner, bytes.NewReader([]byte("x")), "f.txt", "text/plain", &missing, nil, testClient)
		require.Error(t, err)
		assert.Equal(t, apperrors.KindInvalidParent, apperrors.KindOf(err))
	})

	t.Run("foreign parent", func(t *testing.T) {
		_, err := s.Upload(ctx, stranger, bytes.NewReader([]byte("x")), "f.txt", "text/plain", &folder.ID, nil, testClient)
		require.Error(t, err)
		assert.Equal(t, apperrors.KindInvalidParent, apperrors.KindOf(err))
	})

	t.Run("parent is a file", func(t *testing.T) {
		_, err := s.Upload(ctx, owner, bytes.NewReader([]byte("x")), "f.txt", "text/plain", &plain.ID, nil, testClient)
		require.Error(t, err)
		assert.Equal(t, apperrors.KindInvalidParent, apperrors.KindOf(err))
	})

	t.Run("name taken by folder", func(t *testing.T) {
		// загрузка на имя существующей папки — конфликт, а не новая версия
		_, err := s.Upload(ctx, owner, bytes.NewReader([]byte("x")), "docs", "text/plain", nil, nil, testClient)
		require.Error(t, err)
		assert.Equal(t, apperrors.KindAlreadyExists, apperrors.KindOf(err))
	})
}

func TestFileService_CreateFolder(t *testing.T) {
	s, _, db := newFileService(t, 1<<20)
	owner := seedOwner(t, db)
	ctx := context.Background()

	folder, err := s.CreateFolder(ctx, owner, "photos", nil, nil, testClient)
	require.NoError(t, err)
	assert.True(t, folder.IsFolder)
	assert.Equal(t, model.FolderMimeType, folder.MimeType)

	// вложенная папка
	inner, err := s.CreateFolder(ctx, owner, "2026", &folder.ID, nil, testClient)
	require.NoError(t, err)

	// дубликат имени папки в том же месте
	_, err = s.CreateFolder(ctx, owner, "2026", &folder.ID, nil, testClient)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindAlreadyExists, apperrors.KindOf(err))

	// имя занято файлом — тоже конфликт: имена уникальны среди всех детей
	upload(t, s, owner, "readme.md", "x", &folder.ID)
	_, err = s.CreateFolder(ctx, owner, "readme.md", &folder.ID, nil, testClient)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindAlreadyExists, apperrors.KindOf(err))

	// родитель-файл не годится
	f := upload(t, s, owner, "file.txt", "x", nil)
	_, err = s.CreateFolder(ctx, owner, "sub", &f.ID, nil, testClient)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindInvalidParent, apperrors.KindOf(err))

	entries := auditEntries(t, db, model.OpFolderCreate, &owner)
	assert.Len(t, entries, 2)
	_ = inner
}

func TestFileService_ListFiles(t *testing.T) {
	s, _, db := newFileService(t, 1<<20)
	owner := seedOwner(t, db)
	ctx := context.Background()

	docs, err := s.CreateFolder(ctx, owner, "docs", nil, nil, testClient)
	require.NoError(t, err)
	work, err := s.CreateFolder(ctx, owner, "work", &docs.ID, nil, testClient)
	require.NoError(t, err)
	upload(t, s, owner, "zzz.txt", "123456", &docs.ID)
	upload(t, s, owner, "aaa.txt", "12", &docs.ID)

	res, err := s.ListFiles(ctx, owner, &docs.ID, nil, testClient)
	require.NoError(t, err)
	require.Len(t, res.Items, 3)

	// папки раньше файлов, внутри группы — по имени
	assert.Equal(t, "work", res.Items[0].Name)
	assert.True(t, res.Items[0].IsFolder)
	assert.Equal(t, "aaa.txt", res.Items[1].Name)
	assert.Equal(t, int64(2), res.Items[1].SizeBytes)
	assert.Equal(t, "zzz.txt", res.Items[2].Name)
	assert.Equal(t, int64(6), res.Items[2].SizeBytes)

	// хлебные крошки от корня к текущей папке
	deep, err := s.ListFiles(ctx, owner, &work.ID, nil, testClient)
	require.NoError(t, err)
	require.Len(t, deep.Breadcrumbs, 2)
	assert.Equal(t, "docs", deep.Breadcrumbs[0].Name)
	assert.Equal(t, "work", deep.Breadcrumbs[1].Name)

	// корень: без крошек
	root, err := s.ListFiles(ctx, owner, nil, nil, testClient)
	require.NoError(t, err)
	assert.Empty(t, root.Breadcrumbs)
	require.Len(t, root.Items, 1)
	assert.Equal(t, "docs", root.Items[0].Name)

	// чужая/несуществующая папка — not found
	stranger := seedOwner(t, db)
	_, err = s.ListFiles(ctx, stranger, &docs.ID, nil, testClient)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestFileService_Rename(t *testing.T) {
	s, _, db := newFileService(t, 1<<20)
	owner := seedOwner(t, db)
	ctx := context.Background()

	a := upload(t, s, owner, "a.txt", "x", nil)
	upload(t, s, owner, "b.txt", "y", nil)

	t.Run("ok", func(t *testing.T) {
		item, err := s.Rename(ctx, owner, a.ID, "renamed.txt", nil, testClient)
		require.NoError(t, err)
		assert.Equal(t, "renamed.txt", item.Name)

		entries := auditEntries(t, db, model.OpRename, &owner)
		require.NotEmpty(t, entries)
		last := entries[len(entries)-1]
		assert.Equal(t, "a.txt", last.Details["old_name"])
		assert.Equal(t, "renamed.txt", last.Details["new_name"])
	})

	t.Run("same name is a no-op", func(t *testing.T) {
		item, err := s.Rename(ctx, owner, a.ID, "renamed.txt", nil, testClient)
		require.NoError(t, err)
		assert.Equal(t, "renamed.txt", item.Name)
	})

	t.Run("name collision", func(t *testing.T) {
		_, err := s.Rename(ctx, owner, a.ID, "b.txt", nil, testClient)
		require.Error(t, err)
		assert.Equal(t, apperrors.KindAlreadyExists, apperrors.KindOf(err))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := s.Rename(ctx, owner, uuid.New(), "x.txt", nil, testClient)
		require.Error(t, err)
		assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
	})

	t.Run("foreign file looks missing", func(t *testing.T) {
		stranger := seedOwner(t, db)
		_, err := s.Rename(ctx, stranger, a.ID, "stolen.txt", nil, testClient)
		require.Error(t, err)
		assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
	})
}

func TestFileService_DeleteTree(t *testing.T) {
	s, fs, db := newFileService(t, 1<<20)
	owner := seedOwner(t, db)
	ctx := context.Background()

	docs, err := s.CreateFolder(ctx, owner, "docs", nil, nil, testClient)
	require.NoError(t, err)
	inner, err := s.CreateFolder(ctx, owner, "inner", &docs.ID, nil, testClient)
	require.NoError(t, err)
	upload(t, s, owner, "deep.txt", "shared", &inner.ID)
	survivor := upload(t, s, owner, "keep.txt", "shared", nil)

	require.NoError(t, s.Delete(ctx, owner, docs.ID, nil, testClient))

	// поддерево исчезло из выдачи
	root, err := s.ListFiles(ctx, owner, nil, nil, testClient)
	require.NoError(t, err)
	require.Len(t, root.Items, 1)
	assert.Equal(t, "keep.txt", root.Items[0].Name)

	// общий блоб жив: им владеет выживший файл
	dl, err := s.Download(ctx, owner, survivor.ID, nil, nil, testClient)
	require.NoError(t, err)
	defer dl.Content.Close()
	data, err := io.ReadAll(dl.Content)
	require.NoError(t, err)
	assert.Equal(t, "shared", string(data))
	assert.Equal(t, 1, fs.saves)

	entries := auditEntries(t, db, model.OpFileDelete, &owner)
	require.Len(t, entries, 1)
	assert.Equal(t, float64(3), entries[0].Details["deleted_count"])
}

func TestFileService_DeleteOwnership(t *testing.T) {
	s, _, db := newFileService(t, 1<<20)
	owner := seedOwner(t, db)
	stranger := seedOwner(t, db)
	ctx := context.Background()

	f := upload(t, s, owner, "mine.txt", "x", nil)

	// несуществующий id — not found
	err := s.Delete(ctx, owner, uuid.New(), nil, testClient)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))

	// чужой файл существует — это отказ в доступе, не not found
	err = s.Delete(ctx, stranger, f.ID, nil, testClient)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindAccessDenied, apperrors.KindOf(err))
}

func TestFileService_DownloadEdgeCases(t *testing.T) {
	s, _, db := newFileService(t, 1<<20)
	owner := seedOwner(t, db)
	ctx := context.Background()

	folder, err := s.CreateFolder(ctx, owner, "docs", nil, nil, testClient)
	require.NoError(t, err)
	a := upload(t, s, owner, "a.txt", "aaa", nil)
	b := upload(t, s, owner, "b.txt", "bbb", nil)

	// папку скачать нельзя
	_, err = s.Download(ctx, owner, folder.ID, nil, nil, testClient)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))

	// версия чужого файла не подставляется
	bVersions, err := s.ListVersions(ctx, owner, b.ID, nil, testClient)
	require.NoError(t, err)
	require.Len(t, bVersions, 1)
	_, err = s.Download(ctx, owner, a.ID, &bVersions[0].ID, nil, testClient)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))

	// скачивание пишется в журнал
	dl, err := s.Download(ctx, owner, a.ID, nil, nil, testClient)
	require.NoError(t, err)
	dl.Content.Close()
	entries := auditEntries(t, db, model.OpDownload, &owner)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.txt", entries[0].Details["name"])
}

func TestFileService_DownloadNameExtension(t *testing.T) {
	s, _, db := newFileService(t, 1<<20)
	owner := seedOwner(t, db)
	ctx := context.Background()

	// имя без расширения дополняется по mime-типу
	res, err := s.Upload(ctx, owner, bytes.NewReader([]byte("{}")), "config", "application/json", nil, nil, testClient)
	require.NoError(t, err)

	dl, err := s.Download(ctx, owner, res.ID, nil, nil, testClient)
	require.NoError(t, err)
	defer dl.Content.Close()
	assert.Equal(t, "config.json", dl.Name)

	// имя с расширением не трогается
	res2 := upload(t, s, owner, "notes.txt", "n", nil)
	dl2, err := s.Download(ctx, owner, res2.ID, nil, nil, testClient)
	require.NoError(t, err)
	defer dl2.Content.Close()
	assert.Equal(t, "notes.txt", dl2.Name)
}

func TestFileService_ListVersionsOwnership(t *testing.T) {
	s, _, db := newFileService(t, 1<<20)
	owner := seedOwner(t, db)
	stranger := seedOwner(t, db)
	ctx := context.Background()

	f := upload(t, s, owner, "x.txt", "x", nil)

	_, err := s.ListVersions(ctx, stranger, f.ID, nil, testClient)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}
