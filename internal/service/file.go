package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"DriveKeeper/internal/apperrors"
	"DriveKeeper/internal/model"
	"DriveKeeper/internal/repo"
	"DriveKeeper/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UploadResult — итог загрузки: какой файл, какая версия, был ли блоб
// переиспользован.
type UploadResult struct {
	ID           uuid.UUID
	Name         string
	Version      int
	Deduplicated bool
}

// FileItem — элемент выдачи списка/операций над файлом.
type FileItem struct {
	ID        uuid.UUID
	Name      string
	IsFolder  bool
	MimeType  string
	SizeBytes int64
}

// Breadcrumb — звено пути от корня к текущей папке.
type Breadcrumb struct {
	ID   uuid.UUID
	Name string
}

// ListResult — содержимое папки с хлебными крошками.
type ListResult struct {
	CurrentFolderID *uuid.UUID
	Items           []FileItem
	Breadcrumbs     []Breadcrumb
}

// VersionInfo — версия файла с размером её блоба.
type VersionInfo struct {
	ID         uuid.UUID
	VersionNo  int
	UploadedAt time.Time
	SizeBytes  int64
}

// DownloadResult — поток содержимого и метаданные для отдачи клиенту.
// Закрыть Content — обязанность вызывающего.
type DownloadResult struct {
	Content   io.ReadCloser
	Name      string
	MimeType  string
	SizeBytes int64
}

// FileService — дерево файлов, версии и дедупликация содержимого.
type FileService struct {
	uow      repo.UnitOfWork
	storage  storage.BlobStorage
	logbook  *LogbookService
	maxBytes int64
	logger   *zap.SugaredLogger
}

func NewFileService(
	uow repo.UnitOfWork,
	blobStorage storage.BlobStorage,
	logbook *LogbookService,
	maxUploadBytes int64,
	logger *zap.SugaredLogger,
) *FileService {
	return &FileService{
		uow:      uow,
		storage:  blobStorage,
		logbook:  logbook,
		maxBytes: maxUploadBytes,
		logger:   logger,
	}
}

// hashContent считает sha256 потоково, блоками по 1 МиБ, и обрывает
// чтение, как только накопленный размер превысил лимит, не буферизуя
// всё содержимое в памяти и не дочитывая лишнего.
func hashContent(r io.Reader, maxBytes int64) (string, int64, error) {
	h := sha256.New()
	buf := make([]byte, storage.ChunkSize)
	var size int64
	for {
		n, err := r.Read(buf)
		if n > 0 {
			size += int64(n)
			if size > maxBytes {
				return "", 0, apperrors.TooLarge(fmt.Sprintf("upload exceeds limit of %d bytes", maxBytes))
			}
			h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", 0, err
		}
	}
	return hex.EncodeToString(h.Sum(nil)), size, nil
}

// extensionOf возвращает расширение имени без точки, в нижнем регистре.
func extensionOf(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// Upload сохраняет содержимое как новую версию файла. Одинаковые байты
// физически хранятся один раз: блоб ищется по хешу, при гонке двух
// одинаковых загрузок уникальность sha256 решает, чей insert прошёл,
// проигравший перечитывает существующую запись.
func (s *FileService) Upload(
	ctx context.Context,
	ownerID uuid.UUID,
	content io.ReadSeeker,
	filename string,
	contentType string,
	parentFolderID *uuid.UUID,
	sessionID *uuid.UUID,
	client ClientInfo,
) (*UploadResult, error) {
	hash, size, err := hashContent(content, s.maxBytes)
	if err != nil {
		return nil, err
	}
	if _, err := content.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	// запись о попытке фиксируется отдельно, чтобы пережить откат
	// основной транзакции при любом последующем сбое
	if err := s.auditAttempt(ctx, ownerID, sessionID, client, map[string]any{
		"filename": filename,
		"size":     size,
		"sha256":   hash,
	}); err != nil {
		return nil, err
	}

	tx, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	blob, err := tx.Blobs.GetBySHA256(ctx, hash)
	if err != nil {
		return nil, err
	}
	isNewBlob := false
	if blob == nil {
		storagePath, err := s.storage.Save(ctx, content, hash)
		if err != nil {
			return nil, err
		}
		blob = &model.Blob{
			ID:          uuid.New(),
			SHA256:      hash,
			SizeBytes:   size,
			StoragePath: storagePath,
		}
		created, err := tx.Blobs.CreateIfAbsent(ctx, blob)
		if err != nil {
			return nil, err
		}
		if created {
			isNewBlob = true
		} else {
			// гонку выиграла параллельная загрузка того же содержимого
			blob, err = tx.Blobs.GetBySHA256(ctx, hash)
			if err != nil {
				return nil, err
			}
			if blob == nil {
				return nil, fmt.Errorf("blob %s vanished after conflict", hash)
			}
		}
	}

	if parentFolderID != nil {
		if err := s.validateParent(ctx, tx, ownerID, *parentFolderID); err != nil {
			return nil, err
		}
	}

	existing, err := tx.Files.GetByNameInFolder(ctx, ownerID, filename, parentFolderID)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.IsFolder {
		return nil, apperrors.AlreadyExists("name '" + filename + "' is taken by a folder")
	}

	versionNo := 1
	var file *model.File
	if existing != nil {
		// то же имя в той же папке — новая версия существующего файла
		file = existing
		if existing.CurrentVersionID != nil {
			current, err := tx.Versions.GetByID(ctx, *existing.CurrentVersionID)
			if err != nil {
				return nil, err
			}
			if current != nil {
				versionNo = current.VersionNo + 1
			}
		}
		if err := tx.Files.UpdateContentType(ctx, file.ID, contentType, extensionOf(filename)); err != nil {
			return nil, err
		}
	} else {
		file = &model.File{
			ID:             uuid.New(),
			OwnerID:        ownerID,
			Name:           filename,
			MimeType:       contentType,
			Extension:      extensionOf(filename),
			IsFolder:       false,
			ParentFolderID: parentFolderID,
		}
		if err := tx.Files.Create(ctx, file); err != nil {
			if err == repo.ErrDuplicate {
				return nil, apperrors.AlreadyExists("file '" + filename + "' already exists in the target folder")
			}
			return nil, err
		}
	}

	version := &model.FileVersion{
		ID:         uuid.New(),
		FileID:     file.ID,
		VersionNo:  versionNo,
		UploadedBy: ownerID,
		BlobID:     blob.ID,
	}
	if err := tx.Versions.Create(ctx, version); err != nil {
		return nil, err
	}
	// вставка версии и сдвиг указателя — одна транзакция: наблюдатель
	// не должен видеть версию без указателя или наоборот
	if err := tx.Files.SetCurrentVersion(ctx, file.ID, version.ID); err != nil {
		return nil, err
	}

	if err := s.logbook.Record(ctx, tx, client, LogRecord{
		Op:            model.OpUpload,
		UserID:        &ownerID,
		SessionID:     sessionID,
		FileID:        &file.ID,
		FileVersionID: &version.ID,
		Details: map[string]any{
			"filename":     filename,
			"version_no":   versionNo,
			"deduplicated": !isNewBlob,
		},
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &UploadResult{
		ID:           file.ID,
		Name:         filename,
		Version:      versionNo,
		Deduplicated: !isNewBlob,
	}, nil
}

func (s *FileService) auditAttempt(ctx context.Context, ownerID uuid.UUID, sessionID *uuid.UUID, client ClientInfo, details map[string]any) error {
	tx, err := s.uow.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := s.logbook.Record(ctx, tx, client, LogRecord{
		Op:        model.OpFileUploadAttempt,
		UserID:    &ownerID,
		SessionID: sessionID,
		Details:   details,
	}); err != nil {
		return err
	}
	return tx.Commit()
}

// validateParent: родитель должен существовать, принадлежать владельцу
// и быть папкой.
func (s *FileService) validateParent(ctx context.Context, tx *repo.Tx, ownerID, parentID uuid.UUID) error {
	parent, err := tx.Files.GetByID(ctx, parentID)
	if err != nil {
		return err
	}
	if parent == nil {
		return apperrors.InvalidParent("parent folder does not exist")
	}
	if parent.OwnerID != ownerID {
		return apperrors.InvalidParent("access denied to this folder")
	}
	if !parent.IsFolder {
		return apperrors.InvalidParent("target is not a folder")
	}
	return nil
}

// CreateFolder создаёт папку. Коллизия имени проверяется против файлов
// И папок: имя уникально среди всех детей каталога.
func (s *FileService) CreateFolder(ctx context.Context, ownerID uuid.UUID, name string, parentFolderID *uuid.UUID, sessionID *uuid.UUID, client ClientInfo) (*FileItem, error) {
	tx, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if parentFolderID != nil {
		if err := s.validateParent(ctx, tx, ownerID, *parentFolderID); err != nil {
			return nil, err
		}
	}

	sibling, err := tx.Files.GetByNameInFolder(ctx, ownerID, name, parentFolderID)
	if err != nil {
		return nil, err
	}
	if sibling != nil {
		return nil, apperrors.AlreadyExists("folder name '" + name + "' already exists")
	}

	folder := &model.File{
		ID:             uuid.New(),
		OwnerID:        ownerID,
		Name:           name,
		MimeType:       model.FolderMimeType,
		IsFolder:       true,
		ParentFolderID: parentFolderID,
	}
	if err := tx.Files.Create(ctx, folder); err != nil {
		if err == repo.ErrDuplicate {
			return nil, apperrors.AlreadyExists("folder name '" + name + "' already exists")
		}
		return nil, err
	}

	if err := s.logbook.Record(ctx, tx, client, LogRecord{
		Op:        model.OpFolderCreate,
		UserID:    &ownerID,
		SessionID: sessionID,
		FileID:    &folder.ID,
		Details:   map[string]any{"name": name},
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &FileItem{
		ID:       folder.ID,
		Name:     folder.Name,
		IsFolder: true,
		MimeType: folder.MimeType,
	}, nil
}

// ListFiles отдаёт прямых детей папки (или корня) с хлебными крошками
// от корня к листу. Размер элемента — размер блоба текущей версии,
// у папок и файлов без версий — ноль.
func (s *FileService) ListFiles(ctx context.Context, ownerID uuid.UUID, folderID *uuid.UUID, sessionID *uuid.UUID, client ClientInfo) (*ListResult, error) {
	tx, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	folderDetail := "root"
	if folderID != nil {
		folderDetail = folderID.String()
	}
	if err := s.logbook.Record(ctx, tx, client, LogRecord{
		Op:        model.OpListFiles,
		UserID:    &ownerID,
		SessionID: sessionID,
		Details:   map[string]any{"folder_id": folderDetail, "status": "initiated"},
	}); err != nil {
		return nil, err
	}

	var breadcrumbs []Breadcrumb
	if folderID != nil {
		folder, err := tx.Files.GetByID(ctx, *folderID)
		if err != nil {
			return nil, err
		}
		if folder == nil || folder.OwnerID != ownerID || !folder.IsFolder {
			if err := s.logbook.Record(ctx, tx, client, LogRecord{
				Op:        model.OpListFiles,
				UserID:    &ownerID,
				SessionID: sessionID,
				Details:   map[string]any{"folder_id": folderDetail, "status": "failed"},
			}); err != nil {
				return nil, err
			}
			if err := tx.Commit(); err != nil {
				return nil, err
			}
			return nil, apperrors.NotFound("folder " + folderDetail + " not found or access denied")
		}

		// путь от корня: поднимаемся по родителям повторными выборками
		current := folder
		for {
			breadcrumbs = append([]Breadcrumb{{ID: current.ID, Name: current.Name}}, breadcrumbs...)
			if current.ParentFolderID == nil {
				break
			}
			current, err = tx.Files.GetByID(ctx, *current.ParentFolderID)
			if err != nil {
				return nil, err
			}
			if current == nil {
				break
			}
		}
	}

	children, err := tx.Files.ListInFolder(ctx, ownerID, folderID)
	if err != nil {
		return nil, err
	}

	items := make([]FileItem, 0, len(children))
	for _, f := range children {
		size, err := s.fileSize(ctx, tx, &f)
		if err != nil {
			return nil, err
		}
		items = append(items, FileItem{
			ID:        f.ID,
			Name:      f.Name,
			IsFolder:  f.IsFolder,
			MimeType:  f.MimeType,
			SizeBytes: size,
		})
	}

	if err := s.logbook.Record(ctx, tx, client, LogRecord{
		Op:        model.OpListFiles,
		UserID:    &ownerID,
		SessionID: sessionID,
		Details:   map[string]any{"folder_id": folderDetail, "status": "completed"},
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &ListResult{CurrentFolderID: folderID, Items: items, Breadcrumbs: breadcrumbs}, nil
}

// fileSize — размер блоба текущей версии; 0 для папок и файлов без версий.
func (s *FileService) fileSize(ctx context.Context, tx *repo.Tx, f *model.File) (int64, error) {
	if f.IsFolder || f.CurrentVersionID == nil {
		return 0, nil
	}
	version, err := tx.Versions.GetByID(ctx, *f.CurrentVersionID)
	if err != nil {
		return 0, err
	}
	if version == nil || version.Blob == nil {
		return 0, nil
	}
	return version.Blob.SizeBytes, nil
}

// Rename переименовывает файл/папку. Совпадение с текущим именем —
// успех без изменений; занятое имя у соседа — конфликт.
func (s *FileService) Rename(ctx context.Context, ownerID, fileID uuid.UUID, newName string, sessionID *uuid.UUID, client ClientInfo) (*FileItem, error) {
	tx, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	file, err := tx.Files.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file == nil || file.OwnerID != ownerID {
		if err := s.logbook.Record(ctx, tx, client, LogRecord{
			Op:        model.OpRename,
			UserID:    &ownerID,
			SessionID: sessionID,
			Details: map[string]any{
				"file_id":        fileID.String(),
				"status":         "failed",
				"attempted_name": newName,
				"reason":         "not_found",
			},
		}); err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		return nil, apperrors.NotFound("file with id " + fileID.String() + " not found")
	}

	size, err := s.fileSize(ctx, tx, file)
	if err != nil {
		return nil, err
	}

	if file.Name == newName {
		if err := s.logbook.Record(ctx, tx, client, LogRecord{
			Op:        model.OpRename,
			UserID:    &ownerID,
			SessionID: sessionID,
			FileID:    &file.ID,
			Details: map[string]any{
				"status":         "no_change",
				"attempted_name": newName,
			},
		}); err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		return &FileItem{ID: file.ID, Name: file.Name, IsFolder: file.IsFolder, MimeType: file.MimeType, SizeBytes: size}, nil
	}

	sibling, err := tx.Files.GetByNameInFolder(ctx, ownerID, newName, file.ParentFolderID)
	if err != nil {
		return nil, err
	}
	if sibling != nil {
		if err := s.logbook.Record(ctx, tx, client, LogRecord{
			Op:        model.OpRename,
			UserID:    &ownerID,
			SessionID: sessionID,
			FileID:    &file.ID,
			Details: map[string]any{
				"status":         "failed",
				"attempted_name": newName,
				"reason":         "name_exists",
			},
		}); err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		return nil, apperrors.AlreadyExists("name '" + newName + "' already exists in the target folder")
	}

	oldName := file.Name
	if err := tx.Files.UpdateName(ctx, file.ID, newName); err != nil {
		if err == repo.ErrDuplicate {
			return nil, apperrors.AlreadyExists("name '" + newName + "' already exists in the target folder")
		}
		return nil, err
	}

	if err := s.logbook.Record(ctx, tx, client, LogRecord{
		Op:        model.OpRename,
		UserID:    &ownerID,
		SessionID: sessionID,
		FileID:    &file.ID,
		Details: map[string]any{
			"old_name":  oldName,
			"new_name":  newName,
			"is_folder": file.IsFolder,
		},
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &FileItem{ID: file.ID, Name: newName, IsFolder: file.IsFolder, MimeType: file.MimeType, SizeBytes: size}, nil
}

// Delete удаляет файл или папку со всеми потомками и их версиями.
// Записи блобов остаются: на них могут ссылаться версии других файлов.
func (s *FileService) Delete(ctx context.Context, ownerID, fileID uuid.UUID, sessionID *uuid.UUID, client ClientInfo) error {
	tx, err := s.uow.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	file, err := tx.Files.GetByID(ctx, fileID)
	if err != nil {
		return err
	}
	if file == nil {
		return apperrors.NotFound("file with id " + fileID.String() + " not found")
	}
	if file.OwnerID != ownerID {
		return apperrors.AccessDenied("file with id " + fileID.String() + " belongs to another user")
	}

	deleted, err := tx.Files.DeleteTree(ctx, file.ID)
	if err != nil {
		return err
	}

	if err := s.logbook.Record(ctx, tx, client, LogRecord{
		Op:        model.OpFileDelete,
		UserID:    &ownerID,
		SessionID: sessionID,
		Details: map[string]any{
			"file_id":       file.ID.String(),
			"name":          file.Name,
			"is_folder":     file.IsFolder,
			"deleted_count": len(deleted),
		},
	}); err != nil {
		return err
	}
	return tx.Commit()
}

// ListVersions — история версий файла по возрастанию номера.
func (s *FileService) ListVersions(ctx context.Context, ownerID, fileID uuid.UUID, sessionID *uuid.UUID, client ClientInfo) ([]VersionInfo, error) {
	tx, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	file, err := tx.Files.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file == nil || file.OwnerID != ownerID {
		return nil, apperrors.NotFound("file with id " + fileID.String() + " not found")
	}

	versions, err := tx.Versions.ListByFile(ctx, file.ID)
	if err != nil {
		return nil, err
	}

	infos := make([]VersionInfo, 0, len(versions))
	for _, v := range versions {
		var size int64
		if v.Blob != nil {
			size = v.Blob.SizeBytes
		}
		infos = append(infos, VersionInfo{
			ID:         v.ID,
			VersionNo:  v.VersionNo,
			UploadedAt: v.UploadedAt,
			SizeBytes:  size,
		})
	}

	if err := s.logbook.Record(ctx, tx, client, LogRecord{
		Op:        model.OpViewFileVersions,
		UserID:    &ownerID,
		SessionID: sessionID,
		FileID:    &file.ID,
		Details:   map[string]any{"count": len(infos)},
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return infos, nil
}

// Download отдаёт содержимое версии (по умолчанию — текущей) потоком
// из блоб-хранилища.
func (s *FileService) Download(ctx context.Context, ownerID, fileID uuid.UUID, versionID *uuid.UUID, sessionID *uuid.UUID, client ClientInfo) (*DownloadResult, error) {
	tx, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	file, err := tx.Files.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file == nil || file.OwnerID != ownerID || file.IsFolder {
		return nil, apperrors.NotFound("file with id " + fileID.String() + " not found")
	}

	var version *model.FileVersion
	if versionID != nil {
		version, err = tx.Versions.GetByID(ctx, *versionID)
		if err != nil {
			return nil, err
		}
		if version == nil || version.FileID != file.ID {
			return nil, apperrors.NotFound("version " + versionID.String() + " not found for this file")
		}
	} else {
		if file.CurrentVersionID == nil {
			return nil, apperrors.NotFound("file has no content")
		}
		version, err = tx.Versions.GetByID(ctx, *file.CurrentVersionID)
		if err != nil {
			return nil, err
		}
		if version == nil {
			return nil, apperrors.NotFound("file has no content")
		}
	}

	blob := version.Blob
	if blob == nil {
		blob, err = tx.Blobs.GetByID(ctx, version.BlobID)
		if err != nil {
			return nil, err
		}
		if blob == nil {
			return nil, apperrors.NotFound("file content is missing")
		}
	}

	if err := s.logbook.Record(ctx, tx, client, LogRecord{
		Op:            model.OpDownload,
		UserID:        &ownerID,
		SessionID:     sessionID,
		FileID:        &file.ID,
		FileVersionID: &version.ID,
		Details: map[string]any{
			"name":       file.Name,
			"version_no": version.VersionNo,
		},
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	content, err := s.storage.Get(ctx, blob.SHA256)
	if err != nil {
		if err == storage.ErrBlobNotFound {
			return nil, apperrors.NotFound("file content is missing")
		}
		return nil, err
	}

	return &DownloadResult{
		Content:   content,
		Name:      downloadName(file.Name, file.MimeType),
		MimeType:  file.MimeType,
		SizeBytes: blob.SizeBytes,
	}, nil
}

// downloadName дополняет имя расширением по mime-типу, если своего нет.
func downloadName(name, mimeType string) string {
	if filepath.Ext(name) != "" || mimeType == "" {
		return name
	}
	exts, err := mime.ExtensionsByType(mimeType)
	if err != nil || len(exts) == 0 {
		return name
	}
	return name + exts[0]
}
