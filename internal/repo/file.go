package repo

import (
	"context"
	"errors"

	"DriveKeeper/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FileRepository — доступ к дереву файлов/папок. Связи parent/current —
// обычные id-колонки, обходы делаются повторными выборками по ключу.
type FileRepository interface {
	Create(ctx context.Context, file *model.File) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.File, error)

	// GetByNameInFolder ищет ребёнка с данным именем (файл или папку).
	// parent == nil означает корень владельца.
	GetByNameInFolder(ctx context.Context, ownerID uuid.UUID, name string, parent *uuid.UUID) (*model.File, error)

	// ListInFolder возвращает прямых детей: папки раньше файлов,
	// внутри группы — по имени по возрастанию.
	ListInFolder(ctx context.Context, ownerID uuid.UUID, parent *uuid.UUID) ([]model.File, error)

	UpdateName(ctx context.Context, id uuid.UUID, name string) error
	UpdateContentType(ctx context.Context, id uuid.UUID, mimeType, extension string) error
	SetCurrentVersion(ctx context.Context, id uuid.UUID, versionID uuid.UUID) error

	// DeleteTree удаляет узел и всех потомков вместе с их версиями.
	// Записи блобов не трогает. Возвращает id удалённых файлов.
	DeleteTree(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error)
}

type fileRepo struct {
	db *gorm.DB
}

func NewFileRepository(db *gorm.DB) FileRepository {
	return &fileRepo{db: db}
}

func (r *fileRepo) Create(ctx context.Context, file *model.File) error {
	if err := r.db.WithContext(ctx).Create(file).Error; err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *fileRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.File, error) {
	var f model.File
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *fileRepo) GetByNameInFolder(ctx context.Context, ownerID uuid.UUID, name string, parent *uuid.UUID) (*model.File, error) {
	q := r.db.WithContext(ctx).Where("owner_id = ? AND name = ?", ownerID, name)
	if parent != nil {
		q = q.Where("parent_folder_id = ?", *parent)
	} else {
		q = q.Where("parent_folder_id IS NULL")
	}

	var f model.File
	err := q.First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *fileRepo) ListInFolder(ctx context.Context, ownerID uuid.UUID, parent *uuid.UUID) ([]model.File, error) {
	q := r.db.WithContext(ctx).Where("owner_id = ?", ownerID)
	if parent != nil {
		q = q.Where("parent_folder_id = ?", *parent)
	} else {
		q = q.Where("parent_folder_id IS NULL")
	}

	var files []model.File
	// порядок — инвариант выдачи: сначала папки, затем файлы, по имени
	err := q.Order("is_folder DESC, name ASC").Find(&files).Error
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (r *fileRepo) UpdateName(ctx context.Context, id uuid.UUID, name string) error {
	err := r.db.WithContext(ctx).Model(&model.File{}).Where("id = ?", id).
		Update("name", name).Error
	if err != nil && isDuplicate(err) {
		return ErrDuplicate
	}
	return err
}

func (r *fileRepo) UpdateContentType(ctx context.Context, id uuid.UUID, mimeType, extension string) error {
	return r.db.WithContext(ctx).Model(&model.File{}).Where("id = ?", id).
		Updates(map[string]any{"mime_type": mimeType, "extension": extension}).Error
}

func (r *fileRepo) SetCurrentVersion(ctx context.Context, id uuid.UUID, versionID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.File{}).Where("id = ?", id).
		Update("current_version_id", versionID).Error
}

func (r *fileRepo) DeleteTree(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	// обход в ширину: собираем id всех потомков повторными выборками
	all := []uuid.UUID{id}
	frontier := []uuid.UUID{id}
	for len(frontier) > 0 {
		var children []uuid.UUID
		err := r.db.WithContext(ctx).Model(&model.File{}).
			Where("parent_folder_id IN ?", frontier).
			Pluck("id", &children).Error
		if err != nil {
			return nil, err
		}
		all = append(all, children...)
		frontier = children
	}

	// сначала снимаем указатели текущих версий, потом версии, потом файлы
	if err := r.db.WithContext(ctx).Model(&model.File{}).
		Where("id IN ?", all).
		Update("current_version_id", nil).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).
		Where("file_id IN ?", all).
		Delete(&model.FileVersion{}).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).
		Where("id IN ?", all).
		Delete(&model.File{}).Error; err != nil {
		return nil, err
	}
	return all, nil
}
