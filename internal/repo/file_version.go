package repo

import (
	"context"
	"errors"

	"DriveKeeper/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FileVersionRepository — доступ к неизменяемым версиям файлов.
type FileVersionRepository interface {
	Create(ctx context.Context, version *model.FileVersion) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.FileVersion, error)
	// ListByFile возвращает версии по возрастанию номера, с блобами.
	ListByFile(ctx context.Context, fileID uuid.UUID) ([]model.FileVersion, error)
}

type fileVersionRepo struct {
	db *gorm.DB
}

func NewFileVersionRepository(db *gorm.DB) FileVersionRepository {
	return &fileVersionRepo{db: db}
}

func (r *fileVersionRepo) Create(ctx context.Context, version *model.FileVersion) error {
	if err := r.db.WithContext(ctx).Create(version).Error; err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *fileVersionRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.FileVersion, error) {
	var v model.FileVersion
	err := r.db.WithContext(ctx).Preload("Blob").Where("id = ?", id).First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *fileVersionRepo) ListByFile(ctx context.Context, fileID uuid.UUID) ([]model.FileVersion, error) {
	var versions []model.FileVersion
	err := r.db.WithContext(ctx).Preload("Blob").
		Where("file_id = ?", fileID).
		Order("version_no ASC").
		Find(&versions).Error
	if err != nil {
		return nil, err
	}
	return versions, nil
}
