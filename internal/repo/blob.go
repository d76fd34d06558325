package repo

import (
	"context"
	"errors"

	"DriveKeeper/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BlobRepository — доступ к записям контентно-адресуемых блобов.
type BlobRepository interface {
	// CreateIfAbsent пытается вставить запись. Уникальность sha256 решает
	// гонку двух одинаковых загрузок: проигравший получает created=false
	// и перечитывает существующую запись.
	CreateIfAbsent(ctx context.Context, blob *model.Blob) (created bool, err error)

	GetBySHA256(ctx context.Context, hash string) (*model.Blob, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Blob, error)
}

type blobRepo struct {
	db *gorm.DB
}

func NewBlobRepository(db *gorm.DB) BlobRepository {
	return &blobRepo{db: db}
}

func (r *blobRepo) CreateIfAbsent(ctx context.Context, blob *model.Blob) (bool, error) {
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "sha256"}},
		DoNothing: true,
	}).Create(blob)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *blobRepo) GetBySHA256(ctx context.Context, hash string) (*model.Blob, error) {
	var b model.Blob
	err := r.db.WithContext(ctx).Where("sha256 = ?", hash).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *blobRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Blob, error) {
	var b model.Blob
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}
