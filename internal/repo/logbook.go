package repo

import (
	"context"

	"DriveKeeper/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LogbookRepository — журнал аудита. Только Append: записи никогда
// не обновляются и не удаляются.
type LogbookRepository interface {
	Append(ctx context.Context, entry *model.LogEntry) error
	// ListByOp нужен проверкам и инструментам; обычный код только пишет.
	ListByOp(ctx context.Context, opType model.OpType, userID *uuid.UUID) ([]model.LogEntry, error)
}

type logbookRepo struct {
	db *gorm.DB
}

func NewLogbookRepository(db *gorm.DB) LogbookRepository {
	return &logbookRepo{db: db}
}

func (r *logbookRepo) Append(ctx context.Context, entry *model.LogEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *logbookRepo) ListByOp(ctx context.Context, opType model.OpType, userID *uuid.UUID) ([]model.LogEntry, error) {
	q := r.db.WithContext(ctx).Where("op_type = ?", opType)
	if userID != nil {
		q = q.Where("user_id = ?", *userID)
	}
	var entries []model.LogEntry
	if err := q.Order("id ASC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
