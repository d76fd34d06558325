package repo

import (
	"context"

	"gorm.io/gorm"
)

// UnitOfWork открывает одну транзакцию на вызов use-case.
type UnitOfWork interface {
	Begin(ctx context.Context) (*Tx, error)
}

// Tx — транзакционная ручка: репозитории всех агрегатов, привязанные
// к одной gorm-транзакции. Завершается ровно одним Commit или Rollback;
// Rollback после Commit — no-op, поэтому его безопасно вешать в defer.
type Tx struct {
	db   *gorm.DB
	done bool

	Users         UserRepository
	Sessions      SessionRepository
	RefreshTokens RefreshTokenRepository
	Blobs         BlobRepository
	Files         FileRepository
	Versions      FileVersionRepository
	Logbook       LogbookRepository
}

type gormUnitOfWork struct {
	db *gorm.DB
}

func NewUnitOfWork(db *gorm.DB) UnitOfWork {
	return &gormUnitOfWork{db: db}
}

func (u *gormUnitOfWork) Begin(ctx context.Context) (*Tx, error) {
	tx := u.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return &Tx{
		db:            tx,
		Users:         NewUserRepository(tx),
		Sessions:      NewSessionRepository(tx),
		RefreshTokens: NewRefreshTokenRepository(tx),
		Blobs:         NewBlobRepository(tx),
		Files:         NewFileRepository(tx),
		Versions:      NewFileVersionRepository(tx),
		Logbook:       NewLogbookRepository(tx),
	}, nil
}

func (t *Tx) Commit() error {
	if t.done {
		return nil
	}
	if err := t.db.Commit().Error; err != nil {
		return err
	}
	t.done = true
	return nil
}

func (t *Tx) Rollback() {
	if t.done {
		return
	}
	t.done = true
	t.db.Rollback()
}
