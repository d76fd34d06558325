package repo

import (
	"context"
	"errors"
	"time"

	"DriveKeeper/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RefreshTokenRepository — доступ к ротационной цепочке refresh-токенов.
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *model.RefreshToken) error
	GetByHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error)

	// Revoke помечает токен отозванным; replacedBy — id сменившего токена
	// при ротации, nil при отзыве без замены.
	Revoke(ctx context.Context, id uuid.UUID, at time.Time, replacedBy *uuid.UUID) error

	// RevokeAllForUser отзывает все активные токены пользователя.
	// Возвращает число отозванных.
	RevokeAllForUser(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error)

	RevokeAllForSession(ctx context.Context, sessionID uuid.UUID, at time.Time) (int64, error)

	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.RefreshToken, error)
}

type refreshTokenRepo struct {
	db *gorm.DB
}

func NewRefreshTokenRepository(db *gorm.DB) RefreshTokenRepository {
	return &refreshTokenRepo{db: db}
}

func (r *refreshTokenRepo) Create(ctx context.Context, token *model.RefreshToken) error {
	if err := r.db.WithContext(ctx).Create(token).Error; err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *refreshTokenRepo) GetByHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	var t model.RefreshToken
	err := r.db.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *refreshTokenRepo) Revoke(ctx context.Context, id uuid.UUID, at time.Time, replacedBy *uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.RefreshToken{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Updates(map[string]any{"revoked_at": at, "revoked_id": replacedBy}).Error
}

func (r *refreshTokenRepo) RevokeAllForUser(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	tx := r.db.WithContext(ctx).Model(&model.RefreshToken{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", at)
	return tx.RowsAffected, tx.Error
}

func (r *refreshTokenRepo) RevokeAllForSession(ctx context.Context, sessionID uuid.UUID, at time.Time) (int64, error) {
	tx := r.db.WithContext(ctx).Model(&model.RefreshToken{}).
		Where("session_id = ? AND revoked_at IS NULL", sessionID).
		Update("revoked_at", at)
	return tx.RowsAffected, tx.Error
}

func (r *refreshTokenRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.RefreshToken, error) {
	var tokens []model.RefreshToken
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("issued_at ASC").Find(&tokens).Error
	if err != nil {
		return nil, err
	}
	return tokens, nil
}
