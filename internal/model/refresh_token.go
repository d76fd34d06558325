package model

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken — refresh-токен ротационной цепочки.
//
// Сырой токен в БД не хранится никогда — только его keyed-хеш (TokenHash).
// При ротации старый токен получает RevokedAt и RevokedID с id сменившего
// его токена. Повторное предъявление отозванного токена — сигнал компрометации.
type RefreshToken struct {
	ID        uuid.UUID  `gorm:"primaryKey;type:uuid"`
	UserID    uuid.UUID  `gorm:"type:uuid;index;not null"`
	User      *User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	SessionID uuid.UUID  `gorm:"type:uuid;index;not null"`
	Session   *Session   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	TokenHash string     `gorm:"size:64;uniqueIndex;not null"`
	IssuedAt  time.Time  `gorm:"autoCreateTime"`
	ExpiresAt time.Time  `gorm:"not null;index"`
	RevokedAt *time.Time `gorm:"index"`
	// RevokedID — id токена, который сменил этот (цепочка ротации).
	RevokedID *uuid.UUID `gorm:"type:uuid;index"`
}

func (t *RefreshToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

func (t *RefreshToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
