package model

import (
	"time"

	"github.com/google/uuid"
)

// Session — один аутентифицированный клиентский контекст (браузер/устройство).
// Создаётся при успешном логине; EndedAt заполняется при logout.
type Session struct {
	ID        uuid.UUID `gorm:"primaryKey;type:uuid"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null"`
	User      *User     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	IP        string    `gorm:"size:64"`
	UserAgent string    `gorm:"size:512"`
	StartedAt time.Time `gorm:"autoCreateTime"`
	EndedAt   *time.Time
}
