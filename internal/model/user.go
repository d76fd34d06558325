package model

import (
	"time"

	"github.com/google/uuid"
)

// User — учётная запись. Email хранится нормализованным (trim+lower).
type User struct {
	ID           uuid.UUID `gorm:"primaryKey;type:uuid"`
	Email        string    `gorm:"size:255;uniqueIndex;not null"`
	DisplayName  string    `gorm:"size:100;not null"`
	PasswordHash string    `gorm:"size:255;not null"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}
